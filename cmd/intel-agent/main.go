package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/p-blackswan/repo-intel/internal/config"
	"github.com/p-blackswan/repo-intel/internal/githubauth"
	"github.com/p-blackswan/repo-intel/internal/intelagent"
	"github.com/p-blackswan/repo-intel/internal/llm"
	"github.com/p-blackswan/repo-intel/internal/mcptools"
	"github.com/p-blackswan/repo-intel/internal/secrets"
	"github.com/p-blackswan/repo-intel/pkg/tokenstore"
)

func main() {
	_ = godotenv.Load()

	// Setup structured logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()

	if os.Getenv("ENVIRONMENT") == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	log.Logger = logger

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	logger.Info().
		Str("environment", cfg.Environment).
		Str("listen_addr", cfg.AgentListenAddr).
		Str("mcp_server", cfg.MCPServerURL).
		Str("llm_provider", cfg.LLMProvider).
		Msg("starting intel-agent")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// GitHub token for the MCP server: App installation token first, env
	// PAT as fallback.
	var sources []secrets.Source
	if cfg.GitHubAppEnabled() {
		appSource, appErr := githubauth.NewAppSource(
			cfg.GitHubAppID, cfg.GitHubInstallationID, cfg.GitHubPrivateKeyPath,
			tokenstore.NewMemoryStore(), logger)
		if appErr != nil {
			logger.Warn().Err(appErr).Msg("failed to init GitHub App source (non-fatal)")
		} else {
			sources = append(sources, appSource)
		}
	}
	sources = append(sources, &secrets.EnvSource{Var: "GITHUB_TOKEN"})

	token, err := secrets.NewProvider(logger, sources...).Token(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("no GitHub token available for MCP connection")
	}

	broker, err := mcptools.Connect(ctx, cfg.MCPServerURL, token, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to MCP server")
	}
	defer broker.Close()

	provider, err := buildProvider(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init LLM provider")
	}
	logger.Info().Str("model", provider.ModelID()).Msg("LLM provider ready")

	agent := intelagent.New(provider, broker, logger,
		intelagent.WithMaxToolTurns(cfg.MaxToolTurns))
	srv := intelagent.NewServer(agent, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(cfg.AgentListenAddr)
	}()

	select {
	case <-sigCh:
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("agent server error")
		}
	}

	if err := srv.Shutdown(); err != nil {
		logger.Error().Err(err).Msg("agent server shutdown error")
	}
	logger.Info().Msg("intel-agent stopped")
}

func buildProvider(cfg *config.Config) (llm.Provider, error) {
	switch cfg.LLMProvider {
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, errors.New("OPENAI_API_KEY is required when LLM_PROVIDER=openai")
		}
		return llm.NewOpenAIProvider("", cfg.OpenAIAPIKey, cfg.LLMModel, slog.Default()), nil
	case "anthropic", "":
		if cfg.AnthropicAPIKey == "" {
			return nil, errors.New("ANTHROPIC_API_KEY is required when LLM_PROVIDER=anthropic")
		}
		var opts []llm.AnthropicOption
		if cfg.LLMModel != "" {
			opts = append(opts, llm.WithModel(cfg.LLMModel))
		}
		return llm.NewAnthropicProvider(cfg.AnthropicAPIKey, opts...), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.LLMProvider)
	}
}
