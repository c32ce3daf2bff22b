package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/p-blackswan/repo-intel/internal/agentcall"
	"github.com/p-blackswan/repo-intel/internal/analysis"
	"github.com/p-blackswan/repo-intel/internal/config"
	ghclient "github.com/p-blackswan/repo-intel/internal/github"
	"github.com/p-blackswan/repo-intel/internal/githubauth"
	"github.com/p-blackswan/repo-intel/internal/health"
	"github.com/p-blackswan/repo-intel/internal/metrics"
	"github.com/p-blackswan/repo-intel/internal/orchestrator"
	"github.com/p-blackswan/repo-intel/internal/secrets"
	"github.com/p-blackswan/repo-intel/internal/server"
	"github.com/p-blackswan/repo-intel/internal/workflow"
	"github.com/p-blackswan/repo-intel/pkg/tokenstore"
	"github.com/p-blackswan/repo-intel/ttlcache"
)

func main() {
	workflowPath := flag.String("workflow", "", "run a workflow YAML file and exit")
	flag.Parse()

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
		Str("listen_addr", cfg.ListenAddr).
		Str("agent_runtime", cfg.AgentRuntimeURL).
		Msg("starting repo-intel")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// GitHub token: App installation token first, env PAT as fallback.
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
	tokenProvider := secrets.NewProvider(logger, sources...)

	token, err := tokenProvider.Token(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("no GitHub token available, using unauthenticated client")
	}

	client := ghclient.NewClient(ctx, token)
	tracker := ghclient.NewRateLimitTracker(client, cfg.RateLimitWindow, logger)
	repoChecker := ghclient.NewChecker(client, tracker, logger)

	// Agent runtimes
	registry := agentcall.NewRegistry()
	registry.Register(cfg.AnalysisAgent, agentcall.NewHTTPRuntime(cfg.AgentRuntimeURL, nil))
	coordinator := agentcall.NewCoordinator(registry, cfg.AgentTimeout, logger)

	m := metrics.New()
	cache := ttlcache.New[string, *analysis.Result](cfg.CacheTTL)
	svc := orchestrator.New(repoChecker, coordinator, cache, cfg.AnalysisAgent, m, logger)
	engine := workflow.NewEngine(coordinator, cfg.WorkflowTimeout, logger)

	// One-shot workflow mode
	if *workflowPath != "" {
		runWorkflowFile(ctx, engine, *workflowPath, logger)
		return
	}

	// Health checks
	checker := health.NewChecker(logger)
	checker.Register("github", func(ctx context.Context) health.Status {
		if limited, _ := tracker.IsLimitedCached(); limited {
			return health.StatusDegraded
		}
		return health.StatusOK
	})
	checker.Register("agent", agentHealthCheck(cfg.AgentRuntimeURL))

	// Keep the health snapshot fresh so probe and detail handlers read
	// from cache instead of hitting integrations on every request.
	go func() {
		checker.RunAll(ctx)
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				checker.RunAll(ctx)
			}
		}
	}()

	handlers := server.NewHandlers(svc, engine, coordinator, checker, m, cfg.AnalysisAgent, logger)
	apiServer := server.New(server.Config{
		ListenAddr: cfg.ListenAddr,
		AuthConfig: server.AuthConfig{
			Mode:   cfg.APIAuthMode,
			APIKey: cfg.APIKey,
		},
		RateLimit: server.RateLimitConfig{
			RPS:   cfg.RateLimitRPS,
			Burst: cfg.RateLimitBurst,
		},
		CORSOrigins: cfg.CORSOrigins,
	}, handlers, logger)

	// Metrics listener
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", m.Handler())
	metricsServer := &http.Server{
		Addr:         cfg.MetricsAddr,
		Handler:      metricsMux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info().Str("addr", cfg.MetricsAddr).Msg("metrics server starting")
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("metrics server error")
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := apiServer.Start(); err != nil {
			logger.Error().Err(err).Msg("API server error")
		}
	}()

	<-sigCh
	logger.Info().Msg("shutdown signal received")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(); err != nil {
		logger.Error().Err(err).Msg("API server shutdown error")
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("metrics server shutdown error")
	}

	wg.Wait()
	logger.Info().Msg("repo-intel stopped")
}

// runWorkflowFile loads a workflow definition, executes it, and prints the
// aggregated result to stdout.
func runWorkflowFile(ctx context.Context, engine *workflow.Engine, path string, logger zerolog.Logger) {
	def, err := workflow.LoadDefinition(path)
	if err != nil {
		logger.Fatal().Err(err).Str("path", path).Msg("failed to load workflow")
	}

	logger.Info().Str("workflow", def.Name).Str("type", def.WorkflowType).
		Int("task_count", len(def.Tasks)).Msg("running workflow")

	res, err := engine.Execute(ctx, def.WorkflowType, def.Tasks)
	if err != nil {
		logger.Fatal().Err(err).Str("workflow", def.Name).Msg("workflow failed")
	}

	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to marshal workflow result")
	}
	os.Stdout.Write(out)
	os.Stdout.Write([]byte("\n"))
}

// agentHealthCheck probes the agent runtime's liveness endpoint.
func agentHealthCheck(baseURL string) health.CheckFunc {
	client := &http.Client{Timeout: 3 * time.Second}
	return func(ctx context.Context) health.Status {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/healthz", nil)
		if err != nil {
			return health.StatusDown
		}
		resp, err := client.Do(req)
		if err != nil {
			return health.StatusDown
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return health.StatusDown
		}
		return health.StatusOK
	}
}
