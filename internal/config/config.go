// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for both the orchestration API and the
// agent runtime, loaded from environment variables.
type Config struct {
	// General
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Orchestration API
	ListenAddr     string `envconfig:"LISTEN_ADDR" default:":8080"`
	MetricsAddr    string `envconfig:"METRICS_ADDR" default:":9091"`
	APIAuthMode    string `envconfig:"API_AUTH_MODE" default:"none"` // "none" or "api-key"
	APIKey         string `envconfig:"API_KEY"`
	CORSOrigins    string `envconfig:"CORS_ORIGINS"`
	RateLimitRPS   int    `envconfig:"RATE_LIMIT_RPS" default:"100"`
	RateLimitBurst int    `envconfig:"RATE_LIMIT_BURST" default:"200"`

	// Analysis pipeline
	CacheTTL         time.Duration `envconfig:"CACHE_TTL" default:"1h"`
	AgentTimeout     time.Duration `envconfig:"AGENT_TIMEOUT" default:"25s"`
	RateLimitWindow  time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"60s"`
	AgentRuntimeURL  string        `envconfig:"AGENT_RUNTIME_URL" default:"http://localhost:8081"`
	AnalysisAgent    string        `envconfig:"ANALYSIS_AGENT" default:"project_intelligence"`
	WorkflowTimeout  time.Duration `envconfig:"WORKFLOW_TIMEOUT" default:"120s"`

	// GitHub auth. App credentials are the primary token source; the
	// personal access token is the fallback for local development.
	GitHubToken          string `envconfig:"GITHUB_TOKEN"`
	GitHubAppID          int64  `envconfig:"GITHUB_APP_ID"`
	GitHubInstallationID int64  `envconfig:"GITHUB_INSTALLATION_ID"`
	GitHubPrivateKeyPath string `envconfig:"GITHUB_PRIVATE_KEY_PATH"`

	// Agent runtime
	AgentListenAddr string `envconfig:"AGENT_LISTEN_ADDR" default:":8081"`
	MCPServerURL    string `envconfig:"MCP_SERVER_URL" default:"https://api.githubcopilot.com/mcp/"`
	MaxToolTurns    int    `envconfig:"MAX_TOOL_TURNS" default:"12"`

	// LLM provider
	LLMProvider     string `envconfig:"LLM_PROVIDER" default:"anthropic"` // "anthropic" or "openai"
	AnthropicAPIKey string `envconfig:"ANTHROPIC_API_KEY"`
	OpenAIAPIKey    string `envconfig:"OPENAI_API_KEY"`
	LLMModel        string `envconfig:"LLM_MODEL"`
}

// GitHubAppEnabled returns true if GitHub App credentials are configured.
func (c *Config) GitHubAppEnabled() bool {
	return c.GitHubAppID > 0 && c.GitHubPrivateKeyPath != ""
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}
