// Package config tests.
package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, ":8081", cfg.AgentListenAddr)
	assert.Equal(t, time.Hour, cfg.CacheTTL)
	assert.Equal(t, 25*time.Second, cfg.AgentTimeout)
	assert.Equal(t, 60*time.Second, cfg.RateLimitWindow)
	assert.Equal(t, "project_intelligence", cfg.AnalysisAgent)
	assert.Equal(t, "anthropic", cfg.LLMProvider)
	assert.Equal(t, "https://api.githubcopilot.com/mcp/", cfg.MCPServerURL)
	assert.Equal(t, 100, cfg.RateLimitRPS)
	assert.Equal(t, 200, cfg.RateLimitBurst)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("CACHE_TTL", "90s")
	t.Setenv("AGENT_TIMEOUT", "5s")
	t.Setenv("LISTEN_ADDR", ":9999")
	t.Setenv("GITHUB_TOKEN", "ghp_test")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, cfg.CacheTTL)
	assert.Equal(t, 5*time.Second, cfg.AgentTimeout)
	assert.Equal(t, ":9999", cfg.ListenAddr)
	assert.Equal(t, "ghp_test", cfg.GitHubToken)
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("CACHE_TTL", "not-a-duration")
	_, err := Load()
	assert.Error(t, err)
}

func TestConfig_GitHubAppEnabled(t *testing.T) {
	cfg := &Config{}
	assert.False(t, cfg.GitHubAppEnabled())

	cfg.GitHubAppID = 123
	assert.False(t, cfg.GitHubAppEnabled())

	cfg.GitHubPrivateKeyPath = "/tmp/test.pem"
	assert.True(t, cfg.GitHubAppEnabled())
}
