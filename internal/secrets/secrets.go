// Package secrets resolves the GitHub token from an ordered chain of
// sources. A failing source is logged and the next one tried; only when
// every source fails does resolution error.
package secrets

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	errs "github.com/p-blackswan/repo-intel/internal/errors"
)

// Source yields a token or fails.
type Source interface {
	Name() string
	Token(ctx context.Context) (string, error)
}

// Provider tries each source in order.
type Provider struct {
	sources []Source
	logger  zerolog.Logger
}

// NewProvider creates a provider over the given sources, tried in order.
func NewProvider(logger zerolog.Logger, sources ...Source) *Provider {
	return &Provider{
		sources: sources,
		logger:  logger.With().Str("component", "secrets").Logger(),
	}
}

// Token returns the first token a source yields. Source failures before the
// last are logged at warn level, not returned.
func (p *Provider) Token(ctx context.Context) (string, error) {
	for _, src := range p.sources {
		token, err := src.Token(ctx)
		if err == nil && token != "" {
			p.logger.Debug().Str("source", src.Name()).Msg("token resolved")
			return token, nil
		}
		p.logger.Warn().Str("source", src.Name()).Err(err).Msg("token source failed, trying next")
	}
	return "", fmt.Errorf("github token: %w", errs.ErrSecretUnavailable)
}

// EnvSource reads a token from an environment variable.
type EnvSource struct {
	Var string
}

func (s *EnvSource) Name() string { return "env:" + s.Var }

func (s *EnvSource) Token(context.Context) (string, error) {
	v := os.Getenv(s.Var)
	if v == "" {
		return "", fmt.Errorf("%s is not set", s.Var)
	}
	return v, nil
}

// StaticSource yields a fixed token. Used when the token arrives via
// configuration, and in tests.
type StaticSource struct {
	SourceName string
	Value      string
}

func (s *StaticSource) Name() string { return s.SourceName }

func (s *StaticSource) Token(context.Context) (string, error) {
	if s.Value == "" {
		return "", fmt.Errorf("no token configured")
	}
	return s.Value, nil
}
