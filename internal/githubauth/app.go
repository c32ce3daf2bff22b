// Package githubauth mints GitHub App installation tokens. It is the
// primary token source for both tiers; a personal access token from the
// environment is the fallback.
package githubauth

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/p-blackswan/repo-intel/pkg/tokenstore"
)

const (
	installationTokenKey = "github_installation_token"
	// Installation tokens last one hour; refresh at 55 minutes.
	tokenTTL = 55 * time.Minute
)

// AppSource mints installation tokens for a GitHub App, caching them in a
// token store until shortly before expiry.
type AppSource struct {
	appID          int64
	installationID int64
	privateKey     *rsa.PrivateKey
	apiBaseURL     string
	tokenStore     tokenstore.Store
	httpClient     *http.Client
	logger         zerolog.Logger
}

// NewAppSource reads the App's private key from privateKeyPath.
func NewAppSource(appID, installationID int64, privateKeyPath string, store tokenstore.Store, logger zerolog.Logger) (*AppSource, error) {
	keyData, err := os.ReadFile(privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("reading private key: %w", err)
	}
	return NewAppSourceFromKeyBytes(appID, installationID, keyData, store, logger)
}

// NewAppSourceFromKeyBytes builds a source from PEM key bytes (useful for testing).
func NewAppSourceFromKeyBytes(appID, installationID int64, keyData []byte, store tokenstore.Store, logger zerolog.Logger) (*AppSource, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM(keyData)
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}

	return &AppSource{
		appID:          appID,
		installationID: installationID,
		privateKey:     key,
		apiBaseURL:     "https://api.github.com",
		tokenStore:     store,
		httpClient:     &http.Client{Timeout: 30 * time.Second},
		logger:         logger.With().Str("component", "githubauth").Logger(),
	}, nil
}

// Name implements secrets.Source.
func (s *AppSource) Name() string { return "github-app" }

// Token returns a cached or freshly minted installation token.
func (s *AppSource) Token(ctx context.Context) (string, error) {
	if tok, err := s.tokenStore.Get(ctx, installationTokenKey); err == nil {
		s.logger.Debug().Msg("using cached installation token")
		return tok.Value, nil
	}

	s.logger.Info().Msg("minting new installation token")
	signed, err := s.signJWT()
	if err != nil {
		return "", fmt.Errorf("signing app JWT: %w", err)
	}

	url := fmt.Sprintf("%s/app/installations/%d/access_tokens", s.apiBaseURL, s.installationID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+signed)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("requesting installation token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("installation token request failed (status %d): %s", resp.StatusCode, body)
	}

	var tokenResp struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("decoding token response: %w", err)
	}

	if err := s.tokenStore.Set(ctx, installationTokenKey, tokenResp.Token, tokenTTL); err != nil {
		s.logger.Warn().Err(err).Msg("failed to cache installation token")
	}

	return tokenResp.Token, nil
}

func (s *AppSource) signJWT() (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now.Add(-60 * time.Second)),
		ExpiresAt: jwt.NewNumericDate(now.Add(10 * time.Minute)),
		Issuer:    fmt.Sprintf("%d", s.appID),
	}
	return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(s.privateKey)
}
