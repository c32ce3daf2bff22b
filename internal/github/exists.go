package github

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	gh "github.com/google/go-github/v60/github"
	"github.com/rs/zerolog"

	errs "github.com/p-blackswan/repo-intel/internal/errors"
)

// Checker probes the repository host for repository existence, gated by the
// rate-limit tracker.
type Checker struct {
	client  *gh.Client
	tracker *RateLimitTracker
	logger  zerolog.Logger
}

// NewChecker creates a Checker. The tracker is consulted before every probe
// and fed the rate-limit state of every response.
func NewChecker(client *gh.Client, tracker *RateLimitTracker, logger zerolog.Logger) *Checker {
	return &Checker{
		client:  client,
		tracker: tracker,
		logger:  logger.With().Str("component", "github_checker").Logger(),
	}
}

// RepositoryExists reports whether owner/repo exists and is accessible.
// When the tracker says the API is limited, it fails fast without issuing
// the network call. A 403 without rate-limit wording is reported as "not
// accessible" (false, no error), same as 404, so private repositories stay
// indistinguishable from nonexistent ones.
func (c *Checker) RepositoryExists(ctx context.Context, owner, repo string) (bool, error) {
	info := c.tracker.Info(ctx)
	if info.IsLimited {
		return false, &errs.RateLimitError{Reset: info.ResetTime}
	}

	_, resp, err := c.client.Repositories.Get(ctx, owner, repo)
	c.tracker.UpdateFromResponse(resp)

	if err == nil {
		c.logger.Debug().Str("owner", owner).Str("repo", repo).Msg("repository exists")
		return true, nil
	}

	var rateErr *gh.RateLimitError
	if errors.As(err, &rateErr) {
		reset := rateErr.Rate.Reset.Time
		return false, &errs.RateLimitError{Reset: &reset}
	}
	var abuseErr *gh.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return false, &errs.RateLimitError{}
	}

	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		switch status := ghErr.Response.StatusCode; {
		case status == 404:
			c.logger.Debug().Str("owner", owner).Str("repo", repo).Msg("repository not found or private")
			return false, nil
		case status == 403 && strings.Contains(strings.ToLower(ghErr.Message), "rate limit"):
			return false, &errs.RateLimitError{}
		case status == 403:
			c.logger.Warn().Str("owner", owner).Str("repo", repo).Msg("access forbidden, treating as not accessible")
			return false, nil
		default:
			c.logger.Error().Int("status", status).Str("message", ghErr.Message).Msg("github api error")
			return false, errs.NewAPIError("github", status, ghErr.Message)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return false, fmt.Errorf("checking %s/%s: %w", owner, repo, errs.ErrNetworkTimeout)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return false, fmt.Errorf("checking %s/%s: %w", owner, repo, errs.ErrNetworkTimeout)
		}
		return false, fmt.Errorf("checking %s/%s: %v: %w", owner, repo, urlErr, errs.ErrConnection)
	}

	return false, fmt.Errorf("checking %s/%s: %v: %w", owner, repo, err, errs.ErrConnection)
}
