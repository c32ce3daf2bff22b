package github

import (
	"context"
	"sync"
	"time"

	gh "github.com/google/go-github/v60/github"
	"github.com/rs/zerolog"
)

// RateLimitInfo is a snapshot of the GitHub API core rate limit.
type RateLimitInfo struct {
	IsLimited bool
	ResetTime *time.Time
	Remaining int
	Limit     int
}

// RateLimitTracker caches the host's rate-limit state for a freshness
// window, refreshed either by an active probe of the rate-limit endpoint or
// passively from response headers observed on other calls. Safe for
// concurrent use.
type RateLimitTracker struct {
	mu     sync.Mutex
	client *gh.Client
	window time.Duration
	logger zerolog.Logger

	cached *RateLimitInfo
	expiry time.Time
	now    func() time.Time
}

// NewRateLimitTracker creates a tracker with the given freshness window.
func NewRateLimitTracker(client *gh.Client, window time.Duration, logger zerolog.Logger) *RateLimitTracker {
	return &RateLimitTracker{
		client: client,
		window: window,
		logger: logger.With().Str("component", "ratelimit").Logger(),
		now:    time.Now,
	}
}

// Info returns the current rate-limit state, probing the rate-limit
// endpoint when the cached state is stale. A probe failure yields a
// conservative non-limited estimate rather than an error, so transient
// probe failures never block legitimate existence checks.
func (t *RateLimitTracker) Info(ctx context.Context) RateLimitInfo {
	t.mu.Lock()
	if t.cached != nil && t.now().Before(t.expiry) {
		info := *t.cached
		t.mu.Unlock()
		return info
	}
	t.mu.Unlock()

	limits, _, err := t.client.RateLimit.Get(ctx)
	if err != nil || limits == nil || limits.Core == nil {
		t.logger.Warn().Err(err).Msg("rate limit probe failed, assuming not limited")
		return RateLimitInfo{IsLimited: false, Remaining: 1000, Limit: 5000}
	}

	core := limits.Core
	reset := core.Reset.Time
	info := RateLimitInfo{
		IsLimited: core.Remaining <= 0,
		ResetTime: &reset,
		Remaining: core.Remaining,
		Limit:     core.Limit,
	}

	t.mu.Lock()
	t.cached = &info
	t.expiry = t.now().Add(t.window)
	t.mu.Unlock()

	return info
}

// UpdateFromResponse opportunistically refreshes the cache from the
// rate-limit values go-github parsed off a response. Best-effort: a nil
// response or one with no rate headers leaves the cache untouched.
func (t *RateLimitTracker) UpdateFromResponse(resp *gh.Response) {
	if resp == nil || resp.Rate.Limit == 0 {
		return
	}

	info := RateLimitInfo{
		IsLimited: resp.Rate.Remaining <= 0,
		Remaining: resp.Rate.Remaining,
		Limit:     resp.Rate.Limit,
	}
	if info.IsLimited && !resp.Rate.Reset.Time.IsZero() {
		reset := resp.Rate.Reset.Time
		info.ResetTime = &reset
	}

	t.mu.Lock()
	t.cached = &info
	t.expiry = t.now().Add(t.window)
	t.mu.Unlock()
}

// IsLimitedCached is a synchronous, cache-only read. It returns
// (false, nil) when no fresh cache exists: a fast pre-check, not an
// authoritative "not limited".
func (t *RateLimitTracker) IsLimitedCached() (bool, *time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cached == nil || !t.now().Before(t.expiry) {
		return false, nil
	}
	return t.cached.IsLimited, t.cached.ResetTime
}
