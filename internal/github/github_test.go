package github

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	gh "github.com/google/go-github/v60/github"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/p-blackswan/repo-intel/internal/errors"
)

func testClient(t *testing.T, srv *httptest.Server) *gh.Client {
	t.Helper()
	c := gh.NewClient(srv.Client())
	base, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	c.BaseURL = base
	return c
}

func rateLimitJSON(remaining int, reset time.Time) string {
	return fmt.Sprintf(
		`{"resources":{"core":{"limit":5000,"remaining":%d,"reset":%d}}}`,
		remaining, reset.Unix())
}

func TestTracker_CachesWithinWindow(t *testing.T) {
	var probes atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/rate_limit", r.URL.Path)
		probes.Add(1)
		fmt.Fprint(w, rateLimitJSON(4999, time.Now().Add(time.Hour)))
	}))
	defer srv.Close()

	tracker := NewRateLimitTracker(testClient(t, srv), time.Minute, zerolog.Nop())

	info := tracker.Info(context.Background())
	assert.False(t, info.IsLimited)
	assert.Equal(t, 4999, info.Remaining)

	tracker.Info(context.Background())
	assert.Equal(t, int32(1), probes.Load(), "second call within window must not re-probe")

	limited, _ := tracker.IsLimitedCached()
	assert.False(t, limited)
}

func TestTracker_LimitedUntilWindowExpires(t *testing.T) {
	reset := time.Now().Add(30 * time.Minute).Truncate(time.Second)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, rateLimitJSON(0, reset))
	}))
	defer srv.Close()

	tracker := NewRateLimitTracker(testClient(t, srv), time.Minute, zerolog.Nop())
	base := time.Now()
	tracker.now = func() time.Time { return base }

	info := tracker.Info(context.Background())
	require.True(t, info.IsLimited)

	limited, resetTime := tracker.IsLimitedCached()
	assert.True(t, limited)
	require.NotNil(t, resetTime)
	assert.Equal(t, reset.Unix(), resetTime.Unix())

	// Cache stale after the window: the synchronous read no longer claims limited.
	tracker.now = func() time.Time { return base.Add(61 * time.Second) }
	limited, resetTime = tracker.IsLimitedCached()
	assert.False(t, limited)
	assert.Nil(t, resetTime)
}

func TestTracker_ProbeFailureConservative(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	tracker := NewRateLimitTracker(testClient(t, srv), time.Minute, zerolog.Nop())

	info := tracker.Info(context.Background())
	assert.False(t, info.IsLimited)
	assert.Equal(t, 1000, info.Remaining)
	assert.Equal(t, 5000, info.Limit)

	// The conservative estimate is not cached as authoritative.
	limited, _ := tracker.IsLimitedCached()
	assert.False(t, limited)
}

func TestTracker_PassiveUpdateFromResponse(t *testing.T) {
	tracker := NewRateLimitTracker(gh.NewClient(nil), time.Minute, zerolog.Nop())

	// Nil and header-less responses leave the cache untouched.
	tracker.UpdateFromResponse(nil)
	tracker.UpdateFromResponse(&gh.Response{})
	limited, _ := tracker.IsLimitedCached()
	assert.False(t, limited)

	resp := &gh.Response{
		Rate: gh.Rate{
			Limit:     5000,
			Remaining: 0,
			Reset:     gh.Timestamp{Time: time.Now().Add(time.Hour)},
		},
	}
	tracker.UpdateFromResponse(resp)

	limited, reset := tracker.IsLimitedCached()
	assert.True(t, limited)
	assert.NotNil(t, reset)
}

func TestChecker_Exists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rate_limit":
			fmt.Fprint(w, rateLimitJSON(4000, time.Now().Add(time.Hour)))
		case "/repos/octocat/hello-world":
			fmt.Fprint(w, `{"id":1,"name":"hello-world"}`)
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	client := testClient(t, srv)
	checker := NewChecker(client, NewRateLimitTracker(client, time.Minute, zerolog.Nop()), zerolog.Nop())

	exists, err := checker.RepositoryExists(context.Background(), "octocat", "hello-world")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestChecker_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/rate_limit" {
			fmt.Fprint(w, rateLimitJSON(4000, time.Now().Add(time.Hour)))
			return
		}
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message":"Not Found"}`)
	}))
	defer srv.Close()

	client := testClient(t, srv)
	checker := NewChecker(client, NewRateLimitTracker(client, time.Minute, zerolog.Nop()), zerolog.Nop())

	exists, err := checker.RepositoryExists(context.Background(), "octocat", "gone")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestChecker_ForbiddenWithoutRateLimitWording(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/rate_limit" {
			fmt.Fprint(w, rateLimitJSON(4000, time.Now().Add(time.Hour)))
			return
		}
		w.Header().Set("X-RateLimit-Limit", "5000")
		w.Header().Set("X-RateLimit-Remaining", "3999")
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"message":"Must have push access"}`)
	}))
	defer srv.Close()

	client := testClient(t, srv)
	checker := NewChecker(client, NewRateLimitTracker(client, time.Minute, zerolog.Nop()), zerolog.Nop())

	// Treated as not accessible, same as not found.
	exists, err := checker.RepositoryExists(context.Background(), "octocat", "private")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestChecker_ForbiddenRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/rate_limit" {
			fmt.Fprint(w, rateLimitJSON(4000, time.Now().Add(time.Hour)))
			return
		}
		w.Header().Set("X-RateLimit-Limit", "60")
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", fmt.Sprint(time.Now().Add(time.Hour).Unix()))
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"message":"API rate limit exceeded for 1.2.3.4"}`)
	}))
	defer srv.Close()

	client := testClient(t, srv)
	checker := NewChecker(client, NewRateLimitTracker(client, time.Minute, zerolog.Nop()), zerolog.Nop())

	_, err := checker.RepositoryExists(context.Background(), "octocat", "hello-world")
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrRateLimited)

	var rle *errs.RateLimitError
	require.ErrorAs(t, err, &rle)
	assert.NotNil(t, rle.Reset)
}

func TestChecker_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/rate_limit" {
			fmt.Fprint(w, rateLimitJSON(4000, time.Now().Add(time.Hour)))
			return
		}
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, `{"message":"upstream broke"}`)
	}))
	defer srv.Close()

	client := testClient(t, srv)
	checker := NewChecker(client, NewRateLimitTracker(client, time.Minute, zerolog.Nop()), zerolog.Nop())

	_, err := checker.RepositoryExists(context.Background(), "octocat", "hello-world")
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrUpstream)
}

func TestChecker_FailsFastWhenTrackerLimited(t *testing.T) {
	var repoCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/rate_limit" {
			fmt.Fprint(w, rateLimitJSON(0, time.Now().Add(time.Hour)))
			return
		}
		repoCalls.Add(1)
	}))
	defer srv.Close()

	client := testClient(t, srv)
	checker := NewChecker(client, NewRateLimitTracker(client, time.Minute, zerolog.Nop()), zerolog.Nop())

	_, err := checker.RepositoryExists(context.Background(), "octocat", "hello-world")
	require.ErrorIs(t, err, errs.ErrRateLimited)
	assert.Equal(t, int32(0), repoCalls.Load(), "existence probe must not be issued while limited")
}

func TestChecker_ConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/rate_limit" {
			fmt.Fprint(w, rateLimitJSON(4000, time.Now().Add(time.Hour)))
		}
	}))
	client := testClient(t, srv)
	tracker := NewRateLimitTracker(client, time.Minute, zerolog.Nop())
	checker := NewChecker(client, tracker, zerolog.Nop())

	// Warm the tracker, then kill the server so the probe hits a dead socket.
	tracker.Info(context.Background())
	srv.Close()

	_, err := checker.RepositoryExists(context.Background(), "octocat", "hello-world")
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrConnection)
}
