package agentcall

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/p-blackswan/repo-intel/internal/errors"
)

type funcRuntime func(ctx context.Context, sessionID string, payload []byte) ([]byte, error)

func (f funcRuntime) Invoke(ctx context.Context, sessionID string, payload []byte) ([]byte, error) {
	return f(ctx, sessionID, payload)
}

func newTestCoordinator(t *testing.T, name string, rt Runtime, timeout time.Duration) *Coordinator {
	t.Helper()
	reg := NewRegistry()
	reg.Register(name, rt)
	return NewCoordinator(reg, timeout, zerolog.Nop())
}

func TestNewSessionID_Length(t *testing.T) {
	id := newSessionID()
	assert.GreaterOrEqual(t, len(id), 33)
	assert.Contains(t, id, "session-")
	assert.NotEqual(t, id, newSessionID())
}

func TestInvokeAgent_Success(t *testing.T) {
	var gotSession string
	var gotPayload []byte
	rt := funcRuntime(func(_ context.Context, sessionID string, payload []byte) ([]byte, error) {
		gotSession = sessionID
		gotPayload = payload
		return []byte(`{"status":"completed"}`), nil
	})
	c := newTestCoordinator(t, "project_intelligence", rt, time.Second)

	reply, err := c.InvokeAgent(context.Background(), "project_intelligence",
		map[string]string{"repository_url": "https://github.com/octo/hello"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"completed"}`, string(reply))
	assert.GreaterOrEqual(t, len(gotSession), 33)
	assert.Contains(t, string(gotPayload), "repository_url")
}

func TestInvokeAgent_UnknownAgent(t *testing.T) {
	c := NewCoordinator(NewRegistry(), time.Second, zerolog.Nop())
	_, err := c.InvokeAgent(context.Background(), "nope", nil)
	assert.ErrorIs(t, err, errs.ErrUnknownAgent)
}

func TestInvokeAgent_Timeout(t *testing.T) {
	rt := funcRuntime(func(ctx context.Context, _ string, _ []byte) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	c := newTestCoordinator(t, "slow", rt, 20*time.Millisecond)

	_, err := c.InvokeAgent(context.Background(), "slow", nil)
	assert.ErrorIs(t, err, errs.ErrAgentTimeout)
}

func TestInvokeAgent_LateReturnCaughtByWallClock(t *testing.T) {
	// Runtime ignores the context and returns a good reply late.
	rt := funcRuntime(func(_ context.Context, _ string, _ []byte) ([]byte, error) {
		time.Sleep(30 * time.Millisecond)
		return []byte(`{"status":"completed"}`), nil
	})
	c := newTestCoordinator(t, "lagging", rt, 5*time.Millisecond)

	_, err := c.InvokeAgent(context.Background(), "lagging", nil)
	assert.ErrorIs(t, err, errs.ErrAgentTimeout)
}

func TestInvokeAgent_InvalidReply(t *testing.T) {
	for _, raw := range []string{"not json", `"a string"`, `[1,2]`} {
		rt := funcRuntime(func(context.Context, string, []byte) ([]byte, error) {
			return []byte(raw), nil
		})
		c := newTestCoordinator(t, "noisy", rt, time.Second)

		_, err := c.InvokeAgent(context.Background(), "noisy", nil)
		assert.ErrorIs(t, err, errs.ErrInvalidResponse, "reply %q", raw)
	}
}

func TestInvokeAgent_RuntimeFailure(t *testing.T) {
	rt := funcRuntime(func(context.Context, string, []byte) ([]byte, error) {
		return nil, fmt.Errorf("connection refused")
	})
	c := newTestCoordinator(t, "down", rt, time.Second)

	_, err := c.InvokeAgent(context.Background(), "down", nil)
	assert.ErrorIs(t, err, errs.ErrAgentInvocation)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestRegistry_List(t *testing.T) {
	reg := NewRegistry()
	reg.Register("zeta", funcRuntime(nil))
	reg.Register("alpha", funcRuntime(nil))
	assert.Equal(t, []string{"alpha", "zeta"}, reg.List())
}

func TestHTTPRuntime_Invoke(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/invocations", r.URL.Path)
		assert.GreaterOrEqual(t, len(r.Header.Get("X-Session-ID")), 33)

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "https://github.com/octo/hello", payload["repository_url"])

		fmt.Fprint(w, `{"status":"completed","analysis":{}}`)
	}))
	defer srv.Close()

	rt := NewHTTPRuntime(srv.URL, srv.Client())
	c := newTestCoordinator(t, "project_intelligence", rt, time.Second)

	reply, err := c.InvokeAgent(context.Background(), "project_intelligence",
		map[string]string{"repository_url": "https://github.com/octo/hello"})
	require.NoError(t, err)
	assert.Contains(t, string(reply), "completed")
}

func TestHTTPRuntime_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "agent crashed", http.StatusInternalServerError)
	}))
	defer srv.Close()

	rt := NewHTTPRuntime(srv.URL, srv.Client())
	_, err := rt.Invoke(context.Background(), newSessionID(), []byte(`{}`))
	var apiErr *errs.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
}
