// Package agentcall invokes analysis agents and normalizes their failures.
package agentcall

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	errs "github.com/p-blackswan/repo-intel/internal/errors"
)

// Runtime executes a single agent invocation. The payload and reply are
// opaque JSON; the coordinator owns session IDs and timeouts.
type Runtime interface {
	Invoke(ctx context.Context, sessionID string, payload []byte) ([]byte, error)
}

// HTTPRuntime invokes an agent tier over HTTP. The agent listens on
// POST /invocations and echoes a JSON envelope.
type HTTPRuntime struct {
	baseURL string
	client  *http.Client
}

// NewHTTPRuntime points at an agent tier base URL, e.g. "http://agent:8081".
func NewHTTPRuntime(baseURL string, client *http.Client) *HTTPRuntime {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &HTTPRuntime{baseURL: baseURL, client: client}
}

func (r *HTTPRuntime) Invoke(ctx context.Context, sessionID string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		r.baseURL+"/invocations", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating invocation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Session-ID", sessionID)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading invocation response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errs.NewAPIError("agent", resp.StatusCode, string(truncateBody(body)))
	}
	return body, nil
}

func truncateBody(b []byte) []byte {
	const max = 512
	if len(b) > max {
		return b[:max]
	}
	return b
}

// Registry maps agent names to runtimes.
type Registry struct {
	mu       sync.RWMutex
	runtimes map[string]Runtime
}

func NewRegistry() *Registry {
	return &Registry{runtimes: make(map[string]Runtime)}
}

// Register adds or replaces a named agent.
func (r *Registry) Register(name string, rt Runtime) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runtimes[name] = rt
}

// Lookup resolves a named agent.
func (r *Registry) Lookup(name string) (Runtime, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rt, ok := r.runtimes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errs.ErrUnknownAgent, name)
	}
	return rt, nil
}

// List returns registered agent names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.runtimes))
	for name := range r.runtimes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
