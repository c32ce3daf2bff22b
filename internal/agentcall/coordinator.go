package agentcall

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	errs "github.com/p-blackswan/repo-intel/internal/errors"
	"github.com/p-blackswan/repo-intel/internal/requestid"
)

// Coordinator invokes registered agents with a per-call deadline and a
// generated session ID, and validates the reply shape.
type Coordinator struct {
	registry *Registry
	timeout  time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

// NewCoordinator builds a coordinator. timeout bounds each invocation.
func NewCoordinator(registry *Registry, timeout time.Duration, logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		registry: registry,
		timeout:  timeout,
		logger:   logger.With().Str("component", "agentcall").Logger(),
		now:      time.Now,
	}
}

// Agents lists the registered agent names.
func (c *Coordinator) Agents() []string {
	return c.registry.List()
}

// newSessionID generates a runtime session ID. The runtime requires at
// least 33 characters; "session-" plus a 32-char hex UUID gives 40.
func newSessionID() string {
	return "session-" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// InvokeAgent calls a named agent with the marshaled payload and returns
// the raw JSON reply. The context deadline cancels the call in flight; a
// wall-clock check catches runtimes that return late without honoring it.
func (c *Coordinator) InvokeAgent(ctx context.Context, agentName string, payload any) (json.RawMessage, error) {
	rt, err := c.registry.Lookup(agentName)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal agent payload: %w", err)
	}

	sessionID := newSessionID()
	logCtx := c.logger.With().Str("agent", agentName).Str("session_id", sessionID)
	if id, ok := requestid.From(ctx); ok {
		logCtx = logCtx.Str("request_id", id)
	}
	log := logCtx.Logger()
	log.Info().Dur("timeout", c.timeout).Msg("invoking agent")

	start := c.now()
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	reply, err := rt.Invoke(callCtx, sessionID, body)
	elapsed := c.now().Sub(start)

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			log.Error().Dur("elapsed", elapsed).Msg("agent invocation timed out")
			return nil, fmt.Errorf("%w after %s", errs.ErrAgentTimeout, c.timeout)
		}
		var apiErr *errs.APIError
		if errors.As(err, &apiErr) {
			log.Error().Int("status", apiErr.StatusCode).Msg("agent invocation failed")
			return nil, fmt.Errorf("%w: %s", errs.ErrAgentInvocation, apiErr.Message)
		}
		log.Error().Err(err).Msg("agent invocation failed")
		return nil, fmt.Errorf("%w: %v", errs.ErrAgentInvocation, err)
	}

	if elapsed > c.timeout {
		log.Error().Dur("elapsed", elapsed).Msg("agent returned after the deadline")
		return nil, fmt.Errorf("%w after %s", errs.ErrAgentTimeout, c.timeout)
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(reply, &obj); err != nil {
		log.Error().Err(err).Msg("agent reply is not a JSON object")
		return nil, errs.ErrInvalidResponse
	}

	log.Info().Int64("elapsed_ms", elapsed.Milliseconds()).Msg("agent invocation completed")
	return reply, nil
}
