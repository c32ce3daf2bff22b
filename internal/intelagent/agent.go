// Package intelagent implements the repository analysis agent: it drives
// an LLM through GitHub tools and normalizes the model's answer into the
// analysis schema.
package intelagent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/p-blackswan/repo-intel/internal/analysis"
	"github.com/p-blackswan/repo-intel/internal/llm"
	"github.com/p-blackswan/repo-intel/internal/mcptools"
)

// Reply statuses.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// defaultMaxToolTurns bounds the model's tool loop for a single analysis.
const defaultMaxToolTurns = 12

// Payload is the invocation input.
type Payload struct {
	RepositoryURL string         `json:"repository_url"`
	RequestID     string         `json:"request_id,omitempty"`
	Options       map[string]any `json:"options,omitempty"`
}

// Reply is the invocation envelope returned to the caller.
type Reply struct {
	RequestID        string           `json:"request_id"`
	Status           string           `json:"status"`
	Analysis         *analysis.Result `json:"analysis,omitempty"`
	ProcessingTimeMs int64            `json:"processing_time_ms,omitempty"`
	Warning          string           `json:"warning,omitempty"`
	Error            string           `json:"error,omitempty"`
}

// Agent couples an LLM provider with a tool broker.
type Agent struct {
	provider     llm.Provider
	broker       mcptools.Broker
	maxToolTurns int
	logger       zerolog.Logger
	now          func() time.Time
}

// Option configures the agent.
type Option func(*Agent)

func WithMaxToolTurns(n int) Option {
	return func(a *Agent) { a.maxToolTurns = n }
}

// New builds an analysis agent.
func New(provider llm.Provider, broker mcptools.Broker, logger zerolog.Logger, opts ...Option) *Agent {
	a := &Agent{
		provider:     provider,
		broker:       broker,
		maxToolTurns: defaultMaxToolTurns,
		logger:       logger.With().Str("component", "intelagent").Logger(),
		now:          time.Now,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Analyze runs one repository analysis. Failures are reported inside the
// Reply so the caller always gets a well-formed envelope.
func (a *Agent) Analyze(ctx context.Context, p Payload) Reply {
	requestID := p.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}
	start := a.now()

	log := a.logger.With().Str("request_id", requestID).Logger()
	log.Info().Str("repository_url", p.RepositoryURL).Msg("analysis started")

	if p.RepositoryURL == "" {
		log.Error().Msg("missing repository_url")
		return Reply{RequestID: requestID, Status: StatusFailed, Error: "repository_url is required in payload"}
	}

	owner, repo, err := splitRepoURL(p.RepositoryURL)
	if err != nil {
		log.Error().Err(err).Msg("bad repository url")
		return Reply{RequestID: requestID, Status: StatusFailed, Error: err.Error()}
	}

	text, err := a.runToolLoop(ctx, analysisPrompt(owner, repo, p.RepositoryURL), log)
	if err != nil {
		log.Error().Err(err).Msg("agent run failed")
		return Reply{RequestID: requestID, Status: StatusFailed, Error: fmt.Sprintf("agent run failed: %v", err)}
	}

	elapsed := a.now().Sub(start).Milliseconds()

	result, err := analysis.ExtractText(text)
	if err != nil {
		log.Warn().Err(err).Msg("model reply was not parseable JSON, using fallback")
		fb := analysis.Fallback(owner, repo, text)
		return Reply{
			RequestID:        requestID,
			Status:           StatusCompleted,
			Analysis:         fb,
			ProcessingTimeMs: elapsed,
			Warning:          "Response was not in expected JSON format",
		}
	}
	result.Normalize()

	log.Info().
		Int64("duration_ms", elapsed).
		Int("tech_stack_count", len(result.TechStack)).
		Float64("confidence_score", result.ConfidenceScore).
		Msg("analysis completed")

	return Reply{
		RequestID:        requestID,
		Status:           StatusCompleted,
		Analysis:         result,
		ProcessingTimeMs: elapsed,
	}
}

// runToolLoop alternates model turns and tool calls until the model stops
// asking for tools or the turn budget runs out.
func (a *Agent) runToolLoop(ctx context.Context, prompt string, log zerolog.Logger) (string, error) {
	tools, err := a.broker.Tools(ctx)
	if err != nil {
		return "", fmt.Errorf("loading tools: %w", err)
	}
	schemas := make([]llm.ToolSchema, 0, len(tools))
	for _, t := range tools {
		schemas = append(schemas, llm.ToolSchema{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema,
		})
	}
	log.Info().Int("tool_count", len(schemas)).Msg("tools loaded")

	msgs := []llm.Message{{Role: llm.RoleUser, Content: prompt}}
	for turn := 0; turn < a.maxToolTurns; turn++ {
		resp, err := a.provider.Complete(ctx, llm.CompletionRequest{
			Messages: msgs,
			Tools:    schemas,
		})
		if err != nil {
			return "", fmt.Errorf("model turn %d: %w", turn, err)
		}
		if resp.ToolUse == nil {
			return resp.Text, nil
		}

		use := resp.ToolUse
		log.Debug().Str("tool", use.Name).Msg("tool call requested")
		msgs = append(msgs, llm.ToolUseMessage(resp.Text, use))

		out, err := a.broker.Call(ctx, use.Name, use.Input)
		if err != nil {
			log.Warn().Err(err).Str("tool", use.Name).Msg("tool call failed")
			msgs = append(msgs, llm.ToolResultMessage(use.ID, err.Error(), true))
			continue
		}
		msgs = append(msgs, llm.ToolResultMessage(use.ID, out, false))
	}

	return "", fmt.Errorf("tool budget exhausted after %d turns", a.maxToolTurns)
}

// splitRepoURL takes the last two path segments as owner and repo. The
// orchestration tier validates strictly; the agent stays lenient so it can
// be invoked directly.
func splitRepoURL(repoURL string) (owner, repo string, err error) {
	parts := strings.Split(strings.TrimRight(repoURL, "/"), "/")
	if len(parts) < 2 || parts[len(parts)-1] == "" || parts[len(parts)-2] == "" {
		return "", "", fmt.Errorf("invalid GitHub URL format, expected https://github.com/owner/repo")
	}
	return parts[len(parts)-2], parts[len(parts)-1], nil
}
