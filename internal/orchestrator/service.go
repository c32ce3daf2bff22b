// Package orchestrator runs the end-to-end repository analysis pipeline:
// validate, check accessibility, consult the cache, invoke the agent, and
// normalize whatever comes back.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/p-blackswan/repo-intel/internal/analysis"
	errs "github.com/p-blackswan/repo-intel/internal/errors"
	"github.com/p-blackswan/repo-intel/internal/github"
	"github.com/p-blackswan/repo-intel/internal/metrics"
	"github.com/p-blackswan/repo-intel/internal/requestid"
	"github.com/p-blackswan/repo-intel/ttlcache"
)

// RepoChecker reports whether a repository is accessible. Satisfied by
// *github.Checker.
type RepoChecker interface {
	RepositoryExists(ctx context.Context, owner, repo string) (bool, error)
}

// AgentInvoker calls a named agent. Satisfied by *agentcall.Coordinator.
type AgentInvoker interface {
	InvokeAgent(ctx context.Context, agentName string, payload any) (json.RawMessage, error)
}

// Outcome is the result of one analysis run.
type Outcome struct {
	Result  *analysis.Result
	Warning string
	Cached  bool
	Elapsed time.Duration
}

// Service wires the analysis pipeline together.
type Service struct {
	checker   RepoChecker
	invoker   AgentInvoker
	cache     *ttlcache.Cache[string, *analysis.Result]
	agentName string
	metrics   *metrics.Metrics
	logger    zerolog.Logger
	now       func() time.Time
}

// New builds the orchestration service. The cache is injected so its
// lifetime and TTL are owned by the caller.
func New(
	checker RepoChecker,
	invoker AgentInvoker,
	cache *ttlcache.Cache[string, *analysis.Result],
	agentName string,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Service {
	return &Service{
		checker:   checker,
		invoker:   invoker,
		cache:     cache,
		agentName: agentName,
		metrics:   m,
		logger:    logger.With().Str("component", "orchestrator").Logger(),
		now:       time.Now,
	}
}

// agentEnvelope is the reply shape the agent tier produces.
type agentEnvelope struct {
	RequestID        string          `json:"request_id"`
	Status           string          `json:"status"`
	Analysis         json.RawMessage `json:"analysis"`
	ProcessingTimeMs int64           `json:"processing_time_ms"`
	Warning          string          `json:"warning"`
	Error            string          `json:"error"`
}

// Analyze validates the URL, confirms the repository is reachable, and
// returns a structured analysis, serving repeats from the cache.
func (s *Service) Analyze(ctx context.Context, repoURL string) (*Outcome, error) {
	start := s.now()

	vr := github.ValidateURL(repoURL)
	if !vr.IsValid {
		s.metrics.RecordAnalysis("rejected")
		s.metrics.RecordError("orchestrator", errs.Code(vr.Err))
		return nil, fmt.Errorf("%w: %s", vr.Err, vr.ErrorMessage)
	}

	logCtx := s.logger.With().Str("owner", vr.Owner).Str("repo", vr.Repo)
	reqID, hasReqID := requestid.From(ctx)
	if hasReqID {
		logCtx = logCtx.Str("request_id", reqID)
	}
	log := logCtx.Logger()

	exists, err := s.checker.RepositoryExists(ctx, vr.Owner, vr.Repo)
	if err != nil {
		s.metrics.RecordAnalysis("failed")
		s.metrics.RecordError("orchestrator", errs.Code(err))
		return nil, err
	}
	if !exists {
		s.metrics.RecordAnalysis("not_found")
		return nil, fmt.Errorf("%w: %s", errs.ErrRepoNotFound, repoURL)
	}

	cacheKey := vr.Owner + "/" + vr.Repo
	if cached, ok := s.cache.Get(cacheKey); ok {
		log.Info().Msg("returning cached analysis")
		s.metrics.RecordCacheEvent("hit")
		s.metrics.RecordAnalysis("cached")
		return &Outcome{Result: cached, Cached: true, Elapsed: s.now().Sub(start)}, nil
	}
	s.metrics.RecordCacheEvent("miss")

	payload := map[string]string{"repository_url": repoURL}
	if hasReqID {
		payload["request_id"] = reqID
	}
	raw, err := s.invoker.InvokeAgent(ctx, s.agentName, payload)
	if err != nil {
		s.metrics.RecordAnalysis("failed")
		s.metrics.RecordAgentCall(s.agentName, "error")
		s.metrics.RecordError("orchestrator", errs.Code(err))
		return nil, err
	}
	s.metrics.RecordAgentCall(s.agentName, "ok")

	var env agentEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		s.metrics.RecordAnalysis("failed")
		return nil, errs.ErrInvalidResponse
	}
	if env.Status == "failed" {
		s.metrics.RecordAnalysis("failed")
		return nil, fmt.Errorf("%w: %s", errs.ErrAgentInvocation, env.Error)
	}

	outcome := &Outcome{Warning: env.Warning}

	result, err := analysis.ExtractRaw(env.Analysis)
	if err != nil {
		log.Warn().Err(err).Msg("agent analysis was not parseable, using fallback")
		s.metrics.RecordFallback()
		rawText := string(env.Analysis)
		var str string
		if json.Unmarshal(env.Analysis, &str) == nil {
			rawText = str
		}
		result = analysis.Fallback(vr.Owner, vr.Repo, rawText)
		outcome.Warning = "Response was not in expected JSON format"
	}
	result.Normalize()
	outcome.Result = result

	s.cache.Set(cacheKey, result)

	elapsed := s.now().Sub(start)
	outcome.Elapsed = elapsed
	s.metrics.RecordAnalysis("completed")
	s.metrics.ObserveAnalysisDuration(elapsed.Seconds())

	log.Info().
		Int64("elapsed_ms", elapsed.Milliseconds()).
		Float64("confidence_score", result.ConfidenceScore).
		Msg("analysis completed")

	return outcome, nil
}

// Invalidate drops a cached analysis. Returns true when an entry existed.
func (s *Service) Invalidate(repoURL string) (bool, error) {
	vr := github.ValidateURL(repoURL)
	if !vr.IsValid {
		return false, fmt.Errorf("%w: %s", vr.Err, vr.ErrorMessage)
	}
	return s.cache.Invalidate(vr.Owner + "/" + vr.Repo), nil
}
