package server

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	errs "github.com/p-blackswan/repo-intel/internal/errors"
	"github.com/p-blackswan/repo-intel/internal/health"
	"github.com/p-blackswan/repo-intel/internal/metrics"
	"github.com/p-blackswan/repo-intel/internal/orchestrator"
	"github.com/p-blackswan/repo-intel/internal/workflow"
)

// Analyzer runs the analysis pipeline. Satisfied by *orchestrator.Service.
type Analyzer interface {
	Analyze(ctx context.Context, repoURL string) (*orchestrator.Outcome, error)
	Invalidate(repoURL string) (bool, error)
}

// WorkflowRunner executes workflows. Satisfied by *workflow.Engine.
type WorkflowRunner interface {
	Execute(ctx context.Context, workflowType string, tasks []workflow.Task) (*workflow.Result, error)
}

// AgentLister reports registered agents. Satisfied by *agentcall.Coordinator.
type AgentLister interface {
	Agents() []string
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	analyzer  Analyzer
	workflows WorkflowRunner
	agents    AgentLister
	checker   *health.Checker
	metrics   *metrics.Metrics
	agentName string
	logger    zerolog.Logger
	startTime time.Time
}

// NewHandlers creates a new Handlers instance. agentName labels analysis
// responses with the agent that produced them.
func NewHandlers(
	analyzer Analyzer,
	workflows WorkflowRunner,
	agents AgentLister,
	checker *health.Checker,
	m *metrics.Metrics,
	agentName string,
	logger zerolog.Logger,
) *Handlers {
	return &Handlers{
		analyzer:  analyzer,
		workflows: workflows,
		agents:    agents,
		checker:   checker,
		metrics:   m,
		agentName: agentName,
		logger:    logger.With().Str("component", "handlers").Logger(),
		startTime: time.Now(),
	}
}

// Analyze handles POST /api/v1/projects/analyze.
func (h *Handlers) Analyze(c *fiber.Ctx) error {
	var req AnalyzeRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			errs.CodeInvalidRequest, "Bad Request",
			"Invalid request body: "+err.Error())
	}
	if req.RepositoryURL == "" {
		return problemResponse(c, fiber.StatusBadRequest,
			errs.CodeInvalidRequest, "Bad Request",
			"repository_url is required")
	}

	out, err := h.analyzer.Analyze(c.UserContext(), req.RepositoryURL)
	if err != nil {
		return err
	}

	reqID, _ := c.Locals("request_id").(string)
	r := out.Result

	return c.JSON(AnalysisResponse{
		Success: true,
		Data: &ProjectAnalysis{
			Summary:            r.Summary,
			Technologies:       r.TechStack,
			Tags:               r.Tags,
			KeyFeatures:        r.KeyFeatures,
			ConfidenceScore:    r.ConfidenceScore,
			RepositoryMetadata: r.Metadata,
			Metadata: AnalysisMetadata{
				RequestID:        reqID,
				AgentName:        h.agentName,
				ProcessingTimeMs: out.Elapsed.Milliseconds(),
				Timestamp:        time.Now().UTC().Format(time.RFC3339),
				Cached:           out.Cached,
			},
		},
		Warning:   out.Warning,
		RequestID: reqID,
	})
}

// InvalidateCache handles DELETE /api/v1/projects/cache.
func (h *Handlers) InvalidateCache(c *fiber.Ctx) error {
	var req AnalyzeRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			errs.CodeInvalidRequest, "Bad Request",
			"Invalid request body: "+err.Error())
	}
	if req.RepositoryURL == "" {
		return problemResponse(c, fiber.StatusBadRequest,
			errs.CodeInvalidRequest, "Bad Request",
			"repository_url is required")
	}

	dropped, err := h.analyzer.Invalidate(req.RepositoryURL)
	if err != nil {
		return err
	}

	reqID, _ := c.Locals("request_id").(string)
	return c.JSON(CacheInvalidateResponse{Invalidated: dropped, RequestID: reqID})
}

// ExecuteWorkflow handles POST /api/v1/workflows/execute.
func (h *Handlers) ExecuteWorkflow(c *fiber.Ctx) error {
	var req WorkflowRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			errs.CodeInvalidRequest, "Bad Request",
			"Invalid request body: "+err.Error())
	}
	if req.WorkflowType == "" {
		return problemResponse(c, fiber.StatusBadRequest,
			errs.CodeInvalidRequest, "Bad Request",
			"workflow_type is required")
	}
	if len(req.Tasks) == 0 {
		return problemResponse(c, fiber.StatusBadRequest,
			errs.CodeInvalidRequest, "Bad Request",
			"tasks must not be empty")
	}

	reqID, _ := c.Locals("request_id").(string)
	h.logger.Info().
		Str("request_id", reqID).
		Str("workflow_type", req.WorkflowType).
		Int("task_count", len(req.Tasks)).
		Msg("executing workflow")

	res, err := h.workflows.Execute(c.UserContext(), req.WorkflowType, req.Tasks)
	if err != nil {
		h.metrics.RecordWorkflow(req.WorkflowType, "error")
		return err
	}
	h.metrics.RecordWorkflow(req.WorkflowType, "ok")

	return c.JSON(WorkflowResponse{
		Success:        true,
		Results:        res.Results,
		ExecutionOrder: res.ExecutionOrder,
		TotalTimeMs:    res.TotalTimeMs,
		RequestID:      reqID,
	})
}

// ListAgents handles GET /api/v1/agents.
func (h *Handlers) ListAgents(c *fiber.Ctx) error {
	agents := h.agents.Agents()
	if agents == nil {
		agents = []string{}
	}
	return c.JSON(AgentListResponse{Agents: agents})
}

// HealthDetail handles GET /api/v1/health. It serves the cached check
// snapshot when one exists; the background refresher in main keeps it
// current. A cold cache triggers one live run.
func (h *Handlers) HealthDetail(c *fiber.Ctx) error {
	results := h.checker.Snapshot()
	if len(results) == 0 {
		results = h.checker.RunAll(c.UserContext())
	}

	integrations := make(map[string]string, len(results))
	overall := "ok"
	for name, status := range results {
		integrations[name] = string(status)
		if status == health.StatusDown {
			overall = "degraded"
		}
	}

	uptime := time.Since(h.startTime).Round(time.Second).String()

	agents := h.agents.Agents()
	if agents == nil {
		agents = []string{}
	}

	return c.JSON(HealthDetailResponse{
		Status:        overall,
		Integrations:  integrations,
		Agents:        agents,
		AnalysisAgent: h.agentName,
		Uptime:        uptime,
		Version:       "1.0.0",
	})
}

// Liveness handles GET /healthz.
func (h *Handlers) Liveness(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Readiness handles GET /readyz.
func (h *Handlers) Readiness(c *fiber.Ctx) error {
	if !h.checker.IsReady(c.Context()) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "not_ready",
		})
	}
	return c.JSON(fiber.Map{"status": "ready"})
}
