package server

import (
	"encoding/json"

	"github.com/p-blackswan/repo-intel/internal/analysis"
	"github.com/p-blackswan/repo-intel/internal/workflow"
)

// ProblemDetail is an RFC 7807 problem response.
type ProblemDetail struct {
	Type      string `json:"type"`
	Title     string `json:"title"`
	Status    int    `json:"status"`
	Detail    string `json:"detail"`
	Instance  string `json:"instance,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// AnalyzeRequest is the body of POST /api/v1/projects/analyze.
type AnalyzeRequest struct {
	RepositoryURL string `json:"repository_url"`
}

// AnalysisMetadata describes how the analysis was produced.
type AnalysisMetadata struct {
	RequestID        string `json:"request_id"`
	AgentName        string `json:"agent_name"`
	ProcessingTimeMs int64  `json:"processing_time_ms"`
	Timestamp        string `json:"timestamp"`
	Cached           bool   `json:"cached"`
}

// ProjectAnalysis is the API-facing analysis shape. The agent's tech_stack
// is surfaced as technologies.
type ProjectAnalysis struct {
	Summary            string              `json:"summary"`
	Technologies       []analysis.TechItem `json:"technologies"`
	Tags               []analysis.TagItem  `json:"tags"`
	KeyFeatures        []string            `json:"key_features"`
	ConfidenceScore    float64             `json:"confidence_score"`
	RepositoryMetadata analysis.Metadata   `json:"repository_metadata"`
	Metadata           AnalysisMetadata    `json:"metadata"`
}

// AnalysisResponse wraps a completed analysis.
type AnalysisResponse struct {
	Success   bool             `json:"success"`
	Data      *ProjectAnalysis `json:"data,omitempty"`
	Warning   string           `json:"warning,omitempty"`
	RequestID string           `json:"request_id"`
}

// CacheInvalidateResponse reports a cache invalidation.
type CacheInvalidateResponse struct {
	Invalidated bool   `json:"invalidated"`
	RequestID   string `json:"request_id"`
}

// WorkflowRequest is the body of POST /api/v1/workflows/execute.
type WorkflowRequest struct {
	WorkflowType string          `json:"workflow_type"`
	Tasks        []workflow.Task `json:"tasks"`
}

// WorkflowResponse wraps a completed workflow run.
type WorkflowResponse struct {
	Success        bool                       `json:"success"`
	Results        map[string]json.RawMessage `json:"results"`
	ExecutionOrder []string                   `json:"execution_order"`
	TotalTimeMs    int64                      `json:"total_time_ms"`
	RequestID      string                     `json:"request_id"`
}

// AgentListResponse lists the registered agents.
type AgentListResponse struct {
	Agents []string `json:"agents"`
}

// HealthDetailResponse is the detailed health report.
type HealthDetailResponse struct {
	Status        string            `json:"status"`
	Integrations  map[string]string `json:"integrations"`
	Agents        []string          `json:"agents"`
	AnalysisAgent string            `json:"analysis_agent"`
	Uptime        string            `json:"uptime"`
	Version       string            `json:"version"`
}
