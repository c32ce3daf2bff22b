// Package metrics provides Prometheus metrics for repo-intel.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	AnalysesTotal    *prometheus.CounterVec
	AnalysisDuration prometheus.Histogram
	CacheEvents      *prometheus.CounterVec
	FallbacksTotal   prometheus.Counter
	AgentCallsTotal  *prometheus.CounterVec
	WorkflowsTotal   *prometheus.CounterVec
	ErrorsTotal      *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates and registers all metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		AnalysesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "repointel_analyses_total",
				Help: "Total repository analyses by outcome.",
			},
			[]string{"outcome"},
		),
		AnalysisDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "repointel_analysis_duration_seconds",
				Help:    "End-to-end analysis duration including agent invocation.",
				Buckets: prometheus.DefBuckets,
			},
		),
		CacheEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "repointel_cache_events_total",
				Help: "Analysis cache hits and misses.",
			},
			[]string{"event"},
		),
		FallbacksTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "repointel_fallbacks_total",
				Help: "Analyses that fell back to the raw-text response.",
			},
		),
		AgentCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "repointel_agent_calls_total",
				Help: "Agent invocations by agent and status.",
			},
			[]string{"agent", "status"},
		),
		WorkflowsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "repointel_workflows_total",
				Help: "Workflow executions by type and status.",
			},
			[]string{"type", "status"},
		),
		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "repointel_errors_total",
				Help: "Total errors by module and code.",
			},
			[]string{"module", "code"},
		),
		registry: reg,
	}

	reg.MustRegister(m.AnalysesTotal)
	reg.MustRegister(m.AnalysisDuration)
	reg.MustRegister(m.CacheEvents)
	reg.MustRegister(m.FallbacksTotal)
	reg.MustRegister(m.AgentCallsTotal)
	reg.MustRegister(m.WorkflowsTotal)
	reg.MustRegister(m.ErrorsTotal)

	return m
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordAnalysis increments the analysis counter.
func (m *Metrics) RecordAnalysis(outcome string) {
	m.AnalysesTotal.WithLabelValues(outcome).Inc()
}

// ObserveAnalysisDuration records an end-to-end analysis duration.
func (m *Metrics) ObserveAnalysisDuration(seconds float64) {
	m.AnalysisDuration.Observe(seconds)
}

// RecordCacheEvent increments the cache hit/miss counter.
func (m *Metrics) RecordCacheEvent(event string) {
	m.CacheEvents.WithLabelValues(event).Inc()
}

// RecordFallback increments the fallback counter.
func (m *Metrics) RecordFallback() {
	m.FallbacksTotal.Inc()
}

// RecordAgentCall increments the agent invocation counter.
func (m *Metrics) RecordAgentCall(agent, status string) {
	m.AgentCallsTotal.WithLabelValues(agent, status).Inc()
}

// RecordWorkflow increments the workflow counter.
func (m *Metrics) RecordWorkflow(workflowType, status string) {
	m.WorkflowsTotal.WithLabelValues(workflowType, status).Inc()
}

// RecordError increments the error counter.
func (m *Metrics) RecordError(module, code string) {
	m.ErrorsTotal.WithLabelValues(module, code).Inc()
}
