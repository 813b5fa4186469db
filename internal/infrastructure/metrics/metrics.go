package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics owns the process registry and the scheduler's domain counters.
// A nil *Metrics is safe to record against, so components that run without
// metrics enabled need no branching.
type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	GenerationRuns  *prometheus.CounterVec
	GenerationSkips *prometheus.CounterVec
	TasksGenerated  prometheus.Counter
	GoalsReset      prometheus.Counter
}

// New builds and registers all collectors on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		Registry: registry,
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		GenerationRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "generation_runs_total",
				Help: "Generation pass outcomes by entity kind and status",
			},
			[]string{"kind", "status"},
		),
		GenerationSkips: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "generation_skips_total",
				Help: "Generation skips by reason code",
			},
			[]string{"reason"},
		),
		TasksGenerated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "tasks_generated_total",
				Help: "Tasks created by the recurring generation pipeline",
			},
		),
		GoalsReset: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "daily_goal_resets_total",
				Help: "Daily goal reset passes that actually ran",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.GenerationRuns,
		m.GenerationSkips,
		m.TasksGenerated,
		m.GoalsReset,
	)

	return m
}

// RecordRun counts one generation pass outcome.
func (m *Metrics) RecordRun(kind, status string) {
	if m == nil {
		return
	}
	m.GenerationRuns.WithLabelValues(kind, status).Inc()
}

// RecordSkip counts one skip reason.
func (m *Metrics) RecordSkip(reason string) {
	if m == nil {
		return
	}
	m.GenerationSkips.WithLabelValues(reason).Inc()
}

// RecordTasksCreated counts tasks created by a pass.
func (m *Metrics) RecordTasksCreated(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.TasksGenerated.Add(float64(n))
}

// RecordGoalReset counts a daily goal reset that actually ran.
func (m *Metrics) RecordGoalReset() {
	if m == nil {
		return
	}
	m.GoalsReset.Inc()
}
