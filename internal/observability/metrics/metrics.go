// Package metrics exposes the copilot's own self-metrics: how the
// Observation Loop is ticking, how often the state machine transitions,
// how the Compiler and guard rails are resolving, and how long the
// narrators take. These are metrics about the copilot itself, never
// the metrics it fetches about the cluster under observation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry bundles every self-metric behind one prometheus.Registry so
// a single /metrics handler can serve all of them.
type Registry struct {
	reg *prometheus.Registry

	LoopTicksTotal        *prometheus.CounterVec
	LoopTickDuration      prometheus.Histogram
	StateTransitionsTotal *prometheus.CounterVec
	AssessmentsTotal      *prometheus.CounterVec
	NarratorLatency       *prometheus.HistogramVec
	CompileOutcomesTotal  *prometheus.CounterVec
	GuardRailViolations   *prometheus.CounterVec
}

// New builds and registers the full self-metrics set against a fresh
// registry.
func New() *Registry {
	reg := prometheus.NewRegistry()

	m := &Registry{
		reg: reg,
		LoopTicksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "copilot",
			Subsystem: "observe_loop",
			Name:      "ticks_total",
			Help:      "Total number of observation loop ticks, by outcome.",
		}, []string{"outcome"}),
		LoopTickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "copilot",
			Subsystem: "observe_loop",
			Name:      "tick_duration_seconds",
			Help:      "Wall-clock duration of a single observation loop tick.",
			Buckets:   prometheus.DefBuckets,
		}),
		StateTransitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "copilot",
			Subsystem: "health_state",
			Name:      "transitions_total",
			Help:      "Total number of health state transitions, by from/to state.",
		}, []string{"from", "to"}),
		AssessmentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "copilot",
			Subsystem: "assessment",
			Name:      "produced_total",
			Help:      "Total number of assessments produced, by trigger and triage outcome.",
		}, []string{"trigger", "triage_outcome"}),
		NarratorLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "copilot",
			Subsystem: "narrator",
			Name:      "latency_seconds",
			Help:      "Narrator call latency, by narrator tier.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tier"}),
		CompileOutcomesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "copilot",
			Subsystem: "compiler",
			Name:      "outcomes_total",
			Help:      "Total number of compile attempts, by outcome.",
		}, []string{"outcome"}),
		GuardRailViolations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "copilot",
			Subsystem: "guardrail",
			Name:      "violations_total",
			Help:      "Total number of guard rail violations, by rule name.",
		}, []string{"rule"}),
	}

	reg.MustRegister(
		m.LoopTicksTotal,
		m.LoopTickDuration,
		m.StateTransitionsTotal,
		m.AssessmentsTotal,
		m.NarratorLatency,
		m.CompileOutcomesTotal,
		m.GuardRailViolations,
	)
	return m
}

// Handler serves the registered metrics in the Prometheus exposition
// format.
func (m *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
