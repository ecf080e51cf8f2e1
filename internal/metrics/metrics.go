// Package metrics holds the Prometheus collectors reported by the runtime,
// the agent loop and the specialists.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "laila"

// Outcome label values.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeError    = "error"
	OutcomeRejected = "rejected"
)

var (
	Invocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invocations_total",
			Help:      "Entrypoint invocations by outcome.",
		},
		[]string{"outcome"},
	)

	InvocationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "invocation_duration_seconds",
			Help:      "Wall time spent processing one invocation.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)

	ToolCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "agent",
			Name:      "tool_calls_total",
			Help:      "Tool calls dispatched by the agent loop.",
		},
		[]string{"tool", "outcome"},
	)

	LLMCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "agent",
			Name:      "llm_calls_total",
			Help:      "Model calls made by the agent loop.",
		},
		[]string{"agent", "outcome"},
	)

	SpecialistRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "specialist",
			Name:      "runs_total",
			Help:      "Delegated specialist invocations by terminal state.",
		},
		[]string{"specialist", "outcome"},
	)
)
