package workflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks engine activity. A nil *Metrics is valid and records nothing,
// which keeps tests free of global registry collisions.
type Metrics struct {
	runs       prometheus.Counter
	steps      *prometheus.CounterVec
	toolCalls  *prometheus.CounterVec
	iterations prometheus.Histogram
}

// NewMetrics registers the engine collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		runs: factory.NewCounter(prometheus.CounterOpts{
			Name: "stockpilot_runs_total",
			Help: "Completed workflow runs.",
		}),
		steps: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stockpilot_steps_total",
			Help: "Executed workflow steps by name.",
		}, []string{"step"}),
		toolCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stockpilot_tool_calls_total",
			Help: "Tool invocations by tool name and outcome.",
		}, []string{"tool", "status"}),
		iterations: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "stockpilot_run_iterations",
			Help:    "Reasoning cycles consumed per run.",
			Buckets: prometheus.LinearBuckets(0, 1, 8),
		}),
	}
}

func (m *Metrics) run(iterations int) {
	if m == nil {
		return
	}
	m.runs.Inc()
	m.iterations.Observe(float64(iterations))
}

func (m *Metrics) step(name string) {
	if m == nil {
		return
	}
	if name == StepTerminal {
		name = "terminal"
	}
	m.steps.WithLabelValues(name).Inc()
}

func (m *Metrics) toolCall(tool, status string) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(tool, status).Inc()
}
