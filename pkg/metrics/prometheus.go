package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusRecorder implements the Recorder interface using Prometheus metrics.
type PrometheusRecorder struct {
	toolCallsTotal   *prometheus.CounterVec
	toolCallDuration *prometheus.HistogramVec
	sessionsTotal    *prometheus.CounterVec
	sessionDuration  *prometheus.HistogramVec
	tokensTotal      *prometheus.CounterVec
}

// NewPrometheusRecorder creates a new Prometheus-based metrics recorder.
// Collectors are registered with the default registry.
func NewPrometheusRecorder() *PrometheusRecorder {
	return &PrometheusRecorder{
		toolCallsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "infera_tool_calls_total",
				Help: "Total number of tool calls by tool, policy decision, and status",
			},
			[]string{"tool", "decision", "status"},
		),
		toolCallDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "infera_tool_call_duration_seconds",
				Help:    "Duration of tool executions in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"tool"},
		),
		sessionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "infera_sessions_total",
				Help: "Total number of agent sessions by phase and status",
			},
			[]string{"phase", "status"},
		),
		sessionDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "infera_session_duration_seconds",
				Help:    "Duration of agent sessions in seconds",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
			},
			[]string{"phase"},
		),
		tokensTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "infera_tokens_total",
				Help: "Estimated token counts by phase and type",
			},
			[]string{"phase", "type"},
		),
	}
}

// ObserveToolCall records one tool execution with its policy decision.
func (p *PrometheusRecorder) ObserveToolCall(tool, decision string, duration time.Duration, isError bool) {
	status := "success"
	if isError {
		status = "error"
	}
	p.toolCallsTotal.WithLabelValues(tool, decision, status).Inc()
	if decision == "allow" {
		p.toolCallDuration.WithLabelValues(tool).Observe(duration.Seconds())
	}
}

// ObserveSession records a completed agent session for a phase.
func (p *PrometheusRecorder) ObserveSession(phase, status string, duration time.Duration) {
	p.sessionsTotal.WithLabelValues(phase, status).Inc()
	p.sessionDuration.WithLabelValues(phase).Observe(duration.Seconds())
}

// ObserveTokens records estimated prompt and completion token counts.
func (p *PrometheusRecorder) ObserveTokens(phase string, promptTokens, completionTokens int) {
	p.tokensTotal.WithLabelValues(phase, "prompt").Add(float64(promptTokens))
	p.tokensTotal.WithLabelValues(phase, "completion").Add(float64(completionTokens))
}
