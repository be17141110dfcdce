// Package metrics provides Prometheus-based metrics recording for agent
// sessions and tool executions.
package metrics

import "time"

// Recorder receives observations from sessions and the tool policy gate.
type Recorder interface {
	// ObserveToolCall records one tool execution with its policy decision.
	ObserveToolCall(tool, decision string, duration time.Duration, isError bool)

	// ObserveSession records a completed agent session for a phase.
	ObserveSession(phase, status string, duration time.Duration)

	// ObserveTokens records estimated prompt and completion token counts.
	ObserveTokens(phase string, promptTokens, completionTokens int)
}

// NopRecorder discards all observations. Used when metrics are disabled.
type NopRecorder struct{}

func (NopRecorder) ObserveToolCall(string, string, time.Duration, bool) {}
func (NopRecorder) ObserveSession(string, string, time.Duration)        {}
func (NopRecorder) ObserveTokens(string, int, int)                      {}
