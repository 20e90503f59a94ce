// Package metrics defines the Metrics Sink interface every component in
// this module depends on, plus a Prometheus-backed implementation. Modeled
// after the teacher's resilience.MetricsCollector indirection so components
// never import a concrete metrics library directly.
package metrics

import "time"

// Sink is the interface consumed by the Reliability layer, the Scheduler,
// the Orchestrator and the agent SDK, exposing exactly the five metrics
// named in SPEC_FULL.md §6.
type Sink interface {
	// RequestsTotal increments requests_total{agent,skill,status}.
	RequestsTotal(agent, skill, status string)
	// RequestDuration observes request_duration_seconds{agent,skill}.
	RequestDuration(agent, skill string, d time.Duration)
	// ActiveTasks sets active_tasks{agent}.
	ActiveTasks(agent string, n int)
	// ErrorsTotal increments errors_total{agent,error_type}.
	ErrorsTotal(agent, errorType string)
	// AgentUptime sets agent_uptime_seconds{agent}.
	AgentUptime(agent string, seconds float64)
}

// noopSink discards every observation; used as the default Sink so
// components never need a nil check, grounded on the teacher's noopMetrics.
type noopSink struct{}

// NewNoop returns a Sink that discards all observations.
func NewNoop() Sink { return noopSink{} }

func (noopSink) RequestsTotal(agent, skill, status string)      {}
func (noopSink) RequestDuration(agent, skill string, d time.Duration) {}
func (noopSink) ActiveTasks(agent string, n int)                {}
func (noopSink) ErrorsTotal(agent, errorType string)            {}
func (noopSink) AgentUptime(agent string, seconds float64)      {}
