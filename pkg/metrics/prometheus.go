package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusSink implements Sink on top of github.com/prometheus/client_golang,
// exposed on an auxiliary HTTP port per SPEC_FULL.md §6.1. Grounded on the
// prometheus usage in arkeep-io-arkeep/server and jordigilh-kubernaut.
type PrometheusSink struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	activeTasks     *prometheus.GaugeVec
	errorsTotal     *prometheus.CounterVec
	agentUptime     *prometheus.GaugeVec
}

// NewPrometheusSink registers the five metrics against a fresh registry and
// returns both the Sink and an http.Handler serving the exposition text
// format; callers mount the handler on the auxiliary metrics port.
func NewPrometheusSink() (*PrometheusSink, http.Handler) {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	s := &PrometheusSink{
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "requests_total",
			Help: "Total number of A2A requests dispatched to an agent.",
		}, []string{"agent", "skill", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "request_duration_seconds",
			Help:    "Duration of A2A requests dispatched to an agent.",
			Buckets: prometheus.DefBuckets,
		}, []string{"agent", "skill"}),
		activeTasks: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "active_tasks",
			Help: "Number of in-flight tasks per agent.",
		}, []string{"agent"}),
		errorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors observed per agent and error type.",
		}, []string{"agent", "error_type"}),
		agentUptime: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "agent_uptime_seconds",
			Help: "Seconds since the agent process started.",
		}, []string{"agent"}),
	}
	return s, promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func (s *PrometheusSink) RequestsTotal(agent, skill, status string) {
	s.requestsTotal.WithLabelValues(agent, skill, status).Inc()
}

func (s *PrometheusSink) RequestDuration(agent, skill string, d time.Duration) {
	s.requestDuration.WithLabelValues(agent, skill).Observe(d.Seconds())
}

func (s *PrometheusSink) ActiveTasks(agent string, n int) {
	s.activeTasks.WithLabelValues(agent).Set(float64(n))
}

func (s *PrometheusSink) ErrorsTotal(agent, errorType string) {
	s.errorsTotal.WithLabelValues(agent, errorType).Inc()
}

func (s *PrometheusSink) AgentUptime(agent string, seconds float64) {
	s.agentUptime.WithLabelValues(agent).Set(seconds)
}
