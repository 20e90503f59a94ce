// Package resilience implements the reliability layer wrapping every
// outbound transport call: a per-scope circuit breaker and a health
// checker aggregating named probes. Adapted from the teacher's
// resilience/circuit_breaker.go, reduced from its sliding-window
// error-rate model to the fixed-threshold three-state machine SPEC_FULL.md
// §4.2 specifies.
package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/a2aflow/engine/pkg/a2a"
	"github.com/a2aflow/engine/pkg/metrics"
)

// ErrorClassifier decides whether an error counts toward the breaker's
// failure count. Context cancellation never counts, matching SPEC_FULL.md
// §4.2 ("planned cancellations do not [count]").
type ErrorClassifier func(error) bool

// DefaultErrorClassifier counts every non-nil, non-cancellation error.
func DefaultErrorClassifier(err error) bool {
	if err == nil {
		return false
	}
	return !a2a.IsKind(err, a2a.KindCanceled) && !errors.Is(err, context.Canceled)
}

// Config configures one circuit breaker scope.
type Config struct {
	Scope            string
	FailureThreshold int           // default 5
	RecoveryTimeout  time.Duration // default 60s
	Classifier       ErrorClassifier
	Metrics          metrics.Sink
}

func (c *Config) applyDefaults() {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.RecoveryTimeout <= 0 {
		c.RecoveryTimeout = 60 * time.Second
	}
	if c.Classifier == nil {
		c.Classifier = DefaultErrorClassifier
	}
	if c.Metrics == nil {
		c.Metrics = metrics.NewNoop()
	}
}

// CircuitBreaker implements the transition table in SPEC_FULL.md §4.2:
//
//	closed  --success-->        closed (reset failure_count)
//	closed  --failure(<thr)-->  closed
//	closed  --failure(=thr)-->  open
//	open    --before timeout--> rejected, no transition
//	open    --after timeout-->  half_open, then execute
//	half_open --success-->      closed
//	half_open --failure-->      open (reset last_failure_time)
type CircuitBreaker struct {
	cfg Config

	mu              sync.Mutex
	state           a2a.CircuitState
	failureCount    int
	lastFailureTime time.Time
}

// New builds a circuit breaker for one logical dependency scope (e.g.
// "llm", "per_agent:weather").
func New(cfg Config) *CircuitBreaker {
	cfg.applyDefaults()
	return &CircuitBreaker{cfg: cfg, state: a2a.CircuitClosed}
}

// State returns a read-only snapshot of the breaker, safe for metrics
// export without holding the execution lock.
func (b *CircuitBreaker) State() a2a.CircuitBreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return a2a.CircuitBreakerState{
		Scope:            b.cfg.Scope,
		State:            b.state,
		FailureCount:     b.failureCount,
		LastFailureTime:  b.lastFailureTime,
		FailureThreshold: b.cfg.FailureThreshold,
		RecoveryTimeout:  b.cfg.RecoveryTimeout,
	}
}

// allow reports whether a call may proceed, transitioning open->half_open
// when the recovery timeout has elapsed.
func (b *CircuitBreaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case a2a.CircuitClosed, a2a.CircuitHalfOpen:
		return true
	case a2a.CircuitOpen:
		if time.Since(b.lastFailureTime) >= b.cfg.RecoveryTimeout {
			b.state = a2a.CircuitHalfOpen
			return true
		}
		return false
	default:
		return true
	}
}

func (b *CircuitBreaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = a2a.CircuitClosed
	b.failureCount = 0
}

func (b *CircuitBreaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastFailureTime = time.Now()
	switch b.state {
	case a2a.CircuitHalfOpen:
		b.state = a2a.CircuitOpen
	default:
		b.failureCount++
		if b.failureCount >= b.cfg.FailureThreshold {
			b.state = a2a.CircuitOpen
		}
	}
}

// Execute runs fn if the breaker allows it, classifying the returned error
// to decide whether it counts as a failure. Returns a2a.ErrCircuitOpen
// without invoking fn when the breaker rejects the call.
func (b *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if !b.allow() {
		b.cfg.Metrics.RequestsTotal(b.cfg.Scope, "", "circuit_open")
		return a2a.NewError("CircuitBreaker.Execute", a2a.KindCircuitOpen, b.cfg.Scope+" is open", nil)
	}

	err := fn(ctx)
	if err != nil && b.cfg.Classifier(err) {
		b.recordFailure()
		return err
	}
	b.recordSuccess()
	return err
}
