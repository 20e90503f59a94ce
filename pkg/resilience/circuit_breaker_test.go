package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a2aflow/engine/pkg/a2a"
	"github.com/a2aflow/engine/pkg/resilience"
)

func TestCircuitBreaker_OpensAtThreshold(t *testing.T) {
	cb := resilience.New(resilience.Config{Scope: "test", FailureThreshold: 3, RecoveryTimeout: time.Minute})

	for i := 0; i < 2; i++ {
		err := cb.Execute(context.Background(), func(ctx context.Context) error {
			return errors.New("boom")
		})
		assert.Error(t, err)
		assert.Equal(t, a2a.CircuitClosed, cb.State().State)
	}

	err := cb.Execute(context.Background(), func(ctx context.Context) error {
		return errors.New("boom")
	})
	assert.Error(t, err)
	assert.Equal(t, a2a.CircuitOpen, cb.State().State)
}

func TestCircuitBreaker_RejectsWhileOpen(t *testing.T) {
	cb := resilience.New(resilience.Config{Scope: "test", FailureThreshold: 1, RecoveryTimeout: time.Minute})

	_ = cb.Execute(context.Background(), func(ctx context.Context) error { return errors.New("boom") })
	require.Equal(t, a2a.CircuitOpen, cb.State().State)

	called := false
	err := cb.Execute(context.Background(), func(ctx context.Context) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.True(t, a2a.IsKind(err, a2a.KindCircuitOpen))
	assert.False(t, called, "fn must not run while the breaker is open")
}

func TestCircuitBreaker_HalfOpenAfterRecovery(t *testing.T) {
	cb := resilience.New(resilience.Config{Scope: "test", FailureThreshold: 1, RecoveryTimeout: 10 * time.Millisecond})

	_ = cb.Execute(context.Background(), func(ctx context.Context) error { return errors.New("boom") })
	require.Equal(t, a2a.CircuitOpen, cb.State().State)

	time.Sleep(20 * time.Millisecond)

	err := cb.Execute(context.Background(), func(ctx context.Context) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, a2a.CircuitClosed, cb.State().State)
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := resilience.New(resilience.Config{Scope: "test", FailureThreshold: 1, RecoveryTimeout: 10 * time.Millisecond})

	_ = cb.Execute(context.Background(), func(ctx context.Context) error { return errors.New("boom") })
	time.Sleep(20 * time.Millisecond)

	err := cb.Execute(context.Background(), func(ctx context.Context) error { return errors.New("still broken") })
	require.Error(t, err)
	assert.Equal(t, a2a.CircuitOpen, cb.State().State)
}

func TestDefaultErrorClassifier_IgnoresCancellation(t *testing.T) {
	assert.False(t, resilience.DefaultErrorClassifier(nil))
	assert.False(t, resilience.DefaultErrorClassifier(context.Canceled))
	assert.False(t, resilience.DefaultErrorClassifier(a2a.NewError("op", a2a.KindCanceled, "", nil)))
	assert.True(t, resilience.DefaultErrorClassifier(errors.New("real failure")))
}

func TestHealthChecker_AggregatesWorstProbe(t *testing.T) {
	hc := resilience.NewHealthChecker()
	hc.Register("db", func(ctx context.Context) resilience.ProbeResult {
		return resilience.ProbeResult{Status: resilience.HealthHealthy}
	})
	hc.Register("llm", func(ctx context.Context) resilience.ProbeResult {
		return resilience.ProbeResult{Status: resilience.HealthDegraded, Details: "slow"}
	})

	status, results := hc.CheckHealth(context.Background())
	assert.Equal(t, resilience.HealthDegraded, status)
	assert.Len(t, results, 2)
}

func TestHealthChecker_ProbeTimeoutIsUnhealthy(t *testing.T) {
	hc := resilience.NewHealthChecker()
	hc.Register("stuck", func(ctx context.Context) resilience.ProbeResult {
		<-ctx.Done()
		return resilience.ProbeResult{Status: resilience.HealthHealthy}
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()

	status, _ := hc.CheckHealth(ctx)
	assert.Equal(t, resilience.HealthUnhealthy, status)
}
