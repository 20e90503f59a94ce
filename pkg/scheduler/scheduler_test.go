package scheduler_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a2aflow/engine/pkg/a2a"
	"github.com/a2aflow/engine/pkg/scheduler"
)

type recordingInvoker struct {
	mu        sync.Mutex
	responses map[string]string
	errs      map[string]error
	tasks     map[string]string
	order     []string
}

func newRecordingInvoker() *recordingInvoker {
	return &recordingInvoker{
		responses: map[string]string{},
		errs:      map[string]error{},
		tasks:     map[string]string{},
	}
}

func (r *recordingInvoker) Invoke(ctx context.Context, agentID, contextID, taskText string, timeout time.Duration) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = append(r.order, agentID)
	r.tasks[agentID] = taskText
	if err, ok := r.errs[agentID]; ok {
		return "", err
	}
	return r.responses[agentID], nil
}

func TestScheduler_SequentialContextPropagation(t *testing.T) {
	inv := newRecordingInvoker()
	inv.responses["a"] = "result from a, quite long and informative and useful"
	inv.responses["b"] = "result from b"

	plan := a2a.ExecutionPlan{
		ID:            "p1",
		ExecutionType: a2a.ExecSequential,
		Steps: []a2a.ExecutionStep{
			{Index: 0, AgentID: "a", TaskText: "do a", Timeout: time.Second},
			{Index: 1, AgentID: "b", TaskText: "do b", Dependencies: []int{0}, Timeout: time.Second},
		},
	}

	s := scheduler.New(inv)
	results, err := s.Run(context.Background(), plan, "ctx-1")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.True(t, results[0].Success)
	assert.True(t, results[1].Success)

	inv.mu.Lock()
	defer inv.mu.Unlock()
	assert.Contains(t, inv.tasks["b"], "result from a")
	assert.Equal(t, []string{"a", "b"}, inv.order)
}

func TestScheduler_TruncatesLongContext(t *testing.T) {
	inv := newRecordingInvoker()
	long := ""
	for i := 0; i < 400; i++ {
		long += "x"
	}
	inv.responses["a"] = long
	inv.responses["b"] = "ok"

	plan := a2a.ExecutionPlan{
		ExecutionType: a2a.ExecSequential,
		Steps: []a2a.ExecutionStep{
			{Index: 0, AgentID: "a", TaskText: "do a", Timeout: time.Second},
			{Index: 1, AgentID: "b", TaskText: "do b", Dependencies: []int{0}, Timeout: time.Second},
		},
	}

	s := scheduler.New(inv)
	_, err := s.Run(context.Background(), plan, "ctx-1")
	require.NoError(t, err)

	inv.mu.Lock()
	defer inv.mu.Unlock()
	assert.Less(t, len(inv.tasks["b"]), len(long)+len(plan.Steps[1].TaskText)+50)
	assert.Contains(t, inv.tasks["b"], "...")
}

func TestScheduler_ParallelRunsConcurrently(t *testing.T) {
	inv := newRecordingInvoker()
	inv.responses["a"] = "a-done"
	inv.responses["b"] = "b-done"

	plan := a2a.ExecutionPlan{
		ExecutionType: a2a.ExecParallel,
		Steps: []a2a.ExecutionStep{
			{Index: 0, AgentID: "a", TaskText: "do a", Timeout: time.Second},
			{Index: 1, AgentID: "b", TaskText: "do b", Timeout: time.Second},
		},
	}

	s := scheduler.New(inv, scheduler.WithConcurrency(2))
	results, err := s.Run(context.Background(), plan, "ctx-1")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.True(t, results[0].Success)
	assert.True(t, results[1].Success)
}

func TestScheduler_FailureSkipsOnlyTrueDependents(t *testing.T) {
	inv := newRecordingInvoker()
	inv.errs["a"] = errors.New("boom")

	plan := a2a.ExecutionPlan{
		ExecutionType: a2a.ExecSequential,
		Steps: []a2a.ExecutionStep{
			{Index: 0, AgentID: "a", TaskText: "do a", Timeout: time.Second},
			{Index: 1, AgentID: "b", TaskText: "do b", Dependencies: []int{0}, Timeout: time.Second},
		},
	}

	s := scheduler.New(inv)
	results, err := s.Run(context.Background(), plan, "ctx-1")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, a2a.StepFailure, results[0].Status)
	assert.Equal(t, a2a.StepSkipped, results[1].Status)
	assert.Equal(t, "dependency_failed", results[1].Error)
}

// TestScheduler_IndependentStepSurvivesSiblingFailure exercises a hybrid
// plan where step0 fails and step2 is independent of it in the same level;
// step3 depends only on step2 and must still run, since Run never aborts
// the whole plan on a single step's failure.
func TestScheduler_IndependentStepSurvivesSiblingFailure(t *testing.T) {
	inv := newRecordingInvoker()
	inv.errs["a"] = errors.New("boom")
	inv.responses["c"] = "c-done"
	inv.responses["d"] = "d-done"

	plan := a2a.ExecutionPlan{
		ExecutionType: a2a.ExecHybrid,
		Steps: []a2a.ExecutionStep{
			{Index: 0, AgentID: "a", TaskText: "do a", Timeout: time.Second},
			{Index: 1, AgentID: "b", TaskText: "do b", Dependencies: []int{0}, Timeout: time.Second},
			{Index: 2, AgentID: "c", TaskText: "do c", Timeout: time.Second},
			{Index: 3, AgentID: "d", TaskText: "do d", Dependencies: []int{2}, Timeout: time.Second},
		},
	}

	s := scheduler.New(inv)
	results, err := s.Run(context.Background(), plan, "ctx-1")
	require.NoError(t, err)
	require.Len(t, results, 4)
	assert.Equal(t, a2a.StepFailure, results[0].Status)
	assert.Equal(t, a2a.StepSkipped, results[1].Status)
	assert.Equal(t, "dependency_failed", results[1].Error)
	assert.Equal(t, a2a.StepSuccess, results[2].Status)
	assert.Equal(t, a2a.StepSuccess, results[3].Status)
}

func TestScheduler_ValidatesPlanBeforeRunning(t *testing.T) {
	inv := newRecordingInvoker()
	s := scheduler.New(inv)
	_, err := s.Run(context.Background(), a2a.ExecutionPlan{}, "ctx-1")
	require.Error(t, err)
	assert.True(t, a2a.IsKind(err, a2a.KindPlanInvalid))
}

func TestScheduler_RetriesUpToPolicy(t *testing.T) {
	calls := 0
	invokeFn := func(ctx context.Context, agentID, contextID, taskText string, timeout time.Duration) (string, error) {
		calls++
		if calls < 3 {
			return "", fmt.Errorf("transient error %d", calls)
		}
		return "finally", nil
	}

	s := scheduler.New(funcInvoker(invokeFn))
	plan := a2a.ExecutionPlan{
		ExecutionType: a2a.ExecSequential,
		Steps: []a2a.ExecutionStep{
			{
				Index: 0, AgentID: "flaky", TaskText: "try", Timeout: time.Second,
				Retry: &a2a.RetryPolicy{MaxAttempts: 3, Delay: time.Millisecond, BackoffType: "fixed"},
			},
		},
	}

	results, err := s.Run(context.Background(), plan, "ctx-1")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.Equal(t, 3, calls)
}

type funcInvoker func(ctx context.Context, agentID, contextID, taskText string, timeout time.Duration) (string, error)

func (f funcInvoker) Invoke(ctx context.Context, agentID, contextID, taskText string, timeout time.Duration) (string, error) {
	return f(ctx, agentID, contextID, taskText, timeout)
}
