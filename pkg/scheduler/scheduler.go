// Package scheduler runs a validated a2a.ExecutionPlan to completion: it
// walks the plan's dependency DAG level by level, dispatches each level's
// steps (sequentially or in parallel per the plan's execution_type),
// propagates predecessor results into dependent steps' task text, and
// records a StepResult per step. Adapted from
// pkg/orchestration/executor.go's PlanExecutor, with its dependency check
// replaced: the teacher's checkDependencies treats "any predecessor
// succeeded" as satisfaction, which under-counts a multi-dependency step;
// this scheduler tracks completion per step index instead.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/a2aflow/engine/pkg/a2a"
	"github.com/a2aflow/engine/pkg/logger"
	"github.com/a2aflow/engine/pkg/metrics"
	"github.com/a2aflow/engine/pkg/resilience"
)

// contextTruncateLen bounds how much of a predecessor's result text is
// folded into a dependent step's task, per SPEC_FULL.md §9.1 decision #1.
const contextTruncateLen = 280

// Invoker dispatches one step's task text to its target agent and returns
// the agent's final response text. Implemented by orchestrator.AgentPool in
// production and by a fake in tests.
type Invoker interface {
	Invoke(ctx context.Context, agentID, contextID, taskText string, timeout time.Duration) (string, error)
}

// BreakerProvider returns the circuit breaker guarding calls to agentID,
// scoped "per_agent:<id>" per SPEC_FULL.md §4.2.
type BreakerProvider func(agentID string) *resilience.CircuitBreaker

var schedulerTracer = otel.Tracer("a2aflow.scheduler")

// Scheduler runs ExecutionPlans against an Invoker.
type Scheduler struct {
	invoker        Invoker
	breakers       BreakerProvider
	logger         logger.Logger
	metrics        metrics.Sink
	maxConcurrency int
}

// Option configures a Scheduler.
type Option func(*Scheduler)

func WithLogger(l logger.Logger) Option    { return func(s *Scheduler) { s.logger = l } }
func WithMetrics(m metrics.Sink) Option    { return func(s *Scheduler) { s.metrics = m } }
func WithConcurrency(n int) Option         { return func(s *Scheduler) { s.maxConcurrency = n } }
func WithBreakers(bp BreakerProvider) Option {
	return func(s *Scheduler) { s.breakers = bp }
}

// New builds a Scheduler, defaulting to the teacher's concurrency of 5.
func New(invoker Invoker, opts ...Option) *Scheduler {
	s := &Scheduler{
		invoker:        invoker,
		logger:         logger.NewDefaultLogger(),
		metrics:        metrics.NewNoop(),
		maxConcurrency: 5,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.breakers == nil {
		defaultBreaker := resilience.New(resilience.Config{Scope: "scheduler.default"})
		s.breakers = func(string) *resilience.CircuitBreaker { return defaultBreaker }
	}
	return s
}

// Run executes plan to completion, returning one StepResult per planned
// step in step-index order. Per spec.md §4.5's ordering guarantees, a step
// starts only once every one of its declared dependencies has produced a
// success StepResult; if any dependency failed, was canceled or was itself
// skipped, the step is recorded as skipped with error "dependency_failed"
// and that skip propagates transitively to its own dependents. Run itself
// never aborts on partial failure: every level still runs, and steps whose
// dependencies succeeded are dispatched normally even after an unrelated
// step elsewhere in an earlier level failed.
func (s *Scheduler) Run(ctx context.Context, plan a2a.ExecutionPlan, contextID string) ([]a2a.StepResult, error) {
	ctx, span := schedulerTracer.Start(ctx, "scheduler.Scheduler.Run", trace.WithAttributes(
		attribute.String("plan.id", plan.ID),
		attribute.Int("plan.steps", len(plan.Steps)),
		attribute.String("plan.execution_type", string(plan.ExecutionType)),
	))
	defer span.End()

	if err := a2a.ValidatePlan(plan); err != nil {
		span.RecordError(err)
		return nil, err
	}

	levels := a2a.TopologicalLevels(plan.Steps)
	results := make([]a2a.StepResult, len(plan.Steps))

	for _, level := range levels {
		runnable := make([]int, 0, len(level))
		for _, idx := range level {
			if err := ctx.Err(); err != nil {
				results[idx] = s.canceledResult(plan.Steps[idx], err)
				continue
			}
			if !s.dependenciesSatisfied(plan.Steps[idx], results) {
				results[idx] = s.skippedResult(plan.Steps[idx])
				continue
			}
			runnable = append(runnable, idx)
		}
		if len(runnable) == 0 {
			continue
		}

		parallel := plan.ExecutionType == a2a.ExecParallel || (plan.ExecutionType == a2a.ExecHybrid && len(runnable) > 1)
		if parallel {
			s.runParallel(ctx, plan, contextID, runnable, results)
		} else {
			for _, idx := range runnable {
				results[idx] = s.runStep(ctx, plan, contextID, idx, results)
			}
		}
	}

	return results, nil
}

// dependenciesSatisfied reports whether every dependency of step has already
// produced a success StepResult. A step with no dependencies is always
// satisfied.
func (s *Scheduler) dependenciesSatisfied(step a2a.ExecutionStep, results []a2a.StepResult) bool {
	for _, dep := range step.Dependencies {
		if !results[dep].Success {
			return false
		}
	}
	return true
}

// runParallel dispatches one DAG level's steps concurrently, bounded by the
// scheduler's semaphore, adapted from PlanExecutor.executeParallel.
func (s *Scheduler) runParallel(ctx context.Context, plan a2a.ExecutionPlan, contextID string, indices []int, results []a2a.StepResult) {
	sem := make(chan struct{}, s.maxConcurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, idx := range indices {
		idx := idx
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			result := s.runStep(ctx, plan, contextID, idx, results)
			mu.Lock()
			results[idx] = result
			mu.Unlock()
		}()
	}
	wg.Wait()
}

// runStep builds the dependency-augmented task text for step idx, invokes
// it through the per-agent circuit breaker, and returns its StepResult.
// Reads of `results` for already-completed dependency indices are safe
// without a lock: a step's dependencies all sit in earlier levels, and
// runStep is only called for a step once every earlier level has finished.
func (s *Scheduler) runStep(ctx context.Context, plan a2a.ExecutionPlan, contextID string, idx int, results []a2a.StepResult) a2a.StepResult {
	step := plan.Steps[idx]
	start := time.Now()

	taskText := s.augmentTask(step, results)
	timeout := step.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	breaker := s.breakers(step.AgentID)
	var responseText string
	attempts := 1
	if step.Retry != nil && step.Retry.MaxAttempts > 0 {
		attempts = step.Retry.MaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			delay := s.retryDelay(step.Retry, attempt)
			select {
			case <-time.After(delay):
			case <-stepCtx.Done():
				lastErr = stepCtx.Err()
				break
			}
		}

		lastErr = breaker.Execute(stepCtx, func(callCtx context.Context) error {
			text, err := s.invoker.Invoke(callCtx, step.AgentID, contextID, taskText, timeout)
			if err != nil {
				return err
			}
			responseText = text
			return nil
		})
		s.metrics.RequestsTotal(step.AgentID, "", statusLabel(lastErr))
		if lastErr == nil {
			break
		}
	}

	finished := time.Now()
	s.metrics.RequestDuration(step.AgentID, "", finished.Sub(start))

	if lastErr != nil {
		if a2a.IsKind(lastErr, a2a.KindCanceled) || stepCtx.Err() == context.Canceled {
			s.logger.Info("step canceled", "agent_id", step.AgentID, "step_index", idx)
			return a2a.StepResult{
				StepIndex:  idx,
				AgentID:    step.AgentID,
				Status:     a2a.StepCanceled,
				Success:    false,
				Error:      lastErr.Error(),
				StartedAt:  start,
				FinishedAt: finished,
				DurationMS: finished.Sub(start).Milliseconds(),
			}
		}
		s.metrics.ErrorsTotal(step.AgentID, "step_failed")
		s.logger.Error("step failed", "agent_id", step.AgentID, "step_index", idx, "error", lastErr.Error())
		return a2a.StepResult{
			StepIndex:  idx,
			AgentID:    step.AgentID,
			Status:     a2a.StepFailure,
			Success:    false,
			Error:      lastErr.Error(),
			StartedAt:  start,
			FinishedAt: finished,
			DurationMS: finished.Sub(start).Milliseconds(),
		}
	}

	return a2a.StepResult{
		StepIndex:  idx,
		AgentID:    step.AgentID,
		Status:     a2a.StepSuccess,
		Success:    true,
		Text:       responseText,
		StartedAt:  start,
		FinishedAt: finished,
		DurationMS: finished.Sub(start).Milliseconds(),
	}
}

func (s *Scheduler) retryDelay(policy *a2a.RetryPolicy, attempt int) time.Duration {
	if policy == nil {
		return time.Second
	}
	delay := policy.Delay
	if delay <= 0 {
		delay = time.Second
	}
	if policy.BackoffType == "exponential" {
		delay <<= uint(attempt - 2)
		if delay <= 0 {
			delay = policy.Delay
		}
	}
	return delay
}

// augmentTask appends each dependency's result text, truncated to
// contextTruncateLen characters, to the step's own task text.
func (s *Scheduler) augmentTask(step a2a.ExecutionStep, results []a2a.StepResult) string {
	if len(step.Dependencies) == 0 {
		return step.TaskText
	}
	var b strings.Builder
	b.WriteString(step.TaskText)
	for _, dep := range step.Dependencies {
		dr := results[dep]
		if !dr.Success {
			continue
		}
		b.WriteString(fmt.Sprintf("\n\n[context from %s]: %s", dr.AgentID, truncate(dr.Text, contextTruncateLen)))
	}
	return b.String()
}

// skippedResult records step as skipped because one of its dependencies
// never produced a success StepResult, per spec.md §4.5.
func (s *Scheduler) skippedResult(step a2a.ExecutionStep) a2a.StepResult {
	now := time.Now()
	return a2a.StepResult{
		StepIndex:  step.Index,
		AgentID:    step.AgentID,
		Status:     a2a.StepSkipped,
		Success:    false,
		Error:      "dependency_failed",
		StartedAt:  now,
		FinishedAt: now,
	}
}

// canceledResult records step as skipped because the run's context was
// already canceled before this level dispatched. Status stays StepSkipped
// (it never started, unlike a step canceled mid-flight in runStep) but its
// Error names the cancellation, distinguishing it from a dependency-failure
// skip for the synthesizer's benefit.
func (s *Scheduler) canceledResult(step a2a.ExecutionStep, cause error) a2a.StepResult {
	now := time.Now()
	return a2a.StepResult{
		StepIndex:  step.Index,
		AgentID:    step.AgentID,
		Status:     a2a.StepSkipped,
		Success:    false,
		Error:      cause.Error(),
		StartedAt:  now,
		FinishedAt: now,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func statusLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return "error"
}
