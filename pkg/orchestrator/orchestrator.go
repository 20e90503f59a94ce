// Package orchestrator wires the Planner, Scheduler, Synthesizer and
// AgentPool into the single entrypoint external callers use: Process takes
// a natural-language query and returns the synthesized response text plus
// the per-step results that produced it. Adapted from
// pkg/orchestration/orchestrator.go's StandardOrchestrator, reduced to the
// components SPEC_FULL.md §2 actually names (no response cache, no
// orchestrator-level circuit breaker — those concerns already live in the
// reliability layer wrapping each transport call).
package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/a2aflow/engine/pkg/a2a"
	"github.com/a2aflow/engine/pkg/logger"
	"github.com/a2aflow/engine/pkg/metrics"
	"github.com/a2aflow/engine/pkg/planner"
	"github.com/a2aflow/engine/pkg/scheduler"
	"github.com/a2aflow/engine/pkg/synthesizer"
)

var orchestratorTracer = otel.Tracer("a2aflow.orchestrator")

// Response is the outcome of processing one query.
type Response struct {
	RequestID string
	PlanID    string
	Text      string
	Steps     []a2a.StepResult
	Success   bool
}

// Orchestrator composes a Planner, Scheduler and Synthesizer behind one
// Process call.
type Orchestrator struct {
	planner     planner.Planner
	scheduler   *scheduler.Scheduler
	synthesizer *synthesizer.Synthesizer
	logger      logger.Logger
	metrics     metrics.Sink
}

// New builds an Orchestrator from its three components.
func New(p planner.Planner, s *scheduler.Scheduler, synth *synthesizer.Synthesizer, log logger.Logger, m metrics.Sink) *Orchestrator {
	if log == nil {
		log = logger.NewDefaultLogger()
	}
	if m == nil {
		m = metrics.NewNoop()
	}
	return &Orchestrator{planner: p, scheduler: s, synthesizer: synth, logger: log, metrics: m}
}

// Process plans, schedules and synthesizes a response for query. contextID
// is threaded unchanged through every agent call; an empty contextID gets a
// fresh uuid, per SPEC_FULL.md §9.1 decision #2.
func (o *Orchestrator) Process(ctx context.Context, query, contextID string) (Response, error) {
	requestID := uuid.New().String()
	if contextID == "" {
		contextID = uuid.New().String()
	}

	ctx, span := orchestratorTracer.Start(ctx, "orchestrator.Orchestrator.Process", trace.WithAttributes(
		attribute.String("request.id", requestID),
		attribute.String("context.id", contextID),
	))
	defer span.End()

	start := time.Now()
	o.logger.Info("processing request", "request_id", requestID, "context_id", contextID)

	plan, err := o.planner.Plan(ctx, query, contextID)
	if err != nil {
		span.RecordError(err)
		o.metrics.ErrorsTotal("orchestrator", "plan_failed")
		return Response{RequestID: requestID}, err
	}

	results, err := o.scheduler.Run(ctx, plan, contextID)
	if err != nil {
		span.RecordError(err)
		o.metrics.ErrorsTotal("orchestrator", "schedule_failed")
		return Response{RequestID: requestID, PlanID: plan.ID}, err
	}

	text := o.synthesizer.Synthesize(ctx, query, results)
	success := allSucceeded(results)

	o.metrics.RequestDuration("orchestrator", "", time.Since(start))
	o.logger.Info("processed request", "request_id", requestID, "plan_id", plan.ID, "success", success)

	return Response{
		RequestID: requestID,
		PlanID:    plan.ID,
		Text:      text,
		Steps:     results,
		Success:   success,
	}, nil
}

// allSucceeded reports whether every step in the plan produced a success
// StepResult. A single failed or skipped step marks the overall run
// unsuccessful, even though Run itself still returns the complete result
// vector per spec.md §4.5.
func allSucceeded(results []a2a.StepResult) bool {
	for _, r := range results {
		if !r.Success {
			return false
		}
	}
	return true
}
