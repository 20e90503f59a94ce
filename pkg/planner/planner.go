package planner

import (
	"context"

	"github.com/a2aflow/engine/pkg/a2a"
)

// Planner turns a query into a validated ExecutionPlan, per SPEC_FULL.md
// §4.4's Plan(query, context?) -> ExecutionPlan contract.
type Planner interface {
	Plan(ctx context.Context, query string, contextID string) (a2a.ExecutionPlan, error)
}

// Mode selects which planner implementation handles a request.
type Mode string

const (
	ModeLLM      Mode = "llm"
	ModeFallback Mode = "fallback"
	ModeAuto     Mode = "auto" // try LLM, fall back deterministically on failure
)

// AutoPlanner tries the LLM planner first and falls back to the
// deterministic planner when the LLM planner fails or produces an invalid
// plan, satisfying SPEC_FULL.md §9's "LLM dependency ... MUST have
// deterministic fallbacks" requirement.
type AutoPlanner struct {
	llm      Planner
	fallback Planner
}

// NewAutoPlanner composes the two planners.
func NewAutoPlanner(llm, fallback Planner) *AutoPlanner {
	return &AutoPlanner{llm: llm, fallback: fallback}
}

func (p *AutoPlanner) Plan(ctx context.Context, query, contextID string) (a2a.ExecutionPlan, error) {
	if p.llm != nil {
		plan, err := p.llm.Plan(ctx, query, contextID)
		if err == nil {
			if verr := a2a.ValidatePlan(plan); verr == nil {
				return plan, nil
			}
		}
	}
	return p.fallback.Plan(ctx, query, contextID)
}
