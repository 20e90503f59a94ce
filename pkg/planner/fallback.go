package planner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/a2aflow/engine/pkg/a2a"
)

// FallbackPlanner deterministically matches a query against the catalog's
// keyword vocabulary, with no LLM call. Adapted from pkg/routing/workflow.go's
// findMatchingWorkflow, simplified to single-agent keyword matching since
// there is no workflow-file template system here: the first catalog entry
// (in declaration order) with a keyword substring hit wins the whole query.
type FallbackPlanner struct {
	catalog    *Catalog
	defaultID  string
	defaultTTL time.Duration
}

// NewFallbackPlanner builds a FallbackPlanner that targets defaultAgentID
// when no keyword matches.
func NewFallbackPlanner(catalog *Catalog, defaultAgentID string) *FallbackPlanner {
	return &FallbackPlanner{catalog: catalog, defaultID: defaultAgentID, defaultTTL: 30 * time.Second}
}

func (p *FallbackPlanner) Plan(ctx context.Context, query, contextID string) (a2a.ExecutionPlan, error) {
	agentID := p.match(query)
	if agentID == "" {
		agentID = p.defaultID
	}
	if agentID == "" {
		return a2a.ExecutionPlan{}, a2a.NewError("FallbackPlanner.Plan", a2a.KindPlanInvalid, "no matching agent and no default configured", nil)
	}

	plan := a2a.ExecutionPlan{
		ID:            fmt.Sprintf("plan-%s", uuid.New().String()[:8]),
		OriginalQuery: query,
		ExecutionType: a2a.ExecSequential,
		Confidence:    0.5,
		CreatedAt:     time.Now(),
		Steps: []a2a.ExecutionStep{
			{
				Index:    0,
				AgentID:  agentID,
				TaskText: query,
				Timeout:  p.defaultTTL,
			},
		},
	}
	if err := a2a.ValidatePlan(plan); err != nil {
		return a2a.ExecutionPlan{}, err
	}
	return plan, nil
}

// match returns the agent id of the first catalog entry (in declaration
// order) with a keyword that occurs as a substring of query, case
// insensitive. Ties are impossible by construction: the scan stops at the
// first hit.
func (p *FallbackPlanner) match(query string) string {
	lower := strings.ToLower(query)
	for _, entry := range p.catalog.Entries() {
		for _, kw := range entry.Keywords {
			if kw == "" {
				continue
			}
			if strings.Contains(lower, strings.ToLower(kw)) {
				return entry.AgentID
			}
		}
	}
	return ""
}
