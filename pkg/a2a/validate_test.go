package a2a_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a2aflow/engine/pkg/a2a"
)

func TestValidatePlan_ZeroSteps(t *testing.T) {
	err := a2a.ValidatePlan(a2a.ExecutionPlan{ExecutionType: a2a.ExecSequential})
	require.Error(t, err)
	assert.True(t, a2a.IsKind(err, a2a.KindPlanInvalid))
}

func TestValidatePlan_MissingAgentID(t *testing.T) {
	plan := a2a.ExecutionPlan{
		ExecutionType: a2a.ExecSequential,
		Steps:         []a2a.ExecutionStep{{Index: 0}},
	}
	err := a2a.ValidatePlan(plan)
	require.Error(t, err)
	assert.True(t, a2a.IsKind(err, a2a.KindPlanInvalid))
}

func TestValidatePlan_OutOfRangeDependency(t *testing.T) {
	plan := a2a.ExecutionPlan{
		ExecutionType: a2a.ExecSequential,
		Steps: []a2a.ExecutionStep{
			{Index: 0, AgentID: "a", Dependencies: []int{5}},
		},
	}
	err := a2a.ValidatePlan(plan)
	require.Error(t, err)
}

func TestValidatePlan_SelfDependency(t *testing.T) {
	plan := a2a.ExecutionPlan{
		ExecutionType: a2a.ExecSequential,
		Steps: []a2a.ExecutionStep{
			{Index: 0, AgentID: "a", Dependencies: []int{0}},
		},
	}
	err := a2a.ValidatePlan(plan)
	require.Error(t, err)
}

func TestValidatePlan_ParallelRejectsDependencies(t *testing.T) {
	plan := a2a.ExecutionPlan{
		ExecutionType: a2a.ExecParallel,
		Steps: []a2a.ExecutionStep{
			{Index: 0, AgentID: "a"},
			{Index: 1, AgentID: "b", Dependencies: []int{0}},
		},
	}
	err := a2a.ValidatePlan(plan)
	require.Error(t, err)
}

func TestValidatePlan_DetectsCycle(t *testing.T) {
	plan := a2a.ExecutionPlan{
		ExecutionType: a2a.ExecHybrid,
		Steps: []a2a.ExecutionStep{
			{Index: 0, AgentID: "a", Dependencies: []int{1}},
			{Index: 1, AgentID: "b", Dependencies: []int{0}},
		},
	}
	err := a2a.ValidatePlan(plan)
	require.Error(t, err)
}

func TestValidatePlan_UnknownExecutionType(t *testing.T) {
	plan := a2a.ExecutionPlan{
		ExecutionType: "bogus",
		Steps:         []a2a.ExecutionStep{{Index: 0, AgentID: "a"}},
	}
	err := a2a.ValidatePlan(plan)
	require.Error(t, err)
}

func TestValidatePlan_ValidHybridPlan(t *testing.T) {
	plan := a2a.ExecutionPlan{
		ExecutionType: a2a.ExecHybrid,
		Steps: []a2a.ExecutionStep{
			{Index: 0, AgentID: "a"},
			{Index: 1, AgentID: "b"},
			{Index: 2, AgentID: "c", Dependencies: []int{0, 1}},
		},
	}
	assert.NoError(t, a2a.ValidatePlan(plan))
}

func TestTopologicalLevels(t *testing.T) {
	steps := []a2a.ExecutionStep{
		{Index: 0, AgentID: "a"},
		{Index: 1, AgentID: "b"},
		{Index: 2, AgentID: "c", Dependencies: []int{0, 1}},
		{Index: 3, AgentID: "d", Dependencies: []int{2}},
	}
	levels := a2a.TopologicalLevels(steps)
	require.Len(t, levels, 3)
	assert.ElementsMatch(t, []int{0, 1}, levels[0])
	assert.Equal(t, []int{2}, levels[1])
	assert.Equal(t, []int{3}, levels[2])
}
