package a2a

import "fmt"

// ValidatePlan checks the structural invariants SPEC_FULL.md §3/§4.4 require
// before a plan may be scheduled: at least one step, every dependency
// referencing an earlier declared step, and no cycles. The cycle check is
// adapted from orchestration/workflow_dag.go's DFS-based hasCycleDFS,
// generalized from named nodes to step indices.
func ValidatePlan(plan ExecutionPlan) error {
	if len(plan.Steps) == 0 {
		return NewError("ValidatePlan", KindPlanInvalid, "plan has zero steps", nil)
	}

	for i, step := range plan.Steps {
		if step.AgentID == "" {
			return NewError("ValidatePlan", KindPlanInvalid,
				fmt.Sprintf("step %d has no agent_id", step.Index), nil)
		}
		for _, dep := range step.Dependencies {
			if dep < 0 || dep >= len(plan.Steps) {
				return NewError("ValidatePlan", KindPlanInvalid,
					fmt.Sprintf("step %d depends on out-of-range index %d", step.Index, dep), nil)
			}
			if dep == step.Index {
				return NewError("ValidatePlan", KindPlanInvalid,
					fmt.Sprintf("step %d depends on itself", step.Index), nil)
			}
			if dep > i {
				return NewError("ValidatePlan", KindPlanInvalid,
					fmt.Sprintf("step %d depends on later step %d", step.Index, dep), nil)
			}
		}
	}

	switch plan.ExecutionType {
	case ExecParallel:
		for _, step := range plan.Steps {
			if len(step.Dependencies) > 0 {
				return NewError("ValidatePlan", KindPlanInvalid,
					fmt.Sprintf("parallel plan step %d declares dependencies", step.Index), nil)
			}
		}
	case ExecSequential, ExecHybrid:
		// Arbitrary DAG allowed; checked for cycles below.
	default:
		return NewError("ValidatePlan", KindPlanInvalid,
			fmt.Sprintf("unknown execution_type %q", plan.ExecutionType), nil)
	}

	if cyclic, path := hasCycle(plan.Steps); cyclic {
		return NewError("ValidatePlan", KindPlanInvalid,
			fmt.Sprintf("dependency cycle detected: %v", path), nil)
	}
	return nil
}

const (
	visitStateUnvisited = 0
	visitStateVisiting  = 1
	visitStateDone      = 2
)

// hasCycle runs a DFS over the dependency graph, reporting the first cycle
// found as a sequence of step indices.
func hasCycle(steps []ExecutionStep) (bool, []int) {
	state := make([]int, len(steps))
	var path []int

	var visit func(i int) bool
	visit = func(i int) bool {
		state[i] = visitStateVisiting
		path = append(path, i)
		for _, dep := range steps[i].Dependencies {
			switch state[dep] {
			case visitStateVisiting:
				path = append(path, dep)
				return true
			case visitStateUnvisited:
				if visit(dep) {
					return true
				}
			}
		}
		path = path[:len(path)-1]
		state[i] = visitStateDone
		return false
	}

	for i := range steps {
		if state[i] == visitStateUnvisited {
			if visit(i) {
				return true, path
			}
		}
	}
	return false, nil
}

// TopologicalLevels groups step indices into execution levels: level 0 has
// no dependencies, level k depends only on steps in levels < k. This is the
// scheduler's hybrid-execution computation, adapted from
// orchestration/workflow_dag.go's GetExecutionLevels (Kahn's algorithm).
func TopologicalLevels(steps []ExecutionStep) [][]int {
	level := make([]int, len(steps))
	for i, step := range steps {
		max := -1
		for _, dep := range step.Dependencies {
			if level[dep] > max {
				// Dependency levels are resolved below in index order only
				// when dependencies always reference earlier indices, which
				// ValidatePlan's acyclicity check (combined with the
				// dependency-on-earlier-step convention) guarantees once
				// steps are processed in a safe order; recompute below.
				max = level[dep]
			}
		}
		level[i] = max + 1
	}
	// Recompute level assignment honoring the actual dependency levels via a
	// fixed-point pass so dependencies are resolved regardless of whether
	// earlier indices were revisited above in true dependency order.
	changed := true
	for changed {
		changed = false
		for i, step := range steps {
			max := -1
			for _, dep := range step.Dependencies {
				if level[dep] > max {
					max = level[dep]
				}
			}
			if max+1 != level[i] {
				level[i] = max + 1
				changed = true
			}
		}
	}

	maxLevel := 0
	for _, l := range level {
		if l > maxLevel {
			maxLevel = l
		}
	}
	levels := make([][]int, maxLevel+1)
	for i, l := range level {
		levels[l] = append(levels[l], i)
	}
	return levels
}
