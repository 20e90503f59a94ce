package a2a

import "time"

// ExecutionType selects how the scheduler walks an ExecutionPlan's steps.
type ExecutionType string

const (
	ExecSequential ExecutionType = "sequential"
	ExecParallel   ExecutionType = "parallel"
	ExecHybrid     ExecutionType = "hybrid"
)

// RetryPolicy is an optional per-step retry configuration. Per SPEC_FULL.md
// §9.1 Open Question decisions, the scheduler applies no retries unless a
// step or the caller opts in via this policy.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
	BackoffType string // "fixed" | "exponential"
}

// ExecutionStep is one planned unit of work targeting one agent. Immutable
// once a plan has been validated.
type ExecutionStep struct {
	Index        int
	AgentID      string
	TaskText     string
	Dependencies []int // indices into the owning ExecutionPlan.Steps
	Timeout      time.Duration
	Retry        *RetryPolicy
}

// ExecutionPlan is the planner's output and the program the scheduler runs.
type ExecutionPlan struct {
	ID            string
	OriginalQuery string
	Steps         []ExecutionStep
	ExecutionType ExecutionType
	Confidence    float64
	CreatedAt     time.Time
}

// StepStatus discriminates how a step concluded.
type StepStatus string

const (
	StepSuccess  StepStatus = "success"
	StepFailure  StepStatus = "failure"
	StepSkipped  StepStatus = "skipped"
	StepCanceled StepStatus = "canceled"
)

// StepResult is the scheduler's record of one step's outcome.
type StepResult struct {
	StepIndex  int
	AgentID    string
	Status     StepStatus
	Success    bool
	Text       string
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
	DurationMS int64
}

// CircuitState is the state of a circuit breaker scope.
type CircuitState string

const (
	CircuitClosed   CircuitState = "closed"
	CircuitOpen     CircuitState = "open"
	CircuitHalfOpen CircuitState = "half_open"
)

// CircuitBreakerState is a point-in-time, read-only snapshot of a breaker.
type CircuitBreakerState struct {
	Scope           string
	State           CircuitState
	FailureCount    int
	LastFailureTime time.Time
	FailureThreshold int
	RecoveryTimeout  time.Duration
}
