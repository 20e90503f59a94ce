package a2a

import (
	"fmt"
	"sync"
	"time"
)

// allowedTransitions enumerates the Task state machine from SPEC_FULL.md §4.3.
var allowedTransitions = map[TaskState]map[TaskState]bool{
	TaskSubmitted: {
		TaskWorking: true,
	},
	TaskWorking: {
		TaskWorking:       true,
		TaskInputRequired: true,
		TaskCompleted:     true,
		TaskFailed:        true,
		TaskCanceled:      true,
	},
}

// TaskMachine drives a single Task through its lifecycle, enforcing the
// transition table and the append-only history/artifact invariants. It is
// safe for concurrent use by a single owning agent.
type TaskMachine struct {
	mu   sync.Mutex
	task Task
}

// NewTaskMachine starts a new task in the submitted state.
func NewTaskMachine(taskID, contextID string) *TaskMachine {
	now := time.Now()
	return &TaskMachine{
		task: Task{
			TaskID:    taskID,
			ContextID: contextID,
			State:     TaskSubmitted,
			History:   []StatusUpdate{{State: TaskSubmitted, Timestamp: now}},
			Artifacts: nil,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}

// Snapshot returns a copy of the current task state safe for the caller to
// read without holding the machine's lock.
func (m *TaskMachine) Snapshot() Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cloneLocked()
}

func (m *TaskMachine) cloneLocked() Task {
	t := m.task
	t.History = append([]StatusUpdate(nil), m.task.History...)
	t.Artifacts = append([]Artifact(nil), m.task.Artifacts...)
	return t
}

// Transition moves the task to a new state, appending a history entry.
// `failed` requires a non-empty message; `completed` requires at least one
// artifact already attached via AddArtifact.
func (m *TaskMachine) Transition(state TaskState, message string) (Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.task.State.Terminal() {
		return Task{}, fmt.Errorf("a2a: task %s already in terminal state %s", m.task.TaskID, m.task.State)
	}
	if !allowedTransitions[m.task.State][state] {
		return Task{}, fmt.Errorf("a2a: illegal task transition %s -> %s", m.task.State, state)
	}
	if state == TaskFailed && message == "" {
		return Task{}, fmt.Errorf("a2a: failed transition requires an error message")
	}
	if state == TaskCompleted && len(m.task.Artifacts) == 0 {
		return Task{}, fmt.Errorf("a2a: completed transition requires at least one artifact")
	}

	m.task.State = state
	m.task.UpdatedAt = time.Now()
	m.task.History = append(m.task.History, StatusUpdate{
		State:     state,
		Message:   message,
		Timestamp: m.task.UpdatedAt,
	})
	return m.cloneLocked(), nil
}

// AddArtifact appends an artifact. Artifacts are never mutated once added;
// callers must build the complete artifact before calling this.
func (m *TaskMachine) AddArtifact(a Artifact) (Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.task.State.Terminal() {
		return Task{}, fmt.Errorf("a2a: cannot attach artifact to terminal task %s", m.task.TaskID)
	}
	m.task.Artifacts = append(m.task.Artifacts, a)
	m.task.UpdatedAt = time.Now()
	return m.cloneLocked(), nil
}

// AppendMessage records an inbound/outbound message in arrival order by
// recording a working-state history entry carrying its text; full message
// bodies belong to the caller's own log, the Task only tracks state.
func (m *TaskMachine) AppendMessage(msg Message) (Task, error) {
	return m.Transition(TaskWorking, msg.Text())
}

// TaskUpdate is a single element of the streaming adapter's output sequence:
// the internal {content, is_task_complete, require_user_input} tuple
// translated into an external Task snapshot plus the delta message, per
// SPEC_FULL.md §4.3's streaming-adapter note.
type TaskUpdate struct {
	Task    Task
	Content string
	Final   bool
}

// StreamAdapter translates an internal generator-style callback loop into
// the bounded channel of TaskUpdate values the A2A transport streams to
// callers. It implements the "async generator -> finite ordered sequence"
// guidance from SPEC_FULL.md §9.
type StreamAdapter struct {
	machine *TaskMachine
}

// NewStreamAdapter wraps a TaskMachine for streaming.
func NewStreamAdapter(machine *TaskMachine) *StreamAdapter {
	return &StreamAdapter{machine: machine}
}

// GeneratorStep is one internal step emitted by an agent's business logic,
// matching the original implementation's async-generator tuple shape.
type GeneratorStep struct {
	Content           string
	IsTaskComplete    bool
	RequireUserInput  bool
	ErrorMessage      string
}

// Run drains `steps` from `source`, translating each into a TaskState
// transition and TaskUpdate, and closes the returned channel after the
// terminal state is reached. The channel is always closed, so callers can
// safely `range` over it without a separate completion signal.
func (a *StreamAdapter) Run(source <-chan GeneratorStep) <-chan TaskUpdate {
	out := make(chan TaskUpdate)
	go func() {
		defer close(out)
		for step := range source {
			switch {
			case step.ErrorMessage != "":
				t, err := a.machine.Transition(TaskFailed, step.ErrorMessage)
				if err != nil {
					return
				}
				out <- TaskUpdate{Task: t, Content: step.Content, Final: true}
				return
			case step.RequireUserInput:
				t, err := a.machine.Transition(TaskInputRequired, step.Content)
				if err != nil {
					return
				}
				out <- TaskUpdate{Task: t, Content: step.Content, Final: true}
				return
			case step.IsTaskComplete:
				if step.Content != "" {
					if _, err := a.machine.AddArtifact(Artifact{
						Name:  "result",
						Parts: []Part{NewTextPart(step.Content)},
					}); err != nil {
						return
					}
				}
				t, err := a.machine.Transition(TaskCompleted, "")
				if err != nil {
					return
				}
				out <- TaskUpdate{Task: t, Content: step.Content, Final: true}
				return
			default:
				t, err := a.machine.Transition(TaskWorking, step.Content)
				if err != nil {
					return
				}
				out <- TaskUpdate{Task: t, Content: step.Content, Final: false}
			}
		}
	}()
	return out
}
