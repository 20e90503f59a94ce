package a2a_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a2aflow/engine/pkg/a2a"
)

func TestTaskMachine_HappyPath(t *testing.T) {
	m := a2a.NewTaskMachine("task-1", "ctx-1")
	task := m.Snapshot()
	assert.Equal(t, a2a.TaskSubmitted, task.State)

	task, err := m.Transition(a2a.TaskWorking, "started")
	require.NoError(t, err)
	assert.Equal(t, a2a.TaskWorking, task.State)

	task, err = m.AddArtifact(a2a.Artifact{Name: "result", Parts: []a2a.Part{a2a.NewTextPart("done")}})
	require.NoError(t, err)
	require.Len(t, task.Artifacts, 1)

	task, err = m.Transition(a2a.TaskCompleted, "")
	require.NoError(t, err)
	assert.True(t, task.State.Terminal())
	assert.Len(t, task.History, 3)
}

func TestTaskMachine_RejectsIllegalTransition(t *testing.T) {
	m := a2a.NewTaskMachine("task-1", "ctx-1")
	_, err := m.Transition(a2a.TaskCompleted, "")
	assert.Error(t, err)
}

func TestTaskMachine_CompletedRequiresArtifact(t *testing.T) {
	m := a2a.NewTaskMachine("task-1", "ctx-1")
	_, err := m.Transition(a2a.TaskWorking, "")
	require.NoError(t, err)
	_, err = m.Transition(a2a.TaskCompleted, "")
	assert.Error(t, err)
}

func TestTaskMachine_FailedRequiresMessage(t *testing.T) {
	m := a2a.NewTaskMachine("task-1", "ctx-1")
	_, err := m.Transition(a2a.TaskWorking, "")
	require.NoError(t, err)
	_, err = m.Transition(a2a.TaskFailed, "")
	assert.Error(t, err)
}

func TestTaskMachine_NoTransitionsAfterTerminal(t *testing.T) {
	m := a2a.NewTaskMachine("task-1", "ctx-1")
	_, err := m.Transition(a2a.TaskWorking, "")
	require.NoError(t, err)
	_, err = m.Transition(a2a.TaskCanceled, "")
	require.NoError(t, err)

	_, err = m.Transition(a2a.TaskWorking, "")
	assert.Error(t, err)
}

func TestStreamAdapter_CompletesWithArtifact(t *testing.T) {
	m := a2a.NewTaskMachine("task-1", "ctx-1")
	adapter := a2a.NewStreamAdapter(m)

	source := make(chan a2a.GeneratorStep, 3)
	source <- a2a.GeneratorStep{Content: "thinking"}
	source <- a2a.GeneratorStep{Content: "final answer", IsTaskComplete: true}
	close(source)

	var updates []a2a.TaskUpdate
	for u := range adapter.Run(source) {
		updates = append(updates, u)
	}

	require.Len(t, updates, 2)
	assert.False(t, updates[0].Final)
	assert.True(t, updates[1].Final)
	assert.Equal(t, a2a.TaskCompleted, updates[1].Task.State)
	require.Len(t, updates[1].Task.Artifacts, 1)
}

func TestStreamAdapter_StopsOnError(t *testing.T) {
	m := a2a.NewTaskMachine("task-1", "ctx-1")
	adapter := a2a.NewStreamAdapter(m)

	source := make(chan a2a.GeneratorStep, 2)
	source <- a2a.GeneratorStep{Content: "working"}
	source <- a2a.GeneratorStep{ErrorMessage: "agent exploded"}
	close(source)

	var updates []a2a.TaskUpdate
	for u := range adapter.Run(source) {
		updates = append(updates, u)
	}

	require.Len(t, updates, 2)
	assert.Equal(t, a2a.TaskFailed, updates[1].Task.State)
}

func TestStreamAdapter_RequiresUserInput(t *testing.T) {
	m := a2a.NewTaskMachine("task-1", "ctx-1")
	adapter := a2a.NewStreamAdapter(m)

	source := make(chan a2a.GeneratorStep, 1)
	source <- a2a.GeneratorStep{Content: "which city?", RequireUserInput: true}
	close(source)

	var updates []a2a.TaskUpdate
	for u := range adapter.Run(source) {
		updates = append(updates, u)
	}

	require.Len(t, updates, 1)
	assert.Equal(t, a2a.TaskInputRequired, updates[0].Task.State)
	assert.True(t, updates[0].Final)
}
