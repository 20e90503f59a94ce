package transport_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a2aflow/engine/pkg/a2a"
	"github.com/a2aflow/engine/pkg/transport"
)

type fakeHandler struct {
	machine *a2a.TaskMachine
}

func newFakeHandler() *fakeHandler {
	return &fakeHandler{machine: a2a.NewTaskMachine("task-1", "ctx-1")}
}

func (h *fakeHandler) SendMessage(ctx context.Context, msg a2a.Message) (a2a.Task, error) {
	if _, err := h.machine.Transition(a2a.TaskWorking, msg.Text()); err != nil {
		return a2a.Task{}, err
	}
	if _, err := h.machine.AddArtifact(a2a.Artifact{
		Name:  "result",
		Parts: []a2a.Part{a2a.NewTextPart("echo: " + msg.Text())},
	}); err != nil {
		return a2a.Task{}, err
	}
	return h.machine.Transition(a2a.TaskCompleted, "")
}

func (h *fakeHandler) CancelTask(ctx context.Context, taskID string) (a2a.Task, error) {
	if h.machine.Snapshot().State == a2a.TaskSubmitted {
		if _, err := h.machine.Transition(a2a.TaskWorking, ""); err != nil {
			return a2a.Task{}, err
		}
	}
	return h.machine.Transition(a2a.TaskCanceled, "")
}

type fakeCards struct{ card a2a.AgentCard }

func (f fakeCards) AgentCard() a2a.AgentCard { return f.card }

type fakeHealth struct{}

func (fakeHealth) Health(ctx context.Context) (string, map[string]interface{}) {
	return "healthy", nil
}

func newTestServer(t *testing.T) (*httptest.Server, *fakeHandler) {
	t.Helper()
	handler := newFakeHandler()
	card := a2a.AgentCard{
		Name: "echo-agent", URL: "http://echo", Version: "1.0.0",
		DefaultInputModes: []string{"text/plain"}, DefaultOutputModes: []string{"text/plain"},
	}
	srv := transport.NewServer(handler, fakeCards{card: card}, fakeHealth{}, nil)
	return httptest.NewServer(srv.Router()), handler
}

func TestClientServer_SendMessageRoundTrip(t *testing.T) {
	ts, _ := newTestServer(t)
	defer ts.Close()

	client := transport.NewClient("echo-agent", ts.URL, nil, nil)
	task, err := client.SendMessage(context.Background(), a2a.Message{
		Role:      a2a.RoleUser,
		Parts:     []a2a.Part{a2a.NewTextPart("hello")},
		MessageID: "m1",
	}, time.Second)

	require.NoError(t, err)
	assert.Equal(t, a2a.TaskCompleted, task.State)
	require.Len(t, task.Artifacts, 1)
	assert.Equal(t, "echo: hello", task.Artifacts[0].Parts[0].Text)
}

func TestClientServer_GetAgentCard(t *testing.T) {
	ts, _ := newTestServer(t)
	defer ts.Close()

	client := transport.NewClient("echo-agent", ts.URL, nil, nil)
	card, err := client.GetAgentCard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "echo-agent", card.Name)
}

func TestClientServer_Health(t *testing.T) {
	ts, _ := newTestServer(t)
	defer ts.Close()

	client := transport.NewClient("echo-agent", ts.URL, nil, nil)
	result, err := client.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", result.Status)
}

func TestClientServer_CancelTask(t *testing.T) {
	ts, _ := newTestServer(t)
	defer ts.Close()

	client := transport.NewClient("echo-agent", ts.URL, nil, nil)
	task, err := client.CancelTask(context.Background(), "task-1")
	require.NoError(t, err)
	assert.Equal(t, a2a.TaskCanceled, task.State)
}

func TestResponse_ValidateRejectsBadEnvelope(t *testing.T) {
	resp := &transport.Response{JSONRPC: "1.0"}
	assert.Error(t, resp.Validate())

	resp = &transport.Response{JSONRPC: "2.0"}
	assert.Error(t, resp.Validate(), "must have exactly one of result/error")
}
