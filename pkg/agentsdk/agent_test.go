package agentsdk_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a2aflow/engine/pkg/a2a"
	"github.com/a2aflow/engine/pkg/agentsdk"
)

func echoSkill() agentsdk.Skill {
	return agentsdk.Skill{
		ID:          "echo",
		Name:        "Echo",
		Description: "echoes the task text back",
		InputModes:  []string{"text/plain"},
		OutputModes: []string{"text/plain"},
		Handler: func(ctx context.Context, taskText string) <-chan a2a.GeneratorStep {
			out := make(chan a2a.GeneratorStep, 2)
			go func() {
				defer close(out)
				out <- a2a.GeneratorStep{Content: "working on it"}
				out <- a2a.GeneratorStep{Content: "echo: " + taskText, IsTaskComplete: true}
			}()
			return out
		},
	}
}

func TestAgent_SendMessageDrainsToCompletion(t *testing.T) {
	a := agentsdk.New("echo-agent")
	a.RegisterSkill(echoSkill())

	task, err := a.SendMessage(context.Background(), a2a.Message{
		Role:  a2a.RoleUser,
		Parts: []a2a.Part{a2a.NewTextPart("hello")},
	})
	require.NoError(t, err)
	assert.Equal(t, a2a.TaskCompleted, task.State)
	require.Len(t, task.Artifacts, 1)
	assert.Equal(t, "echo: hello", task.Artifacts[0].Parts[0].Text)
}

func TestAgent_NoSkillsErrors(t *testing.T) {
	a := agentsdk.New("empty-agent")
	_, err := a.SendMessage(context.Background(), a2a.Message{Parts: []a2a.Part{a2a.NewTextPart("hi")}})
	assert.Error(t, err)
}

func TestAgent_CancelUnknownTaskErrors(t *testing.T) {
	a := agentsdk.New("slow-agent")
	block := make(chan struct{})
	a.RegisterSkill(agentsdk.Skill{
		ID: "slow",
		Handler: func(ctx context.Context, taskText string) <-chan a2a.GeneratorStep {
			out := make(chan a2a.GeneratorStep)
			go func() {
				defer close(out)
				<-block
			}()
			return out
		},
	})

	// Cancel a task id the agent has never seen should fail.
	_, err := a.CancelTask(context.Background(), "unseen")
	assert.Error(t, err)
	close(block)
}

func TestAgent_AgentCardReflectsSkills(t *testing.T) {
	a := agentsdk.New("weather-agent", agentsdk.WithVersion("1.2.3"), agentsdk.WithURL("http://weather:8080"))
	a.RegisterSkill(echoSkill())

	card := a.AgentCard()
	assert.Equal(t, "weather-agent", card.Name)
	assert.Equal(t, "1.2.3", card.Version)
	require.Len(t, card.Skills, 1)
	assert.Equal(t, "echo", card.Skills[0].ID)
	assert.Contains(t, card.DefaultInputModes, "text/plain")
}

func TestAgent_RouterServesCardHealthAndSchema(t *testing.T) {
	a := agentsdk.New("echo-agent", agentsdk.WithURL("http://echo"))
	a.RegisterSkill(echoSkill())

	ts := httptest.NewServer(a.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/.well-known/agent-card.json")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var card a2a.AgentCard
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&card))
	assert.Equal(t, "echo-agent", card.Name)

	resp, err = http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/skills/echo/schema")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var schema map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&schema))
	assert.Equal(t, "Echo", schema["title"])

	resp, err = http.Get(ts.URL + "/skills/missing/schema")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
