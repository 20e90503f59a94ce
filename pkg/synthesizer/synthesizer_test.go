package synthesizer_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/a2aflow/engine/pkg/a2a"
	"github.com/a2aflow/engine/pkg/synthesizer"
)

func TestSynthesize_SingleStepPassthrough(t *testing.T) {
	s := synthesizer.New(nil, nil)
	results := []a2a.StepResult{{StepIndex: 0, AgentID: "weather", Status: a2a.StepSuccess, Success: true, Text: "sunny"}}

	text := s.Synthesize(context.Background(), "how's the weather", results)
	assert.Equal(t, "sunny", text)
}

func TestSynthesize_MultiStepConcatenationFallback(t *testing.T) {
	s := synthesizer.New(nil, nil)
	results := []a2a.StepResult{
		{StepIndex: 0, AgentID: "weather", Status: a2a.StepSuccess, Success: true, Text: "sunny"},
		{StepIndex: 1, AgentID: "news", Status: a2a.StepSuccess, Success: true, Text: "headline"},
	}

	text := s.Synthesize(context.Background(), "weather and news", results)
	assert.Equal(t, "**weather**: sunny\n\n**news**: headline", text)
}

func TestSynthesize_MarksFailuresAndDependencySkips(t *testing.T) {
	s := synthesizer.New(nil, nil)
	results := []a2a.StepResult{
		{StepIndex: 0, AgentID: "search", Status: a2a.StepFailure, Success: false, Error: "timeout"},
		{StepIndex: 1, AgentID: "summarize", Status: a2a.StepSkipped, Success: false, Error: "dependency_failed"},
	}

	text := s.Synthesize(context.Background(), "find and summarize", results)
	assert.Contains(t, text, "search: timeout")
	assert.Contains(t, text, "summarize: dependency_failed")
}

func TestSynthesize_DropsCancellationOnlySkips(t *testing.T) {
	s := synthesizer.New(nil, nil)
	results := []a2a.StepResult{
		{StepIndex: 0, AgentID: "slow", Status: a2a.StepCanceled, Success: false, Error: "context deadline exceeded"},
		{StepIndex: 1, AgentID: "after", Status: a2a.StepSkipped, Success: false, Error: "context deadline exceeded"},
	}

	text := s.Synthesize(context.Background(), "run something slow", results)
	assert.Equal(t, "No agents produced a response.", text)
}

func TestSynthesize_InterleavesSuccessesAndFailuresInOrder(t *testing.T) {
	s := synthesizer.New(nil, nil)
	results := []a2a.StepResult{
		{StepIndex: 0, AgentID: "weather", Status: a2a.StepSuccess, Success: true, Text: "sunny"},
		{StepIndex: 1, AgentID: "search", Status: a2a.StepFailure, Success: false, Error: "timeout"},
		{StepIndex: 2, AgentID: "news", Status: a2a.StepSuccess, Success: true, Text: "headline"},
	}

	text := s.Synthesize(context.Background(), "weather, search, news", results)
	assert.Equal(t, "**weather**: sunny\n\n- search: timeout\n\n**news**: headline", text)
}
