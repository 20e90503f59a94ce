package llm_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a2aflow/engine/pkg/llm"
)

func newFakeOpenAI(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"model": "gpt-4",
			"choices": []map[string]interface{}{
				{
					"message":       map[string]string{"role": "assistant", "content": content},
					"finish_reason": "stop",
				},
			},
			"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
		})
	}))
}

func TestOpenAIClient_Generate(t *testing.T) {
	ts := newFakeOpenAI(t, "the answer is 42")
	defer ts.Close()

	client := llm.NewOpenAIClientForTest("test-key", ts.URL, nil)
	resp, err := client.Generate(context.Background(), "what is the answer?", &llm.Options{Model: "gpt-4"})
	require.NoError(t, err)
	assert.Equal(t, "the answer is 42", resp.Content)
	assert.Equal(t, 15, resp.Usage.TotalTokens)
}

func TestOpenAIClient_Stream(t *testing.T) {
	ts := newFakeOpenAI(t, "one two three")
	defer ts.Close()

	client := llm.NewOpenAIClientForTest("test-key", ts.URL, nil)
	ch, err := client.Stream(context.Background(), "count to three", &llm.Options{})
	require.NoError(t, err)

	var chunks []string
	for c := range ch {
		if c.Content != "" {
			chunks = append(chunks, c.Content)
		}
	}
	assert.NotEmpty(t, chunks)
}

func TestOpenAIClient_ProviderInfo(t *testing.T) {
	client := llm.NewOpenAIClientForTest("k", "http://localhost", nil)
	info := client.ProviderInfo()
	assert.Equal(t, "openai", info.Name)
	assert.Contains(t, info.Models, "gpt-4")
}
