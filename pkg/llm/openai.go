package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/a2aflow/engine/pkg/logger"
)

// OpenAIClient implements Client against the OpenAI chat-completions API,
// adapted from pkg/ai/openai.go's OpenAIClient.
type OpenAIClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     logger.Logger
}

// NewOpenAIClient builds an OpenAIClient pointed at the public API.
func NewOpenAIClient(apiKey string, log logger.Logger) *OpenAIClient {
	return newOpenAIClient(apiKey, "https://api.openai.com/v1", log)
}

// NewOpenAIClientForTest builds an OpenAIClient pointed at baseURL, letting
// tests substitute an httptest.Server for the real API.
func NewOpenAIClientForTest(apiKey, baseURL string, log logger.Logger) *OpenAIClient {
	return newOpenAIClient(apiKey, baseURL, log)
}

func newOpenAIClient(apiKey, baseURL string, log logger.Logger) *OpenAIClient {
	if log == nil {
		log = logger.NewDefaultLogger()
	}
	return &OpenAIClient{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     log,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Generate sends prompt (with an optional system message) to
// /chat/completions and returns the parsed Response.
func (c *OpenAIClient) Generate(ctx context.Context, prompt string, opts *Options) (*Response, error) {
	if opts == nil {
		opts = &Options{}
	}
	model := opts.Model
	if model == "" {
		model = "gpt-4"
	}

	messages := make([]chatMessage, 0, 2)
	if opts.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: opts.SystemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	req := chatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}

	body, err := c.post(ctx, "/chat/completions", req)
	if err != nil {
		return nil, err
	}

	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("llm: decode openai response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("llm: openai response had no choices")
	}

	return &Response{
		Content:      resp.Choices[0].Message.Content,
		Model:        resp.Model,
		FinishReason: resp.Choices[0].FinishReason,
		Usage: TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
		Confidence: 1.0,
	}, nil
}

// Stream simulates token streaming by generating the full response and
// trickling it out word by word, matching pkg/ai/openai.go's
// StreamResponse (OpenAI's actual SSE streaming is not used here).
func (c *OpenAIClient) Stream(ctx context.Context, prompt string, opts *Options) (<-chan StreamChunk, error) {
	resp, err := c.Generate(ctx, prompt, opts)
	if err != nil {
		return nil, err
	}

	ch := make(chan StreamChunk, 8)
	go func() {
		defer close(ch)
		words := strings.Fields(resp.Content)
		for i, w := range words {
			chunk := w
			if i < len(words)-1 {
				chunk += " "
			}
			select {
			case ch <- StreamChunk{Content: chunk, ChunkType: "content"}:
			case <-ctx.Done():
				return
			}
			select {
			case <-time.After(50 * time.Millisecond):
			case <-ctx.Done():
				return
			}
		}
		select {
		case ch <- StreamChunk{IsComplete: true, ChunkType: "metadata"}:
		case <-ctx.Done():
		}
	}()
	return ch, nil
}

func (c *OpenAIClient) ProviderInfo() ProviderInfo {
	return ProviderInfo{
		Name:         "openai",
		Models:       []string{"gpt-4", "gpt-4-turbo", "gpt-3.5-turbo"},
		Capabilities: []string{"generate", "stream"},
		Version:      "v1",
	}
}

func (c *OpenAIClient) post(ctx context.Context, endpoint string, payload interface{}) ([]byte, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("llm: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("llm: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("llm: openai request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("llm: read response body: %w", err)
	}
	if resp.StatusCode >= 400 {
		c.logger.Error("openai request failed", "status", resp.StatusCode, "body", string(body))
		return nil, fmt.Errorf("llm: openai returned status %d", resp.StatusCode)
	}
	return body, nil
}
