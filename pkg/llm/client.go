// Package llm is the language-model abstraction shared by the Planner and
// Synthesizer, adapted from pkg/ai/interfaces.go (renamed to match this
// module's vocabulary; the OpenAI provider in openai.go is adapted from
// pkg/ai/openai.go unchanged in behavior).
package llm

import "context"

// Client provides a unified interface over language-model providers.
type Client interface {
	Generate(ctx context.Context, prompt string, opts *Options) (*Response, error)
	Stream(ctx context.Context, prompt string, opts *Options) (<-chan StreamChunk, error)
	ProviderInfo() ProviderInfo
}

// Options configures one generation call.
type Options struct {
	Model        string
	Temperature  float64
	MaxTokens    int
	SystemPrompt string
}

// Response is a complete model response.
type Response struct {
	Content      string
	Model        string
	Usage        TokenUsage
	FinishReason string
	Confidence   float64
}

// StreamChunk is one piece of a streaming response.
type StreamChunk struct {
	Content    string
	IsComplete bool
	ChunkType  string // "content" | "metadata" | "error"
	Error      error
}

// TokenUsage tracks provider token accounting.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// ProviderInfo describes a provider's capabilities.
type ProviderInfo struct {
	Name         string
	Models       []string
	Capabilities []string
	Version      string
}
