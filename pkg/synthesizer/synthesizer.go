// Package synthesizer turns a scheduler run's []a2a.StepResult into the
// single response text returned to the caller: a passthrough for one-step
// plans, and an LLM-driven reduction with a deterministic concatenation
// fallback for multi-step plans. Adapted from
// pkg/orchestration/synthesizer.go's ResponseSynthesizer, reduced from its
// four-strategy (LLM/template/simple/custom) selector to the two paths
// SPEC_FULL.md §4.6 specifies.
package synthesizer

import (
	"context"
	"fmt"
	"strings"

	"github.com/a2aflow/engine/pkg/a2a"
	"github.com/a2aflow/engine/pkg/llm"
	"github.com/a2aflow/engine/pkg/logger"
)

var cancellationErrors = map[string]bool{
	context.Canceled.Error():         true,
	context.DeadlineExceeded.Error(): true,
}

// Synthesizer reduces step results into final response text.
type Synthesizer struct {
	client llm.Client
	logger logger.Logger
}

// New builds a Synthesizer. client may be nil, in which case every
// multi-step plan uses the concatenation fallback.
func New(client llm.Client, log logger.Logger) *Synthesizer {
	if log == nil {
		log = logger.NewDefaultLogger()
	}
	return &Synthesizer{client: client, logger: log}
}

// Synthesize produces the final response text for query given the
// scheduler's step results, in step-index order.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, results []a2a.StepResult) string {
	if len(results) == 1 {
		return results[0].Text
	}

	if s.client != nil {
		if text, err := s.synthesizeWithLLM(ctx, query, results); err == nil {
			return text
		} else {
			s.logger.Warn("llm synthesis failed, falling back to concatenation", "error", err.Error())
		}
	}
	return s.concatenate(results)
}

// synthesizeWithLLM prompts the model to reduce the step results into one
// coherent answer, adapted from ResponseSynthesizer.synthesizeWithLLM.
func (s *Synthesizer) synthesizeWithLLM(ctx context.Context, query string, results []a2a.StepResult) (string, error) {
	resp, err := s.client.Generate(ctx, s.buildPrompt(query, results), &llm.Options{
		Temperature:  0.3,
		MaxTokens:    1000,
		SystemPrompt: "You are a helpful assistant that synthesizes information from multiple agents into a single, coherent, comprehensive response. Be concise but complete.",
	})
	if err != nil {
		return "", fmt.Errorf("synthesizer: llm call failed: %w", err)
	}
	return resp.Content, nil
}

func (s *Synthesizer) buildPrompt(query string, results []a2a.StepResult) string {
	var b strings.Builder
	b.WriteString("USER REQUEST:\n")
	b.WriteString(query)
	b.WriteString("\n\nAGENT RESPONSES:\n\n")
	for _, r := range results {
		if r.Success {
			b.WriteString(fmt.Sprintf("Agent: %s\nResponse: %s\n\n", r.AgentID, r.Text))
		} else if r.Status != a2a.StepSkipped {
			b.WriteString(fmt.Sprintf("Agent: %s\nStatus: FAILED - %s\n\n", r.AgentID, r.Error))
		}
	}
	b.WriteString("TASK:\nCombine the above into one response addressing the user's request. If some agents failed, work with what succeeded.")
	return b.String()
}

// concatenate is the deterministic fallback: one line per step in
// declaration order, success as "**agent**: text" and failure as an
// explicit error marker, per SPEC_FULL.md §4.6. Steps skipped purely due to
// cancellation are dropped rather than marked as errors, since they never
// represent a real agent failure.
func (s *Synthesizer) concatenate(results []a2a.StepResult) string {
	var lines []string
	for _, r := range results {
		switch {
		case r.Success:
			if r.Text != "" {
				lines = append(lines, fmt.Sprintf("**%s**: %s", r.AgentID, r.Text))
			}
		case isCancellation(r):
			// never started or was interrupted solely because the run was
			// canceled; not a failure worth surfacing.
		default:
			lines = append(lines, fmt.Sprintf("- %s: %s", r.AgentID, r.Error))
		}
	}
	if len(lines) == 0 {
		return "No agents produced a response."
	}
	return strings.Join(lines, "\n\n")
}

func isCancellation(r a2a.StepResult) bool {
	if r.Status == a2a.StepCanceled {
		return true
	}
	return r.Status == a2a.StepSkipped && cancellationErrors[r.Error]
}
