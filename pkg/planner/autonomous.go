package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/a2aflow/engine/pkg/a2a"
	"github.com/a2aflow/engine/pkg/llm"
	"github.com/a2aflow/engine/pkg/logger"
	"github.com/a2aflow/engine/pkg/resilience"
)

var plannerTracer = otel.Tracer("a2aflow.planner")

// LLMPlanner prompts a language model with the query and the static agent
// catalog, parses its JSON plan, and validates it. Adapted from
// pkg/routing/autonomous.go's AutonomousRouter.
type LLMPlanner struct {
	client      llm.Client
	catalog     *Catalog
	cache       *Cache
	breaker     *resilience.CircuitBreaker
	logger      logger.Logger
	model       string
	temperature float64
	maxRetries  int
	cacheTTL    time.Duration
}

// Option configures an LLMPlanner.
type Option func(*LLMPlanner)

func WithModel(model string) Option           { return func(p *LLMPlanner) { p.model = model } }
func WithTemperature(t float64) Option        { return func(p *LLMPlanner) { p.temperature = t } }
func WithCache(c *Cache) Option               { return func(p *LLMPlanner) { p.cache = c } }
func WithCacheTTL(ttl time.Duration) Option   { return func(p *LLMPlanner) { p.cacheTTL = ttl } }
func WithLogger(l logger.Logger) Option       { return func(p *LLMPlanner) { p.logger = l } }
func WithMaxRetries(n int) Option             { return func(p *LLMPlanner) { p.maxRetries = n } }

// NewLLMPlanner builds an LLMPlanner with teacher-matching defaults: model
// "gpt-4", temperature 0.3, up to 3 retries, a 5 minute plan cache.
func NewLLMPlanner(client llm.Client, catalog *Catalog, breaker *resilience.CircuitBreaker, opts ...Option) *LLMPlanner {
	p := &LLMPlanner{
		client:      client,
		catalog:     catalog,
		breaker:     breaker,
		logger:      logger.NewDefaultLogger(),
		model:       "gpt-4",
		temperature: 0.3,
		maxRetries:  3,
		cache:       NewCache(1000, 5*time.Minute),
		cacheTTL:    5 * time.Minute,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *LLMPlanner) Plan(ctx context.Context, query, contextID string) (a2a.ExecutionPlan, error) {
	ctx, span := plannerTracer.Start(ctx, "planner.LLMPlanner.Plan",
		trace.WithAttributes(attribute.Int("query.length", len(query))))
	defer span.End()

	if cached, ok := p.cache.Get(query); ok {
		return cached, nil
	}

	plan, err := p.generate(ctx, query, contextID)
	if err != nil {
		span.RecordError(err)
		return a2a.ExecutionPlan{}, err
	}
	if err := a2a.ValidatePlan(plan); err != nil {
		span.RecordError(err)
		return a2a.ExecutionPlan{}, err
	}
	p.cache.Set(query, plan, p.cacheTTL)
	return plan, nil
}

func (p *LLMPlanner) generate(ctx context.Context, query, contextID string) (a2a.ExecutionPlan, error) {
	prompt := p.buildPrompt(query)

	var response *llm.Response
	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * time.Second):
			case <-ctx.Done():
				return a2a.ExecutionPlan{}, ctx.Err()
			}
		}
		callErr := p.breaker.Execute(ctx, func(ctx context.Context) error {
			resp, err := p.client.Generate(ctx, prompt, &llm.Options{
				Model:        p.model,
				Temperature:  p.temperature,
				MaxTokens:    1000,
				SystemPrompt: "You are a planning assistant that decomposes requests into agent execution plans.",
			})
			if err != nil {
				return err
			}
			response = resp
			return nil
		})
		if callErr == nil {
			lastErr = nil
			break
		}
		lastErr = callErr
	}
	if lastErr != nil {
		return a2a.ExecutionPlan{}, a2a.NewError("LLMPlanner.generate", a2a.KindPlanInvalid, "LLM call failed", lastErr)
	}

	return p.parseResponse(query, response.Content)
}

// buildPrompt lists the agent catalog and the strict JSON response schema,
// adapted from pkg/routing/autonomous.go's buildLLMPrompt.
func (p *LLMPlanner) buildPrompt(query string) string {
	var b strings.Builder
	b.WriteString("AVAILABLE AGENTS:\n")
	b.WriteString(p.catalog.PromptSummary())
	b.WriteString("\nUSER REQUEST:\n")
	b.WriteString(query)
	b.WriteString("\n\nTASK:\nDecompose the request into a sequence of agent calls. ")
	b.WriteString("Prefer the fewest steps that fully answer the request. ")
	b.WriteString("Use \"parallel\" when steps are independent, \"sequential\" when each depends on the prior one's result, ")
	b.WriteString("and \"hybrid\" for an arbitrary dependency graph.\n\n")
	b.WriteString("RESPONSE FORMAT (strict JSON, no prose):\n")
	b.WriteString(`{"execution_type":"sequential","steps":[{"order":0,"agent":"agent_id","task":"instruction","depends_on":[]}]}`)
	return b.String()
}

type llmStep struct {
	Order     int    `json:"order"`
	Agent     string `json:"agent"`
	Task      string `json:"task"`
	DependsOn []int  `json:"depends_on"`
}

type llmPlanPayload struct {
	ExecutionType string    `json:"execution_type"`
	Steps         []llmStep `json:"steps"`
}

// parseResponse extracts the JSON object between the first `{` and last `}`
// and converts it into an a2a.ExecutionPlan, adapted from
// pkg/routing/autonomous.go's parseLLMResponse.
func (p *LLMPlanner) parseResponse(query, content string) (a2a.ExecutionPlan, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end < start {
		return a2a.ExecutionPlan{}, a2a.NewError("LLMPlanner.parseResponse", a2a.KindPlanInvalid, "no JSON object in LLM response", nil)
	}

	var payload llmPlanPayload
	if err := json.Unmarshal([]byte(content[start:end+1]), &payload); err != nil {
		return a2a.ExecutionPlan{}, a2a.NewError("LLMPlanner.parseResponse", a2a.KindPlanInvalid, "malformed plan JSON", err)
	}

	steps := make([]a2a.ExecutionStep, 0, len(payload.Steps))
	for _, s := range payload.Steps {
		if !p.catalog.Has(s.Agent) {
			return a2a.ExecutionPlan{}, a2a.NewError("LLMPlanner.parseResponse", a2a.KindPlanInvalid,
				fmt.Sprintf("unknown agent %q", s.Agent), nil)
		}
		steps = append(steps, a2a.ExecutionStep{
			Index:        s.Order,
			AgentID:      s.Agent,
			TaskText:     s.Task,
			Dependencies: s.DependsOn,
			Timeout:      30 * time.Second,
		})
	}

	return a2a.ExecutionPlan{
		ID:            fmt.Sprintf("plan-%s", uuid.New().String()[:8]),
		OriginalQuery: query,
		Steps:         steps,
		ExecutionType: a2a.ExecutionType(payload.ExecutionType),
		Confidence:    0.8,
		CreatedAt:     time.Now(),
	}, nil
}
