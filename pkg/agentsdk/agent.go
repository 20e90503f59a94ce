// Package agentsdk provides the shared harness a collaborating agent embeds:
// a capability (skill) registry, agent-card/health serving, and the
// send_message/cancel_task JSON-RPC dispatch required by SPEC_FULL.md §4.7.
// Adapted from core/tool.go's BaseTool (capability registration, standard
// endpoints) generalized from Tool's generic capability handler to the A2A
// task lifecycle, and from core/agent.go's Start/Shutdown lifecycle.
package agentsdk

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/a2aflow/engine/pkg/a2a"
	"github.com/a2aflow/engine/pkg/logger"
	"github.com/a2aflow/engine/pkg/metrics"
)

// Skill is a registered capability: its declarative metadata (served on the
// agent card) plus the generator-style handler that does the work. Handler
// emits a2a.GeneratorStep values the same way the original implementation's
// async generator does; the SDK drains them through a StreamAdapter and
// returns the final Task synchronously to the JSON-RPC caller.
type Skill struct {
	ID          string
	Name        string
	Description string
	Tags        []string
	Examples    []string
	InputModes  []string
	OutputModes []string
	Handler     func(ctx context.Context, taskText string) <-chan a2a.GeneratorStep
}

// Agent is the embeddable harness implementing transport.Handler,
// transport.CardProvider and transport.HealthProvider. A binary constructs
// one, registers its skills, and hands it to transport.NewServer.
type Agent struct {
	id           string
	name         string
	description  string
	version      string
	url          string
	capabilities a2a.AgentCapabilities

	mu     sync.RWMutex
	skills []Skill

	tasksMu sync.Mutex
	tasks   map[string]*a2a.TaskMachine

	logger         logger.Logger
	metrics        metrics.Sink
	metricsHandler http.Handler
	startedAt      time.Time
}

// Option configures an Agent at construction time.
type Option func(*Agent)

// WithDescription sets the agent card's description.
func WithDescription(d string) Option { return func(a *Agent) { a.description = d } }

// WithVersion sets the agent card's version (default "0.1.0").
func WithVersion(v string) Option { return func(a *Agent) { a.version = v } }

// WithURL sets the agent card's advertised base URL.
func WithURL(u string) Option { return func(a *Agent) { a.url = u } }

// WithLogger overrides the default logger.
func WithLogger(l logger.Logger) Option { return func(a *Agent) { a.logger = l } }

// WithMetrics overrides the default no-op metrics sink.
func WithMetrics(m metrics.Sink) Option { return func(a *Agent) { a.metrics = m } }

// WithMetricsHandler supplies the http.Handler Serve mounts on the
// auxiliary metrics port (e.g. the handler returned alongside
// metrics.NewPrometheusSink). Without it, Serve starts only the main port.
func WithMetricsHandler(h http.Handler) Option { return func(a *Agent) { a.metricsHandler = h } }

// WithStreaming advertises the streaming capability bit on the agent card.
// The JSON-RPC transport in this module still returns one final Task per
// send_message call; this only affects what the card declares.
func WithStreaming(enabled bool) Option {
	return func(a *Agent) { a.capabilities.Streaming = enabled }
}

// New builds an Agent with no skills registered yet.
func New(name string, opts ...Option) *Agent {
	a := &Agent{
		id:        fmt.Sprintf("%s-%s", name, uuid.New().String()[:8]),
		name:      name,
		version:   "0.1.0",
		tasks:     make(map[string]*a2a.TaskMachine),
		startedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = logger.NewDefaultLogger()
	}
	if a.metrics == nil {
		a.metrics = metrics.NewNoop()
	}
	return a
}

// RegisterSkill adds a skill to the registry. The first registered skill is
// used as the default dispatch target for send_message, matching this
// module's one-skill-per-agent convention; agents advertising more than one
// skill still route every inbound message to the first.
func (a *Agent) RegisterSkill(s Skill) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.skills = append(a.skills, s)
	a.logger.Info("registered skill", "agent", a.name, "skill_id", s.ID)
}

// Skills returns a copy of the registered skills, in registration order.
func (a *Agent) Skills() []Skill {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]Skill, len(a.skills))
	copy(out, a.skills)
	return out
}

// SkillByID looks up a registered skill, reporting whether it exists.
func (a *Agent) SkillByID(id string) (Skill, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, s := range a.skills {
		if s.ID == id {
			return s, true
		}
	}
	return Skill{}, false
}

// AgentCard builds the self-describing document served at
// /.well-known/agent-card.json.
func (a *Agent) AgentCard() a2a.AgentCard {
	a.mu.RLock()
	defer a.mu.RUnlock()

	skills := make([]a2a.Skill, 0, len(a.skills))
	inputModes := map[string]bool{}
	outputModes := map[string]bool{}
	for _, s := range a.skills {
		skills = append(skills, a2a.Skill{
			ID:          s.ID,
			Name:        s.Name,
			Description: s.Description,
			Tags:        s.Tags,
			Examples:    s.Examples,
			InputModes:  s.InputModes,
			OutputModes: s.OutputModes,
		})
		for _, m := range s.InputModes {
			inputModes[m] = true
		}
		for _, m := range s.OutputModes {
			outputModes[m] = true
		}
	}
	if len(inputModes) == 0 {
		inputModes["text/plain"] = true
	}
	if len(outputModes) == 0 {
		outputModes["text/plain"] = true
	}

	return a2a.AgentCard{
		Name:               a.name,
		Description:        a.description,
		URL:                a.url,
		Version:            a.version,
		DefaultInputModes:  keys(inputModes),
		DefaultOutputModes: keys(outputModes),
		Capabilities:       a.capabilities,
		Skills:             skills,
	}
}

func keys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// Health reports "healthy" unconditionally: the skeleton has no dependency
// of its own to probe; a binary embedding it can wrap Health with its own
// resilience.HealthChecker for downstream dependencies.
func (a *Agent) Health(ctx context.Context) (string, map[string]interface{}) {
	return "healthy", map[string]interface{}{
		"uptime_seconds": time.Since(a.startedAt).Seconds(),
		"skills":         len(a.Skills()),
	}
}

// SendMessage dispatches to the agent's default skill, draining its
// generator through a StreamAdapter and returning the final Task snapshot.
func (a *Agent) SendMessage(ctx context.Context, msg a2a.Message) (a2a.Task, error) {
	skills := a.Skills()
	if len(skills) == 0 {
		return a2a.Task{}, fmt.Errorf("agentsdk: agent %s has no registered skills", a.name)
	}
	skill := skills[0]

	taskID := msg.TaskID
	if taskID == "" {
		taskID = uuid.New().String()
	}
	contextID := msg.ContextID
	if contextID == "" {
		contextID = uuid.New().String()
	}

	machine := a2a.NewTaskMachine(taskID, contextID)
	a.tasksMu.Lock()
	a.tasks[taskID] = machine
	a.tasksMu.Unlock()

	start := time.Now()
	adapter := a2a.NewStreamAdapter(machine)
	updates := adapter.Run(skill.Handler(ctx, msg.Text()))

	var last a2a.TaskUpdate
	for u := range updates {
		last = u
	}

	status := "success"
	if last.Task.State != a2a.TaskCompleted {
		status = "error"
		a.metrics.ErrorsTotal(a.name, string(last.Task.State))
	}
	a.metrics.RequestsTotal(a.name, skill.ID, status)
	a.metrics.RequestDuration(a.name, skill.ID, time.Since(start))

	if last.Task.TaskID == "" {
		return a2a.Task{}, fmt.Errorf("agentsdk: skill %s produced no terminal update", skill.ID)
	}
	return last.Task, nil
}

// CancelTask moves a known task to the canceled state. A task still in
// TaskSubmitted (never transitioned to working, e.g. canceled before its
// handler goroutine made progress) is first moved to working, since the
// state machine has no direct submitted->canceled edge.
func (a *Agent) CancelTask(ctx context.Context, taskID string) (a2a.Task, error) {
	a.tasksMu.Lock()
	machine, ok := a.tasks[taskID]
	a.tasksMu.Unlock()
	if !ok {
		return a2a.Task{}, fmt.Errorf("agentsdk: unknown task %s", taskID)
	}

	if machine.Snapshot().State == a2a.TaskSubmitted {
		if _, err := machine.Transition(a2a.TaskWorking, ""); err != nil {
			return a2a.Task{}, err
		}
	}
	return machine.Transition(a2a.TaskCanceled, "canceled by caller")
}
