// Package a2a defines the Agent-to-Agent protocol data model shared by the
// orchestrator and every agent: descriptors, skills, messages, tasks,
// artifacts and execution plans.
package a2a

import (
	"encoding/json"
	"fmt"
	"time"
)

// TaskState is the lifecycle state of a Task. See state.go for the
// transition table this module enforces.
type TaskState string

const (
	TaskSubmitted     TaskState = "submitted"
	TaskWorking       TaskState = "working"
	TaskInputRequired TaskState = "input_required"
	TaskCompleted     TaskState = "completed"
	TaskFailed        TaskState = "failed"
	TaskCanceled      TaskState = "canceled"
)

// Terminal reports whether the state ends the task's lifecycle.
func (s TaskState) Terminal() bool {
	switch s {
	case TaskCompleted, TaskFailed, TaskCanceled:
		return true
	default:
		return false
	}
}

// Role identifies the author of a Message.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Part is a tagged union: Kind "text" or "data" selects which payload (Text,
// or Mime and Data) is populated.
// Implementers are expected to use the constructors below rather than
// building Part literals, which keeps the tag and payload consistent.
type Part struct {
	Kind string          `json:"kind"`
	Text string          `json:"text,omitempty"`
	Mime string          `json:"mimeType,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewTextPart builds a text-kind part.
func NewTextPart(text string) Part {
	return Part{Kind: "text", Text: text}
}

// NewDataPart builds a data-kind part with an arbitrary JSON payload.
func NewDataPart(mimeType string, data interface{}) (Part, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Part{}, fmt.Errorf("a2a: marshal data part: %w", err)
	}
	if mimeType == "" {
		mimeType = "application/json"
	}
	return Part{Kind: "data", Mime: mimeType, Data: raw}, nil
}

// IsText reports whether the part carries text.
func (p Part) IsText() bool { return p.Kind == "text" }

// IsData reports whether the part carries structured data.
func (p Part) IsData() bool { return p.Kind == "data" }

// Message is one turn of A2A conversation, either from the user or an agent.
type Message struct {
	Role      Role   `json:"role"`
	Parts     []Part `json:"parts"`
	MessageID string `json:"messageId"`
	TaskID    string `json:"taskId,omitempty"`
	ContextID string `json:"contextId,omitempty"`
}

// Text concatenates every text part in the message, in order.
func (m Message) Text() string {
	var out string
	for _, p := range m.Parts {
		if p.IsText() {
			out += p.Text
		}
	}
	return out
}

// Artifact is a named, append-only output bundle attached to a Task.
type Artifact struct {
	Name  string `json:"name"`
	Parts []Part `json:"parts"`
}

// StatusUpdate is one entry in a Task's history: a state transition plus an
// optional message describing it. Required on `failed` (carries the error).
type StatusUpdate struct {
	State     TaskState `json:"state"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Task is the A2A unit of work at an agent.
type Task struct {
	TaskID    string         `json:"taskId"`
	ContextID string         `json:"contextId,omitempty"`
	State     TaskState      `json:"state"`
	History   []StatusUpdate `json:"history"`
	Artifacts []Artifact     `json:"artifacts"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// AgentCapabilities declares optional protocol features an agent supports.
type AgentCapabilities struct {
	Streaming              bool `json:"streaming"`
	PushNotifications      bool `json:"pushNotifications"`
	StateTransitionHistory bool `json:"stateTransitionHistory"`
}

// Skill is a purely declarative, advertised capability on an agent card,
// used by the planner as a routing hint.
type Skill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags,omitempty"`
	Examples    []string `json:"examples,omitempty"`
	InputModes  []string `json:"inputModes,omitempty"`
	OutputModes []string `json:"outputModes,omitempty"`
}

// AgentCard is the self-describing metadata document an agent publishes at
// /.well-known/agent-card.json.
type AgentCard struct {
	Name                 string            `json:"name"`
	Description          string            `json:"description"`
	URL                  string            `json:"url"`
	Version              string            `json:"version"`
	DefaultInputModes    []string          `json:"defaultInputModes"`
	DefaultOutputModes   []string          `json:"defaultOutputModes"`
	Capabilities         AgentCapabilities `json:"capabilities"`
	Skills               []Skill           `json:"skills"`
}

// Validate reports the first missing required field, matching §6's
// "missing required fields cause discovery to mark the agent unavailable".
func (c AgentCard) Validate() error {
	switch {
	case c.Name == "":
		return fmt.Errorf("a2a: agent card missing name")
	case c.URL == "":
		return fmt.Errorf("a2a: agent card missing url")
	case c.Version == "":
		return fmt.Errorf("a2a: agent card missing version")
	case len(c.DefaultInputModes) == 0:
		return fmt.Errorf("a2a: agent card missing defaultInputModes")
	case len(c.DefaultOutputModes) == 0:
		return fmt.Errorf("a2a: agent card missing defaultOutputModes")
	}
	return nil
}

// AgentDescriptor is the orchestrator's in-memory view of a discovered
// agent: the card plus the id/base_url pair used to dispatch calls.
type AgentDescriptor struct {
	ID          string
	BaseURL     string
	Card        AgentCard
	DiscoveredAt time.Time
}

// Name returns the descriptor's display name, falling back to its id.
func (d AgentDescriptor) Name() string {
	if d.Card.Name != "" {
		return d.Card.Name
	}
	return d.ID
}
