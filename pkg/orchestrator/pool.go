package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/a2aflow/engine/pkg/a2a"
	"github.com/a2aflow/engine/pkg/transport"
)

// AgentPool is the orchestrator's registry of known agents, keyed by id.
// It implements scheduler.Invoker by sending each call through the
// matching transport.Client. Adapted from
// pkg/orchestration/orchestrator.go's use of a single AgentCommunicator,
// generalized to a per-agent client map since this module speaks JSON-RPC
// directly rather than resolving agent names through cluster DNS.
type AgentPool struct {
	mu      sync.RWMutex
	clients map[string]*transport.Client
}

// NewAgentPool builds an empty pool.
func NewAgentPool() *AgentPool {
	return &AgentPool{clients: make(map[string]*transport.Client)}
}

// Register adds or replaces the client used to reach agentID.
func (p *AgentPool) Register(agentID string, client *transport.Client) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clients[agentID] = client
}

// Deregister removes agentID from the pool.
func (p *AgentPool) Deregister(agentID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.clients, agentID)
}

// IDs returns every registered agent id.
func (p *AgentPool) IDs() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ids := make([]string, 0, len(p.clients))
	for id := range p.clients {
		ids = append(ids, id)
	}
	return ids
}

func (p *AgentPool) get(agentID string) (*transport.Client, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	c, ok := p.clients[agentID]
	return c, ok
}

// Invoke sends taskText to agentID as a new user message and returns the
// resulting task's synthesized text: its last artifact's text if the task
// reached "completed", or an error built from its failure history
// otherwise. Implements scheduler.Invoker.
func (p *AgentPool) Invoke(ctx context.Context, agentID, contextID, taskText string, timeout time.Duration) (string, error) {
	client, ok := p.get(agentID)
	if !ok {
		return "", a2a.NewError("AgentPool.Invoke", a2a.KindTransportUnreachable,
			fmt.Sprintf("no registered client for agent %q", agentID), nil)
	}

	msg := a2a.Message{
		Role:      a2a.RoleUser,
		Parts:     []a2a.Part{a2a.NewTextPart(taskText)},
		MessageID: uuid.New().String(),
		ContextID: contextID,
	}

	task, err := client.SendMessage(ctx, msg, timeout)
	if err != nil {
		return "", err
	}

	switch task.State {
	case a2a.TaskCompleted:
		return lastArtifactText(task), nil
	case a2a.TaskFailed:
		return "", a2a.NewError("AgentPool.Invoke", a2a.KindAgentError, lastHistoryMessage(task), nil)
	default:
		return "", a2a.NewError("AgentPool.Invoke", a2a.KindAgentError,
			fmt.Sprintf("agent %q left task %q in non-terminal state %q", agentID, task.TaskID, task.State), nil)
	}
}

func lastArtifactText(task a2a.Task) string {
	if len(task.Artifacts) == 0 {
		return ""
	}
	artifact := task.Artifacts[len(task.Artifacts)-1]
	var out string
	for _, p := range artifact.Parts {
		if p.IsText() {
			out += p.Text
		}
	}
	return out
}

func lastHistoryMessage(task a2a.Task) string {
	if len(task.History) == 0 {
		return "task failed with no recorded message"
	}
	return task.History[len(task.History)-1].Message
}
