package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/a2aflow/engine/pkg/a2a"
	"github.com/a2aflow/engine/pkg/logger"
)

// DefaultCallTimeout is the per-call default from SPEC_FULL.md §6.
const DefaultCallTimeout = 30 * time.Second

// Client is a JSON-RPC client of a single agent's base URL, grounded on
// pkg/communication/k8s_communicator.go's HTTP plumbing (timeouts, otel
// spans, correlation headers) generalized from Kubernetes DNS resolution to
// a flat agent_id -> base_url catalog entry.
type Client struct {
	baseURL    string
	agentID    string
	httpClient *http.Client
	logger     logger.Logger
}

// NewClient builds a transport client bound to one agent's base URL. The
// round tripper is wrapped with otelhttp so every outbound call produces an
// HTTP client span nested under the transport.SendMessage span started in
// SendMessage, without each call site managing that instrumentation itself.
func NewClient(agentID, baseURL string, log logger.Logger, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultCallTimeout}
	}
	if _, ok := httpClient.Transport.(*otelhttp.Transport); !ok {
		base := httpClient.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		httpClient.Transport = otelhttp.NewTransport(base)
	}
	if log == nil {
		log = logger.NewDefaultLogger()
	}
	return &Client{baseURL: baseURL, agentID: agentID, httpClient: httpClient, logger: log}
}

var tracer = otel.Tracer("a2aflow.transport")

// SendMessage submits a message to the agent and returns its terminal Task.
// The Task arrives in a single JSON-RPC response; this client has no
// streaming call.
func (c *Client) SendMessage(ctx context.Context, msg a2a.Message, timeout time.Duration) (a2a.Task, error) {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	ctx, span := tracer.Start(ctx, "transport.SendMessage", trace.WithAttributes(
		attribute.String("agent.id", c.agentID),
		attribute.Float64("timeout.seconds", timeout.Seconds()),
	))
	defer span.End()

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	rpcReq, err := NewRequest(uuid.New().String(), MethodSendMessage, SendMessageParams{Message: msg})
	if err != nil {
		span.RecordError(err)
		return a2a.Task{}, a2a.NewError("Client.SendMessage", a2a.KindProtocolViolation, "", err)
	}

	var result a2a.Task
	if err := c.call(reqCtx, rpcReq, &result); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return a2a.Task{}, err
	}
	span.SetStatus(codes.Ok, "")
	return result, nil
}

// CancelTask invokes the agent's cancel_task method for taskID and returns
// the agent's resulting Task. The scheduler does not call it: a canceled
// step is only marked canceled locally.
func (c *Client) CancelTask(ctx context.Context, taskID string) (a2a.Task, error) {
	rpcReq, err := NewRequest(uuid.New().String(), MethodCancelTask, CancelTaskParams{TaskID: taskID})
	if err != nil {
		return a2a.Task{}, a2a.NewError("Client.CancelTask", a2a.KindProtocolViolation, "", err)
	}
	var result a2a.Task
	if err := c.call(ctx, rpcReq, &result); err != nil {
		return a2a.Task{}, err
	}
	return result, nil
}

// GetAgentCard fetches GET /.well-known/agent-card.json.
func (c *Client) GetAgentCard(ctx context.Context) (a2a.AgentCard, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/.well-known/agent-card.json", nil)
	if err != nil {
		return a2a.AgentCard{}, a2a.NewError("Client.GetAgentCard", a2a.KindTransportUnreachable, "", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return a2a.AgentCard{}, a2a.NewError("Client.GetAgentCard", a2a.KindTransportUnreachable, "", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return a2a.AgentCard{}, a2a.NewError("Client.GetAgentCard", a2a.KindTransportUnreachable, "", err)
	}
	if resp.StatusCode != http.StatusOK {
		return a2a.AgentCard{}, a2a.NewError("Client.GetAgentCard", a2a.KindProtocolViolation,
			fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	var card a2a.AgentCard
	if err := json.Unmarshal(body, &card); err != nil {
		return a2a.AgentCard{}, a2a.NewError("Client.GetAgentCard", a2a.KindProtocolViolation, "", err)
	}
	if err := card.Validate(); err != nil {
		return a2a.AgentCard{}, a2a.NewError("Client.GetAgentCard", a2a.KindProtocolViolation, err.Error(), nil)
	}
	return card, nil
}

// HealthResult is the decoded /health response.
type HealthResult struct {
	Status string                 `json:"status"`
	Agent  string                 `json:"agent,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Health calls GET /health.
func (c *Client) Health(ctx context.Context) (HealthResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return HealthResult{}, a2a.NewError("Client.Health", a2a.KindTransportUnreachable, "", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return HealthResult{}, a2a.NewError("Client.Health", a2a.KindTransportUnreachable, "", err)
	}
	defer resp.Body.Close()

	var result HealthResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return HealthResult{}, a2a.NewError("Client.Health", a2a.KindProtocolViolation, "", err)
	}
	return result, nil
}

// call performs the common POST-envelope-decode-validate path shared by
// every JSON-RPC method.
func (c *Client) call(ctx context.Context, rpcReq *Request, out interface{}) error {
	payload, err := json.Marshal(rpcReq)
	if err != nil {
		return a2a.NewError("Client.call", a2a.KindProtocolViolation, "", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/", bytes.NewReader(payload))
	if err != nil {
		return a2a.NewError("Client.call", a2a.KindTransportUnreachable, "", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-From-Agent", "orchestrator")
	httpReq.Header.Set("X-Request-Id", rpcReq.ID)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return a2a.NewError("Client.call", a2a.KindTransportTimeout, "", ctx.Err())
		}
		return a2a.NewError("Client.call", a2a.KindTransportUnreachable, "", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return a2a.NewError("Client.call", a2a.KindTransportUnreachable, "", err)
	}

	var rpcResp Response
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return a2a.NewError("Client.call", a2a.KindProtocolViolation, "", err)
	}
	if err := rpcResp.Validate(); err != nil {
		return err
	}
	if rpcResp.Error != nil {
		return &a2a.AgentError{Code: rpcResp.Error.Code, Message: rpcResp.Error.Message}
	}
	if out != nil {
		if err := json.Unmarshal(rpcResp.Result, out); err != nil {
			return a2a.NewError("Client.call", a2a.KindProtocolViolation, "", err)
		}
	}
	return nil
}
