// Package transport implements the A2A JSON-RPC 2.0 wire protocol: the
// client side the orchestrator uses to dispatch steps to agents, and the
// server side an agent mounts to receive them. The envelope is modeled
// fresh against SPEC_FULL.md §4.1/§6 since the teacher speaks plain REST,
// not JSON-RPC; the HTTP client plumbing (timeouts, tracing, header
// injection) is adapted from pkg/communication/k8s_communicator.go.
package transport

import (
	"encoding/json"
	"fmt"

	"github.com/a2aflow/engine/pkg/a2a"
)

const jsonrpcVersion = "2.0"

// Request is a JSON-RPC 2.0 request envelope.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// RPCError is the JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Response is a JSON-RPC 2.0 response envelope. Exactly one of Result or
// Error is populated, per SPEC_FULL.md §4.1's framing guarantee.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// NewRequest builds a well-formed request envelope.
func NewRequest(id, method string, params interface{}) (*Request, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("transport: marshal params: %w", err)
	}
	return &Request{JSONRPC: jsonrpcVersion, ID: id, Method: method, Params: raw}, nil
}

// NewResultResponse builds a successful response envelope.
func NewResultResponse(id string, result interface{}) (*Response, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("transport: marshal result: %w", err)
	}
	return &Response{JSONRPC: jsonrpcVersion, ID: id, Result: raw}, nil
}

// NewErrorResponse builds a failed response envelope.
func NewErrorResponse(id string, code int, message string) *Response {
	return &Response{JSONRPC: jsonrpcVersion, ID: id, Error: &RPCError{Code: code, Message: message}}
}

// Validate enforces SPEC_FULL.md §4.1's ProtocolViolation conditions: the
// jsonrpc field must read "2.0", and result/error must be mutually
// exclusive and not both absent.
func (r *Response) Validate() error {
	if r.JSONRPC != jsonrpcVersion {
		return a2a.NewError("Response.Validate", a2a.KindProtocolViolation,
			fmt.Sprintf("unexpected jsonrpc version %q", r.JSONRPC), nil)
	}
	hasResult := len(r.Result) > 0
	hasError := r.Error != nil
	if hasResult == hasError {
		return a2a.NewError("Response.Validate", a2a.KindProtocolViolation,
			"response must carry exactly one of result or error", nil)
	}
	return nil
}

// Standard JSON-RPC error codes used by the agent-side server.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Method names defined by the A2A protocol.
const (
	MethodSendMessage = "send_message"
	MethodCancelTask  = "cancel_task"
)

// SendMessageParams is the params payload for the send_message method.
type SendMessageParams struct {
	Message a2a.Message `json:"message"`
}

// CancelTaskParams is the params payload for the cancel_task method.
type CancelTaskParams struct {
	TaskID string `json:"taskId"`
}
