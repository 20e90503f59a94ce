package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/a2aflow/engine/pkg/a2a"
	"github.com/a2aflow/engine/pkg/logger"
)

// Handler is implemented by an agent's business logic: it receives decoded
// A2A messages and task-cancel requests and returns Task snapshots. The
// HTTP/JSON-RPC framing in this file is entirely agent-agnostic.
type Handler interface {
	SendMessage(ctx context.Context, msg a2a.Message) (a2a.Task, error)
	CancelTask(ctx context.Context, taskID string) (a2a.Task, error)
}

// CardProvider supplies the agent card served at the well-known path.
type CardProvider interface {
	AgentCard() a2a.AgentCard
}

// HealthProvider supplies the /health payload.
type HealthProvider interface {
	// Health returns the status string and optional details.
	Health(ctx context.Context) (status string, details map[string]interface{})
}

// Server is the agent-side A2A transport: JSON-RPC POST /, agent-card and
// health GET endpoints, mounted on a chi router. Adapted from
// core/tool.go's Start/standard-endpoint registration, generalized from
// BaseTool's capability-registry endpoints to the A2A-specific ones
// SPEC_FULL.md §4.7/§6 require.
type Server struct {
	handler Handler
	cards   CardProvider
	health  HealthProvider
	logger  logger.Logger
	router  chi.Router
}

// NewServer builds a Server ready to mount on an http.Server.
func NewServer(handler Handler, cards CardProvider, health HealthProvider, log logger.Logger) *Server {
	if log == nil {
		log = logger.NewDefaultLogger()
	}
	s := &Server{handler: handler, cards: cards, health: health, logger: log}
	s.router = s.buildRouter()
	return s
}

// Router returns the chi router, for embedding in a larger mux or for tests.
func (s *Server) Router() chi.Router { return s.router }

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(RecoveryMiddleware(s.logger))
	r.Use(LoggingMiddleware(s.logger))
	r.Use(CORSMiddleware(DefaultCORSConfig()))

	r.Post("/", s.handleRPC)
	r.Get("/.well-known/agent-card.json", s.handleAgentCard)
	r.Get("/health", s.handleHealth)
	return r
}

func (s *Server) handleAgentCard(w http.ResponseWriter, r *http.Request) {
	card := s.cards.AgentCard()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(card)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, details := s.health.Health(r.Context())
	w.Header().Set("Content-Type", "application/json")
	if status != "healthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    status,
		"agent":     s.cards.AgentCard().Name,
		"version":   s.cards.AgentCard().Version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"details":   details,
	})
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "", CodeParseError, "invalid JSON")
		return
	}
	if req.JSONRPC != jsonrpcVersion {
		s.writeError(w, req.ID, CodeInvalidRequest, "jsonrpc must be \"2.0\"")
		return
	}

	switch req.Method {
	case MethodSendMessage:
		s.dispatchSendMessage(w, r, req)
	case MethodCancelTask:
		s.dispatchCancelTask(w, r, req)
	default:
		s.writeError(w, req.ID, CodeMethodNotFound, "unknown method "+req.Method)
	}
}

func (s *Server) dispatchSendMessage(w http.ResponseWriter, r *http.Request, req Request) {
	var params SendMessageParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		s.writeError(w, req.ID, CodeInvalidParams, "invalid send_message params")
		return
	}
	task, err := s.handler.SendMessage(r.Context(), params.Message)
	if err != nil {
		s.writeError(w, req.ID, CodeInternalError, err.Error())
		return
	}
	s.writeResult(w, req.ID, task)
}

func (s *Server) dispatchCancelTask(w http.ResponseWriter, r *http.Request, req Request) {
	var params CancelTaskParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		s.writeError(w, req.ID, CodeInvalidParams, "invalid cancel_task params")
		return
	}
	task, err := s.handler.CancelTask(r.Context(), params.TaskID)
	if err != nil {
		s.writeError(w, req.ID, CodeInternalError, err.Error())
		return
	}
	s.writeResult(w, req.ID, task)
}

func (s *Server) writeResult(w http.ResponseWriter, id string, result interface{}) {
	resp, err := NewResultResponse(id, result)
	if err != nil {
		s.writeError(w, id, CodeInternalError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) writeError(w http.ResponseWriter, id string, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(NewErrorResponse(id, code, message))
}
