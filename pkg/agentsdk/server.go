package agentsdk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/a2aflow/engine/pkg/transport"
)

// Router builds the agent's chi router: the A2A JSON-RPC/card/health
// endpoints from transport.NewServer, plus the per-skill schema endpoint
// supplementing them (SPEC_FULL.md §4.7 SUPPLEMENT), adapted from
// core/tool.go's handleSchemaRequest generalized from reflected Go structs
// to this module's declarative Skill metadata.
func (a *Agent) Router() chi.Router {
	srv := transport.NewServer(a, a, a, a.logger)
	r := srv.Router()
	r.Get("/skills/{id}/schema", a.handleSkillSchema)
	return r
}

func (a *Agent) handleSkillSchema(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	skill, ok := a.SkillByID(id)
	if !ok {
		http.Error(w, fmt.Sprintf("agentsdk: unknown skill %q", id), http.StatusNotFound)
		return
	}

	schema := map[string]interface{}{
		"$schema":     "http://json-schema.org/draft-07/schema#",
		"type":        "object",
		"title":       skill.Name,
		"description": skill.Description,
		"inputModes":  skill.InputModes,
		"outputModes": skill.OutputModes,
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(schema); err != nil {
		a.logger.Error("failed to encode skill schema", "skill_id", id, "error", err.Error())
	}
}

// Serve runs the agent's A2A HTTP server on addr and, if metricsAddr is
// non-empty, a second server exposing Prometheus metrics on an auxiliary
// port per SPEC_FULL.md §6.1. It blocks until ctx is canceled, then shuts
// both servers down gracefully, adapted from core/agent.go's Start/Shutdown.
func (a *Agent) Serve(ctx context.Context, addr, metricsAddr string) error {
	main := &http.Server{
		Addr:              addr,
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var metricsSrv *http.Server
	if metricsAddr != "" && a.metricsHandler != nil {
		metricsSrv = &http.Server{Addr: metricsAddr, Handler: a.metricsHandler, ReadHeaderTimeout: 10 * time.Second}
	}

	errCh := make(chan error, 2)
	go func() { errCh <- serveOrNil(main) }()
	if metricsSrv != nil {
		go func() { errCh <- serveOrNil(metricsSrv) }()
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var shutdownErr error
	if err := main.Shutdown(shutdownCtx); err != nil {
		shutdownErr = err
	}
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}
	return shutdownErr
}

func serveOrNil(s *http.Server) error {
	err := s.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) || errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}
