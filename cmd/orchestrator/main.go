// Command orchestrator runs the A2A orchestrator: it plans, schedules and
// synthesizes responses to natural-language queries by dispatching to
// configured collaborator agents. Adapted from
// arkeep-io-arkeep/server/cmd/server/main.go's cobra root command plus
// signal-driven graceful shutdown.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"

	"github.com/a2aflow/engine/internal/config"
	"github.com/a2aflow/engine/internal/telemetry"
	"github.com/a2aflow/engine/pkg/a2a"
	"github.com/a2aflow/engine/pkg/llm"
	"github.com/a2aflow/engine/pkg/logger"
	"github.com/a2aflow/engine/pkg/metrics"
	"github.com/a2aflow/engine/pkg/orchestrator"
	"github.com/a2aflow/engine/pkg/planner"
	"github.com/a2aflow/engine/pkg/resilience"
	"github.com/a2aflow/engine/pkg/scheduler"
	"github.com/a2aflow/engine/pkg/synthesizer"
	"github.com/a2aflow/engine/pkg/transport"
)

var (
	version = "dev"
	commit  = "none"
)

type flags struct {
	configFile     string
	name           string
	port           int
	plannerMode    string
	plannerAPIKey  string
	plannerModel   string
	logLevel       string
	logFormat      string
	metricsAddr    string
	agentEndpoints []string // "id=base_url"
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFor(err))
	}
}

func exitCodeFor(err error) int {
	if a2a.IsKind(err, a2a.KindConfigInvalid) {
		return 2
	}
	return 1
}

func newRootCmd() *cobra.Command {
	f := &flags{}

	root := &cobra.Command{
		Use:   "orchestrator",
		Short: "A2A orchestrator — plans, schedules and synthesizes multi-agent responses",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), f)
		},
	}

	root.AddCommand(newVersionCmd())

	flagsSet := root.PersistentFlags()
	flagsSet.StringVar(&f.configFile, "config", "", "path to a YAML or JSON config file")
	flagsSet.StringVar(&f.name, "name", "", "orchestrator instance name")
	flagsSet.IntVar(&f.port, "port", 0, "HTTP query port (0 = use config default)")
	flagsSet.StringVar(&f.plannerMode, "planner-mode", "", "planner mode: auto, llm, fallback")
	flagsSet.StringVar(&f.plannerAPIKey, "planner-api-key", "", "LLM API key for the planner")
	flagsSet.StringVar(&f.plannerModel, "planner-model", "", "LLM model for the planner")
	flagsSet.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flagsSet.StringVar(&f.logFormat, "log-format", "", "log format: json, simple")
	flagsSet.StringVar(&f.metricsAddr, "metrics-addr", "", "auxiliary Prometheus metrics listen address")
	flagsSet.StringSliceVar(&f.agentEndpoints, "agent-endpoints", nil, "agent endpoints as id=base_url, repeatable")

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("orchestrator %s (commit %s)\n", version, commit)
		},
	}
}

func buildConfig(f *flags) (*config.Config, error) {
	var opts []config.Option
	if f.configFile != "" {
		opts = append(opts, config.WithConfigFile(f.configFile))
	}
	if f.name != "" {
		opts = append(opts, config.WithName(f.name))
	}
	if f.port != 0 {
		opts = append(opts, config.WithPort(f.port))
	}
	if f.plannerMode != "" {
		opts = append(opts, config.WithPlannerMode(f.plannerMode))
	}

	agents := make([]config.AgentEndpoint, 0, len(f.agentEndpoints))
	for _, spec := range f.agentEndpoints {
		id, url, ok := strings.Cut(spec, "=")
		if !ok {
			return nil, a2a.NewError("buildConfig", a2a.KindConfigInvalid,
				fmt.Sprintf("invalid --agent-endpoints entry %q, want id=base_url", spec), nil)
		}
		agents = append(agents, config.AgentEndpoint{ID: id, BaseURL: url})
	}
	if len(agents) > 0 {
		opts = append(opts, config.WithAgents(agents...))
	}

	cfg, err := config.NewConfig(opts...)
	if err != nil {
		return nil, a2a.NewError("buildConfig", a2a.KindConfigInvalid, err.Error(), err)
	}

	// Flags applied after NewConfig's validation since they don't have
	// config.Option wrappers for every field (API key, model, log settings).
	if f.plannerAPIKey != "" {
		cfg.Planner.APIKey = f.plannerAPIKey
	}
	if f.plannerModel != "" {
		cfg.Planner.Model = f.plannerModel
	}
	if f.logLevel != "" {
		cfg.Logging.Level = f.logLevel
	}
	if f.logFormat != "" {
		cfg.Logging.Format = f.logFormat
	}
	if f.metricsAddr != "" {
		cfg.Metrics.Address = f.metricsAddr
	}
	if err := cfg.Validate(); err != nil {
		return nil, a2a.NewError("buildConfig", a2a.KindConfigInvalid, err.Error(), err)
	}
	return cfg, nil
}

func buildLogger(cfg *config.Config) (logger.Logger, error) {
	if cfg.Logging.Format == "json" {
		return logger.NewZapLogger(cfg.Logging.Level)
	}
	log := logger.NewSimpleLogger()
	log.SetLevel(cfg.Logging.Level)
	return log, nil
}

func run(ctx context.Context, f *flags) error {
	cfg, err := buildConfig(f)
	if err != nil {
		return err
	}

	log, err := buildLogger(cfg)
	if err != nil {
		return fmt.Errorf("orchestrator: build logger: %w", err)
	}
	log.Info("starting orchestrator", "name", cfg.Name, "port", cfg.Port, "planner_mode", cfg.Planner.Mode)

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.Telemetry.Enabled {
		tp, err := telemetry.Setup(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPEndpoint)
		if err != nil {
			return fmt.Errorf("orchestrator: setup telemetry: %w", err)
		}
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			_ = tp.Shutdown(shutdownCtx)
		}()
	}

	sink, metricsHandler := metrics.NewPrometheusSink()

	pool := orchestrator.NewAgentPool()
	catalogEntries := make([]planner.CatalogEntry, 0, len(cfg.Agents))
	for _, agent := range cfg.Agents {
		client := transport.NewClient(agent.ID, agent.BaseURL, log, nil)
		pool.Register(agent.ID, client)
		catalogEntries = append(catalogEntries, discoverCatalogEntry(ctx, agent, client, log))
	}
	catalog := planner.NewCatalog(catalogEntries)

	breakers := map[string]*resilience.CircuitBreaker{}
	breakerProvider := func(agentID string) *resilience.CircuitBreaker {
		if b, ok := breakers[agentID]; ok {
			return b
		}
		b := resilience.New(resilience.Config{
			Scope:            "per_agent:" + agentID,
			FailureThreshold: cfg.Resilience.FailureThreshold,
			RecoveryTimeout:  cfg.Resilience.RecoveryTimeout,
			Metrics:          sink,
		})
		breakers[agentID] = b
		return b
	}

	p, err := buildPlanner(cfg, catalog, sink, log)
	if err != nil {
		return fmt.Errorf("orchestrator: build planner: %w", err)
	}

	sched := scheduler.New(pool,
		scheduler.WithLogger(log),
		scheduler.WithMetrics(sink),
		scheduler.WithConcurrency(cfg.Scheduler.MaxConcurrency),
		scheduler.WithBreakers(breakerProvider),
	)

	var synthClient llm.Client
	if cfg.Planner.APIKey != "" {
		synthClient = llm.NewOpenAIClient(cfg.Planner.APIKey, log)
	}
	synth := synthesizer.New(synthClient, log)

	orch := orchestrator.New(p, sched, synth, log, sink)

	mainSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           buildRouter(orch, log),
		ReadHeaderTimeout: cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
	}
	metricsSrv := &http.Server{Addr: cfg.Metrics.Address, Handler: metricsHandler, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 2)
	go func() { errCh <- ignoreClosed(mainSrv.ListenAndServe()) }()
	if cfg.Metrics.Enabled {
		go func() { errCh <- ignoreClosed(metricsSrv.ListenAndServe()) }()
	}

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("orchestrator: server error: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()
	_ = mainSrv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
	return nil
}

// discoverCatalogEntry fetches agent's card to build a planner catalog entry
// carrying its real skill description and tags, falling back to a bare
// id-only entry if discovery fails — discovery failures surface later as
// TransportUnreachable StepResults rather than blocking startup.
func discoverCatalogEntry(ctx context.Context, agent config.AgentEndpoint, client *transport.Client, log logger.Logger) planner.CatalogEntry {
	discoverCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	card, err := client.GetAgentCard(discoverCtx)
	if err != nil {
		log.Warn("agent card discovery failed, using bare catalog entry", "agent_id", agent.ID, "error", err.Error())
		return planner.CatalogEntry{AgentID: agent.ID}
	}

	var description string
	var keywords []string
	for _, skill := range card.Skills {
		if description == "" {
			description = skill.Description
		}
		keywords = append(keywords, skill.Tags...)
	}
	if description == "" {
		description = card.Description
	}
	return planner.CatalogEntry{AgentID: agent.ID, Description: description, Keywords: keywords}
}

// buildPlanner composes the planner named by cfg.Planner.Mode: "llm" uses
// only the LLM planner, "fallback" only the deterministic keyword planner,
// "auto" (the default) tries the LLM planner and falls back deterministically.
func buildPlanner(cfg *config.Config, catalog *planner.Catalog, sink metrics.Sink, log logger.Logger) (planner.Planner, error) {
	fallback := planner.NewFallbackPlanner(catalog, cfg.Planner.DefaultAgent)
	if cfg.Planner.Mode == "fallback" {
		return fallback, nil
	}

	client := llm.NewOpenAIClient(cfg.Planner.APIKey, log)
	breaker := resilience.New(resilience.Config{
		Scope:            "llm",
		FailureThreshold: cfg.Resilience.FailureThreshold,
		RecoveryTimeout:  cfg.Resilience.RecoveryTimeout,
		Metrics:          sink,
	})
	llmPlanner := planner.NewLLMPlanner(client, catalog, breaker,
		planner.WithModel(cfg.Planner.Model),
		planner.WithLogger(log),
		planner.WithCache(planner.NewCache(cfg.Planner.CacheSize, cfg.Planner.CacheTTL)),
		planner.WithCacheTTL(cfg.Planner.CacheTTL),
	)

	if cfg.Planner.Mode == "llm" {
		return llmPlanner, nil
	}
	return planner.NewAutoPlanner(llmPlanner, fallback), nil
}

func buildRouter(orch *orchestrator.Orchestrator, log logger.Logger) http.Handler {
	r := chi.NewRouter()
	r.Post("/v1/query", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Query     string `json:"query"`
			ContextID string `json:"context_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		resp, err := orch.Process(r.Context(), req.Query, req.ContextID)
		if err != nil {
			log.Error("query failed", "error", err.Error())
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})
	return r
}

func ignoreClosed(err error) error {
	if err == nil || err == http.ErrServerClosed {
		return nil
	}
	return err
}
