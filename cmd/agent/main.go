// Command agent runs a single collaborator agent process: it registers a
// skill with pkg/agentsdk and serves the A2A JSON-RPC surface (agent card,
// health, send_message, cancel_task, skill schema). Business logic for real
// skills lives outside this module; the demo skill registered here exists
// only so the binary is runnable end-to-end out of the box. Adapted from
// arkeep-io-arkeep/server/cmd/server/main.go's cobra root command, mirroring
// cmd/orchestrator/main.go's flag/config/shutdown shape.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/a2aflow/engine/internal/telemetry"
	"github.com/a2aflow/engine/pkg/a2a"
	"github.com/a2aflow/engine/pkg/agentsdk"
	"github.com/a2aflow/engine/pkg/logger"
	"github.com/a2aflow/engine/pkg/metrics"
)

var (
	version = "dev"
	commit  = "none"
)

type flags struct {
	name         string
	description  string
	agentVersion string
	url          string
	port         int
	metricsAddr  string
	logLevel     string
	logFormat    string
	telemetry    bool
	otlpEndpoint string
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
		Use:   "agent",
		Short: "A2A collaborator agent — serves one or more skills over JSON-RPC",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), f)
		},
	}

	root.AddCommand(newVersionCmd())

	flagsSet := root.PersistentFlags()
	flagsSet.StringVar(&f.name, "name", "demo-agent", "agent name, advertised on the agent card")
	flagsSet.StringVar(&f.description, "description", "demo agent bundled with the agentsdk template", "agent card description")
	flagsSet.StringVar(&f.agentVersion, "agent-version", "0.1.0", "agent card version")
	flagsSet.StringVar(&f.url, "url", "", "base URL this agent is reachable at, advertised on the agent card")
	flagsSet.IntVar(&f.port, "port", 8090, "HTTP listen port")
	flagsSet.StringVar(&f.metricsAddr, "metrics-addr", ":9091", "auxiliary Prometheus metrics listen address")
	flagsSet.StringVar(&f.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	flagsSet.StringVar(&f.logFormat, "log-format", "simple", "log format: json, simple")
	flagsSet.BoolVar(&f.telemetry, "telemetry", false, "enable OpenTelemetry trace export")
	flagsSet.StringVar(&f.otlpEndpoint, "otlp-endpoint", "", "OTLP/gRPC collector endpoint (empty = export to stdout)")

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("agent %s (commit %s)\n", version, commit)
		},
	}
}

func buildLogger(f *flags) (logger.Logger, error) {
	if f.logFormat == "json" {
		return logger.NewZapLogger(f.logLevel)
	}
	log := logger.NewSimpleLogger()
	log.SetLevel(f.logLevel)
	return log, nil
}

func run(ctx context.Context, f *flags) error {
	if f.port <= 0 || f.port > 65535 {
		return a2a.NewError("agent.run", a2a.KindConfigInvalid,
			fmt.Sprintf("invalid --port %d", f.port), nil)
	}

	log, err := buildLogger(f)
	if err != nil {
		return fmt.Errorf("agent: build logger: %w", err)
	}
	log.Info("starting agent", "name", f.name, "port", f.port)

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if f.telemetry {
		tp, err := telemetry.Setup(ctx, f.name, f.otlpEndpoint)
		if err != nil {
			return fmt.Errorf("agent: setup telemetry: %w", err)
		}
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			_ = tp.Shutdown(shutdownCtx)
		}()
	}

	sink, metricsHandler := metrics.NewPrometheusSink()

	a := agentsdk.New(f.name,
		agentsdk.WithDescription(f.description),
		agentsdk.WithVersion(f.agentVersion),
		agentsdk.WithURL(f.url),
		agentsdk.WithLogger(log),
		agentsdk.WithMetrics(sink),
		agentsdk.WithMetricsHandler(metricsHandler),
	)
	a.RegisterSkill(echoSkill())

	addr := fmt.Sprintf(":%d", f.port)
	log.Info("agent listening", "addr", addr, "metrics_addr", f.metricsAddr)
	return a.Serve(ctx, addr, f.metricsAddr)
}

// echoSkill is the bundled demo skill: it acknowledges the task, then
// echoes the input text back as the completed artifact. A real deployment
// replaces this with a RegisterSkill call carrying actual business logic.
func echoSkill() agentsdk.Skill {
	return agentsdk.Skill{
		ID:          "echo",
		Name:        "Echo",
		Description: "echoes the submitted task text back as the result",
		Tags:        []string{"demo"},
		Examples:    []string{"repeat this back to me"},
		InputModes:  []string{"text/plain"},
		OutputModes: []string{"text/plain"},
		Handler: func(ctx context.Context, taskText string) <-chan a2a.GeneratorStep {
			out := make(chan a2a.GeneratorStep, 2)
			go func() {
				defer close(out)
				select {
				case out <- a2a.GeneratorStep{Content: "processing"}:
				case <-ctx.Done():
					return
				}
				reply := strings.TrimSpace(taskText)
				if reply == "" {
					reply = "(empty task)"
				}
				select {
				case out <- a2a.GeneratorStep{Content: reply, IsTaskComplete: true}:
				case <-ctx.Done():
				}
			}()
			return out
		},
	}
}
