// Package config loads and validates the orchestrator/agent runtime
// configuration, layered default < env < file < functional-option per
// core/config.go's NewConfig precedence, generalized from the GoMind
// framework's component-discovery/AI/telemetry settings to this module's
// planner/scheduler/resilience/transport settings. Unlike core/config.go's
// stubbed-out YAML branch, file loading here actually parses YAML via
// gopkg.in/yaml.v3, grounded on orchestration/workflow_engine.go's
// yaml-tagged definitions.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable of the orchestrator and agent-sdk binaries.
type Config struct {
	Name string `yaml:"name" json:"name" env:"A2AFLOW_NAME" default:"a2aflow-orchestrator"`
	Port int    `yaml:"port" json:"port" env:"A2AFLOW_PORT" default:"8080"`

	HTTP       HTTPConfig       `yaml:"http" json:"http"`
	Planner    PlannerConfig    `yaml:"planner" json:"planner"`
	Scheduler  SchedulerConfig  `yaml:"scheduler" json:"scheduler"`
	Resilience ResilienceConfig `yaml:"resilience" json:"resilience"`
	Telemetry  TelemetryConfig  `yaml:"telemetry" json:"telemetry"`
	Metrics    MetricsConfig    `yaml:"metrics" json:"metrics"`
	Logging    LoggingConfig    `yaml:"logging" json:"logging"`
	Agents     []AgentEndpoint  `yaml:"agents" json:"agents"`
}

// HTTPConfig mirrors core/config.go's HTTPConfig timeouts.
type HTTPConfig struct {
	ReadTimeout     time.Duration `yaml:"read_timeout" json:"read_timeout" env:"A2AFLOW_HTTP_READ_TIMEOUT" default:"30s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" json:"write_timeout" env:"A2AFLOW_HTTP_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout" env:"A2AFLOW_HTTP_SHUTDOWN_TIMEOUT" default:"10s"`
}

// PlannerConfig configures the LLM-backed planner and its deterministic
// fallback.
type PlannerConfig struct {
	Mode          string        `yaml:"mode" json:"mode" env:"A2AFLOW_PLANNER_MODE" default:"auto"` // auto, llm, fallback
	Provider      string        `yaml:"provider" json:"provider" env:"A2AFLOW_PLANNER_PROVIDER" default:"openai"`
	APIKey        string        `yaml:"api_key" json:"-" env:"A2AFLOW_PLANNER_API_KEY"`
	Model         string        `yaml:"model" json:"model" env:"A2AFLOW_PLANNER_MODEL" default:"gpt-4"`
	CacheSize     int           `yaml:"cache_size" json:"cache_size" env:"A2AFLOW_PLANNER_CACHE_SIZE" default:"256"`
	CacheTTL      time.Duration `yaml:"cache_ttl" json:"cache_ttl" env:"A2AFLOW_PLANNER_CACHE_TTL" default:"5m"`
	DefaultTTL    time.Duration `yaml:"default_step_timeout" json:"default_step_timeout" env:"A2AFLOW_PLANNER_STEP_TIMEOUT" default:"30s"`
	DefaultAgent  string        `yaml:"default_agent" json:"default_agent" env:"A2AFLOW_PLANNER_DEFAULT_AGENT"`
}

// SchedulerConfig configures DAG execution concurrency.
type SchedulerConfig struct {
	MaxConcurrency int `yaml:"max_concurrency" json:"max_concurrency" env:"A2AFLOW_SCHEDULER_CONCURRENCY" default:"8"`
}

// ResilienceConfig configures the circuit-breaker settings applied to every
// agent; there is no per-scope override.
type ResilienceConfig struct {
	FailureThreshold int           `yaml:"failure_threshold" json:"failure_threshold" env:"A2AFLOW_BREAKER_THRESHOLD" default:"5"`
	RecoveryTimeout  time.Duration `yaml:"recovery_timeout" json:"recovery_timeout" env:"A2AFLOW_BREAKER_RECOVERY" default:"30s"`
	HalfOpenMax      int           `yaml:"half_open_max_requests" json:"half_open_max_requests" env:"A2AFLOW_BREAKER_HALF_OPEN_MAX" default:"1"`
}

// TelemetryConfig configures OpenTelemetry span export.
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled" json:"enabled" env:"A2AFLOW_TELEMETRY_ENABLED" default:"false"`
	OTLPEndpoint string `yaml:"otlp_endpoint" json:"otlp_endpoint" env:"A2AFLOW_OTEL_ENDPOINT"`
	ServiceName string `yaml:"service_name" json:"service_name" env:"A2AFLOW_OTEL_SERVICE_NAME" default:"a2aflow"`
}

// MetricsConfig configures the auxiliary Prometheus port.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled" env:"A2AFLOW_METRICS_ENABLED" default:"true"`
	Address string `yaml:"address" json:"address" env:"A2AFLOW_METRICS_ADDR" default:":9090"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level" env:"A2AFLOW_LOG_LEVEL" default:"info"`
	Format string `yaml:"format" json:"format" env:"A2AFLOW_LOG_FORMAT" default:"json"`
}

// AgentEndpoint is a statically configured collaborator the orchestrator
// registers with its AgentPool at startup.
type AgentEndpoint struct {
	ID      string `yaml:"id" json:"id"`
	BaseURL string `yaml:"base_url" json:"base_url"`
}

// Option mutates a Config during NewConfig, applied after defaults, env and
// an optional file, matching core/config.go's "options override everything
// else" precedence.
type Option func(*Config) error

// DefaultConfig returns a Config populated with the struct tags' defaults.
func DefaultConfig() *Config {
	return &Config{
		Name: "a2aflow-orchestrator",
		Port: 8080,
		HTTP: HTTPConfig{
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Planner: PlannerConfig{
			Mode:       "auto",
			Provider:   "openai",
			Model:      "gpt-4",
			CacheSize:  256,
			CacheTTL:   5 * time.Minute,
			DefaultTTL: 30 * time.Second,
		},
		Scheduler: SchedulerConfig{MaxConcurrency: 8},
		Resilience: ResilienceConfig{
			FailureThreshold: 5,
			RecoveryTimeout:  30 * time.Second,
			HalfOpenMax:      1,
		},
		Telemetry: TelemetryConfig{ServiceName: "a2aflow"},
		Metrics:   MetricsConfig{Enabled: true, Address: ":9090"},
		Logging:   LoggingConfig{Level: "info", Format: "json"},
	}
}

// LoadFromFile overlays a YAML or JSON file onto c, selected by extension.
func (c *Config) LoadFromFile(path string) error {
	clean := filepath.Clean(path)
	ext := filepath.Ext(clean)
	if ext != ".yaml" && ext != ".yml" && ext != ".json" {
		return fmt.Errorf("config: unsupported config file extension %q", ext)
	}

	data, err := os.ReadFile(clean)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", clean, err)
	}

	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("config: parse yaml config %s: %w", clean, err)
		}
	case ".json":
		if err := yaml.Unmarshal(data, c); err != nil { // YAML is a JSON superset
			return fmt.Errorf("config: parse json config %s: %w", clean, err)
		}
	}
	return nil
}

// LoadFromEnv overlays A2AFLOW_* environment variables onto c.
func (c *Config) LoadFromEnv() {
	if v := os.Getenv("A2AFLOW_NAME"); v != "" {
		c.Name = v
	}
	if v := os.Getenv("A2AFLOW_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Port = n
		}
	}
	if v := os.Getenv("A2AFLOW_PLANNER_MODE"); v != "" {
		c.Planner.Mode = v
	}
	if v := os.Getenv("A2AFLOW_PLANNER_PROVIDER"); v != "" {
		c.Planner.Provider = v
	}
	if v := os.Getenv("A2AFLOW_PLANNER_API_KEY"); v != "" {
		c.Planner.APIKey = v
	}
	if v := os.Getenv("A2AFLOW_PLANNER_MODEL"); v != "" {
		c.Planner.Model = v
	}
	if v := os.Getenv("A2AFLOW_PLANNER_DEFAULT_AGENT"); v != "" {
		c.Planner.DefaultAgent = v
	}
	if v := os.Getenv("A2AFLOW_PLANNER_CACHE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Planner.CacheSize = n
		}
	}
	if v := os.Getenv("A2AFLOW_PLANNER_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Planner.CacheTTL = d
		}
	}
	if v := os.Getenv("A2AFLOW_SCHEDULER_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Scheduler.MaxConcurrency = n
		}
	}
	if v := os.Getenv("A2AFLOW_BREAKER_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Resilience.FailureThreshold = n
		}
	}
	if v := os.Getenv("A2AFLOW_BREAKER_RECOVERY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Resilience.RecoveryTimeout = d
		}
	}
	if v := os.Getenv("A2AFLOW_TELEMETRY_ENABLED"); v != "" {
		c.Telemetry.Enabled = parseBool(v)
	}
	if v := os.Getenv("A2AFLOW_OTEL_ENDPOINT"); v != "" {
		c.Telemetry.OTLPEndpoint = v
	}
	if v := os.Getenv("A2AFLOW_METRICS_ENABLED"); v != "" {
		c.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("A2AFLOW_METRICS_ADDR"); v != "" {
		c.Metrics.Address = v
	}
	if v := os.Getenv("A2AFLOW_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("A2AFLOW_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	return err == nil && b
}

// WithName overrides the service name.
func WithName(name string) Option {
	return func(c *Config) error { c.Name = name; return nil }
}

// WithPort overrides the HTTP port.
func WithPort(port int) Option {
	return func(c *Config) error { c.Port = port; return nil }
}

// WithPlannerMode overrides the planner mode ("auto", "llm", "fallback").
func WithPlannerMode(mode string) Option {
	return func(c *Config) error {
		switch mode {
		case "auto", "llm", "fallback":
			c.Planner.Mode = mode
			return nil
		default:
			return fmt.Errorf("config: unknown planner mode %q", mode)
		}
	}
}

// WithAgents appends statically configured agent endpoints.
func WithAgents(agents ...AgentEndpoint) Option {
	return func(c *Config) error { c.Agents = append(c.Agents, agents...); return nil }
}

// WithConfigFile loads path (YAML or JSON) onto the config being built.
func WithConfigFile(path string) Option {
	return func(c *Config) error { return c.LoadFromFile(path) }
}

// NewConfig builds a Config from defaults, then environment variables, then
// opts (highest priority), validating the result.
func NewConfig(opts ...Option) (*Config, error) {
	cfg := DefaultConfig()
	cfg.LoadFromEnv()

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("config: apply option: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first configuration error found, matching
// core/config.go's Validate rules generalized to this module's fields.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Port)
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("config: name is required")
	}
	switch c.Planner.Mode {
	case "auto", "llm", "fallback":
	default:
		return fmt.Errorf("config: invalid planner mode %q", c.Planner.Mode)
	}
	if (c.Planner.Mode == "llm" || c.Planner.Mode == "auto") && c.Planner.APIKey == "" {
		return fmt.Errorf("config: planner API key is required in %q mode", c.Planner.Mode)
	}
	if c.Scheduler.MaxConcurrency < 1 {
		return fmt.Errorf("config: scheduler max_concurrency must be >= 1")
	}
	if c.Resilience.FailureThreshold < 1 {
		return fmt.Errorf("config: resilience failure_threshold must be >= 1")
	}
	if c.Telemetry.Enabled && c.Telemetry.OTLPEndpoint == "" {
		return fmt.Errorf("config: telemetry otlp_endpoint is required when telemetry is enabled")
	}
	for _, a := range c.Agents {
		if a.ID == "" || a.BaseURL == "" {
			return fmt.Errorf("config: agent endpoint entries require both id and base_url")
		}
	}
	return nil
}
