// Package config loads loom's runtime configuration from an optional YAML
// file, a .env file and environment variables, in increasing precedence.
//
// Example file:
//
//	model: anthropic/claude-sonnet-4-5
//	max_turns: 50
//	max_concurrent_tools: 4
//	tool_timeout: 2m
//	retry:
//	  max_attempts: 5
//	  initial_delay: 1s
//	log:
//	  level: debug
//	  format: json
//	metrics_addr: ":9090"
//	session_db: .loom/sessions.db
//	mcp_servers:
//	  - name: git
//	    command: mcp-server-git
//
// Provider credentials are read from the environment only; see
// client.EnvAPIKey.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	ai "github.com/spetersoncode/loom"
	"github.com/spetersoncode/loom/agent"
	"github.com/spetersoncode/loom/internal/logging"
	"github.com/spetersoncode/loom/internal/telemetry"
	"github.com/spetersoncode/loom/mcp"
	"github.com/spetersoncode/loom/models"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "anthropic/claude-sonnet-4-5"

// DefaultSessionDB is the transcript database, relative to the working
// directory.
const DefaultSessionDB = ".loom/sessions.db"

// Log configures the process logger.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the full runtime configuration.
type Config struct {
	Agent agent.Config `yaml:",inline"`
	Log   Log          `yaml:"log"`

	// Model is "provider/id".
	Model string `yaml:"model"`

	// MetricsAddr serves /metrics when set.
	MetricsAddr string `yaml:"metrics_addr"`
	// AGUIAddr serves the AG-UI endpoint when set.
	AGUIAddr string `yaml:"agui_addr"`
	// SessionDB is the SQLite file holding saved transcripts.
	SessionDB string `yaml:"session_db"`

	Telemetry  telemetry.Config   `yaml:"telemetry"`
	MCPServers []mcp.ServerConfig `yaml:"mcp_servers"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Agent:     agent.DefaultConfig(),
		Log:       Log{Level: "info", Format: "text"},
		Model:     DefaultModel,
		SessionDB: DefaultSessionDB,
		Telemetry: telemetry.Config{
			SamplingRate: 1,
			ServiceName:  "loom",
		},
	}
}

// Load reads the configuration. A missing .env file is ignored; an empty
// path skips the YAML file. The result is validated.
func Load(path string) (*Config, error) {
	godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Model = getEnvOrDefault("LOOM_MODEL", c.Model)
	c.Log.Level = getEnvOrDefault("LOOM_LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnvOrDefault("LOOM_LOG_FORMAT", c.Log.Format)
	c.MetricsAddr = getEnvOrDefault("LOOM_METRICS_ADDR", c.MetricsAddr)
	c.AGUIAddr = getEnvOrDefault("LOOM_AGUI_ADDR", c.AGUIAddr)
	c.SessionDB = getEnvOrDefault("LOOM_SESSION_DB", c.SessionDB)

	c.Agent.MaxTurns = getEnvIntOrDefault("LOOM_MAX_TURNS", c.Agent.MaxTurns)
	c.Agent.MaxConcurrentTools = getEnvIntOrDefault("LOOM_MAX_CONCURRENT_TOOLS", c.Agent.MaxConcurrentTools)
	c.Agent.ToolTimeout = getEnvDurationOrDefault("LOOM_TOOL_TIMEOUT", c.Agent.ToolTimeout)
	c.Agent.Retry.MaxAttempts = getEnvIntOrDefault("LOOM_RETRY_MAX_ATTEMPTS", c.Agent.Retry.MaxAttempts)
	c.Agent.Retry.InitialDelay = getEnvDurationOrDefault("LOOM_RETRY_INITIAL_DELAY", c.Agent.Retry.InitialDelay)
	c.Agent.Retry.MaxDelay = getEnvDurationOrDefault("LOOM_RETRY_MAX_DELAY", c.Agent.Retry.MaxDelay)

	c.Telemetry.Endpoint = getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", c.Telemetry.Endpoint)
	c.Telemetry.ServiceName = getEnvOrDefault("OTEL_SERVICE_NAME", c.Telemetry.ServiceName)
	if c.Telemetry.Endpoint != "" {
		c.Telemetry.Enabled = getEnvBoolOrDefault("LOOM_TRACING", true)
	}
}

// Validate checks every section.
func (c *Config) Validate() error {
	if c.Agent.Retry.MaxAttempts < 1 {
		return errors.New("config: retry.max_attempts must be >= 1")
	}
	if err := c.Agent.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("config: unknown log format %q", c.Log.Format)
	}
	if _, err := models.Parse(c.Model); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	for _, s := range c.MCPServers {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	return nil
}

// AgentConfig returns the loop configuration.
func (c *Config) AgentConfig() agent.Config {
	return c.Agent
}

// ResolveModel returns the descriptor of the configured model.
func (c *Config) ResolveModel() (ai.Model, error) {
	return models.Parse(c.Model)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
