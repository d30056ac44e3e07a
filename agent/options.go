package agent

import (
	"errors"
	"log/slog"
	"time"

	ai "github.com/spetersoncode/loom"
	"github.com/spetersoncode/loom/metrics"
	"github.com/spetersoncode/loom/retry"
)

// Config bounds the agent loop.
type Config struct {
	// MaxTurns ends a run in StateMaxTurnsReached after this many turns of
	// that run.
	// 0 means unlimited.
	MaxTurns int `yaml:"max_turns"`

	// MaxConcurrentTools bounds tool executions within a turn.
	// 0 means unbounded.
	MaxConcurrentTools int `yaml:"max_concurrent_tools"`

	// ToolTimeout cancels each tool execution after this duration.
	// 0 means no per-tool deadline.
	ToolTimeout time.Duration `yaml:"tool_timeout"`

	// Retry governs retries of transient stream errors.
	Retry retry.Config `yaml:"retry"`
}

// DefaultConfig returns an unbounded loop with the default retry policy.
func DefaultConfig() Config {
	return Config{Retry: retry.DefaultConfig()}
}

// Validate rejects negative limits and invalid retry settings.
func (c Config) Validate() error {
	if c.MaxTurns < 0 {
		return errors.New("agent: max_turns must be >= 0")
	}
	if c.MaxConcurrentTools < 0 {
		return errors.New("agent: max_concurrent_tools must be >= 0")
	}
	if c.ToolTimeout < 0 {
		return errors.New("agent: tool_timeout must be >= 0")
	}
	return c.Retry.Validate()
}

// Option is a functional option for configuring an Agent.
type Option func(*Agent)

// WithConfig replaces the loop configuration.
func WithConfig(cfg Config) Option {
	return func(a *Agent) {
		a.cfg = cfg
	}
}

// WithMaxTurns sets the turn limit. 0 means unlimited.
func WithMaxTurns(n int) Option {
	return func(a *Agent) {
		a.cfg.MaxTurns = n
	}
}

// WithMaxConcurrentTools bounds concurrent tool executions per turn.
func WithMaxConcurrentTools(n int) Option {
	return func(a *Agent) {
		a.cfg.MaxConcurrentTools = n
	}
}

// WithToolTimeout sets the per-tool deadline.
func WithToolTimeout(d time.Duration) Option {
	return func(a *Agent) {
		a.cfg.ToolTimeout = d
	}
}

// WithRetry sets the stream retry policy.
func WithRetry(cfg retry.Config) Option {
	return func(a *Agent) {
		a.cfg.Retry = cfg
	}
}

// WithLogger sets the logger. Defaults to a discarding logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Agent) {
		a.logger = l
	}
}

// WithMetrics records loop activity on m.
func WithMetrics(m *metrics.Collector) Option {
	return func(a *Agent) {
		a.metrics = m
	}
}

// WithStreamOptions passes options to every model request.
func WithStreamOptions(opts ...ai.Option) Option {
	return func(a *Agent) {
		a.streamOpts = append(a.streamOpts, opts...)
	}
}

// WithToolContext sets a hook whose value is handed to tools as
// tool.Context.Extra. It is called once per turn.
func WithToolContext(fn func() any) Option {
	return func(a *Agent) {
		a.toolContext = fn
	}
}
