package agent

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	ai "github.com/spetersoncode/loom"
	"github.com/spetersoncode/loom/internal/logging"
	"github.com/spetersoncode/loom/metrics"
	"github.com/spetersoncode/loom/tool"
)

// Streamer sends a conversation to a model. *client.Client satisfies it.
//
// The returned channel must follow the canonical event contract: exactly one
// terminal event, or closure without one when ctx is cancelled.
type Streamer interface {
	Stream(ctx context.Context, model ai.Model, c ai.Context, opts ...ai.Option) (<-chan ai.StreamEvent, error)
}

// Agent holds the shared configuration of agent loops. Each Session runs
// its own loop; an Agent may serve many sessions concurrently.
type Agent struct {
	streamer    Streamer
	tools       *tool.Registry
	cfg         Config
	logger      *slog.Logger
	metrics     *metrics.Collector
	streamOpts  []ai.Option
	toolContext func() any
}

// New creates an Agent that calls models through streamer and tools from
// tools. A nil tools registry means no tools are offered.
func New(streamer Streamer, tools *tool.Registry, opts ...Option) *Agent {
	if tools == nil {
		tools = tool.NewRegistry()
	}
	a := &Agent{
		streamer: streamer,
		tools:    tools,
		cfg:      DefaultConfig(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = logging.OrDiscard(a.logger)
	return a
}

// Config returns the loop configuration.
func (a *Agent) Config() Config {
	return a.cfg
}

// Tools returns the tool registry.
func (a *Agent) Tools() *tool.Registry {
	return a.tools
}

// NewSession starts a conversation with model from the initial context c.
// The session keeps its own copy of c.
func (a *Agent) NewSession(model ai.Model, c ai.Context) *Session {
	id := uuid.NewString()
	return &Session{
		agent:  a,
		id:     id,
		model:  model,
		ctx:    c.Clone(),
		state:  StateIdle,
		logger: a.logger.With("session", id, "model", model.String()),
	}
}
