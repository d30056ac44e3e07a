package client

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	ai "github.com/spetersoncode/loom"
	"github.com/spetersoncode/loom/internal/logging"
	"github.com/spetersoncode/loom/internal/provider/anthropic"
	"github.com/spetersoncode/loom/internal/provider/google"
	"github.com/spetersoncode/loom/internal/provider/ollama"
	"github.com/spetersoncode/loom/internal/provider/openai"
	"github.com/spetersoncode/loom/internal/provider/responses"
	"github.com/spetersoncode/loom/internal/telemetry"
	"github.com/spetersoncode/loom/registry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// adapter is the signature shared by the built-in provider packages.
type adapter struct {
	full   func(context.Context, ai.Model, ai.Context, ai.StreamOptions, *http.Client) <-chan ai.StreamEvent
	simple func(context.Context, ai.Model, ai.Context, ai.SimpleStreamOptions, *http.Client) <-chan ai.StreamEvent
}

var builtins = map[ai.Api]adapter{
	ai.ApiAnthropicMessages:    {anthropic.Stream, anthropic.StreamSimple},
	ai.ApiOpenAICompletions:    {openai.Stream, openai.StreamSimple},
	ai.ApiOpenAIResponses:      {responses.Stream, responses.StreamSimple},
	ai.ApiAzureOpenAIResponses: {responses.Stream, responses.StreamSimple},
	ai.ApiGoogleGenerativeAI:   {google.Stream, google.StreamSimple},
	ai.ApiGoogleVertex:         {google.Stream, google.StreamSimple},
	ai.ApiOllamaChat:           {ollama.Stream, ollama.StreamSimple},
}

// envKeys lists the environment variables consulted for each provider, in
// order of preference.
var envKeys = map[ai.Provider][]string{
	ai.ProviderAnthropic:   {"ANTHROPIC_API_KEY"},
	ai.ProviderOpenAI:      {"OPENAI_API_KEY"},
	ai.ProviderAzureOpenAI: {"AZURE_OPENAI_API_KEY"},
	ai.ProviderGoogle:      {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	ai.ProviderGroq:        {"GROQ_API_KEY"},
	ai.ProviderXAI:         {"XAI_API_KEY"},
	ai.ProviderCerebras:    {"CEREBRAS_API_KEY"},
	ai.ProviderOpenRouter:  {"OPENROUTER_API_KEY"},
	ai.ProviderMistral:     {"MISTRAL_API_KEY"},
	ai.ProviderDeepSeek:    {"DEEPSEEK_API_KEY"},
}

// EnvAPIKey returns the API key for provider from the environment, or ""
// when none is set. Vertex and Ollama authenticate without a key.
func EnvAPIKey(provider ai.Provider) string {
	for _, name := range envKeys[provider] {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// Option configures a Client.
type Option func(*Client)

// WithRegistry sets the registry consulted for custom APIs.
// Defaults to registry.Default().
func WithRegistry(r *registry.Registry) Option {
	return func(c *Client) {
		c.registry = r
	}
}

// WithAPIKeys sets per-provider credentials. Keys passed with ai.WithAPIKey
// on a request take precedence.
func WithAPIKeys(keys map[ai.Provider]string) Option {
	return func(c *Client) {
		c.apiKeys = make(map[ai.Provider]string, len(keys))
		for p, k := range keys {
			c.apiKeys[p] = k
		}
	}
}

// WithHTTPClient sets the HTTP client handed to built-in adapters.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger. Defaults to a discarding logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithTracer sets the tracer used for stream spans.
func WithTracer(t trace.Tracer) Option {
	return func(c *Client) {
		c.tracer = t
	}
}

// WithEvents sets a channel that receives request lifecycle events.
// Events are sent non-blocking; if the channel is full, events are dropped.
func WithEvents(ch chan<- Event) Option {
	return func(c *Client) {
		c.events = ch
	}
}

// Client dispatches stream requests to the adapter serving each model's API.
// It holds no per-request state and is safe for concurrent use.
type Client struct {
	registry   *registry.Registry
	apiKeys    map[ai.Provider]string
	httpClient *http.Client
	logger     *slog.Logger
	tracer     trace.Tracer
	events     chan<- Event
}

// New creates a Client.
func New(opts ...Option) *Client {
	c := &Client{}
	for _, opt := range opts {
		opt(c)
	}
	if c.registry == nil {
		c.registry = registry.Default()
	}
	if c.tracer == nil {
		c.tracer = telemetry.Tracer()
	}
	c.logger = logging.OrDiscard(c.logger)
	return c
}

// Resolve returns the stream functions serving api. Built-in adapters win
// over registry entries; an API served by neither yields
// *ai.UnsupportedApiError.
func (c *Client) Resolve(api ai.Api) (ai.StreamFunc, ai.SimpleStreamFunc, error) {
	if b, ok := builtins[api]; ok {
		hc := c.httpClient
		full := func(ctx context.Context, m ai.Model, cx ai.Context, o ai.StreamOptions) <-chan ai.StreamEvent {
			return b.full(ctx, m, cx, o, hc)
		}
		simple := func(ctx context.Context, m ai.Model, cx ai.Context, o ai.SimpleStreamOptions) <-chan ai.StreamEvent {
			return b.simple(ctx, m, cx, o, hc)
		}
		return full, simple, nil
	}
	if e, ok := c.registry.Lookup(api); ok {
		return e.Stream, e.StreamSimple, nil
	}
	return nil, nil, &ai.UnsupportedApiError{Api: api}
}

// Stream sends c to model through the adapter for model.Api.
//
// The returned channel follows the canonical event contract: exactly one
// terminal event, or closure without one when ctx is cancelled. The only
// synchronous error is *ai.UnsupportedApiError.
func (c *Client) Stream(ctx context.Context, model ai.Model, cx ai.Context, opts ...ai.Option) (<-chan ai.StreamEvent, error) {
	full, _, err := c.Resolve(model.Api)
	if err != nil {
		c.logger.Warn("unsupported api", "api", model.Api, "model", model.ID)
		return nil, err
	}
	o := ai.ApplyOptions(opts...)
	o.APIKey = c.apiKey(model.Provider, o.APIKey)

	ctx, span, start := c.begin(ctx, model, "stream")
	return c.observe(ctx, span, model, start, full(ctx, model, cx, o)), nil
}

// StreamSimple is Stream with the reduced option set.
func (c *Client) StreamSimple(ctx context.Context, model ai.Model, cx ai.Context, opts ai.SimpleStreamOptions) (<-chan ai.StreamEvent, error) {
	_, simple, err := c.Resolve(model.Api)
	if err != nil {
		c.logger.Warn("unsupported api", "api", model.Api, "model", model.ID)
		return nil, err
	}
	opts.APIKey = c.apiKey(model.Provider, opts.APIKey)

	ctx, span, start := c.begin(ctx, model, "stream_simple")
	return c.observe(ctx, span, model, start, simple(ctx, model, cx, opts)), nil
}

// Complete streams a request and collects it into one assistant message.
// On a terminal error the partial message is returned along with the error.
func (c *Client) Complete(ctx context.Context, model ai.Model, cx ai.Context, opts ...ai.Option) (ai.Message, error) {
	events, err := c.Stream(ctx, model, cx, opts...)
	if err != nil {
		return ai.Message{}, err
	}
	return ai.Collect(ctx, model, events)
}

func (c *Client) apiKey(p ai.Provider, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if k := c.apiKeys[p]; k != "" {
		return k
	}
	return EnvAPIKey(p)
}

func (c *Client) begin(ctx context.Context, model ai.Model, op string) (context.Context, trace.Span, time.Time) {
	ctx, span := c.tracer.Start(ctx, "loom.stream",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("llm.provider", string(model.Provider)),
			attribute.String("llm.model", model.ID),
			attribute.String("llm.api", string(model.Api)),
		),
	)
	emit(c.events, Event{
		Type:      EventRequestStart,
		Operation: op,
		Provider:  model.Provider,
		Model:     model.ID,
	})
	c.logger.Debug("stream start", "provider", model.Provider, "model", model.ID, "api", model.Api)
	return ctx, span, time.Now()
}

// observe forwards events from src until its terminal event, ending the span
// and reporting the outcome. When ctx ends first, src is drained in the
// background and the output closes without a terminal event.
func (c *Client) observe(ctx context.Context, span trace.Span, model ai.Model, start time.Time, src <-chan ai.StreamEvent) <-chan ai.StreamEvent {
	out := make(chan ai.StreamEvent)
	go func() {
		defer close(out)
		var (
			usage    *ai.Usage
			terminal bool
		)
		defer func() {
			if !terminal {
				err := ctx.Err()
				if err == nil {
					err = ai.ErrStreamTruncated
				}
				telemetry.EndSpan(span, err)
				go func() {
					for range src {
					}
				}()
			}
		}()
		for ev := range src {
			if ev.Type == ai.EventUsage && ev.Usage != nil {
				u := *ev.Usage
				usage = &u
				span.SetAttributes(
					attribute.Int("llm.usage.input_tokens", u.Input),
					attribute.Int("llm.usage.output_tokens", u.Output),
				)
			}
			if ev.IsTerminal() {
				terminal = true
				c.finish(span, model, start, usage, ev)
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
			if terminal {
				return
			}
		}
	}()
	return out
}

func (c *Client) finish(span trace.Span, model ai.Model, start time.Time, usage *ai.Usage, ev ai.StreamEvent) {
	d := time.Since(start)
	if ev.Type == ai.EventError {
		var err error = ev.Err
		if ev.Err == nil {
			err = &ai.StreamError{Kind: ai.ErrorKindProvider, Message: "stream failed"}
		}
		telemetry.EndSpan(span, err)
		emit(c.events, Event{
			Type:     EventRequestError,
			Provider: model.Provider,
			Model:    model.ID,
			Duration: d,
			Error:    err,
		})
		c.logger.Debug("stream failed", "provider", model.Provider, "model", model.ID, "error", err, "duration", d)
		return
	}
	span.SetAttributes(attribute.String("llm.stop_reason", string(ev.StopReason)))
	telemetry.EndSpan(span, nil)
	emit(c.events, Event{
		Type:       EventRequestComplete,
		Provider:   model.Provider,
		Model:      model.ID,
		Duration:   d,
		Usage:      usage,
		StopReason: ev.StopReason,
	})
	c.logger.Debug("stream done", "provider", model.Provider, "model", model.ID, "stop_reason", ev.StopReason, "duration", d)
}
