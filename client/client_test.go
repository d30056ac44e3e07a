package client

import (
	"context"
	"testing"
	"time"

	ai "github.com/spetersoncode/loom"
	"github.com/spetersoncode/loom/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

const testApi ai.Api = "test-echo"

// scripted returns a simple stream function replaying events and recording
// the options it was called with.
func scripted(seen *ai.SimpleStreamOptions, events ...ai.StreamEvent) ai.SimpleStreamFunc {
	return func(ctx context.Context, model ai.Model, c ai.Context, opts ai.SimpleStreamOptions) <-chan ai.StreamEvent {
		if seen != nil {
			*seen = opts
		}
		ch := make(chan ai.StreamEvent)
		go func() {
			defer close(ch)
			for _, ev := range events {
				select {
				case ch <- ev:
				case <-ctx.Done():
					return
				}
			}
		}()
		return ch
	}
}

func echoEvents() []ai.StreamEvent {
	return []ai.StreamEvent{
		{Type: ai.EventTextDelta, Delta: "hel"},
		{Type: ai.EventTextDelta, Delta: "lo"},
		{Type: ai.EventUsage, Usage: &ai.Usage{Input: 3, Output: 2, Total: 5}},
		{Type: ai.EventDone, StopReason: ai.StopReasonStop},
	}
}

func drain(ch <-chan ai.StreamEvent) []ai.StreamEvent {
	var out []ai.StreamEvent
	for ev := range ch {
		out = append(out, ev)
	}
	return out
}

func testModel(api ai.Api, p ai.Provider) ai.Model {
	return ai.Model{ID: "m1", Provider: p, Api: api}
}

func TestStreamResolvesRegistry(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.Register(testApi, scripted(nil, echoEvents()...)))
	c := New(WithRegistry(reg))

	events, err := c.Stream(context.Background(), testModel(testApi, "acme"), ai.Context{})
	require.NoError(t, err)

	got := drain(events)
	require.Len(t, got, 4)
	assert.Equal(t, ai.EventDone, got[3].Type)

	msg, err := ai.Collect(context.Background(), testModel(testApi, "acme"), c.mustStream(t, testApi))
	require.NoError(t, err)
	assert.Equal(t, "hello", msg.Text())
	assert.Equal(t, 5, msg.Usage.Total)
}

func (c *Client) mustStream(t *testing.T, api ai.Api) <-chan ai.StreamEvent {
	t.Helper()
	ch, err := c.Stream(context.Background(), testModel(api, "acme"), ai.Context{})
	require.NoError(t, err)
	return ch
}

func TestStreamUnsupportedApi(t *testing.T) {
	c := New(WithRegistry(registry.New()))

	_, err := c.Stream(context.Background(), testModel("nope", "acme"), ai.Context{})
	var ue *ai.UnsupportedApiError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, ai.Api("nope"), ue.Api)

	_, err = c.StreamSimple(context.Background(), testModel("nope", "acme"), ai.Context{}, ai.SimpleStreamOptions{})
	require.ErrorAs(t, err, &ue)
}

func TestResolveBuiltinsWinOverRegistry(t *testing.T) {
	c := New(WithRegistry(registry.New()))
	for _, api := range ai.BuiltinApis() {
		t.Run(string(api), func(t *testing.T) {
			full, simple, err := c.Resolve(api)
			require.NoError(t, err)
			assert.NotNil(t, full)
			assert.NotNil(t, simple)
		})
	}
}

func TestResolutionIsFreshPerCall(t *testing.T) {
	reg := registry.New()
	c := New(WithRegistry(reg))

	_, _, err := c.Resolve(testApi)
	require.Error(t, err)

	require.NoError(t, reg.Register(testApi, scripted(nil, echoEvents()...), registry.WithSource("ext")))
	_, _, err = c.Resolve(testApi)
	require.NoError(t, err)

	reg.UnregisterBySource("ext")
	_, _, err = c.Resolve(testApi)
	require.Error(t, err)
}

func TestAPIKeyPrecedence(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "env-key")

	var seen ai.SimpleStreamOptions
	reg := registry.New()
	require.NoError(t, reg.Register(testApi, scripted(&seen, echoEvents()...)))
	model := testModel(testApi, ai.ProviderAnthropic)

	t.Run("environment", func(t *testing.T) {
		c := New(WithRegistry(reg))
		drain(c.mustStreamModel(t, model))
		assert.Equal(t, "env-key", seen.APIKey)
	})

	t.Run("client map", func(t *testing.T) {
		c := New(WithRegistry(reg), WithAPIKeys(map[ai.Provider]string{ai.ProviderAnthropic: "map-key"}))
		drain(c.mustStreamModel(t, model))
		assert.Equal(t, "map-key", seen.APIKey)
	})

	t.Run("explicit option", func(t *testing.T) {
		c := New(WithRegistry(reg), WithAPIKeys(map[ai.Provider]string{ai.ProviderAnthropic: "map-key"}))
		drain(c.mustStreamModel(t, model, ai.WithAPIKey("explicit")))
		assert.Equal(t, "explicit", seen.APIKey)
	})
}

func (c *Client) mustStreamModel(t *testing.T, model ai.Model, opts ...ai.Option) <-chan ai.StreamEvent {
	t.Helper()
	ch, err := c.Stream(context.Background(), model, ai.Context{}, opts...)
	require.NoError(t, err)
	return ch
}

func TestEnvAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "google-key")
	assert.Equal(t, "google-key", EnvAPIKey(ai.ProviderGoogle))

	t.Setenv("GEMINI_API_KEY", "gemini-key")
	assert.Equal(t, "gemini-key", EnvAPIKey(ai.ProviderGoogle))

	assert.Empty(t, EnvAPIKey(ai.ProviderOllama))
}

func TestStreamSpan(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))

	reg := registry.New()
	require.NoError(t, reg.Register(testApi, scripted(nil, echoEvents()...)))
	require.NoError(t, reg.Register("test-fail", scripted(nil,
		ai.StreamEvent{Type: ai.EventError, Err: &ai.StreamError{Kind: ai.ErrorKindAuth, Message: "bad key"}},
	)))
	c := New(WithRegistry(reg), WithTracer(tp.Tracer("test")))

	drain(c.mustStream(t, testApi))
	drain(c.mustStream(t, "test-fail"))

	spans := rec.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "loom.stream", spans[0].Name())
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
	attrs := map[string]string{}
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "acme", attrs["llm.provider"])
	assert.Equal(t, "m1", attrs["llm.model"])
	assert.Equal(t, string(testApi), attrs["llm.api"])
	assert.Equal(t, codes.Error, spans[1].Status().Code)
}

func TestStreamEvents(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.Register(testApi, scripted(nil, echoEvents()...)))
	ch := make(chan Event, 10)
	c := New(WithRegistry(reg), WithEvents(ch))

	drain(c.mustStream(t, testApi))

	start := <-ch
	assert.Equal(t, EventRequestStart, start.Type)
	assert.Equal(t, "stream", start.Operation)
	done := <-ch
	assert.Equal(t, EventRequestComplete, done.Type)
	require.NotNil(t, done.Usage)
	assert.Equal(t, 5, done.Usage.Total)
	assert.Equal(t, ai.StopReasonStop, done.StopReason)
}

func TestEmitDoesNotBlock(t *testing.T) {
	ch := make(chan Event)
	emit(ch, Event{Type: EventRequestStart})
	emit(nil, Event{Type: EventRequestStart})
}

func TestStreamCancelClosesWithoutTerminal(t *testing.T) {
	block := func(ctx context.Context, model ai.Model, c ai.Context, opts ai.SimpleStreamOptions) <-chan ai.StreamEvent {
		ch := make(chan ai.StreamEvent)
		go func() {
			defer close(ch)
			select {
			case ch <- ai.StreamEvent{Type: ai.EventTextDelta, Delta: "x"}:
			case <-ctx.Done():
				return
			}
			<-ctx.Done()
		}()
		return ch
	}
	reg := registry.New()
	require.NoError(t, reg.Register(testApi, block))
	c := New(WithRegistry(reg))

	ctx, cancel := context.WithCancel(context.Background())
	events, err := c.Stream(ctx, testModel(testApi, "acme"), ai.Context{})
	require.NoError(t, err)

	first := <-events
	assert.Equal(t, ai.EventTextDelta, first.Type)
	cancel()

	select {
	case ev, ok := <-events:
		if ok {
			assert.False(t, ev.IsTerminal())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not close after cancel")
	}
}

func TestCompleteReturnsPartialOnError(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.Register(testApi, scripted(nil,
		ai.StreamEvent{Type: ai.EventTextDelta, Delta: "par"},
		ai.StreamEvent{Type: ai.EventError, Err: ai.NewTransientStreamError("overloaded")},
	)))
	c := New(WithRegistry(reg))

	msg, err := c.Complete(context.Background(), testModel(testApi, "acme"), ai.Context{})
	require.Error(t, err)
	assert.True(t, ai.IsTransient(err))
	assert.Equal(t, "par", msg.Text())
	assert.Equal(t, ai.StopReasonError, msg.StopReason)
}
