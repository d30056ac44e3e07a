// Package metrics records agent loop activity as Prometheus metrics through
// the OpenTelemetry metric API.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Tool call outcomes.
const (
	OutcomeOK        = "ok"
	OutcomeError     = "error"
	OutcomeCancelled = "cancelled"
)

// Collector records loop metrics. A nil *Collector is valid and records
// nothing.
type Collector struct {
	provider     *sdkmetric.MeterProvider
	turns        metric.Int64Counter
	toolCalls    metric.Int64Counter
	toolDuration metric.Float64Histogram
	retries      metric.Int64Counter
	tokens       metric.Int64Counter
	activeTools  metric.Int64UpDownCounter
}

// New registers the loom metrics on reg. A nil reg uses the Prometheus
// default registerer.
func New(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	exporter, err := otelprom.New(
		otelprom.WithRegisterer(reg),
		otelprom.WithoutUnits(),
		otelprom.WithoutCounterSuffixes(),
		otelprom.WithoutScopeInfo(),
		otelprom.WithoutTargetInfo(),
	)
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	meter := provider.Meter("github.com/spetersoncode/loom")

	c := &Collector{provider: provider}
	if c.turns, err = meter.Int64Counter("loom_turns_total",
		metric.WithDescription("Completed turns by terminal or continuation reason")); err != nil {
		return nil, fmt.Errorf("create turns counter: %w", err)
	}
	if c.toolCalls, err = meter.Int64Counter("loom_tool_calls_total",
		metric.WithDescription("Tool calls by tool and outcome")); err != nil {
		return nil, fmt.Errorf("create tool calls counter: %w", err)
	}
	if c.toolDuration, err = meter.Float64Histogram("loom_tool_duration_seconds",
		metric.WithDescription("Tool execution duration in seconds")); err != nil {
		return nil, fmt.Errorf("create tool duration histogram: %w", err)
	}
	if c.retries, err = meter.Int64Counter("loom_stream_retries_total",
		metric.WithDescription("Stream retries after transient provider errors")); err != nil {
		return nil, fmt.Errorf("create retries counter: %w", err)
	}
	if c.tokens, err = meter.Int64Counter("loom_tokens_total",
		metric.WithDescription("Tokens consumed by provider and kind")); err != nil {
		return nil, fmt.Errorf("create tokens counter: %w", err)
	}
	if c.activeTools, err = meter.Int64UpDownCounter("loom_active_tools",
		metric.WithDescription("Tool executions in flight")); err != nil {
		return nil, fmt.Errorf("create active tools gauge: %w", err)
	}
	return c, nil
}

// Shutdown stops the underlying meter provider.
func (c *Collector) Shutdown(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.provider.Shutdown(ctx)
}

// Turn records a finished turn. reason is "continue" for turns followed by
// another request, or the loop's terminal reason.
func (c *Collector) Turn(reason string) {
	if c == nil {
		return
	}
	c.turns.Add(context.Background(), 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// ToolStarted marks a tool execution in flight.
func (c *Collector) ToolStarted() {
	if c == nil {
		return
	}
	c.activeTools.Add(context.Background(), 1)
}

// ToolFinished records a completed tool execution.
func (c *Collector) ToolFinished(name, outcome string, d time.Duration) {
	if c == nil {
		return
	}
	ctx := context.Background()
	c.activeTools.Add(ctx, -1)
	c.toolCalls.Add(ctx, 1, metric.WithAttributes(attribute.String("tool", name), attribute.String("outcome", outcome)))
	c.toolDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("tool", name)))
}

// ToolRejected records a call resolved without execution, such as invalid
// arguments or an unknown tool.
func (c *Collector) ToolRejected(name string) {
	if c == nil {
		return
	}
	c.toolCalls.Add(context.Background(), 1, metric.WithAttributes(attribute.String("tool", name), attribute.String("outcome", OutcomeError)))
}

// ToolCancelled records a call cancelled before it started, such as one
// still waiting for a concurrency slot when the turn was aborted.
func (c *Collector) ToolCancelled(name string) {
	if c == nil {
		return
	}
	c.toolCalls.Add(context.Background(), 1, metric.WithAttributes(attribute.String("tool", name), attribute.String("outcome", OutcomeCancelled)))
}

// Retry records a stream retry.
func (c *Collector) Retry(provider string) {
	if c == nil {
		return
	}
	c.retries.Add(context.Background(), 1, metric.WithAttributes(attribute.String("provider", provider)))
}

// Tokens records token usage by kind.
func (c *Collector) Tokens(provider string, input, output, cacheRead, cacheWrite int) {
	if c == nil {
		return
	}
	ctx := context.Background()
	for kind, n := range map[string]int{"input": input, "output": output, "cache_read": cacheRead, "cache_write": cacheWrite} {
		if n > 0 {
			c.tokens.Add(ctx, int64(n), metric.WithAttributes(attribute.String("provider", provider), attribute.String("kind", kind)))
		}
	}
}

// Handler serves the metrics gathered by g, or the default gatherer when g
// is nil.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
