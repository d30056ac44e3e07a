package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	ai "github.com/spetersoncode/loom"
	"github.com/spetersoncode/loom/internal/telemetry"
	"github.com/spetersoncode/loom/metrics"
	"github.com/spetersoncode/loom/tool"
	"github.com/spetersoncode/loom/toolcall"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"
)

const cancelledText = "tool execution cancelled"

// executor runs tool calls with a bounded number in flight.
type executor struct {
	sem     *semaphore.Weighted // nil when unbounded
	timeout time.Duration
	logger  *slog.Logger
	metrics *metrics.Collector
}

func newExecutor(cfg Config, logger *slog.Logger, m *metrics.Collector) *executor {
	e := &executor{
		timeout: cfg.ToolTimeout,
		logger:  logger,
		metrics: m,
	}
	if cfg.MaxConcurrentTools > 0 {
		e.sem = semaphore.NewWeighted(int64(cfg.MaxConcurrentTools))
	}
	return e
}

// execute runs one call and always returns a tool-result message for it.
// Failures become error results. A call whose context ends before or while it
// runs is marked cancelled, even when the tool still returns output.
func (e *executor) execute(ctx context.Context, t tool.Tool, req toolcall.Request, tc tool.Context, onProgress tool.ProgressFunc) ai.Message {
	call := req.Call
	if e.sem != nil {
		if err := e.sem.Acquire(ctx, 1); err != nil {
			e.metrics.ToolCancelled(call.Name)
			return cancelledResult(call, cancelledText)
		}
		defer e.sem.Release(1)
	}
	if ctx.Err() != nil {
		e.metrics.ToolCancelled(call.Name)
		return cancelledResult(call, cancelledText)
	}

	callCtx, cancel := ctx, context.CancelFunc(func() {})
	if e.timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, e.timeout)
	}
	defer cancel()
	callCtx, span := telemetry.StartSpan(callCtx, "loom.tool", trace.WithAttributes(
		attribute.String("tool.name", call.Name),
		attribute.String("tool.call_id", call.ID),
	))

	start := time.Now()
	e.metrics.ToolStarted()
	res, err := invoke(callCtx, t, req, onProgress, tc)
	d := time.Since(start)

	var (
		msg     ai.Message
		outcome string
	)
	switch {
	case err != nil && callCtx.Err() != nil:
		text := cancelledText
		if ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			text = fmt.Sprintf("tool timed out after %s", e.timeout)
		}
		msg, outcome = cancelledResult(call, text), metrics.OutcomeCancelled
	case err != nil:
		msg, outcome = errorResult(call, err.Error()), metrics.OutcomeError
	default:
		msg, outcome = ai.NewToolResultMessage(call, res.Content, false), metrics.OutcomeOK
		msg.Details = res.Details
		// The loop was aborted while the tool ran. Its output is kept.
		if ctx.Err() != nil {
			msg.Cancelled = true
			outcome = metrics.OutcomeCancelled
		}
	}

	span.SetAttributes(attribute.String("tool.outcome", outcome))
	telemetry.EndSpan(span, err)
	e.metrics.ToolFinished(call.Name, outcome, d)
	e.logger.Debug("tool finished", "tool", call.Name, "call_id", call.ID, "outcome", outcome, "duration", d)
	return msg
}

// invoke calls the tool, converting a panic into a *tool.ExecutionError.
func invoke(ctx context.Context, t tool.Tool, req toolcall.Request, onProgress tool.ProgressFunc, tc tool.Context) (res tool.Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &tool.ExecutionError{Name: t.Name(), Err: fmt.Errorf("%v", p), Panicked: true}
		}
	}()
	return t.Execute(ctx, req.Call.ID, req.Args, onProgress, tc)
}

func errorResult(call ai.ToolCall, text string) ai.Message {
	return ai.NewToolResultMessage(call, []ai.ContentBlock{ai.NewTextBlock(text)}, true)
}

func cancelledResult(call ai.ToolCall, text string) ai.Message {
	m := errorResult(call, text)
	m.Cancelled = true
	return m
}
