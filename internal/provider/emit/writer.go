// Package emit writes canonical stream events on behalf of provider
// adapters. A Writer enforces per-tool-call ordering and a single terminal
// event, and stops emitting once the request context is cancelled.
package emit

import (
	"context"
	"fmt"

	ai "github.com/spetersoncode/loom"
	"github.com/spetersoncode/loom/retry"
)

type callState int

const (
	callOpen callState = iota + 1
	callEnded
)

// Writer owns the output channel of one stream.
type Writer struct {
	ctx    context.Context
	ch     chan ai.StreamEvent
	calls  map[string]callState
	order  []string
	closed bool
}

// New creates a Writer and its output channel.
func New(ctx context.Context) *Writer {
	return &Writer{
		ctx:   ctx,
		ch:    make(chan ai.StreamEvent),
		calls: make(map[string]callState),
	}
}

// Events returns the receive side of the stream.
func (w *Writer) Events() <-chan ai.StreamEvent {
	return w.ch
}

// send delivers ev unless the context is done. It reports whether the
// consumer received the event.
func (w *Writer) send(ev ai.StreamEvent) bool {
	if w.closed {
		return false
	}
	if w.ctx.Err() != nil {
		return false
	}
	select {
	case w.ch <- ev:
		return true
	case <-w.ctx.Done():
		return false
	}
}

// Live reports whether the stream can still emit.
func (w *Writer) Live() bool {
	return !w.closed && w.ctx.Err() == nil
}

// Text emits a text delta. Empty deltas are dropped.
func (w *Writer) Text(delta string) bool {
	if delta == "" {
		return w.Live()
	}
	return w.send(ai.StreamEvent{Type: ai.EventTextDelta, Delta: delta})
}

// Thinking emits a thinking delta.
func (w *Writer) Thinking(delta, signature string) bool {
	if delta == "" && signature == "" {
		return w.Live()
	}
	return w.send(ai.StreamEvent{Type: ai.EventThinkingDelta, Delta: delta, Signature: signature})
}

// ToolStart opens a tool call. Starting an id twice is ignored.
func (w *Writer) ToolStart(id, name string) bool {
	if _, seen := w.calls[id]; seen {
		return w.Live()
	}
	w.calls[id] = callOpen
	w.order = append(w.order, id)
	return w.send(ai.StreamEvent{Type: ai.EventToolCallStart, ToolCallID: id, ToolName: name})
}

// ToolDelta appends an argument fragment to an open call. Fragments for
// unknown or ended calls are dropped so the output never violates ordering.
func (w *Writer) ToolDelta(id, fragment string) bool {
	if w.calls[id] != callOpen || fragment == "" {
		return w.Live()
	}
	return w.send(ai.StreamEvent{Type: ai.EventToolCallDelta, ToolCallID: id, Delta: fragment})
}

// ToolEnd closes an open call.
func (w *Writer) ToolEnd(id string) bool {
	if w.calls[id] != callOpen {
		return w.Live()
	}
	w.calls[id] = callEnded
	return w.send(ai.StreamEvent{Type: ai.EventToolCallEnd, ToolCallID: id})
}

// ToolCall emits a complete call whose arguments arrived in one piece.
func (w *Writer) ToolCall(id, name, args string) bool {
	return w.ToolStart(id, name) && w.ToolDelta(id, args) && w.ToolEnd(id)
}

// EndOpenCalls closes every call still open, in start order.
func (w *Writer) EndOpenCalls() bool {
	for _, id := range w.order {
		if w.calls[id] == callOpen && !w.ToolEnd(id) {
			return false
		}
	}
	return w.Live()
}

// HasToolCalls reports whether any tool call was started.
func (w *Writer) HasToolCalls() bool {
	return len(w.order) > 0
}

// Usage emits a usage report.
func (w *Writer) Usage(u ai.Usage) bool {
	if u.Total == 0 {
		u.Total = u.Input + u.Output + u.CacheRead + u.CacheWrite
	}
	return w.send(ai.StreamEvent{Type: ai.EventUsage, Usage: &u})
}

// Done closes open calls, emits the terminal done event and closes the
// channel.
func (w *Writer) Done(reason ai.StopReason) {
	if w.closed {
		return
	}
	if w.EndOpenCalls() {
		if reason == "" {
			reason = ai.StopReasonStop
		}
		if reason == ai.StopReasonStop && w.HasToolCalls() {
			reason = ai.StopReasonToolUse
		}
		w.send(ai.StreamEvent{Type: ai.EventDone, StopReason: reason})
	}
	w.Close()
}

// Fail emits a terminal error event classified from err and closes the
// channel. Nothing is emitted once the context is cancelled.
func (w *Writer) Fail(err error) {
	if w.closed {
		return
	}
	se := retry.Classify(err)
	if se == nil {
		se = &ai.StreamError{Kind: ai.ErrorKindProvider, Message: "unknown error"}
	}
	w.send(ai.StreamEvent{Type: ai.EventError, Err: se})
	w.Close()
}

// Failf is Fail with a formatted, non-retryable provider error.
func (w *Writer) Failf(format string, args ...any) {
	w.Fail(&ai.StreamError{Kind: ai.ErrorKindProvider, Message: fmt.Sprintf(format, args...)})
}

// Close closes the channel without a terminal event. Adapters call it via
// defer so the channel is closed on every path.
func (w *Writer) Close() {
	if w.closed {
		return
	}
	w.closed = true
	close(w.ch)
}
