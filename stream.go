package loom

import (
	"context"
	"strings"
	"time"
)

// StreamEventType tags a canonical stream event.
type StreamEventType string

const (
	EventTextDelta     StreamEventType = "text_delta"
	EventThinkingDelta StreamEventType = "thinking_delta"
	EventToolCallStart StreamEventType = "toolcall_start"
	EventToolCallDelta StreamEventType = "toolcall_delta"
	EventToolCallEnd   StreamEventType = "toolcall_end"
	EventUsage         StreamEventType = "usage"
	EventError         StreamEventType = "error"
	EventDone          StreamEventType = "done"
)

// Usage counts tokens consumed by a request.
type Usage struct {
	Input      int `json:"input"`
	Output     int `json:"output"`
	CacheRead  int `json:"cacheRead,omitempty"`
	CacheWrite int `json:"cacheWrite,omitempty"`
	Total      int `json:"total"`
}

// Add returns the sum of u and o.
func (u Usage) Add(o Usage) Usage {
	return Usage{
		Input:      u.Input + o.Input,
		Output:     u.Output + o.Output,
		CacheRead:  u.CacheRead + o.CacheRead,
		CacheWrite: u.CacheWrite + o.CacheWrite,
		Total:      u.Total + o.Total,
	}
}

// StreamEvent is the vendor-independent unit produced by every stream
// adapter.
//
// A sequence is terminated by exactly one EventDone or EventError. Events for
// one tool-call ID arrive as start, deltas, end; events for different IDs may
// interleave. When the request context is cancelled the channel is closed
// without a terminal event.
type StreamEvent struct {
	Type StreamEventType `json:"type"`

	// Delta carries text, thinking or tool argument fragments.
	Delta string `json:"delta,omitempty"`
	// Signature accompanies thinking deltas from vendors that sign reasoning.
	Signature string `json:"signature,omitempty"`

	ToolCallID string `json:"toolCallId,omitempty"`
	ToolName   string `json:"toolName,omitempty"`

	Usage      *Usage       `json:"usage,omitempty"`
	StopReason StopReason   `json:"stopReason,omitempty"`
	Err        *StreamError `json:"error,omitempty"`
}

// IsTerminal reports whether the event ends its sequence.
func (e StreamEvent) IsTerminal() bool {
	return e.Type == EventDone || e.Type == EventError
}

// StreamFunc produces a canonical event sequence with explicit options.
type StreamFunc func(ctx context.Context, model Model, c Context, opts StreamOptions) <-chan StreamEvent

// SimpleStreamFunc produces a canonical event sequence with the reduced
// option set. Unset fields take provider defaults.
type SimpleStreamFunc func(ctx context.Context, model Model, c Context, opts SimpleStreamOptions) <-chan StreamEvent

// Collect drains a stream into an assistant message. It returns the message
// built so far together with the terminal error, if any. If the channel
// closes without a terminal event, ctx's error is returned. Tool calls are
// kept only when the stream completes, and only those that ended.
func Collect(ctx context.Context, model Model, events <-chan StreamEvent) (Message, error) {
	var (
		msg   = Message{Role: RoleAssistant, Api: model.Api, Provider: model.Provider, Model: model.ID}
		text  strings.Builder
		think strings.Builder
		sig   string
		calls []ToolCall
		args  = make(map[string]*strings.Builder)
		ended = make(map[string]bool)
	)

	flush := func() {
		if think.Len() > 0 {
			msg.Content = append(msg.Content, NewThinkingBlock(think.String(), sig))
			think.Reset()
		}
		if text.Len() > 0 {
			msg.Content = append(msg.Content, NewTextBlock(text.String()))
			text.Reset()
		}
	}
	// finish closes the message. Only calls that ended are kept, and none
	// when the stream failed.
	finish := func(keepCalls bool) {
		flush()
		for _, c := range calls {
			if !keepCalls || !ended[c.ID] {
				continue
			}
			c.Arguments = args[c.ID].String()
			msg.Content = append(msg.Content, NewToolCallBlock(c))
		}
		msg.Timestamp = time.Now()
	}

	for ev := range events {
		switch ev.Type {
		case EventTextDelta:
			text.WriteString(ev.Delta)
		case EventThinkingDelta:
			think.WriteString(ev.Delta)
			if ev.Signature != "" {
				sig = ev.Signature
			}
		case EventToolCallStart:
			calls = append(calls, ToolCall{ID: ev.ToolCallID, Name: ev.ToolName})
			args[ev.ToolCallID] = &strings.Builder{}
		case EventToolCallDelta:
			if b, ok := args[ev.ToolCallID]; ok {
				b.WriteString(ev.Delta)
			}
		case EventToolCallEnd:
			if _, ok := args[ev.ToolCallID]; ok {
				ended[ev.ToolCallID] = true
			}
		case EventUsage:
			if ev.Usage != nil {
				msg.Usage = *ev.Usage
			}
		case EventDone:
			msg.StopReason = ev.StopReason
			finish(true)
			return msg, nil
		case EventError:
			se := ev.Err
			if se == nil {
				se = &StreamError{Kind: ErrorKindProvider, Message: "stream failed"}
			}
			msg.StopReason = StopReasonError
			msg.ErrorMessage = se.Message
			finish(false)
			return msg, se
		}
	}

	msg.StopReason = StopReasonAborted
	finish(false)
	if err := ctx.Err(); err != nil {
		return msg, err
	}
	return msg, ErrStreamTruncated
}
