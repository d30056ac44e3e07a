package agui

import (
	"context"
	"errors"
	"testing"

	"github.com/ag-ui-protocol/ag-ui/sdks/community/go/pkg/core/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ai "github.com/spetersoncode/loom"
	"github.com/spetersoncode/loom/agent"
)

func types(evs []events.Event) []events.EventType {
	out := make([]events.EventType, len(evs))
	for i, ev := range evs {
		out[i] = ev.Type()
	}
	return out
}

func TestNewMapper(t *testing.T) {
	t.Run("with provided IDs", func(t *testing.T) {
		m := NewMapper("thread-123", "run-456")
		assert.Equal(t, "thread-123", m.ThreadID())
		assert.Equal(t, "run-456", m.RunID())
	})

	t.Run("generates IDs when empty", func(t *testing.T) {
		m := NewMapper("", "")
		assert.NotEmpty(t, m.ThreadID())
		assert.NotEmpty(t, m.RunID())
	})
}

func TestMapTextFraming(t *testing.T) {
	m := NewMapper("thread-1", "run-1")

	first := m.Map(agent.Event{Type: agent.EventTextDelta, Delta: "Hel"})
	assert.Equal(t, []events.EventType{events.EventTypeTextMessageStart, events.EventTypeTextMessageContent}, types(first))

	second := m.Map(agent.Event{Type: agent.EventTextDelta, Delta: "lo"})
	assert.Equal(t, []events.EventType{events.EventTypeTextMessageContent}, types(second))

	closed := m.Map(agent.Event{Type: agent.EventTurnCompleted, Turn: 1})
	assert.Equal(t, []events.EventType{events.EventTypeTextMessageEnd, events.EventTypeStepFinished}, types(closed))

	again := m.Map(agent.Event{Type: agent.EventTextDelta, Delta: "next"})
	assert.Equal(t, events.EventTypeTextMessageStart, again[0].Type(), "a new message starts after the previous one ended")
}

func TestMapToolCall(t *testing.T) {
	m := NewMapper("thread-1", "run-1")
	call := ai.ToolCall{ID: "call_1", Name: "ls", Arguments: `{"path":"."}`}

	issued := m.Map(agent.Event{Type: agent.EventToolCallIssued, ToolCall: &call})
	assert.Equal(t, []events.EventType{
		events.EventTypeToolCallStart,
		events.EventTypeToolCallArgs,
		events.EventTypeToolCallEnd,
	}, types(issued))

	result := ai.NewToolResultMessage(call, []ai.ContentBlock{ai.NewTextBlock("a.go")}, false)
	applied := m.Map(agent.Event{Type: agent.EventToolResultApplied, ToolResult: &result})
	assert.Equal(t, []events.EventType{events.EventTypeToolCallResult}, types(applied))

	assert.Empty(t, m.Map(agent.Event{Type: agent.EventToolCallIssued}))
	assert.Empty(t, m.Map(agent.Event{Type: agent.EventToolResultApplied}))
}

func TestMapLifecycle(t *testing.T) {
	tests := []struct {
		name string
		ev   agent.Event
		want events.EventType
	}{
		{"agent start", agent.Event{Type: agent.EventAgentStart}, events.EventTypeRunStarted},
		{"turn start", agent.Event{Type: agent.EventTurnStart, Turn: 1}, events.EventTypeStepStarted},
		{"completed", agent.Event{Type: agent.EventLoopTerminal, Reason: agent.StateCompleted}, events.EventTypeRunFinished},
		{"max turns", agent.Event{Type: agent.EventLoopTerminal, Reason: agent.StateMaxTurnsReached}, events.EventTypeRunFinished},
		{"failed", agent.Event{Type: agent.EventLoopTerminal, Reason: agent.StateFailed, Err: errors.New("boom")}, events.EventTypeRunError},
		{"aborted", agent.Event{Type: agent.EventLoopTerminal, Reason: agent.StateAborted}, events.EventTypeRunError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := NewMapper("thread-1", "run-1").Map(tt.ev)
			require.Len(t, out, 1)
			assert.Equal(t, tt.want, out[0].Type())
		})
	}
}

func TestMapIgnoresInternalEvents(t *testing.T) {
	m := NewMapper("thread-1", "run-1")
	for _, typ := range []agent.EventType{
		agent.EventThinkingDelta,
		agent.EventToolProgress,
		agent.EventMessageApplied,
		agent.EventRetry,
		agent.EventWarning,
	} {
		assert.Empty(t, m.Map(agent.Event{Type: typ}), typ)
	}
}

func TestMapStream(t *testing.T) {
	call := ai.ToolCall{ID: "call_1", Name: "ls", Arguments: `{}`}
	result := ai.NewToolResultMessage(call, []ai.ContentBlock{ai.NewTextBlock("a.go")}, false)

	input := make(chan agent.Event, 20)
	input <- agent.Event{Type: agent.EventAgentStart}
	input <- agent.Event{Type: agent.EventTurnStart, Turn: 1}
	input <- agent.Event{Type: agent.EventTextDelta, Delta: "Looking"}
	input <- agent.Event{Type: agent.EventToolCallIssued, ToolCall: &call}
	input <- agent.Event{Type: agent.EventToolResultApplied, ToolResult: &result}
	input <- agent.Event{Type: agent.EventTurnCompleted, Turn: 1}
	input <- agent.Event{Type: agent.EventLoopTerminal, Reason: agent.StateCompleted}
	close(input)

	var received []events.Event
	for ev := range NewMapper("thread-1", "run-1").MapStream(input) {
		received = append(received, ev)
	}

	assert.Equal(t, []events.EventType{
		events.EventTypeRunStarted,
		events.EventTypeStepStarted,
		events.EventTypeTextMessageStart,
		events.EventTypeTextMessageContent,
		events.EventTypeTextMessageEnd,
		events.EventTypeToolCallStart,
		events.EventTypeToolCallArgs,
		events.EventTypeToolCallEnd,
		events.EventTypeToolCallResult,
		events.EventTypeStepFinished,
		events.EventTypeRunFinished,
	}, types(received))
}

type scriptedStreamer struct{}

func (scriptedStreamer) Stream(_ context.Context, _ ai.Model, _ ai.Context, _ ...ai.Option) (<-chan ai.StreamEvent, error) {
	ch := make(chan ai.StreamEvent, 2)
	ch <- ai.StreamEvent{Type: ai.EventTextDelta, Delta: "hi"}
	ch <- ai.StreamEvent{Type: ai.EventDone, StopReason: ai.StopReasonStop}
	close(ch)
	return ch, nil
}

func TestMapAgentRun(t *testing.T) {
	input := &RunAgentInput{
		ThreadID: "thread-1",
		RunID:    "run-1",
		Messages: []events.Message{{ID: "m1", Role: RoleUser, Content: ptr("hello")}},
	}
	c, err := input.Prepare()
	require.NoError(t, err)

	sess := agent.New(scriptedStreamer{}, nil).NewSession(ai.Model{ID: "test", Provider: "test", Api: "test"}, c)
	evs, err := sess.Continue(context.Background())
	require.NoError(t, err)

	var received []events.EventType
	for ev := range input.Mapper().MapStream(evs) {
		received = append(received, ev.Type())
	}
	require.NotEmpty(t, received)
	assert.Equal(t, events.EventTypeRunStarted, received[0])
	assert.Equal(t, events.EventTypeRunFinished, received[len(received)-1])
	assert.Contains(t, received, events.EventTypeTextMessageContent)
}
