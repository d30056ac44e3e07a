package emit

import (
	"context"
	"errors"
	"testing"
	"time"

	ai "github.com/spetersoncode/loom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(ch <-chan ai.StreamEvent) []ai.StreamEvent {
	var out []ai.StreamEvent
	for ev := range ch {
		out = append(out, ev)
	}
	return out
}

func types(evs []ai.StreamEvent) []ai.StreamEventType {
	out := make([]ai.StreamEventType, len(evs))
	for i, ev := range evs {
		out[i] = ev.Type
	}
	return out
}

func TestWriterOrdering(t *testing.T) {
	w := New(context.Background())
	go func() {
		w.Text("hi")
		w.ToolDelta("x", "orphan") // dropped: no start
		w.ToolStart("a", "ls")
		w.ToolStart("a", "ls") // duplicate ignored
		w.ToolDelta("a", `{"p":`)
		w.ToolStart("b", "read")
		w.ToolDelta("b", `{}`)
		w.ToolDelta("a", `1}`)
		w.ToolEnd("b")
		w.ToolDelta("b", "late") // dropped: ended
		w.Usage(ai.Usage{Input: 3, Output: 4})
		w.Done(ai.StopReasonStop)
	}()

	evs := drain(w.Events())
	assert.Equal(t, []ai.StreamEventType{
		ai.EventTextDelta,
		ai.EventToolCallStart, ai.EventToolCallDelta,
		ai.EventToolCallStart, ai.EventToolCallDelta,
		ai.EventToolCallDelta,
		ai.EventToolCallEnd,
		ai.EventUsage,
		ai.EventToolCallEnd, // "a" closed by Done
		ai.EventDone,
	}, types(evs))

	assert.Equal(t, 7, evs[7].Usage.Total)
	assert.Equal(t, "a", evs[8].ToolCallID)
	assert.Equal(t, ai.StopReasonToolUse, evs[9].StopReason)
}

func TestWriterSingleTerminal(t *testing.T) {
	w := New(context.Background())
	go func() {
		w.Fail(errors.New("boom"))
		w.Done(ai.StopReasonStop)
		w.Fail(errors.New("again"))
	}()

	evs := drain(w.Events())
	require.Len(t, evs, 1)
	assert.Equal(t, ai.EventError, evs[0].Type)
	assert.Equal(t, ai.ErrorKindProvider, evs[0].Err.Kind)
}

func TestWriterStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	w := New(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer w.Close()
		assert.True(t, w.Text("first"))
		cancel()
		assert.False(t, w.Text("second"))
		w.Fail(ctx.Err())
	}()

	first := <-w.Events()
	assert.Equal(t, "first", first.Delta)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("writer blocked after cancellation")
	}
	_, ok := <-w.Events()
	assert.False(t, ok, "no events after cancellation")
}

func TestToolCallWhole(t *testing.T) {
	w := New(context.Background())
	go func() {
		w.ToolCall("1", "ls", "{}")
		w.Done("")
	}()
	evs := drain(w.Events())
	assert.Equal(t, []ai.StreamEventType{
		ai.EventToolCallStart, ai.EventToolCallDelta, ai.EventToolCallEnd, ai.EventDone,
	}, types(evs))
}
