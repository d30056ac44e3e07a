package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ai "github.com/spetersoncode/loom"
	"github.com/spetersoncode/loom/agent"
)

type echoStreamer struct{}

func (echoStreamer) Stream(_ context.Context, _ ai.Model, c ai.Context, _ ...ai.Option) (<-chan ai.StreamEvent, error) {
	ch := make(chan ai.StreamEvent, 3)
	last, _ := c.Last()
	ch <- ai.StreamEvent{Type: ai.EventTextDelta, Delta: "echo: " + last.Text()}
	ch <- ai.StreamEvent{Type: ai.EventUsage, Usage: &ai.Usage{Input: 3, Output: 2, Total: 5}}
	ch <- ai.StreamEvent{Type: ai.EventDone, StopReason: ai.StopReasonStop}
	close(ch)
	return ch, nil
}

var testModel = ai.Model{ID: "echo", Provider: "test", Api: "test"}

func TestTranscriptsSaveLoad(t *testing.T) {
	ctx := context.Background()
	transcripts := NewTranscripts(nil)

	_, ok, err := transcripts.Load(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, ok)

	call := ai.ToolCall{ID: "call_1", Name: "ls", Arguments: `{}`}
	want := Transcript{
		Model: "test/echo",
		Context: ai.Context{
			SystemPrompt: "be brief",
			Messages: []ai.Message{
				ai.NewUserMessage("list"),
				{Role: ai.RoleAssistant, StopReason: ai.StopReasonToolUse, Content: []ai.ContentBlock{ai.NewToolCallBlock(call)}},
				ai.NewToolResultMessage(call, []ai.ContentBlock{ai.NewTextBlock("a.go")}, false),
			},
		},
		Usage: ai.Usage{Input: 10, Output: 4, Total: 14},
		Turns: 2,
	}
	require.NoError(t, transcripts.Save(ctx, "s1", want))

	got, ok, err := transcripts.Load(ctx, "s1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "s1", got.ID)
	assert.Equal(t, want.Usage, got.Usage)
	assert.Equal(t, 2, got.Turns)
	assert.Equal(t, "be brief", got.Context.SystemPrompt)
	require.Len(t, got.Context.Messages, 3)
	assert.Equal(t, []ai.ToolCall{call}, got.Context.Messages[1].ToolCalls())
	assert.Equal(t, "call_1", got.Context.Messages[2].ToolCallID)
	assert.False(t, got.UpdatedAt.IsZero())

	ids, err := transcripts.IDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, ids)

	require.NoError(t, transcripts.Delete(ctx, "s1"))
	_, ok, err = transcripts.Load(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTranscriptsIgnoreOtherKeys(t *testing.T) {
	ctx := context.Background()
	adapter := NewMemoryAdapter()
	require.NoError(t, adapter.Set(ctx, "other", json.RawMessage(`1`)))

	transcripts := NewTranscripts(adapter)
	require.NoError(t, transcripts.Save(ctx, "s1", Transcript{}))

	ids, err := transcripts.IDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, ids)
}

func TestTranscriptsCorruptValue(t *testing.T) {
	ctx := context.Background()
	adapter := NewMemoryAdapter()
	require.NoError(t, adapter.Set(ctx, transcriptPrefix+"bad", json.RawMessage(`{"context":`)))

	_, _, err := NewTranscripts(adapter).Load(ctx, "bad")
	var serr *SerializationError
	assert.ErrorAs(t, err, &serr)
}

func TestResumeContinuesConversation(t *testing.T) {
	ctx := context.Background()
	transcripts := NewTranscripts(nil)
	a := agent.New(echoStreamer{}, nil)

	sess, ok, err := transcripts.Resume(ctx, a, testModel, "chat", ai.Context{SystemPrompt: "sys"})
	require.NoError(t, err)
	assert.False(t, ok)
	_, err = sess.Run(ctx, ai.NewUserMessage("one"))
	require.NoError(t, err)
	require.NoError(t, transcripts.Save(ctx, "chat", FromSession(sess)))

	resumed, ok, err := transcripts.Resume(ctx, a, testModel, "chat", ai.Context{})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "sys", resumed.Context().SystemPrompt)
	assert.Len(t, resumed.Context().Messages, 2)

	res, err := resumed.Run(ctx, ai.NewUserMessage("two"))
	require.NoError(t, err)
	require.NotNil(t, res.Message)
	assert.Equal(t, "echo: two", res.Message.Text())
	assert.Len(t, resumed.Context().Messages, 4)
}
