package agui

import (
	"testing"

	"github.com/ag-ui-protocol/ag-ui/sdks/community/go/pkg/core/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ai "github.com/spetersoncode/loom"
)

func ptr(s string) *string { return &s }

func TestToMessages(t *testing.T) {
	system, msgs := ToMessages([]events.Message{
		{ID: "s", Role: RoleSystem, Content: ptr("be brief")},
		{ID: "u", Role: RoleUser, Content: ptr("weather?")},
		{ID: "a", Role: RoleAssistant, ToolCalls: []events.ToolCall{{
			ID:       "call_1",
			Type:     "function",
			Function: events.Function{Name: "weather", Arguments: `{"city":"Oslo"}`},
		}}},
		{ID: "t", Role: RoleTool, Content: ptr(`{"temp": 72}`), ToolCallID: ptr("call_1")},
	})

	assert.Equal(t, "be brief", system)
	require.Len(t, msgs, 3)

	assert.Equal(t, ai.RoleUser, msgs[0].Role)
	assert.Equal(t, "weather?", msgs[0].Text())

	assert.Equal(t, ai.RoleAssistant, msgs[1].Role)
	calls := msgs[1].ToolCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, ai.ToolCall{ID: "call_1", Name: "weather", Arguments: `{"city":"Oslo"}`}, calls[0])

	assert.Equal(t, ai.RoleToolResult, msgs[2].Role)
	assert.Equal(t, "call_1", msgs[2].ToolCallID)
	assert.Equal(t, `{"temp": 72}`, msgs[2].Text())
}

func TestFromMessage(t *testing.T) {
	t.Run("assistant with tool call", func(t *testing.T) {
		msg := ai.Message{
			ID:   "a1",
			Role: ai.RoleAssistant,
			Content: []ai.ContentBlock{
				ai.NewThinkingBlock("hmm", ""),
				ai.NewTextBlock("Checking"),
				ai.NewToolCallBlock(ai.ToolCall{ID: "call_1", Name: "ls", Arguments: "{}"}),
			},
		}
		out := FromMessage(msg)
		assert.Equal(t, "a1", out.ID)
		assert.Equal(t, RoleAssistant, out.Role)
		require.NotNil(t, out.Content)
		assert.Equal(t, "Checking", *out.Content)
		require.Len(t, out.ToolCalls, 1)
		assert.Equal(t, "ls", out.ToolCalls[0].Function.Name)
	})

	t.Run("tool result", func(t *testing.T) {
		call := ai.ToolCall{ID: "call_1", Name: "ls"}
		out := FromMessage(ai.NewToolResultMessage(call, []ai.ContentBlock{ai.NewTextBlock("a.go")}, false))
		assert.Equal(t, RoleTool, out.Role)
		require.NotNil(t, out.ToolCallID)
		assert.Equal(t, "call_1", *out.ToolCallID)
	})

	t.Run("generates missing IDs", func(t *testing.T) {
		assert.NotEmpty(t, FromMessage(ai.Message{Role: ai.RoleUser}).ID)
	})
}

func TestSnapshot(t *testing.T) {
	ev := Snapshot([]ai.Message{ai.NewUserMessage("hi")})
	assert.Equal(t, events.EventTypeMessagesSnapshot, ev.Type())
}

func TestPrepare(t *testing.T) {
	t.Run("converts messages and tools", func(t *testing.T) {
		input := &RunAgentInput{
			Messages: []events.Message{{ID: "u", Role: RoleUser, Content: ptr("hi")}},
			Tools: []any{map[string]any{
				"name":        "confirm",
				"description": "Ask the user to confirm",
			}},
		}
		c, err := input.Prepare()
		require.NoError(t, err)
		require.Len(t, c.Messages, 1)
		require.Len(t, c.Tools, 1)
		assert.Equal(t, "confirm", c.Tools[0].Name)
		assert.JSONEq(t, `{"type":"object","properties":{}}`, string(c.Tools[0].Parameters))
	})

	t.Run("rejects empty input", func(t *testing.T) {
		_, err := (&RunAgentInput{}).Prepare()
		assert.ErrorIs(t, err, ErrNoMessages)
	})
}
