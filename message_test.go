package loom

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewUserMessage(t *testing.T) {
	m := NewUserMessage("hello")
	assert.Equal(t, RoleUser, m.Role)
	assert.Equal(t, "hello", m.Text())
	assert.NotEmpty(t, m.ID)
	assert.False(t, m.Timestamp.IsZero())
}

func TestNewToolResultMessage(t *testing.T) {
	call := ToolCall{ID: "call_1", Name: "ls"}
	m := NewToolResultMessage(call, []ContentBlock{NewTextBlock("a.go")}, true)

	assert.Equal(t, RoleToolResult, m.Role)
	assert.Equal(t, "call_1", m.ToolCallID)
	assert.Equal(t, "ls", m.ToolName)
	assert.True(t, m.IsError)
	assert.Equal(t, "a.go", m.Text())
}

func TestMessageAccessors(t *testing.T) {
	m := Message{
		Role: RoleAssistant,
		Content: []ContentBlock{
			NewThinkingBlock("plan ", "sig"),
			NewTextBlock("Let me "),
			NewToolCallBlock(ToolCall{ID: "1", Name: "ls", Arguments: "{}"}),
			NewThinkingBlock("more", ""),
			NewTextBlock("look."),
			NewImageBlock("aGk=", "image/png"),
			NewToolCallBlock(ToolCall{ID: "2", Name: "read", Arguments: `{"path":"a"}`}),
		},
	}

	assert.Equal(t, "Let me look.", m.Text())
	assert.Equal(t, "plan more", m.Thinking())
	assert.True(t, m.HasToolCalls())
	assert.Equal(t, []ToolCall{
		{ID: "1", Name: "ls", Arguments: "{}"},
		{ID: "2", Name: "read", Arguments: `{"path":"a"}`},
	}, m.ToolCalls())

	assert.False(t, NewUserMessage("x").HasToolCalls())
	assert.Nil(t, NewUserMessage("x").ToolCalls())
}

func TestToolCallBlockCopiesCall(t *testing.T) {
	call := ToolCall{ID: "1", Name: "ls"}
	block := NewToolCallBlock(call)
	call.Name = "changed"
	assert.Equal(t, "ls", block.ToolCall.Name)
}

func TestReplayable(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want bool
	}{
		{"user", NewUserMessage("hi"), true},
		{"tool result", NewToolResultMessage(ToolCall{ID: "1"}, nil, true), true},
		{"stopped assistant", Message{Role: RoleAssistant, StopReason: StopReasonStop}, true},
		{"tool use", Message{Role: RoleAssistant, StopReason: StopReasonToolUse}, true},
		{"length", Message{Role: RoleAssistant, StopReason: StopReasonLength}, true},
		{"aborted", Message{Role: RoleAssistant, StopReason: StopReasonAborted}, false},
		{"errored", Message{Role: RoleAssistant, StopReason: StopReasonError}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.msg.Replayable())
		})
	}
}
