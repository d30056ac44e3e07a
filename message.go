package loom

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role represents the role of a message sender in a conversation.
type Role string

const (
	RoleUser       Role = "user"
	RoleAssistant  Role = "assistant"
	RoleToolResult Role = "toolResult"
)

// ContentType is the kind of a content block.
type ContentType string

const (
	ContentText     ContentType = "text"
	ContentThinking ContentType = "thinking"
	ContentImage    ContentType = "image"
	ContentToolCall ContentType = "toolCall"
)

// ContentBlock is one ordered piece of message content.
type ContentBlock struct {
	Type ContentType `json:"type"`
	// Text holds text or thinking content.
	Text string `json:"text,omitempty"`
	// Signature is an opaque vendor token attached to thinking blocks.
	Signature string `json:"signature,omitempty"`
	// Data is base64 image data; MimeType describes it.
	Data     string `json:"data,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
	// ToolCall is set for toolCall blocks.
	ToolCall *ToolCall `json:"toolCall,omitempty"`
}

// NewTextBlock creates a text content block.
func NewTextBlock(text string) ContentBlock {
	return ContentBlock{Type: ContentText, Text: text}
}

// NewThinkingBlock creates a thinking content block.
func NewThinkingBlock(text, signature string) ContentBlock {
	return ContentBlock{Type: ContentThinking, Text: text, Signature: signature}
}

// NewImageBlock creates an image content block from base64 data.
func NewImageBlock(base64Data, mimeType string) ContentBlock {
	return ContentBlock{Type: ContentImage, Data: base64Data, MimeType: mimeType}
}

// NewToolCallBlock creates a content block carrying a tool call.
func NewToolCallBlock(tc ToolCall) ContentBlock {
	return ContentBlock{Type: ContentToolCall, ToolCall: &tc}
}

// StopReason explains why an assistant message ended.
type StopReason string

const (
	StopReasonStop    StopReason = "stop"
	StopReasonLength  StopReason = "length"
	StopReasonToolUse StopReason = "toolUse"
	StopReasonError   StopReason = "error"
	StopReasonAborted StopReason = "aborted"
)

// Message is one entry in a conversation Context.
type Message struct {
	ID        string         `json:"id,omitempty"`
	Role      Role           `json:"role"`
	Content   []ContentBlock `json:"content"`
	Timestamp time.Time      `json:"timestamp"`

	// Assistant metadata.
	Api          Api        `json:"api,omitempty"`
	Provider     Provider   `json:"provider,omitempty"`
	Model        string     `json:"model,omitempty"`
	Usage        Usage      `json:"usage,omitempty"`
	StopReason   StopReason `json:"stopReason,omitempty"`
	ErrorMessage string     `json:"errorMessage,omitempty"`

	// Tool result metadata.
	ToolCallID string `json:"toolCallId,omitempty"`
	ToolName   string `json:"toolName,omitempty"`
	IsError    bool   `json:"isError,omitempty"`
	Cancelled  bool   `json:"cancelled,omitempty"`
	// Details is an opaque payload for downstream consumers. It is never
	// sent to the model.
	Details any `json:"details,omitempty"`
}

// NewUserMessage creates a user message with a single text block.
func NewUserMessage(text string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      RoleUser,
		Content:   []ContentBlock{NewTextBlock(text)},
		Timestamp: time.Now(),
	}
}

// NewToolResultMessage creates a tool-result message answering call.
func NewToolResultMessage(call ToolCall, content []ContentBlock, isError bool) Message {
	return Message{
		ID:         uuid.NewString(),
		Role:       RoleToolResult,
		Content:    content,
		Timestamp:  time.Now(),
		ToolCallID: call.ID,
		ToolName:   call.Name,
		IsError:    isError,
	}
}

// Text concatenates the message's text blocks.
func (m Message) Text() string {
	var sb strings.Builder
	for _, b := range m.Content {
		if b.Type == ContentText {
			sb.WriteString(b.Text)
		}
	}
	return sb.String()
}

// Thinking concatenates the message's thinking blocks.
func (m Message) Thinking() string {
	var sb strings.Builder
	for _, b := range m.Content {
		if b.Type == ContentThinking {
			sb.WriteString(b.Text)
		}
	}
	return sb.String()
}

// ToolCalls returns the tool calls carried by an assistant message.
func (m Message) ToolCalls() []ToolCall {
	var calls []ToolCall
	for _, b := range m.Content {
		if b.Type == ContentToolCall && b.ToolCall != nil {
			calls = append(calls, *b.ToolCall)
		}
	}
	return calls
}

// HasToolCalls reports whether the message carries at least one tool call.
func (m Message) HasToolCalls() bool {
	for _, b := range m.Content {
		if b.Type == ContentToolCall && b.ToolCall != nil {
			return true
		}
	}
	return false
}

// Replayable reports whether an assistant message should be sent back to a
// model. Aborted and errored turns are kept in the Context for the caller
// but skipped on replay.
func (m Message) Replayable() bool {
	if m.Role != RoleAssistant {
		return true
	}
	return m.StopReason != StopReasonAborted && m.StopReason != StopReasonError
}
