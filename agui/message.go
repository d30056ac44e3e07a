package agui

import (
	"github.com/ag-ui-protocol/ag-ui/sdks/community/go/pkg/core/events"

	ai "github.com/spetersoncode/loom"
)

// Role constants matching AG-UI protocol.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleTool      = "tool"
)

// ToMessages converts AG-UI messages to conversation messages. System
// messages are not part of a loom conversation; their text is returned
// separately, joined by blank lines.
func ToMessages(msgs []events.Message) (system string, out []ai.Message) {
	out = make([]ai.Message, 0, len(msgs))
	for _, msg := range msgs {
		if msg.Role == RoleSystem {
			if msg.Content != nil {
				if system != "" {
					system += "\n\n"
				}
				system += *msg.Content
			}
			continue
		}
		out = append(out, ToMessage(msg))
	}
	return system, out
}

// ToMessage converts a single AG-UI message.
func ToMessage(msg events.Message) ai.Message {
	m := ai.Message{
		ID:   msg.ID,
		Role: toRole(msg.Role),
	}
	if msg.Content != nil && *msg.Content != "" {
		m.Content = append(m.Content, ai.NewTextBlock(*msg.Content))
	}
	for _, tc := range msg.ToolCalls {
		m.Content = append(m.Content, ai.NewToolCallBlock(ai.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		}))
	}
	if msg.ToolCallID != nil {
		m.ToolCallID = *msg.ToolCallID
	}
	return m
}

// FromMessages converts conversation messages to AG-UI messages.
func FromMessages(msgs []ai.Message) []events.Message {
	out := make([]events.Message, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, FromMessage(msg))
	}
	return out
}

// FromMessage converts a single conversation message. Thinking and image
// blocks have no AG-UI representation and are dropped.
func FromMessage(msg ai.Message) events.Message {
	id := msg.ID
	if id == "" {
		id = events.GenerateMessageID()
	}
	m := events.Message{
		ID:   id,
		Role: fromRole(msg.Role),
	}
	if text := msg.Text(); text != "" {
		m.Content = &text
	}
	for _, tc := range msg.ToolCalls() {
		m.ToolCalls = append(m.ToolCalls, events.ToolCall{
			ID:   tc.ID,
			Type: "function",
			Function: events.Function{
				Name:      tc.Name,
				Arguments: tc.Arguments,
			},
		})
	}
	if msg.Role == ai.RoleToolResult {
		callID := msg.ToolCallID
		m.ToolCallID = &callID
	}
	return m
}

// Snapshot returns a MESSAGES_SNAPSHOT event for msgs.
func Snapshot(msgs []ai.Message) events.Event {
	return events.NewMessagesSnapshotEvent(FromMessages(msgs))
}

func resultContent(msg ai.Message) string {
	text := msg.Text()
	if msg.IsError && text == "" {
		return "error"
	}
	return text
}

func toRole(role string) ai.Role {
	switch role {
	case RoleAssistant:
		return ai.RoleAssistant
	case RoleTool:
		return ai.RoleToolResult
	default:
		return ai.RoleUser
	}
}

func fromRole(role ai.Role) string {
	switch role {
	case ai.RoleAssistant:
		return RoleAssistant
	case ai.RoleToolResult:
		return RoleTool
	default:
		return RoleUser
	}
}
