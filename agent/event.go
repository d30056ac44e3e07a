package agent

import (
	"time"

	ai "github.com/spetersoncode/loom"
	"github.com/spetersoncode/loom/tool"
)

// EventType identifies the kind of event occurring during a run.
type EventType string

const (
	// EventAgentStart fires once when a run begins.
	EventAgentStart EventType = "agent_start"

	// EventTurnStart fires before each model request.
	EventTurnStart EventType = "turn_start"

	// EventTextDelta forwards streamed assistant text.
	EventTextDelta EventType = "text_delta"

	// EventThinkingDelta forwards streamed reasoning text.
	EventThinkingDelta EventType = "thinking_delta"

	// EventToolCallIssued fires when a finalized tool call is dispatched.
	EventToolCallIssued EventType = "tool_call_issued"

	// EventToolProgress forwards a tool's progress update. Dropped when the
	// consumer falls behind.
	EventToolProgress EventType = "tool_progress"

	// EventToolResultApplied fires when a tool result is appended to the context.
	EventToolResultApplied EventType = "tool_result_applied"

	// EventMessageApplied fires when any other message is appended to the context.
	EventMessageApplied EventType = "message_applied"

	// EventRetry fires before a failed request is retried.
	EventRetry EventType = "retry"

	// EventWarning reports a recoverable problem.
	EventWarning EventType = "warning"

	// EventTurnCompleted fires after a turn's messages are applied.
	EventTurnCompleted EventType = "turn_completed"

	// EventLoopTerminal is the last event of a run. Reason holds the
	// terminal state.
	EventLoopTerminal EventType = "loop_terminal"
)

// eventBuffer is the capacity of a run's event channel.
const eventBuffer = 100

// Event represents an observable occurrence during a run.
type Event struct {
	// Type identifies the kind of event.
	Type EventType

	// Turn is the 1-indexed turn the event belongs to.
	Turn int

	// Delta carries text for delta events.
	Delta string

	// ToolCall is set for tool events.
	ToolCall *ai.ToolCall

	// ToolResult is the appended tool-result message.
	ToolResult *ai.Message

	// Progress is set for EventToolProgress.
	Progress *tool.Update

	// Message is the appended message for EventMessageApplied.
	Message *ai.Message

	// State is the loop state when the event was emitted.
	State State

	// Reason is the terminal state for EventLoopTerminal.
	Reason State

	// Err is the failure for EventRetry, EventWarning and failed terminals.
	Err error

	// Attempt and Delay describe an EventRetry. Attempt counts from 1.
	Attempt int
	Delay   time.Duration

	// Timestamp is when the event occurred.
	Timestamp time.Time
}

// Result is the outcome of a blocking Run.
type Result struct {
	// Message is the last assistant message of the run.
	Message *ai.Message

	// Messages is the session context after the run.
	Messages []ai.Message

	// Turns is the session's completed turn count.
	Turns int

	// Reason is the terminal state.
	Reason State

	// Usage aggregates token usage across the session.
	Usage ai.Usage

	// Cost prices Usage at the session model's rates.
	Cost ai.Cost

	// Err is the failure for StateFailed runs.
	Err error
}

// Text returns the text of the last assistant message.
func (r *Result) Text() string {
	if r.Message == nil {
		return ""
	}
	return r.Message.Text()
}
