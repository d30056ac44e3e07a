package loom

// Context is the conversation sent to a model: an optional system prompt,
// the ordered messages and the tools the model may call.
type Context struct {
	SystemPrompt string    `json:"systemPrompt,omitempty"`
	Messages     []Message `json:"messages"`
	Tools        []Tool    `json:"tools,omitempty"`
}

// Clone returns a copy whose slices can be appended to independently.
func (c Context) Clone() Context {
	out := Context{SystemPrompt: c.SystemPrompt}
	if len(c.Messages) > 0 {
		out.Messages = make([]Message, len(c.Messages))
		copy(out.Messages, c.Messages)
	}
	if len(c.Tools) > 0 {
		out.Tools = make([]Tool, len(c.Tools))
		copy(out.Tools, c.Tools)
	}
	return out
}

// Last returns the final message, if any.
func (c Context) Last() (Message, bool) {
	if len(c.Messages) == 0 {
		return Message{}, false
	}
	return c.Messages[len(c.Messages)-1], true
}

// UnresolvedToolCalls returns the tool calls of the last assistant message
// that have no matching tool-result message after it.
func (c Context) UnresolvedToolCalls() []ToolCall {
	idx := -1
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if c.Messages[i].Role == RoleAssistant {
			idx = i
			break
		}
	}
	if idx < 0 || !c.Messages[idx].Replayable() {
		return nil
	}
	answered := make(map[string]bool)
	for _, m := range c.Messages[idx+1:] {
		if m.Role == RoleToolResult {
			answered[m.ToolCallID] = true
		}
	}
	var open []ToolCall
	for _, tc := range c.Messages[idx].ToolCalls() {
		if !answered[tc.ID] {
			open = append(open, tc)
		}
	}
	return open
}
