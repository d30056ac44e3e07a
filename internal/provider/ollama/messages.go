package ollama

import (
	"encoding/json"

	ai "github.com/spetersoncode/loom"
)

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []*chatMessage `json:"messages"`
	Tools    []*apiTool     `json:"tools,omitempty"`
	Options  map[string]any `json:"options,omitempty"`
	Stream   bool           `json:"stream"`
	Think    bool           `json:"think,omitempty"`
}

type chatMessage struct {
	Role      string      `json:"role"`
	Content   string      `json:"content"`
	Images    []string    `json:"images,omitempty"`
	ToolCalls []*toolCall `json:"tool_calls,omitempty"`
	ToolName  string      `json:"tool_name,omitempty"`
	Thinking  string      `json:"thinking,omitempty"`
}

type toolCall struct {
	Function *functionCall `json:"function,omitempty"`
}

type functionCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

type apiTool struct {
	Type     string       `json:"type"`
	Function *functionDef `json:"function"`
}

type functionDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type chatResponse struct {
	Model           string       `json:"model"`
	Message         *chatMessage `json:"message,omitempty"`
	Done            bool         `json:"done"`
	DoneReason      string       `json:"done_reason,omitempty"`
	PromptEvalCount int          `json:"prompt_eval_count,omitempty"`
	EvalCount       int          `json:"eval_count,omitempty"`
	Error           string       `json:"error,omitempty"`
}

func convertMessages(model ai.Model, c ai.Context) []*chatMessage {
	var out []*chatMessage
	if c.SystemPrompt != "" {
		out = append(out, &chatMessage{Role: "system", Content: c.SystemPrompt})
	}
	for _, msg := range c.Messages {
		if !msg.Replayable() {
			continue
		}
		switch msg.Role {
		case ai.RoleUser:
			m := &chatMessage{Role: "user", Content: msg.Text()}
			if model.SupportsImages() {
				for _, b := range msg.Content {
					if b.Type == ai.ContentImage && b.Data != "" {
						m.Images = append(m.Images, b.Data)
					}
				}
			}
			out = append(out, m)

		case ai.RoleAssistant:
			m := &chatMessage{Role: "assistant", Content: msg.Text()}
			for _, tc := range msg.ToolCalls() {
				var args map[string]any
				if tc.Arguments != "" {
					_ = json.Unmarshal([]byte(tc.Arguments), &args)
				}
				m.ToolCalls = append(m.ToolCalls, &toolCall{Function: &functionCall{Name: tc.Name, Arguments: args}})
			}
			out = append(out, m)

		case ai.RoleToolResult:
			content := msg.Text()
			if msg.IsError {
				content = "Error: " + content
			}
			out = append(out, &chatMessage{Role: "tool", Content: content, ToolName: msg.ToolName})
		}
	}
	return out
}

func convertTools(tools []ai.Tool) []*apiTool {
	out := make([]*apiTool, len(tools))
	for i, t := range tools {
		var params map[string]any
		if len(t.Parameters) > 0 {
			_ = json.Unmarshal(t.Parameters, &params)
		}
		out[i] = &apiTool{Type: "function", Function: &functionDef{Name: t.Name, Description: t.Description, Parameters: params}}
	}
	return out
}
