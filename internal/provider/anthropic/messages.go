package anthropic

import (
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
	ai "github.com/spetersoncode/loom"
)

// convertMessages maps the conversation onto Anthropic message params.
// Consecutive tool results are merged into one user message because the API
// requires every tool_result for a turn in the message that follows it.
func convertMessages(model ai.Model, messages []ai.Message) []anthropic.MessageParam {
	var result []anthropic.MessageParam
	var pendingResults []anthropic.ContentBlockParamUnion

	flushResults := func() {
		if len(pendingResults) > 0 {
			result = append(result, anthropic.NewUserMessage(pendingResults...))
			pendingResults = nil
		}
	}

	for _, msg := range messages {
		if !msg.Replayable() {
			continue
		}
		switch msg.Role {
		case ai.RoleUser:
			flushResults()
			if blocks := convertUserBlocks(model, msg.Content); len(blocks) > 0 {
				result = append(result, anthropic.NewUserMessage(blocks...))
			}

		case ai.RoleAssistant:
			flushResults()
			if blocks := convertAssistantBlocks(model, msg); len(blocks) > 0 {
				result = append(result, anthropic.NewAssistantMessage(blocks...))
			}

		case ai.RoleToolResult:
			text := msg.Text()
			if text == "" {
				text = "(no output)"
			}
			pendingResults = append(pendingResults, anthropic.NewToolResultBlock(msg.ToolCallID, text, msg.IsError))
		}
	}
	flushResults()
	return result
}

func convertUserBlocks(model ai.Model, content []ai.ContentBlock) []anthropic.ContentBlockParamUnion {
	var blocks []anthropic.ContentBlockParamUnion
	for _, b := range content {
		switch b.Type {
		case ai.ContentText:
			// Anthropic rejects empty text blocks.
			if b.Text != "" {
				blocks = append(blocks, anthropic.NewTextBlock(b.Text))
			}
		case ai.ContentImage:
			if model.SupportsImages() && b.Data != "" {
				blocks = append(blocks, anthropic.NewImageBlockBase64(b.MimeType, b.Data))
			}
		}
	}
	return blocks
}

func convertAssistantBlocks(model ai.Model, msg ai.Message) []anthropic.ContentBlockParamUnion {
	sameModel := msg.Provider == model.Provider && msg.Model == model.ID
	var blocks []anthropic.ContentBlockParamUnion
	for _, b := range msg.Content {
		switch b.Type {
		case ai.ContentText:
			if b.Text != "" {
				blocks = append(blocks, anthropic.NewTextBlock(b.Text))
			}
		case ai.ContentThinking:
			// Signed thinking can only be replayed to the model that produced it.
			if sameModel && b.Signature != "" {
				blocks = append(blocks, anthropic.NewThinkingBlock(b.Signature, b.Text))
			}
		case ai.ContentToolCall:
			var input any = map[string]any{}
			if b.ToolCall.Arguments != "" {
				_ = json.Unmarshal([]byte(b.ToolCall.Arguments), &input)
			}
			blocks = append(blocks, anthropic.NewToolUseBlock(b.ToolCall.ID, input, b.ToolCall.Name))
		}
	}
	return blocks
}
