package openai

import (
	"fmt"

	"github.com/openai/openai-go"
	ai "github.com/spetersoncode/loom"
)

func convertMessages(model ai.Model, c ai.Context) []openai.ChatCompletionMessageParamUnion {
	var result []openai.ChatCompletionMessageParamUnion
	if c.SystemPrompt != "" {
		result = append(result, openai.SystemMessage(c.SystemPrompt))
	}

	for _, msg := range c.Messages {
		if !msg.Replayable() {
			continue
		}
		switch msg.Role {
		case ai.RoleUser:
			parts := convertUserParts(model, msg.Content)
			if len(parts) > 0 {
				result = append(result, openai.ChatCompletionMessageParamUnion{
					OfUser: &openai.ChatCompletionUserMessageParam{
						Content: openai.ChatCompletionUserMessageParamContentUnion{
							OfArrayOfContentParts: parts,
						},
					},
				})
			}

		case ai.RoleAssistant:
			if m, ok := convertAssistant(msg); ok {
				result = append(result, m)
			}

		case ai.RoleToolResult:
			text := msg.Text()
			if text == "" {
				text = "(no output)"
			}
			if msg.IsError {
				text = "Error: " + text
			}
			result = append(result, openai.ToolMessage(text, msg.ToolCallID))
		}
	}
	return result
}

func convertUserParts(model ai.Model, content []ai.ContentBlock) []openai.ChatCompletionContentPartUnionParam {
	var parts []openai.ChatCompletionContentPartUnionParam
	for _, b := range content {
		switch b.Type {
		case ai.ContentText:
			if b.Text != "" {
				parts = append(parts, openai.TextContentPart(b.Text))
			}
		case ai.ContentImage:
			if model.SupportsImages() && b.Data != "" {
				parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: fmt.Sprintf("data:%s;base64,%s", b.MimeType, b.Data),
				}))
			}
		}
	}
	return parts
}

// convertAssistant replays text and tool calls. Thinking is not part of the
// Chat Completions request format and is dropped.
func convertAssistant(msg ai.Message) (openai.ChatCompletionMessageParamUnion, bool) {
	calls := msg.ToolCalls()
	text := msg.Text()
	if text == "" && len(calls) == 0 {
		return openai.ChatCompletionMessageParamUnion{}, false
	}

	assistantMsg := openai.ChatCompletionAssistantMessageParam{}
	if text != "" {
		assistantMsg.Content = openai.ChatCompletionAssistantMessageParamContentUnion{
			OfString: openai.String(text),
		}
	}
	if len(calls) > 0 {
		assistantMsg.ToolCalls = make([]openai.ChatCompletionMessageToolCallParam, len(calls))
		for i, tc := range calls {
			args := tc.Arguments
			if args == "" {
				args = "{}"
			}
			assistantMsg.ToolCalls[i] = openai.ChatCompletionMessageToolCallParam{
				ID: tc.ID,
				Function: openai.ChatCompletionMessageToolCallFunctionParam{
					Name:      tc.Name,
					Arguments: args,
				},
			}
		}
	}
	return openai.ChatCompletionMessageParamUnion{OfAssistant: &assistantMsg}, true
}
