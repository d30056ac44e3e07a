package responses

import (
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/responses"
	ai "github.com/spetersoncode/loom"
)

func convertInput(model ai.Model, messages []ai.Message) responses.ResponseInputParam {
	var items responses.ResponseInputParam
	for _, msg := range messages {
		if !msg.Replayable() {
			continue
		}
		switch msg.Role {
		case ai.RoleUser:
			var content responses.ResponseInputMessageContentListParam
			for _, b := range msg.Content {
				switch b.Type {
				case ai.ContentText:
					if b.Text != "" {
						content = append(content, responses.ResponseInputContentParamOfInputText(b.Text))
					}
				case ai.ContentImage:
					if model.SupportsImages() && b.Data != "" {
						content = append(content, responses.ResponseInputContentUnionParam{
							OfInputImage: &responses.ResponseInputImageParam{
								Detail:   responses.ResponseInputImageDetailAuto,
								ImageURL: openai.String(fmt.Sprintf("data:%s;base64,%s", b.MimeType, b.Data)),
							},
						})
					}
				}
			}
			if len(content) > 0 {
				items = append(items, responses.ResponseInputItemParamOfMessage(content, responses.EasyInputMessageRoleUser))
			}

		case ai.RoleAssistant:
			if text := msg.Text(); text != "" {
				items = append(items, responses.ResponseInputItemParamOfMessage(text, responses.EasyInputMessageRoleAssistant))
			}
			for _, tc := range msg.ToolCalls() {
				args := tc.Arguments
				if args == "" {
					args = "{}"
				}
				items = append(items, responses.ResponseInputItemParamOfFunctionCall(args, tc.ID, tc.Name))
			}

		case ai.RoleToolResult:
			text := msg.Text()
			if text == "" {
				text = "(no output)"
			}
			items = append(items, responses.ResponseInputItemParamOfFunctionCallOutput(msg.ToolCallID, text))
		}
	}
	return items
}

func convertTools(tools []ai.Tool) []responses.ToolUnionParam {
	result := make([]responses.ToolUnionParam, len(tools))
	for i, t := range tools {
		var params map[string]any
		if len(t.Parameters) > 0 {
			_ = json.Unmarshal(t.Parameters, &params)
		}
		tool := responses.ToolParamOfFunction(t.Name, params, false)
		if tool.OfFunction != nil {
			tool.OfFunction.Description = openai.String(t.Description)
		}
		result[i] = tool
	}
	return result
}
