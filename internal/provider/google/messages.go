package google

import (
	"encoding/base64"
	"encoding/json"

	ai "github.com/spetersoncode/loom"
	"google.golang.org/genai"
)

func convertMessages(model ai.Model, messages []ai.Message) []*genai.Content {
	var contents []*genai.Content
	// Function responses must name the function, which result messages carry
	// as ToolName; fall back to the originating call.
	names := make(map[string]string)

	for _, msg := range messages {
		if !msg.Replayable() {
			continue
		}
		var (
			role  = genai.RoleUser
			parts []*genai.Part
		)
		switch msg.Role {
		case ai.RoleUser:
			parts = userParts(model, msg.Content)

		case ai.RoleAssistant:
			role = genai.RoleModel
			sameModel := msg.Provider == model.Provider && msg.Model == model.ID
			for _, b := range msg.Content {
				switch b.Type {
				case ai.ContentThinking:
					// Thought signatures only validate against the model
					// that produced them.
					if sameModel && b.Signature != "" {
						parts = append(parts, &genai.Part{Text: b.Text, Thought: true, ThoughtSignature: decodeSignature(b.Signature)})
					}
				case ai.ContentText:
					if b.Text != "" {
						parts = append(parts, &genai.Part{Text: b.Text})
					}
				case ai.ContentToolCall:
					tc := b.ToolCall
					names[tc.ID] = tc.Name
					var args map[string]any
					if tc.Arguments != "" {
						_ = json.Unmarshal([]byte(tc.Arguments), &args)
					}
					parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{ID: tc.ID, Name: tc.Name, Args: args}})
				}
			}

		case ai.RoleToolResult:
			name := msg.ToolName
			if name == "" {
				name = names[msg.ToolCallID]
			}
			key := "output"
			if msg.IsError {
				key = "error"
			}
			parts = append(parts, &genai.Part{FunctionResponse: &genai.FunctionResponse{
				ID:       msg.ToolCallID,
				Name:     name,
				Response: map[string]any{key: msg.Text()},
			}})
			// Consecutive results travel in one user turn.
			if n := len(contents); n > 0 && contents[n-1].Role == genai.RoleUser && isFunctionResponses(contents[n-1]) {
				contents[n-1].Parts = append(contents[n-1].Parts, parts...)
				continue
			}
		}
		if len(parts) > 0 {
			contents = append(contents, &genai.Content{Role: role, Parts: parts})
		}
	}
	return contents
}

func userParts(model ai.Model, blocks []ai.ContentBlock) []*genai.Part {
	var parts []*genai.Part
	for _, b := range blocks {
		switch b.Type {
		case ai.ContentText:
			if b.Text != "" {
				parts = append(parts, &genai.Part{Text: b.Text})
			}
		case ai.ContentImage:
			if !model.SupportsImages() {
				continue
			}
			data, err := base64.StdEncoding.DecodeString(b.Data)
			if err != nil {
				continue
			}
			parts = append(parts, &genai.Part{InlineData: &genai.Blob{Data: data, MIMEType: b.MimeType}})
		}
	}
	return parts
}

func isFunctionResponses(c *genai.Content) bool {
	for _, p := range c.Parts {
		if p.FunctionResponse == nil {
			return false
		}
	}
	return len(c.Parts) > 0
}

func encodeSignature(sig []byte) string {
	if len(sig) == 0 {
		return ""
	}
	return base64.StdEncoding.EncodeToString(sig)
}

func decodeSignature(sig string) []byte {
	b, err := base64.StdEncoding.DecodeString(sig)
	if err != nil {
		return nil
	}
	return b
}
