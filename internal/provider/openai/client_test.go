package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	ai "github.com/spetersoncode/loom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sse(chunks ...string) string {
	var sb strings.Builder
	for _, c := range chunks {
		sb.WriteString("data: " + c + "\n\n")
	}
	sb.WriteString("data: [DONE]\n\n")
	return sb.String()
}

func chunk(delta string, finish string) string {
	fr := "null"
	if finish != "" {
		fr = `"` + finish + `"`
	}
	return `{"id":"c1","object":"chat.completion.chunk","created":1,"model":"m","choices":[{"index":0,"delta":` + delta + `,"finish_reason":` + fr + `}]}`
}

type captured struct {
	body map[string]any
}

func serve(t *testing.T, status int, body string, cap *captured) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		if cap != nil {
			raw, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(raw, &cap.body)
		}
		if status != http.StatusOK {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = w.Write([]byte(body))
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testModel(baseURL string) ai.Model {
	return ai.Model{ID: "gpt-test", Provider: ai.ProviderOpenAI, Api: ai.ApiOpenAICompletions, BaseURL: baseURL + "/v1", Reasoning: true}
}

func collect(ch <-chan ai.StreamEvent) []ai.StreamEvent {
	var out []ai.StreamEvent
	for ev := range ch {
		out = append(out, ev)
	}
	return out
}

func TestStreamInterleavedToolCalls(t *testing.T) {
	body := sse(
		chunk(`{"role":"assistant","reasoning_content":"plan"}`, ""),
		chunk(`{"content":"ok"}`, ""),
		chunk(`{"tool_calls":[{"index":0,"id":"call_a","type":"function","function":{"name":"ls","arguments":""}}]}`, ""),
		chunk(`{"tool_calls":[{"index":1,"id":"call_b","type":"function","function":{"name":"read","arguments":"{\"pa"}}]}`, ""),
		chunk(`{"tool_calls":[{"index":0,"function":{"arguments":"{\"path\":"}}]}`, ""),
		chunk(`{"tool_calls":[{"index":1,"function":{"arguments":"th\":\"a\"}"}}]}`, ""),
		chunk(`{"tool_calls":[{"index":0,"function":{"arguments":"\".\"}"}}]}`, ""),
		chunk(`{}`, "tool_calls"),
		`{"id":"c1","object":"chat.completion.chunk","created":1,"model":"m","choices":[],"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`,
	)
	var cap captured
	srv := serve(t, http.StatusOK, body, &cap)
	model := testModel(srv.URL)
	c := ai.Context{
		SystemPrompt: "be brief",
		Messages:     []ai.Message{ai.NewUserMessage("go")},
		Tools:        []ai.Tool{{Name: "ls", Description: "list", Parameters: json.RawMessage(`{"type":"object"}`)}},
	}

	evs := collect(Stream(context.Background(), model, c, ai.StreamOptions{APIKey: "k", Reasoning: ai.ThinkingHigh}, nil))
	require.NotEmpty(t, evs)
	assert.Equal(t, ai.EventDone, evs[len(evs)-1].Type)

	msg, err := ai.Collect(context.Background(), model, replay(evs))
	require.NoError(t, err)
	assert.Equal(t, "plan", msg.Thinking())
	assert.Equal(t, "ok", msg.Text())
	assert.Equal(t, []ai.ToolCall{
		{ID: "call_a", Name: "ls", Arguments: `{"path":"."}`},
		{ID: "call_b", Name: "read", Arguments: `{"path":"a"}`},
	}, msg.ToolCalls())
	assert.Equal(t, ai.StopReasonToolUse, msg.StopReason)
	assert.Equal(t, 15, msg.Usage.Total)

	assert.Equal(t, "high", cap.body["reasoning_effort"])
	assert.Equal(t, true, cap.body["stream"])
	msgs := cap.body["messages"].([]any)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
}

func TestStreamSimpleMatchesFull(t *testing.T) {
	body := sse(chunk(`{"content":"hello"}`, ""), chunk(`{}`, "stop"))
	srv := serve(t, http.StatusOK, body, nil)
	c := ai.Context{Messages: []ai.Message{ai.NewUserMessage("hi")}}

	full := collect(Stream(context.Background(), testModel(srv.URL), c, ai.StreamOptions{APIKey: "k"}, nil))
	simple := collect(StreamSimple(context.Background(), testModel(srv.URL), c, ai.SimpleStreamOptions{APIKey: "k"}, nil))
	assert.Equal(t, full, simple)
	assert.Equal(t, ai.StopReasonStop, full[len(full)-1].StopReason)
}

func TestStreamServerError(t *testing.T) {
	srv := serve(t, http.StatusServiceUnavailable, `{"error":{"message":"overloaded","type":"server_error"}}`, nil)

	evs := collect(Stream(context.Background(), testModel(srv.URL), ai.Context{Messages: []ai.Message{ai.NewUserMessage("hi")}}, ai.StreamOptions{APIKey: "k"}, nil))
	require.Len(t, evs, 1)
	assert.Equal(t, ai.EventError, evs[0].Type)
	assert.True(t, evs[0].Err.Retryable())
	assert.Equal(t, 503, evs[0].Err.StatusCode())
}

func TestStreamBadRequest(t *testing.T) {
	srv := serve(t, http.StatusBadRequest, `{"error":{"message":"bad tools","type":"invalid_request_error"}}`, nil)

	evs := collect(Stream(context.Background(), testModel(srv.URL), ai.Context{Messages: []ai.Message{ai.NewUserMessage("hi")}}, ai.StreamOptions{APIKey: "k"}, nil))
	require.Len(t, evs, 1)
	assert.Equal(t, ai.ErrorKindInvalidRequest, evs[0].Err.Kind)
	assert.False(t, evs[0].Err.Retryable())
}

func TestConvertMessagesToolResults(t *testing.T) {
	call := ai.ToolCall{ID: "call_a", Name: "ls"}
	c := ai.Context{Messages: []ai.Message{
		ai.NewUserMessage("hi"),
		{Role: ai.RoleAssistant, Content: []ai.ContentBlock{ai.NewThinkingBlock("hmm", ""), ai.NewToolCallBlock(call)}},
		ai.NewToolResultMessage(call, []ai.ContentBlock{ai.NewTextBlock("boom")}, true),
	}}

	params := convertMessages(testModel(""), c)
	require.Len(t, params, 3)
	require.NotNil(t, params[1].OfAssistant)
	assert.Equal(t, "{}", params[1].OfAssistant.ToolCalls[0].Function.Arguments)
	require.NotNil(t, params[2].OfTool)
}

func replay(evs []ai.StreamEvent) <-chan ai.StreamEvent {
	ch := make(chan ai.StreamEvent, len(evs))
	for _, ev := range evs {
		ch <- ev
	}
	close(ch)
	return ch
}
