package ollama

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ai "github.com/spetersoncode/loom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, status int, body string, reqBody *chatRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		if reqBody != nil {
			raw, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(raw, reqBody)
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func ndjson(lines ...string) string {
	return strings.Join(lines, "\n") + "\n"
}

func testModel(baseURL string) ai.Model {
	return ai.Model{ID: "llama-test", Provider: ai.ProviderOllama, Api: ai.ApiOllamaChat, BaseURL: baseURL, Reasoning: true}
}

func drain(ch <-chan ai.StreamEvent) []ai.StreamEvent {
	var out []ai.StreamEvent
	for ev := range ch {
		out = append(out, ev)
	}
	return out
}

func TestStreamToolCall(t *testing.T) {
	body := ndjson(
		`{"model":"llama-test","message":{"role":"assistant","content":"","thinking":"need ls"},"done":false}`,
		`{"model":"llama-test","message":{"role":"assistant","content":"Sure."},"done":false}`,
		`{"model":"llama-test","message":{"role":"assistant","content":"","tool_calls":[{"function":{"name":"ls","arguments":{"path":"."}}}]},"done":false}`,
		`{"model":"llama-test","message":{"role":"assistant","content":""},"done":true,"done_reason":"stop","prompt_eval_count":7,"eval_count":3}`,
	)
	var req chatRequest
	srv := serve(t, http.StatusOK, body, &req)
	temp := 0.2
	c := ai.Context{
		SystemPrompt: "sys",
		Messages:     []ai.Message{ai.NewUserMessage("list")},
		Tools:        []ai.Tool{{Name: "ls", Parameters: json.RawMessage(`{"type":"object"}`)}},
	}
	opts := ai.StreamOptions{Temperature: &temp, MaxTokens: 64, Reasoning: ai.ThinkingLow}

	events := drain(Stream(context.Background(), testModel(srv.URL), c, opts, nil))
	var types []ai.StreamEventType
	for _, ev := range events {
		types = append(types, ev.Type)
	}
	assert.Equal(t, []ai.StreamEventType{
		ai.EventThinkingDelta,
		ai.EventTextDelta,
		ai.EventToolCallStart,
		ai.EventToolCallDelta,
		ai.EventToolCallEnd,
		ai.EventUsage,
		ai.EventDone,
	}, types)
	assert.Equal(t, ai.StopReasonToolUse, events[len(events)-1].StopReason)
	assert.Equal(t, 10, events[len(events)-2].Usage.Total)
	assert.JSONEq(t, `{"path":"."}`, events[3].Delta)

	assert.True(t, req.Stream)
	assert.True(t, req.Think)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Equal(t, float64(64), req.Options["num_predict"])
	require.Len(t, req.Tools, 1)
}

func TestStreamTruncatedIsTransient(t *testing.T) {
	srv := serve(t, http.StatusOK, ndjson(`{"message":{"role":"assistant","content":"par"},"done":false}`), nil)

	events := drain(Stream(context.Background(), testModel(srv.URL), ai.Context{Messages: []ai.Message{ai.NewUserMessage("x")}}, ai.StreamOptions{}, nil))
	last := events[len(events)-1]
	assert.Equal(t, ai.EventError, last.Type)
	assert.True(t, last.Err.Transient)
}

func TestStreamModelNotFound(t *testing.T) {
	srv := serve(t, http.StatusNotFound, `{"error":"model \"llama-test\" not found"}`, nil)

	events := drain(Stream(context.Background(), testModel(srv.URL), ai.Context{Messages: []ai.Message{ai.NewUserMessage("x")}}, ai.StreamOptions{}, nil))
	require.Len(t, events, 1)
	assert.Equal(t, ai.ErrorKindInvalidRequest, events[0].Err.Kind)
	assert.Contains(t, events[0].Err.Message, "not found")
}

func TestStreamCancelledEmitsNoTerminal(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"a"},"done":false}` + "\n"))
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	ctx, cancel := context.WithCancel(context.Background())
	ch := Stream(ctx, testModel(srv.URL), ai.Context{Messages: []ai.Message{ai.NewUserMessage("x")}}, ai.StreamOptions{}, nil)

	first := <-ch
	assert.Equal(t, ai.EventTextDelta, first.Type)
	cancel()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			assert.False(t, ev.IsTerminal(), "unexpected %s after cancel", ev.Type)
		case <-deadline:
			t.Fatal("stream did not close after cancellation")
		}
	}
}

func TestHostDefaults(t *testing.T) {
	t.Setenv("OLLAMA_HOST", "")
	assert.Equal(t, DefaultHost, host(ai.Model{}))

	t.Setenv("OLLAMA_HOST", "gpu-box:11434")
	assert.Equal(t, "http://gpu-box:11434", host(ai.Model{}))
	assert.Equal(t, "https://x.example", host(ai.Model{BaseURL: "https://x.example/"}))
}
