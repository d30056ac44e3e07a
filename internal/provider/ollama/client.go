// Package ollama streams a local Ollama server's /api/chat endpoint as
// canonical events. Ollama answers with newline-delimited JSON objects.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/google/uuid"
	ai "github.com/spetersoncode/loom"
	"github.com/spetersoncode/loom/internal/provider/emit"
	"github.com/spetersoncode/loom/internal/provider/httperr"
)

// DefaultHost is used when neither the model nor OLLAMA_HOST name a server.
const DefaultHost = "http://localhost:11434"

// Stream sends c to the model and returns its canonical event stream.
func Stream(ctx context.Context, model ai.Model, c ai.Context, opts ai.StreamOptions, httpClient *http.Client) <-chan ai.StreamEvent {
	w := emit.New(ctx)
	go run(ctx, w, model, c, opts, httpClient)
	return w.Events()
}

// StreamSimple is Stream with provider defaults for every advanced option.
func StreamSimple(ctx context.Context, model ai.Model, c ai.Context, opts ai.SimpleStreamOptions, httpClient *http.Client) <-chan ai.StreamEvent {
	return Stream(ctx, model, c, ai.FromSimple(opts), httpClient)
}

func host(model ai.Model) string {
	h := model.BaseURL
	if h == "" {
		h = os.Getenv("OLLAMA_HOST")
	}
	if h == "" {
		h = DefaultHost
	}
	if !strings.HasPrefix(h, "http://") && !strings.HasPrefix(h, "https://") {
		h = "http://" + h
	}
	return strings.TrimSuffix(h, "/")
}

func buildRequest(model ai.Model, c ai.Context, opts ai.StreamOptions) *chatRequest {
	req := &chatRequest{
		Model:    model.ID,
		Messages: convertMessages(model, c),
		Stream:   true,
		Think:    model.Reasoning && opts.Reasoning != ai.ThinkingOff,
	}
	if len(c.Tools) > 0 && opts.ToolChoice != ai.ToolChoiceNone {
		req.Tools = convertTools(c.Tools)
	}
	options := make(map[string]any)
	if opts.Temperature != nil {
		options["temperature"] = *opts.Temperature
	}
	if opts.MaxTokens > 0 {
		options["num_predict"] = opts.MaxTokens
	}
	if len(options) > 0 {
		req.Options = options
	}
	return req
}

func run(ctx context.Context, w *emit.Writer, model ai.Model, c ai.Context, opts ai.StreamOptions, httpClient *http.Client) {
	defer w.Close()
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	body, err := json.Marshal(buildRequest(model, c, opts))
	if err != nil {
		w.Fail(ai.NewUserInputError("encode request", 0, err))
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, host(model)+"/api/chat", bytes.NewReader(body))
	if err != nil {
		w.Fail(ai.NewUserInputError("build request", 0, err))
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if opts.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+opts.APIKey)
	}
	for k, v := range model.Headers {
		req.Header.Set(k, v)
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		w.Fail(err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		w.Fail(httperr.Categorize(fmt.Sprintf("ollama: status %d: %s", resp.StatusCode, bytes.TrimSpace(msg)),
			resp.StatusCode, httperr.RetryAfter(resp), nil))
		return
	}

	reader := bufio.NewReader(resp.Body)
	for {
		line, err := reader.ReadBytes('\n')
		if len(bytes.TrimSpace(line)) > 0 {
			var chunk chatResponse
			if jerr := json.Unmarshal(line, &chunk); jerr != nil {
				w.Fail(ai.NewPermanentError("ollama: malformed chunk", 0, jerr))
				return
			}
			if chunk.Error != "" {
				w.Failf("ollama: %s", chunk.Error)
				return
			}
			if !emitChunk(w, &chunk) {
				return
			}
			if chunk.Done {
				if !w.Usage(ai.Usage{Input: chunk.PromptEvalCount, Output: chunk.EvalCount}) {
					return
				}
				w.Done(mapDoneReason(chunk.DoneReason))
				return
			}
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, io.EOF) {
				err = ai.NewTransientError("ollama: stream ended before done", 0, io.ErrUnexpectedEOF)
			}
			w.Fail(err)
			return
		}
	}
}

// emitChunk writes one chunk. Ollama sends tool calls whole and without ids.
func emitChunk(w *emit.Writer, chunk *chatResponse) bool {
	if chunk.Message == nil {
		return w.Live()
	}
	if !w.Thinking(chunk.Message.Thinking, "") || !w.Text(chunk.Message.Content) {
		return false
	}
	for _, tc := range chunk.Message.ToolCalls {
		if tc.Function == nil {
			continue
		}
		args := "{}"
		if len(tc.Function.Arguments) > 0 {
			if raw, err := json.Marshal(tc.Function.Arguments); err == nil {
				args = string(raw)
			}
		}
		if !w.ToolCall("call_"+uuid.NewString(), tc.Function.Name, args) {
			return false
		}
	}
	return w.Live()
}

func mapDoneReason(r string) ai.StopReason {
	if r == "length" {
		return ai.StopReasonLength
	}
	return ai.StopReasonStop
}
