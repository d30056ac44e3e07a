// Package openai streams the OpenAI Chat Completions API, and every vendor
// that speaks it, as canonical events.
package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	ai "github.com/spetersoncode/loom"
	"github.com/spetersoncode/loom/internal/provider/emit"
)

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

func newClient(model ai.Model, opts ai.StreamOptions, httpClient *http.Client) openai.Client {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0),
	}
	if model.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(model.BaseURL))
	}
	if httpClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(httpClient))
	}
	for k, v := range model.Headers {
		reqOpts = append(reqOpts, option.WithHeader(k, v))
	}
	for k, v := range opts.Headers {
		reqOpts = append(reqOpts, option.WithHeader(k, v))
	}
	return openai.NewClient(reqOpts...)
}

func buildParams(model ai.Model, c ai.Context, opts ai.StreamOptions) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model:    model.ID,
		Messages: convertMessages(model, c),
		StreamOptions: openai.ChatCompletionStreamOptionsParam{
			IncludeUsage: openai.Bool(true),
		},
	}
	if opts.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(opts.MaxTokens))
	}
	if opts.Temperature != nil {
		params.Temperature = openai.Float(*opts.Temperature)
	}
	if len(c.Tools) > 0 {
		params.Tools = convertTools(c.Tools)
		if opts.ToolChoice != "" {
			params.ToolChoice = convertToolChoice(opts.ToolChoice)
		}
	}
	if model.Reasoning && opts.Reasoning != ai.ThinkingOff {
		params.ReasoningEffort = shared.ReasoningEffort(reasoningEffort(opts.Reasoning))
	}
	return params
}

func reasoningEffort(level ai.ThinkingLevel) string {
	if level == ai.ThinkingMinimal {
		return "low"
	}
	return string(level)
}

// reasoningFields are the non-standard delta fields OpenAI-compatible
// vendors use for reasoning text.
type reasoningFields struct {
	ReasoningContent string `json:"reasoning_content"`
	Reasoning        string `json:"reasoning"`
}

func run(ctx context.Context, w *emit.Writer, model ai.Model, c ai.Context, opts ai.StreamOptions, httpClient *http.Client) {
	defer w.Close()

	client := newClient(model, opts, httpClient)
	stream := client.Chat.Completions.NewStreaming(ctx, buildParams(model, c, opts))
	defer stream.Close()

	var (
		usage  ai.Usage
		reason = ai.StopReasonStop
		// Tool calls are keyed by their chunk index; only the first
		// fragment of a call carries its id.
		ids = make(map[int64]string)
	)

	for stream.Next() {
		chunk := stream.Current()

		if chunk.Usage.TotalTokens > 0 {
			cached := int(chunk.Usage.PromptTokensDetails.CachedTokens)
			usage = ai.Usage{
				Input:     int(chunk.Usage.PromptTokens) - cached,
				Output:    int(chunk.Usage.CompletionTokens),
				CacheRead: cached,
				Total:     int(chunk.Usage.TotalTokens),
			}
		}
		if len(chunk.Choices) == 0 {
			continue
		}

		choice := chunk.Choices[0]
		delta := choice.Delta

		if raw := delta.RawJSON(); raw != "" {
			var rf reasoningFields
			if json.Unmarshal([]byte(raw), &rf) == nil {
				thinking := rf.ReasoningContent
				if thinking == "" {
					thinking = rf.Reasoning
				}
				if !w.Thinking(thinking, "") {
					return
				}
			}
		}

		if !w.Text(delta.Content) {
			return
		}

		for _, tc := range delta.ToolCalls {
			id, known := ids[tc.Index]
			if !known {
				id = tc.ID
				if id == "" {
					id = "call_" + strconv.FormatInt(tc.Index, 10)
				}
				ids[tc.Index] = id
				if !w.ToolStart(id, tc.Function.Name) {
					return
				}
			}
			if !w.ToolDelta(id, tc.Function.Arguments) {
				return
			}
		}

		if choice.FinishReason != "" {
			reason = mapFinishReason(choice.FinishReason)
			if !w.EndOpenCalls() {
				return
			}
		}
	}

	if err := stream.Err(); err != nil {
		w.Fail(wrapError(err))
		return
	}
	if !w.Usage(usage) {
		return
	}
	w.Done(reason)
}

func mapFinishReason(r string) ai.StopReason {
	switch r {
	case "length":
		return ai.StopReasonLength
	case "tool_calls", "function_call":
		return ai.StopReasonToolUse
	case "content_filter":
		return ai.StopReasonError
	default:
		return ai.StopReasonStop
	}
}
