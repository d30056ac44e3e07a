// Package anthropic streams the Anthropic Messages API as canonical events.
package anthropic

import (
	"context"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	ai "github.com/spetersoncode/loom"
	"github.com/spetersoncode/loom/internal/provider/emit"
)

const defaultMaxTokens = 4096

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

func newClient(model ai.Model, opts ai.StreamOptions, httpClient *http.Client) anthropic.Client {
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
	return anthropic.NewClient(reqOpts...)
}

func buildParams(model ai.Model, c ai.Context, opts ai.StreamOptions) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model.ID),
		MaxTokens: int64(opts.ResolveMaxTokens(model, defaultMaxTokens)),
		Messages:  convertMessages(model, c.Messages),
	}
	if c.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: c.SystemPrompt}}
	}
	if len(c.Tools) > 0 {
		params.Tools = convertTools(c.Tools)
		if opts.ToolChoice != "" {
			params.ToolChoice = convertToolChoice(opts.ToolChoice)
		}
	}
	if budget := opts.ResolveThinkingBudget(); budget > 0 && model.Reasoning {
		// The budget must stay below max_tokens.
		if int64(budget) >= params.MaxTokens {
			params.MaxTokens = int64(budget) + defaultMaxTokens
		}
		params.Thinking = anthropic.ThinkingConfigParamOfEnabled(int64(budget))
	} else if opts.Temperature != nil {
		params.Temperature = anthropic.Float(*opts.Temperature)
	}
	return params
}

// blockKind tracks what an indexed content block carries.
type blockKind struct {
	typ string
	id  string
}

func run(ctx context.Context, w *emit.Writer, model ai.Model, c ai.Context, opts ai.StreamOptions, httpClient *http.Client) {
	defer w.Close()

	client := newClient(model, opts, httpClient)
	stream := client.Messages.NewStreaming(ctx, buildParams(model, c, opts))
	defer stream.Close()

	var (
		usage  ai.Usage
		reason = ai.StopReasonStop
		blocks = make(map[int64]blockKind)
	)

	for stream.Next() {
		event := stream.Current()
		switch event.Type {
		case "message_start":
			u := event.AsMessageStart().Message.Usage
			usage.Input = int(u.InputTokens)
			usage.Output = int(u.OutputTokens)
			usage.CacheRead = int(u.CacheReadInputTokens)
			usage.CacheWrite = int(u.CacheCreationInputTokens)

		case "content_block_start":
			start := event.AsContentBlockStart()
			block := start.ContentBlock
			blocks[start.Index] = blockKind{typ: block.Type, id: block.ID}
			if block.Type == "tool_use" && !w.ToolStart(block.ID, block.Name) {
				return
			}

		case "content_block_delta":
			delta := event.AsContentBlockDelta()
			ok := true
			switch delta.Delta.Type {
			case "text_delta":
				ok = w.Text(delta.Delta.Text)
			case "thinking_delta":
				ok = w.Thinking(delta.Delta.Thinking, "")
			case "signature_delta":
				ok = w.Thinking("", delta.Delta.Signature)
			case "input_json_delta":
				ok = w.ToolDelta(blocks[delta.Index].id, delta.Delta.PartialJSON)
			}
			if !ok {
				return
			}

		case "content_block_stop":
			stop := event.AsContentBlockStop()
			if b := blocks[stop.Index]; b.typ == "tool_use" && !w.ToolEnd(b.id) {
				return
			}

		case "message_delta":
			md := event.AsMessageDelta()
			if md.Usage.OutputTokens > 0 {
				usage.Output = int(md.Usage.OutputTokens)
			}
			if md.Usage.InputTokens > 0 {
				usage.Input = int(md.Usage.InputTokens)
			}
			reason = mapStopReason(string(md.Delta.StopReason))
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

func mapStopReason(r string) ai.StopReason {
	switch r {
	case "max_tokens":
		return ai.StopReasonLength
	case "tool_use":
		return ai.StopReasonToolUse
	case "refusal":
		return ai.StopReasonError
	default:
		return ai.StopReasonStop
	}
}
