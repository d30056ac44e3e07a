// Package responses streams the OpenAI Responses API, directly or through
// Azure OpenAI, as canonical events.
package responses

import (
	"context"
	"net/http"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
	ai "github.com/spetersoncode/loom"
	"github.com/spetersoncode/loom/internal/provider/emit"
	oaiprovider "github.com/spetersoncode/loom/internal/provider/openai"
)

// DefaultAzureAPIVersion is used when AZURE_OPENAI_API_VERSION is unset.
const DefaultAzureAPIVersion = "2025-04-01-preview"

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
	reqOpts := []option.RequestOption{option.WithMaxRetries(0)}

	if model.Api == ai.ApiAzureOpenAIResponses {
		endpoint := model.BaseURL
		if endpoint == "" {
			endpoint = os.Getenv("AZURE_OPENAI_ENDPOINT")
		}
		version := os.Getenv("AZURE_OPENAI_API_VERSION")
		if version == "" {
			version = DefaultAzureAPIVersion
		}
		reqOpts = append(reqOpts, azure.WithEndpoint(endpoint, version), azure.WithAPIKey(opts.APIKey))
	} else {
		reqOpts = append(reqOpts, option.WithAPIKey(opts.APIKey))
		if model.BaseURL != "" {
			reqOpts = append(reqOpts, option.WithBaseURL(model.BaseURL))
		}
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

func buildParams(model ai.Model, c ai.Context, opts ai.StreamOptions) responses.ResponseNewParams {
	params := responses.ResponseNewParams{
		Model: model.ID,
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: convertInput(model, c.Messages),
		},
		Store: openai.Bool(false),
	}
	if c.SystemPrompt != "" {
		params.Instructions = openai.String(c.SystemPrompt)
	}
	if opts.MaxTokens > 0 {
		params.MaxOutputTokens = openai.Int(int64(opts.MaxTokens))
	}
	if opts.Temperature != nil {
		params.Temperature = openai.Float(*opts.Temperature)
	}
	if len(c.Tools) > 0 {
		params.Tools = convertTools(c.Tools)
	}
	if model.Reasoning && opts.Reasoning != ai.ThinkingOff {
		effort := string(opts.Reasoning)
		if opts.Reasoning == ai.ThinkingMinimal {
			effort = "low"
		}
		params.Reasoning = shared.ReasoningParam{
			Effort:  shared.ReasoningEffort(effort),
			Summary: shared.ReasoningSummaryAuto,
		}
	}
	return params
}

func run(ctx context.Context, w *emit.Writer, model ai.Model, c ai.Context, opts ai.StreamOptions, httpClient *http.Client) {
	defer w.Close()

	client := newClient(model, opts, httpClient)
	stream := client.Responses.NewStreaming(ctx, buildParams(model, c, opts))
	defer stream.Close()

	var (
		usage  ai.Usage
		reason = ai.StopReasonStop
		// Argument deltas reference the output item id, while results must
		// answer the call id.
		callIDs = make(map[string]string)
	)

	for stream.Next() {
		event := stream.Current()
		ok := true
		switch event.Type {
		case "response.output_item.added":
			item := event.AsResponseOutputItemAdded().Item
			if item.Type == "function_call" {
				callIDs[item.ID] = item.CallID
				ok = w.ToolStart(item.CallID, item.Name)
			}

		case "response.function_call_arguments.delta":
			d := event.AsResponseFunctionCallArgumentsDelta()
			ok = w.ToolDelta(callIDs[d.ItemID], d.Delta)

		case "response.output_item.done":
			item := event.AsResponseOutputItemDone().Item
			if item.Type == "function_call" {
				ok = w.ToolEnd(item.CallID)
			}

		case "response.output_text.delta":
			ok = w.Text(event.AsResponseOutputTextDelta().Delta)

		case "response.reasoning_summary_text.delta":
			ok = w.Thinking(event.AsResponseReasoningSummaryTextDelta().Delta, "")

		case "response.completed", "response.incomplete":
			resp := event.AsResponseCompleted().Response
			if event.Type == "response.incomplete" {
				resp = event.AsResponseIncomplete().Response
				reason = ai.StopReasonLength
			}
			cached := int(resp.Usage.InputTokensDetails.CachedTokens)
			usage = ai.Usage{
				Input:     int(resp.Usage.InputTokens) - cached,
				Output:    int(resp.Usage.OutputTokens),
				CacheRead: cached,
				Total:     int(resp.Usage.TotalTokens),
			}

		case "response.failed":
			resp := event.AsResponseFailed().Response
			w.Failf("%s: %s", resp.Error.Code, resp.Error.Message)
			return

		case "error":
			e := event.AsError()
			w.Failf("%s: %s", e.Code, e.Message)
			return
		}
		if !ok {
			return
		}
	}

	if err := stream.Err(); err != nil {
		w.Fail(oaiprovider.WrapError(err))
		return
	}
	if !w.Usage(usage) {
		return
	}
	w.Done(reason)
}
