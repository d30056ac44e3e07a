// Package google streams Gemini models, through either the Gemini API or
// Vertex AI, as canonical events.
package google

import (
	"context"
	"encoding/json"
	"net/http"
	"os"

	"github.com/google/uuid"
	ai "github.com/spetersoncode/loom"
	"github.com/spetersoncode/loom/internal/provider/emit"
	"google.golang.org/genai"
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

func clientConfig(model ai.Model, opts ai.StreamOptions, httpClient *http.Client) *genai.ClientConfig {
	cfg := &genai.ClientConfig{HTTPClient: httpClient}
	if model.Api == ai.ApiGoogleVertex {
		// Vertex authenticates with Application Default Credentials.
		cfg.Backend = genai.BackendVertexAI
		cfg.Project = os.Getenv("GOOGLE_CLOUD_PROJECT")
		cfg.Location = os.Getenv("GOOGLE_CLOUD_LOCATION")
		if cfg.Location == "" {
			cfg.Location = "us-central1"
		}
	} else {
		cfg.Backend = genai.BackendGeminiAPI
		cfg.APIKey = opts.APIKey
	}
	if model.BaseURL != "" {
		cfg.HTTPOptions.BaseURL = model.BaseURL
	}
	if len(model.Headers)+len(opts.Headers) > 0 {
		cfg.HTTPOptions.Headers = make(http.Header)
		for k, v := range model.Headers {
			cfg.HTTPOptions.Headers.Set(k, v)
		}
		for k, v := range opts.Headers {
			cfg.HTTPOptions.Headers.Set(k, v)
		}
	}
	return cfg
}

func buildConfig(model ai.Model, c ai.Context, opts ai.StreamOptions) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{}
	if c.SystemPrompt != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: c.SystemPrompt}}}
	}
	if opts.MaxTokens > 0 {
		config.MaxOutputTokens = int32(opts.MaxTokens)
	}
	if opts.Temperature != nil {
		temp := float32(*opts.Temperature)
		config.Temperature = &temp
	}
	if len(c.Tools) > 0 {
		config.Tools = convertTools(c.Tools)
		if opts.ToolChoice != "" {
			config.ToolConfig = convertToolChoice(opts.ToolChoice)
		}
	}
	if budget := opts.ResolveThinkingBudget(); budget > 0 && model.Reasoning {
		b := int32(budget)
		config.ThinkingConfig = &genai.ThinkingConfig{IncludeThoughts: true, ThinkingBudget: &b}
	}
	return config
}

func run(ctx context.Context, w *emit.Writer, model ai.Model, c ai.Context, opts ai.StreamOptions, httpClient *http.Client) {
	defer w.Close()

	client, err := genai.NewClient(ctx, clientConfig(model, opts, httpClient))
	if err != nil {
		w.Fail(ai.NewPermanentError("google client", 0, err))
		return
	}

	var (
		usage  ai.Usage
		reason = ai.StopReasonStop
	)
	contents := convertMessages(model, c.Messages)
	for resp, err := range client.Models.GenerateContentStream(ctx, model.ID, contents, buildConfig(model, c, opts)) {
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.Fail(wrapError(err))
			return
		}
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			w.Failf("request blocked: %s", resp.PromptFeedback.BlockReason)
			return
		}
		if len(resp.Candidates) > 0 {
			cand := resp.Candidates[0]
			if cand.Content != nil && !emitParts(w, cand.Content.Parts) {
				return
			}
			if cand.FinishReason != "" {
				reason = mapFinishReason(cand.FinishReason)
			}
		}
		if m := resp.UsageMetadata; m != nil {
			cached := int(m.CachedContentTokenCount)
			usage = ai.Usage{
				Input:     int(m.PromptTokenCount) - cached,
				Output:    int(m.CandidatesTokenCount) + int(m.ThoughtsTokenCount),
				CacheRead: cached,
				Total:     int(m.TotalTokenCount),
			}
		}
	}
	if ctx.Err() != nil {
		return
	}
	if !w.Usage(usage) {
		return
	}
	if reason == ai.StopReasonError {
		w.Failf("generation stopped by safety filters")
		return
	}
	w.Done(reason)
}

// emitParts writes one response chunk. Gemini delivers function calls
// whole, so each becomes a start, delta, end triple.
func emitParts(w *emit.Writer, parts []*genai.Part) bool {
	for _, p := range parts {
		switch {
		case p.FunctionCall != nil:
			id := p.FunctionCall.ID
			if id == "" {
				id = "call_" + uuid.NewString()
			}
			args := "{}"
			if len(p.FunctionCall.Args) > 0 {
				raw, err := json.Marshal(p.FunctionCall.Args)
				if err == nil {
					args = string(raw)
				}
			}
			if !w.ToolCall(id, p.FunctionCall.Name, args) {
				return false
			}
		case p.Thought:
			if !w.Thinking(p.Text, encodeSignature(p.ThoughtSignature)) {
				return false
			}
		case p.Text != "":
			if !w.Text(p.Text) {
				return false
			}
		}
	}
	return w.Live()
}

func mapFinishReason(r genai.FinishReason) ai.StopReason {
	switch r {
	case genai.FinishReasonMaxTokens:
		return ai.StopReasonLength
	case genai.FinishReasonSafety, genai.FinishReasonRecitation, genai.FinishReasonBlocklist,
		genai.FinishReasonProhibitedContent, genai.FinishReasonSPII, genai.FinishReasonMalformedFunctionCall:
		return ai.StopReasonError
	default:
		return ai.StopReasonStop
	}
}
