package models

import ai "github.com/spetersoncode/loom"

type providerDefaults struct {
	api     ai.Api
	baseURL string
}

var defaults = map[ai.Provider]providerDefaults{
	ai.ProviderAnthropic:    {api: ai.ApiAnthropicMessages},
	ai.ProviderOpenAI:       {api: ai.ApiOpenAIResponses},
	ai.ProviderAzureOpenAI:  {api: ai.ApiAzureOpenAIResponses},
	ai.ProviderGoogle:       {api: ai.ApiGoogleGenerativeAI},
	ai.ProviderGoogleVertex: {api: ai.ApiGoogleVertex},
	ai.ProviderOllama:       {api: ai.ApiOllamaChat},
	ai.ProviderGroq:         {api: ai.ApiOpenAICompletions, baseURL: "https://api.groq.com/openai/v1"},
	ai.ProviderXAI:          {api: ai.ApiOpenAICompletions, baseURL: "https://api.x.ai/v1"},
	ai.ProviderCerebras:     {api: ai.ApiOpenAICompletions, baseURL: "https://api.cerebras.ai/v1"},
	ai.ProviderOpenRouter:   {api: ai.ApiOpenAICompletions, baseURL: "https://openrouter.ai/api/v1"},
	ai.ProviderMistral:      {api: ai.ApiOpenAICompletions, baseURL: "https://api.mistral.ai/v1"},
	ai.ProviderDeepSeek:     {api: ai.ApiOpenAICompletions, baseURL: "https://api.deepseek.com/v1"},
}

var (
	textOnly  = []ai.Modality{ai.ModalityText}
	textImage = []ai.Modality{ai.ModalityText, ai.ModalityImage}
)

func entry(p ai.Provider, id, name string, cost ai.Cost, window, maxTokens int, reasoning bool, input []ai.Modality) ai.Model {
	d := defaults[p]
	return ai.Model{
		ID:            id,
		Name:          name,
		Provider:      p,
		Api:           d.api,
		BaseURL:       d.baseURL,
		Cost:          cost,
		ContextWindow: window,
		MaxTokens:     maxTokens,
		Reasoning:     reasoning,
		Input:         input,
	}
}

var catalog = []ai.Model{
	// Anthropic
	entry(ai.ProviderAnthropic, "claude-opus-4-5", "Claude Opus 4.5",
		ai.Cost{Input: 5, Output: 25, CacheRead: 0.5, CacheWrite: 6.25}, 200_000, 64_000, true, textImage),
	entry(ai.ProviderAnthropic, "claude-sonnet-4-5", "Claude Sonnet 4.5",
		ai.Cost{Input: 3, Output: 15, CacheRead: 0.3, CacheWrite: 3.75}, 200_000, 64_000, true, textImage),
	entry(ai.ProviderAnthropic, "claude-haiku-4-5", "Claude Haiku 4.5",
		ai.Cost{Input: 1, Output: 5, CacheRead: 0.1, CacheWrite: 1.25}, 200_000, 64_000, true, textImage),

	// OpenAI
	entry(ai.ProviderOpenAI, "gpt-5.2", "GPT-5.2",
		ai.Cost{Input: 1.75, Output: 14, CacheRead: 0.175}, 400_000, 128_000, true, textImage),
	entry(ai.ProviderOpenAI, "gpt-5.1", "GPT-5.1",
		ai.Cost{Input: 1.25, Output: 10, CacheRead: 0.125}, 400_000, 128_000, true, textImage),
	entry(ai.ProviderOpenAI, "gpt-5.1-codex", "GPT-5.1 Codex",
		ai.Cost{Input: 1.25, Output: 10, CacheRead: 0.125}, 400_000, 128_000, true, textImage),
	entry(ai.ProviderOpenAI, "gpt-5", "GPT-5",
		ai.Cost{Input: 1.25, Output: 10, CacheRead: 0.125}, 400_000, 128_000, true, textImage),
	entry(ai.ProviderOpenAI, "gpt-5-mini", "GPT-5 Mini",
		ai.Cost{Input: 0.25, Output: 1, CacheRead: 0.025}, 400_000, 128_000, true, textImage),
	entry(ai.ProviderOpenAI, "gpt-5-nano", "GPT-5 Nano",
		ai.Cost{Input: 0.1, Output: 0.4, CacheRead: 0.01}, 400_000, 128_000, true, textImage),
	entry(ai.ProviderOpenAI, "o3", "o3",
		ai.Cost{Input: 2, Output: 8, CacheRead: 0.5}, 200_000, 100_000, true, textImage),
	entry(ai.ProviderOpenAI, "o4-mini", "o4-mini",
		ai.Cost{Input: 1.1, Output: 4.4, CacheRead: 0.275}, 200_000, 100_000, true, textImage),
	entry(ai.ProviderOpenAI, "gpt-4.1", "GPT-4.1",
		ai.Cost{Input: 2, Output: 8, CacheRead: 0.5}, 1_047_576, 32_768, false, textImage),

	// Google
	entry(ai.ProviderGoogle, "gemini-3-pro-preview", "Gemini 3 Pro",
		ai.Cost{Input: 2, Output: 12, CacheRead: 0.2}, 1_048_576, 65_536, true, textImage),
	entry(ai.ProviderGoogle, "gemini-2.5-pro", "Gemini 2.5 Pro",
		ai.Cost{Input: 1.25, Output: 10, CacheRead: 0.31}, 1_048_576, 65_536, true, textImage),
	entry(ai.ProviderGoogle, "gemini-2.5-flash", "Gemini 2.5 Flash",
		ai.Cost{Input: 0.3, Output: 2.5, CacheRead: 0.075}, 1_048_576, 65_536, true, textImage),
	entry(ai.ProviderGoogle, "gemini-2.5-flash-lite", "Gemini 2.5 Flash-Lite",
		ai.Cost{Input: 0.1, Output: 0.4, CacheRead: 0.025}, 1_048_576, 65_536, true, textImage),
	entry(ai.ProviderGoogleVertex, "gemini-2.5-pro", "Gemini 2.5 Pro (Vertex)",
		ai.Cost{Input: 1.25, Output: 10, CacheRead: 0.31}, 1_048_576, 65_536, true, textImage),
	entry(ai.ProviderGoogleVertex, "gemini-2.5-flash", "Gemini 2.5 Flash (Vertex)",
		ai.Cost{Input: 0.3, Output: 2.5, CacheRead: 0.075}, 1_048_576, 65_536, true, textImage),

	// OpenAI-compatible vendors
	entry(ai.ProviderGroq, "openai/gpt-oss-120b", "GPT OSS 120B (Groq)",
		ai.Cost{Input: 0.15, Output: 0.75}, 131_072, 32_768, true, textOnly),
	entry(ai.ProviderGroq, "llama-3.3-70b-versatile", "Llama 3.3 70B (Groq)",
		ai.Cost{Input: 0.59, Output: 0.79}, 131_072, 32_768, false, textOnly),
	entry(ai.ProviderXAI, "grok-4", "Grok 4",
		ai.Cost{Input: 3, Output: 15, CacheRead: 0.75}, 256_000, 64_000, true, textImage),
	entry(ai.ProviderXAI, "grok-code-fast-1", "Grok Code Fast 1",
		ai.Cost{Input: 0.2, Output: 1.5, CacheRead: 0.02}, 256_000, 10_000, true, textOnly),
	entry(ai.ProviderCerebras, "gpt-oss-120b", "GPT OSS 120B (Cerebras)",
		ai.Cost{Input: 0.25, Output: 0.69}, 131_072, 32_768, true, textOnly),
	entry(ai.ProviderOpenRouter, "anthropic/claude-sonnet-4.5", "Claude Sonnet 4.5 (OpenRouter)",
		ai.Cost{Input: 3, Output: 15, CacheRead: 0.3, CacheWrite: 3.75}, 1_000_000, 64_000, true, textImage),
	entry(ai.ProviderMistral, "devstral-medium-latest", "Devstral Medium",
		ai.Cost{Input: 0.4, Output: 2}, 128_000, 128_000, false, textOnly),
	entry(ai.ProviderMistral, "mistral-large-latest", "Mistral Large",
		ai.Cost{Input: 2, Output: 6}, 128_000, 128_000, false, textImage),
	entry(ai.ProviderDeepSeek, "deepseek-chat", "DeepSeek V3.2",
		ai.Cost{Input: 0.28, Output: 0.42, CacheRead: 0.028}, 128_000, 8_192, false, textOnly),
	entry(ai.ProviderDeepSeek, "deepseek-reasoner", "DeepSeek V3.2 Reasoner",
		ai.Cost{Input: 0.28, Output: 0.42, CacheRead: 0.028}, 128_000, 64_000, true, textOnly),

	// Ollama runs locally.
	entry(ai.ProviderOllama, "qwen3-coder", "Qwen3 Coder (Ollama)",
		ai.Cost{}, 262_144, 65_536, false, textOnly),
	entry(ai.ProviderOllama, "gpt-oss:20b", "GPT OSS 20B (Ollama)",
		ai.Cost{}, 131_072, 32_768, true, textOnly),
}
