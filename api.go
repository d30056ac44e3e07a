package loom

// Api identifies a streaming wire protocol. Each model declares the Api it is
// served through, and the dispatcher resolves it to a stream adapter.
type Api string

// Built-in API identifiers. These names are reserved: custom registrations
// cannot use them.
const (
	ApiAnthropicMessages    Api = "anthropic-messages"
	ApiOpenAICompletions    Api = "openai-completions"
	ApiOpenAIResponses      Api = "openai-responses"
	ApiAzureOpenAIResponses Api = "azure-openai-responses"
	ApiGoogleGenerativeAI   Api = "google-generative-ai"
	ApiGoogleVertex         Api = "google-vertex"
	ApiOllamaChat           Api = "ollama-chat"
)

var builtinApis = []Api{
	ApiAnthropicMessages,
	ApiOpenAICompletions,
	ApiOpenAIResponses,
	ApiAzureOpenAIResponses,
	ApiGoogleGenerativeAI,
	ApiGoogleVertex,
	ApiOllamaChat,
}

// String returns the identifier.
func (a Api) String() string { return string(a) }

// BuiltinApis returns the reserved built-in API identifiers.
func BuiltinApis() []Api {
	out := make([]Api, len(builtinApis))
	copy(out, builtinApis)
	return out
}

// IsBuiltinApi reports whether api is served by a built-in adapter.
func IsBuiltinApi(api Api) bool {
	for _, b := range builtinApis {
		if b == api {
			return true
		}
	}
	return false
}

// Provider identifies the vendor hosting a model.
type Provider string

const (
	ProviderAnthropic    Provider = "anthropic"
	ProviderOpenAI       Provider = "openai"
	ProviderAzureOpenAI  Provider = "azure-openai"
	ProviderGoogle       Provider = "google"
	ProviderGoogleVertex Provider = "google-vertex"
	ProviderOllama       Provider = "ollama"

	// OpenAI-compatible vendors served through ApiOpenAICompletions.
	ProviderGroq       Provider = "groq"
	ProviderXAI        Provider = "xai"
	ProviderCerebras   Provider = "cerebras"
	ProviderOpenRouter Provider = "openrouter"
	ProviderMistral    Provider = "mistral"
	ProviderDeepSeek   Provider = "deepseek"
)

// String returns the provider identifier.
func (p Provider) String() string { return string(p) }
