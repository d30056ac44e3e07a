package loom

// ThinkingLevel requests a reasoning effort from models that support it.
type ThinkingLevel string

const (
	ThinkingOff     ThinkingLevel = ""
	ThinkingMinimal ThinkingLevel = "minimal"
	ThinkingLow     ThinkingLevel = "low"
	ThinkingMedium  ThinkingLevel = "medium"
	ThinkingHigh    ThinkingLevel = "high"
)

// DefaultThinkingBudgets maps levels to token budgets for vendors that take
// an explicit budget instead of an effort level.
var DefaultThinkingBudgets = map[ThinkingLevel]int{
	ThinkingMinimal: 1024,
	ThinkingLow:     2048,
	ThinkingMedium:  8192,
	ThinkingHigh:    16384,
}

// StreamOptions is the full option set accepted by stream adapters.
type StreamOptions struct {
	APIKey      string
	MaxTokens   int
	Temperature *float64
	Reasoning   ThinkingLevel
	// ThinkingBudget overrides DefaultThinkingBudgets when positive.
	ThinkingBudget int
	ToolChoice     ToolChoice
	Headers        map[string]string
	// SessionID is forwarded to vendors that support prompt caching keys.
	SessionID string
}

// SimpleStreamOptions is the reduced option set of the simple stream mode.
type SimpleStreamOptions struct {
	APIKey      string
	MaxTokens   int
	Temperature *float64
	Reasoning   ThinkingLevel
}

// ToSimple drops the advanced fields.
func (o StreamOptions) ToSimple() SimpleStreamOptions {
	return SimpleStreamOptions{
		APIKey:      o.APIKey,
		MaxTokens:   o.MaxTokens,
		Temperature: o.Temperature,
		Reasoning:   o.Reasoning,
	}
}

// FromSimple expands simple options, leaving advanced fields at defaults.
func FromSimple(o SimpleStreamOptions) StreamOptions {
	return StreamOptions{
		APIKey:      o.APIKey,
		MaxTokens:   o.MaxTokens,
		Temperature: o.Temperature,
		Reasoning:   o.Reasoning,
	}
}

// ResolveMaxTokens returns the requested output cap, falling back to the
// model limit and then to fallback.
func (o StreamOptions) ResolveMaxTokens(m Model, fallback int) int {
	if o.MaxTokens > 0 {
		return o.MaxTokens
	}
	if m.MaxTokens > 0 {
		return m.MaxTokens
	}
	return fallback
}

// ResolveThinkingBudget returns the token budget for the reasoning level,
// or 0 when reasoning is off.
func (o StreamOptions) ResolveThinkingBudget() int {
	if o.Reasoning == ThinkingOff {
		return 0
	}
	if o.ThinkingBudget > 0 {
		return o.ThinkingBudget
	}
	return DefaultThinkingBudgets[o.Reasoning]
}

// Option is a functional option for configuring stream requests.
type Option func(*StreamOptions)

// WithAPIKey overrides the credential for the request.
func WithAPIKey(key string) Option {
	return func(o *StreamOptions) {
		o.APIKey = key
	}
}

// WithMaxTokens sets the maximum number of tokens to generate.
func WithMaxTokens(n int) Option {
	return func(o *StreamOptions) {
		o.MaxTokens = n
	}
}

// WithTemperature sets the sampling temperature (0.0 to 2.0).
func WithTemperature(t float64) Option {
	return func(o *StreamOptions) {
		o.Temperature = &t
	}
}

// WithReasoning requests a reasoning effort.
func WithReasoning(level ThinkingLevel) Option {
	return func(o *StreamOptions) {
		o.Reasoning = level
	}
}

// WithThinkingBudget sets an explicit reasoning token budget.
func WithThinkingBudget(tokens int) Option {
	return func(o *StreamOptions) {
		o.ThinkingBudget = tokens
	}
}

// WithToolChoice controls how the model uses tools.
func WithToolChoice(choice ToolChoice) Option {
	return func(o *StreamOptions) {
		o.ToolChoice = choice
	}
}

// WithHeader adds an HTTP header to the vendor request.
func WithHeader(key, value string) Option {
	return func(o *StreamOptions) {
		if o.Headers == nil {
			o.Headers = make(map[string]string)
		}
		o.Headers[key] = value
	}
}

// WithSessionID tags the request with a session identifier.
func WithSessionID(id string) Option {
	return func(o *StreamOptions) {
		o.SessionID = id
	}
}

// ApplyOptions applies functional options to a StreamOptions value.
func ApplyOptions(opts ...Option) StreamOptions {
	var o StreamOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
