package loom

// Modality is an input kind a model accepts.
type Modality string

const (
	ModalityText  Modality = "text"
	ModalityImage Modality = "image"
)

// Cost holds USD rates per million tokens. When returned from
// CalculateCost the fields hold absolute USD amounts instead.
type Cost struct {
	Input      float64 `json:"input" yaml:"input"`
	Output     float64 `json:"output" yaml:"output"`
	CacheRead  float64 `json:"cacheRead,omitempty" yaml:"cache_read"`
	CacheWrite float64 `json:"cacheWrite,omitempty" yaml:"cache_write"`
}

// Total sums every component.
func (c Cost) Total() float64 {
	return c.Input + c.Output + c.CacheRead + c.CacheWrite
}

// Model is an immutable descriptor of a model and the API it is served
// through. Values are passed by copy and never mutated after lookup.
type Model struct {
	ID       string   `json:"id" yaml:"id"`
	Name     string   `json:"name,omitempty" yaml:"name"`
	Provider Provider `json:"provider" yaml:"provider"`
	Api      Api      `json:"api" yaml:"api"`
	// BaseURL overrides the vendor endpoint. OpenAI-compatible vendors rely
	// on it to share the completions adapter.
	BaseURL string            `json:"baseUrl,omitempty" yaml:"base_url"`
	Headers map[string]string `json:"headers,omitempty" yaml:"headers"`

	Cost          Cost       `json:"cost" yaml:"cost"`
	ContextWindow int        `json:"contextWindow" yaml:"context_window"`
	MaxTokens     int        `json:"maxTokens" yaml:"max_tokens"`
	Reasoning     bool       `json:"reasoning" yaml:"reasoning"`
	Input         []Modality `json:"input" yaml:"input"`
}

// String returns "provider/id".
func (m Model) String() string {
	return string(m.Provider) + "/" + m.ID
}

// SupportsImages reports whether the model accepts image input.
func (m Model) SupportsImages() bool {
	for _, in := range m.Input {
		if in == ModalityImage {
			return true
		}
	}
	return false
}

// CalculateCost prices usage at the model's rates.
func (m Model) CalculateCost(u Usage) Cost {
	const perMillion = 1_000_000.0
	return Cost{
		Input:      float64(u.Input) * m.Cost.Input / perMillion,
		Output:     float64(u.Output) * m.Cost.Output / perMillion,
		CacheRead:  float64(u.CacheRead) * m.Cost.CacheRead / perMillion,
		CacheWrite: float64(u.CacheWrite) * m.Cost.CacheWrite / perMillion,
	}
}
