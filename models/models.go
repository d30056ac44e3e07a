// Package models is a catalog of model descriptors for the built-in
// providers.
//
//	m, err := models.Parse("anthropic/claude-sonnet-4-5")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	c.Stream(ctx, m, conversation)
//
// Parse also accepts ids missing from the catalog for known providers,
// returning a descriptor with the provider's default API and endpoint but
// no pricing. Pricing was last verified December 2025.
package models

import (
	"fmt"
	"sort"
	"strings"

	ai "github.com/spetersoncode/loom"
)

// Get returns the catalog entry for provider and id.
func Get(provider ai.Provider, id string) (ai.Model, bool) {
	for _, m := range catalog {
		if m.Provider == provider && m.ID == id {
			return clone(m), true
		}
	}
	return ai.Model{}, false
}

// All returns every catalog entry ordered by provider, then id.
func All() []ai.Model {
	out := make([]ai.Model, 0, len(catalog))
	for _, m := range catalog {
		out = append(out, clone(m))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Provider != out[j].Provider {
			return out[i].Provider < out[j].Provider
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ByProvider returns the catalog entries of p ordered by id.
func ByProvider(p ai.Provider) []ai.Model {
	var out []ai.Model
	for _, m := range All() {
		if m.Provider == p {
			out = append(out, m)
		}
	}
	return out
}

// Providers returns the providers Parse accepts.
func Providers() []ai.Provider {
	out := make([]ai.Provider, 0, len(defaults))
	for p := range defaults {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Parse resolves "provider/id". The id may itself contain slashes, as
// OpenRouter ids do.
func Parse(s string) (ai.Model, error) {
	provider, id, ok := strings.Cut(s, "/")
	if !ok || provider == "" || id == "" {
		return ai.Model{}, fmt.Errorf("models: %q is not of the form provider/id", s)
	}
	p := ai.Provider(provider)
	if m, ok := Get(p, id); ok {
		return m, nil
	}
	d, ok := defaults[p]
	if !ok {
		return ai.Model{}, fmt.Errorf("models: unknown provider %q", provider)
	}
	return ai.Model{
		ID:       id,
		Name:     id,
		Provider: p,
		Api:      d.api,
		BaseURL:  d.baseURL,
		Input:    []ai.Modality{ai.ModalityText},
	}, nil
}

func clone(m ai.Model) ai.Model {
	if m.Input != nil {
		m.Input = append([]ai.Modality(nil), m.Input...)
	}
	if m.Headers != nil {
		h := make(map[string]string, len(m.Headers))
		for k, v := range m.Headers {
			h[k] = v
		}
		m.Headers = h
	}
	return m
}
