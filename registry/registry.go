// Package registry holds runtime-registered stream adapters keyed by API
// identifier. Extensions use it to add providers without touching the
// built-in dispatch table.
//
// A Registry is an explicit store. Tests construct isolated instances with
// New; production code shares the instance returned by Default.
package registry

import (
	"context"
	"errors"
	"sort"
	"sync"

	ai "github.com/spetersoncode/loom"
)

// Entry is a registered custom API.
type Entry struct {
	Api ai.Api
	// Stream is the full-options stream function. When registration only
	// supplied a simple function, Stream adapts it.
	Stream ai.StreamFunc
	// StreamSimple is the simple-options stream function.
	StreamSimple ai.SimpleStreamFunc
	// Source identifies the extension that registered the entry. Empty when
	// registered without one.
	Source string
}

// RegisterOption configures a registration.
type RegisterOption func(*Entry)

// WithSource tags the entry with the registering extension's identifier so
// UnregisterBySource can remove it in bulk.
func WithSource(source string) RegisterOption {
	return func(e *Entry) {
		e.Source = source
	}
}

// WithStream supplies an explicit full-options stream function.
func WithStream(fn ai.StreamFunc) RegisterOption {
	return func(e *Entry) {
		e.Stream = fn
	}
}

var (
	// ErrEmptyApi is returned when registering without an API identifier.
	ErrEmptyApi = errors.New("registry: api identifier is empty")
	// ErrNilStream is returned when registering without a simple stream function.
	ErrNilStream = errors.New("registry: simple stream function is nil")
)

// Registry maps API identifiers to custom stream adapters.
// It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[ai.Api]Entry
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[ai.Api]Entry)}
}

var defaultRegistry = New()

// Default returns the process-wide registry.
func Default() *Registry {
	return defaultRegistry
}

// Register adds or replaces the adapter for api. It fails with
// *loom.ApiConflictError when api names a built-in adapter.
func (r *Registry) Register(api ai.Api, simple ai.SimpleStreamFunc, opts ...RegisterOption) error {
	if api == "" {
		return ErrEmptyApi
	}
	if simple == nil {
		return ErrNilStream
	}
	if ai.IsBuiltinApi(api) {
		return &ai.ApiConflictError{Api: api}
	}

	e := Entry{Api: api, StreamSimple: simple}
	for _, opt := range opts {
		opt(&e)
	}
	if e.Stream == nil {
		e.Stream = adaptSimple(simple)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[api] = e
	return nil
}

// adaptSimple synthesizes a full stream function that drops the options the
// simple function cannot express.
func adaptSimple(simple ai.SimpleStreamFunc) ai.StreamFunc {
	return func(ctx context.Context, model ai.Model, c ai.Context, opts ai.StreamOptions) <-chan ai.StreamEvent {
		return simple(ctx, model, c, opts.ToSimple())
	}
}

// Lookup returns the entry for api. Absence is reported through the boolean.
func (r *Registry) Lookup(api ai.Api) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[api]
	return e, ok
}

// Unregister removes a single entry and reports whether it existed.
func (r *Registry) Unregister(api ai.Api) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[api]
	delete(r.entries, api)
	return ok
}

// UnregisterBySource removes every entry registered with source and returns
// how many were removed. Entries with a different or empty source are kept.
func (r *Registry) UnregisterBySource(source string) int {
	if source == "" {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for api, e := range r.entries {
		if e.Source == source {
			delete(r.entries, api)
			n++
		}
	}
	return n
}

// Clear removes all entries.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[ai.Api]Entry)
}

// Apis returns the registered identifiers in sorted order.
func (r *Registry) Apis() []ai.Api {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ai.Api, 0, len(r.entries))
	for api := range r.entries {
		out = append(out, api)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// RegisterCustomApi registers on the default registry.
func RegisterCustomApi(api ai.Api, simple ai.SimpleStreamFunc, opts ...RegisterOption) error {
	return defaultRegistry.Register(api, simple, opts...)
}

// UnregisterCustomApis removes every default-registry entry from source.
func UnregisterCustomApis(source string) int {
	return defaultRegistry.UnregisterBySource(source)
}

// GetCustomApi looks up api on the default registry.
func GetCustomApi(api ai.Api) (Entry, bool) {
	return defaultRegistry.Lookup(api)
}
