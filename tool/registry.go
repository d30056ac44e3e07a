package tool

import (
	"encoding/json"
	"sort"
	"sync"

	ai "github.com/spetersoncode/loom"
)

// Registry maps tool names to tools.
// It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool to the registry.
// Returns an error if a tool with the same name is already registered.
func (r *Registry) Register(t Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[t.Name()]; exists {
		return &AlreadyRegisteredError{Name: t.Name()}
	}
	r.tools[t.Name()] = t
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(t Tool) {
	if err := r.Register(t); err != nil {
		panic(err)
	}
}

// Add registers tools and returns the registry for chaining.
// Panics if any tool is already registered.
//
//	tools := tool.NewRegistry().Add(tool.FS(tool.WithBasePath("."))...)
func (r *Registry) Add(tools ...Tool) *Registry {
	for _, t := range tools {
		r.MustRegister(t)
	}
	return r
}

// Unregister removes a tool from the registry.
// It is a no-op if the tool is not registered.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tools[name]
	return t, ok
}

// Schema returns the parameter schema of the named tool. Its signature
// matches the assembler's schema source.
func (r *Registry) Schema(name string) (json.RawMessage, bool) {
	t, ok := r.Get(name)
	if !ok {
		return nil, false
	}
	return t.Parameters(), true
}

// Names returns the sorted names of all registered tools.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Specs returns the declarations of all tools, sorted by name so requests
// are stable across calls.
func (r *Registry) Specs() []ai.Tool {
	names := r.Names()

	r.mu.RLock()
	defer r.mu.RUnlock()

	specs := make([]ai.Tool, 0, len(names))
	for _, name := range names {
		if t, ok := r.tools[name]; ok {
			specs = append(specs, Spec(t))
		}
	}
	return specs
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}
