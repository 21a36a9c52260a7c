package workflow

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Tool is an opaque callable the analyst can invoke. Implementations live in
// the tools packages; the engine only knows names, descriptions and how to
// call them. Tools must be safe for concurrent use: sessions share one
// registry.
type Tool interface {
	Name() string
	Description() string
	Call(ctx context.Context, args map[string]any) (any, error)
}

// Registry is a static name-to-tool mapping. Lookups are case-sensitive exact
// matches. It is populated once at startup and read-only afterwards.
type Registry struct {
	tools map[string]Tool
}

// NewRegistry builds a registry from the given tools. Duplicate names are
// rejected.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		if t == nil {
			continue
		}
		name := t.Name()
		if name == "" {
			return nil, fmt.Errorf("tool with empty name")
		}
		if _, exists := r.tools[name]; exists {
			return nil, fmt.Errorf("duplicate tool name %q", name)
		}
		r.tools[name] = t
	}
	return r, nil
}

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Names returns all registered tool names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Catalog renders the tool listing injected into the analyst system prompt.
func (r *Registry) Catalog() string {
	var b strings.Builder
	for _, name := range r.Names() {
		fmt.Fprintf(&b, "- %s → %s\n", name, r.tools[name].Description())
	}
	return b.String()
}
