// Package backend defines the contract every target-selection backend
// implements, and an explicit registry that binds a single-letter
// grammar prefix (e.g. "P" for PuppetDB) to a constructor for that
// backend's Query implementation.
//
// The registry is deliberately a value threaded through construction
// rather than a package-level mutable table, mirroring the corrected
// (non-legacy) plugin-registry pattern: duplicate prefixes are
// rejected at Register time instead of silently overwriting an
// existing binding.
package backend

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-cumin/cumin/internal/nodeset"
)

// Query resolves a backend-local query string into a NodeSet.
type Query interface {
	// Execute parses and evaluates raw against the backend's own
	// grammar, returning the matching hosts.
	Execute(ctx context.Context, raw string) (*nodeset.Set, error)
}

// Factory constructs a new Query instance bound to the given
// configuration section for this backend. A fresh instance is built
// per top-level query execution so that per-query state (e.g.
// PuppetDB's accumulated endpoint choice) never leaks across queries.
type Factory func(config map[string]any) (Query, error)

// Registry binds grammar prefixes to backend factories.
type Registry struct {
	entries map[string]registered
}

type registered struct {
	name    string
	factory Factory
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]registered)}
}

// Register binds prefix to name/factory. It returns an error if prefix
// is already bound, or if prefix is the single letter "A" which is
// reserved for alias references by the global grammar.
func (r *Registry) Register(prefix, name string, factory Factory) error {
	if prefix == "A" {
		return fmt.Errorf("backend: prefix %q is reserved for alias references", prefix)
	}
	if _, exists := r.entries[prefix]; exists {
		return fmt.Errorf("backend: prefix %q is already registered to %q", prefix, r.entries[prefix].name)
	}
	r.entries[prefix] = registered{name: name, factory: factory}
	return nil
}

// Lookup returns the factory bound to prefix, if any.
func (r *Registry) Lookup(prefix string) (Factory, bool) {
	entry, ok := r.entries[prefix]
	if !ok {
		return nil, false
	}
	return entry.factory, true
}

// Prefixes returns every registered prefix in sorted order, used by
// the grammar tokenizer to recognize backend-query tokens.
func (r *Registry) Prefixes() []string {
	out := make([]string, 0, len(r.entries))
	for p := range r.entries {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// NameFor returns the human-readable backend name bound to prefix, for
// error messages and the default-backend shortcut.
func (r *Registry) NameFor(prefix string) (string, bool) {
	entry, ok := r.entries[prefix]
	return entry.name, ok
}

// PrefixForName returns the grammar prefix bound to the given backend
// name, used to resolve the configured default_backend.
func (r *Registry) PrefixForName(name string) (string, bool) {
	for prefix, entry := range r.entries {
		if entry.name == name {
			return prefix, true
		}
	}
	return "", false
}
