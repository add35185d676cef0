package main

import (
	"fmt"

	"github.com/go-cumin/cumin/internal/backend"
	"github.com/go-cumin/cumin/internal/backend/direct"
	"github.com/go-cumin/cumin/internal/backend/knownhosts"
	"github.com/go-cumin/cumin/internal/backend/openstack"
	"github.com/go-cumin/cumin/internal/backend/puppetdb"
	"github.com/go-cumin/cumin/internal/logger"
)

// newRegistry builds the backend.Registry binding every built-in
// backend to its grammar prefix, mirroring the original project's
// pkgutil-based backend discovery with an explicit static list since Go
// has no dynamic module import.
func newRegistry() *backend.Registry {
	reg := backend.NewRegistry()

	_ = reg.Register(direct.GrammarPrefix, direct.Name, func(cfg map[string]any) (backend.Query, error) {
		return direct.New(cfg)
	})
	_ = reg.Register(knownhosts.GrammarPrefix, knownhosts.Name, func(cfg map[string]any) (backend.Query, error) {
		return knownhosts.New(cfg)
	})
	_ = reg.Register(puppetdb.GrammarPrefix, puppetdb.Name, func(cfg map[string]any) (backend.Query, error) {
		return puppetdb.New(cfg)
	})
	_ = reg.Register(openstack.GrammarPrefix, openstack.Name, func(cfg map[string]any) (backend.Query, error) {
		return openstack.New(cfg)
	})

	return reg
}

// buildBackends constructs one Query instance per registered prefix
// from section, for use as the global grammar's leaf dispatch table.
func buildBackends(reg *backend.Registry, section map[string]any, log *logger.Logger) (map[string]backend.Query, error) {
	section["__logger"] = log

	backends := make(map[string]backend.Query, len(reg.Prefixes()))
	for _, prefix := range reg.Prefixes() {
		factory, _ := reg.Lookup(prefix)
		q, err := factory(section)
		if err != nil {
			name, _ := reg.NameFor(prefix)
			return nil, fmt.Errorf("constructing backend %q: %w", name, err)
		}
		backends[prefix] = q
	}
	return backends, nil
}

// defaultQueryFor resolves the configured default_backend prefix to a
// constructed backend.Query, or nil if no default is configured,
// mirroring query.py's optional default-backend shortcut.
func defaultQueryFor(defaultBackend string, backends map[string]backend.Query) backend.Query {
	if defaultBackend == "" {
		return nil
	}
	return backends[defaultBackend]
}
