// Package query implements Cumin's global, multi-backend query
// grammar: boolean combinations of backend-scoped leaves
// ("D{host1,host2}", "P{F:service=foo}") and alias references
// ("A:webservers"), layered on top of the shared internal/query/
// boolexpr combinator grammar every backend-local grammar also uses.
//
// A backend-scoped leaf is "PREFIX{payload}" with no colon between the
// prefix and its brace-delimited payload; only the alias form "A:name"
// keeps a colon.
//
// Grounded on the original project's grammar.py (global grammar
// construction from registered backend prefixes) and query.py's
// _parse_token/_replace_alias (alias substitution with recursive
// expansion).
package query

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-cumin/cumin/internal/backend"
	"github.com/go-cumin/cumin/internal/nodeset"
	"github.com/go-cumin/cumin/internal/query/boolexpr"
	"github.com/go-cumin/cumin/pkg/cuminerr"
)

// leafPattern matches a single backend-scoped leaf: a registered
// prefix letter, a brace-delimited query body.
var leafPattern = regexp.MustCompile(`^([A-Z])\{(.*)\}$`)

// aliasPattern matches an alias reference leaf.
var aliasPattern = regexp.MustCompile(`^A:([A-Za-z0-9_.-]+)$`)

// Grammar evaluates a raw global-grammar query string into a Set,
// dispatching each leaf to its registered backend or expanding it as
// an alias.
type Grammar struct {
	registry *backend.Registry
	backends map[string]backend.Query // prefix -> constructed Query
	aliases  *AliasSet
}

// NewGrammar constructs a Grammar bound to reg's registered backends
// (each already constructed with its configuration) and the given
// alias set.
func NewGrammar(reg *backend.Registry, backends map[string]backend.Query, aliases *AliasSet) *Grammar {
	return &Grammar{registry: reg, backends: backends, aliases: aliases}
}

// Evaluate parses and evaluates raw against the global grammar.
func (g *Grammar) Evaluate(ctx evalContext, raw string) (*nodeset.Set, error) {
	leaf := func(token string) (*nodeset.Set, error) {
		return g.evalLeaf(ctx, token)
	}
	set, err := boolexpr.Evaluate(maskBraces(raw), leaf)
	if err != nil {
		return nil, cuminerr.NewInvalidQueryError(raw, err.Error(), err)
	}
	return set, nil
}

// maskBraces replaces whitespace inside "{...}" spans with a
// placeholder byte so the shared boolexpr tokenizer (which splits on
// whitespace) treats a whole "PREFIX{backend-specific query}" leaf as
// a single token even when the backend's own grammar uses spaces, e.g.
// a PuppetDB sub-query like "P{C:Class and R:File}".
func maskBraces(raw string) string {
	var b strings.Builder
	depth := 0
	for _, r := range raw {
		switch {
		case r == '{':
			depth++
			b.WriteRune(r)
		case r == '}':
			if depth > 0 {
				depth--
			}
			b.WriteRune(r)
		case depth > 0 && r == ' ':
			b.WriteRune('\x00')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (g *Grammar) evalLeaf(ctx evalContext, token string) (*nodeset.Set, error) {
	token = strings.ReplaceAll(strings.TrimSpace(token), "\x00", " ")

	if m := aliasPattern.FindStringSubmatch(token); m != nil {
		return g.evalAlias(ctx, m[1])
	}

	if m := leafPattern.FindStringSubmatch(token); m != nil {
		prefix, body := m[1], m[2]
		q, ok := g.backends[prefix]
		if !ok {
			return nil, fmt.Errorf("no backend registered for prefix %q, known prefixes: %v", prefix, g.registry.Prefixes())
		}
		return q.Execute(ctx.ctx, body)
	}

	return nil, fmt.Errorf("unrecognized leaf %q, expected PREFIX{query} or A:alias", token)
}

func (g *Grammar) evalAlias(ctx evalContext, name string) (*nodeset.Set, error) {
	visited := ctx.visited
	if visited == nil {
		visited = map[string]bool{}
	}
	expansion, err := g.aliases.Resolve(name, visited)
	if err != nil {
		return nil, err
	}

	nextVisited := make(map[string]bool, len(visited)+1)
	for k := range visited {
		nextVisited[k] = true
	}
	nextVisited[name] = true

	leaf := func(token string) (*nodeset.Set, error) {
		return g.evalLeaf(evalContext{ctx: ctx.ctx, visited: nextVisited}, token)
	}
	return boolexpr.Evaluate(maskBraces(expansion), leaf)
}
