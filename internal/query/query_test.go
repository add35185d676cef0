package query

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-cumin/cumin/internal/backend"
	"github.com/go-cumin/cumin/internal/nodeset"
)

// stubBackend evaluates its raw query string as a literal nodeset
// expression, ignoring backend-specific grammar.
type stubBackend struct {
	fail bool
}

func (s stubBackend) Execute(ctx context.Context, raw string) (*nodeset.Set, error) {
	if s.fail {
		return nil, errors.New("parse failed")
	}
	return nodeset.Parse(raw)
}

func TestAliasResolveDetectsCycle(t *testing.T) {
	t.Parallel()

	aliases := NewAliasSet(map[string]string{
		"a": "A:b",
		"b": "A:a",
	})

	visited := map[string]bool{"a": true}
	_, err := aliases.Resolve("a", visited)
	require.Error(t, err)
}

func TestAliasResolveUnknownName(t *testing.T) {
	t.Parallel()

	aliases := NewAliasSet(nil)
	_, err := aliases.Resolve("missing", map[string]bool{})
	require.Error(t, err)
}

func TestGrammarEvaluatesBackendLeaf(t *testing.T) {
	t.Parallel()

	g := NewGrammar(backend.NewRegistry(), map[string]backend.Query{"D": stubBackend{}}, NewAliasSet(nil))
	set, err := g.Evaluate(evalContext{ctx: context.Background()}, "D{host[1-3]}")
	require.NoError(t, err)
	require.Equal(t, 3, set.Len())
}

func TestGrammarEvaluatesBooleanCombination(t *testing.T) {
	t.Parallel()

	g := NewGrammar(backend.NewRegistry(), map[string]backend.Query{"D": stubBackend{}}, NewAliasSet(nil))
	set, err := g.Evaluate(evalContext{ctx: context.Background()}, "D{host[1-5]} and not D{host[3-5]}")
	require.NoError(t, err)
	require.Equal(t, 2, set.Len())
}

func TestGrammarExpandsAlias(t *testing.T) {
	t.Parallel()

	aliases := NewAliasSet(map[string]string{"web": "D{host[1-2]}"})
	g := NewGrammar(backend.NewRegistry(), map[string]backend.Query{"D": stubBackend{}}, aliases)
	set, err := g.Evaluate(evalContext{ctx: context.Background()}, "A:web")
	require.NoError(t, err)
	require.Equal(t, 2, set.Len())
}

// spaceyBackend mimics a backend whose own grammar uses spaces inside
// its query body (e.g. PuppetDB's "C:Class and R:File"), to verify the
// global grammar treats the whole braced body as one leaf.
type spaceyBackend struct{}

func (spaceyBackend) Execute(ctx context.Context, raw string) (*nodeset.Set, error) {
	return nodeset.FromList(strings.Fields(raw)), nil
}

func TestGrammarPreservesSpacesInsideBackendLeafBody(t *testing.T) {
	t.Parallel()

	g := NewGrammar(backend.NewRegistry(), map[string]backend.Query{"P": spaceyBackend{}}, NewAliasSet(nil))
	set, err := g.Evaluate(evalContext{ctx: context.Background()}, "P{host1 host2 host3}")
	require.NoError(t, err)
	require.Equal(t, 3, set.Len())
}

func TestGrammarRejectsUnregisteredPrefix(t *testing.T) {
	t.Parallel()

	g := NewGrammar(backend.NewRegistry(), map[string]backend.Query{}, NewAliasSet(nil))
	_, err := g.Evaluate(evalContext{ctx: context.Background()}, "D{host1}")
	require.Error(t, err)
}

func TestQueryFallsBackToGlobalGrammarWhenDefaultBackendFails(t *testing.T) {
	t.Parallel()

	g := NewGrammar(backend.NewRegistry(), map[string]backend.Query{"D": stubBackend{}}, NewAliasSet(nil))
	q := NewQuery(g, "direct", stubBackend{fail: true})

	set, err := q.Execute(context.Background(), "D{host1,host2}")
	require.NoError(t, err)
	require.Equal(t, 2, set.Len())
}

func TestQueryUsesDefaultBackendFirst(t *testing.T) {
	t.Parallel()

	g := NewGrammar(backend.NewRegistry(), map[string]backend.Query{"D": stubBackend{}}, NewAliasSet(nil))
	q := NewQuery(g, "direct", stubBackend{})

	set, err := q.Execute(context.Background(), "host1,host2,host3")
	require.NoError(t, err)
	require.Equal(t, 3, set.Len())
}

func TestQueryWithoutDefaultBackendUsesGlobalGrammarOnly(t *testing.T) {
	t.Parallel()

	g := NewGrammar(backend.NewRegistry(), map[string]backend.Query{"D": stubBackend{}}, NewAliasSet(nil))
	q := NewQuery(g, "", nil)

	set, err := q.Execute(context.Background(), "D{host1}")
	require.NoError(t, err)
	require.Equal(t, 1, set.Len())
}
