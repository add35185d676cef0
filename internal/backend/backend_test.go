package backend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-cumin/cumin/internal/nodeset"
)

type stubQuery struct{}

func (stubQuery) Execute(ctx context.Context, raw string) (*nodeset.Set, error) {
	return nodeset.New(), nil
}

func TestRegisterRejectsDuplicatePrefix(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	factory := func(map[string]any) (Query, error) { return stubQuery{}, nil }

	require.NoError(t, r.Register("D", "direct", factory))
	err := r.Register("D", "direct-again", factory)
	require.Error(t, err)
}

func TestRegisterRejectsAliasPrefix(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	err := r.Register("A", "alias-backend", func(map[string]any) (Query, error) { return stubQuery{}, nil })
	require.Error(t, err)
}

func TestLookupAndNameFor(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	require.NoError(t, r.Register("D", "direct", func(map[string]any) (Query, error) { return stubQuery{}, nil }))

	factory, ok := r.Lookup("D")
	require.True(t, ok)
	require.NotNil(t, factory)

	name, ok := r.NameFor("D")
	require.True(t, ok)
	require.Equal(t, "direct", name)

	prefix, ok := r.PrefixForName("direct")
	require.True(t, ok)
	require.Equal(t, "D", prefix)
}

func TestPrefixesSorted(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	require.NoError(t, r.Register("P", "puppetdb", func(map[string]any) (Query, error) { return stubQuery{}, nil }))
	require.NoError(t, r.Register("D", "direct", func(map[string]any) (Query, error) { return stubQuery{}, nil }))

	require.Equal(t, []string{"D", "P"}, r.Prefixes())
}
