package boolexpr

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-cumin/cumin/internal/nodeset"
)

func eval(leaf string) (*nodeset.Set, error) {
	return nodeset.Parse(leaf)
}

func TestEvaluateSingleLeaf(t *testing.T) {
	t.Parallel()

	s, err := Evaluate("host1.dom", eval)
	require.NoError(t, err)
	require.Equal(t, []string{"host1.dom"}, s.Hosts())
}

func TestEvaluateOr(t *testing.T) {
	t.Parallel()

	s, err := Evaluate("host1.dom or host2.dom", eval)
	require.NoError(t, err)
	require.Equal(t, 2, s.Len())
}

func TestEvaluateAndNot(t *testing.T) {
	t.Parallel()

	s, err := Evaluate("host[1-5].dom and not host3.dom", eval)
	require.NoError(t, err)
	require.False(t, s.Contains("host3.dom"))
	require.Equal(t, 4, s.Len())
}

func TestEvaluateXor(t *testing.T) {
	t.Parallel()

	s, err := Evaluate("host[1-5].dom xor host[4-8].dom", eval)
	require.NoError(t, err)
	require.Equal(t, 6, s.Len())
}

func TestEvaluateParentheses(t *testing.T) {
	t.Parallel()

	s, err := Evaluate("host1.dom or (host2.dom and host3.dom)", eval)
	require.NoError(t, err)
	require.Equal(t, 1, s.Len())
}

func TestEvaluateRejectsUnbalancedParens(t *testing.T) {
	t.Parallel()

	_, err := Evaluate("(host1.dom", eval)
	require.Error(t, err)
}

func TestEvaluateRejectsEmpty(t *testing.T) {
	t.Parallel()

	_, err := Evaluate("", eval)
	require.Error(t, err)
}
