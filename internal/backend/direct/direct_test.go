package direct

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExecuteSimpleSelection(t *testing.T) {
	t.Parallel()

	q, err := New(nil)
	require.NoError(t, err)

	hosts, err := q.Execute(context.Background(), "host1.domain")
	require.NoError(t, err)
	require.Equal(t, []string{"host1.domain"}, hosts.Hosts())
}

func TestExecuteComplexBooleanSelection(t *testing.T) {
	t.Parallel()

	q, err := New(nil)
	require.NoError(t, err)

	hosts, err := q.Execute(context.Background(),
		"host100[1-5].domain or (host10[30-40].domain and (host10[10-42].domain and not host33.domain))")
	require.NoError(t, err)
	require.Equal(t, 16, hosts.Len())
}
