package command

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewDefaultsOKCodesToZero(t *testing.T) {
	t.Parallel()

	c, err := New("uptime")
	require.NoError(t, err)
	require.Equal(t, []int{0}, c.OKCodes())
	require.True(t, c.Accepts(0))
	require.False(t, c.Accepts(1))
}

func TestNewRejectsEmptyText(t *testing.T) {
	t.Parallel()

	_, err := New("")
	require.Error(t, err)
}

func TestWithTimeoutRejectsNonPositive(t *testing.T) {
	t.Parallel()

	_, err := New("uptime", WithTimeout(0))
	require.Error(t, err)

	_, err = New("uptime", WithTimeout(-time.Second))
	require.Error(t, err)
}

func TestWithOKCodesEmptyMeansAnyCodeSucceeds(t *testing.T) {
	t.Parallel()

	c, err := New("uptime", WithOKCodes([]int{}))
	require.NoError(t, err)
	require.True(t, c.Accepts(0))
	require.True(t, c.Accepts(137))
}

func TestWithOKCodesRejectsOutOfRange(t *testing.T) {
	t.Parallel()

	_, err := New("uptime", WithOKCodes([]int{256}))
	require.Error(t, err)

	_, err = New("uptime", WithOKCodes([]int{-1}))
	require.Error(t, err)
}

func TestIgnoreExitCodesRelaxesAcceptance(t *testing.T) {
	t.Parallel()

	c, err := New("uptime", WithOKCodes([]int{0, 1}))
	require.NoError(t, err)
	require.False(t, c.Accepts(2))

	relaxed := c.IgnoreExitCodes()
	require.True(t, relaxed.Accepts(2))
}
