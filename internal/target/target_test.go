package target

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func hostList(n int) []string {
	hosts := make([]string, n)
	for i := range hosts {
		hosts[i] = "host" + string(rune('a'+i))
	}
	return hosts
}

func TestNewDefaultsBatchSizeToHostCount(t *testing.T) {
	t.Parallel()

	tg, err := New(hostList(5))
	require.NoError(t, err)
	require.Equal(t, 5, tg.BatchSize())
	require.Equal(t, tg.Hosts(), tg.FirstBatch())
}

func TestNewRejectsEmptyHosts(t *testing.T) {
	t.Parallel()

	_, err := New(nil)
	require.Error(t, err)
}

func TestWithBatchSizeClampsToHostCount(t *testing.T) {
	t.Parallel()

	tg, err := New(hostList(3), WithBatchSize(100))
	require.NoError(t, err)
	require.Equal(t, 3, tg.BatchSize())
}

func TestWithBatchSizeRatioUsesCeilNotRound(t *testing.T) {
	t.Parallel()

	// 10 hosts, ratio 0.21 -> 2.1 -> ceil -> 3, not round-to-2.
	tg, err := New(hostList(10), WithBatchSizeRatio(0.21))
	require.NoError(t, err)
	require.Equal(t, 3, tg.BatchSize())
}

func TestWithBatchSizeRatioMinimumOne(t *testing.T) {
	t.Parallel()

	tg, err := New(hostList(10), WithBatchSizeRatio(0.01))
	require.NoError(t, err)
	require.Equal(t, 1, tg.BatchSize())
}

func TestBatchSizeAndRatioAreMutuallyExclusive(t *testing.T) {
	t.Parallel()

	_, err := New(hostList(4), WithBatchSize(2), WithBatchSizeRatio(0.5))
	require.Error(t, err)
}

func TestWithBatchSleepRejectsNegative(t *testing.T) {
	t.Parallel()

	_, err := New(hostList(2), WithBatchSleep(-time.Second))
	require.Error(t, err)
}

func TestFirstBatchSlicesToBatchSize(t *testing.T) {
	t.Parallel()

	tg, err := New(hostList(5), WithBatchSize(2))
	require.NoError(t, err)
	require.Equal(t, []string{"hosta", "hostb"}, tg.FirstBatch())
}
