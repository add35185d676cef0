package knownhosts

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeKnownHosts(t *testing.T, lines ...string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "known_hosts")
	content := ""
	for _, l := range lines {
		content += l + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestParseLineSkipsCommentsAndEmptyLines(t *testing.T) {
	t.Parallel()

	_, _, reason, err := parseLine("# a comment")
	require.NoError(t, err)
	require.Equal(t, "comment", reason)

	_, _, reason, err = parseLine("   ")
	require.NoError(t, err)
	require.Equal(t, "empty line", reason)
}

func TestParseLineSkipsHashedEntries(t *testing.T) {
	t.Parallel()

	_, _, reason, err := parseLine("|1|abcd|efgh ssh-rsa AAAA...")
	require.NoError(t, err)
	require.Equal(t, "hashed", reason)
}

func TestParseLineExtractsHostnamesSkipsIPs(t *testing.T) {
	t.Parallel()

	found, skipped, reason, err := parseLine("host1.example.org,10.0.0.1 ssh-rsa AAAA...")
	require.NoError(t, err)
	require.Equal(t, "", reason)
	require.Equal(t, []string{"host1.example.org"}, found)
	require.Equal(t, []string{"10.0.0.1"}, skipped)
}

func TestParseLineRejectsTooFewFields(t *testing.T) {
	t.Parallel()

	_, _, _, err := parseLine("host1.example.org ssh-rsa")
	require.Error(t, err)
}

func TestExecuteFiltersToKnownHosts(t *testing.T) {
	t.Parallel()

	path := writeKnownHosts(t,
		"host1.example.org,host2.example.org ssh-rsa AAAA...",
		"# comment",
		"|1|hash|entry ssh-rsa AAAA...",
		"host3.example.org ssh-ed25519 AAAA...",
	)

	q, err := New(map[string]any{
		"knownhosts": map[string]any{"files": []any{path}},
	})
	require.NoError(t, err)

	hosts, err := q.Execute(context.Background(), "host1.example.org or host4.example.org")
	require.NoError(t, err)
	require.Equal(t, []string{"host1.example.org"}, hosts.Hosts())
}

func TestExecuteSupportsGlobMatching(t *testing.T) {
	t.Parallel()

	path := writeKnownHosts(t, "host1.example.org,host2.example.org ssh-rsa AAAA...")

	q, err := New(map[string]any{
		"knownhosts": map[string]any{"files": []any{path}},
	})
	require.NoError(t, err)

	hosts, err := q.Execute(context.Background(), "host*.example.org")
	require.NoError(t, err)
	require.Equal(t, 2, hosts.Len())
}
