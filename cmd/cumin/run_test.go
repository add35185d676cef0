package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-cumin/cumin/internal/config"
	"github.com/go-cumin/cumin/internal/reporter"
	"github.com/go-cumin/cumin/pkg/cuminerr"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestRunWithNoCommandsIsADryRunPrintingMatchedHosts(t *testing.T) {
	t.Parallel()

	cfgPath := writeConfig(t, "transport: clustershell\n")

	root := newRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs([]string{"--config", cfgPath, "D{host[1-3]}"})

	require.NoError(t, root.Execute())
	require.Contains(t, buf.String(), "host[1-3]")
}

func TestRunRejectsUnknownBackendOverride(t *testing.T) {
	t.Parallel()

	cfgPath := writeConfig(t, "transport: clustershell\n")

	root := newRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs([]string{"--config", cfgPath, "--backend", "nonexistent", "D{host1}"})

	err := root.Execute()
	require.Error(t, err)
}

func TestRunRejectsMissingConfigFile(t *testing.T) {
	t.Parallel()

	root := newRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs([]string{"--config", "/no/such/config.yaml", "D{host1}"})

	err := root.Execute()
	require.Error(t, err)
}

func TestRunRequiresAtLeastAQuery(t *testing.T) {
	t.Parallel()

	root := newRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs([]string{})

	err := root.Execute()
	require.Error(t, err)
}

func TestExitCodeForMapsThresholdFailureToTwo(t *testing.T) {
	t.Parallel()

	err := &exitCodeError{code: 2, err: cuminerr.NewThresholdNotMetError("run", 0.4, 1.0)}
	require.Equal(t, 2, exitCodeFor(err))
}

func TestExitCodeForMapsOtherErrorsToOne(t *testing.T) {
	t.Parallel()

	require.Equal(t, 1, exitCodeFor(errors.New("boom")))
}

func TestExitCodeForMapsNilToZero(t *testing.T) {
	t.Parallel()

	require.Equal(t, 0, exitCodeFor(nil))
}

func TestNewReporterSelectsJSONForJSONOutput(t *testing.T) {
	t.Parallel()

	rep := newReporter("json", &bytes.Buffer{})
	_, ok := rep.(*reporter.JSON)
	require.True(t, ok)
}

func TestNewReporterSelectsQuietForEverythingElse(t *testing.T) {
	t.Parallel()

	rep := newReporter("text", &bytes.Buffer{})
	_, ok := rep.(*reporter.Quiet)
	require.True(t, ok)
}

func TestEnvExportPrefixIsEmptyWithNoVars(t *testing.T) {
	t.Parallel()

	require.Equal(t, "", envExportPrefix(nil))
	require.Equal(t, "", envExportPrefix(map[string]string{}))
}

func TestEnvExportPrefixOrdersKeysAndQuotesValues(t *testing.T) {
	t.Parallel()

	prefix := envExportPrefix(map[string]string{"PATH": "/usr/bin", "LANG": "C"})
	require.Equal(t, "export LANG='C'; export PATH='/usr/bin'; ", prefix)
}

func TestShellQuoteEscapesEmbeddedSingleQuotes(t *testing.T) {
	t.Parallel()

	require.Equal(t, `'it'\''s'`, shellQuote("it's"))
}

func TestApplyConfigDefaultsFillsOnlyUnsetOptions(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{
		Mode:             "async",
		BatchSize:        "25%",
		BatchSleep:       2,
		Timeout:          30,
		GlobalTimeout:    600,
		SuccessThreshold: "0.9",
	}
	opts := runOptions{Mode: "sync"}

	applyConfigDefaults(&opts, cfg)

	require.Equal(t, "sync", opts.Mode, "an explicitly-set CLI flag must not be overridden")
	require.Equal(t, "25%", opts.BatchSize)
	require.Equal(t, 2.0, opts.BatchSleep)
	require.Equal(t, 30.0, opts.Timeout)
	require.Equal(t, 600.0, opts.GlobalTimeout)
	require.Equal(t, "0.9", opts.SuccessThreshold)
}
