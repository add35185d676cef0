package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type logEntry map[string]any

func TestLoggerInfoWithFields(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log, err := New(Options{Level: "info", HumanReadable: false, Writer: buf})
	require.NoError(t, err)

	log = log.WithFields(map[string]any{"host": "db1001.example.org", "command": "uptime"})
	log.Info("dispatching command")

	var entry logEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "dispatching command", entry["message"])
	require.Equal(t, "db1001.example.org", entry["host"])
	require.Equal(t, "uptime", entry["command"])
	require.Equal(t, "info", entry["level"])
}

func TestLoggerDebugRespectsLevel(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log, err := New(Options{Level: "info", HumanReadable: false, Writer: buf})
	require.NoError(t, err)

	log.Debug("this should not appear")
	require.Equal(t, "", strings.TrimSpace(buf.String()))
}

func TestLoggerTraceRequiresTraceLevel(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log, err := New(Options{Level: "debug", HumanReadable: false, Writer: buf})
	require.NoError(t, err)

	log.Trace("token dump: {hosts: [...]}")
	require.Equal(t, "", strings.TrimSpace(buf.String()))

	buf.Reset()
	log, err = New(Options{Level: "trace", HumanReadable: false, Writer: buf})
	require.NoError(t, err)

	log.Trace("token dump: {hosts: [...]}")
	require.NotEqual(t, "", strings.TrimSpace(buf.String()))
}

func TestLoggerErrorIncludesContext(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log, err := New(Options{Level: "debug", HumanReadable: false, Writer: buf})
	require.NoError(t, err)

	log = log.WithFields(map[string]any{"backend": "puppetdb"})
	log.Error(errors.New("boom"), "query failed")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry logEntry
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	require.Equal(t, "query failed", entry["message"])
	require.Equal(t, "puppetdb", entry["backend"])
	require.Equal(t, "boom", entry["error"])
}
