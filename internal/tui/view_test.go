package tui

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-cumin/cumin/internal/state"
)

func TestViewRendersHostCounts(t *testing.T) {
	m := NewModel()
	updated, _ := m.Update(runStartedMsg{hosts: []string{"a", "b", "c"}, totalCommands: 1})
	m = updated.(Model)
	updated, _ = m.Update(commandStartedMsg{index: 0, text: "uptime"})
	m = updated.(Model)
	updated, _ = m.Update(hostFinishedMsg{host: "a", commandIndex: 0, exitCode: 0, newState: state.Success})
	m = updated.(Model)
	updated, _ = m.Update(hostFinishedMsg{host: "b", commandIndex: 0, exitCode: 1, newState: state.Failed})
	m = updated.(Model)

	view := m.View()
	require.Contains(t, view, "uptime")
	require.Contains(t, view, "3 host(s)")
	require.Contains(t, view, "ctrl+c to abort")
}

func TestViewShowsExitCodeWhenFinished(t *testing.T) {
	m := NewModel()
	updated, _ := m.Update(runFinishedMsg{exitCode: 2, successCount: 1, totalCount: 2})
	m = updated.(Model)

	view := m.View()
	require.Contains(t, view, "exit code 2")
}

func TestStatusIconVariesByState(t *testing.T) {
	require.Contains(t, statusIcon(state.Success), "✓")
	require.Contains(t, statusIcon(state.Running), "⏳")
	require.Contains(t, statusIcon(state.Failed), "✗")
	require.Contains(t, statusIcon(state.Pending), "…")
}
