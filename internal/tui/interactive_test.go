package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/go-cumin/cumin/internal/state"
)

func key(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func sampleResult() ExecutionResult {
	return ExecutionResult{
		Hosts:   []string{"a", "b"},
		States:  map[string]state.NodeState{"a": state.Success, "b": state.Failed},
		Outputs: map[string]string{"a": "ok\n", "b": "fail\n"},
	}
}

func TestShellFilterKeysRebuildList(t *testing.T) {
	m := newShellModel(context.Background(), sampleResult(), nil)

	updated, _ := m.Update(key('f'))
	m = updated.(shellModel)
	require.Equal(t, filterFailed, m.filter)
	require.Equal(t, 1, len(m.list.Items()))

	updated, _ = m.Update(key('a'))
	m = updated.(shellModel)
	require.Equal(t, filterAll, m.filter)
	require.Equal(t, 2, len(m.list.Items()))
}

func TestShellRerunCallsBackAndUpdatesResult(t *testing.T) {
	called := false
	rerun := func(ctx context.Context, hosts []string) (ExecutionResult, error) {
		called = true
		require.Equal(t, []string{"b"}, hosts)
		return ExecutionResult{Hosts: []string{"b"}, States: map[string]state.NodeState{"b": state.Success}}, nil
	}
	m := newShellModel(context.Background(), sampleResult(), rerun)

	updated, cmd := m.Update(key('r'))
	m = updated.(shellModel)
	require.True(t, m.rerunning)
	require.NotNil(t, cmd)

	msg := cmd()
	updated, _ = m.Update(msg)
	m = updated.(shellModel)

	require.True(t, called)
	require.False(t, m.rerunning)
	require.Equal(t, state.Success, m.result.States["b"])
}

func TestShellRerunNoopWhenNothingFailed(t *testing.T) {
	calls := 0
	rerun := func(ctx context.Context, hosts []string) (ExecutionResult, error) {
		calls++
		return ExecutionResult{}, nil
	}
	result := ExecutionResult{Hosts: []string{"a"}, States: map[string]state.NodeState{"a": state.Success}}
	m := newShellModel(context.Background(), result, rerun)

	_, cmd := m.Update(key('r'))
	require.Nil(t, cmd)
	require.Equal(t, 0, calls)
}

func TestShellQuitsOnCtrlC(t *testing.T) {
	m := newShellModel(context.Background(), sampleResult(), nil)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
}

func TestExecutionResultHostsInState(t *testing.T) {
	r := sampleResult()
	require.Equal(t, []string{"a"}, r.HostsInState(state.Success))
	require.Equal(t, []string{"b"}, r.FailedHosts())
}
