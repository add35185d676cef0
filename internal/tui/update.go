package tui

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/go-cumin/cumin/internal/state"
)

// Update handles bubbletea messages, including the Reporter-sourced
// messages defined in reporter.go.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.finished = true
			return m, tea.Quit
		}
		return m, nil

	case runStartedMsg:
		m.hosts = append([]string(nil), msg.hosts...)
		m.totalHosts = len(msg.hosts)
		m.totalCommands = msg.totalCommands
		for _, h := range m.hosts {
			m.states[h] = state.Pending
		}
		return m, nil

	case commandStartedMsg:
		m.commandIndex = msg.index
		m.commandText = msg.text
		for _, h := range m.hosts {
			if m.states[h] == state.Success {
				m.states[h] = state.Pending
			}
		}
		return m, nil

	case hostStartedMsg:
		m.ensureHost(msg.host)
		m.states[msg.host] = state.Running
		return m, nil

	case hostOutputMsg:
		m.ensureHost(msg.host)
		m.outputs[msg.host] = append(m.outputs[msg.host], msg.chunk...)
		return m, nil

	case hostFinishedMsg:
		m.ensureHost(msg.host)
		m.states[msg.host] = msg.newState
		return m, nil

	case commandFinishedMsg:
		m.finishedCommands++
		m.lastSuccessCount = msg.successCount
		m.lastTotalCount = msg.totalCount
		m.lastRatio = msg.successRatio
		m.lastThreshold = msg.threshold
		return m, nil

	case globalTimeoutMsg:
		m.globalTimedOut = true
		m.timedOutPending = msg.pendingOrRunning
		return m, nil

	case runFinishedMsg:
		m.finished = true
		m.exitCode = msg.exitCode
		m.overallSuccess = msg.successCount
		m.overallTotal = msg.totalCount
		return m, tea.Quit
	}

	return m, nil
}
