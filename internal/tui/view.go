package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/go-cumin/cumin/internal/state"
)

// View renders the current progress of the run: a title line, the
// current command, one count line for each host state that has hosts,
// and a per-command summary once at least one command has finished.
func (m Model) View() string {
	var sections []string

	title := fmt.Sprintf("%s cumin run • %d host(s)", m.spin.View(), m.totalHosts)
	sections = append(sections, titleStyle.Render(title))

	if m.commandText != "" {
		sections = append(sections, fmt.Sprintf("command %d/%d: %s", m.commandIndex+1, m.totalCommands, m.commandText))
	}

	sections = append(sections, sectionStyle.Render("Hosts"), m.renderBars())

	if m.finishedCommands > 0 {
		summary := fmt.Sprintf("%d/%d (%.0f%%) succeeded (>= %.0f%% threshold)",
			m.lastSuccessCount, m.lastTotalCount, m.lastRatio*100, m.lastThreshold*100)
		style := successStyle
		if m.lastRatio < m.lastThreshold {
			style = failureStyle
		}
		sections = append(sections, summaryStyle.Render(style.Render(summary)))
	}

	if m.globalTimedOut {
		sections = append(sections, failureStyle.Render(fmt.Sprintf("global timeout: %d host(s) still pending", m.timedOutPending)))
	}

	if m.finished {
		sections = append(sections, helpStyle.Render("run finished, exit code "+fmt.Sprint(m.exitCode)))
	} else {
		sections = append(sections, helpStyle.Render("ctrl+c to abort"))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderBars() string {
	counts := map[state.NodeState]int{}
	for _, h := range m.hosts {
		counts[m.states[h]]++
	}

	order := []state.NodeState{state.Success, state.Running, state.Scheduled, state.Pending, state.Failed, state.Timeout}

	var lines []string
	for _, st := range order {
		n := counts[st]
		if n == 0 {
			continue
		}
		lines = append(lines, fmt.Sprintf("  %s %s (%d)", statusIcon(st), st, n))
	}
	return strings.Join(lines, "\n")
}

func statusIcon(st state.NodeState) string {
	switch st {
	case state.Success:
		return successStyle.Render("✓")
	case state.Running, state.Scheduled:
		return runningStyle.Render("⏳")
	case state.Failed, state.Timeout:
		return failureStyle.Render("✗")
	default:
		return pendingStyle.Render("…")
	}
}
