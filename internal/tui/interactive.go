package tui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/go-cumin/cumin/internal/state"
	"github.com/go-cumin/cumin/pkg/diff"
)

// RerunFunc re-executes the given cohort of hosts against the run's
// original commands, returning a fresh ExecutionResult. It never
// re-enters the original Run call's goroutines; it is expected to
// build an independent target+executor invocation.
type RerunFunc func(ctx context.Context, hosts []string) (ExecutionResult, error)

// RunInteractiveShell launches the C16 post-run prompt over result,
// blocking until the user quits. It operates purely on the supplied
// ExecutionResult (and whatever a RerunFunc hands back); it never
// touches the executor's concurrency machinery directly.
func RunInteractiveShell(ctx context.Context, result ExecutionResult, rerun RerunFunc) error {
	m := newShellModel(ctx, result, rerun)
	_, err := tea.NewProgram(m).Run()
	return err
}

type shellFilter int

const (
	filterAll shellFilter = iota
	filterSuccess
	filterFailed
)

func (f shellFilter) String() string {
	switch f {
	case filterSuccess:
		return "success"
	case filterFailed:
		return "failed"
	default:
		return "all"
	}
}

type hostItem struct {
	host string
	st   state.NodeState
}

func (i hostItem) FilterValue() string { return i.host }
func (i hostItem) Title() string       { return fmt.Sprintf("%s %s", statusIcon(i.st), i.host) }
func (i hostItem) Description() string { return i.st.String() }

type hostItemDelegate struct{}

func (hostItemDelegate) Height() int                             { return 2 }
func (hostItemDelegate) Spacing() int                            { return 0 }
func (hostItemDelegate) Update(tea.Msg, *list.Model) tea.Cmd     { return nil }
func (hostItemDelegate) Render(w io.Writer, m list.Model, index int, it list.Item) {
	item, ok := it.(hostItem)
	if !ok {
		return
	}
	style := lipgloss.NewStyle()
	if index == m.Index() {
		style = style.Bold(true)
	}
	fmt.Fprintf(w, "%s\n  %s", style.Render(item.Title()), item.Description())
}

type shellModel struct {
	ctx    context.Context
	result ExecutionResult
	rerun  RerunFunc

	filter  shellFilter
	list    list.Model
	compare [2]string // hosts marked for diff, "" when unset

	diffView string
	err      error
	rerunning bool
}

func newShellModel(ctx context.Context, result ExecutionResult, rerun RerunFunc) shellModel {
	m := shellModel{ctx: ctx, result: result, rerun: rerun}
	m.list = buildHostList(result, filterAll)
	return m
}

func buildHostList(result ExecutionResult, filter shellFilter) list.Model {
	var hosts []string
	switch filter {
	case filterSuccess:
		hosts = result.HostsInState(state.Success)
	case filterFailed:
		hosts = result.FailedHosts()
	default:
		hosts = result.Hosts
	}

	items := make([]list.Item, len(hosts))
	for i, h := range hosts {
		items[i] = hostItem{host: h, st: result.States[h]}
	}

	l := list.New(items, hostItemDelegate{}, 50, 14)
	l.Title = fmt.Sprintf("%s (%s)", result.CommandText, filter)
	l.SetShowHelp(false)
	return l
}

func (m shellModel) Init() tea.Cmd {
	return nil
}

type rerunFinishedMsg struct {
	result ExecutionResult
	err    error
}

func (m shellModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			if m.diffView != "" {
				m.diffView = ""
				return m, nil
			}
			return m, tea.Quit

		case "a":
			m.filter = filterAll
			m.list = buildHostList(m.result, m.filter)
			return m, nil

		case "s":
			m.filter = filterSuccess
			m.list = buildHostList(m.result, m.filter)
			return m, nil

		case "f":
			m.filter = filterFailed
			m.list = buildHostList(m.result, m.filter)
			return m, nil

		case "d":
			return m.markForDiff()

		case "r":
			return m.triggerRerun()
		}

	case rerunFinishedMsg:
		m.rerunning = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.result = msg.result
		m.list = buildHostList(m.result, m.filter)
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m shellModel) markForDiff() (tea.Model, tea.Cmd) {
	item, ok := m.list.SelectedItem().(hostItem)
	if !ok {
		return m, nil
	}
	if m.compare[0] == "" || m.compare[0] == item.host {
		m.compare[0] = item.host
		return m, nil
	}
	m.compare[1] = item.host
	left := []byte(m.result.Outputs[m.compare[0]])
	right := []byte(m.result.Outputs[m.compare[1]])
	out := diff.GenerateUnifiedDiff(left, right, m.compare[0], m.compare[1])
	if out == "" {
		out = "(outputs are identical)"
	}
	m.diffView = out
	m.compare = [2]string{}
	return m, nil
}

func (m shellModel) triggerRerun() (tea.Model, tea.Cmd) {
	if m.rerun == nil || m.rerunning {
		return m, nil
	}
	failed := m.result.FailedHosts()
	if len(failed) == 0 {
		return m, nil
	}
	m.rerunning = true
	rerun := m.rerun
	ctx := m.ctx
	return m, func() tea.Msg {
		res, err := rerun(ctx, failed)
		return rerunFinishedMsg{result: res, err: err}
	}
}

func (m shellModel) View() string {
	if m.diffView != "" {
		return titleStyle.Render("diff") + "\n" + m.diffView + "\n" + helpStyle.Render("esc to go back")
	}

	var b strings.Builder
	b.WriteString(m.list.View())
	b.WriteString("\n")
	if m.rerunning {
		b.WriteString(helpStyle.Render("re-running failed cohort...\n"))
	}
	if m.err != nil {
		b.WriteString(failureStyle.Render(m.err.Error()) + "\n")
	}
	b.WriteString(helpStyle.Render("[a] all  [s] success  [f] failed  [d] mark/diff  [r] re-run failed  [q] quit"))
	return b.String()
}
