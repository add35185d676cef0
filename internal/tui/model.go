// Package tui renders a Cumin run's progress live as a bubbletea
// program, and offers a minimal post-run prompt over the finished
// ExecutionResult.
//
// Grounded on the teacher's internal/tui (Model/Update/View loop,
// lipgloss styling conventions) and cmd/streamy/apply.go's
// program.Run-in-a-goroutine-plus-done-channel wiring; the progress
// display is grounded on cumin/transports/clustershell.py's
// tqdm-based ProgressBars, rendered here as a count of hosts in each
// state rather than as bars over a generic step list.
package tui

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/go-cumin/cumin/internal/state"
)

// Model is the bubbletea model backing the live progress view. It is
// fed exclusively through Reporter events translated into messages by
// Reporter (see reporter.go); it never calls into the executor itself.
type Model struct {
	hosts         []string
	totalHosts    int
	totalCommands int

	commandIndex int
	commandText  string

	states  map[string]state.NodeState
	outputs map[string][]byte

	finishedCommands int
	lastSuccessCount int
	lastTotalCount   int
	lastRatio        float64
	lastThreshold    float64

	exitCode        int
	overallSuccess  int
	overallTotal    int
	globalTimedOut  bool
	timedOutPending int

	finished bool
	spin     spinner.Model
}

// NewModel constructs an empty progress Model.
func NewModel() Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle

	return Model{
		states:  make(map[string]state.NodeState),
		outputs: make(map[string][]byte),
		spin:    s,
	}
}

// Init starts the spinner ticking.
func (m Model) Init() tea.Cmd {
	return m.spin.Tick
}

// Result converts the terminal Model state into an ExecutionResult,
// for the post-run interactive shell to operate on.
func (m Model) Result() ExecutionResult {
	outputs := make(map[string]string, len(m.outputs))
	for host, chunk := range m.outputs {
		outputs[host] = string(chunk)
	}
	states := make(map[string]state.NodeState, len(m.states))
	for host, st := range m.states {
		states[host] = st
	}
	return ExecutionResult{
		Hosts:        append([]string(nil), m.hosts...),
		States:       states,
		Outputs:      outputs,
		CommandText:  m.commandText,
		SuccessCount: m.overallSuccess,
		TotalCount:   m.overallTotal,
		ExitCode:     m.exitCode,
	}
}

func (m *Model) ensureHost(host string) {
	if _, ok := m.states[host]; !ok {
		m.states[host] = state.Pending
		m.hosts = append(m.hosts, host)
	}
}
