package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/go-cumin/cumin/internal/state"
)

// Reporter adapts executor run events into bubbletea messages sent to
// a running Program, so the live progress Model never touches the
// executor or transport directly.
type Reporter struct {
	prog *tea.Program
}

// NewReporter constructs a Reporter that forwards every event to prog.
func NewReporter(prog *tea.Program) *Reporter {
	return &Reporter{prog: prog}
}

type runStartedMsg struct {
	hosts         []string
	totalCommands int
}

type commandStartedMsg struct {
	index int
	text  string
}

type hostStartedMsg struct {
	host         string
	commandIndex int
}

type hostOutputMsg struct {
	host         string
	commandIndex int
	chunk        []byte
}

type hostFinishedMsg struct {
	host         string
	commandIndex int
	exitCode     int
	newState     state.NodeState
}

type commandFinishedMsg struct {
	index                    int
	text                     string
	successCount, totalCount int
	successRatio, threshold  float64
}

type runFinishedMsg struct {
	exitCode                 int
	successCount, totalCount int
}

type globalTimeoutMsg struct {
	pendingOrRunning int
}

func (r *Reporter) RunStarted(hosts []string, totalCommands int) {
	r.prog.Send(runStartedMsg{hosts: hosts, totalCommands: totalCommands})
}

func (r *Reporter) CommandStarted(commandIndex int, commandText string) {
	r.prog.Send(commandStartedMsg{index: commandIndex, text: commandText})
}

func (r *Reporter) HostStarted(host string, commandIndex int) {
	r.prog.Send(hostStartedMsg{host: host, commandIndex: commandIndex})
}

func (r *Reporter) HostOutput(host string, commandIndex int, chunk []byte, _ bool) {
	r.prog.Send(hostOutputMsg{host: host, commandIndex: commandIndex, chunk: chunk})
}

func (r *Reporter) HostFinished(host string, commandIndex int, exitCode int, newState state.NodeState) {
	r.prog.Send(hostFinishedMsg{host: host, commandIndex: commandIndex, exitCode: exitCode, newState: newState})
}

func (r *Reporter) CommandFinished(commandIndex int, commandText string, successCount, totalCount int, successRatio, threshold float64) {
	r.prog.Send(commandFinishedMsg{
		index: commandIndex, text: commandText,
		successCount: successCount, totalCount: totalCount,
		successRatio: successRatio, threshold: threshold,
	})
}

func (r *Reporter) RunFinished(exitCode int, successCount, totalCount int) {
	r.prog.Send(runFinishedMsg{exitCode: exitCode, successCount: successCount, totalCount: totalCount})
}

func (r *Reporter) GlobalTimeout(pendingOrRunning int) {
	r.prog.Send(globalTimeoutMsg{pendingOrRunning: pendingOrRunning})
}
