package reporter

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/go-cumin/cumin/internal/state"
)

// JSON emits one JSON object per line (newline-delimited) for every
// event, intended for machine consumption by the --output json flag.
type JSON struct {
	enc *json.Encoder
	mu  sync.Mutex
}

// NewJSON constructs a JSON reporter writing to out.
func NewJSON(out io.Writer) *JSON {
	return &JSON{enc: json.NewEncoder(out)}
}

type jsonEvent struct {
	Event        string  `json:"event"`
	Hosts        []string `json:"hosts,omitempty"`
	CommandIndex int     `json:"command_index,omitempty"`
	Command      string  `json:"command,omitempty"`
	Host         string  `json:"host,omitempty"`
	Output       string  `json:"output,omitempty"`
	Stderr       bool    `json:"stderr,omitempty"`
	ExitCode     int     `json:"exit_code,omitempty"`
	State        string  `json:"state,omitempty"`
	Success      int     `json:"success,omitempty"`
	Total        int     `json:"total,omitempty"`
	SuccessRatio float64 `json:"success_ratio,omitempty"`
	Threshold    float64 `json:"threshold,omitempty"`
	ReturnCode   int     `json:"return_code,omitempty"`
	Pending      int     `json:"pending,omitempty"`
}

func (r *JSON) emit(ev jsonEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_ = r.enc.Encode(ev)
}

func (r *JSON) RunStarted(hosts []string, totalCommands int) {
	r.emit(jsonEvent{Event: "run_started", Hosts: hosts})
}

func (r *JSON) CommandStarted(commandIndex int, commandText string) {
	r.emit(jsonEvent{Event: "command_started", CommandIndex: commandIndex, Command: commandText})
}

func (r *JSON) HostStarted(host string, commandIndex int) {
	r.emit(jsonEvent{Event: "host_started", Host: host, CommandIndex: commandIndex})
}

func (r *JSON) HostOutput(host string, commandIndex int, chunk []byte, isErr bool) {
	r.emit(jsonEvent{Event: "host_output", Host: host, CommandIndex: commandIndex, Output: string(chunk), Stderr: isErr})
}

func (r *JSON) HostFinished(host string, commandIndex int, exitCode int, newState state.NodeState) {
	r.emit(jsonEvent{Event: "host_finished", Host: host, CommandIndex: commandIndex, ExitCode: exitCode, State: newState.String()})
}

func (r *JSON) CommandFinished(commandIndex int, commandText string, successCount, totalCount int, successRatio, threshold float64) {
	r.emit(jsonEvent{Event: "command_finished", CommandIndex: commandIndex, Command: commandText, Success: successCount, Total: totalCount, SuccessRatio: successRatio, Threshold: threshold})
}

func (r *JSON) RunFinished(exitCode int, successCount, totalCount int) {
	r.emit(jsonEvent{Event: "run_finished", ReturnCode: exitCode, Success: successCount, Total: totalCount})
}

func (r *JSON) GlobalTimeout(pendingOrRunning int) {
	r.emit(jsonEvent{Event: "global_timeout", Pending: pendingOrRunning})
}
