package reporter

import (
	"fmt"
	"io"
	"sync"

	"github.com/go-cumin/cumin/internal/color"
	"github.com/go-cumin/cumin/internal/nodeset"
	"github.com/go-cumin/cumin/internal/state"
)

// Default is the grouped, colorized reporter for callers that embed the
// executor directly; the cumin CLI renders terminal runs with the
// internal/tui progress view instead. It mirrors the original's single-host fast path
// (print output as it streams) and its multi-host de-duplication
// (group identical output under a folded nodeset at command end).
type Default struct {
	out      io.Writer
	colorize color.Colorizer

	mu          sync.Mutex
	totalHosts  int
	dedup       bool
	outputs     map[string]map[string][]byte // commandIndex label -> host -> output
	currentCmd  int
}

// NewDefault constructs a Default reporter writing to out.
func NewDefault(out io.Writer, colorize color.Colorizer) *Default {
	return &Default{out: out, colorize: colorize, outputs: map[string]map[string][]byte{}}
}

func (r *Default) RunStarted(hosts []string, totalCommands int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.totalHosts = len(hosts)
	r.dedup = len(hosts) > 1
	fmt.Fprintf(r.out, "%s\n", r.colorize.Bold(fmt.Sprintf("%d hosts will be targeted:", len(hosts))))
	fmt.Fprintf(r.out, "%s\n", nodeset.FromList(hosts).String())
}

func (r *Default) CommandStarted(commandIndex int, commandText string) {
	r.mu.Lock()
	r.currentCmd = commandIndex
	r.mu.Unlock()
	if !r.dedup {
		fmt.Fprintf(r.out, "%s\n", r.colorize.Cyan("==== "+commandText+" ===="))
	}
}

func (r *Default) HostStarted(host string, commandIndex int) {}

func (r *Default) HostOutput(host string, commandIndex int, chunk []byte, isErr bool) {
	if r.dedup {
		r.mu.Lock()
		key := fmt.Sprintf("%d", commandIndex)
		if r.outputs[key] == nil {
			r.outputs[key] = map[string][]byte{}
		}
		r.outputs[key][host] = append(r.outputs[key][host], chunk...)
		r.mu.Unlock()
		return
	}
	fmt.Fprintf(r.out, "%s\n", chunk)
}

func (r *Default) HostFinished(host string, commandIndex int, exitCode int, newState state.NodeState) {
	if newState == state.Failed || newState == state.Timeout {
		fmt.Fprintf(r.out, "%s\n", r.colorize.Red(fmt.Sprintf("%s: %s (exit %d)", host, newState, exitCode)))
	}
}

func (r *Default) CommandFinished(commandIndex int, commandText string, successCount, totalCount int, successRatio, threshold float64) {
	if r.dedup {
		r.mu.Lock()
		key := fmt.Sprintf("%d", commandIndex)
		groups := GroupByOutput(stringMap(r.outputs[key]))
		r.mu.Unlock()

		for output, hosts := range groups {
			fmt.Fprintf(r.out, "%s\n", r.colorize.Cyan(hosts.String()))
			fmt.Fprintf(r.out, "%s\n", output)
		}
	}

	summary := fmt.Sprintf("%d/%d (%.0f%%) success ratio (>= %.0f%% threshold) for command: '%s'",
		successCount, totalCount, successRatio*100, threshold*100, commandText)
	if successRatio >= threshold {
		fmt.Fprintf(r.out, "%s\n", r.colorize.Green(summary))
	} else {
		fmt.Fprintf(r.out, "%s\n", r.colorize.Red(summary))
	}
}

func (r *Default) RunFinished(exitCode int, successCount, totalCount int) {
	fmt.Fprintf(r.out, "%s\n", r.colorize.Bold(fmt.Sprintf("%d/%d hosts succeeded overall", successCount, totalCount)))
}

func (r *Default) GlobalTimeout(pendingOrRunning int) {
	fmt.Fprintf(r.out, "%s\n", r.colorize.Yellow(fmt.Sprintf("global timeout triggered with %d hosts still pending or running", pendingOrRunning)))
}

func stringMap(m map[string][]byte) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = string(v)
	}
	return out
}
