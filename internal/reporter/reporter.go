// Package reporter renders the progress of an execution run as it
// happens: per-host output, de-duplicated when it is identical across
// many hosts, and a final success/failure summary.
//
// Grounded on the original project's transports.clustershell
// BaseReporter/TqdmReporter/TqdmQuietReporter/NullReporter hierarchy,
// re-expressed as a small event interface the executor calls directly
// instead of a buffered-line ClusterShell callback chain.
package reporter

import (
	"github.com/go-cumin/cumin/internal/nodeset"
	"github.com/go-cumin/cumin/internal/state"
)

// Reporter receives execution-run events as they happen.
type Reporter interface {
	// RunStarted is called once, before any command is dispatched.
	RunStarted(hosts []string, totalCommands int)

	// CommandStarted is called when a command begins execution (on
	// its first batch of hosts).
	CommandStarted(commandIndex int, commandText string)

	// HostStarted is called when an individual host is dispatched and
	// begins running commandIndex, distinct from CommandStarted (which
	// fires once per command, not once per host).
	HostStarted(host string, commandIndex int)

	// HostOutput is called whenever a host produces output. isErr
	// reports whether chunk came from stderr.
	HostOutput(host string, commandIndex int, chunk []byte, isErr bool)

	// HostFinished is called when a host finishes (or times out on) a
	// command.
	HostFinished(host string, commandIndex int, exitCode int, newState state.NodeState)

	// CommandFinished is called once all hosts have finished (or been
	// abandoned for) the current command.
	CommandFinished(commandIndex int, commandText string, successCount, totalCount int, successRatio, threshold float64)

	// RunFinished is called once, after the whole run (all commands or
	// an aborted run) completes.
	RunFinished(exitCode int, successCount, totalCount int)

	// GlobalTimeout is called if the run's global timeout fires.
	GlobalTimeout(pendingOrRunning int)
}

// HostSummary is the terminal outcome recorded for one host, used by
// reporters that print a final per-host breakdown.
type HostSummary struct {
	Host            string
	State           state.NodeState
	LastExitCode    int
	CommandsRun     int
	LastCommandText string
}

// GroupByOutput groups hosts sharing byte-identical final output,
// mirroring the original's deduplicate_output behavior: when more than
// one host is targeted, identical output is printed once with the
// hostnames that produced it folded into a compact nodeset string.
func GroupByOutput(outputs map[string]string) map[string]*nodeset.Set {
	groups := map[string]*nodeset.Set{}
	for host, output := range outputs {
		set, ok := groups[output]
		if !ok {
			set = nodeset.New()
			groups[output] = set
		}
		set.Add(host)
	}
	return groups
}
