package tui

import "github.com/go-cumin/cumin/internal/state"

// ExecutionResult is the finished, read-only view of a run that the
// post-run interactive shell (C16) operates on. It never re-enters the
// executor's concurrency machinery; re-run actions build a fresh
// ExecutionResult from a new, independent Run call.
type ExecutionResult struct {
	Hosts        []string
	States       map[string]state.NodeState
	Outputs      map[string]string
	CommandText  string
	SuccessCount int
	TotalCount   int
	ExitCode     int
}

// HostsInState returns the hosts whose final state matches any of
// want, in the run's original host order.
func (r ExecutionResult) HostsInState(want ...state.NodeState) []string {
	set := make(map[state.NodeState]bool, len(want))
	for _, s := range want {
		set[s] = true
	}
	var out []string
	for _, h := range r.Hosts {
		if set[r.States[h]] {
			out = append(out, h)
		}
	}
	return out
}

// FailedHosts returns the cohort re-run targets: every host that ended
// in Failed or Timeout.
func (r ExecutionResult) FailedHosts() []string {
	return r.HostsInState(state.Failed, state.Timeout)
}
