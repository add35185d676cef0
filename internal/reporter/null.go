package reporter

import "github.com/go-cumin/cumin/internal/state"

// Null discards every event. Grounded on the original's NullReporter;
// the executor falls back to it when Options.Reporter is nil so the
// run loop never has to nil-check before calling a reporter method.
type Null struct{}

func (Null) RunStarted(hosts []string, totalCommands int)                                            {}
func (Null) CommandStarted(commandIndex int, commandText string)                                     {}
func (Null) HostStarted(host string, commandIndex int)                                               {}
func (Null) HostOutput(host string, commandIndex int, chunk []byte, isErr bool)                       {}
func (Null) HostFinished(host string, commandIndex int, exitCode int, newState state.NodeState)       {}
func (Null) CommandFinished(commandIndex int, commandText string, successCount, totalCount int, successRatio, threshold float64) {
}
func (Null) RunFinished(exitCode int, successCount, totalCount int) {}
func (Null) GlobalTimeout(pendingOrRunning int)                     {}
