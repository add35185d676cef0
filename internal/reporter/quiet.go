package reporter

import (
	"fmt"
	"io"

	"github.com/go-cumin/cumin/internal/state"
)

// Quiet reports only command and run summaries, suppressing per-host
// output entirely. Grounded on the original's TqdmQuietReporter.
type Quiet struct {
	out io.Writer
}

// NewQuiet constructs a Quiet reporter writing summaries to out.
func NewQuiet(out io.Writer) *Quiet { return &Quiet{out: out} }

func (r *Quiet) RunStarted(hosts []string, totalCommands int) {
	fmt.Fprintf(r.out, "%d hosts targeted\n", len(hosts))
}

func (r *Quiet) CommandStarted(commandIndex int, commandText string) {}

func (r *Quiet) HostStarted(host string, commandIndex int) {}

func (r *Quiet) HostOutput(host string, commandIndex int, chunk []byte, isErr bool) {}

func (r *Quiet) HostFinished(host string, commandIndex int, exitCode int, newState state.NodeState) {}

func (r *Quiet) CommandFinished(commandIndex int, commandText string, successCount, totalCount int, successRatio, threshold float64) {
	fmt.Fprintf(r.out, "%d/%d success ratio for command: '%s'\n", successCount, totalCount, commandText)
}

func (r *Quiet) RunFinished(exitCode int, successCount, totalCount int) {
	fmt.Fprintf(r.out, "%d/%d hosts succeeded overall\n", successCount, totalCount)
}

func (r *Quiet) GlobalTimeout(pendingOrRunning int) {
	fmt.Fprintf(r.out, "global timeout triggered with %d hosts pending or running\n", pendingOrRunning)
}
