// Package executor implements Cumin's fan-out command runner: given a
// Target (hosts + batching policy) and an ordered list of Commands, it
// runs them across hosts through a Transport, reporting progress as it
// goes and deciding pass/fail against a success threshold.
//
// Grounded on the original project's transports.clustershell
// SyncEventHandler and AsyncEventHandler: the per-host state machine,
// the sliding batch window, and the success-ratio bookkeeping are
// carried over verbatim in spirit, re-expressed as goroutines
// coordinated by a semaphore and a mutex-guarded host table instead of
// a single-threaded event-loop callback chain.
package executor

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/go-cumin/cumin/internal/command"
	"github.com/go-cumin/cumin/internal/reporter"
	"github.com/go-cumin/cumin/internal/state"
	"github.com/go-cumin/cumin/internal/target"
	"github.com/go-cumin/cumin/internal/transport"
	"github.com/go-cumin/cumin/pkg/cuminerr"
)

// Mode selects how commands are sequenced across hosts.
type Mode int

const (
	// Sync runs command N on all hosts (within the batch window)
	// before any host starts command N+1.
	Sync Mode = iota
	// Async runs every host's full command pipeline independently.
	Async
)

// Options configures a Run.
type Options struct {
	Mode             Mode
	SuccessThreshold float64 // in (0, 1], default 1.0
	GlobalTimeout    time.Duration
	Fanout           int // global concurrency ceiling across the whole run; 0 means unbounded (batch size alone governs)
	Reporter         reporter.Reporter
}

// concurrencyWindow returns how many hosts may run simultaneously: the
// target's own batch size, capped by the run's fanout ceiling when one
// is set, per the "no more than fanout hosts ever running
// simultaneously across the whole run" rule.
func concurrencyWindow(batchSize, fanout int) int {
	if fanout > 0 && fanout < batchSize {
		return fanout
	}
	return batchSize
}

// advance moves run to the next state through the state package's
// transition table, returning the error an illegal move would raise
// instead of letting run.currentState drift out of the lattice.
func (e *Executor) advance(run *hostRun, to state.NodeState) error {
	next, err := state.Transition(run.currentState, to)
	if err != nil {
		return err
	}
	run.currentState = next
	return nil
}

// hostRun tracks one host's progress through the command pipeline.
type hostRun struct {
	host            string
	currentState    state.NodeState
	commandIndex    int // index of the command currently/last running
	lastExitCode    int
	output          []byte
}

// Executor runs commands against a target through a transport.
type Executor struct {
	tr transport.Transport
}

// New constructs an Executor bound to tr.
func New(tr transport.Transport) *Executor {
	return &Executor{tr: tr}
}

// Result is the outcome of a full run.
type Result struct {
	SuccessCount int
	TotalCount   int
	ReturnCode   int // 0 if the success ratio met the threshold, 2 otherwise, per the binary exit-code rule
}

// Run executes commands against tg and returns the aggregate result.
func (e *Executor) Run(ctx context.Context, tg target.Target, commands []command.Command, opts Options) (Result, error) {
	if len(commands) == 0 {
		return Result{}, cuminerr.NewWorkerError("commands", "must be a non-empty list")
	}
	threshold := opts.SuccessThreshold
	if threshold <= 0 {
		threshold = 1.0
	}
	rep := opts.Reporter
	if rep == nil {
		rep = reporter.Null{}
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if opts.GlobalTimeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, opts.GlobalTimeout)
		defer cancel()
	}

	hosts := tg.Hosts()
	rep.RunStarted(hosts, len(commands))

	runs := make(map[string]*hostRun, len(hosts))
	for _, h := range hosts {
		runs[h] = &hostRun{host: h, currentState: state.Pending}
	}

	var result Result
	var err error
	switch opts.Mode {
	case Async:
		result, err = e.runAsync(runCtx, tg, commands, runs, rep, threshold, opts.Fanout)
	default:
		result, err = e.runSync(runCtx, tg, commands, runs, rep, threshold, opts.Fanout)
	}

	if runCtx.Err() != nil {
		pending := 0
		for _, r := range runs {
			if r.currentState == state.Pending || r.currentState == state.Scheduled || r.currentState == state.Running {
				pending++
			}
		}
		if pending > 0 {
			rep.GlobalTimeout(pending)
		}
	}

	rep.RunFinished(result.ReturnCode, result.SuccessCount, result.TotalCount)
	return result, err
}

// runSync implements the original's SyncEventHandler semantics:
// command N runs on the whole host set (gated by the batch window)
// before command N+1 starts on any host.
func (e *Executor) runSync(ctx context.Context, tg target.Target, commands []command.Command, runs map[string]*hostRun, rep reporter.Reporter, threshold float64, fanout int) (Result, error) {
	hosts := tg.Hosts()
	result := Result{TotalCount: len(hosts)}

	eligible := hosts
	for idx, cmd := range commands {
		if ctx.Err() != nil {
			break
		}
		rep.CommandStarted(idx, cmd.Text())

		successCount, err := e.runBatch(ctx, tg, eligible, idx, cmd, runs, rep, fanout)
		if err != nil {
			return result, err
		}
		successRatio := float64(successCount) / float64(len(hosts))
		rep.CommandFinished(idx, cmd.Text(), successCount, len(hosts), successRatio, threshold)

		if successRatio < threshold {
			result.ReturnCode = 2
			result.SuccessCount = successCount
			return result, nil
		}

		// Re-arm successful hosts to pending for the next command.
		eligible = nil
		for _, h := range hosts {
			if runs[h].currentState == state.Success {
				if err := e.advance(runs[h], state.Pending); err != nil {
					return result, err
				}
				eligible = append(eligible, h)
			}
		}
		result.SuccessCount = successCount
	}

	result.ReturnCode = 0
	return result, nil
}

// runBatch runs a single command across eligible hosts, respecting the
// target's batch window and inter-launch sleep, and returns the number
// of hosts that satisfied the command's ok_codes.
func (e *Executor) runBatch(ctx context.Context, tg target.Target, eligible []string, commandIndex int, cmd command.Command, runs map[string]*hostRun, rep reporter.Reporter, fanout int) (int, error) {
	sem := semaphore.NewWeighted(int64(concurrencyWindow(tg.BatchSize(), fanout)))
	var wg sync.WaitGroup
	var mu sync.Mutex
	successCount := 0
	var firstErr error

	for i, host := range eligible {
		if ctx.Err() != nil {
			break
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}

		run := runs[host]
		mu.Lock()
		if err := e.advance(run, state.Scheduled); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			mu.Unlock()
			sem.Release(1)
			continue
		}
		mu.Unlock()

		if tg.BatchSleep() > 0 && i > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(tg.BatchSleep()):
			}
		}

		wg.Add(1)
		go func(host string, run *hostRun) {
			defer wg.Done()
			defer sem.Release(1)

			ok, err := e.runOne(ctx, host, commandIndex, cmd, run, rep)
			mu.Lock()
			if err != nil && firstErr == nil {
				firstErr = err
			}
			if ok {
				successCount++
			}
			mu.Unlock()
		}(host, run)
	}
	wg.Wait()
	return successCount, firstErr
}

// runOne executes cmd on host, updates its state, and reports the
// outcome. Returns true if the exit code satisfied cmd's ok_codes, and
// an error only if a state transition was illegal.
func (e *Executor) runOne(ctx context.Context, host string, commandIndex int, cmd command.Command, run *hostRun, rep reporter.Reporter) (bool, error) {
	if err := e.advance(run, state.Running); err != nil {
		return false, err
	}
	run.commandIndex = commandIndex
	rep.HostStarted(host, commandIndex)

	res, err := e.tr.StreamExec(ctx, host, cmd.Text(), cmd.Timeout(), func(chunk []byte, isErr bool) {
		run.output = append(run.output, chunk...)
		rep.HostOutput(host, commandIndex, chunk, isErr)
	})

	if ctx.Err() != nil && err != nil {
		if advErr := e.advance(run, state.Timeout); advErr != nil {
			return false, advErr
		}
		run.lastExitCode = -1
		rep.HostFinished(host, commandIndex, -1, state.Timeout)
		return false, nil
	}
	if err != nil {
		if advErr := e.advance(run, state.Failed); advErr != nil {
			return false, advErr
		}
		run.lastExitCode = -1
		rep.HostFinished(host, commandIndex, -1, state.Failed)
		return false, nil
	}

	run.lastExitCode = res.ExitCode
	if cmd.Accepts(res.ExitCode) {
		if advErr := e.advance(run, state.Success); advErr != nil {
			return false, advErr
		}
		rep.HostFinished(host, commandIndex, res.ExitCode, state.Success)
		return true, nil
	}
	if advErr := e.advance(run, state.Failed); advErr != nil {
		return false, advErr
	}
	rep.HostFinished(host, commandIndex, res.ExitCode, state.Failed)
	return false, nil
}

// runAsync implements the original's AsyncEventHandler semantics:
// each host runs its full command pipeline independently, aborting on
// that host's first command failure.
func (e *Executor) runAsync(ctx context.Context, tg target.Target, commands []command.Command, runs map[string]*hostRun, rep reporter.Reporter, threshold float64, fanout int) (Result, error) {
	hosts := tg.Hosts()
	result := Result{TotalCount: len(hosts)}

	if len(commands) > 0 {
		rep.CommandStarted(0, commands[0].Text())
	}

	sem := semaphore.NewWeighted(int64(concurrencyWindow(tg.BatchSize(), fanout)))
	var wg sync.WaitGroup
	var mu sync.Mutex
	successCount := 0
	failedCount := 0
	var firstErr error

	for i, host := range hosts {
		if ctx.Err() != nil {
			break
		}

		mu.Lock()
		bestPossibleRatio := float64(len(hosts)-failedCount) / float64(len(hosts))
		mu.Unlock()
		if bestPossibleRatio < threshold {
			break
		}

		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}

		run := runs[host]
		if err := e.advance(run, state.Scheduled); err != nil {
			mu.Lock()
			if firstErr == nil {
				firstErr = err
			}
			mu.Unlock()
			sem.Release(1)
			continue
		}

		if tg.BatchSleep() > 0 && i > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(tg.BatchSleep()):
			}
		}

		wg.Add(1)
		go func(host string, run *hostRun) {
			defer wg.Done()
			defer sem.Release(1)

			ok := true
			for idx, cmd := range commands {
				if ctx.Err() != nil {
					ok = false
					break
				}
				var err error
				if idx > 0 {
					// Re-arm the host for its next command, as runSync does between commands.
					if err = e.advance(run, state.Pending); err == nil {
						err = e.advance(run, state.Scheduled)
					}
				}
				hostOK := false
				if err == nil {
					hostOK, err = e.runOne(ctx, host, idx, cmd, run, rep)
				}
				if err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
					ok = false
					break
				}
				if !hostOK {
					ok = false
					break
				}
			}
			mu.Lock()
			if ok {
				successCount++
			} else {
				failedCount++
			}
			mu.Unlock()
		}(host, run)
	}
	wg.Wait()

	lastIdx := len(commands) - 1
	rep.CommandFinished(lastIdx, commands[lastIdx].Text(), successCount, len(hosts), float64(successCount)/float64(len(hosts)), threshold)

	result.SuccessCount = successCount
	successRatio := float64(successCount) / float64(len(hosts))
	if successRatio < threshold {
		result.ReturnCode = 2
	} else {
		result.ReturnCode = 0
	}
	return result, firstErr
}
