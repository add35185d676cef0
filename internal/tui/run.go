package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/go-cumin/cumin/internal/command"
	"github.com/go-cumin/cumin/internal/executor"
	"github.com/go-cumin/cumin/internal/target"
)

// RunWithProgress drives ex.Run while rendering a live bubbletea
// progress view fed by a Reporter wrapping the program, mirroring
// cmd/streamy/apply.go's program.Run-in-a-goroutine-plus-done-channel
// pattern: the actual work and the UI loop run on separate goroutines,
// synchronized through a done channel rather than each other's return.
func RunWithProgress(ctx context.Context, ex *executor.Executor, tg target.Target, commands []command.Command, opts executor.Options) (executor.Result, ExecutionResult, error) {
	prog := tea.NewProgram(NewModel())
	opts.Reporter = NewReporter(prog)

	var res executor.Result
	var runErr error
	done := make(chan struct{})
	go func() {
		res, runErr = ex.Run(ctx, tg, commands, opts)
		close(done)
	}()

	finalModel, progErr := prog.Run()
	<-done

	var execResult ExecutionResult
	if m, ok := finalModel.(Model); ok {
		execResult = m.Result()
	}

	if runErr != nil {
		return res, execResult, runErr
	}
	return res, execResult, progErr
}
