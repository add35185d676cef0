package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/go-cumin/cumin/internal/command"
	"github.com/go-cumin/cumin/internal/config"
	"github.com/go-cumin/cumin/internal/executor"
	"github.com/go-cumin/cumin/internal/logger"
	"github.com/go-cumin/cumin/internal/query"
	"github.com/go-cumin/cumin/internal/reporter"
	"github.com/go-cumin/cumin/internal/target"
	"github.com/go-cumin/cumin/internal/transport"
	"github.com/go-cumin/cumin/internal/tui"
	"github.com/go-cumin/cumin/pkg/cuminerr"
)

// exitCodeError carries an explicit process exit code alongside an
// error, for outcomes the executor itself decided (threshold not met)
// rather than a usage/config failure.
type exitCodeError struct {
	code int
	err  error
}

func (e *exitCodeError) Error() string { return e.err.Error() }
func (e *exitCodeError) Unwrap() error { return e.err }

// exitCodeFor maps a command error to a process exit code, per §6.1:
// 0 success, 2 execution below threshold or aborted, any other
// non-zero value reserved for usage/config errors.
func exitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	var ec *exitCodeError
	if errors.As(err, &ec) {
		return ec.code
	}
	return 1
}

func runMain(cmd *cobra.Command, opts runOptions) error {
	level := "info"
	if opts.Trace {
		level = "trace"
	} else if opts.Debug {
		level = "debug"
	}

	cfg, aliases, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}
	applyConfigDefaults(&opts, cfg)

	logFile := logDestination(cfg.LogFile)
	if logFile != os.Stdout {
		defer logFile.Close()
	}
	log, err := logger.New(logger.Options{Level: level, HumanReadable: true, Writer: logFile})
	if err != nil {
		return err
	}

	reg := newRegistry()
	backends, err := buildBackends(reg, cfg.Section(), log)
	if err != nil {
		return err
	}

	defaultBackend := cfg.DefaultBackend
	if opts.Backend != "" {
		prefix, ok := reg.PrefixForName(opts.Backend)
		if !ok {
			return cuminerr.NewConfigError(fmt.Sprintf("--backend: unknown backend %q", opts.Backend), nil)
		}
		defaultBackend = prefix
	}

	aliasSet := query.NewAliasSet(aliases)
	grammar := query.NewGrammar(reg, backends, aliasSet)
	q := query.NewQuery(grammar, defaultBackend, defaultQueryFor(defaultBackend, backends))

	ctx := context.Background()

	hosts, err := q.Execute(ctx, opts.Query)
	if err != nil {
		return err
	}
	if hosts.Len() == 0 {
		return cuminerr.NewWorkerError("hosts", "query matched no hosts")
	}

	var tgOpts []target.Option
	if opts.BatchSize != "" {
		value, isRatio, parseErr := config.ParseBatchSize(opts.BatchSize)
		if parseErr != nil {
			return cuminerr.NewConfigError("--batch-size", parseErr)
		}
		if isRatio {
			tgOpts = append(tgOpts, target.WithBatchSizeRatio(value))
		} else {
			tgOpts = append(tgOpts, target.WithBatchSize(int(value)))
		}
	}
	if opts.BatchSleep > 0 {
		tgOpts = append(tgOpts, target.WithBatchSleep(time.Duration(opts.BatchSleep*float64(time.Second))))
	}

	tg, err := target.New(hosts.Hosts(), tgOpts...)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if opts.DryRun {
		fmt.Fprintln(out, hosts.String())
		return nil
	}

	commands, err := buildCommands(opts, cfg.Environment)
	if err != nil {
		return err
	}

	// cfg.Transport names the original project's fanout manager
	// ("clustershell" is the only config.yaml value validator.go
	// accepts), not a Go Transport implementation — Cumin ships exactly
	// one, so every accepted value resolves to "ssh".
	tr, err := transport.New(transport.Config{
		Name:            "ssh",
		KnownHostsFiles: cfg.KnownHosts.Files,
		MaxConnections:  cfg.ClusterShell.Fanout,
	})
	if err != nil {
		return err
	}
	defer tr.Close()

	threshold := 1.0
	if opts.SuccessThreshold != "" {
		threshold, err = config.ParseRatio(opts.SuccessThreshold)
		if err != nil {
			return cuminerr.NewConfigError("--success-threshold", err)
		}
	}

	mode := executor.Sync
	if opts.Mode == "async" {
		mode = executor.Async
	}

	execOpts := executor.Options{
		Mode:             mode,
		SuccessThreshold: threshold,
		GlobalTimeout:    time.Duration(opts.GlobalTimeout * float64(time.Second)),
		Fanout:           cfg.ClusterShell.Fanout,
	}

	ex := executor.New(tr)

	// The live bubbletea progress view (C15) takes over the terminal
	// for text runs exactly when apply.go's NonInteractive check would
	// say otherwise; JSON output and non-terminal stdout fall back to
	// the plain Reporter implementations instead.
	useTUI := opts.Output != "json" && term.IsTerminal(int(os.Stdout.Fd()))

	var res executor.Result
	var runResult tui.ExecutionResult
	if useTUI {
		res, runResult, err = tui.RunWithProgress(ctx, ex, tg, commands, execOpts)
	} else {
		execOpts.Reporter = newReporter(opts.Output, out)
		res, err = ex.Run(ctx, tg, commands, execOpts)
	}
	if err != nil {
		return err
	}

	if opts.Interactive && useTUI {
		rerun := func(ctx context.Context, rerunHosts []string) (tui.ExecutionResult, error) {
			rerunTg, tgErr := target.New(rerunHosts, tgOpts...)
			if tgErr != nil {
				return tui.ExecutionResult{}, tgErr
			}
			_, rerunResult, rerunErr := tui.RunWithProgress(ctx, ex, rerunTg, commands, execOpts)
			return rerunResult, rerunErr
		}
		if shellErr := tui.RunInteractiveShell(ctx, runResult, rerun); shellErr != nil {
			return shellErr
		}
	}

	if res.ReturnCode != 0 {
		return &exitCodeError{code: res.ReturnCode, err: cuminerr.NewThresholdNotMetError(
			"run", float64(res.SuccessCount)/float64(res.TotalCount), threshold)}
	}
	return nil
}

func buildCommands(opts runOptions, env map[string]string) ([]command.Command, error) {
	prefix := envExportPrefix(env)
	commands := make([]command.Command, 0, len(opts.Commands))
	for _, text := range opts.Commands {
		cmdOpts := []command.Option{}
		if opts.Timeout > 0 {
			cmdOpts = append(cmdOpts, command.WithTimeout(time.Duration(opts.Timeout*float64(time.Second))))
		}
		c, err := command.New(prefix+text, cmdOpts...)
		if err != nil {
			return nil, err
		}
		if opts.IgnoreExitCodes {
			c = c.IgnoreExitCodes()
		}
		commands = append(commands, c)
	}
	return commands, nil
}

// envExportPrefix renders config.yaml's environment map as a sequence
// of shell export statements to prepend to every command, since the
// Transport interface takes a plain command string rather than a
// structured environment. Keys are sorted for deterministic output.
func envExportPrefix(env map[string]string) string {
	if len(env) == 0 {
		return ""
	}
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString("export ")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(shellQuote(env[k]))
		b.WriteString("; ")
	}
	return b.String()
}

// shellQuote wraps s in single quotes, escaping any embedded single
// quote the POSIX way: close the quote, emit an escaped quote, reopen.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// applyConfigDefaults fills in any run option the user left at its
// CLI zero value from config.yaml's own execution defaults, mirroring
// the original project's config-file-as-fallback behavior: a flag
// explicitly passed on the command line always wins.
func applyConfigDefaults(opts *runOptions, cfg *config.Config) {
	if opts.Mode == "" {
		opts.Mode = cfg.Mode
	}
	if opts.BatchSize == "" {
		opts.BatchSize = cfg.BatchSize
	}
	if opts.BatchSleep == 0 {
		opts.BatchSleep = cfg.BatchSleep
	}
	if opts.Timeout == 0 {
		opts.Timeout = cfg.Timeout
	}
	if opts.GlobalTimeout == 0 {
		opts.GlobalTimeout = cfg.GlobalTimeout
	}
	if opts.SuccessThreshold == "" {
		opts.SuccessThreshold = cfg.SuccessThreshold
	}
}

// newReporter picks between the non-live Reporter implementations.
// runMain only reaches this when useTUI is false, i.e. either JSON
// output was requested or stdout is not a terminal — the terminal,
// text-output case goes through the bubbletea progress view instead.
func newReporter(output string, out io.Writer) reporter.Reporter {
	if output == "json" {
		return reporter.NewJSON(out)
	}
	return reporter.NewQuiet(out)
}

func logDestination(path string) *os.File {
	if path == "" {
		return os.Stdout
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return os.Stdout
	}
	return f
}
