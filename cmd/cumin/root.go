package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:           "cumin HOSTS_QUERY [COMMAND...]",
		Short:         "Cumin automates and orchestrates command execution across dynamically selected hosts",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Query = args[0]
			opts.Commands = args[1:]
			if len(opts.Commands) == 0 {
				opts.DryRun = true
			}

			if err := validateRunOptions(*opts); err != nil {
				return err
			}

			return runMain(cmd, *opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "/etc/cumin/config.yaml", "Configuration file")
	cmd.Flags().StringVarP(&opts.Mode, "mode", "m", "", "Execution mode: sync or async")
	cmd.Flags().StringVarP(&opts.BatchSize, "batch-size", "b", "", "Sliding batch size, absolute (10) or percentage (50%)")
	cmd.Flags().Float64VarP(&opts.BatchSleep, "batch-sleep", "s", 0, "Seconds to sleep between batch launches")
	cmd.Flags().Float64VarP(&opts.Timeout, "timeout", "t", 0, "Per-command timeout in seconds")
	cmd.Flags().Float64Var(&opts.GlobalTimeout, "global-timeout", 0, "Timeout in seconds for the whole run")
	cmd.Flags().StringVarP(&opts.SuccessThreshold, "success-threshold", "p", "", "Success ratio (0.8) or percentage (80%) required to proceed")
	cmd.Flags().BoolVarP(&opts.IgnoreExitCodes, "ignore-exit-codes", "x", false, "Treat every exit code as successful")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "Output format: txt or json")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Resolve the query and exit without executing anything")
	cmd.Flags().BoolVarP(&opts.Interactive, "interactive", "i", false, "Offer a post-run shell to inspect results")
	cmd.Flags().StringVar(&opts.Backend, "backend", "", "Override the configured default_backend for this run")
	cmd.Flags().BoolVarP(&opts.Debug, "debug", "d", false, "Set log level to debug")
	cmd.Flags().BoolVar(&opts.Trace, "trace", false, "Set log level to trace")

	cmd.AddCommand(newVersionCmd())

	return cmd
}
