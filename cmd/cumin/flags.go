package main

import (
	"fmt"
	"strings"
)

// runOptions collects every CLI flag relevant to a single run, mirroring
// the original project's argparse.Namespace.
type runOptions struct {
	ConfigPath       string
	Mode             string
	BatchSize        string
	BatchSleep       float64
	Timeout          float64
	GlobalTimeout    float64
	SuccessThreshold string
	IgnoreExitCodes  bool
	Output           string
	DryRun           bool
	Interactive      bool
	Backend          string
	Debug            bool
	Trace            bool

	Query    string
	Commands []string
}

func validateRunOptions(opts runOptions) error {
	if strings.TrimSpace(opts.ConfigPath) == "" {
		return fmt.Errorf("config file is required")
	}
	if strings.TrimSpace(opts.Query) == "" {
		return fmt.Errorf("a hosts selection query is required")
	}
	if opts.Output != "" && opts.Output != "txt" && opts.Output != "json" {
		return fmt.Errorf("invalid --output %q, expected txt or json", opts.Output)
	}
	if opts.Mode != "" && opts.Mode != "sync" && opts.Mode != "async" {
		return fmt.Errorf("invalid --mode %q, expected sync or async", opts.Mode)
	}
	return nil
}
