// Package command implements Cumin's Command value object: a shell
// command string plus the timeout and acceptable-exit-code policy that
// govern how the executor judges a single host's run of it.
//
// Grounded on the original project's transports.Command: ok_codes
// defaults to [0] and is never nil once constructed (an explicitly
// empty slice means "every exit code is a success"), and timeout must
// be a positive duration when set.
package command

import (
	"fmt"
	"time"

	"github.com/go-cumin/cumin/pkg/cuminerr"
)

// Command is an immutable description of a shell command to run on a
// target host.
type Command struct {
	text    string
	timeout time.Duration // zero means "no command-level timeout"
	okCodes []int
}

// Option configures a Command at construction time.
type Option func(*Command) error

// New constructs a Command from its shell text and options. With no
// options, the command has no timeout and ok_codes defaults to [0].
func New(text string, opts ...Option) (Command, error) {
	if text == "" {
		return Command{}, cuminerr.NewWorkerError("command", "must be a non-empty string")
	}

	c := Command{text: text, okCodes: []int{0}}
	for _, opt := range opts {
		if err := opt(&c); err != nil {
			return Command{}, err
		}
	}
	return c, nil
}

// WithTimeout sets the per-command timeout. A non-positive duration is
// rejected.
func WithTimeout(d time.Duration) Option {
	return func(c *Command) error {
		if d <= 0 {
			return cuminerr.NewWorkerError("timeout", fmt.Sprintf("must be positive, got %q", d))
		}
		c.timeout = d
		return nil
	}
}

// WithOKCodes sets the list of exit codes considered successful. An
// empty (non-nil) slice means every exit code succeeds. Codes must be
// in [0, 255].
func WithOKCodes(codes []int) Option {
	return func(c *Command) error {
		for _, code := range codes {
			if code < 0 || code > 255 {
				return cuminerr.NewWorkerError("ok_codes", fmt.Sprintf("must be in [0, 255], got %d", code))
			}
		}
		c.okCodes = append([]int{}, codes...)
		return nil
	}
}

// Text returns the shell command string.
func (c Command) Text() string { return c.text }

// Timeout returns the per-command timeout, or zero if unset.
func (c Command) Timeout() time.Duration { return c.timeout }

// OKCodes returns the list of exit codes considered successful. An
// empty slice means every exit code is accepted.
func (c Command) OKCodes() []int { return c.okCodes }

// Accepts reports whether exitCode is a success for this command.
func (c Command) Accepts(exitCode int) bool {
	if len(c.okCodes) == 0 {
		return true
	}
	for _, code := range c.okCodes {
		if code == exitCode {
			return true
		}
	}
	return false
}

// IgnoreExitCodes returns a copy of c with ok_codes relaxed to accept
// any exit code, mirroring the CLI's --ignore-exit-codes flag.
func (c Command) IgnoreExitCodes() Command {
	c.okCodes = []int{}
	return c
}
