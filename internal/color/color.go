// Package color provides the small set of ANSI color helpers the
// default reporter uses to highlight success/failure.
//
// Grounded on the original project's color.py: colors are looked up
// by name, default to disabled, and are meant to be toggled off
// entirely (not per-call) for non-terminal output or when NO_COLOR is
// set.
package color

import "fmt"

const (
	resetCode = "\x1b[0m"
	red       = "\x1b[31m"
	green     = "\x1b[32m"
	yellow    = "\x1b[33m"
	cyan      = "\x1b[36m"
	bold      = "\x1b[1m"
)

// Colorizer wraps text in ANSI escapes when enabled, and passes it
// through unmodified otherwise.
type Colorizer struct {
	enabled bool
}

// New constructs a Colorizer. enabled is typically term.IsTerminal(fd)
// && os.Getenv("NO_COLOR") == "".
func New(enabled bool) Colorizer {
	return Colorizer{enabled: enabled}
}

func (c Colorizer) wrap(code, text string) string {
	if !c.enabled {
		return text
	}
	return fmt.Sprintf("%s%s%s", code, text, resetCode)
}

// Red colors text for failures.
func (c Colorizer) Red(text string) string { return c.wrap(red, text) }

// Green colors text for successes.
func (c Colorizer) Green(text string) string { return c.wrap(green, text) }

// Yellow colors text for timeouts and warnings.
func (c Colorizer) Yellow(text string) string { return c.wrap(yellow, text) }

// Cyan colors text used for host/command headers.
func (c Colorizer) Cyan(text string) string { return c.wrap(cyan, text) }

// Bold emphasizes text.
func (c Colorizer) Bold(text string) string { return c.wrap(bold, text) }
