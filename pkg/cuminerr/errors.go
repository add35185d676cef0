// Package cuminerr defines the error taxonomy shared across Cumin's
// target selection and execution engines. Every exported type carries
// the context needed to render a useful message and wraps the
// underlying cause for errors.As/errors.Is chains.
package cuminerr

import "fmt"

// CuminError is implemented by every error type in this package, giving
// callers a single predicate to distinguish a Cumin-domain failure from
// an arbitrary third-party error.
type CuminError interface {
	error
	cuminError()
}

// ConfigError reports a problem loading or assembling configuration,
// distinct from a structural parse failure or a field validation
// failure.
type ConfigError struct {
	Message string
	Err     error
}

func NewConfigError(message string, err error) error {
	return &ConfigError{Message: message, Err: err}
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config error: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("config error: %s", e.Message)
}

func (e *ConfigError) Unwrap() error { return e.Err }
func (*ConfigError) cuminError()     {}

// ParseError reports a structural failure parsing a YAML configuration
// or aliases file, with an optional line number.
type ParseError struct {
	Path    string
	Line    int
	Message string
	Err     error
}

func NewParseError(path string, line int, err error) error {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ParseError{Path: path, Line: line, Message: message, Err: err}
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse error: %s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error: %s: %s", e.Path, e.Message)
}

func (e *ParseError) Unwrap() error { return e.Err }
func (*ParseError) cuminError()     {}

// CyclicAliasError reports that alias expansion revisited an alias
// already on the current expansion path.
type CyclicAliasError struct {
	Path []string
}

func NewCyclicAliasError(path []string) error {
	return &CyclicAliasError{Path: append([]string(nil), path...)}
}

func (e *CyclicAliasError) Error() string {
	return fmt.Sprintf("cyclic alias expansion: %s", joinArrow(e.Path))
}

func (*CyclicAliasError) cuminError() {}

// UnknownAliasError reports a reference to an alias absent from
// configuration.
type UnknownAliasError struct {
	Name string
}

func NewUnknownAliasError(name string) error {
	return &UnknownAliasError{Name: name}
}

func (e *UnknownAliasError) Error() string {
	return fmt.Sprintf("unknown alias %q", e.Name)
}

func (*UnknownAliasError) cuminError() {}

// InvalidQueryError reports a query the grammar or a backend could not
// parse or evaluate.
type InvalidQueryError struct {
	Query   string
	Message string
	Err     error
}

func NewInvalidQueryError(query, message string, err error) error {
	return &InvalidQueryError{Query: query, Message: message, Err: err}
}

func (e *InvalidQueryError) Error() string {
	if e.Query != "" {
		return fmt.Sprintf("invalid query %q: %s", e.Query, e.Message)
	}
	return fmt.Sprintf("invalid query: %s", e.Message)
}

func (e *InvalidQueryError) Unwrap() error { return e.Err }
func (*InvalidQueryError) cuminError()     {}

// BackendUnreachableError reports a transport-level failure reaching a
// backend's remote service (PuppetDB, Keystone/Nova, etc.).
type BackendUnreachableError struct {
	Backend string
	Err     error
}

func NewBackendUnreachableError(backend string, err error) error {
	return &BackendUnreachableError{Backend: backend, Err: err}
}

func (e *BackendUnreachableError) Error() string {
	return fmt.Sprintf("backend %q unreachable: %v", e.Backend, e.Err)
}

func (e *BackendUnreachableError) Unwrap() error { return e.Err }
func (*BackendUnreachableError) cuminError()     {}

// BackendAuthError reports an authentication/authorization failure
// against a backend's remote service.
type BackendAuthError struct {
	Backend string
	Err     error
}

func NewBackendAuthError(backend string, err error) error {
	return &BackendAuthError{Backend: backend, Err: err}
}

func (e *BackendAuthError) Error() string {
	return fmt.Sprintf("backend %q authentication failed: %v", e.Backend, e.Err)
}

func (e *BackendAuthError) Unwrap() error { return e.Err }
func (*BackendAuthError) cuminError()     {}

// WorkerError reports a malformed Command/Target construction or
// executor invariant violation (mirrors the Python original's
// WorkerError for property validation failures).
type WorkerError struct {
	Property string
	Message  string
}

func NewWorkerError(property, message string) error {
	return &WorkerError{Property: property, Message: message}
}

func (e *WorkerError) Error() string {
	return fmt.Sprintf("%s %s", e.Property, e.Message)
}

func (*WorkerError) cuminError() {}

// HostFailure records a single host's command failure; it is
// aggregated into ExecutionResult rather than returned as the
// executor's top-level error.
type HostFailure struct {
	Host     string
	Command  string
	ExitCode int
}

func NewHostFailure(host, command string, exitCode int) error {
	return &HostFailure{Host: host, Command: command, ExitCode: exitCode}
}

func (e *HostFailure) Error() string {
	return fmt.Sprintf("host %s: command %q exited %d", e.Host, e.Command, e.ExitCode)
}

func (*HostFailure) cuminError() {}

// HostTimeout records a single host exceeding its per-command or
// global deadline.
type HostTimeout struct {
	Host    string
	Command string
}

func NewHostTimeout(host, command string) error {
	return &HostTimeout{Host: host, Command: command}
}

func (e *HostTimeout) Error() string {
	return fmt.Sprintf("host %s: command %q timed out", e.Host, e.Command)
}

func (*HostTimeout) cuminError() {}

// ThresholdNotMetError reports that a run's success ratio fell below
// the configured success threshold.
type ThresholdNotMetError struct {
	Command        string
	SuccessRatio   float64
	SuccessThreshold float64
}

func NewThresholdNotMetError(command string, ratio, threshold float64) error {
	return &ThresholdNotMetError{Command: command, SuccessRatio: ratio, SuccessThreshold: threshold}
}

func (e *ThresholdNotMetError) Error() string {
	return fmt.Sprintf("command %q success ratio %.2f below threshold %.2f", e.Command, e.SuccessRatio, e.SuccessThreshold)
}

func (*ThresholdNotMetError) cuminError() {}

// CancelledError reports that a run was cancelled, either by the
// caller's context or by the global timeout.
type CancelledError struct {
	Reason string
}

func NewCancelledError(reason string) error {
	return &CancelledError{Reason: reason}
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("run cancelled: %s", e.Reason)
}

func (*CancelledError) cuminError() {}

func joinArrow(path []string) string {
	out := ""
	for i, p := range path {
		if i > 0 {
			out += " -> "
		}
		out += p
	}
	return out
}
