package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSessionClosed is returned when a step is sent to a session that has already ended
// or whose interpreter has exited.
var ErrSessionClosed = errors.New("session closed")

// ErrUnsupportedPlatform is returned by backends that cannot run on the current host.
var ErrUnsupportedPlatform = errors.New("unsupported platform")

// ConfigError reports a malformed or inconsistent configuration document.
// It is fatal: the pass is aborted before any execution starts.
type ConfigError struct {
	Path   string // Location in the document, e.g. "pipelines[0]" or "build.compile.backend"
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	msg := e.Reason
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = fmt.Sprintf("%s: %v", msg, e.Err)
		}
	}
	if e.Path == "" {
		return "config: " + msg
	}
	return fmt.Sprintf("config %s: %s", e.Path, msg)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// BackendError reports that a session could not be started or lost its transport.
// It marks the owning Action as failed; the pass continues.
type BackendError struct {
	Backend BackendKind
	Op      string // "start", "run" or "end"
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s backend %s: %v", e.Backend, e.Op, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// StepError reports a step that exited with a nonzero code.
type StepError struct {
	Step     string
	ExitCode int
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %q exited with code %d", e.Step, e.ExitCode)
}

// WatchError reports a filesystem failure while monitoring the source directory.
type WatchError struct {
	Path string
	Err  error
}

func (e *WatchError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("watch: %v", e.Err)
	}
	return fmt.Sprintf("watch %s: %v", e.Path, e.Err)
}

func (e *WatchError) Unwrap() error { return e.Err }

// AggregateError represents multiple configuration failures.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d configuration errors:\n", len(e.Errors))
	for i, err := range e.Errors {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, err.Error())
	}
	return b.String()
}

func (e *AggregateError) Unwrap() []error { return e.Errors }

// Join returns nil for no errors, the error itself for one, and an AggregateError otherwise.
func Join(errs []error) error {
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	}
	return &AggregateError{Errors: errs}
}

// IsConfigError reports whether err is, or wraps, a ConfigError.
func IsConfigError(err error) bool {
	var cfgErr *ConfigError
	return errors.As(err, &cfgErr)
}
