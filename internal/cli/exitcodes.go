package cli

import (
	"errors"
	"io/fs"

	"github.com/yaklabco/tsweave/pkg/rewrite"
	"github.com/yaklabco/tsweave/pkg/runner"
)

// Exit codes for tsweave.
const (
	// ExitSuccess means every unit was processed.
	ExitSuccess = 0

	// ExitFailures means at least one unit failed.
	ExitFailures = 1

	// ExitChanges means --check found units that would change.
	ExitChanges = 2

	// ExitInvalidUsage indicates invalid command-line usage.
	ExitInvalidUsage = 64

	// ExitConfigError indicates configuration file errors.
	ExitConfigError = 65

	// ExitInternalError indicates an internal error.
	ExitInternalError = 70

	// ExitIOError indicates file I/O errors.
	ExitIOError = 74
)

var (
	// ErrUnitFailures is returned when units failed under the recoverable
	// policy. The failures have already been reported.
	ErrUnitFailures = errors.New("some units failed")

	// ErrChangesFound is returned by --check when units would change.
	ErrChangesFound = errors.New("units would change")
)

// codedError carries the exit code of a failure detected by a command,
// such as a bad flag value or an unreadable config file.
type codedError struct {
	code int
	err  error
}

func (e *codedError) Error() string { return e.err.Error() }
func (e *codedError) Unwrap() error { return e.err }

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &codedError{code: code, err: err}
}

// ResultError returns the error a finished run maps to.
func ResultError(result *runner.Result, check bool) error {
	switch {
	case result == nil:
		return nil
	case result.HasFailures():
		return ErrUnitFailures
	case check && result.HasChanges():
		return ErrChangesFound
	default:
		return nil
	}
}

// ExitCode maps a command error to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	if errors.Is(err, ErrChangesFound) {
		return ExitChanges
	}
	if errors.Is(err, ErrUnitFailures) {
		return ExitFailures
	}

	var coded *codedError
	if errors.As(err, &coded) {
		return coded.code
	}
	if _, ok := rewrite.AsPluginError(err); ok {
		return ExitFailures
	}
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return ExitIOError
	}
	return ExitInternalError
}

// Silent reports whether err was already reported to the user.
func Silent(err error) bool {
	return errors.Is(err, ErrUnitFailures) || errors.Is(err, ErrChangesFound)
}
