package cmd

import "fmt"

// Exit codes for hiteval CLI
const (
	// ExitSuccess indicates all checks passed
	ExitSuccess = 0

	// ExitTestFailure indicates one or more checks failed
	ExitTestFailure = 1

	// ExitParseError indicates a suite parsing error
	ExitParseError = 2

	// ExitConfigError indicates a configuration error
	ExitConfigError = 3

	// ExitNetworkError indicates a network/connection error
	ExitNetworkError = 4

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)

// exitError carries a process exit code out of a RunE.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func withExitCode(code int, err error) error {
	return &exitError{code: code, err: err}
}
