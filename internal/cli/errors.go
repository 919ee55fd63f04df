package cli

import (
	"errors"

	"github.com/samvad-hq/samvad-uplink/internal/app"
	"github.com/samvad-hq/samvad-uplink/pkg/httpclient"
)

// Exit codes returned by Execute.
const (
	ExitSuccess      = 0 // Success
	ExitGeneralError = 1 // General error (bad arguments, file I/O)
	ExitConfigError  = 2 // Configuration error (invalid env, unusable storage or publishers)
	ExitNetworkError = 4 // Backend unreachable or returned an error
)

// exitError attaches an exit code to a command failure.
type exitError struct {
	code   int
	msg    string
	err    error
	silent bool // already reported on stdout
}

func (e *exitError) Error() string {
	if e.msg != "" {
		return e.msg
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

// backendError classifies a command error and renders it for the terminal.
func backendError(err error) error {
	code := ExitGeneralError
	switch {
	case errors.Is(err, app.ErrLedgerUnavailable):
		code = ExitConfigError
	case isClientError(err):
		code = ExitNetworkError
	case errors.Is(err, httpclient.ErrInvalidJSON):
		code = ExitNetworkError
	}
	return &exitError{code: code, msg: app.Describe(err), err: err}
}

func isClientError(err error) bool {
	if _, ok := httpclient.IsTransport(err); ok {
		return true
	}
	_, ok := httpclient.IsRequestFailed(err)
	return ok
}

// exitCode extracts the exit code carried by err.
func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return ExitGeneralError
}
