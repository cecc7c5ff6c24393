package cmdutil

import (
	"errors"
	"fmt"
)

// FlagError indicates bad flags or arguments. Main prints the command usage
// after it.
type FlagError struct {
	err error
}

func (e *FlagError) Error() string { return e.err.Error() }
func (e *FlagError) Unwrap() error { return e.err }

// FlagErrorf creates a FlagError with a formatted message.
func FlagErrorf(format string, args ...any) error {
	return &FlagError{err: fmt.Errorf(format, args...)}
}

// SilentError signals that the error has already been displayed to the user.
// Main exits non-zero without printing anything else.
var SilentError = errors.New("SilentError")
