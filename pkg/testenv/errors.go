package testenv

import (
	"errors"
	"fmt"
	"strings"

	"github.com/schmitthub/testenv/pkg/whail"
)

// Sentinel errors. Returned errors wrap one of these; test with errors.Is.
var (
	// ErrInvalidArgument reports a nil or empty required input.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrDuplicateKey reports a variable or resource name that is already present.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrConflict reports an operation that is invalid in the current lifecycle state.
	ErrConflict = errors.New("invalid lifecycle state")

	// ErrTimeout reports that readiness was not reached in time.
	ErrTimeout = errors.New("timed out waiting for readiness")

	// ErrUnreachable reports that the container engine connection was lost.
	ErrUnreachable = errors.New("container engine unreachable")

	// ErrNotImplemented is returned by capability hooks that are not supported yet.
	ErrNotImplemented = errors.New("not implemented")
)

// EngineError wraps a failed container engine operation on one dependency.
// It matches ErrUnreachable when the cause is a lost daemon connection.
type EngineError struct {
	Op   string // engine operation, e.g. "create", "start", "inspect"
	Name string // dependency resource name
	Err  error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Name, e.Err)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrUnreachable) hold for connection failures.
func (e *EngineError) Is(target error) bool {
	return target == ErrUnreachable && whail.IsUnreachable(e.Err)
}

func engineErr(op, name string, err error) error {
	if err == nil {
		return nil
	}
	return &EngineError{Op: op, Name: name, Err: err}
}

// DependencyError is one dependency's failure during teardown.
type DependencyError struct {
	Name string
	Err  error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s: %v", e.Name, e.Err)
}

func (e *DependencyError) Unwrap() error {
	return e.Err
}

// TeardownError carries every dependency that failed to stop.
type TeardownError struct {
	Environment string
	Failures    []DependencyError
}

func (e *TeardownError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "teardown of environment %s: %d dependencies failed to stop", e.Environment, len(e.Failures))
	for _, f := range e.Failures {
		sb.WriteString("; ")
		sb.WriteString(f.Error())
	}
	return sb.String()
}

func (e *TeardownError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i := range e.Failures {
		errs[i] = &e.Failures[i]
	}
	return errs
}

// Names returns the names of the dependencies that failed to stop.
func (e *TeardownError) Names() []string {
	names := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		names[i] = f.Name
	}
	return names
}

// StartError reports the dependency that stopped Environment.Start. It
// unwraps to the original cause; Rollback holds any cleanup failure.
type StartError struct {
	Name     string
	Err      error
	Rollback error
}

func (e *StartError) Error() string {
	msg := fmt.Sprintf("start dependency %s: %v", e.Name, e.Err)
	if e.Rollback != nil {
		msg += fmt.Sprintf(" (rollback: %v)", e.Rollback)
	}
	return msg
}

func (e *StartError) Unwrap() error {
	return e.Err
}

func invalidArg(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
