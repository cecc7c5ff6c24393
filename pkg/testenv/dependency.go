package testenv

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// State is the lifecycle state of a Dependency or Environment.
type State int

const (
	StateAssembled State = iota
	StateStarted
	StateReady
	StateRunning
	StateStopped
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateAssembled:
		return "assembled"
	case StateStarted:
		return "started"
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Dependency is one orchestrated unit with a start/ready/stop lifecycle.
//
// Start fails with ErrConflict when called on a dependency that is not
// assembled. WaitReady fails with ErrTimeout when timeout elapses and with
// ErrUnreachable when the engine connection is lost. Stop is safe after a
// partial start and succeeds when the backing resource is already gone.
// Name and State never block.
type Dependency interface {
	Name() string
	State() State
	Start(ctx context.Context) error
	WaitReady(ctx context.Context, timeout time.Duration) error
	Stop(ctx context.Context) error
}

// Runtime is what an Environment shares with its dependencies at Build.
type Runtime struct {
	Environment string
	Labels      map[string]string
	Logger      zerolog.Logger
	DinD        bool
	Variables   Variables
	// Networks maps local network names to their resource names.
	Networks map[string]string
}

// Binder is implemented by dependencies that take shared settings from the
// Environment that owns them. Binding to a second environment fails with
// ErrConflict.
type Binder interface {
	Bind(rt Runtime) error
}
