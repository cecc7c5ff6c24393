package testenv

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// DefaultReadyTimeout bounds each dependency's WaitReady during Start.
const DefaultReadyTimeout = 60 * time.Second

// Environment is a named set of dependencies started and stopped together.
// It is produced by Builder.Build and is not restartable.
type Environment struct {
	name         string
	deps         []Dependency
	locals       map[string]int
	logger       zerolog.Logger
	vars         Variables
	readyTimeout time.Duration
	parallel     bool

	mu    sync.Mutex
	state State
}

// Name returns the environment name.
func (e *Environment) Name() string {
	return e.name
}

// Dependencies returns the dependencies in declaration order.
func (e *Environment) Dependencies() []Dependency {
	return slices.Clone(e.deps)
}

// Dependency looks up a dependency by resource name or by the local name it
// was declared with.
func (e *Environment) Dependency(name string) (Dependency, bool) {
	if i, ok := e.locals[name]; ok {
		return e.deps[i], true
	}
	for _, d := range e.deps {
		if d.Name() == name {
			return d, true
		}
	}
	return nil, false
}

// Logger returns the logger shared by the dependencies.
func (e *Environment) Logger() zerolog.Logger {
	return e.logger
}

// Variables returns a copy of the shared variables.
func (e *Environment) Variables() Variables {
	return e.vars.Clone()
}

// State returns StateAssembled, StateStarted while starting, StateRunning,
// StateFailed after a rolled back start, or StateStopped.
func (e *Environment) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Environment) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

// Start starts every dependency and waits for it to be ready. Sequential
// environments finish each dependency before starting the next; parallel
// environments create their networks before starting anything else. On failure
// everything started so far is stopped in reverse order and a *StartError
// wrapping the cause is returned.
func (e *Environment) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.state != StateAssembled {
		st := e.state
		e.mu.Unlock()
		return fmt.Errorf("%w: start environment %s: environment is %s", ErrConflict, e.name, st)
	}
	e.state = StateStarted
	e.mu.Unlock()

	e.logger.Info().Int("dependencies", len(e.deps)).Bool("parallel", e.parallel).Msg("starting environment")
	start := time.Now()

	var err *StartError
	if e.parallel {
		err = e.startParallel(ctx)
	} else {
		err = e.startSequential(ctx)
	}
	if err != nil {
		e.setState(StateFailed)
		e.logger.Error().Err(err.Err).Str("dependency", err.Name).Msg("environment start failed")
		return err
	}

	e.setState(StateRunning)
	e.logger.Info().Dur("elapsed", time.Since(start)).Msg("environment running")
	return nil
}

func (e *Environment) startSequential(ctx context.Context) *StartError {
	for i, d := range e.deps {
		if err := e.startOne(ctx, d); err != nil {
			return &StartError{
				Name:     d.Name(),
				Err:      err,
				Rollback: e.rollback(ctx, e.deps[:i+1]),
			}
		}
	}
	return nil
}

// startParallel creates every network first, then starts the remaining
// dependencies concurrently so containers never race the networks they join.
func (e *Environment) startParallel(ctx context.Context) *StartError {
	var networks, rest []Dependency
	for _, d := range e.deps {
		if _, ok := d.(*Network); ok {
			networks = append(networks, d)
		} else {
			rest = append(rest, d)
		}
	}

	err := e.startGroup(ctx, networks)
	if err == nil {
		err = e.startGroup(ctx, rest)
	}
	if err == nil {
		return nil
	}

	se := &StartError{Err: err}
	var de *DependencyError
	if errors.As(err, &de) {
		se.Name, se.Err = de.Name, de.Err
	}
	se.Rollback = e.rollback(ctx, e.deps)
	return se
}

func (e *Environment) startGroup(ctx context.Context, deps []Dependency) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, d := range deps {
		g.Go(func() error {
			if err := e.startOne(gctx, d); err != nil {
				return &DependencyError{Name: d.Name(), Err: err}
			}
			return nil
		})
	}
	return g.Wait()
}

func (e *Environment) startOne(ctx context.Context, d Dependency) error {
	if err := d.Start(ctx); err != nil {
		return err
	}
	return d.WaitReady(ctx, e.readyTimeout)
}

// rollback stops deps in reverse order on a context that ignores the
// caller's cancellation.
func (e *Environment) rollback(ctx context.Context, deps []Dependency) error {
	ctx = context.WithoutCancel(ctx)
	var errs error
	for i := len(deps) - 1; i >= 0; i-- {
		d := deps[i]
		if err := d.Stop(ctx); err != nil {
			e.logger.Error().Err(err).Str("dependency", d.Name()).Msg("rollback failed")
			errs = multierr.Append(errs, &DependencyError{Name: d.Name(), Err: err})
		}
	}
	return errs
}

// Stop stops every dependency in reverse declaration order. All of them are
// attempted; failures are returned together as a *TeardownError. Stopping a
// stopped environment does nothing.
func (e *Environment) Stop(ctx context.Context) error {
	e.mu.Lock()
	if e.state == StateStopped {
		e.mu.Unlock()
		return nil
	}
	e.state = StateStopped
	e.mu.Unlock()

	e.logger.Info().Msg("stopping environment")

	var errs error
	for i := len(e.deps) - 1; i >= 0; i-- {
		d := e.deps[i]
		if err := d.Stop(ctx); err != nil {
			e.logger.Error().Err(err).Str("dependency", d.Name()).Msg("dependency teardown failed")
			errs = multierr.Append(errs, &DependencyError{Name: d.Name(), Err: err})
		}
	}
	if errs == nil {
		e.logger.Info().Msg("environment stopped")
		return nil
	}

	te := &TeardownError{Environment: e.name}
	for _, err := range multierr.Errors(errs) {
		var de *DependencyError
		if errors.As(err, &de) {
			te.Failures = append(te.Failures, *de)
		}
	}
	return te
}
