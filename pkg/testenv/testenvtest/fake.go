// Package testenvtest provides a scripted Dependency for testing code that
// drives testenv environments without a container engine.
package testenvtest

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/schmitthub/testenv/pkg/testenv"
)

// Recorder is a call log shared by several fakes, so tests can assert the
// order of calls across dependencies.
type Recorder struct {
	mu    sync.Mutex
	calls []string
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) record(name, method string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.calls = append(r.calls, method+":"+name)
	r.mu.Unlock()
}

// Calls returns the recorded calls formatted "Method:name", in order.
func (r *Recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

// Filter returns the recorded calls of one method, in order.
func (r *Recorder) Filter(method string) []string {
	var out []string
	for _, c := range r.Calls() {
		if len(c) > len(method) && c[:len(method)+1] == method+":" {
			out = append(out, c)
		}
	}
	return out
}

// FakeDependency is a testenv.Dependency whose outcome is scripted through
// its Err and Fn fields. It follows the lifecycle rules of real dependencies:
// a second Start fails with ErrConflict and Stop of a never started
// dependency succeeds.
type FakeDependency struct {
	name string
	rec  *Recorder

	// StartErr, ReadyErr and StopErr are returned by the matching method.
	StartErr error
	ReadyErr error
	StopErr  error

	// StartFn, when set, runs inside Start before StartErr is consulted.
	StartFn func(ctx context.Context) error
	// ReadyFn, when set, replaces the ReadyErr check.
	ReadyFn func(ctx context.Context, timeout time.Duration) error
	// StopFn, when set, replaces the StopErr check.
	StopFn func(ctx context.Context) error

	mu      sync.Mutex
	state   testenv.State
	stops   int
	timeout time.Duration
	rt      *testenv.Runtime
}

var (
	_ testenv.Dependency = (*FakeDependency)(nil)
	_ testenv.Binder     = (*FakeDependency)(nil)
)

// New returns a FakeDependency named name recording into rec. rec may be nil.
func New(name string, rec *Recorder) *FakeDependency {
	return &FakeDependency{name: name, rec: rec}
}

func (f *FakeDependency) Name() string { return f.name }

func (f *FakeDependency) State() testenv.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Bind records the runtime it was given.
func (f *FakeDependency) Bind(rt testenv.Runtime) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rt != nil && f.rt.Environment != rt.Environment {
		return fmt.Errorf("%w: %s already belongs to %s", testenv.ErrConflict, f.name, f.rt.Environment)
	}
	f.rt = &rt
	return nil
}

// Runtime returns what Bind received, or nil.
func (f *FakeDependency) Runtime() *testenv.Runtime {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rt
}

func (f *FakeDependency) Start(ctx context.Context) error {
	f.rec.record(f.name, "Start")
	f.mu.Lock()
	if f.state != testenv.StateAssembled {
		st := f.state
		f.mu.Unlock()
		return fmt.Errorf("%w: %s is %s", testenv.ErrConflict, f.name, st)
	}
	f.state = testenv.StateStarted
	f.mu.Unlock()

	if f.StartFn != nil {
		if err := f.StartFn(ctx); err != nil {
			f.setState(testenv.StateFailed)
			return err
		}
	}
	if f.StartErr != nil {
		f.setState(testenv.StateFailed)
		return f.StartErr
	}
	return nil
}

func (f *FakeDependency) WaitReady(ctx context.Context, timeout time.Duration) error {
	f.rec.record(f.name, "WaitReady")
	f.mu.Lock()
	f.timeout = timeout
	f.mu.Unlock()

	err := f.ReadyErr
	if f.ReadyFn != nil {
		err = f.ReadyFn(ctx, timeout)
	}
	if err != nil {
		f.setState(testenv.StateFailed)
		return err
	}
	f.setState(testenv.StateReady)
	return nil
}

func (f *FakeDependency) Stop(ctx context.Context) error {
	f.rec.record(f.name, "Stop")
	f.mu.Lock()
	f.stops++
	f.mu.Unlock()
	err := f.StopErr
	if f.StopFn != nil {
		err = f.StopFn(ctx)
	}
	if err != nil {
		return err
	}
	f.setState(testenv.StateStopped)
	return nil
}

// Stops returns how many times Stop was called.
func (f *FakeDependency) Stops() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stops
}

// ReadyTimeout returns the timeout of the last WaitReady call.
func (f *FakeDependency) ReadyTimeout() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.timeout
}

func (f *FakeDependency) setState(s testenv.State) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
}
