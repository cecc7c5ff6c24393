package whailtest

import (
	"context"
	"errors"
	"io"
	"net"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/moby/moby/api/types/container"
	"github.com/moby/moby/client"

	"github.com/schmitthub/testenv/pkg/whail"
)

const (
	// TestLabelPrefix is the label prefix used by test engines.
	TestLabelPrefix = "com.whailtest"

	// TestManagedLabel is the managed label suffix used by test engines.
	TestManagedLabel = "managed"

	// TestHost is the daemon endpoint reported by test engines.
	TestHost = whail.DefaultUnixHost
)

// testManagedLabelKey is the full managed label key for test engines.
var testManagedLabelKey = TestLabelPrefix + "." + TestManagedLabel

// TestEngineOptions returns EngineOptions configured for unit testing.
func TestEngineOptions() whail.EngineOptions {
	return whail.EngineOptions{
		LabelPrefix:  TestLabelPrefix,
		ManagedLabel: TestManagedLabel,
		Host:         TestHost,
	}
}

// NewFakeAPIClient creates a FakeAPIClient with sensible defaults.
// The default inspect methods return managed resources so that whail's
// internal IsManaged checks pass transparently.
func NewFakeAPIClient() *FakeAPIClient {
	f := &FakeAPIClient{}

	f.PingFn = func(_ context.Context, _ client.PingOptions) (client.PingResult, error) {
		return client.PingResult{}, nil
	}

	f.ContainerInspectFn = func(_ context.Context, id string, _ client.ContainerInspectOptions) (client.ContainerInspectResult, error) {
		return ManagedContainerInspect(id), nil
	}

	f.ImageInspectFn = func(_ context.Context, _ string, _ ...client.ImageInspectOption) (client.ImageInspectResult, error) {
		return client.ImageInspectResult{}, nil
	}

	return f
}

// NewEngine wraps fake in a whail.Engine configured with TestEngineOptions.
func NewEngine(fake whail.APIClient) *whail.Engine {
	return whail.NewFromExisting(fake, TestEngineOptions())
}

// --- Managed resource factories ---

// ManagedContainerInspect returns a running ContainerInspectResult with managed labels set.
func ManagedContainerInspect(id string) client.ContainerInspectResult {
	return client.ContainerInspectResult{
		Container: container.InspectResponse{
			ID: id,
			Config: &container.Config{
				Labels: map[string]string{
					testManagedLabelKey: "true",
				},
			},
			State: &container.State{
				Status:  container.StateRunning,
				Running: true,
			},
		},
	}
}

// UnmanagedContainerInspect returns a ContainerInspectResult without managed labels.
func UnmanagedContainerInspect(id string) client.ContainerInspectResult {
	return client.ContainerInspectResult{
		Container: container.InspectResponse{
			ID:     id,
			Config: &container.Config{Labels: map[string]string{}},
			State:  &container.State{Status: container.StateRunning, Running: true},
		},
	}
}

// --- Error factories ---

type errNotFound struct {
	msg string
}

func (e errNotFound) Error() string { return e.msg }
func (e errNotFound) NotFound()     {}

// NotFoundError returns an error that satisfies errdefs.IsNotFound.
func NotFoundError(ref string) error {
	return errNotFound{msg: "No such object: " + ref}
}

type errConflict struct {
	msg string
}

func (e errConflict) Error() string { return e.msg }
func (e errConflict) Conflict()     {}

// ConflictError returns an error that satisfies errdefs.IsConflict.
func ConflictError(msg string) error {
	return errConflict{msg: msg}
}

// ConnectionRefusedError returns the error a client sees when the daemon socket is gone.
func ConnectionRefusedError() error {
	return &net.OpError{Op: "dial", Net: "unix", Err: errors.New("connect: connection refused")}
}

// --- Image pull helpers ---

// PullRecorder is a whail.ImagePullFn that records pulled references.
type PullRecorder struct {
	mu     sync.Mutex
	Pulled []string
	// Err, when set, is returned instead of pulling.
	Err error
}

// Pull implements whail.ImagePullFn.
func (p *PullRecorder) Pull(_ context.Context, ref string) (io.ReadCloser, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return nil, p.Err
	}
	p.Pulled = append(p.Pulled, ref)
	return io.NopCloser(strings.NewReader(`{"status":"Pull complete"}` + "\n")), nil
}

// Refs returns a copy of the pulled references.
func (p *PullRecorder) Refs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.Pulled...)
}

// --- Assertion helpers ---

// AssertCalled fails the test if the given method was not called on the fake.
func AssertCalled(t *testing.T, fake *FakeAPIClient, method string) {
	t.Helper()
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if !slices.Contains(fake.Calls, method) {
		t.Errorf("expected %s to be called, but it was not; calls: %v", method, fake.Calls)
	}
}

// AssertNotCalled fails the test if the given method was called on the fake.
func AssertNotCalled(t *testing.T, fake *FakeAPIClient, method string) {
	t.Helper()
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if slices.Contains(fake.Calls, method) {
		t.Errorf("expected %s to NOT be called, but it was; calls: %v", method, fake.Calls)
	}
}

// AssertCalledN fails the test if the given method was not called exactly n times.
func AssertCalledN(t *testing.T, fake *FakeAPIClient, method string, n int) {
	t.Helper()
	fake.mu.Lock()
	defer fake.mu.Unlock()
	count := 0
	for _, c := range fake.Calls {
		if c == method {
			count++
		}
	}
	if count != n {
		t.Errorf("expected %s to be called %d times, but was called %d times; calls: %v", method, n, count, fake.Calls)
	}
}
