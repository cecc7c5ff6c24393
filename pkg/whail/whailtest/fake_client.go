package whailtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/moby/moby/client"
)

// FakeAPIClient is a test double for whail.APIClient using the function-field
// pattern (Docker CLI convention). Each method has a corresponding Fn field.
// If the field is set, the fake records the call and delegates to it. If the
// field is nil, the call panics with "not implemented: MethodName".
type FakeAPIClient struct {
	// mu protects Calls from concurrent access.
	mu sync.Mutex

	// Calls records the method names invoked on this fake, in order.
	Calls []string

	PingFn func(ctx context.Context, options client.PingOptions) (client.PingResult, error)

	ImageInspectFn func(ctx context.Context, image string, opts ...client.ImageInspectOption) (client.ImageInspectResult, error)

	ContainerCreateFn  func(ctx context.Context, opts client.ContainerCreateOptions) (client.ContainerCreateResult, error)
	ContainerStartFn   func(ctx context.Context, container string, opts client.ContainerStartOptions) (client.ContainerStartResult, error)
	ContainerStopFn    func(ctx context.Context, container string, opts client.ContainerStopOptions) (client.ContainerStopResult, error)
	ContainerRemoveFn  func(ctx context.Context, container string, opts client.ContainerRemoveOptions) (client.ContainerRemoveResult, error)
	ContainerInspectFn func(ctx context.Context, container string, opts client.ContainerInspectOptions) (client.ContainerInspectResult, error)
	ContainerListFn    func(ctx context.Context, opts client.ContainerListOptions) (client.ContainerListResult, error)
	ContainerLogsFn    func(ctx context.Context, container string, opts client.ContainerLogsOptions) (client.ContainerLogsResult, error)

	NetworkCreateFn func(ctx context.Context, name string, opts client.NetworkCreateOptions) (client.NetworkCreateResult, error)
	NetworkRemoveFn func(ctx context.Context, network string, opts client.NetworkRemoveOptions) (client.NetworkRemoveResult, error)
	NetworkListFn   func(ctx context.Context, opts client.NetworkListOptions) (client.NetworkListResult, error)

	CloseFn func() error
}

// record appends a method name to the call log (thread-safe).
func (f *FakeAPIClient) record(method string) {
	f.mu.Lock()
	f.Calls = append(f.Calls, method)
	f.mu.Unlock()
}

// notImplemented panics with a descriptive message for unset function fields.
func notImplemented(method string) {
	panic(fmt.Sprintf("not implemented: %s; set %sFn on FakeAPIClient", method, method))
}

// Reset clears the Calls log.
func (f *FakeAPIClient) Reset() {
	f.mu.Lock()
	f.Calls = nil
	f.mu.Unlock()
}

// CallLog returns a copy of the recorded calls.
func (f *FakeAPIClient) CallLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Calls...)
}

func (f *FakeAPIClient) Ping(ctx context.Context, options client.PingOptions) (client.PingResult, error) {
	if f.PingFn == nil {
		notImplemented("Ping")
	}
	f.record("Ping")
	return f.PingFn(ctx, options)
}

func (f *FakeAPIClient) ImageInspect(ctx context.Context, image string, opts ...client.ImageInspectOption) (client.ImageInspectResult, error) {
	if f.ImageInspectFn == nil {
		notImplemented("ImageInspect")
	}
	f.record("ImageInspect")
	return f.ImageInspectFn(ctx, image, opts...)
}

func (f *FakeAPIClient) ContainerCreate(ctx context.Context, opts client.ContainerCreateOptions) (client.ContainerCreateResult, error) {
	if f.ContainerCreateFn == nil {
		notImplemented("ContainerCreate")
	}
	f.record("ContainerCreate")
	return f.ContainerCreateFn(ctx, opts)
}

func (f *FakeAPIClient) ContainerStart(ctx context.Context, container string, opts client.ContainerStartOptions) (client.ContainerStartResult, error) {
	if f.ContainerStartFn == nil {
		notImplemented("ContainerStart")
	}
	f.record("ContainerStart")
	return f.ContainerStartFn(ctx, container, opts)
}

func (f *FakeAPIClient) ContainerStop(ctx context.Context, container string, opts client.ContainerStopOptions) (client.ContainerStopResult, error) {
	if f.ContainerStopFn == nil {
		notImplemented("ContainerStop")
	}
	f.record("ContainerStop")
	return f.ContainerStopFn(ctx, container, opts)
}

func (f *FakeAPIClient) ContainerRemove(ctx context.Context, container string, opts client.ContainerRemoveOptions) (client.ContainerRemoveResult, error) {
	if f.ContainerRemoveFn == nil {
		notImplemented("ContainerRemove")
	}
	f.record("ContainerRemove")
	return f.ContainerRemoveFn(ctx, container, opts)
}

func (f *FakeAPIClient) ContainerInspect(ctx context.Context, container string, opts client.ContainerInspectOptions) (client.ContainerInspectResult, error) {
	if f.ContainerInspectFn == nil {
		notImplemented("ContainerInspect")
	}
	f.record("ContainerInspect")
	return f.ContainerInspectFn(ctx, container, opts)
}

func (f *FakeAPIClient) ContainerList(ctx context.Context, opts client.ContainerListOptions) (client.ContainerListResult, error) {
	if f.ContainerListFn == nil {
		notImplemented("ContainerList")
	}
	f.record("ContainerList")
	return f.ContainerListFn(ctx, opts)
}

func (f *FakeAPIClient) ContainerLogs(ctx context.Context, container string, opts client.ContainerLogsOptions) (client.ContainerLogsResult, error) {
	if f.ContainerLogsFn == nil {
		notImplemented("ContainerLogs")
	}
	f.record("ContainerLogs")
	return f.ContainerLogsFn(ctx, container, opts)
}

func (f *FakeAPIClient) NetworkCreate(ctx context.Context, name string, opts client.NetworkCreateOptions) (client.NetworkCreateResult, error) {
	if f.NetworkCreateFn == nil {
		notImplemented("NetworkCreate")
	}
	f.record("NetworkCreate")
	return f.NetworkCreateFn(ctx, name, opts)
}

func (f *FakeAPIClient) NetworkRemove(ctx context.Context, network string, opts client.NetworkRemoveOptions) (client.NetworkRemoveResult, error) {
	if f.NetworkRemoveFn == nil {
		notImplemented("NetworkRemove")
	}
	f.record("NetworkRemove")
	return f.NetworkRemoveFn(ctx, network, opts)
}

func (f *FakeAPIClient) NetworkList(ctx context.Context, opts client.NetworkListOptions) (client.NetworkListResult, error) {
	if f.NetworkListFn == nil {
		notImplemented("NetworkList")
	}
	f.record("NetworkList")
	return f.NetworkListFn(ctx, opts)
}

// Close succeeds unless CloseFn is set.
func (f *FakeAPIClient) Close() error {
	f.record("Close")
	if f.CloseFn == nil {
		return nil
	}
	return f.CloseFn()
}
