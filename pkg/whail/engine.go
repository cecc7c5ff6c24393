package whail

import (
	"context"
	"io"

	"github.com/moby/moby/client"
)

// APIClient is the subset of the moby client.APIClient that whail drives.
// *client.Client satisfies it; whailtest.FakeAPIClient fakes it.
type APIClient interface {
	Ping(ctx context.Context, options client.PingOptions) (client.PingResult, error)

	ImageInspect(ctx context.Context, image string, opts ...client.ImageInspectOption) (client.ImageInspectResult, error)

	ContainerCreate(ctx context.Context, opts client.ContainerCreateOptions) (client.ContainerCreateResult, error)
	ContainerStart(ctx context.Context, container string, opts client.ContainerStartOptions) (client.ContainerStartResult, error)
	ContainerStop(ctx context.Context, container string, opts client.ContainerStopOptions) (client.ContainerStopResult, error)
	ContainerRemove(ctx context.Context, container string, opts client.ContainerRemoveOptions) (client.ContainerRemoveResult, error)
	ContainerInspect(ctx context.Context, container string, opts client.ContainerInspectOptions) (client.ContainerInspectResult, error)
	ContainerList(ctx context.Context, opts client.ContainerListOptions) (client.ContainerListResult, error)
	ContainerLogs(ctx context.Context, container string, opts client.ContainerLogsOptions) (client.ContainerLogsResult, error)

	NetworkCreate(ctx context.Context, name string, opts client.NetworkCreateOptions) (client.NetworkCreateResult, error)
	NetworkRemove(ctx context.Context, network string, opts client.NetworkRemoveOptions) (client.NetworkRemoveResult, error)
	NetworkList(ctx context.Context, opts client.NetworkListOptions) (client.NetworkListResult, error)

	Close() error
}

// ImagePullFn pulls ref and returns the progress stream. The caller drains and closes it.
type ImagePullFn func(ctx context.Context, ref string) (io.ReadCloser, error)

// EngineOptions configures the behavior of the Engine.
type EngineOptions struct {
	// LabelPrefix is the prefix for all managed labels (e.g., "com.testenv").
	// Used to construct the managed label key: "{LabelPrefix}.{ManagedLabel}".
	LabelPrefix string

	// ManagedLabel is the label key suffix that marks resources as managed.
	// Default: "managed".
	ManagedLabel string

	// Labels configures labels for different resource types.
	Labels LabelConfig

	// Host is the daemon endpoint. Empty means HostFromEnv().
	Host string
}

// DefaultManagedLabel is the default label suffix for marking managed resources.
const DefaultManagedLabel = "managed"

// DefaultLabelPrefix is used when EngineOptions.LabelPrefix is empty.
const DefaultLabelPrefix = "com.testenv"

// Engine wraps the Docker client with automatic label-based resource isolation.
// Every resource it creates carries the managed label, and destructive
// operations refuse to touch resources that do not.
type Engine struct {
	APIClient

	// ImagePuller pulls missing images. New wires the SDK pull; tests replace it.
	ImagePuller ImagePullFn

	options EngineOptions
	host    string

	managedLabelKey   string
	managedLabelValue string
}

// New connects to the Docker daemon at opts.Host (or the environment default)
// and verifies the connection.
func New(ctx context.Context, opts EngineOptions) (*Engine, error) {
	host := opts.Host
	if host == "" {
		host = HostFromEnv()
	}

	cli, err := client.New(client.FromEnv, client.WithHost(host))
	if err != nil {
		return nil, ErrDockerNotRunning(err)
	}

	opts.Host = host
	engine := NewFromExisting(cli, opts)
	engine.ImagePuller = func(ctx context.Context, ref string) (io.ReadCloser, error) {
		return cli.ImagePull(ctx, ref, client.ImagePullOptions{})
	}

	if err := engine.HealthCheck(ctx); err != nil {
		cli.Close()
		return nil, err
	}
	return engine, nil
}

// NewFromExisting wraps an already-constructed API client. No connection check is made.
func NewFromExisting(api APIClient, opts EngineOptions) *Engine {
	if opts.LabelPrefix == "" {
		opts.LabelPrefix = DefaultLabelPrefix
	}
	if opts.ManagedLabel == "" {
		opts.ManagedLabel = DefaultManagedLabel
	}
	return &Engine{
		APIClient:         api,
		options:           opts,
		host:              opts.Host,
		managedLabelKey:   opts.LabelPrefix + "." + opts.ManagedLabel,
		managedLabelValue: "true",
	}
}

// HealthCheck verifies the Docker daemon is reachable.
func (e *Engine) HealthCheck(ctx context.Context) error {
	if _, err := e.APIClient.Ping(ctx, client.PingOptions{}); err != nil {
		return ErrDockerNotRunning(err)
	}
	return nil
}

// Close releases Docker client resources.
func (e *Engine) Close() error {
	return e.APIClient.Close()
}

// Host returns the daemon endpoint the engine talks to.
func (e *Engine) Host() string {
	return e.host
}

// Options returns the engine options.
func (e *Engine) Options() EngineOptions {
	return e.options
}

// LabelKey returns "{LabelPrefix}.{name}".
func (e *Engine) LabelKey(name string) string {
	return e.options.LabelPrefix + "." + name
}

// ManagedLabelKey returns the full managed label key (e.g., "com.testenv.managed").
func (e *Engine) ManagedLabelKey() string {
	return e.managedLabelKey
}

// ManagedLabelValue returns the managed label value (always "true").
func (e *Engine) ManagedLabelValue() string {
	return e.managedLabelValue
}

// newManagedFilter creates a new filter with just the managed label.
func (e *Engine) newManagedFilter() client.Filters {
	return LabelFilter(e.managedLabelKey, e.managedLabelValue)
}

func (e *Engine) managedLabels() map[string]string {
	return map[string]string{
		e.managedLabelKey: e.managedLabelValue,
	}
}

// containerLabels returns labels for a container, including managed label.
func (e *Engine) containerLabels(extra ...map[string]string) map[string]string {
	all := append([]map[string]string{e.options.Labels.ContainerLabels(), e.managedLabels()}, extra...)
	return MergeLabels(all...)
}

// networkLabels returns labels for a network, including managed label.
func (e *Engine) networkLabels(extra ...map[string]string) map[string]string {
	all := append([]map[string]string{e.options.Labels.NetworkLabels(), e.managedLabels()}, extra...)
	return MergeLabels(all...)
}
