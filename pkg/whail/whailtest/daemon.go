package whailtest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"maps"
	"net/netip"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/moby/moby/api/pkg/stdcopy"
	"github.com/moby/moby/api/types/container"
	"github.com/moby/moby/api/types/network"
	"github.com/moby/moby/client"

	"github.com/schmitthub/testenv/pkg/whail"
)

// FakeContainer is a snapshot of a container held by a FakeDaemon.
type FakeContainer struct {
	ID         string
	Name       string
	Image      string
	Env        []string
	Cmd        []string
	Labels     map[string]string
	Running    bool
	PublishAll bool
	Ports      network.PortMap
	Networks   []string
	IP         netip.Addr
	ExitCode   int
}

type fakeContainer struct {
	FakeContainer
	health container.HealthStatus
	logs   string
}

type fakeNetwork struct {
	id     string
	name   string
	labels map[string]string
}

// FakeDaemon is an in-memory Docker daemon behind a FakeAPIClient. It keeps
// containers, images and networks as state so that lifecycle code can be
// exercised end to end without a live engine.
type FakeDaemon struct {
	API    *FakeAPIClient
	Puller *PullRecorder

	mu          sync.Mutex
	images      map[string]bool
	containers  map[string]*fakeContainer
	networks    map[string]*fakeNetwork
	seq         int
	nextPort    int
	unreachable bool
	startErrs   map[string]error
	exitOnStart map[string]int
	events      []string
}

// NewFakeDaemon returns an empty daemon with every FakeAPIClient method wired.
func NewFakeDaemon() *FakeDaemon {
	d := &FakeDaemon{
		API:         &FakeAPIClient{},
		images:      make(map[string]bool),
		containers:  make(map[string]*fakeContainer),
		networks:    make(map[string]*fakeNetwork),
		nextPort:    32768,
		startErrs:   make(map[string]error),
		exitOnStart: make(map[string]int),
	}
	d.Puller = &PullRecorder{}
	d.wire()
	return d
}

// Engine returns a whail engine backed by the daemon, with image pulls
// recorded by d.Puller and landing in the daemon's image store.
func (d *FakeDaemon) Engine() *whail.Engine {
	e := NewEngine(d.API)
	e.ImagePuller = func(ctx context.Context, ref string) (io.ReadCloser, error) {
		if err := d.check(); err != nil {
			return nil, err
		}
		rc, err := d.Puller.Pull(ctx, ref)
		if err != nil {
			return nil, err
		}
		d.AddImage(ref)
		return rc, nil
	}
	return e
}

// AddImage marks refs as present locally.
func (d *FakeDaemon) AddImage(refs ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, r := range refs {
		d.images[r] = true
	}
}

// SetUnreachable makes every call fail as if the daemon socket were gone.
func (d *FakeDaemon) SetUnreachable(v bool) {
	d.mu.Lock()
	d.unreachable = v
	d.mu.Unlock()
}

// SetNextHostPort makes the next published port bind to port.
func (d *FakeDaemon) SetNextHostPort(port int) {
	d.mu.Lock()
	d.nextPort = port
	d.mu.Unlock()
}

// FailStart makes ContainerStart of the named container return err.
func (d *FakeDaemon) FailStart(name string, err error) {
	d.mu.Lock()
	d.startErrs[name] = err
	d.mu.Unlock()
}

// ExitOnStart makes the named container exit with code right after it starts.
func (d *FakeDaemon) ExitOnStart(name string, code int) {
	d.mu.Lock()
	d.exitOnStart[name] = code
	d.mu.Unlock()
}

// SetHealth sets the healthcheck status reported for the named container.
func (d *FakeDaemon) SetHealth(name string, status container.HealthStatus) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if c := d.lookup(name); c != nil {
		c.health = status
	}
}

// SetLogs sets the stdout log content of the named container.
func (d *FakeDaemon) SetLogs(name, logs string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if c := d.lookup(name); c != nil {
		c.logs = logs
	}
}

// Container returns a snapshot of the container with the given name or ID.
func (d *FakeDaemon) Container(ref string) (FakeContainer, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c := d.lookup(ref)
	if c == nil {
		return FakeContainer{}, false
	}
	snap := c.FakeContainer
	snap.Env = slices.Clone(c.Env)
	snap.Labels = maps.Clone(c.Labels)
	return snap, true
}

// ContainerNames returns the sorted names of all containers.
func (d *FakeDaemon) ContainerNames() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	names := make([]string, 0, len(d.containers))
	for _, c := range d.containers {
		names = append(names, c.Name)
	}
	sort.Strings(names)
	return names
}

// NetworkNames returns the sorted names of all networks.
func (d *FakeDaemon) NetworkNames() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	names := make([]string, 0, len(d.networks))
	for _, n := range d.networks {
		names = append(names, n.name)
	}
	sort.Strings(names)
	return names
}

// Events returns the lifecycle events in order, formatted "verb:name".
func (d *FakeDaemon) Events() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.events)
}

func (d *FakeDaemon) check() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.unreachable {
		return ConnectionRefusedError()
	}
	return nil
}

// lookup finds a container by ID or name. Caller holds d.mu.
func (d *FakeDaemon) lookup(ref string) *fakeContainer {
	ref = strings.TrimPrefix(ref, "/")
	if c, ok := d.containers[ref]; ok {
		return c
	}
	for _, c := range d.containers {
		if c.Name == ref {
			return c
		}
	}
	return nil
}

// lookupNetwork finds a network by ID or name. Caller holds d.mu.
func (d *FakeDaemon) lookupNetwork(ref string) *fakeNetwork {
	if n, ok := d.networks[ref]; ok {
		return n
	}
	for _, n := range d.networks {
		if n.name == ref {
			return n
		}
	}
	return nil
}

func (d *FakeDaemon) nextID(prefix string) string {
	d.seq++
	return fmt.Sprintf("%s%012d", prefix, d.seq)
}

func (d *FakeDaemon) inspect(c *fakeContainer) container.InspectResponse {
	state := &container.State{
		Running:  c.Running,
		ExitCode: c.ExitCode,
		Status:   container.StateCreated,
	}
	if c.Running {
		state.Status = container.StateRunning
	} else if c.ExitCode != 0 {
		state.Status = container.StateExited
	}
	if c.health != "" {
		state.Health = &container.Health{Status: c.health}
	}

	settings := &container.NetworkSettings{}
	settings.Ports = network.PortMap{}
	if c.Running {
		maps.Copy(settings.Ports, c.Ports)
	}
	settings.Networks = map[string]*network.EndpointSettings{}
	for _, n := range c.Networks {
		ep := &network.EndpointSettings{}
		if c.Running {
			ep.IPAddress = c.IP
		}
		settings.Networks[n] = ep
	}

	return container.InspectResponse{
		ID:    c.ID,
		Name:  "/" + c.Name,
		Image: c.Image,
		Config: &container.Config{
			Image:  c.Image,
			Env:    slices.Clone(c.Env),
			Cmd:    slices.Clone(c.Cmd),
			Labels: maps.Clone(c.Labels),
		},
		State:           state,
		NetworkSettings: settings,
	}
}

func (d *FakeDaemon) wire() {
	f := d.API

	f.PingFn = func(_ context.Context, _ client.PingOptions) (client.PingResult, error) {
		if err := d.check(); err != nil {
			return client.PingResult{}, err
		}
		return client.PingResult{}, nil
	}

	f.ImageInspectFn = func(_ context.Context, ref string, _ ...client.ImageInspectOption) (client.ImageInspectResult, error) {
		if err := d.check(); err != nil {
			return client.ImageInspectResult{}, err
		}
		d.mu.Lock()
		defer d.mu.Unlock()
		if !d.images[ref] {
			return client.ImageInspectResult{}, NotFoundError(ref)
		}
		return client.ImageInspectResult{}, nil
	}

	f.ContainerCreateFn = func(_ context.Context, opts client.ContainerCreateOptions) (client.ContainerCreateResult, error) {
		if err := d.check(); err != nil {
			return client.ContainerCreateResult{}, err
		}
		d.mu.Lock()
		defer d.mu.Unlock()
		if opts.Config == nil {
			return client.ContainerCreateResult{}, fmt.Errorf("config cannot be empty")
		}
		if !d.images[opts.Config.Image] {
			return client.ContainerCreateResult{}, NotFoundError(opts.Config.Image)
		}
		if opts.Name != "" && d.lookup(opts.Name) != nil {
			return client.ContainerCreateResult{}, ConflictError(fmt.Sprintf("container name %q is already in use", opts.Name))
		}

		c := &fakeContainer{}
		c.ID = d.nextID("c")
		c.Name = opts.Name
		if c.Name == "" {
			c.Name = c.ID
		}
		c.Image = opts.Config.Image
		c.Env = slices.Clone(opts.Config.Env)
		c.Cmd = slices.Clone(opts.Config.Cmd)
		c.Labels = maps.Clone(opts.Config.Labels)
		c.IP = netip.AddrFrom4([4]byte{172, 18, 0, byte(1 + d.seq%250)})
		c.Networks = []string{"bridge"}
		if opts.NetworkingConfig != nil && len(opts.NetworkingConfig.EndpointsConfig) > 0 {
			c.Networks = nil
			for name := range opts.NetworkingConfig.EndpointsConfig {
				if d.lookupNetwork(name) == nil {
					return client.ContainerCreateResult{}, NotFoundError("network " + name)
				}
				c.Networks = append(c.Networks, name)
			}
			sort.Strings(c.Networks)
		}

		c.Ports = network.PortMap{}
		if opts.HostConfig != nil {
			c.PublishAll = opts.HostConfig.PublishAllPorts
			for p, bindings := range opts.HostConfig.PortBindings {
				c.Ports[p] = d.bind(bindings)
			}
			if c.PublishAll {
				for p := range opts.Config.ExposedPorts {
					if _, ok := c.Ports[p]; !ok {
						c.Ports[p] = d.bind(nil)
					}
				}
			}
		}

		d.containers[c.ID] = c
		d.events = append(d.events, "create:"+c.Name)
		return client.ContainerCreateResult{ID: c.ID}, nil
	}

	f.ContainerStartFn = func(_ context.Context, ref string, _ client.ContainerStartOptions) (client.ContainerStartResult, error) {
		if err := d.check(); err != nil {
			return client.ContainerStartResult{}, err
		}
		d.mu.Lock()
		defer d.mu.Unlock()
		c := d.lookup(ref)
		if c == nil {
			return client.ContainerStartResult{}, NotFoundError(ref)
		}
		if err, ok := d.startErrs[c.Name]; ok {
			return client.ContainerStartResult{}, err
		}
		d.events = append(d.events, "start:"+c.Name)
		if code, ok := d.exitOnStart[c.Name]; ok {
			c.Running = false
			c.ExitCode = code
			return client.ContainerStartResult{}, nil
		}
		c.Running = true
		return client.ContainerStartResult{}, nil
	}

	f.ContainerStopFn = func(_ context.Context, ref string, _ client.ContainerStopOptions) (client.ContainerStopResult, error) {
		if err := d.check(); err != nil {
			return client.ContainerStopResult{}, err
		}
		d.mu.Lock()
		defer d.mu.Unlock()
		c := d.lookup(ref)
		if c == nil {
			return client.ContainerStopResult{}, NotFoundError(ref)
		}
		c.Running = false
		d.events = append(d.events, "stop:"+c.Name)
		return client.ContainerStopResult{}, nil
	}

	f.ContainerRemoveFn = func(_ context.Context, ref string, opts client.ContainerRemoveOptions) (client.ContainerRemoveResult, error) {
		if err := d.check(); err != nil {
			return client.ContainerRemoveResult{}, err
		}
		d.mu.Lock()
		defer d.mu.Unlock()
		c := d.lookup(ref)
		if c == nil {
			return client.ContainerRemoveResult{}, NotFoundError(ref)
		}
		if c.Running && !opts.Force {
			return client.ContainerRemoveResult{}, ConflictError(fmt.Sprintf("cannot remove running container %s", c.Name))
		}
		delete(d.containers, c.ID)
		d.events = append(d.events, "remove:"+c.Name)
		return client.ContainerRemoveResult{}, nil
	}

	f.ContainerInspectFn = func(_ context.Context, ref string, _ client.ContainerInspectOptions) (client.ContainerInspectResult, error) {
		if err := d.check(); err != nil {
			return client.ContainerInspectResult{}, err
		}
		d.mu.Lock()
		defer d.mu.Unlock()
		c := d.lookup(ref)
		if c == nil {
			return client.ContainerInspectResult{}, NotFoundError(ref)
		}
		return client.ContainerInspectResult{Container: d.inspect(c)}, nil
	}

	// Filters are ignored; whail narrows list results by label itself.
	f.ContainerListFn = func(_ context.Context, opts client.ContainerListOptions) (client.ContainerListResult, error) {
		if err := d.check(); err != nil {
			return client.ContainerListResult{}, err
		}
		d.mu.Lock()
		defer d.mu.Unlock()
		var items []container.Summary
		for _, c := range d.containers {
			if !opts.All && !c.Running {
				continue
			}
			s := container.Summary{
				ID:     c.ID,
				Names:  []string{"/" + c.Name},
				Image:  c.Image,
				Labels: maps.Clone(c.Labels),
				State:  container.StateExited,
			}
			if c.Running {
				s.State = container.StateRunning
			}
			items = append(items, s)
		}
		sort.Slice(items, func(i, j int) bool { return items[i].Names[0] < items[j].Names[0] })
		return client.ContainerListResult{Items: items}, nil
	}

	f.ContainerLogsFn = func(_ context.Context, ref string, _ client.ContainerLogsOptions) (client.ContainerLogsResult, error) {
		if err := d.check(); err != nil {
			return nil, err
		}
		d.mu.Lock()
		defer d.mu.Unlock()
		c := d.lookup(ref)
		if c == nil {
			return nil, NotFoundError(ref)
		}
		var buf bytes.Buffer
		if c.logs != "" {
			w := stdcopy.NewStdWriter(&buf, stdcopy.Stdout)
			_, _ = w.Write([]byte(c.logs))
		}
		return io.NopCloser(&buf), nil
	}

	f.NetworkCreateFn = func(_ context.Context, name string, opts client.NetworkCreateOptions) (client.NetworkCreateResult, error) {
		if err := d.check(); err != nil {
			return client.NetworkCreateResult{}, err
		}
		d.mu.Lock()
		defer d.mu.Unlock()
		if d.lookupNetwork(name) != nil {
			return client.NetworkCreateResult{}, ConflictError(fmt.Sprintf("network with name %s already exists", name))
		}
		n := &fakeNetwork{id: d.nextID("n"), name: name, labels: maps.Clone(opts.Labels)}
		d.networks[n.id] = n
		d.events = append(d.events, "network-create:"+name)
		return client.NetworkCreateResult{ID: n.id}, nil
	}

	f.NetworkRemoveFn = func(_ context.Context, ref string, _ client.NetworkRemoveOptions) (client.NetworkRemoveResult, error) {
		if err := d.check(); err != nil {
			return client.NetworkRemoveResult{}, err
		}
		d.mu.Lock()
		defer d.mu.Unlock()
		n := d.lookupNetwork(ref)
		if n == nil {
			return client.NetworkRemoveResult{}, NotFoundError("network " + ref)
		}
		for _, c := range d.containers {
			if slices.Contains(c.Networks, n.name) {
				return client.NetworkRemoveResult{}, ConflictError(fmt.Sprintf("network %s has active endpoints", n.name))
			}
		}
		delete(d.networks, n.id)
		d.events = append(d.events, "network-remove:"+n.name)
		return client.NetworkRemoveResult{}, nil
	}

	f.NetworkListFn = func(_ context.Context, _ client.NetworkListOptions) (client.NetworkListResult, error) {
		if err := d.check(); err != nil {
			return client.NetworkListResult{}, err
		}
		d.mu.Lock()
		defer d.mu.Unlock()
		var items []network.Summary
		for _, n := range d.networks {
			var s network.Summary
			s.ID = n.id
			s.Name = n.name
			s.Labels = maps.Clone(n.labels)
			items = append(items, s)
		}
		sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
		return client.NetworkListResult{Items: items}, nil
	}
}

// bind assigns host ports to bindings lacking one. Caller holds d.mu.
func (d *FakeDaemon) bind(bindings []network.PortBinding) []network.PortBinding {
	if len(bindings) == 0 {
		bindings = []network.PortBinding{{}}
	}
	out := make([]network.PortBinding, 0, len(bindings))
	for _, b := range bindings {
		if !b.HostIP.IsValid() {
			b.HostIP = netip.MustParseAddr("0.0.0.0")
		}
		if b.HostPort == "" {
			b.HostPort = strconv.Itoa(d.nextPort)
			d.nextPort++
		}
		out = append(out, b)
	}
	return out
}
