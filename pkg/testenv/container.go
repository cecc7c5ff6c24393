package testenv

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/netip"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/moby/moby/api/types/container"
	"github.com/moby/moby/api/types/network"
	"github.com/moby/moby/client"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
	"go.uber.org/multierr"

	"github.com/schmitthub/testenv/pkg/whail"
)

const (
	// DefaultTag is used when no image tag is given.
	DefaultTag = "latest"

	// DefaultProbeInterval is the delay between readiness checks.
	DefaultProbeInterval = 250 * time.Millisecond

	// LabelEnvironment is the label suffix carrying the environment name.
	LabelEnvironment = "environment"

	// LabelDependency is the label suffix carrying the dependency resource name.
	LabelDependency = "dependency"
)

// Endpoint is where a started container's services are reached.
type Endpoint struct {
	// Host is the container IP in DinD mode, otherwise the host the daemon
	// publishes ports on.
	Host string
	// Ports maps a declared container port ("5432/tcp") to the reachable port.
	Ports map[string]int
}

// Address returns host:port for a declared container port.
func (e Endpoint) Address(port string) (string, error) {
	key, err := normalizePort(port)
	if err != nil {
		return "", err
	}
	p, ok := e.Ports[key]
	if !ok {
		return "", fmt.Errorf("%w: port %s is not declared", ErrInvalidArgument, key)
	}
	return net.JoinHostPort(e.Host, strconv.Itoa(p)), nil
}

// Container is a Dependency backed by a single container.
type Container struct {
	engine *whail.Engine

	name  string
	image string
	tag   string
	env   []Variable
	cmd   []string
	ports []containerPort

	network string
	aliases []string
	labels  map[string]string

	stopTimeout *int
	probe       Probe
	interval    time.Duration

	baseLogger zerolog.Logger
	loggerSet  bool

	mu        sync.Mutex
	log       zerolog.Logger
	dind      bool
	shared    Variables
	envLabels map[string]string
	boundTo   string
	state     State
	id        string
}

var (
	_ Dependency = (*Container)(nil)
	_ Binder     = (*Container)(nil)
)

// NewContainer returns a container dependency named name running image.
// name is the full resource name; Builder.AddContainer composes it from the
// environment name. Empty name or image and a nil engine fail with
// ErrInvalidArgument.
func NewContainer(engine *whail.Engine, name, image string, opts ...ContainerOption) (*Container, error) {
	if engine == nil {
		return nil, invalidArg("container %q: engine must not be nil", name)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalidArg("container name must not be empty")
	}
	if !validName(name) {
		return nil, invalidArg("container name %q must match %s", name, namePattern)
	}
	image = strings.TrimSpace(image)
	if image == "" {
		return nil, invalidArg("container %s: image must not be empty", name)
	}

	c := &Container{
		engine:     engine,
		name:       name,
		image:      image,
		tag:        DefaultTag,
		probe:      RunningProbe(),
		interval:   DefaultProbeInterval,
		baseLogger: zerolog.Nop(),
		shared:     Variables{},
	}
	if err := applyContainerOptions(c, opts); err != nil {
		return nil, fmt.Errorf("container %s: %w", name, err)
	}
	c.envLabels = map[string]string{engine.LabelKey(LabelDependency): name}
	c.log = c.baseLogger.With().Str("dependency", name).Logger()
	return c, nil
}

// Bind takes the environment's shared settings. An explicit WithLogger or
// WithDinD(true) is kept.
func (c *Container) Bind(rt Runtime) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.canBind(rt.Environment); err != nil {
		return err
	}

	c.boundTo = rt.Environment
	if !c.loggerSet {
		c.baseLogger = rt.Logger
	}
	c.log = c.baseLogger.With().Str("dependency", c.name).Logger()
	c.dind = c.dind || rt.DinD
	c.shared = rt.Variables.Clone()
	c.envLabels = whail.MergeLabels(rt.Labels, map[string]string{c.engine.LabelKey(LabelDependency): c.name})
	if resolved, ok := rt.Networks[c.network]; ok {
		c.network = resolved
	}
	return nil
}

func (c *Container) checkBind(environment string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canBind(environment)
}

func (c *Container) canBind(environment string) error {
	if c.boundTo != "" && c.boundTo != environment {
		return fmt.Errorf("%w: container %s already belongs to environment %s", ErrConflict, c.name, c.boundTo)
	}
	if c.state != StateAssembled {
		return fmt.Errorf("%w: bind %s: dependency is %s", ErrConflict, c.name, c.state)
	}
	return nil
}

// Name returns the container resource name.
func (c *Container) Name() string {
	return c.name
}

// Image returns the image reference "name:tag".
func (c *Container) Image() string {
	return c.image + ":" + c.tag
}

// State returns the lifecycle state.
func (c *Container) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ID returns the engine container ID, empty until created.
func (c *Container) ID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id
}

// DinD reports whether the container resolves its endpoint for Docker-in-Docker.
func (c *Container) DinD() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dind
}

// Env returns the effective environment, sorted by name.
func (c *Container) Env() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return effectiveEnv(c.shared, c.env)
}

// Start pulls the image if needed, then creates and starts the container.
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateAssembled {
		st := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w: start %s: dependency is %s", ErrConflict, c.name, st)
	}
	c.state = StateStarted
	env := effectiveEnv(c.shared, c.env)
	dind := c.dind
	labels := whail.MergeLabels(c.labels)
	extra := whail.MergeLabels(c.envLabels)
	log := c.log
	c.mu.Unlock()

	ref := c.Image()
	log.Debug().Str("image", ref).Bool("dind", dind).Msg("starting container")

	if err := c.engine.EnsureImage(ctx, ref, nil); err != nil {
		return c.fail(engineErr("pull", c.name, err))
	}

	opts := client.ContainerCreateOptions{
		Name: c.name,
		Config: &container.Config{
			Image:        ref,
			Env:          env,
			Cmd:          c.cmd,
			Labels:       labels,
			ExposedPorts: c.exposedPorts(),
		},
		HostConfig: &container.HostConfig{},
	}
	if !dind && len(c.ports) > 0 {
		opts.HostConfig.PortBindings = c.portBindings()
	}
	if c.network != "" {
		opts.HostConfig.NetworkMode = container.NetworkMode(c.network)
		opts.NetworkingConfig = &network.NetworkingConfig{
			EndpointsConfig: map[string]*network.EndpointSettings{
				c.network: {Aliases: c.aliases},
			},
		}
	}

	resp, err := c.engine.ContainerCreate(ctx, opts, extra)
	if err != nil {
		return c.fail(engineErr("create", c.name, err))
	}
	c.mu.Lock()
	c.id = resp.ID
	c.mu.Unlock()

	if err := c.engine.ContainerStart(ctx, resp.ID); err != nil {
		return c.fail(engineErr("start", c.name, err))
	}

	log.Info().Str("image", ref).Str("container_id", shortID(resp.ID)).Msg("container started")
	return nil
}

// WaitReady polls the readiness probe until it passes or timeout elapses.
// Cancellation of ctx is returned as is.
func (c *Container) WaitReady(ctx context.Context, timeout time.Duration) error {
	if timeout <= 0 {
		return invalidArg("wait %s: timeout must be positive: %v", c.name, timeout)
	}

	c.mu.Lock()
	st := c.state
	log := c.log
	c.mu.Unlock()
	switch st {
	case StateReady:
		return nil
	case StateStarted:
	default:
		return fmt.Errorf("%w: wait %s: dependency is %s", ErrConflict, c.name, st)
	}

	retryCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var lastErr error
	err := retry.Do(retryCtx, retry.NewConstant(c.interval), func(ctx context.Context) error {
		err := c.probe.Ready(ctx, c)
		if err == nil {
			return nil
		}
		lastErr = err
		if permanent(err) {
			return err
		}
		log.Trace().Err(err).Msg("not ready yet")
		return retry.RetryableError(err)
	})
	switch {
	case err == nil:
	case ctx.Err() != nil:
		c.setState(StateFailed)
		return ctx.Err()
	case retryCtx.Err() != nil:
		if lastErr == nil {
			lastErr = retryCtx.Err()
		}
		return c.fail(fmt.Errorf("%w: %s not ready within %s: %w", ErrTimeout, c.name, timeout, lastErr))
	default:
		return c.fail(fmt.Errorf("wait %s: %w", c.name, err))
	}

	c.mu.Lock()
	c.state = StateReady
	c.mu.Unlock()
	log.Info().Msg("container ready")
	return nil
}

// Stop stops and removes the container. A container that was never created
// or is already gone is not an error. Both steps are always attempted.
func (c *Container) Stop(ctx context.Context) error {
	c.mu.Lock()
	id, st, log := c.id, c.state, c.log
	c.mu.Unlock()

	if st == StateStopped {
		return nil
	}
	if id == "" {
		c.setState(StateStopped)
		return nil
	}

	var err error
	if e := c.engine.ContainerStop(ctx, id, c.stopTimeout); e != nil && !whail.IsNotFound(e) {
		err = multierr.Append(err, engineErr("stop", c.name, e))
	}
	if e := c.engine.ContainerRemove(ctx, id, true); e != nil && !whail.IsNotFound(e) {
		err = multierr.Append(err, engineErr("remove", c.name, e))
	}
	if err != nil {
		c.setState(StateFailed)
		log.Warn().Err(err).Msg("container teardown failed")
		return err
	}

	c.setState(StateStopped)
	log.Info().Msg("container removed")
	return nil
}

// Inspect returns the engine's view of the container.
func (c *Container) Inspect(ctx context.Context) (container.InspectResponse, error) {
	id := c.ID()
	if id == "" {
		return container.InspectResponse{}, fmt.Errorf("%w: inspect %s: container not created", ErrConflict, c.name)
	}
	info, err := c.engine.ContainerInspect(ctx, id)
	if err != nil {
		return container.InspectResponse{}, engineErr("inspect", c.name, err)
	}
	return info, nil
}

// Logs returns stdout and stderr of the container, demultiplexed.
func (c *Container) Logs(ctx context.Context) (string, error) {
	id := c.ID()
	if id == "" {
		return "", fmt.Errorf("%w: logs %s: container not created", ErrConflict, c.name)
	}
	rc, err := c.engine.ContainerLogs(ctx, id, client.ContainerLogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		return "", engineErr("logs", c.name, err)
	}
	defer rc.Close()
	return demuxLogs(rc)
}

// Endpoint resolves where the container's declared ports are reachable.
func (c *Container) Endpoint(ctx context.Context) (Endpoint, error) {
	info, err := c.Inspect(ctx)
	if err != nil {
		return Endpoint{}, err
	}
	if info.NetworkSettings == nil {
		return Endpoint{}, fmt.Errorf("endpoint %s: network settings are missing", c.name)
	}

	ep := Endpoint{Ports: make(map[string]int, len(c.ports))}
	if c.DinD() {
		ip, ok := c.containerIP(info.NetworkSettings)
		if !ok {
			return Endpoint{}, fmt.Errorf("endpoint %s: container has no IP address", c.name)
		}
		ep.Host = ip.String()
		for _, p := range c.ports {
			ep.Ports[p.key] = int(p.num)
		}
		return ep, nil
	}

	ep.Host = whail.ServiceHost(c.engine.Host())
	for _, p := range c.ports {
		hostPort, err := resolveBoundPort(info.NetworkSettings.Ports, p.port)
		if err != nil {
			return Endpoint{}, fmt.Errorf("endpoint %s: %w", c.name, err)
		}
		ep.Ports[p.key] = hostPort
	}
	return ep, nil
}

func (c *Container) containerIP(ns *container.NetworkSettings) (netip.Addr, bool) {
	if ep, ok := ns.Networks[c.network]; ok && ep != nil && ep.IPAddress.IsValid() {
		return ep.IPAddress, true
	}
	names := make([]string, 0, len(ns.Networks))
	for n := range ns.Networks {
		names = append(names, n)
	}
	slices.Sort(names)
	for _, n := range names {
		if ep := ns.Networks[n]; ep != nil && ep.IPAddress.IsValid() {
			return ep.IPAddress, true
		}
	}
	return netip.Addr{}, false
}

func (c *Container) exposedPorts() network.PortSet {
	if len(c.ports) == 0 {
		return nil
	}
	set := make(network.PortSet, len(c.ports))
	for _, p := range c.ports {
		set[p.port] = struct{}{}
	}
	return set
}

// portBindings publishes every declared port on an ephemeral host port. Local
// daemons bind loopback only.
func (c *Container) portBindings() network.PortMap {
	hostIP := netip.IPv4Unspecified()
	if whail.ServiceHost(c.engine.Host()) == "localhost" {
		hostIP = netip.AddrFrom4([4]byte{127, 0, 0, 1})
	}
	m := make(network.PortMap, len(c.ports))
	for _, p := range c.ports {
		m[p.port] = []network.PortBinding{{HostIP: hostIP}}
	}
	return m
}

func (c *Container) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// fail marks the container failed and returns err.
func (c *Container) fail(err error) error {
	c.setState(StateFailed)
	return err
}

func resolveBoundPort(ports network.PortMap, p network.Port) (int, error) {
	bindings, ok := ports[p]
	if !ok || len(bindings) == 0 {
		return 0, fmt.Errorf("no port bindings found for %s", p)
	}
	for _, b := range bindings {
		if b.HostPort == "" {
			continue
		}
		n, err := strconv.Atoi(b.HostPort)
		if err != nil {
			return 0, fmt.Errorf("parse host port %q: %w", b.HostPort, err)
		}
		return n, nil
	}
	return 0, fmt.Errorf("no host port found for %s", p)
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

func demuxLogs(r io.Reader) (string, error) {
	var out strings.Builder
	if _, err := stdcopyDemux(&out, r); err != nil {
		return "", fmt.Errorf("read logs: %w", err)
	}
	return out.String(), nil
}
