package testenv

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/moby/moby/client"
	"github.com/rs/zerolog"

	"github.com/schmitthub/testenv/pkg/whail"
)

// NetworkOption configures a Network at construction.
type NetworkOption func(*Network) error

// WithDriver sets the network driver. Defaults to "bridge".
func WithDriver(driver string) NetworkOption {
	return func(n *Network) error {
		driver = strings.TrimSpace(driver)
		if driver == "" {
			return invalidArg("network driver must not be empty")
		}
		n.driver = driver
		return nil
	}
}

// WithInternal restricts external access to the network.
func WithInternal() NetworkOption {
	return func(n *Network) error {
		n.internal = true
		return nil
	}
}

// Network is a Dependency backed by a user-defined network. Declare it before
// the containers that join it.
type Network struct {
	engine   *whail.Engine
	name     string
	driver   string
	internal bool

	mu        sync.Mutex
	log       zerolog.Logger
	envLabels map[string]string
	boundTo   string
	state     State
	created   bool
}

var (
	_ Dependency = (*Network)(nil)
	_ Binder     = (*Network)(nil)
)

// NewNetwork returns a network dependency with the full resource name name.
func NewNetwork(engine *whail.Engine, name string, opts ...NetworkOption) (*Network, error) {
	if engine == nil {
		return nil, invalidArg("network %q: engine must not be nil", name)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalidArg("network name must not be empty")
	}
	if !validName(name) {
		return nil, invalidArg("network name %q must match %s", name, namePattern)
	}
	n := &Network{
		engine:    engine,
		name:      name,
		driver:    "bridge",
		log:       zerolog.Nop(),
		envLabels: map[string]string{engine.LabelKey(LabelDependency): name},
	}
	for _, opt := range opts {
		if err := opt(n); err != nil {
			return nil, fmt.Errorf("network %s: %w", name, err)
		}
	}
	return n, nil
}

// Bind takes the environment's logger and labels.
func (n *Network) Bind(rt Runtime) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.canBind(rt.Environment); err != nil {
		return err
	}
	n.boundTo = rt.Environment
	n.log = rt.Logger.With().Str("dependency", n.name).Logger()
	n.envLabels = whail.MergeLabels(rt.Labels, map[string]string{n.engine.LabelKey(LabelDependency): n.name})
	return nil
}

func (n *Network) checkBind(environment string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.canBind(environment)
}

func (n *Network) canBind(environment string) error {
	if n.boundTo != "" && n.boundTo != environment {
		return fmt.Errorf("%w: network %s already belongs to environment %s", ErrConflict, n.name, n.boundTo)
	}
	if n.state != StateAssembled {
		return fmt.Errorf("%w: bind %s: dependency is %s", ErrConflict, n.name, n.state)
	}
	return nil
}

func (n *Network) Name() string { return n.name }

func (n *Network) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// Start creates the network.
func (n *Network) Start(ctx context.Context) error {
	n.mu.Lock()
	if n.state != StateAssembled {
		st := n.state
		n.mu.Unlock()
		return fmt.Errorf("%w: start %s: dependency is %s", ErrConflict, n.name, st)
	}
	n.state = StateStarted
	labels := whail.MergeLabels(n.envLabels)
	n.mu.Unlock()

	_, err := n.engine.NetworkCreate(ctx, n.name, client.NetworkCreateOptions{
		Driver:   n.driver,
		Internal: n.internal,
	}, labels)
	if err != nil {
		n.setState(StateFailed)
		return engineErr("network_create", n.name, err)
	}

	n.mu.Lock()
	n.created = true
	n.mu.Unlock()
	n.log.Info().Str("driver", n.driver).Msg("network created")
	return nil
}

// WaitReady returns immediately; a created network is usable.
func (n *Network) WaitReady(_ context.Context, _ time.Duration) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	switch n.state {
	case StateStarted, StateReady:
		n.state = StateReady
		return nil
	default:
		return fmt.Errorf("%w: wait %s: dependency is %s", ErrConflict, n.name, n.state)
	}
}

// Stop removes the network. A network that was never created or is already
// gone is not an error.
func (n *Network) Stop(ctx context.Context) error {
	n.mu.Lock()
	created, st := n.created, n.state
	n.mu.Unlock()
	if st == StateStopped {
		return nil
	}
	if !created {
		n.setState(StateStopped)
		return nil
	}
	if err := n.engine.NetworkRemove(ctx, n.name); err != nil && !whail.IsNotFound(err) {
		n.setState(StateFailed)
		return engineErr("network_remove", n.name, err)
	}
	n.setState(StateStopped)
	n.log.Info().Msg("network removed")
	return nil
}

func (n *Network) setState(s State) {
	n.mu.Lock()
	n.state = s
	n.mu.Unlock()
}
