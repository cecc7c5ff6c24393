package testenv

import (
	"errors"
	"fmt"
	"maps"
	"strconv"
	"strings"
	"time"

	"github.com/moby/moby/api/types/network"
	"github.com/rs/zerolog"
)

// ContainerOption configures a Container at construction.
type ContainerOption interface {
	apply(*Container) error
}

type containerOptionFunc func(*Container) error

func (f containerOptionFunc) apply(c *Container) error {
	return f(c)
}

// WithTag sets the image tag. Defaults to "latest".
func WithTag(tag string) ContainerOption {
	return containerOptionFunc(func(c *Container) error {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			return invalidArg("image tag must not be empty")
		}
		c.tag = tag
		return nil
	})
}

// WithEnv adds per-dependency environment variables. They override shared
// variables of the same name. Declaring a name twice fails with ErrDuplicateKey.
func WithEnv(pairs ...Variable) ContainerOption {
	return containerOptionFunc(func(c *Container) error {
		existing := make(map[string]string, len(c.env))
		for _, v := range c.env {
			existing[v.Name] = v.Value
		}
		if err := checkPairs(pairs, existing); err != nil {
			return err
		}
		c.env = append(c.env, pairs...)
		return nil
	})
}

// WithLogger sets the logger instead of the environment's.
func WithLogger(l zerolog.Logger) ContainerOption {
	return containerOptionFunc(func(c *Container) error {
		c.baseLogger = l
		c.loggerSet = true
		return nil
	})
}

// WithDinD makes the container reachable from inside a parent container:
// ports are not published and the endpoint is the container's own address.
func WithDinD(enabled bool) ContainerOption {
	return containerOptionFunc(func(c *Container) error {
		c.dind = enabled
		return nil
	})
}

// WithProbe sets the readiness probe. Defaults to RunningProbe.
func WithProbe(p Probe) ContainerOption {
	return containerOptionFunc(func(c *Container) error {
		if p == nil {
			return invalidArg("probe must not be nil")
		}
		c.probe = p
		return nil
	})
}

// WithProbeInterval sets the delay between readiness checks.
func WithProbeInterval(d time.Duration) ContainerOption {
	return containerOptionFunc(func(c *Container) error {
		if d <= 0 {
			return invalidArg("probe interval must be positive: %v", d)
		}
		c.interval = d
		return nil
	})
}

// WithPorts declares container ports such as "5432/tcp" or "6379".
// A bare number means TCP.
func WithPorts(specs ...string) ContainerOption {
	return containerOptionFunc(func(c *Container) error {
		ports := make([]containerPort, 0, len(specs))
		for _, s := range specs {
			p, err := parsePort(s)
			if err != nil {
				return err
			}
			ports = append(ports, p)
		}
		c.ports = append(c.ports, ports...)
		return nil
	})
}

// WithCmd overrides the image command.
func WithCmd(args ...string) ContainerOption {
	return containerOptionFunc(func(c *Container) error {
		c.cmd = append([]string(nil), args...)
		return nil
	})
}

// WithNetwork attaches the container to a network. A name declared with
// Builder.AddNetwork resolves to the environment's network.
func WithNetwork(name string, aliases ...string) ContainerOption {
	return containerOptionFunc(func(c *Container) error {
		name = strings.TrimSpace(name)
		if name == "" {
			return invalidArg("network name must not be empty")
		}
		c.network = name
		c.aliases = append([]string(nil), aliases...)
		return nil
	})
}

// WithStopTimeout sets how long the daemon waits before killing the container.
func WithStopTimeout(d time.Duration) ContainerOption {
	return containerOptionFunc(func(c *Container) error {
		if d < 0 {
			return invalidArg("stop timeout must not be negative: %v", d)
		}
		secs := int(d / time.Second)
		c.stopTimeout = &secs
		return nil
	})
}

// WithLabels adds container labels. Managed labels always win.
func WithLabels(labels map[string]string) ContainerOption {
	return containerOptionFunc(func(c *Container) error {
		if c.labels == nil {
			c.labels = make(map[string]string, len(labels))
		}
		maps.Copy(c.labels, labels)
		return nil
	})
}

type containerPort struct {
	key  string // normalized "5432/tcp"
	num  uint16
	port network.Port
}

func parsePort(spec string) (containerPort, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return containerPort{}, invalidArg("port must not be empty")
	}
	num, proto, ok := strings.Cut(spec, "/")
	if !ok {
		proto = "tcp"
	}
	n, err := strconv.ParseUint(num, 10, 16)
	if err != nil || n == 0 {
		return containerPort{}, invalidArg("port %q must be in range 1-65535", spec)
	}
	ipProto := network.TCP
	switch strings.ToLower(proto) {
	case "tcp":
	case "udp":
		ipProto = network.UDP
	default:
		return containerPort{}, invalidArg("port %q has unknown protocol %q", spec, proto)
	}
	p, ok := network.PortFrom(uint16(n), ipProto)
	if !ok {
		return containerPort{}, invalidArg("port %q is invalid", spec)
	}
	return containerPort{key: fmt.Sprintf("%d/%s", n, strings.ToLower(proto)), num: uint16(n), port: p}, nil
}

// normalizePort turns "5432" into "5432/tcp".
func normalizePort(spec string) (string, error) {
	p, err := parsePort(spec)
	if err != nil {
		return "", err
	}
	return p.key, nil
}

func applyContainerOptions(c *Container, opts []ContainerOption) error {
	var errs []error
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.apply(c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
