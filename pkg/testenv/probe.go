package testenv

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"regexp"

	"github.com/moby/moby/api/pkg/stdcopy"
	"github.com/moby/moby/api/types/container"
)

var (
	// ErrExited reports a container that stopped while it was expected to
	// become ready.
	ErrExited = errors.New("container exited")

	// ErrUnhealthy reports a container whose healthcheck failed.
	ErrUnhealthy = errors.New("container unhealthy")
)

// Probe decides whether a started container is ready. Errors wrapping
// ErrExited, ErrUnhealthy, ErrUnreachable or ErrInvalidArgument end polling
// immediately; any other error is retried.
type Probe interface {
	Ready(ctx context.Context, c *Container) error
}

// ProbeFunc adapts a function to Probe.
type ProbeFunc func(ctx context.Context, c *Container) error

// Ready implements Probe.
func (f ProbeFunc) Ready(ctx context.Context, c *Container) error {
	return f(ctx, c)
}

// RunningProbe is ready once the container is running.
func RunningProbe() Probe {
	return ProbeFunc(func(ctx context.Context, c *Container) error {
		_, err := running(ctx, c)
		return err
	})
}

// HealthProbe is ready once the image HEALTHCHECK reports healthy. Containers
// without a healthcheck are ready once running.
func HealthProbe() Probe {
	return ProbeFunc(func(ctx context.Context, c *Container) error {
		st, err := running(ctx, c)
		if err != nil {
			return err
		}
		if st.Health == nil {
			return nil
		}
		switch st.Health.Status {
		case container.Healthy:
			return nil
		case container.Unhealthy:
			return fmt.Errorf("%w: %s", ErrUnhealthy, c.Name())
		default:
			return fmt.Errorf("health status is %q", st.Health.Status)
		}
	})
}

// PortProbe is ready once a TCP connection to the container port succeeds
// through the resolved endpoint.
func PortProbe(port string) Probe {
	return ProbeFunc(func(ctx context.Context, c *Container) error {
		if _, err := running(ctx, c); err != nil {
			return err
		}
		ep, err := c.Endpoint(ctx)
		if err != nil {
			return err
		}
		addr, err := ep.Address(port)
		if err != nil {
			return err
		}
		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return fmt.Errorf("dial %s: %w", addr, err)
		}
		return conn.Close()
	})
}

// LogProbe is ready once the container output matches pattern. Output that
// matched before the container exited still counts.
func LogProbe(pattern *regexp.Regexp) Probe {
	return ProbeFunc(func(ctx context.Context, c *Container) error {
		if pattern == nil {
			return invalidArg("log probe pattern is nil")
		}
		logs, err := c.Logs(ctx)
		if err != nil {
			return err
		}
		if pattern.MatchString(logs) {
			return nil
		}
		if _, err := running(ctx, c); err != nil {
			return err
		}
		return fmt.Errorf("log pattern %q not seen yet", pattern)
	})
}

// running inspects c and reports whether it runs. An exited container fails
// with ErrExited.
func running(ctx context.Context, c *Container) (*container.State, error) {
	info, err := c.Inspect(ctx)
	if err != nil {
		return nil, err
	}
	st := info.State
	if st == nil {
		return nil, fmt.Errorf("container %s has no state", c.Name())
	}
	if st.Running {
		return st, nil
	}
	switch st.Status {
	case container.StateExited, container.StateDead:
		return nil, fmt.Errorf("%w: %s exited with code %d", ErrExited, c.Name(), st.ExitCode)
	}
	return nil, fmt.Errorf("container %s is %s", c.Name(), st.Status)
}

func stdcopyDemux(w io.Writer, r io.Reader) (int64, error) {
	return stdcopy.StdCopy(w, w, r)
}

func permanent(err error) bool {
	for _, target := range []error{ErrExited, ErrUnhealthy, ErrUnreachable, ErrInvalidArgument} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
