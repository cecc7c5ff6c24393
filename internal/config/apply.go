package config

import (
	"fmt"
	"maps"
	"regexp"
	"slices"

	"github.com/schmitthub/testenv/pkg/testenv"
)

// Apply declares cfg on b: name, flags, shared variables, then networks and
// containers in file order. Builder errors surface from b.Build.
func Apply(cfg *Config, b *testenv.Builder) error {
	if cfg == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}

	if cfg.Name != "" {
		b.SetName(cfg.Name)
	}
	if cfg.DinD {
		b.DockerInDocker()
	}
	if cfg.Parallel {
		b.Parallel()
	}
	if cfg.ReadyTimeout > 0 {
		b.WithReadyTimeout(cfg.ReadyTimeout)
	}
	if len(cfg.Variables) > 0 {
		b.SetVariables(sortedVars(cfg.Variables)...)
	}

	for _, n := range cfg.Networks {
		b.AddNetwork(n)
	}
	for _, c := range cfg.Containers {
		opts, err := containerOptions(c)
		if err != nil {
			return fmt.Errorf("container %s: %w", c.Name, err)
		}
		b.AddContainer(c.Name, c.Image, opts...)
	}
	return nil
}

func containerOptions(c ContainerConfig) ([]testenv.ContainerOption, error) {
	var opts []testenv.ContainerOption
	if c.Tag != "" {
		opts = append(opts, testenv.WithTag(c.Tag))
	}
	if len(c.Env) > 0 {
		opts = append(opts, testenv.WithEnv(sortedVars(c.Env)...))
	}
	if len(c.Ports) > 0 {
		opts = append(opts, testenv.WithPorts(c.Ports...))
	}
	if len(c.Cmd) > 0 {
		opts = append(opts, testenv.WithCmd(c.Cmd...))
	}
	if c.Network != "" {
		opts = append(opts, testenv.WithNetwork(c.Network, c.Aliases...))
	}
	if len(c.Labels) > 0 {
		opts = append(opts, testenv.WithLabels(c.Labels))
	}
	if c.StopTimeout > 0 {
		opts = append(opts, testenv.WithStopTimeout(c.StopTimeout))
	}
	if c.Probe.Interval > 0 {
		opts = append(opts, testenv.WithProbeInterval(c.Probe.Interval))
	}

	switch c.Probe.Type {
	case "", ProbeRunning:
	case ProbeHealth:
		opts = append(opts, testenv.WithProbe(testenv.HealthProbe()))
	case ProbePort:
		opts = append(opts, testenv.WithProbe(testenv.PortProbe(c.Probe.Port)))
	case ProbeLog:
		re, err := regexp.Compile(c.Probe.Pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: probe pattern: %w", ErrInvalidConfig, err)
		}
		opts = append(opts, testenv.WithProbe(testenv.LogProbe(re)))
	default:
		return nil, fmt.Errorf("%w: unknown probe type %q", ErrInvalidConfig, c.Probe.Type)
	}
	return opts, nil
}

func sortedVars(m map[string]string) []testenv.Variable {
	out := make([]testenv.Variable, 0, len(m))
	for _, k := range slices.Sorted(maps.Keys(m)) {
		out = append(out, testenv.Var(k, m[k]))
	}
	return out
}
