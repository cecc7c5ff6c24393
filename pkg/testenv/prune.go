package testenv

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/moby/moby/api/types/container"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/schmitthub/testenv/pkg/whail"
)

// pruneConcurrency bounds parallel container removals.
const pruneConcurrency = 4

// PruneReport lists what Prune removed.
type PruneReport struct {
	Environment string
	Containers  []string
	Networks    []string
}

// Empty reports whether nothing was found.
func (r PruneReport) Empty() bool {
	return len(r.Containers) == 0 && len(r.Networks) == 0
}

// Prune force-removes every managed container and network labeled with
// environment. It recovers from runs whose process died before Stop.
// Every removal is attempted; failures are returned together.
func Prune(ctx context.Context, engine *whail.Engine, environment string) (PruneReport, error) {
	report := PruneReport{Environment: environment}
	if engine == nil {
		return report, invalidArg("prune: engine must not be nil")
	}
	if !validName(environment) {
		return report, invalidArg("prune: environment name %q must match %s", environment, namePattern)
	}
	filter := map[string]string{engine.LabelKey(LabelEnvironment): environment}

	containers, err := engine.ContainerListByLabels(ctx, filter, true)
	if err != nil {
		return report, engineErr("container_list", environment, err)
	}

	var (
		mu   sync.Mutex
		errs error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(pruneConcurrency)
	for _, c := range containers {
		name := summaryName(c)
		g.Go(func() error {
			err := engine.ContainerRemove(gctx, c.ID, true)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil, whail.IsNotFound(err):
				report.Containers = append(report.Containers, name)
			default:
				errs = multierr.Append(errs, &DependencyError{Name: name, Err: engineErr("remove", name, err)})
			}
			return nil
		})
	}
	_ = g.Wait()

	networks, err := engine.NetworkListByLabels(ctx, filter)
	if err != nil {
		errs = multierr.Append(errs, engineErr("network_list", environment, err))
	}
	for _, n := range networks {
		if err := engine.NetworkRemove(ctx, n.Name); err != nil && !whail.IsNotFound(err) {
			errs = multierr.Append(errs, &DependencyError{Name: n.Name, Err: engineErr("network_remove", n.Name, err)})
			continue
		}
		report.Networks = append(report.Networks, n.Name)
	}

	slices.Sort(report.Containers)
	slices.Sort(report.Networks)
	if errs != nil {
		te := &TeardownError{Environment: environment}
		for _, err := range multierr.Errors(errs) {
			de, ok := err.(*DependencyError)
			if !ok {
				de = &DependencyError{Name: environment, Err: err}
			}
			te.Failures = append(te.Failures, *de)
		}
		return report, te
	}
	return report, nil
}

// EnvironmentSummary describes an environment found on the daemon.
type EnvironmentSummary struct {
	Name       string
	Containers []string
	Running    int
	Networks   []string
}

// ListEnvironments groups managed containers and networks by their
// environment label, sorted by name.
func ListEnvironments(ctx context.Context, engine *whail.Engine) ([]EnvironmentSummary, error) {
	if engine == nil {
		return nil, invalidArg("list environments: engine must not be nil")
	}
	key := engine.LabelKey(LabelEnvironment)

	containers, err := engine.ContainerListByLabels(ctx, nil, true)
	if err != nil {
		return nil, engineErr("container_list", "", err)
	}
	networks, err := engine.NetworkListByLabels(ctx, nil)
	if err != nil {
		return nil, engineErr("network_list", "", err)
	}

	byName := make(map[string]*EnvironmentSummary)
	get := func(name string) *EnvironmentSummary {
		s, ok := byName[name]
		if !ok {
			s = &EnvironmentSummary{Name: name}
			byName[name] = s
		}
		return s
	}
	for _, c := range containers {
		env, ok := c.Labels[key]
		if !ok {
			continue
		}
		s := get(env)
		s.Containers = append(s.Containers, summaryName(c))
		if c.State == container.StateRunning {
			s.Running++
		}
	}
	for _, n := range networks {
		env, ok := n.Labels[key]
		if !ok {
			continue
		}
		s := get(env)
		s.Networks = append(s.Networks, n.Name)
	}

	out := make([]EnvironmentSummary, 0, len(byName))
	for _, name := range slices.Sorted(maps.Keys(byName)) {
		s := byName[name]
		slices.Sort(s.Containers)
		slices.Sort(s.Networks)
		out = append(out, *s)
	}
	return out, nil
}

func summaryName(c container.Summary) string {
	if len(c.Names) > 0 {
		return strings.TrimPrefix(c.Names[0], "/")
	}
	return shortID(c.ID)
}
