//go:build integration

package integration_test

import (
	"context"
	"net"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schmitthub/testenv/pkg/testenv"
)

func TestEnvironment_WebAndCache(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()
	name := uniqueName("it")

	env, err := testenv.NewBuilder(engine).
		SetName(name).
		WithReadyTimeout(2*time.Minute).
		AddNetwork("backend").
		AddContainer("web", "nginx", testenv.WithPorts("80"), testenv.WithProbe(testenv.PortProbe("80"))).
		AddContainer("cache", "redis",
			testenv.WithTag("7"),
			testenv.WithNetwork("backend", "cache"),
			testenv.WithProbe(testenv.LogProbe(regexp.MustCompile(`Ready to accept connections`))),
		).
		Build()
	require.NoError(t, err)
	t.Cleanup(func() { _ = env.Stop(context.Background()) })

	require.NoError(t, env.Start(ctx))

	dep, ok := env.Dependency("web")
	require.True(t, ok)
	ep, err := dep.(*testenv.Container).Endpoint(ctx)
	require.NoError(t, err)
	addr, err := ep.Address("80")
	require.NoError(t, err)

	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	require.NoError(t, err)
	conn.Close()

	require.NoError(t, env.Stop(ctx))

	containers, err := engine.ContainerListByLabels(ctx, map[string]string{
		engine.LabelKey(testenv.LabelEnvironment): name,
	}, true)
	require.NoError(t, err)
	assert.Empty(t, containers)
}

func TestEnvironment_ExitingContainerRollsBack(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()
	name := uniqueName("it")

	env, err := testenv.NewBuilder(engine).
		SetName(name).
		WithReadyTimeout(time.Minute).
		AddContainer("web", "nginx").
		AddContainer("broken", "busybox", testenv.WithCmd("false")).
		Build()
	require.NoError(t, err)

	err = env.Start(ctx)
	require.ErrorIs(t, err, testenv.ErrExited)

	containers, err := engine.ContainerListByLabels(ctx, map[string]string{
		engine.LabelKey(testenv.LabelEnvironment): name,
	}, true)
	require.NoError(t, err)
	assert.Empty(t, containers)
}

func TestPrune_AbandonedEnvironment(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()
	name := uniqueName("abandoned")

	env, err := testenv.NewBuilder(engine).
		SetName(name).
		WithReadyTimeout(time.Minute).
		AddNetwork("backend").
		AddContainer("web", "nginx", testenv.WithNetwork("backend")).
		Build()
	require.NoError(t, err)
	require.NoError(t, env.Start(ctx))

	envs, err := testenv.ListEnvironments(ctx, engine)
	require.NoError(t, err)
	var found bool
	for _, e := range envs {
		if e.Name == name {
			found = true
			assert.Equal(t, 1, e.Running)
		}
	}
	require.True(t, found)

	report, err := testenv.Prune(ctx, engine, name)
	require.NoError(t, err)
	assert.Equal(t, []string{name + "-web"}, report.Containers)
	assert.Equal(t, []string{name + "-backend"}, report.Networks)
}
