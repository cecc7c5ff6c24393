package testenv_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/moby/moby/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schmitthub/testenv/pkg/testenv"
	"github.com/schmitthub/testenv/pkg/whail/whailtest"
)

func TestEnvironment_EndToEnd(t *testing.T) {
	d := whailtest.NewFakeDaemon()
	env, err := testenv.NewBuilder(d.Engine()).
		SetName("it").
		SetVariables(testenv.Var("TZ", "UTC")).
		WithReadyTimeout(time.Second).
		AddContainer("web", "nginx", testenv.WithPorts("80"), testenv.WithProbeInterval(fastPoll)).
		AddContainer("cache", "redis", testenv.WithTag("7"), testenv.WithPorts("6379"), testenv.WithProbeInterval(fastPoll)).
		Build()
	require.NoError(t, err)

	var names []string
	for _, dep := range env.Dependencies() {
		names = append(names, dep.Name())
	}
	assert.Equal(t, []string{"it-web", "it-cache"}, names)

	require.NoError(t, env.Start(context.Background()))
	assert.Equal(t, testenv.StateRunning, env.State())
	for _, dep := range env.Dependencies() {
		assert.Equal(t, testenv.StateReady, dep.State(), dep.Name())
	}
	assert.Equal(t, []string{"it-cache", "it-web"}, d.ContainerNames())
	assert.ElementsMatch(t, []string{"nginx:latest", "redis:7"}, d.Puller.Refs())

	dep, ok := env.Dependency("cache")
	require.True(t, ok)
	ep, err := dep.(*testenv.Container).Endpoint(context.Background())
	require.NoError(t, err)
	addr, err := ep.Address("6379")
	require.NoError(t, err)
	assert.Contains(t, addr, "localhost:")

	require.NoError(t, env.Stop(context.Background()))
	assert.Empty(t, d.ContainerNames())
	assert.Equal(t, testenv.StateStopped, env.State())

	events := d.Events()
	assert.Equal(t, []string{
		"create:it-web", "start:it-web",
		"create:it-cache", "start:it-cache",
		"stop:it-cache", "remove:it-cache",
		"stop:it-web", "remove:it-web",
	}, events)
}

func TestEnvironment_FailedStartLeavesNothingBehind(t *testing.T) {
	d := whailtest.NewFakeDaemon()
	d.ExitOnStart("it-cache", 1)
	env, err := testenv.NewBuilder(d.Engine()).
		SetName("it").
		WithReadyTimeout(time.Second).
		AddNetwork("backend").
		AddContainer("web", "nginx", testenv.WithNetwork("backend"), testenv.WithProbeInterval(fastPoll)).
		AddContainer("cache", "redis", testenv.WithNetwork("backend"), testenv.WithProbeInterval(fastPoll)).
		AddContainer("worker", "busybox", testenv.WithProbeInterval(fastPoll)).
		Build()
	require.NoError(t, err)

	err = env.Start(context.Background())
	var se *testenv.StartError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "it-cache", se.Name)
	require.ErrorIs(t, err, testenv.ErrExited)
	assert.NoError(t, se.Rollback)

	assert.Empty(t, d.ContainerNames())
	assert.Empty(t, d.NetworkNames())
	_, created := d.Container("it-worker")
	assert.False(t, created)
	assert.Equal(t, testenv.StateFailed, env.State())
}

func TestEnvironment_ParallelCreatesNetworksFirst(t *testing.T) {
	d := whailtest.NewFakeDaemon()
	create := d.API.NetworkCreateFn
	d.API.NetworkCreateFn = func(ctx context.Context, name string, opts client.NetworkCreateOptions) (client.NetworkCreateResult, error) {
		time.Sleep(50 * time.Millisecond)
		return create(ctx, name, opts)
	}
	env, err := testenv.NewBuilder(d.Engine()).
		SetName("it").
		Parallel().
		WithReadyTimeout(time.Second).
		AddNetwork("backend").
		AddContainer("db", "postgres", testenv.WithNetwork("backend"), testenv.WithProbeInterval(fastPoll)).
		AddContainer("cache", "redis", testenv.WithNetwork("backend"), testenv.WithProbeInterval(fastPoll)).
		Build()
	require.NoError(t, err)

	require.NoError(t, env.Start(context.Background()))
	assert.Equal(t, []string{"it-cache", "it-db"}, d.ContainerNames())
	events := d.Events()
	require.NotEmpty(t, events)
	assert.Equal(t, "network-create:it-backend", events[0])

	require.NoError(t, env.Stop(context.Background()))
	assert.Empty(t, d.ContainerNames())
	assert.Empty(t, d.NetworkNames())
}

func TestEnvironment_TeardownReportsEngineFailures(t *testing.T) {
	d := whailtest.NewFakeDaemon()
	env, err := testenv.NewBuilder(d.Engine()).
		SetName("it").
		AddContainer("web", "nginx", testenv.WithProbeInterval(fastPoll)).
		AddContainer("cache", "redis", testenv.WithProbeInterval(fastPoll)).
		Build()
	require.NoError(t, err)
	require.NoError(t, env.Start(context.Background()))

	d.SetUnreachable(true)
	err = env.Stop(context.Background())
	var te *testenv.TeardownError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, []string{"it-cache", "it-web"}, te.Names())
	assert.True(t, errors.Is(err, testenv.ErrUnreachable))
}
