package whail_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/moby/moby/api/types/container"
	"github.com/moby/moby/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schmitthub/testenv/pkg/whail"
	"github.com/schmitthub/testenv/pkg/whail/whailtest"
)

func TestNewFromExisting_Defaults(t *testing.T) {
	e := whail.NewFromExisting(whailtest.NewFakeAPIClient(), whail.EngineOptions{})

	assert.Equal(t, "com.testenv.managed", e.ManagedLabelKey())
	assert.Equal(t, "true", e.ManagedLabelValue())
	assert.Equal(t, "com.testenv.environment", e.LabelKey("environment"))
}

func TestHealthCheck(t *testing.T) {
	fake := whailtest.NewFakeAPIClient()
	e := whailtest.NewEngine(fake)

	require.NoError(t, e.HealthCheck(context.Background()))
	whailtest.AssertCalled(t, fake, "Ping")

	fake.PingFn = func(_ context.Context, _ client.PingOptions) (client.PingResult, error) {
		return client.PingResult{}, whailtest.ConnectionRefusedError()
	}
	err := e.HealthCheck(context.Background())
	require.Error(t, err)
	assert.True(t, whail.IsUnreachable(err))
}

func TestContainerCreate_AppliesManagedLabels(t *testing.T) {
	fake := whailtest.NewFakeAPIClient()
	var got client.ContainerCreateOptions
	fake.ContainerCreateFn = func(_ context.Context, opts client.ContainerCreateOptions) (client.ContainerCreateResult, error) {
		got = opts
		return client.ContainerCreateResult{ID: "abc"}, nil
	}
	e := whailtest.NewEngine(fake)

	res, err := e.ContainerCreate(context.Background(), client.ContainerCreateOptions{
		Name:   "web",
		Config: &container.Config{Image: "nginx:latest", Labels: map[string]string{"own": "x"}},
	}, map[string]string{"com.whailtest.environment": "it"})
	require.NoError(t, err)

	assert.Equal(t, "abc", res.ID)
	assert.Equal(t, "true", got.Config.Labels[e.ManagedLabelKey()])
	assert.Equal(t, "it", got.Config.Labels["com.whailtest.environment"])
	assert.Equal(t, "x", got.Config.Labels["own"])
}

func TestContainerStop_RefusesUnmanaged(t *testing.T) {
	fake := whailtest.NewFakeAPIClient()
	fake.ContainerInspectFn = func(_ context.Context, id string, _ client.ContainerInspectOptions) (client.ContainerInspectResult, error) {
		return whailtest.UnmanagedContainerInspect(id), nil
	}
	e := whailtest.NewEngine(fake)

	err := e.ContainerStop(context.Background(), "foreign", nil)
	require.Error(t, err)

	var de *whail.DockerError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "jail", de.Op)
	whailtest.AssertNotCalled(t, fake, "ContainerStop")
}

func TestContainerRemove_MissingIsNotFound(t *testing.T) {
	fake := whailtest.NewFakeAPIClient()
	fake.ContainerInspectFn = func(_ context.Context, id string, _ client.ContainerInspectOptions) (client.ContainerInspectResult, error) {
		return client.ContainerInspectResult{}, whailtest.NotFoundError(id)
	}
	e := whailtest.NewEngine(fake)

	err := e.ContainerRemove(context.Background(), "gone", true)
	require.Error(t, err)
	assert.True(t, whail.IsNotFound(err))
	whailtest.AssertNotCalled(t, fake, "ContainerRemove")
}

func TestContainerRemove_ForcesAndRemovesVolumes(t *testing.T) {
	fake := whailtest.NewFakeAPIClient()
	var got client.ContainerRemoveOptions
	fake.ContainerRemoveFn = func(_ context.Context, _ string, opts client.ContainerRemoveOptions) (client.ContainerRemoveResult, error) {
		got = opts
		return client.ContainerRemoveResult{}, nil
	}
	e := whailtest.NewEngine(fake)

	require.NoError(t, e.ContainerRemove(context.Background(), "web", true))
	assert.True(t, got.Force)
	assert.True(t, got.RemoveVolumes)
}

func TestEnsureImage(t *testing.T) {
	t.Run("present image is not pulled", func(t *testing.T) {
		d := whailtest.NewFakeDaemon()
		d.AddImage("redis:7")
		e := d.Engine()

		require.NoError(t, e.EnsureImage(context.Background(), "redis:7", nil))
		assert.Empty(t, d.Puller.Refs())
	})

	t.Run("missing image is pulled", func(t *testing.T) {
		d := whailtest.NewFakeDaemon()
		e := d.Engine()

		var progress bytes.Buffer
		require.NoError(t, e.EnsureImage(context.Background(), "redis:7", &progress))
		assert.Equal(t, []string{"redis:7"}, d.Puller.Refs())
		assert.Contains(t, progress.String(), "Pull complete")

		exists, err := e.ImageExists(context.Background(), "redis:7")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("pull failure", func(t *testing.T) {
		d := whailtest.NewFakeDaemon()
		d.Puller.Err = errors.New("manifest unknown")
		e := d.Engine()

		err := e.EnsureImage(context.Background(), "nope:1", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Image 'nope:1' not found")
	})

	t.Run("no puller", func(t *testing.T) {
		fake := whailtest.NewFakeAPIClient()
		fake.ImageInspectFn = func(_ context.Context, ref string, _ ...client.ImageInspectOption) (client.ImageInspectResult, error) {
			return client.ImageInspectResult{}, whailtest.NotFoundError(ref)
		}
		e := whailtest.NewEngine(fake)

		require.Error(t, e.EnsureImage(context.Background(), "redis:7", nil))
	})
}

func TestListByLabels_FiltersToManaged(t *testing.T) {
	d := whailtest.NewFakeDaemon()
	d.AddImage("busybox")
	e := d.Engine()
	ctx := context.Background()

	_, err := e.ContainerCreate(ctx, client.ContainerCreateOptions{
		Name:   "mine",
		Config: &container.Config{Image: "busybox"},
	}, map[string]string{"com.whailtest.environment": "a"})
	require.NoError(t, err)
	_, err = e.ContainerCreate(ctx, client.ContainerCreateOptions{
		Name:   "other-env",
		Config: &container.Config{Image: "busybox"},
	}, map[string]string{"com.whailtest.environment": "b"})
	require.NoError(t, err)
	_, err = d.API.ContainerCreate(ctx, client.ContainerCreateOptions{
		Name:   "foreign",
		Config: &container.Config{Image: "busybox"},
	})
	require.NoError(t, err)

	items, err := e.ContainerListByLabels(ctx, map[string]string{"com.whailtest.environment": "a"}, true)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, []string{"/mine"}, items[0].Names)

	items, err = e.ContainerListByLabels(ctx, nil, true)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestNetworkLifecycle(t *testing.T) {
	d := whailtest.NewFakeDaemon()
	e := d.Engine()
	ctx := context.Background()

	id, err := e.NetworkCreate(ctx, "it-net", client.NetworkCreateOptions{}, map[string]string{"com.whailtest.environment": "it"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	nets, err := e.NetworkListByLabels(ctx, map[string]string{"com.whailtest.environment": "it"})
	require.NoError(t, err)
	require.Len(t, nets, 1)
	assert.Equal(t, "it-net", nets[0].Name)

	_, err = e.NetworkCreate(ctx, "it-net", client.NetworkCreateOptions{})
	require.Error(t, err)

	require.NoError(t, e.NetworkRemove(ctx, "it-net"))
	err = e.NetworkRemove(ctx, "it-net")
	require.Error(t, err)
	assert.True(t, whail.IsNotFound(err))
}
