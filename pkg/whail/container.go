package whail

import (
	"context"
	"io"

	"github.com/moby/moby/api/types/container"
	"github.com/moby/moby/client"
)

// ContainerCreate creates a container with the managed labels merged into
// opts.Config.Labels. extraLabels are applied after the configured ones.
func (e *Engine) ContainerCreate(ctx context.Context, opts client.ContainerCreateOptions, extraLabels ...map[string]string) (client.ContainerCreateResult, error) {
	if opts.Config == nil {
		opts.Config = &container.Config{}
	}
	opts.Config.Labels = MergeLabels(opts.Config.Labels, e.containerLabels(extraLabels...))

	resp, err := e.APIClient.ContainerCreate(ctx, opts)
	if err != nil {
		return client.ContainerCreateResult{}, ErrContainerCreateFailed(opts.Name, err)
	}
	return resp, nil
}

// ContainerStart starts a container.
func (e *Engine) ContainerStart(ctx context.Context, containerID string) error {
	if _, err := e.APIClient.ContainerStart(ctx, containerID, client.ContainerStartOptions{}); err != nil {
		return ErrContainerStartFailed(containerID, err)
	}
	return nil
}

// ContainerStop stops a container with an optional timeout.
// If timeout is nil, the Docker default is used.
// Only stops managed containers.
func (e *Engine) ContainerStop(ctx context.Context, containerID string, timeout *int) error {
	if err := e.requireManagedContainer(ctx, containerID); err != nil {
		return err
	}
	if _, err := e.APIClient.ContainerStop(ctx, containerID, client.ContainerStopOptions{Timeout: timeout}); err != nil {
		return ErrContainerStopFailed(containerID, err)
	}
	return nil
}

// ContainerRemove removes a managed container and its anonymous volumes.
func (e *Engine) ContainerRemove(ctx context.Context, containerID string, force bool) error {
	if err := e.requireManagedContainer(ctx, containerID); err != nil {
		return err
	}
	_, err := e.APIClient.ContainerRemove(ctx, containerID, client.ContainerRemoveOptions{
		Force:         force,
		RemoveVolumes: true,
	})
	if err != nil {
		return ErrContainerRemoveFailed(containerID, err)
	}
	return nil
}

// ContainerInspect inspects a container.
func (e *Engine) ContainerInspect(ctx context.Context, containerID string) (container.InspectResponse, error) {
	res, err := e.APIClient.ContainerInspect(ctx, containerID, client.ContainerInspectOptions{})
	if err != nil {
		if IsNotFound(err) {
			return container.InspectResponse{}, ErrContainerNotFound(containerID, err)
		}
		return container.InspectResponse{}, ErrContainerInspectFailed(containerID, err)
	}
	return res.Container, nil
}

// ContainerLogs returns the raw log stream of a container.
func (e *Engine) ContainerLogs(ctx context.Context, containerID string, opts client.ContainerLogsOptions) (io.ReadCloser, error) {
	rc, err := e.APIClient.ContainerLogs(ctx, containerID, opts)
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrContainerNotFound(containerID, err)
		}
		return nil, ErrContainerLogsFailed(containerID, err)
	}
	return rc, nil
}

// ContainerListByLabels lists managed containers matching additional label filters.
func (e *Engine) ContainerListByLabels(ctx context.Context, labels map[string]string, all bool) ([]container.Summary, error) {
	res, err := e.APIClient.ContainerList(ctx, client.ContainerListOptions{
		All:     all,
		Filters: MergeLabelFilters(e.newManagedFilter(), labels),
	})
	if err != nil {
		return nil, ErrContainerListFailed(err)
	}
	want := MergeLabels(e.managedLabels(), labels)
	items := make([]container.Summary, 0, len(res.Items))
	for _, c := range res.Items {
		if HasLabels(c.Labels, want) {
			items = append(items, c)
		}
	}
	return items, nil
}

// IsContainerManaged checks if a container has the managed label.
// A missing container is reported as an error satisfying IsNotFound.
func (e *Engine) IsContainerManaged(ctx context.Context, containerID string) (bool, error) {
	res, err := e.APIClient.ContainerInspect(ctx, containerID, client.ContainerInspectOptions{})
	if err != nil {
		return false, err
	}
	if res.Container.Config == nil {
		return false, nil
	}
	val, ok := res.Container.Config.Labels[e.managedLabelKey]
	return ok && val == e.managedLabelValue, nil
}

func (e *Engine) requireManagedContainer(ctx context.Context, containerID string) error {
	managed, err := e.IsContainerManaged(ctx, containerID)
	if err != nil {
		if IsNotFound(err) {
			return ErrContainerNotFound(containerID, err)
		}
		return ErrContainerInspectFailed(containerID, err)
	}
	if !managed {
		return ErrContainerNotManaged(containerID)
	}
	return nil
}
