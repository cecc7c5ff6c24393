package whail

import (
	"context"

	"github.com/moby/moby/api/types/network"
	"github.com/moby/moby/client"
)

// NetworkCreate creates a network with managed labels automatically applied.
// The driver defaults to "bridge". Returns the network ID.
func (e *Engine) NetworkCreate(ctx context.Context, name string, options client.NetworkCreateOptions, extraLabels ...map[string]string) (string, error) {
	options.Labels = MergeLabels(options.Labels, e.networkLabels(extraLabels...))
	if options.Driver == "" {
		options.Driver = "bridge"
	}

	resp, err := e.APIClient.NetworkCreate(ctx, name, options)
	if err != nil {
		return "", ErrNetworkCreateFailed(name, err)
	}
	return resp.ID, nil
}

// NetworkRemove removes a network. A missing network is reported as an
// error satisfying IsNotFound.
func (e *Engine) NetworkRemove(ctx context.Context, name string) error {
	if _, err := e.APIClient.NetworkRemove(ctx, name, client.NetworkRemoveOptions{}); err != nil {
		return ErrNetworkRemoveFailed(name, err)
	}
	return nil
}

// NetworkListByLabels lists managed networks matching additional label filters.
func (e *Engine) NetworkListByLabels(ctx context.Context, labels map[string]string) ([]network.Summary, error) {
	res, err := e.APIClient.NetworkList(ctx, client.NetworkListOptions{
		Filters: MergeLabelFilters(e.newManagedFilter(), labels),
	})
	if err != nil {
		return nil, ErrNetworkListFailed(err)
	}
	want := MergeLabels(e.managedLabels(), labels)
	items := make([]network.Summary, 0, len(res.Items))
	for _, n := range res.Items {
		if HasLabels(n.Labels, want) {
			items = append(items, n)
		}
	}
	return items, nil
}
