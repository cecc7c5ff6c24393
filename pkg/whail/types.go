package whail

import (
	"github.com/moby/moby/api/types/container"
	"github.com/moby/moby/api/types/network"
	"github.com/moby/moby/client"
)

// Type aliases for Docker SDK types.
// These allow packages to use whail as their single import for client options.
type (
	Filters = client.Filters

	ContainerCreateOptions = client.ContainerCreateOptions
	ContainerLogsOptions   = client.ContainerLogsOptions
	NetworkCreateOptions   = client.NetworkCreateOptions

	ContainerSummary = container.Summary
	ContainerInspect = container.InspectResponse
	NetworkSummary   = network.Summary
)
