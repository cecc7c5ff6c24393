package cmdutil

import (
	"context"

	"github.com/schmitthub/testenv/internal/config"
	"github.com/schmitthub/testenv/internal/iostreams"
	"github.com/schmitthub/testenv/pkg/whail"
)

// Factory provides shared dependencies for CLI commands. The struct is the
// contract; internal/cmd/factory wires the real implementations and tests
// construct &cmdutil.Factory{} with fakes.
type Factory struct {
	// Version info (set at build time via ldflags)
	Version string
	Commit  string

	IOStreams *iostreams.IOStreams

	// Engine returns the lazily connected daemon client.
	Engine      func(context.Context) (*whail.Engine, error)
	CloseEngine func()

	// ConfigLoader returns a loader for an environment file path.
	ConfigLoader func(path string) *config.Loader
}
