// Package cli runs the testenv command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/schmitthub/testenv/internal/cmd/factory"
	"github.com/schmitthub/testenv/internal/cmd/root"
	"github.com/schmitthub/testenv/internal/cmdutil"
	"github.com/schmitthub/testenv/internal/logger"
	"github.com/schmitthub/testenv/internal/signals"
	"github.com/schmitthub/testenv/pkg/whail"
)

// Build-time variables injected via ldflags
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = ""
)

const (
	exitOk    = 0
	exitError = 1
	exitUsage = 2
)

// Main is the entry point for the testenv CLI. It returns the process exit
// code.
func Main() int {
	defer logger.CloseFileWriter()

	f := factory.New(Version, Commit)
	defer f.CloseEngine()

	ctx, cancel := signals.SetupSignalContext(context.Background())
	defer cancel()

	cmd, err := root.NewCmdRoot(f, Version, BuildDate).ExecuteContextC(ctx)
	return exitCode(f.IOStreams.ErrOut, cmd, err)
}

// exitCode prints err the way its kind requires and maps it to a code.
func exitCode(w io.Writer, cmd *cobra.Command, err error) int {
	if err == nil {
		return exitOk
	}
	if errors.Is(err, cmdutil.SilentError) {
		return exitError
	}

	var de *whail.DockerError
	if errors.As(err, &de) && len(de.NextSteps) > 0 {
		fmt.Fprint(w, de.FormatUserError())
		return exitError
	}

	fmt.Fprintf(w, "Error: %v\n", err)
	var flagErr *cmdutil.FlagError
	if errors.As(err, &flagErr) {
		if cmd != nil {
			fmt.Fprintf(w, "\n%s", cmd.UsageString())
		}
		return exitUsage
	}
	if cmd != nil {
		fmt.Fprintf(w, "Run '%s --help' for usage.\n", cmd.CommandPath())
	}
	return exitError
}
