package root

import (
	"github.com/spf13/cobra"

	downcmd "github.com/schmitthub/testenv/internal/cmd/down"
	initcmd "github.com/schmitthub/testenv/internal/cmd/init"
	lscmd "github.com/schmitthub/testenv/internal/cmd/ls"
	upcmd "github.com/schmitthub/testenv/internal/cmd/up"
	versioncmd "github.com/schmitthub/testenv/internal/cmd/version"
	"github.com/schmitthub/testenv/internal/cmdutil"
	"github.com/schmitthub/testenv/internal/logger"
)

// NewCmdRoot creates the root command for the testenv CLI.
func NewCmdRoot(f *cmdutil.Factory, version, buildDate string) *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:   "testenv",
		Short: "Run disposable Docker environments for integration tests",
		Long: `testenv starts the containers and networks a test suite depends on,
waits until each one is ready and removes everything afterwards.

Quick start:
  testenv init           # Write a starter testenv.yaml
  testenv up             # Start it and block until Ctrl-C
  testenv ls             # Show environments on the daemon
  testenv down NAME      # Remove a detached or abandoned environment`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Annotations: map[string]string{
			"versionInfo": versioncmd.Format(version, buildDate),
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger.Init(debug)
			logger.Debug().
				Str("version", f.Version).
				Bool("debug", debug).
				Msg("testenv starting")
			return nil
		},
		Version: f.Version,
	}

	cmd.PersistentFlags().BoolVarP(&debug, "debug", "D", false, "Enable debug logging")
	cmd.SetVersionTemplate(versioncmd.Format(version, buildDate))

	cmd.AddCommand(initcmd.NewCmdInit(f, nil))
	cmd.AddCommand(upcmd.NewCmdUp(f, nil))
	cmd.AddCommand(downcmd.NewCmdDown(f, nil))
	cmd.AddCommand(lscmd.NewCmdLs(f, nil))
	cmd.AddCommand(versioncmd.NewCmdVersion(f, version, buildDate))

	return cmd
}
