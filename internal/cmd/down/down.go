package down

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/schmitthub/testenv/internal/cmdutil"
	"github.com/schmitthub/testenv/internal/config"
	"github.com/schmitthub/testenv/internal/iostreams"
	"github.com/schmitthub/testenv/pkg/testenv"
	"github.com/schmitthub/testenv/pkg/whail"
)

// DownOptions contains the options for the down command.
type DownOptions struct {
	IOStreams    *iostreams.IOStreams
	Engine       func(context.Context) (*whail.Engine, error)
	ConfigLoader func(path string) *config.Loader

	Names []string
	File  string
	All   bool
}

// NewCmdDown creates the down command.
func NewCmdDown(f *cmdutil.Factory, runF func(context.Context, *DownOptions) error) *cobra.Command {
	opts := &DownOptions{
		IOStreams:    f.IOStreams,
		Engine:       f.Engine,
		ConfigLoader: f.ConfigLoader,
	}

	cmd := &cobra.Command{
		Use:   "down [NAME...]",
		Short: "Remove the containers and networks of environments",
		Long: `Force-removes everything labeled with the given environment names.

Use it after "testenv up --detach" or when a run was killed before it
could clean up. Without a name, the name is read from the environment file.`,
		Example: `  # Remove the environment of ./testenv.yaml
  testenv down

  # Remove two environments by name
  testenv down ci-41 ci-42

  # Remove every environment on the daemon
  testenv down --all`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Names = args
			if opts.All && len(args) > 0 {
				return cmdutil.FlagErrorf("--all cannot be combined with environment names")
			}
			if runF != nil {
				return runF(cmd.Context(), opts)
			}
			return downRun(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "Environment file or directory used when no NAME is given")
	cmd.Flags().BoolVarP(&opts.All, "all", "a", false, "Remove every environment")

	return cmd
}

func downRun(ctx context.Context, opts *DownOptions) error {
	ios := opts.IOStreams
	cs := ios.ColorScheme()

	engine, err := opts.Engine(ctx)
	if err != nil {
		return err
	}

	names, err := resolveNames(ctx, opts, engine)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Fprintf(ios.ErrOut, "%s No environments found\n", cs.WarningIcon())
		return nil
	}

	var errs error
	for _, name := range names {
		var report testenv.PruneReport
		err := ios.RunWithSpinner(fmt.Sprintf("Removing %s", name), func() error {
			var err error
			report, err = testenv.Prune(ctx, engine, name)
			return err
		})
		switch {
		case err != nil:
			fmt.Fprintf(ios.ErrOut, "%s %s: %v\n", cs.FailureIcon(), name, err)
			errs = multierr.Append(errs, err)
		case report.Empty():
			fmt.Fprintf(ios.ErrOut, "%s %s: nothing to remove\n", cs.WarningIcon(), name)
		default:
			fmt.Fprintf(ios.ErrOut, "%s %s: removed %s\n", cs.SuccessIcon(), name, describe(report))
		}
	}
	if errs != nil {
		ios.Logger.Debug().Err(errs).Int("failed", len(multierr.Errors(errs))).Msg("down finished with errors")
		return cmdutil.SilentError
	}
	return nil
}

func resolveNames(ctx context.Context, opts *DownOptions, engine *whail.Engine) ([]string, error) {
	if opts.All {
		envs, err := testenv.ListEnvironments(ctx, engine)
		if err != nil {
			return nil, err
		}
		names := make([]string, len(envs))
		for i, e := range envs {
			names[i] = e.Name
		}
		return names, nil
	}
	if len(opts.Names) > 0 {
		return opts.Names, nil
	}

	cfg, err := opts.ConfigLoader(opts.File).Load()
	if err != nil {
		if config.IsConfigNotFound(err) {
			return nil, cmdutil.FlagErrorf("no environment name given and %s not found", config.ConfigFileName)
		}
		return nil, err
	}
	if cfg.Name == "" {
		return nil, cmdutil.FlagErrorf("environment file sets no name; pass NAME")
	}
	return []string{cfg.Name}, nil
}

func describe(r testenv.PruneReport) string {
	var parts []string
	if n := len(r.Containers); n > 0 {
		parts = append(parts, fmt.Sprintf("%d %s", n, plural(n, "container")))
	}
	if n := len(r.Networks); n > 0 {
		parts = append(parts, fmt.Sprintf("%d %s", n, plural(n, "network")))
	}
	return strings.Join(parts, " and ")
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
