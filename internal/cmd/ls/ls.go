package ls

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/schmitthub/testenv/internal/cmdutil"
	"github.com/schmitthub/testenv/internal/iostreams"
	"github.com/schmitthub/testenv/pkg/testenv"
	"github.com/schmitthub/testenv/pkg/whail"
)

// LsOptions contains the options for the ls command.
type LsOptions struct {
	IOStreams *iostreams.IOStreams
	Engine    func(context.Context) (*whail.Engine, error)

	Quiet bool
}

// NewCmdLs creates the ls command.
func NewCmdLs(f *cmdutil.Factory, runF func(context.Context, *LsOptions) error) *cobra.Command {
	opts := &LsOptions{
		IOStreams: f.IOStreams,
		Engine:    f.Engine,
	}

	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List environments on the daemon",
		Example: `  # Show environments with their containers
  testenv ls

  # Remove everything that is listed
  testenv ls -q | xargs testenv down`,
		Args: cmdutil.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if runF != nil {
				return runF(cmd.Context(), opts)
			}
			return lsRun(cmd.Context(), opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "Only print environment names")

	return cmd
}

func lsRun(ctx context.Context, opts *LsOptions) error {
	ios := opts.IOStreams

	engine, err := opts.Engine(ctx)
	if err != nil {
		return err
	}
	envs, err := testenv.ListEnvironments(ctx, engine)
	if err != nil {
		return err
	}

	if opts.Quiet {
		for _, e := range envs {
			fmt.Fprintln(ios.Out, e.Name)
		}
		return nil
	}
	if len(envs) == 0 {
		fmt.Fprintln(ios.ErrOut, "No environments found")
		return nil
	}

	tp := ios.NewTablePrinter("ENVIRONMENT", "RUNNING", "CONTAINERS", "NETWORKS")
	for _, e := range envs {
		tp.AddRow(
			e.Name,
			fmt.Sprintf("%d/%d", e.Running, len(e.Containers)),
			orNone(e.Containers),
			orNone(e.Networks),
		)
	}
	return tp.Render()
}

func orNone(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	if len(items) > 3 {
		return strings.Join(items[:3], ",") + ",+" + strconv.Itoa(len(items)-3)
	}
	return strings.Join(items, ",")
}
