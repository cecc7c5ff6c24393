package init

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/schmitthub/testenv/internal/cmdutil"
	"github.com/schmitthub/testenv/internal/config"
	"github.com/schmitthub/testenv/internal/iostreams"
)

// InitOptions contains the options for the init command.
type InitOptions struct {
	IOStreams *iostreams.IOStreams

	Dir   string
	Name  string
	Force bool
}

// NewCmdInit creates the init command.
func NewCmdInit(f *cmdutil.Factory, runF func(context.Context, *InitOptions) error) *cobra.Command {
	opts := &InitOptions{IOStreams: f.IOStreams}

	cmd := &cobra.Command{
		Use:   "init [DIR]",
		Short: "Write a starter testenv.yaml",
		Long: `Writes a testenv.yaml declaring a sample database and cache.

The environment name defaults to the directory name.`,
		Example: `  # Scaffold in the current directory
  testenv init

  # Overwrite an existing file with a custom name
  testenv init --name suite1 --force`,
		Args: cmdutil.RequiresMaxArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Dir = "."
			if len(args) == 1 {
				opts.Dir = args[0]
			}
			if runF != nil {
				return runF(cmd.Context(), opts)
			}
			return initRun(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "Environment name (default: directory name)")
	cmd.Flags().BoolVarP(&opts.Force, "force", "f", false, "Overwrite an existing file")

	return cmd
}

var invalidNameChars = regexp.MustCompile(`[^a-zA-Z0-9_.-]+`)

// defaultName derives an environment name from a directory.
func defaultName(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}
	name := invalidNameChars.ReplaceAllString(filepath.Base(abs), "-")
	name = strings.TrimLeft(name, "-_.")
	if name == "" {
		return "testenv"
	}
	return strings.ToLower(name)
}

func initRun(_ context.Context, opts *InitOptions) error {
	ios := opts.IOStreams
	cs := ios.ColorScheme()

	path := filepath.Join(opts.Dir, config.ConfigFileName)
	if _, err := os.Stat(path); err == nil && !opts.Force {
		fmt.Fprintf(ios.ErrOut, "%s %s already exists (use --force to overwrite)\n", cs.FailureIcon(), path)
		return cmdutil.SilentError
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to check %s: %w", path, err)
	}

	name := opts.Name
	if name == "" {
		name = defaultName(opts.Dir)
	}
	content := fmt.Sprintf(config.DefaultConfigYAML, name)
	if _, err := config.Parse([]byte(content)); err != nil {
		return cmdutil.FlagErrorf("invalid --name %q: %w", name, err)
	}

	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", opts.Dir, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	fmt.Fprintf(ios.ErrOut, "%s Created %s\n", cs.SuccessIcon(), path)
	fmt.Fprintf(ios.ErrOut, "Start it with: testenv up -f %s\n", path)
	return nil
}
