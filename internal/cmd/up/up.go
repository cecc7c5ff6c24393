package up

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/schmitthub/testenv/internal/cmdutil"
	"github.com/schmitthub/testenv/internal/config"
	"github.com/schmitthub/testenv/internal/iostreams"
	"github.com/schmitthub/testenv/internal/logger"
	"github.com/schmitthub/testenv/pkg/testenv"
	"github.com/schmitthub/testenv/pkg/whail"
)

// DefaultStopTimeout bounds teardown after the wait ends.
const DefaultStopTimeout = 2 * time.Minute

// UpOptions contains the options for the up command.
type UpOptions struct {
	IOStreams    *iostreams.IOStreams
	Engine       func(context.Context) (*whail.Engine, error)
	ConfigLoader func(path string) *config.Loader

	File     string
	Name     string
	DinD     bool
	Parallel bool
	Detach   bool
	Timeout  time.Duration
	Debug    bool

	// Wait blocks while the environment runs. Defaults to waiting for ctx.
	Wait func(ctx context.Context) error
}

// NewCmdUp creates the up command.
func NewCmdUp(f *cmdutil.Factory, runF func(context.Context, *UpOptions) error) *cobra.Command {
	opts := &UpOptions{
		IOStreams:    f.IOStreams,
		Engine:       f.Engine,
		ConfigLoader: f.ConfigLoader,
	}

	cmd := &cobra.Command{
		Use:   "up",
		Short: "Start the environment declared in testenv.yaml",
		Long: `Starts every network and container of the environment file and waits
until each one is ready.

The environment stays up until interrupted, then everything is removed.
With --detach the command returns once ready; remove the environment
later with "testenv down".`,
		Example: `  # Start and block until Ctrl-C
  testenv up

  # Start a second copy under another name and return
  testenv up -f ci/testenv.yaml --name ci-42 --detach`,
		Args: cmdutil.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Debug, _ = cmd.Flags().GetBool("debug")
			if runF != nil {
				return runF(cmd.Context(), opts)
			}
			return upRun(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "Environment file or directory (default: ./testenv.yaml)")
	cmd.Flags().StringVar(&opts.Name, "name", "", "Override the environment name")
	cmd.Flags().BoolVar(&opts.DinD, "dind", false, "Reach containers by IP, for runs inside a container")
	cmd.Flags().BoolVar(&opts.Parallel, "parallel", false, "Start dependencies concurrently")
	cmd.Flags().BoolVarP(&opts.Detach, "detach", "d", false, "Return once ready and leave the environment running")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "Readiness timeout per dependency (default: from file, else 60s)")

	return cmd
}

func upRun(ctx context.Context, opts *UpOptions) error {
	ios := opts.IOStreams
	cs := ios.ColorScheme()

	loader := opts.ConfigLoader(opts.File)
	cfg, err := loader.Load()
	if err != nil {
		if config.IsConfigNotFound(err) {
			fmt.Fprintf(ios.ErrOut, "%s %s not found (create one with: testenv init)\n", cs.FailureIcon(), loader.Path())
			return cmdutil.SilentError
		}
		return err
	}
	if err := applyFlags(cfg, opts); err != nil {
		return err
	}

	if cfg.Logging.FileEnabled != nil && *cfg.Logging.FileEnabled {
		initFileLogging(opts.Debug, cfg)
		defer logger.CloseFileWriter()
	}

	engine, err := opts.Engine(ctx)
	if err != nil {
		return err
	}

	b := testenv.NewBuilder(engine).WithLogger(logger.Log)
	if err := config.Apply(cfg, b); err != nil {
		return err
	}
	env, err := b.Build()
	if err != nil {
		return err
	}
	logger.SetEnvironment(env.Name())
	defer logger.SetEnvironment("")

	err = ios.RunWithSpinner(fmt.Sprintf("Starting %s", env.Name()), func() error {
		return env.Start(ctx)
	})
	if err != nil {
		fmt.Fprintf(ios.ErrOut, "%s Environment %s failed to start\n", cs.FailureIcon(), env.Name())
		var se *testenv.StartError
		if errors.As(err, &se) && se.Rollback != nil {
			fmt.Fprintf(ios.ErrOut, "%s Leftovers may remain; remove them with: testenv down %s\n", cs.WarningIcon(), env.Name())
		}
		return err
	}

	fmt.Fprintf(ios.ErrOut, "%s Environment %s is ready\n", cs.SuccessIcon(), env.Name())
	if err := printDependencies(ctx, ios, env); err != nil {
		return multierr.Append(err, stopEnvironment(ctx, ios, env))
	}

	if opts.Detach {
		fmt.Fprintf(ios.ErrOut, "Remove it with: testenv down %s\n", env.Name())
		return nil
	}

	wait := opts.Wait
	if wait == nil {
		wait = waitForDone
	}
	fmt.Fprintln(ios.ErrOut, cs.Muted("Press Ctrl-C to stop"))
	waitErr := wait(ctx)

	if err := stopEnvironment(ctx, ios, env); err != nil {
		return err
	}
	if waitErr != nil && !errors.Is(waitErr, context.Canceled) {
		return waitErr
	}
	return nil
}

// stopEnvironment tears env down on a context that outlives ctx's
// cancellation, bounded by DefaultStopTimeout.
func stopEnvironment(ctx context.Context, ios *iostreams.IOStreams, env *testenv.Environment) error {
	cs := ios.ColorScheme()
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), DefaultStopTimeout)
	defer cancel()
	err := ios.RunWithSpinner(fmt.Sprintf("Stopping %s", env.Name()), func() error {
		return env.Stop(stopCtx)
	})
	if err != nil {
		fmt.Fprintf(ios.ErrOut, "%s Environment %s was not fully removed\n", cs.FailureIcon(), env.Name())
		return err
	}
	fmt.Fprintf(ios.ErrOut, "%s Environment %s removed\n", cs.SuccessIcon(), env.Name())
	return nil
}

// applyFlags overrides file settings with command line flags.
func applyFlags(cfg *config.Config, opts *UpOptions) error {
	if opts.Timeout < 0 {
		return cmdutil.FlagErrorf("--timeout must not be negative")
	}
	if opts.Name != "" {
		cfg.Name = opts.Name
	}
	if opts.DinD {
		cfg.DinD = true
	}
	if opts.Parallel {
		cfg.Parallel = true
	}
	if opts.Timeout > 0 {
		cfg.ReadyTimeout = opts.Timeout
	}
	return nil
}

// initFileLogging adds rotated file output; failures fall back to the
// console logger.
func initFileLogging(debug bool, cfg *config.Config) {
	logsDir, err := config.LogsDir()
	if err != nil {
		logger.Warn().Err(err).Msg("file logging unavailable: failed to get logs directory")
		return
	}
	if err := logger.InitWithFile(debug, logsDir, cfg.Logging.Logger()); err != nil {
		logger.Init(debug)
		logger.Warn().Err(err).Msg("file logging unavailable: failed to initialize file writer")
		return
	}
	logger.Debug().Str("path", logger.GetLogFilePath()).Msg("file logging enabled")
}

func waitForDone(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func printDependencies(ctx context.Context, ios *iostreams.IOStreams, env *testenv.Environment) error {
	tp := ios.NewTablePrinter("DEPENDENCY", "STATE", "ENDPOINTS")
	for _, dep := range env.Dependencies() {
		endpoints := ""
		if c, ok := dep.(*testenv.Container); ok {
			ep, err := c.Endpoint(ctx)
			if err != nil {
				return err
			}
			endpoints = formatEndpoint(ep)
		}
		tp.AddRow(dep.Name(), dep.State().String(), endpoints)
	}
	return tp.Render()
}

// formatEndpoint renders "5432/tcp->localhost:32768" pairs sorted by port.
func formatEndpoint(ep testenv.Endpoint) string {
	parts := make([]string, 0, len(ep.Ports))
	for _, key := range slices.Sorted(maps.Keys(ep.Ports)) {
		addr, err := ep.Address(key)
		if err != nil {
			continue
		}
		parts = append(parts, key+"->"+addr)
	}
	return strings.Join(parts, ",")
}
