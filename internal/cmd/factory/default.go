package factory

import (
	"context"
	"os"
	"sync"

	"github.com/schmitthub/testenv/internal/cmdutil"
	"github.com/schmitthub/testenv/internal/config"
	"github.com/schmitthub/testenv/internal/iostreams"
	"github.com/schmitthub/testenv/internal/logger"
	"github.com/schmitthub/testenv/pkg/whail"
)

// New creates a fully-wired Factory with lazy-initialized dependency closures.
// Called exactly once at the CLI entry point. Tests should NOT import this
// package; construct &cmdutil.Factory{} directly.
func New(version, commit string) *cmdutil.Factory {
	ios := iostreams.NewIOStreams()
	ios.Logger = &logger.Log

	// Respect NO_COLOR environment variable
	if !ios.IsOutputTTY() || os.Getenv("NO_COLOR") != "" {
		ios.SetColorEnabled(false)
	}

	f := &cmdutil.Factory{
		Version:   version,
		Commit:    commit,
		IOStreams: ios,
	}

	var (
		engineOnce sync.Once
		engine     *whail.Engine
		engineErr  error
	)
	f.Engine = func(ctx context.Context) (*whail.Engine, error) {
		engineOnce.Do(func() {
			engine, engineErr = whail.New(ctx, whail.EngineOptions{})
		})
		return engine, engineErr
	}
	f.CloseEngine = func() {
		if engine != nil {
			engine.Close()
		}
	}

	f.ConfigLoader = config.NewLoader
	return f
}
