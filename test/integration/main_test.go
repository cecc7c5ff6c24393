//go:build integration

package integration_test

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"testing"
	"time"

	"github.com/schmitthub/testenv/pkg/whail"
)

func TestMain(m *testing.M) {
	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		engine, err := whail.New(ctx, engineOptions())
		if err != nil {
			return
		}
		defer engine.Close()
		removeLeftovers(ctx, engine)
	}

	// Catch SIGINT/SIGTERM so Ctrl+C still cleans up.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		cleanup()
		os.Exit(1)
	}()

	// Clean stale resources from previous runs
	cleanup()

	code := m.Run()

	signal.Stop(sig)
	cleanup()

	os.Exit(code)
}
