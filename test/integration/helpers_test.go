//go:build integration

package integration_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/schmitthub/testenv/pkg/testenv"
	"github.com/schmitthub/testenv/pkg/whail"
)

const testLabelPrefix = "com.testenv.test"

func engineOptions() whail.EngineOptions {
	return whail.EngineOptions{LabelPrefix: testLabelPrefix}
}

// newTestEngine connects to the local daemon or skips the test.
func newTestEngine(t *testing.T) *whail.Engine {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	engine, err := whail.New(ctx, engineOptions())
	if err != nil {
		t.Skipf("Docker daemon not available: %v", err)
	}
	t.Cleanup(func() { engine.Close() })
	return engine
}

// uniqueName returns an environment name that does not collide across runs.
func uniqueName(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, time.Now().Format("150405000000"))
}

// removeLeftovers prunes every environment left by earlier or interrupted runs.
func removeLeftovers(ctx context.Context, engine *whail.Engine) {
	envs, err := testenv.ListEnvironments(ctx, engine)
	if err != nil {
		return
	}
	for _, e := range envs {
		_, _ = testenv.Prune(ctx, engine, e.Name)
	}
}
