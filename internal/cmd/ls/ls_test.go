package ls

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schmitthub/testenv/internal/iostreams/iostreamstest"
	"github.com/schmitthub/testenv/pkg/testenv"
	"github.com/schmitthub/testenv/pkg/whail"
	"github.com/schmitthub/testenv/pkg/whail/whailtest"
)

func setup(t *testing.T) (*LsOptions, *iostreamstest.TestIOStreams, *whailtest.FakeDaemon) {
	t.Helper()
	d := whailtest.NewFakeDaemon()
	engine := d.Engine()
	ios := iostreamstest.New()
	return &LsOptions{
		IOStreams: ios.IOStreams,
		Engine:    func(context.Context) (*whail.Engine, error) { return engine, nil },
	}, ios, d
}

func start(t *testing.T, engine *whail.Engine, name string, containers ...string) {
	t.Helper()
	b := testenv.NewBuilder(engine).SetName(name).WithReadyTimeout(time.Second)
	for _, c := range containers {
		b.AddContainer(c, "busybox", testenv.WithProbeInterval(5*time.Millisecond))
	}
	env, err := b.Build()
	require.NoError(t, err)
	require.NoError(t, env.Start(context.Background()))
}

func TestLsRun_Table(t *testing.T) {
	opts, ios, d := setup(t)
	engine := d.Engine()
	start(t, engine, "ci-42", "web", "cache")
	start(t, engine, "alpha", "db")

	require.NoError(t, lsRun(context.Background(), opts))

	lines := strings.Split(strings.TrimRight(ios.OutBuf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"ENVIRONMENT", "RUNNING", "CONTAINERS", "NETWORKS"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"alpha", "1/1", "alpha-db", "-"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"ci-42", "2/2", "ci-42-cache,ci-42-web", "-"}, strings.Fields(lines[2]))
}

func TestLsRun_Quiet(t *testing.T) {
	opts, ios, d := setup(t)
	start(t, d.Engine(), "ci-42", "web")
	opts.Quiet = true

	require.NoError(t, lsRun(context.Background(), opts))
	assert.Equal(t, "ci-42\n", ios.OutBuf.String())
}

func TestLsRun_Empty(t *testing.T) {
	opts, ios, _ := setup(t)
	require.NoError(t, lsRun(context.Background(), opts))
	assert.Empty(t, ios.OutBuf.String())
	assert.Contains(t, ios.ErrBuf.String(), "No environments found")
}

func TestLsRun_Unreachable(t *testing.T) {
	opts, _, d := setup(t)
	d.SetUnreachable(true)
	err := lsRun(context.Background(), opts)
	require.ErrorIs(t, err, testenv.ErrUnreachable)
}

func TestOrNone(t *testing.T) {
	assert.Equal(t, "-", orNone(nil))
	assert.Equal(t, "a,b", orNone([]string{"a", "b"}))
	assert.Equal(t, "a,b,c,+2", orNone([]string{"a", "b", "c", "d", "e"}))
}
