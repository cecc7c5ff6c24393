package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schmitthub/testenv/pkg/testenv"
	"github.com/schmitthub/testenv/pkg/whail/whailtest"
)

func TestApply(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	d := whailtest.NewFakeDaemon()
	b := testenv.NewBuilder(d.Engine())
	require.NoError(t, Apply(cfg, b))

	built := b.Config()
	assert.Equal(t, "suite1", built.Name)
	assert.True(t, built.Parallel)
	assert.Equal(t, 90*time.Second, built.ReadyTimeout)
	assert.Equal(t, []testenv.Variable{testenv.Var("Mixed_Case", "yes"), testenv.Var("TZ", "UTC")}, built.Variables.Sorted())

	env, err := b.Build()
	require.NoError(t, err)
	var names []string
	for _, dep := range env.Dependencies() {
		names = append(names, dep.Name())
	}
	assert.Equal(t, []string{"suite1-backend", "suite1-db", "suite1-cache"}, names)

	dep, ok := env.Dependency("db")
	require.True(t, ok)
	db := dep.(*testenv.Container)
	assert.Equal(t, "postgres:14", db.Image())
	assert.Equal(t, []string{"Mixed_Case=yes", "POSTGRES_PASSWORD=secret", "TZ=UTC"}, db.Env())
}

func TestApply_StartsEnvironment(t *testing.T) {
	cfg, err := Parse([]byte(`
name: it
containers:
  - name: web
    image: nginx
    probe:
      interval: 5ms
`))
	require.NoError(t, err)

	d := whailtest.NewFakeDaemon()
	b := testenv.NewBuilder(d.Engine())
	require.NoError(t, Apply(cfg, b))
	env, err := b.Build()
	require.NoError(t, err)

	require.NoError(t, env.Start(context.Background()))
	assert.Equal(t, []string{"it-web"}, d.ContainerNames())
	require.NoError(t, env.Stop(context.Background()))
}

func TestApply_Nil(t *testing.T) {
	require.ErrorIs(t, Apply(nil, testenv.NewBuilder(nil)), ErrInvalidConfig)
}
