package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
name: suite1
parallel: true
ready_timeout: 90s
variables:
  TZ: UTC
  Mixed_Case: "yes"
networks:
  - backend
containers:
  - name: db
    image: postgres
    tag: "14"
    env:
      POSTGRES_PASSWORD: secret
    ports: ["5432/tcp"]
    network: backend
    aliases: [database]
    probe:
      type: log
      pattern: "ready to accept connections"
      interval: 500ms
  - name: cache
    image: redis
    ports: ["6379"]
    cmd: ["redis-server", "--save", ""]
    labels:
      Team: qa
    stop_timeout: 5s
    probe:
      type: port
      port: "6379"
logging:
  file_enabled: true
  max_backups: 5
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(content), 0o644))
	return dir
}

func TestNewLoader_Path(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, filepath.Join(dir, ConfigFileName), NewLoader(dir).Path())
	assert.Equal(t, "custom.yaml", NewLoader("custom.yaml").Path())
	assert.Equal(t, ConfigFileName, NewLoader("").Path())
}

func TestLoader_Exists(t *testing.T) {
	dir := t.TempDir()
	assert.False(t, NewLoader(dir).Exists())

	dir = writeConfig(t, "name: x\n")
	assert.True(t, NewLoader(dir).Exists())
}

func TestLoader_MissingFile(t *testing.T) {
	_, err := NewLoader(t.TempDir()).Load()
	require.Error(t, err)
	assert.True(t, IsConfigNotFound(err))
}

func TestLoader_Load(t *testing.T) {
	cfg, err := NewLoader(writeConfig(t, sampleYAML)).Load()
	require.NoError(t, err)

	assert.Equal(t, "suite1", cfg.Name)
	assert.True(t, cfg.Parallel)
	assert.False(t, cfg.DinD)
	assert.Equal(t, 90*time.Second, cfg.ReadyTimeout)
	assert.Equal(t, map[string]string{"TZ": "UTC", "Mixed_Case": "yes"}, cfg.Variables)
	assert.Equal(t, []string{"backend"}, cfg.Networks)
	require.Len(t, cfg.Containers, 2)

	db := cfg.Containers[0]
	assert.Equal(t, "db", db.Name)
	assert.Equal(t, "postgres", db.Image)
	assert.Equal(t, "14", db.Tag)
	assert.Equal(t, map[string]string{"POSTGRES_PASSWORD": "secret"}, db.Env)
	assert.Equal(t, []string{"database"}, db.Aliases)
	assert.Equal(t, ProbeLog, db.Probe.Type)
	assert.Equal(t, 500*time.Millisecond, db.Probe.Interval)

	cache, ok := cfg.Container("cache")
	require.True(t, ok)
	assert.Equal(t, []string{"redis-server", "--save", ""}, cache.Cmd)
	assert.Equal(t, map[string]string{"Team": "qa"}, cache.Labels)
	assert.Equal(t, 5*time.Second, cache.StopTimeout)

	require.NotNil(t, cfg.Logging.FileEnabled)
	assert.True(t, *cfg.Logging.FileEnabled)
	lc := cfg.Logging.Logger()
	assert.True(t, lc.IsFileEnabled())
	assert.Equal(t, 5, lc.GetMaxBackups())
	assert.Equal(t, 50, lc.GetMaxSizeMB())
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("containers:\n  - name: web\n    image: nginx\n"))
	require.NoError(t, err)
	assert.Empty(t, cfg.Name)
	assert.Equal(t, DefaultReadyTimeout, cfg.ReadyTimeout)
	assert.NotNil(t, cfg.Variables)
	assert.False(t, cfg.Logging.Logger().IsFileEnabled())
}

func TestParse_EnvOverride(t *testing.T) {
	t.Setenv("TESTENV_NAME", "from-env")
	t.Setenv("TESTENV_DIND", "true")

	cfg, err := Parse([]byte("name: from-file\ncontainers:\n  - name: web\n    image: nginx\n"))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Name)
	assert.True(t, cfg.DinD)
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse([]byte("containers: [\n"))
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = Parse([]byte("ready_timeout: soon\n"))
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestDefaultConfigYAMLParses(t *testing.T) {
	cfg, err := Parse([]byte(fmt.Sprintf(DefaultConfigYAML, "scaffold")))
	require.NoError(t, err)
	assert.Equal(t, "scaffold", cfg.Name)
	assert.Len(t, cfg.Containers, 2)
}
