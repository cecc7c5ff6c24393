package root

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schmitthub/testenv/internal/cmdutil"
	"github.com/schmitthub/testenv/internal/iostreams/iostreamstest"
)

func newFactory() (*cmdutil.Factory, *iostreamstest.TestIOStreams) {
	ios := iostreamstest.New()
	return &cmdutil.Factory{Version: "1.0.0", Commit: "abc123", IOStreams: ios.IOStreams}, ios
}

func TestNewCmdRoot(t *testing.T) {
	f, _ := newFactory()
	cmd := NewCmdRoot(f, "1.0.0", "2026-01-01")

	assert.Equal(t, "testenv", cmd.Use)
	assert.Equal(t, "1.0.0", cmd.Version)

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.ElementsMatch(t, []string{"init", "up", "down", "ls", "version"}, names)
}

func TestNewCmdRoot_GlobalFlags(t *testing.T) {
	f, _ := newFactory()
	cmd := NewCmdRoot(f, "1.0.0", "")

	debug := cmd.PersistentFlags().Lookup("debug")
	require.NotNil(t, debug)
	assert.Equal(t, "D", debug.Shorthand)
}

func TestNewCmdRoot_Version(t *testing.T) {
	f, ios := newFactory()
	cmd := NewCmdRoot(f, "v1.0.0", "2026-01-01")
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "testenv version 1.0.0 (2026-01-01)\n", ios.OutBuf.String())
}

func TestNewCmdRoot_UnknownCommand(t *testing.T) {
	f, ios := newFactory()
	cmd := NewCmdRoot(f, "1.0.0", "")
	cmd.SetArgs([]string{"bogus"})
	cmd.SetOut(ios.ErrBuf)
	cmd.SetErr(ios.ErrBuf)

	require.Error(t, cmd.Execute())
}
