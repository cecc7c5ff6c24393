package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_Validation(t *testing.T) {
	require.ErrorContains(t, run([]string{"gen-docs", "--markdown"}), "--doc-path is required")
	require.ErrorContains(t, run([]string{"gen-docs", "--doc-path", t.TempDir()}), "at least one format")
}

func TestRun_WritesBothFormats(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, run([]string{"gen-docs", "--doc-path", dir, "--markdown", "--man-page"}))

	assert.FileExists(t, filepath.Join(dir, "markdown", "testenv.md"))
	assert.FileExists(t, filepath.Join(dir, "markdown", "testenv_up.md"))
	assert.FileExists(t, filepath.Join(dir, "man", "testenv-down.1"))
}
