package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// LogsDirEnv overrides the directory of rotated log files.
const LogsDirEnv = "TESTENV_LOGS_DIR"

// LogsDir returns where file logging writes: $TESTENV_LOGS_DIR, else
// testenv/logs under the user cache directory.
func LogsDir() (string, error) {
	if dir := os.Getenv(LogsDirEnv); dir != "" {
		return dir, nil
	}
	cache, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve cache directory: %w", err)
	}
	return filepath.Join(cache, "testenv", "logs"), nil
}
