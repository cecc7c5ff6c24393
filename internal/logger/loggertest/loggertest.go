// Package loggertest provides test doubles for the logger package.
// TestLogger captures log output for assertions in tests.
package loggertest

import (
	"bytes"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// TestLogger captures JSON log lines written through Logger.
type TestLogger struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

// New creates a test logger that captures all output at debug level.
func New() *TestLogger {
	return &TestLogger{}
}

// Logger returns a zerolog.Logger writing into the capture buffer.
func (tl *TestLogger) Logger() zerolog.Logger {
	return zerolog.New(tl).Level(zerolog.DebugLevel)
}

// Write implements io.Writer. Safe for concurrent use.
func (tl *TestLogger) Write(p []byte) (int, error) {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	return tl.buf.Write(p)
}

// Output returns captured log output as a string.
func (tl *TestLogger) Output() string {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	return tl.buf.String()
}

// Lines returns the captured log lines.
func (tl *TestLogger) Lines() []string {
	out := strings.TrimSpace(tl.Output())
	if out == "" {
		return nil
	}
	return strings.Split(out, "\n")
}

// Reset clears captured output.
func (tl *TestLogger) Reset() {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	tl.buf.Reset()
}
