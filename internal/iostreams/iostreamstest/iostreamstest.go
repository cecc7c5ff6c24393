// Package iostreamstest provides test doubles for the iostreams package.
package iostreamstest

import (
	"io"
	"sync"

	"github.com/rs/zerolog"

	"github.com/schmitthub/testenv/internal/iostreams"
)

// New creates IOStreams for testing: non-interactive, colors disabled, nop
// logger.
func New() *TestIOStreams {
	in := &testBuffer{}
	out := &testBuffer{}
	errOut := &testBuffer{}
	nop := zerolog.Nop()

	// Zero-valued TTY fields mean non-interactive and colors disabled.
	ios := &iostreams.IOStreams{
		In:     in,
		Out:    out,
		ErrOut: errOut,
		Logger: &nop,
	}
	return &TestIOStreams{IOStreams: ios, InBuf: in, OutBuf: out, ErrBuf: errOut}
}

// TestIOStreams wraps IOStreams with accessible buffers.
type TestIOStreams struct {
	*iostreams.IOStreams
	InBuf  *testBuffer
	OutBuf *testBuffer
	ErrBuf *testBuffer
}

// SetInteractive simulates terminals on stdout and stderr.
func (t *TestIOStreams) SetInteractive(v bool) {
	t.IOStreams.SetStdoutTTY(v)
	t.IOStreams.SetStderrTTY(v)
}

type testBuffer struct {
	mu   sync.Mutex
	data []byte
}

func (b *testBuffer) Read(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.data) == 0 {
		return 0, io.EOF
	}
	n := copy(p, b.data)
	b.data = b.data[n:]
	return n, nil
}

func (b *testBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = append(b.data, p...)
	return len(p), nil
}

func (b *testBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.data)
}

func (b *testBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = nil
}

// SetInput sets the data returned by reads.
func (b *testBuffer) SetInput(s string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = []byte(s)
}
