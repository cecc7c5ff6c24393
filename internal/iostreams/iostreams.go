// Package iostreams wraps the standard streams for commands, following the
// GitHub CLI pattern for testable I/O.
package iostreams

import (
	"io"
	"os"
	"sync"

	"github.com/briandowns/spinner"
	"golang.org/x/term"
)

// IOStreams provides access to standard input/output/error streams.
type IOStreams struct {
	In     io.Reader
	Out    io.Writer
	ErrOut io.Writer

	// Logger receives diagnostics from the command layer.
	Logger Logger

	// -1 = unchecked, 0 = false, 1 = true
	isInputTTY  int
	isOutputTTY int
	isStderrTTY int

	// -1 = auto (detect from TTY), 0 = disabled, 1 = enabled
	colorEnabled int

	progressEnabled bool
	spinnerDisabled bool
	spinnerMu       sync.Mutex
	activeSpinner   *spinner.Spinner

	termWidthCache int
	termSizeCached bool
}

// NewIOStreams creates an IOStreams connected to standard streams.
func NewIOStreams() *IOStreams {
	ios := &IOStreams{
		In:           os.Stdin,
		Out:          os.Stdout,
		ErrOut:       os.Stderr,
		isInputTTY:   -1,
		isOutputTTY:  -1,
		isStderrTTY:  -1,
		colorEnabled: -1,
	}

	// Progress enabled when both stdout and stderr are TTYs
	if ios.IsOutputTTY() && ios.IsStderrTTY() {
		ios.progressEnabled = true
	}
	if os.Getenv("TESTENV_SPINNER_DISABLED") != "" {
		ios.spinnerDisabled = true
	}
	return ios
}

func isTerminal(v any) int {
	if f, ok := v.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return 1
	}
	return 0
}

// IsInputTTY returns true if stdin is a terminal.
func (s *IOStreams) IsInputTTY() bool {
	if s.isInputTTY == -1 {
		s.isInputTTY = isTerminal(s.In)
	}
	return s.isInputTTY == 1
}

// IsOutputTTY returns true if stdout is a terminal.
func (s *IOStreams) IsOutputTTY() bool {
	if s.isOutputTTY == -1 {
		s.isOutputTTY = isTerminal(s.Out)
	}
	return s.isOutputTTY == 1
}

// IsStderrTTY returns true if stderr is a terminal.
func (s *IOStreams) IsStderrTTY() bool {
	if s.isStderrTTY == -1 {
		s.isStderrTTY = isTerminal(s.ErrOut)
	}
	return s.isStderrTTY == 1
}

// SetStdoutTTY overrides terminal detection for stdout.
func (s *IOStreams) SetStdoutTTY(v bool) {
	s.isOutputTTY = boolToInt(v)
}

// SetStderrTTY overrides terminal detection for stderr.
func (s *IOStreams) SetStderrTTY(v bool) {
	s.isStderrTTY = boolToInt(v)
}

// ColorEnabled returns whether color output is enabled.
func (s *IOStreams) ColorEnabled() bool {
	if s.colorEnabled == -1 {
		return s.IsOutputTTY()
	}
	return s.colorEnabled == 1
}

// SetColorEnabled explicitly enables or disables color output.
func (s *IOStreams) SetColorEnabled(enabled bool) {
	s.colorEnabled = boolToInt(enabled)
}

// ColorScheme returns a ColorScheme configured for this IOStreams.
func (s *IOStreams) ColorScheme() *ColorScheme {
	return NewColorScheme(s.ColorEnabled())
}

// SetProgressEnabled turns the spinner on or off.
func (s *IOStreams) SetProgressEnabled(v bool) {
	s.progressEnabled = v
}

// SetSpinnerDisabled replaces the animation with one status line per label.
func (s *IOStreams) SetSpinnerDisabled(v bool) {
	s.spinnerDisabled = v
}

// TerminalWidth returns the width of stdout, 80 when it is not a terminal.
func (s *IOStreams) TerminalWidth() int {
	if s.termSizeCached {
		return s.termWidthCache
	}
	width := 80
	if f, ok := s.Out.(*os.File); ok {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			width = w
		}
	}
	return width
}

// SetTerminalWidth fixes the width reported by TerminalWidth.
func (s *IOStreams) SetTerminalWidth(width int) {
	s.termWidthCache = width
	s.termSizeCached = true
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
