package iostreams

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var (
	ColorPrimary = lipgloss.Color("#00BFFF")
	ColorSuccess = lipgloss.Color("#04B575")
	ColorWarning = lipgloss.Color("#FFCC00")
	ColorError   = lipgloss.Color("#FF5F87")
	ColorMuted   = lipgloss.Color("#626262")
)

var (
	successStyle = lipgloss.NewStyle().Foreground(ColorSuccess)
	warningStyle = lipgloss.NewStyle().Foreground(ColorWarning)
	errorStyle   = lipgloss.NewStyle().Foreground(ColorError)
	mutedStyle   = lipgloss.NewStyle().Foreground(ColorMuted)
	cyanStyle    = lipgloss.NewStyle().Foreground(ColorPrimary)
	boldStyle    = lipgloss.NewStyle().Bold(true)
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)
	dividerStyle = lipgloss.NewStyle().Foreground(ColorMuted)
)

// ColorScheme formats terminal output. When colors are disabled, methods
// return the input string unmodified.
type ColorScheme struct {
	enabled bool
}

// NewColorScheme creates a new ColorScheme.
func NewColorScheme(enabled bool) *ColorScheme {
	return &ColorScheme{enabled: enabled}
}

// Enabled returns whether colors are enabled.
func (cs *ColorScheme) Enabled() bool {
	return cs.enabled
}

func (cs *ColorScheme) render(style lipgloss.Style, s string) string {
	if !cs.enabled {
		return s
	}
	return style.Render(s)
}

func (cs *ColorScheme) Green(s string) string  { return cs.render(successStyle, s) }
func (cs *ColorScheme) Yellow(s string) string { return cs.render(warningStyle, s) }
func (cs *ColorScheme) Red(s string) string    { return cs.render(errorStyle, s) }
func (cs *ColorScheme) Muted(s string) string  { return cs.render(mutedStyle, s) }
func (cs *ColorScheme) Cyan(s string) string   { return cs.render(cyanStyle, s) }
func (cs *ColorScheme) Bold(s string) string   { return cs.render(boldStyle, s) }

// Redf returns a formatted string in red.
func (cs *ColorScheme) Redf(format string, a ...any) string {
	return cs.Red(fmt.Sprintf(format, a...))
}

// SuccessIcon returns a check mark.
func (cs *ColorScheme) SuccessIcon() string {
	return cs.Green("✓")
}

// WarningIcon returns an exclamation mark.
func (cs *ColorScheme) WarningIcon() string {
	return cs.Yellow("!")
}

// FailureIcon returns a cross.
func (cs *ColorScheme) FailureIcon() string {
	return cs.Red("✗")
}
