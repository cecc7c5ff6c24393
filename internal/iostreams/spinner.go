package iostreams

import (
	"fmt"
	"strings"
	"time"

	"github.com/briandowns/spinner"
)

// StartSpinner shows label with an animated spinner on stderr. Calling it
// again while running updates the label. Without a terminal nothing is shown;
// with the spinner disabled each label is printed once.
func (s *IOStreams) StartSpinner(label string) {
	if !s.progressEnabled {
		return
	}

	s.spinnerMu.Lock()
	defer s.spinnerMu.Unlock()

	if s.spinnerDisabled {
		if label == "" {
			label = "Working"
		}
		if !strings.HasSuffix(label, "...") {
			label += "..."
		}
		fmt.Fprintln(s.ErrOut, s.ColorScheme().Cyan(label))
		return
	}
	if s.activeSpinner != nil {
		s.activeSpinner.Lock()
		s.activeSpinner.Prefix = spinnerPrefix(label)
		s.activeSpinner.Unlock()
		return
	}
	// CharSets[11] is braille.
	sp := spinner.New(spinner.CharSets[11], 120*time.Millisecond,
		spinner.WithWriter(s.ErrOut),
		spinner.WithColor("fgCyan"))
	sp.Prefix = spinnerPrefix(label)
	sp.Start()
	s.activeSpinner = sp
}

// StopSpinner stops the active spinner. Safe to call when none runs.
func (s *IOStreams) StopSpinner() {
	s.spinnerMu.Lock()
	defer s.spinnerMu.Unlock()
	if s.activeSpinner == nil {
		return
	}
	s.activeSpinner.Stop()
	s.activeSpinner = nil
}

// RunWithSpinner runs fn while showing a spinner.
func (s *IOStreams) RunWithSpinner(label string, fn func() error) error {
	s.StartSpinner(label)
	defer s.StopSpinner()
	return fn()
}

func spinnerPrefix(label string) string {
	if label == "" {
		return ""
	}
	return label + " "
}
