package iostreams

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
)

// TablePrinter renders tabular data to IOStreams.Out. On a color terminal it
// styles the header and adds a divider; otherwise it writes plain tabwriter
// output for scripts.
type TablePrinter struct {
	ios     *IOStreams
	headers []string
	rows    [][]string
}

// NewTablePrinter creates a table with the given column headers.
func (s *IOStreams) NewTablePrinter(headers ...string) *TablePrinter {
	return &TablePrinter{ios: s, headers: headers}
}

// AddRow adds a data row. Missing columns render empty.
func (tp *TablePrinter) AddRow(cols ...string) {
	tp.rows = append(tp.rows, cols)
}

// Len returns the number of data rows.
func (tp *TablePrinter) Len() int {
	return len(tp.rows)
}

// Render writes the table.
func (tp *TablePrinter) Render() error {
	if len(tp.headers) == 0 {
		return nil
	}
	if tp.ios.IsOutputTTY() && tp.ios.ColorEnabled() {
		return tp.renderStyled()
	}
	return tp.renderPlain()
}

func (tp *TablePrinter) renderPlain() error {
	w := tabwriter.NewWriter(tp.ios.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(tp.headers, "\t"))
	for _, row := range tp.rows {
		fmt.Fprintln(w, strings.Join(tp.normalizeRow(row), "\t"))
	}
	return w.Flush()
}

func (tp *TablePrinter) renderStyled() error {
	const gap = 2
	numCols := len(tp.headers)
	colWidth := max((tp.ios.TerminalWidth()-gap*(numCols-1))/numCols, 1)
	spacing := strings.Repeat(" ", gap)

	line := func(style lipgloss.Style, cols []string) string {
		parts := make([]string, len(cols))
		for i, c := range cols {
			parts[i] = style.Width(colWidth).MaxWidth(colWidth).Render(c)
		}
		return strings.Join(parts, spacing)
	}

	if _, err := fmt.Fprintln(tp.ios.Out, line(headerStyle, tp.headers)); err != nil {
		return err
	}
	divider := make([]string, numCols)
	for i := range divider {
		divider[i] = strings.Repeat("─", colWidth)
	}
	if _, err := fmt.Fprintln(tp.ios.Out, dividerStyle.Render(strings.Join(divider, spacing))); err != nil {
		return err
	}
	for _, row := range tp.rows {
		if _, err := fmt.Fprintln(tp.ios.Out, line(lipgloss.NewStyle(), tp.normalizeRow(row))); err != nil {
			return err
		}
	}
	return nil
}

func (tp *TablePrinter) normalizeRow(row []string) []string {
	cols := make([]string, len(tp.headers))
	copy(cols, row)
	return cols
}
