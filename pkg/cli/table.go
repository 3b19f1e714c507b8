package cli

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/term"
)

const columnGap = 2

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// Table renders column-aligned output. Rows are buffered until Flush so
// column widths can be fitted to the terminal; cells that do not fit are
// wrapped onto continuation lines. Empty tables produce no output.
type Table struct {
	out     io.Writer
	headers []string
	rows    [][]string
	prefix  string
	width   int
}

// NewTable creates a table with the given column headers, writing to
// stdout and sized to the terminal when stdout is one.
func NewTable(headers ...string) *Table {
	return &Table{
		out:     os.Stdout,
		headers: headers,
		width:   terminalWidth(),
	}
}

// WithWriter sends output to w instead of stdout. No width limit applies.
func (t *Table) WithWriter(w io.Writer) *Table {
	t.out = w
	t.width = 0
	return t
}

// WithWidth caps the total line width. Zero means unlimited.
func (t *Table) WithWidth(width int) *Table {
	t.width = width
	return t
}

// WithPrefix sets a string prepended to each line (headers, divider, rows).
// Useful for indenting sub-tables within larger output.
func (t *Table) WithPrefix(prefix string) *Table {
	t.prefix = prefix
	return t
}

// Row adds a row. Missing trailing cells are blank.
func (t *Table) Row(values ...string) {
	row := make([]string, len(t.headers))
	copy(row, values)
	t.rows = append(t.rows, row)
}

// Flush writes the table. If no rows were added, nothing is printed.
func (t *Table) Flush() {
	if len(t.rows) == 0 {
		return
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = visualLen(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			widths[i] = max(widths[i], visualLen(cell))
		}
	}
	if t.width > 0 {
		widths = capWidths(widths, t.headers, t.width, visualLen(t.prefix))
	}

	dividers := make([]string, len(t.headers))
	for i, h := range t.headers {
		dividers[i] = strings.Repeat("-", visualLen(h))
	}
	t.writeLine(t.headers, widths)
	t.writeLine(dividers, widths)

	for _, row := range t.rows {
		cells := make([][]string, len(row))
		height := 1
		for i, cell := range row {
			cells[i] = wrapCell(cell, widths[i])
			height = max(height, len(cells[i]))
		}
		for line := 0; line < height; line++ {
			values := make([]string, len(row))
			for i := range row {
				if line < len(cells[i]) {
					values[i] = cells[i][line]
				}
			}
			t.writeLine(values, widths)
		}
	}
	t.rows = nil
}

func (t *Table) writeLine(values []string, widths []int) {
	var b strings.Builder
	b.WriteString(t.prefix)
	for i, v := range values {
		b.WriteString(v)
		if i < len(values)-1 {
			b.WriteString(strings.Repeat(" ", widths[i]-visualLen(v)+columnGap))
		}
	}
	fmt.Fprintln(t.out, strings.TrimRight(b.String(), " "))
}

// capWidths shrinks the widest columns until the table fits in termWidth.
// No column goes below the width of its header.
func capWidths(widths []int, headers []string, termWidth, prefix int) []int {
	out := make([]int, len(widths))
	copy(out, widths)

	total := prefix + columnGap*(len(out)-1)
	for _, w := range out {
		total += w
	}
	for total > termWidth {
		widest := -1
		for i, w := range out {
			if w > visualLen(headers[i]) && (widest < 0 || w > out[widest]) {
				widest = i
			}
		}
		if widest < 0 {
			break
		}
		out[widest]--
		total--
	}
	return out
}

// wrapCell breaks s into lines of at most width runes, at spaces where
// possible. Colour codes are kept only when s fits unwrapped.
func wrapCell(s string, width int) []string {
	if width <= 0 || visualLen(s) <= width {
		return []string{s}
	}

	var lines []string
	var line string
	for _, word := range strings.Fields(ansiPattern.ReplaceAllString(s, "")) {
		for utf8.RuneCountInString(word) > width {
			if line != "" {
				lines = append(lines, line)
				line = ""
			}
			r := []rune(word)
			lines = append(lines, string(r[:width]))
			word = string(r[width:])
		}
		switch {
		case line == "":
			line = word
		case utf8.RuneCountInString(line)+1+utf8.RuneCountInString(word) <= width:
			line += " " + word
		default:
			lines = append(lines, line)
			line = word
		}
	}
	if line != "" {
		lines = append(lines, line)
	}
	return lines
}

// visualLen is the printed width of s, ignoring colour codes.
func visualLen(s string) int {
	return utf8.RuneCountInString(ansiPattern.ReplaceAllString(s, ""))
}

func terminalWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return 0
	}
	w, _, err := term.GetSize(fd)
	if err != nil {
		return 0
	}
	return w
}
