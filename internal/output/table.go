package output

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

const columnGap = "  "

// Column is one table column. Amount columns align right.
type Column struct {
	Header string
	Right  bool
}

// Left returns a left-aligned column.
func Left(header string) Column { return Column{Header: header} }

// Right returns a right-aligned column.
func Right(header string) Column { return Column{Header: header, Right: true} }

// Table lays out balances, prices and addresses in aligned columns under
// an underlined header. Cells past the last column are dropped.
type Table struct {
	cols []Column
	rows [][]string
}

// NewTable creates a table with the given columns.
func NewTable(cols ...Column) *Table {
	return &Table{cols: cols}
}

// AddRow appends a row; missing cells render empty.
func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// Render writes the table. A table without columns writes nothing.
func (t *Table) Render(w io.Writer) error {
	if len(t.cols) == 0 {
		return nil
	}

	widths := make([]int, len(t.cols))
	headers := make([]string, len(t.cols))
	rule := make([]string, len(t.cols))
	for i, c := range t.cols {
		headers[i] = c.Header
		widths[i] = utf8.RuneCountInString(c.Header)
	}
	for _, row := range t.rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			widths[i] = max(widths[i], utf8.RuneCountInString(row[i]))
		}
	}
	for i, n := range widths {
		rule[i] = strings.Repeat("-", n)
	}

	lines := append([][]string{headers, rule}, t.rows...)
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, t.line(line, widths)); err != nil {
			return err
		}
	}
	return nil
}

// String returns the rendered table.
func (t *Table) String() string {
	var sb strings.Builder
	_ = t.Render(&sb)
	return sb.String()
}

func (t *Table) line(cells []string, widths []int) string {
	parts := make([]string, len(widths))
	for i, width := range widths {
		var cell string
		if i < len(cells) {
			cell = cells[i]
		}
		pad := strings.Repeat(" ", width-utf8.RuneCountInString(cell))
		if t.cols[i].Right {
			parts[i] = pad + cell
		} else {
			parts[i] = cell + pad
		}
	}
	return strings.TrimRight(strings.Join(parts, columnGap), " ")
}
