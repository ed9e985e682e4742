// Package sheet reads and writes the tabular files the generator works on.
package sheet

import (
	"errors"
	"fmt"
)

// ErrEmptySheet is returned when a sheet has no header row.
var ErrEmptySheet = errors.New("sheet has no header row")

// Table is one sheet: a header row and the data rows below it.
// Rows may be shorter than Headers; missing trailing cells read as "".
// Tables built by Read are rectangular.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.Rows) }

// Column returns the index of the first header equal to name.
func (t *Table) Column(name string) (int, bool) {
	for i, h := range t.Headers {
		if h == name {
			return i, true
		}
	}
	return -1, false
}

// Cell returns the value at row, col or "" when the row is short.
func (t *Table) Cell(row, col int) string {
	if row < 0 || row >= len(t.Rows) || col < 0 {
		return ""
	}
	r := t.Rows[row]
	if col >= len(r) {
		return ""
	}
	return r[col]
}

// AppendColumn adds a column to the right of the existing ones.
// values must hold exactly one entry per data row.
func (t *Table) AppendColumn(name string, values []string) error {
	if len(values) != len(t.Rows) {
		return fmt.Errorf("column %q: %d values for %d rows", name, len(values), len(t.Rows))
	}
	t.normalize()
	t.Headers = append(t.Headers, name)
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], values[i])
	}
	return nil
}

// normalize makes the table rectangular so appended columns line up with
// their headers. Cells beyond the header row get an "Unnamed: <index>"
// header, as do blank header cells; short rows are padded with "".
func (t *Table) normalize() {
	width := len(t.Headers)
	for _, r := range t.Rows {
		width = max(width, len(r))
	}
	for len(t.Headers) < width {
		t.Headers = append(t.Headers, "")
	}
	for i, h := range t.Headers {
		if h == "" {
			t.Headers[i] = unnamed(i)
		}
	}
	for i, r := range t.Rows {
		if len(r) < width {
			t.Rows[i] = append(r, make([]string, width-len(r))...)
		}
	}
}

func unnamed(col int) string {
	return fmt.Sprintf("Unnamed: %d", col)
}

// fromRecords builds a table from raw records, first record as header.
// Entirely blank rows are dropped.
func fromRecords(records [][]string) (*Table, error) {
	if len(records) == 0 || blank(records[0]) {
		return nil, ErrEmptySheet
	}
	t := &Table{Headers: append([]string(nil), records[0]...)}
	for _, rec := range records[1:] {
		if blank(rec) {
			continue
		}
		t.Rows = append(t.Rows, append([]string(nil), rec...))
	}
	t.normalize()
	return t, nil
}

func blank(rec []string) bool {
	for _, v := range rec {
		if v != "" {
			return false
		}
	}
	return true
}
