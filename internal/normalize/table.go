package normalize

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// Table is a raw tabular dataset as read from an uploaded CSV: a header and
// untyped cell strings. Ragged rows are tolerated; missing cells read as
// empty.
type Table struct {
	Columns []string
	Rows    [][]string
}

// ReadCSV loads a tabular dataset from path. A file with a header and no
// data rows yields an empty table, not an error; an unreadable or malformed
// file fails the whole batch.
func ReadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	return readCSV(f)
}

func readCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return &Table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	t := &Table{Columns: make([]string, len(header))}
	for i, name := range header {
		t.Columns[i] = strings.TrimSpace(name)
	}

	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", len(t.Rows)+2, err)
		}
		t.Rows = append(t.Rows, record)
	}
	return t, nil
}

// Cell returns the raw cell at (row, col name) or "" when the column is
// absent or the row is short.
func (t *Table) Cell(row int, column string) string {
	idx := t.columnIndex(column)
	if idx < 0 || row < 0 || row >= len(t.Rows) {
		return ""
	}
	cells := t.Rows[row]
	if idx >= len(cells) {
		return ""
	}
	return cells[idx]
}

// HasColumn reports whether the dataset carries the named column.
func (t *Table) HasColumn(column string) bool {
	return t.columnIndex(column) >= 0
}

func (t *Table) columnIndex(column string) int {
	for i, name := range t.Columns {
		if name == column {
			return i
		}
	}
	return -1
}
