package normalize

import (
	"strconv"
	"strings"

	"github.com/juleba580/Foot-Perf-IA/internal/schema"
)

// NormalizedTable is a schema-conformant dataset: columns in exactly the
// registry's expected order, every cell typed (string for categorical
// columns, finite float64 for numerical ones).
type NormalizedTable struct {
	Columns []string
	Rows    [][]any
}

// Passthrough holds the dataset columns that play no role in feature
// computation but are carried into the output for display and
// identification, keyed by row position.
type Passthrough struct {
	Columns []string
	Rows    [][]any
}

// Value returns the pass-through cell at (row, column), or nil when absent.
func (p *Passthrough) Value(row int, column string) any {
	idx := -1
	for i, name := range p.Columns {
		if name == column {
			idx = i
			break
		}
	}
	if idx < 0 || row < 0 || row >= len(p.Rows) {
		return nil
	}
	return p.Rows[row][idx]
}

// Has reports whether column is carried as pass-through data.
func (p *Passthrough) Has(column string) bool {
	for _, name := range p.Columns {
		if name == column {
			return true
		}
	}
	return false
}

// Reconcile applies the normalizer's column-completion and typing rules
// across a whole dataset. Features absent from the dataset are synthesized
// as full default columns, columns are reordered to the registry's expected
// order, categorical columns are cast to string and numerical columns to
// float64 with per-cell coercion failures mapped to the mid-scale default —
// a single bad cell never discards its row. Extra dataset columns are
// retained as pass-through data. An empty dataset yields zero rows.
func Reconcile(reg *schema.Registry, t *Table) (*NormalizedTable, *Passthrough) {
	expected := reg.ExpectedFeatures()

	norm := &NormalizedTable{
		Columns: append([]string(nil), expected...),
		Rows:    make([][]any, len(t.Rows)),
	}

	pass := &Passthrough{Rows: make([][]any, len(t.Rows))}
	for _, col := range t.Columns {
		if !reg.IsExpected(col) {
			pass.Columns = append(pass.Columns, col)
		}
	}

	for i := range t.Rows {
		row := make([]any, len(expected))
		for j, feature := range expected {
			if !t.HasColumn(feature) {
				row[j] = reg.DefaultValue(feature)
				continue
			}
			cell := t.Cell(i, feature)
			if reg.IsCategorical(feature) {
				row[j] = cell
				continue
			}
			if f, ok := CoerceFloat(cell); ok {
				row[j] = f
			} else {
				row[j] = schema.DefaultNumeric
			}
		}
		norm.Rows[i] = row

		extras := make([]any, len(pass.Columns))
		for j, col := range pass.Columns {
			extras[j] = inferCell(t.Cell(i, col))
		}
		pass.Rows[i] = extras
	}

	return norm, pass
}

// inferCell applies the loose typing a dataframe reader would: empty cells
// become nil, numeric-looking cells become numbers, everything else stays a
// string.
func inferCell(cell string) any {
	s := strings.TrimSpace(cell)
	if s == "" {
		return nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return int(i)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
