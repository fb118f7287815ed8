// Package table holds the column-oriented observation table that flows
// through every analysis stage.
package table

import (
	"fmt"
	"math"
)

// Table is an ordered set of equally long float64 columns. A Table is
// treated as immutable once returned: stages derive new tables through
// WithColumn, Filter and Select instead of writing into existing columns.
type Table struct {
	names []string
	index map[string]int
	cols  [][]float64
}

// New builds a table from column names and column data. All columns must be
// the same length and names must be unique.
func New(names []string, cols [][]float64) (*Table, error) {
	if len(names) != len(cols) {
		return nil, fmt.Errorf("got %d column names for %d columns", len(names), len(cols))
	}
	t := &Table{
		names: make([]string, 0, len(names)),
		index: make(map[string]int, len(names)),
		cols:  make([][]float64, 0, len(cols)),
	}
	for i, name := range names {
		if _, dup := t.index[name]; dup {
			return nil, fmt.Errorf("duplicate column name %q", name)
		}
		if i > 0 && len(cols[i]) != len(cols[0]) {
			return nil, fmt.Errorf("column %q has %d rows, expected %d", name, len(cols[i]), len(cols[0]))
		}
		t.index[name] = i
		t.names = append(t.names, name)
		t.cols = append(t.cols, cols[i])
	}
	return t, nil
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil || len(t.cols) == 0 {
		return 0
	}
	return len(t.cols[0])
}

// Names returns a copy of the column names in order.
func (t *Table) Names() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// Has reports whether a column exists.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns the named column. Callers must not modify the slice.
func (t *Table) Column(name string) ([]float64, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.cols[i], true
}

// MustColumn is like Column but returns an error naming the missing column.
func (t *Table) MustColumn(name string) ([]float64, error) {
	col, ok := t.Column(name)
	if !ok {
		return nil, fmt.Errorf("column %q not found", name)
	}
	return col, nil
}

// WithColumn returns a new table with the column added, or replaced when the
// name already exists. The receiver is left untouched.
func (t *Table) WithColumn(name string, values []float64) (*Table, error) {
	if len(t.cols) > 0 && len(values) != t.Len() {
		return nil, fmt.Errorf("column %q has %d rows, expected %d", name, len(values), t.Len())
	}
	names := t.Names()
	cols := make([][]float64, len(t.cols))
	copy(cols, t.cols)
	if i, ok := t.index[name]; ok {
		cols[i] = values
	} else {
		names = append(names, name)
		cols = append(cols, values)
	}
	return New(names, cols)
}

// Filter returns a new table holding the rows for which keep returns true,
// in their original order.
func (t *Table) Filter(keep func(row int) bool) *Table {
	rows := make([]int, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		if keep(i) {
			rows = append(rows, i)
		}
	}
	cols := make([][]float64, len(t.cols))
	for c, src := range t.cols {
		dst := make([]float64, len(rows))
		for j, r := range rows {
			dst[j] = src[r]
		}
		cols[c] = dst
	}
	out, _ := New(t.Names(), cols)
	return out
}

// Select returns a table with only the given columns, renamed through rename
// when an entry exists for them.
func (t *Table) Select(names []string, rename map[string]string) (*Table, error) {
	outNames := make([]string, 0, len(names))
	cols := make([][]float64, 0, len(names))
	for _, name := range names {
		col, err := t.MustColumn(name)
		if err != nil {
			return nil, err
		}
		if to, ok := rename[name]; ok {
			name = to
		}
		outNames = append(outNames, name)
		cols = append(cols, col)
	}
	return New(outNames, cols)
}

// Concat stacks tables vertically. The result holds the union of all
// columns in first-seen order; cells missing from a source are NaN.
func Concat(tables ...*Table) *Table {
	var names []string
	seen := make(map[string]bool)
	total := 0
	for _, t := range tables {
		if t == nil {
			continue
		}
		total += t.Len()
		for _, n := range t.names {
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}

	cols := make([][]float64, len(names))
	for c, name := range names {
		col := make([]float64, 0, total)
		for _, t := range tables {
			if t == nil {
				continue
			}
			if src, ok := t.Column(name); ok {
				col = append(col, src...)
				continue
			}
			for i := 0; i < t.Len(); i++ {
				col = append(col, math.NaN())
			}
		}
		cols[c] = col
	}
	out, _ := New(names, cols)
	return out
}
