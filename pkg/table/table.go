package table

import (
	"github.com/quarrydata/quarry/pkg/errors"
)

// Row is one ordered record of cells, aligned with the table schema.
type Row []Value

// Clone returns an independent copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	copy(out, r)
	return out
}

// Table couples a declared schema with its rows. Tables are transient:
// rebuilt on every pipeline run, persisted only through the sinks.
type Table struct {
	Schema Schema
	Rows   []Row
}

// New creates an empty table with the given schema.
func New(schema Schema) *Table {
	return &Table{Schema: schema}
}

// Append adds a row after checking it matches the schema width.
func (t *Table) Append(row Row) error {
	if len(row) != t.Schema.Len() {
		return errors.Newf(errors.ErrorTypeSchema,
			"row has %d cells, schema has %d columns", len(row), t.Schema.Len())
	}
	t.Rows = append(t.Rows, row)
	return nil
}

// Column returns the index of the named column, or -1 if absent.
func (t *Table) Column(name string) int {
	return t.Schema.Index(name)
}

// NumRows returns the row count.
func (t *Table) NumRows() int {
	return len(t.Rows)
}

// NumCols returns the column count.
func (t *Table) NumCols() int {
	return t.Schema.Len()
}

// Cell returns the value at the given row for the named column.
func (t *Table) Cell(row int, name string) (Value, bool) {
	idx := t.Schema.Index(name)
	if idx < 0 || row < 0 || row >= len(t.Rows) {
		return Value{}, false
	}
	return t.Rows[row][idx], true
}

// Clone returns a copy with independent rows. Schemas are never mutated in
// place, so the column slice is shared.
func (t *Table) Clone() *Table {
	out := New(t.Schema)
	out.Rows = make([]Row, len(t.Rows))
	for i, r := range t.Rows {
		out.Rows[i] = r.Clone()
	}
	return out
}
