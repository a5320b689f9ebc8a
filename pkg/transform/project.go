// Package transform reshapes raw extracted tables into their target form:
// column projection, numeric cleaning, row filtering, and derived columns.
package transform

import (
	"github.com/quarrydata/quarry/pkg/errors"
	"github.com/quarrydata/quarry/pkg/table"
)

// Projector keeps a subset of raw columns, selected by position, under the
// names and types of a target schema.
type Projector struct {
	Indices []int
	Schema  table.Schema
}

// Project builds a new table containing only the projected columns. The raw
// table is not modified.
func (p Projector) Project(raw *table.Table) (*table.Table, error) {
	if len(p.Indices) != p.Schema.Len() {
		return nil, errors.Newf(errors.ErrorTypeSchema,
			"projection has %d indices for %d columns", len(p.Indices), p.Schema.Len())
	}
	for _, idx := range p.Indices {
		if idx < 0 || idx >= raw.NumCols() {
			return nil, errors.Newf(errors.ErrorTypeSchema,
				"projection index %d out of range for %d-column table", idx, raw.NumCols())
		}
	}

	out := table.New(p.Schema)
	for _, row := range raw.Rows {
		projected := make(table.Row, len(p.Indices))
		for i, idx := range p.Indices {
			projected[i] = row[idx]
		}
		if err := out.Append(projected); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Keep returns a new table holding only the named columns, in the given
// order. It is the by-name counterpart of Project, used to drop intermediate
// columns after derivation.
func Keep(tbl *table.Table, names ...string) (*table.Table, error) {
	indices := make([]int, 0, len(names))
	cols := make([]table.Column, 0, len(names))
	for _, name := range names {
		idx := tbl.Column(name)
		if idx < 0 {
			return nil, errors.Newf(errors.ErrorTypeSchema, "cannot keep unknown column %q", name)
		}
		indices = append(indices, idx)
		cols = append(cols, tbl.Schema.Columns[idx])
	}
	return Projector{Indices: indices, Schema: table.NewSchema(cols...)}.Project(tbl)
}
