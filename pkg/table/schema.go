package table

import (
	"github.com/quarrydata/quarry/pkg/errors"
)

// ColumnType is the declared type of a column. The names double as the
// SQLite DDL spelling; other SQL dialects translate them at the sink.
type ColumnType string

const (
	// TypeText holds free text (bank names, country names)
	TypeText ColumnType = "TEXT"
	// TypeReal holds float64 values after cleaning
	TypeReal ColumnType = "REAL"
)

// Column is one named, typed column of a schema.
type Column struct {
	// Name is the column identifier, also the CSV header and SQL column name
	Name string `json:"name" yaml:"name"`

	// Type declares the value type every cell of the column must hold
	// once the table reaches a sink
	Type ColumnType `json:"type" yaml:"type"`
}

// Schema is the explicit, declared column layout of a table. It is built
// once by the projector and read unchanged by the relational sink, so the
// columns written to storage always match the in-memory table.
type Schema struct {
	Columns []Column `json:"columns" yaml:"columns"`
}

// NewSchema builds a schema from columns in order.
func NewSchema(cols ...Column) Schema {
	return Schema{Columns: cols}
}

// Names returns the ordered column names.
func (s Schema) Names() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// Index returns the position of the named column, or -1 if absent.
func (s Schema) Index(name string) int {
	for i, c := range s.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Len returns the column count.
func (s Schema) Len() int {
	return len(s.Columns)
}

// WithColumn returns a copy of the schema with one column appended.
// Appending a name that already exists returns the schema unchanged.
func (s Schema) WithColumn(name string, typ ColumnType) Schema {
	if s.Index(name) >= 0 {
		return s
	}
	cols := make([]Column, len(s.Columns), len(s.Columns)+1)
	copy(cols, s.Columns)
	return Schema{Columns: append(cols, Column{Name: name, Type: typ})}
}

// Validate checks the schema is usable: at least one column, no empty or
// duplicate names, only known types.
func (s Schema) Validate() error {
	if len(s.Columns) == 0 {
		return errors.New(errors.ErrorTypeSchema, "schema has no columns")
	}

	seen := make(map[string]bool, len(s.Columns))
	for _, c := range s.Columns {
		if c.Name == "" {
			return errors.New(errors.ErrorTypeSchema, "schema column with empty name")
		}
		if seen[c.Name] {
			return errors.Newf(errors.ErrorTypeSchema, "duplicate column %q", c.Name)
		}
		seen[c.Name] = true

		switch c.Type {
		case TypeText, TypeReal:
		default:
			return errors.Newf(errors.ErrorTypeSchema, "column %q has unknown type %q", c.Name, string(c.Type))
		}
	}

	return nil
}
