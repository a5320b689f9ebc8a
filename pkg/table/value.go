// Package table provides the in-memory tabular data model shared by every
// pipeline stage: a tagged cell value, ordered rows, and an explicit declared
// schema read by both the column projector and the relational sink.
package table

import "strconv"

// Kind tags the state of a cell value. Raw extracted cells start as Text;
// the numeric cleaner normalizes designated columns to Number or Missing.
type Kind uint8

const (
	// KindText is markup-derived or untyped cell text
	KindText Kind = iota
	// KindNumber is a parsed float64 cell
	KindNumber
	// KindMissing is an absent or unparseable cell
	KindMissing
)

// String returns the kind name for logs and errors.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindMissing:
		return "missing"
	default:
		return "unknown"
	}
}

// Value is a tagged variant cell: exactly one of Text or Num is meaningful,
// selected by Kind. Missing carries neither.
type Value struct {
	Kind Kind
	Text string
	Num  float64
}

// Text creates a text cell.
func Text(s string) Value {
	return Value{Kind: KindText, Text: s}
}

// Number creates a numeric cell.
func Number(f float64) Value {
	return Value{Kind: KindNumber, Num: f}
}

// Missing creates an absent cell.
func Missing() Value {
	return Value{Kind: KindMissing}
}

// IsMissing reports whether the cell carries no value.
func (v Value) IsMissing() bool {
	return v.Kind == KindMissing
}

// String renders the cell for CSV and console output. Numbers use the
// shortest representation that round-trips; missing renders empty.
func (v Value) String() string {
	switch v.Kind {
	case KindText:
		return v.Text
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	default:
		return ""
	}
}

// Equal reports whether two cells have the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindText:
		return v.Text == o.Text
	case KindNumber:
		return v.Num == o.Num
	default:
		return true
	}
}
