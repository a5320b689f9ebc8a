package transform

import (
	"math"

	"github.com/quarrydata/quarry/pkg/errors"
	"github.com/quarrydata/quarry/pkg/table"
)

// Op selects how a derivation combines the base value with its operand.
type Op string

const (
	OpScale  Op = "scale"  // base * operand
	OpDivide Op = "divide" // base / operand
)

// Derivation describes one derived numeric column.
type Derivation struct {
	Name    string
	Op      Op
	Operand float64
	Digits  int
}

// Derive adds one Real column per derivation, computed from the base column
// and rounded to the requested number of digits. Deriving a column that
// already exists overwrites its values, so re-running is safe. Every base
// cell must be numeric by the time derivations run.
func Derive(tbl *table.Table, baseColumn string, derivations []Derivation) error {
	baseIdx := tbl.Column(baseColumn)
	if baseIdx < 0 {
		return errors.Newf(errors.ErrorTypeSchema, "derivation base column %q not found", baseColumn)
	}

	for _, d := range derivations {
		if err := deriveOne(tbl, baseIdx, d); err != nil {
			return err
		}
	}
	return nil
}

func deriveOne(tbl *table.Table, baseIdx int, d Derivation) error {
	if d.Op != OpScale && d.Op != OpDivide {
		return errors.Newf(errors.ErrorTypeSchema, "unknown derivation op %q", d.Op)
	}
	if d.Op == OpDivide && d.Operand == 0 {
		return errors.Newf(errors.ErrorTypeSchema, "derivation %q divides by zero", d.Name)
	}

	outIdx := tbl.Column(d.Name)
	if outIdx < 0 {
		tbl.Schema = tbl.Schema.WithColumn(d.Name, table.TypeReal)
		outIdx = tbl.Schema.Len() - 1
		for i := range tbl.Rows {
			tbl.Rows[i] = append(tbl.Rows[i], table.Missing())
		}
	}

	for i := range tbl.Rows {
		base := tbl.Rows[i][baseIdx]
		if base.Kind != table.KindNumber {
			return errors.Newf(errors.ErrorTypeSchema,
				"column %q must be numeric before deriving %q", tbl.Schema.Columns[baseIdx].Name, d.Name)
		}
		v := base.Num
		if d.Op == OpScale {
			v *= d.Operand
		} else {
			v /= d.Operand
		}
		tbl.Rows[i][outIdx] = table.Number(round(v, d.Digits))
	}
	return nil
}

func round(v float64, digits int) float64 {
	shift := math.Pow(10, float64(digits))
	return math.Round(v*shift) / shift
}
