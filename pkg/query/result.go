package query

import (
	"fmt"
	"strconv"
	"strings"
)

// Result holds a fully materialized query result.
type Result struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// NumRows returns the number of result rows.
func (r *Result) NumRows() int {
	return len(r.Rows)
}

// String renders the result as an aligned text block, one line per row under
// a header line.
func (r *Result) String() string {
	widths := make([]int, len(r.Columns))
	for i, c := range r.Columns {
		widths[i] = len(c)
	}
	rendered := make([][]string, len(r.Rows))
	for ri, row := range r.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = renderValue(v)
			if i < len(widths) && len(cells[i]) > widths[i] {
				widths[i] = len(cells[i])
			}
		}
		rendered[ri] = cells
	}

	var b strings.Builder
	writeLine(&b, r.Columns, widths)
	for _, cells := range rendered {
		b.WriteByte('\n')
		writeLine(&b, cells, widths)
	}
	return b.String()
}

func writeLine(b *strings.Builder, cells []string, widths []int) {
	for i, c := range cells {
		if i > 0 {
			b.WriteString("  ")
		}
		b.WriteString(c)
		if i < len(cells)-1 {
			b.WriteString(strings.Repeat(" ", widths[i]-len(c)))
		}
	}
}

func renderValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
