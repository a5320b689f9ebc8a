package transform

import (
	"strings"

	"github.com/quarrydata/quarry/pkg/errors"
	"github.com/quarrydata/quarry/pkg/table"
)

// Filter drops rows by key-column blocklist and by missing required values.
type Filter struct {
	// KeyColumn is matched against Exclude after lower-casing and trimming
	// both sides. Empty disables the blocklist.
	KeyColumn string
	Exclude   map[string]bool

	// RequireColumn drops rows whose value in that column is Missing. Empty
	// disables the check.
	RequireColumn string
}

// Apply returns a new table holding the surviving rows in their original
// order.
func (f Filter) Apply(tbl *table.Table) (*table.Table, error) {
	keyIdx := -1
	if f.KeyColumn != "" {
		if keyIdx = tbl.Column(f.KeyColumn); keyIdx < 0 {
			return nil, errors.Newf(errors.ErrorTypeSchema, "filter key column %q not found", f.KeyColumn)
		}
	}
	reqIdx := -1
	if f.RequireColumn != "" {
		if reqIdx = tbl.Column(f.RequireColumn); reqIdx < 0 {
			return nil, errors.Newf(errors.ErrorTypeSchema, "filter required column %q not found", f.RequireColumn)
		}
	}

	exclude := make(map[string]bool, len(f.Exclude))
	for k := range f.Exclude {
		exclude[normalizeKey(k)] = true
	}

	out := table.New(tbl.Schema)
	for _, row := range tbl.Rows {
		if keyIdx >= 0 && exclude[normalizeKey(row[keyIdx].String())] {
			continue
		}
		if reqIdx >= 0 && row[reqIdx].IsMissing() {
			continue
		}
		if err := out.Append(row.Clone()); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
