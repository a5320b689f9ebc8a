// Package query executes verification queries against a loaded database and
// materializes the results for console, log, and JSON output.
package query

import (
	"context"
	"database/sql"

	"github.com/quarrydata/quarry/pkg/errors"
)

// Runner executes SQL against an open database handle. The handle is owned
// by the caller.
type Runner struct {
	DB *sql.DB
}

// Run executes the statement and materializes every row. Pipeline queries
// are small verification selects, so there is no streaming.
func (r Runner) Run(ctx context.Context, sqlText string) (*Result, error) {
	rows, err := r.DB.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, "query failed").
			WithDetail("sql", sqlText)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, "failed to read result columns").
			WithDetail("sql", sqlText)
	}

	res := &Result{Columns: cols}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeStorage, "failed to scan result row").
				WithDetail("sql", sqlText)
		}
		for i, v := range vals {
			vals[i] = normalizeValue(v)
		}
		res.Rows = append(res.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, "failed to read result rows").
			WithDetail("sql", sqlText)
	}
	return res, nil
}

// normalizeValue unifies driver-specific scan types so results render and
// marshal the same regardless of backend.
func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
