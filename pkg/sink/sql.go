package sink

import (
	"context"
	"database/sql"
	"strings"

	"github.com/quarrydata/quarry/pkg/errors"
	"github.com/quarrydata/quarry/pkg/table"
)

// LoadMode controls how the target table is prepared before rows are
// inserted.
type LoadMode string

const (
	// Replace drops any existing table and recreates it from the in-memory
	// schema, so each run fully replaces the previous contents.
	Replace LoadMode = "replace"

	// CreateAppend creates the table if it does not exist and appends rows,
	// preserving what earlier runs loaded.
	CreateAppend LoadMode = "create_append"
)

// Open opens a database handle for the given driver and DSN and verifies the
// connection before handing it back.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, "failed to open database").
			WithDetail("driver", driver)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, "failed to connect to database").
			WithDetail("driver", driver)
	}
	return db, nil
}

// SQLSink loads a table into a relational database. The *sql.DB is owned by
// the caller so the same connection can serve the query stage afterwards.
type SQLSink struct {
	Table   string
	Mode    LoadMode
	Dialect Dialect
}

// Load prepares the target table per the load mode, then inserts every row
// through one prepared statement inside a transaction. Missing cells are
// stored as NULL.
func (s SQLSink) Load(ctx context.Context, db *sql.DB, tbl *table.Table) error {
	switch s.Mode {
	case Replace:
		if _, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS "+s.Dialect.QuoteIdent(s.Table)); err != nil {
			return errors.Wrap(err, errors.ErrorTypeStorage, "failed to drop existing table").
				WithDetail("table", s.Table)
		}
		if _, err := db.ExecContext(ctx, s.createStmt(tbl.Schema, false)); err != nil {
			return errors.Wrap(err, errors.ErrorTypeStorage, "failed to create table").
				WithDetail("table", s.Table)
		}
	case CreateAppend:
		if _, err := db.ExecContext(ctx, s.createStmt(tbl.Schema, true)); err != nil {
			return errors.Wrap(err, errors.ErrorTypeStorage, "failed to create table").
				WithDetail("table", s.Table)
		}
	default:
		return errors.Newf(errors.ErrorTypeConfig, "unknown load mode %q", s.Mode)
	}

	return s.insertAll(ctx, db, tbl)
}

func (s SQLSink) createStmt(schema table.Schema, ifNotExists bool) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	if ifNotExists {
		b.WriteString("IF NOT EXISTS ")
	}
	b.WriteString(s.Dialect.QuoteIdent(s.Table))
	b.WriteString(" (")
	for i, col := range schema.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(s.Dialect.QuoteIdent(col.Name))
		b.WriteByte(' ')
		b.WriteString(s.Dialect.columnType(col.Type))
	}
	b.WriteByte(')')
	return b.String()
}

func (s SQLSink) insertStmt(schema table.Schema) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(s.Dialect.QuoteIdent(s.Table))
	b.WriteString(" (")
	for i, col := range schema.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(s.Dialect.QuoteIdent(col.Name))
	}
	b.WriteString(") VALUES (")
	for i := range schema.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(s.Dialect.Placeholder(i + 1))
	}
	b.WriteByte(')')
	return b.String()
}

func (s SQLSink) insertAll(ctx context.Context, db *sql.DB, tbl *table.Table) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to begin load transaction").
			WithDetail("table", s.Table)
	}

	stmt, err := tx.PrepareContext(ctx, s.insertStmt(tbl.Schema))
	if err != nil {
		_ = tx.Rollback()
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to prepare insert").
			WithDetail("table", s.Table)
	}

	args := make([]any, tbl.NumCols())
	for _, row := range tbl.Rows {
		for i, cell := range row {
			args[i] = sqlArg(cell)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			_ = stmt.Close()
			_ = tx.Rollback()
			return errors.Wrap(err, errors.ErrorTypeStorage, "failed to insert row").
				WithDetail("table", s.Table)
		}
	}

	if err := stmt.Close(); err != nil {
		_ = tx.Rollback()
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to close insert statement").
			WithDetail("table", s.Table)
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to commit load transaction").
			WithDetail("table", s.Table)
	}
	return nil
}

func sqlArg(v table.Value) any {
	switch v.Kind {
	case table.KindNumber:
		return v.Num
	case table.KindText:
		return v.Text
	default:
		return nil
	}
}
