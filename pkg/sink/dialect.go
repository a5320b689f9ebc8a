package sink

import (
	"fmt"
	"strings"

	"github.com/quarrydata/quarry/pkg/errors"
	"github.com/quarrydata/quarry/pkg/table"
)

// Dialect carries the driver-specific SQL spellings a sink needs: column DDL
// types, identifier quoting, and placeholder style.
type Dialect struct {
	Name        string
	TextType    string
	RealType    string
	QuoteIdent  func(string) string
	Placeholder func(n int) string // 1-based argument position
}

var (
	// SQLite is the default dialect, backed by the pure-Go modernc driver.
	SQLite = Dialect{
		Name:        "sqlite",
		TextType:    "TEXT",
		RealType:    "REAL",
		QuoteIdent:  quoteDouble,
		Placeholder: questionMark,
	}

	// Postgres targets the pgx stdlib driver.
	Postgres = Dialect{
		Name:        "pgx",
		TextType:    "TEXT",
		RealType:    "DOUBLE PRECISION",
		QuoteIdent:  quoteDouble,
		Placeholder: dollarN,
	}

	// MySQL uses VARCHAR for text so the columns stay indexable.
	MySQL = Dialect{
		Name:        "mysql",
		TextType:    "VARCHAR(255)",
		RealType:    "DOUBLE",
		QuoteIdent:  quoteBacktick,
		Placeholder: questionMark,
	}
)

// DialectFor maps a database/sql driver name to its dialect.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "sqlite":
		return SQLite, nil
	case "pgx":
		return Postgres, nil
	case "mysql":
		return MySQL, nil
	default:
		return Dialect{}, errors.Newf(errors.ErrorTypeConfig, "unsupported database driver %q", driver)
	}
}

func (d Dialect) columnType(t table.ColumnType) string {
	if t == table.TypeReal {
		return d.RealType
	}
	return d.TextType
}

func quoteDouble(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func quoteBacktick(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}

func questionMark(int) string {
	return "?"
}

func dollarN(n int) string {
	return fmt.Sprintf("$%d", n)
}
