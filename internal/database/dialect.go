package database

import "strconv"

// Supported engine names.
const (
	DialectPostgres = "postgres"
	DialectDuckDB   = "duckdb"
	DialectSQLite   = "sqlite"
)

// Dialect captures the few places where the engines disagree.
type Dialect struct {
	Name   string
	driver string
	// numbered placeholders ($1, $2) instead of ?
	numbered bool
	day      func(column string) string
}

var (
	Postgres = Dialect{
		Name:     DialectPostgres,
		driver:   "postgres",
		numbered: true,
		day: func(column string) string {
			return "to_char(date_trunc('day', " + column + "), 'YYYY-MM-DD')"
		},
	}
	DuckDB = Dialect{
		Name:   DialectDuckDB,
		driver: "duckdb",
		day: func(column string) string {
			return "strftime(date_trunc('day', " + column + "), '%Y-%m-%d')"
		},
	}
	SQLite = Dialect{
		Name:   DialectSQLite,
		driver: "sqlite3",
		day: func(column string) string {
			return "strftime('%Y-%m-%d', " + column + ")"
		},
	}
)

// Placeholder returns the bind marker for the n-th (1-based) argument.
func (d Dialect) Placeholder(n int) string {
	if d.numbered {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// Day returns an expression truncating column to its calendar day,
// rendered as YYYY-MM-DD text.
func (d Dialect) Day(column string) string {
	return d.day(column)
}
