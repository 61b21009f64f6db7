package casedb

import (
	"fmt"

	"github.com/chronolith/chronolith/pkg/types"
)

// Dialect captures the SQL capabilities that differ between backends. It is
// a pure text strategy: dialects never touch a connection, so supporting a
// backend needs no driver dependency here.
type Dialect interface {
	Name() string

	// TrueLiteral and FalseLiteral are the backend's boolean literals,
	// also used as the neutral conditions filter compilation reduces to.
	TrueLiteral() string
	FalseLiteral() string

	// PrimaryKeyType is the column type of an auto-assigned integer key.
	PrimaryKeyType() string

	// GroupConcat aggregates expr over a group into one sep-joined string.
	GroupConcat(expr, sep string) string

	// NotEqual compares column to a literal treating NULL as not equal,
	// so rows with no value stay included.
	NotEqual(column, literal string) string

	// BucketExpr truncates the epoch-seconds column to the unit,
	// producing a per-bucket grouping label.
	BucketExpr(timeColumn string, unit types.TimeUnit) string

	// InsertIgnore builds an insert that silently skips rows violating a
	// uniqueness constraint.
	InsertIgnore(table, columns, values string) string

	// Placeholder is the parameter marker for the n-th bind value,
	// counted from 1.
	Placeholder(n int) string

	// UseReturning reports whether inserts read generated keys with a
	// RETURNING clause instead of LastInsertId.
	UseReturning() bool

	// TableColumnsQuery builds a query returning one row per column of
	// the table, with the column name as the single result column.
	TableColumnsQuery(table string) string
}

// SQLiteDialect is the dialect of the embedded case database.
type SQLiteDialect struct{}

func (SQLiteDialect) Name() string { return "sqlite" }

func (SQLiteDialect) TrueLiteral() string { return "1" }

func (SQLiteDialect) FalseLiteral() string { return "0" }

func (SQLiteDialect) PrimaryKeyType() string { return "INTEGER PRIMARY KEY" }

func (SQLiteDialect) GroupConcat(expr, sep string) string {
	return fmt.Sprintf("group_concat(%s, '%s')", expr, sep)
}

func (SQLiteDialect) NotEqual(column, literal string) string {
	return fmt.Sprintf("%s IS NOT %s", column, literal)
}

// strftime formats truncating an instant to each unit's origin.
var sqliteBucketFormats = [...]string{
	types.UnitYears:   "%Y-01-01T00:00:00",
	types.UnitMonths:  "%Y-%m-01T00:00:00",
	types.UnitDays:    "%Y-%m-%dT00:00:00",
	types.UnitHours:   "%Y-%m-%dT%H:00:00",
	types.UnitMinutes: "%Y-%m-%dT%H:%M:00",
	types.UnitSeconds: "%Y-%m-%dT%H:%M:%S",
}

func (SQLiteDialect) BucketExpr(timeColumn string, unit types.TimeUnit) string {
	return fmt.Sprintf("strftime('%s', %s, 'unixepoch')", sqliteBucketFormats[unit], timeColumn)
}

func (SQLiteDialect) InsertIgnore(table, columns, values string) string {
	return fmt.Sprintf("INSERT OR IGNORE INTO %s (%s) VALUES (%s)", table, columns, values)
}

func (SQLiteDialect) Placeholder(n int) string { return "?" }

func (SQLiteDialect) UseReturning() bool { return false }

func (SQLiteDialect) TableColumnsQuery(table string) string {
	return fmt.Sprintf("SELECT name FROM pragma_table_info('%s')", table)
}

// PostgresDialect targets hosts that keep their case database in
// PostgreSQL. The host supplies the connections; this type only shapes the
// SQL text.
type PostgresDialect struct{}

func (PostgresDialect) Name() string { return "postgres" }

func (PostgresDialect) TrueLiteral() string { return "TRUE" }

func (PostgresDialect) FalseLiteral() string { return "FALSE" }

func (PostgresDialect) PrimaryKeyType() string { return "BIGSERIAL PRIMARY KEY" }

func (PostgresDialect) GroupConcat(expr, sep string) string {
	return fmt.Sprintf("string_agg(%s, '%s')", expr, sep)
}

func (PostgresDialect) NotEqual(column, literal string) string {
	return fmt.Sprintf("%s IS DISTINCT FROM %s", column, literal)
}

// to_char templates; literal text is double-quoted so the digits in it are
// not taken as format patterns.
var postgresBucketFormats = [...]string{
	types.UnitYears:   `YYYY"-01-01T00:00:00"`,
	types.UnitMonths:  `YYYY-MM"-01T00:00:00"`,
	types.UnitDays:    `YYYY-MM-DD"T00:00:00"`,
	types.UnitHours:   `YYYY-MM-DD"T"HH24":00:00"`,
	types.UnitMinutes: `YYYY-MM-DD"T"HH24:MI":00"`,
	types.UnitSeconds: `YYYY-MM-DD"T"HH24:MI:SS`,
}

func (PostgresDialect) BucketExpr(timeColumn string, unit types.TimeUnit) string {
	return fmt.Sprintf("to_char(to_timestamp(%s), '%s')", timeColumn, postgresBucketFormats[unit])
}

func (PostgresDialect) InsertIgnore(table, columns, values string) string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT DO NOTHING", table, columns, values)
}

func (PostgresDialect) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }

func (PostgresDialect) UseReturning() bool { return true }

func (PostgresDialect) TableColumnsQuery(table string) string {
	return fmt.Sprintf("SELECT column_name FROM information_schema.columns WHERE table_name = '%s'", table)
}
