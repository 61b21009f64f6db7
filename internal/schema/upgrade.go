package schema

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/chronolith/chronolith/pkg/casedb"
)

// upgradeColumns are the columns added after the first schema generation.
// Stores created before them get the column in place with a zero default.
var upgradeColumns = []struct {
	name string
	ddl  string
}{
	{"datasource_id", `ALTER TABLE events ADD COLUMN datasource_id BIGINT NOT NULL DEFAULT 0`},
	{"hash_hit", `ALTER TABLE events ADD COLUMN hash_hit INTEGER NOT NULL DEFAULT 0`},
	{"tagged", `ALTER TABLE events ADD COLUMN tagged INTEGER NOT NULL DEFAULT 0`},
}

// TableColumns returns the set of column names the live table has.
func TableColumns(ctx context.Context, db *sql.DB, d casedb.Dialect, table string) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, d.TableColumnsQuery(table))
	if err != nil {
		return nil, fmt.Errorf("schema: failed to list columns of %s: %w", table, err)
	}
	defer rows.Close()

	columns := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("schema: failed to scan column name: %w", err)
		}
		columns[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("schema: failed to list columns of %s: %w", table, err)
	}
	return columns, nil
}

// UpgradeStatements returns the ALTER statements needed to bring an events
// table with the given columns up to the current shape. An up-to-date table
// yields none, so re-running an upgrade is side-effect free.
func UpgradeStatements(existing map[string]bool) []string {
	var statements []string
	for _, col := range upgradeColumns {
		if !existing[col.name] {
			statements = append(statements, col.ddl)
		}
	}
	return statements
}
