// Package schema holds the event store's DDL and the column-name mappings
// query construction depends on. Statements are written to be idempotent so
// opening a store that already has them is side-effect free.
package schema

import (
	"fmt"

	"github.com/chronolith/chronolith/pkg/casedb"
	"github.com/chronolith/chronolith/pkg/types"
)

// Version is the schema generation written to db_info at initialization.
const Version = 1

// CreateDBInfoTableSQL creates the key/value table holding the schema
// version.
const CreateDBInfoTableSQL = `
CREATE TABLE IF NOT EXISTS db_info (
    key TEXT PRIMARY KEY,
    value INTEGER NOT NULL
)`

// CreateEventsTableSQL creates the core events table, one row per event.
// The primary-key type comes from the dialect; every other column type is
// portable across the supported backends.
func CreateEventsTableSQL(d casedb.Dialect) string {
	return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS events (
    event_id %s,
    datasource_id BIGINT NOT NULL DEFAULT 0,
    file_id BIGINT NOT NULL,
    artifact_id BIGINT,
    time BIGINT NOT NULL,
    sub_type INTEGER,
    base_type INTEGER NOT NULL,
    full_description TEXT NOT NULL,
    med_description TEXT,
    short_description TEXT,
    known_state INTEGER NOT NULL DEFAULT 0,
    hash_hit INTEGER NOT NULL DEFAULT 0,
    tagged INTEGER NOT NULL DEFAULT 0
)`, d.PrimaryKeyType())
}

// CreateHashSetsTableSQL creates the lookup table mapping hash-set ids to
// names.
func CreateHashSetsTableSQL(d casedb.Dialect) string {
	return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS hash_sets (
    hash_set_id %s,
    hash_set_name VARCHAR(255) UNIQUE NOT NULL
)`, d.PrimaryKeyType())
}

// CreateHashSetHitsTableSQL creates the many-to-one relation recording
// which events' content hit which hash sets. The primary key gives the
// uniqueness duplicate inserts rely on.
const CreateHashSetHitsTableSQL = `
CREATE TABLE IF NOT EXISTS hash_set_hits (
    hash_set_id BIGINT NOT NULL REFERENCES hash_sets(hash_set_id),
    event_id BIGINT NOT NULL REFERENCES events(event_id),
    PRIMARY KEY (hash_set_id, event_id)
)`

// CreateTagsTableSQL creates the tag-application relation. The display name
// is denormalized so rows stay readable after tag-name edits.
const CreateTagsTableSQL = `
CREATE TABLE IF NOT EXISTS tags (
    tag_id BIGINT NOT NULL,
    tag_name_id BIGINT NOT NULL,
    tag_name_display_name TEXT,
    event_id BIGINT NOT NULL REFERENCES events(event_id),
    PRIMARY KEY (event_id, tag_name_id)
)`

// CreateEventsIndexesSQL creates the indices every query shape leans on.
// The clustering pass in particular needs the (type, description, time)
// ordered scans.
var CreateEventsIndexesSQL = []string{
	`CREATE INDEX IF NOT EXISTS idx_events_datasource ON events(datasource_id)`,
	`CREATE INDEX IF NOT EXISTS idx_events_hash_hit ON events(event_id, hash_hit)`,
	`CREATE INDEX IF NOT EXISTS idx_events_tagged ON events(event_id, tagged)`,
	`CREATE INDEX IF NOT EXISTS idx_events_file ON events(file_id)`,
	`CREATE INDEX IF NOT EXISTS idx_events_artifact ON events(artifact_id)`,
	`CREATE INDEX IF NOT EXISTS idx_events_sub_type ON events(sub_type, short_description, time)`,
	`CREATE INDEX IF NOT EXISTS idx_events_base_type ON events(base_type, short_description, time)`,
	`CREATE INDEX IF NOT EXISTS idx_events_time ON events(time)`,
	`CREATE INDEX IF NOT EXISTS idx_events_known_state ON events(known_state)`,
}

// AnalyzeSQL refreshes the backend's planner statistics.
const AnalyzeSQL = `ANALYZE`

// DropAllSQL tears the whole store down, children before parents so
// foreign keys never dangle.
var DropAllSQL = []string{
	`DROP TABLE IF EXISTS tags`,
	`DROP TABLE IF EXISTS hash_set_hits`,
	`DROP TABLE IF EXISTS hash_sets`,
	`DROP TABLE IF EXISTS events`,
	`DROP TABLE IF EXISTS db_info`,
}

// CreateTablesSQL returns the table statements in foreign-key order.
// Indices are separate; they must wait until column upgrades have run.
func CreateTablesSQL(d casedb.Dialect) []string {
	return []string{
		CreateDBInfoTableSQL,
		CreateEventsTableSQL(d),
		CreateHashSetsTableSQL(d),
		CreateHashSetHitsTableSQL,
		CreateTagsTableSQL,
	}
}

// AllSchemaSQL returns every statement needed to initialize the event
// store, tables before indices.
func AllSchemaSQL(d casedb.Dialect) []string {
	return append(CreateTablesSQL(d), CreateEventsIndexesSQL...)
}

// DescriptionColumn maps a description granularity to its events column.
func DescriptionColumn(level types.DescriptionLevel) string {
	switch level {
	case types.DescriptionShort:
		return "short_description"
	case types.DescriptionMedium:
		return "med_description"
	default:
		return "full_description"
	}
}

// TypeColumn maps a type granularity to its events column.
func TypeColumn(level types.TypeLevel) string {
	if level == types.TypeLevelBase {
		return "base_type"
	}
	return "sub_type"
}
