// Package timeline implements the timeline engine for a case database: event
// ingest, filtered range queries, tag bookkeeping, and the zoom-level
// clustering that turns raw events into stripes for display.
//
// A Manager is safe for concurrent use. It owns no connections of its own;
// the host hands it a casedb.CaseDB and keeps responsibility for opening and
// closing the underlying store.
package timeline

import (
	"context"
	"database/sql"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	cerrors "github.com/chronolith/chronolith/internal/errors"
	"github.com/chronolith/chronolith/internal/observability"
	"github.com/chronolith/chronolith/internal/schema"
	"github.com/chronolith/chronolith/internal/sqlcond"
	"github.com/chronolith/chronolith/internal/stripecache"
	"github.com/chronolith/chronolith/pkg/casedb"
	"github.com/chronolith/chronolith/pkg/types"
)

// statsWindow is how long an idle operation stays in the stats sink before
// Prune drops it.
const statsWindow = time.Hour

// schemaVersionKey is the db_info key the schema generation is stored under.
const schemaVersionKey = "timeline_schema_version"

// Manager is the timeline engine. All reads run on the store's reader
// connections under the shared lock; all writes run on the writer inside a
// transaction under the exclusive lock.
type Manager struct {
	db     casedb.CaseDB
	d      casedb.Dialect
	cfg    Config
	logger *log.Logger

	cache *stripecache.Cache // nil when caching is disabled
	stats *observability.QueryStats

	stmtMu    sync.RWMutex
	stmtCache map[string]*sql.Stmt
}

// NewManager validates the configuration, initializes the event store schema
// (idempotent), and returns a Manager bound to db. The caller keeps ownership
// of db.
func NewManager(db casedb.CaseDB, cfg Config) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	m := &Manager{
		db:        db,
		d:         db.Dialect(),
		cfg:       cfg,
		logger:    logger,
		stats:     observability.NewQueryStats(statsWindow, cfg.StatsCapacity),
		stmtCache: make(map[string]*sql.Stmt),
	}
	if cfg.StripeCacheBytes > 0 {
		m.cache = stripecache.New(cfg.StripeCacheBytes)
	}

	if err := m.Initialize(context.Background()); err != nil {
		return nil, err
	}
	return m, nil
}

// Initialize creates the event store tables and indices if they do not exist
// yet, applies any column upgrades an older store is missing, and records the
// schema version. Safe to call on an already initialized store.
func (m *Manager) Initialize(ctx context.Context) error {
	m.db.AcquireWriteLock()
	defer m.db.ReleaseWriteLock()
	return m.initializeLocked(ctx)
}

func (m *Manager) initializeLocked(ctx context.Context) error {
	w := m.db.Writer()

	for _, stmt := range schema.CreateTablesSQL(m.d) {
		if _, err := w.ExecContext(ctx, stmt); err != nil {
			return cerrors.NewSchemaError(cerrors.CodeSchemaInitFailed, ddlLabel(stmt), err)
		}
	}

	// Column upgrades must land before the indices that cover them.
	columns, err := schema.TableColumns(ctx, w, m.d, "events")
	if err != nil {
		return cerrors.NewSchemaError(cerrors.CodeSchemaUpgradeFailed, "inspect events columns", err)
	}
	for _, stmt := range schema.UpgradeStatements(columns) {
		if _, err := w.ExecContext(ctx, stmt); err != nil {
			return cerrors.NewSchemaError(cerrors.CodeSchemaUpgradeFailed, ddlLabel(stmt), err)
		}
		m.logger.Printf("[INFO] timeline: applied schema upgrade: %s", stmt)
	}

	for _, stmt := range schema.CreateEventsIndexesSQL {
		if _, err := w.ExecContext(ctx, stmt); err != nil {
			return cerrors.NewSchemaError(cerrors.CodeSchemaInitFailed, ddlLabel(stmt), err)
		}
	}

	insert := m.d.InsertIgnore("db_info", "key, value",
		m.d.Placeholder(1)+", "+m.d.Placeholder(2))
	if _, err := w.ExecContext(ctx, insert, schemaVersionKey, schema.Version); err != nil {
		return cerrors.NewSchemaError(cerrors.CodeSchemaInitFailed, "record schema version", err)
	}
	return nil
}

// Reinitialize drops the whole event store and recreates it empty. Every
// event, hash-set association, and tag is lost.
func (m *Manager) Reinitialize(ctx context.Context) error {
	m.db.AcquireWriteLock()
	defer m.db.ReleaseWriteLock()

	w := m.db.Writer()
	for _, stmt := range schema.DropAllSQL {
		if _, err := w.ExecContext(ctx, stmt); err != nil {
			return cerrors.NewSchemaError(cerrors.CodeSchemaInitFailed, ddlLabel(stmt), err)
		}
	}
	if err := m.initializeLocked(ctx); err != nil {
		return err
	}
	m.purgeStripeCache()
	m.logger.Printf("[INFO] timeline: event store reinitialized")
	return nil
}

// ReinitializeTags clears every tag row and resets the tagged flag on all
// events, atomically. Events themselves are untouched.
func (m *Manager) ReinitializeTags(ctx context.Context) error {
	m.db.AcquireWriteLock()
	defer m.db.ReleaseWriteLock()

	tx, err := m.db.BeginTx(ctx)
	if err != nil {
		return cerrors.NewStoreError(cerrors.CodeTxFailed, "begin tag reset", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM tags"); err != nil {
		return cerrors.NewStoreError(cerrors.CodeStoreWriteFailed, "clear tags", err)
	}
	if _, err := tx.ExecContext(ctx, "UPDATE events SET tagged = 0"); err != nil {
		return cerrors.NewStoreError(cerrors.CodeStoreWriteFailed, "reset tagged flags", err)
	}
	if err := tx.Commit(); err != nil {
		return cerrors.NewStoreError(cerrors.CodeTxFailed, "commit tag reset", err)
	}
	m.purgeStripeCache()
	return nil
}

// Analyze refreshes the backend's planner statistics. Worth calling after
// bulk ingest.
func (m *Manager) Analyze(ctx context.Context) error {
	m.db.AcquireWriteLock()
	defer m.db.ReleaseWriteLock()

	if _, err := m.db.Writer().ExecContext(ctx, schema.AnalyzeSQL); err != nil {
		return cerrors.NewStoreError(cerrors.CodeStoreWriteFailed, "analyze store", err)
	}
	return nil
}

// Stats returns a point-in-time snapshot of the per-operation query
// statistics.
func (m *Manager) Stats() observability.Snapshot {
	return m.stats.Snapshot()
}

// Close releases the Manager's prepared statements. The underlying store
// stays open; closing it is the host's job.
func (m *Manager) Close() error {
	m.stmtMu.Lock()
	defer m.stmtMu.Unlock()
	for _, stmt := range m.stmtCache {
		stmt.Close()
	}
	m.stmtCache = make(map[string]*sql.Stmt)
	return nil
}

// getOrPrepareStmt returns a cached prepared statement for the query,
// preparing it on the reader on first use. Callers must hold the read lock.
func (m *Manager) getOrPrepareStmt(ctx context.Context, query string) (*sql.Stmt, error) {
	m.stmtMu.RLock()
	stmt, ok := m.stmtCache[query]
	m.stmtMu.RUnlock()
	if ok {
		return stmt, nil
	}

	m.stmtMu.Lock()
	defer m.stmtMu.Unlock()
	if stmt, ok := m.stmtCache[query]; ok {
		return stmt, nil
	}
	stmt, err := m.db.Reader().PrepareContext(ctx, query)
	if err != nil {
		return nil, cerrors.NewStoreError(cerrors.CodeStoreQueryFailed, "prepare statement", err)
	}
	m.stmtCache[query] = stmt
	return stmt, nil
}

func (m *Manager) purgeStripeCache() {
	if m.cache != nil {
		m.cache.Purge()
	}
}

// observe records one finished operation in the stats sink.
func (m *Manager) observe(op string, started time.Time, qid uuid.UUID, err error) {
	m.stats.Record(op, time.Since(started), qid, err != nil)
}

// recordFilterKinds notes the shape of a compiled filter so the stats
// snapshot shows which query features see use.
func (m *Manager) recordFilterKinds(cond sqlcond.Condition) {
	kinds := make([]string, 0, 3)
	if cond.JoinTags {
		kinds = append(kinds, "tags")
	}
	if cond.JoinHashHits {
		kinds = append(kinds, "hash-hits")
	}
	if cond.Where == m.d.TrueLiteral() {
		kinds = append(kinds, "unrestricted")
	} else {
		kinds = append(kinds, "restricted")
	}
	m.stats.RecordFilterKinds(kinds...)
}

// ddlLabel shortens a DDL statement to "VERB OBJECT name" for error
// reporting, skipping IF [NOT] EXISTS.
func ddlLabel(stmt string) string {
	f := strings.Fields(stmt)
	if len(f) < 3 {
		return strings.TrimSpace(stmt)
	}
	name := f[2]
	for i := 2; i < len(f); i++ {
		switch strings.ToUpper(f[i]) {
		case "IF", "NOT", "EXISTS":
			continue
		}
		name = f[i]
		break
	}
	return f[0] + " " + f[1] + " " + name
}

// timeCondition renders the half-open range check shared by every
// range-bounded query.
func timeCondition(r types.TimeRange) string {
	return "time >= " + strconv.FormatInt(r.Start, 10) + " AND time < " + strconv.FormatInt(r.End, 10)
}

// joinClause renders the membership joins a compiled condition needs.
func joinClause(cond sqlcond.Condition) string {
	var b strings.Builder
	if cond.JoinTags {
		b.WriteString(" LEFT JOIN tags ON events.event_id = tags.event_id")
	}
	if cond.JoinHashHits {
		b.WriteString(" LEFT JOIN hash_set_hits ON events.event_id = hash_set_hits.event_id")
	}
	return b.String()
}

// joinIDs renders ids as an IN-list body.
func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ", ")
}

// placeholderList renders n bind markers for the dialect, counted from 1.
func placeholderList(d casedb.Dialect, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = d.Placeholder(i + 1)
	}
	return strings.Join(parts, ", ")
}
