package timeline

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	cerrors "github.com/chronolith/chronolith/internal/errors"
	"github.com/chronolith/chronolith/internal/schema"
	"github.com/chronolith/chronolith/pkg/casedb"
	"github.com/chronolith/chronolith/pkg/filter"
	"github.com/chronolith/chronolith/pkg/types"
)

func openTestStore(t *testing.T) *casedb.SQLiteCase {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "chronolith-timeline-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	c, err := casedb.OpenSQLite(filepath.Join(tempDir, "case.db"))
	if err != nil {
		t.Fatalf("failed to open case database: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func newManagerOn(t *testing.T, db casedb.CaseDB, cfg Config) *Manager {
	t.Helper()

	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard, "", 0)
	}
	m, err := NewManager(db, cfg)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return newManagerOn(t, openTestStore(t), DefaultConfig())
}

func mustInsert(t *testing.T, m *Manager, spec EventSpec) *types.Event {
	t.Helper()
	ev, err := m.InsertEvent(context.Background(), spec)
	if err != nil {
		t.Fatalf("InsertEvent failed: %v", err)
	}
	return ev
}

// fileEvent builds the minimal spec tests use when only time and identity
// matter.
func fileEvent(at, contentID int64, desc string) EventSpec {
	return EventSpec{
		Time:            at,
		Type:            types.FileModified,
		DataSourceID:    1,
		ContentID:       contentID,
		FullDescription: desc,
	}
}

func TestNewManagerRejectsInvalidConfig(t *testing.T) {
	db := openTestStore(t)
	cfg := DefaultConfig()
	cfg.MergeGapDivisor = 0
	cfg.Logger = log.New(io.Discard, "", 0)

	if _, err := NewManager(db, cfg); err == nil {
		t.Fatal("NewManager accepted a zero merge gap divisor")
	} else if cerrors.GetCategory(err) != cerrors.CategoryValidation {
		t.Errorf("category = %s, want %s", cerrors.GetCategory(err), cerrors.CategoryValidation)
	}
}

func TestInitializeIsIdempotent(t *testing.T) {
	db := openTestStore(t)
	ctx := context.Background()

	first := newManagerOn(t, db, DefaultConfig())
	mustInsert(t, first, fileEvent(100, 7, "/alpha"))
	first.Close()

	// A second manager on the same store must initialize cleanly and see
	// the existing data.
	second := newManagerOn(t, db, DefaultConfig())
	count, err := second.CountAllEvents(ctx)
	if err != nil {
		t.Fatalf("CountAllEvents failed: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d after reopen, want 1", count)
	}

	var version int64
	db.AcquireReadLock()
	err = db.Reader().QueryRowContext(ctx,
		"SELECT value FROM db_info WHERE key = ?", schemaVersionKey).Scan(&version)
	db.ReleaseReadLock()
	if err != nil {
		t.Fatalf("schema version lookup failed: %v", err)
	}
	if version != schema.Version {
		t.Errorf("schema version = %d, want %d", version, schema.Version)
	}
}

func TestInitializeUpgradesLegacyStore(t *testing.T) {
	db := openTestStore(t)
	ctx := context.Background()

	// A store from before the datasource_id, hash_hit, and tagged columns.
	legacy := `CREATE TABLE events (
		event_id INTEGER PRIMARY KEY,
		file_id BIGINT NOT NULL,
		artifact_id BIGINT,
		time BIGINT NOT NULL,
		sub_type INTEGER,
		base_type INTEGER NOT NULL,
		full_description TEXT NOT NULL,
		med_description TEXT,
		short_description TEXT,
		known_state INTEGER NOT NULL DEFAULT 0
	)`
	db.AcquireWriteLock()
	_, err := db.Writer().ExecContext(ctx, legacy)
	if err == nil {
		_, err = db.Writer().ExecContext(ctx,
			"INSERT INTO events (file_id, time, sub_type, base_type, full_description) VALUES (7, 100, 0, 0, '/old')")
	}
	db.ReleaseWriteLock()
	if err != nil {
		t.Fatalf("failed to seed legacy store: %v", err)
	}

	m := newManagerOn(t, db, DefaultConfig())

	ev, err := m.EventByID(ctx, 1)
	if err != nil {
		t.Fatalf("EventByID failed: %v", err)
	}
	if ev == nil {
		t.Fatal("legacy event lost during upgrade")
	}
	if ev.DataSourceID != 0 || ev.HashHit || ev.Tagged {
		t.Errorf("upgraded columns not defaulted: %+v", ev)
	}

	// New writes must work against the upgraded table.
	mustInsert(t, m, fileEvent(200, 8, "/new"))
	count, err := m.CountAllEvents(ctx)
	if err != nil {
		t.Fatalf("CountAllEvents failed: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}

func TestReinitializeResetsStore(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	spec := fileEvent(100, 7, "/alpha")
	spec.HashSetNames = []string{"NSRL"}
	spec.Tags = []types.Tag{{TagID: 1, TagNameID: 11, DisplayName: "Bookmark"}}
	mustInsert(t, m, spec)
	mustInsert(t, m, fileEvent(200, 8, "/beta"))

	if err := m.Reinitialize(ctx); err != nil {
		t.Fatalf("Reinitialize failed: %v", err)
	}

	count, err := m.CountAllEvents(ctx)
	if err != nil {
		t.Fatalf("CountAllEvents failed: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d after reinitialize, want 0", count)
	}
	minTime, err := m.MinTime(ctx)
	if err != nil {
		t.Fatalf("MinTime failed: %v", err)
	}
	if minTime != -1 {
		t.Errorf("MinTime = %d on empty store, want -1", minTime)
	}
	names, err := m.HashSetNames(ctx)
	if err != nil {
		t.Fatalf("HashSetNames failed: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("hash sets survived reinitialize: %v", names)
	}

	// The store is usable again.
	mustInsert(t, m, fileEvent(300, 9, "/gamma"))
}

func TestReinitializeTags(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	spec := fileEvent(100, 7, "/alpha")
	spec.Tags = []types.Tag{{TagID: 1, TagNameID: 11, DisplayName: "Bookmark"}}
	tagged := mustInsert(t, m, spec)
	plain := mustInsert(t, m, fileEvent(200, 8, "/beta"))

	if err := m.ReinitializeTags(ctx); err != nil {
		t.Fatalf("ReinitializeTags failed: %v", err)
	}

	got, err := m.EventByID(ctx, tagged.ID)
	if err != nil {
		t.Fatalf("EventByID failed: %v", err)
	}
	if got.Tagged {
		t.Error("tagged flag survived tag reset")
	}
	counts, err := m.TagCountsByTagName(ctx, []int64{tagged.ID, plain.ID})
	if err != nil {
		t.Fatalf("TagCountsByTagName failed: %v", err)
	}
	if len(counts) != 0 {
		t.Errorf("tag rows survived tag reset: %v", counts)
	}

	// Events themselves are untouched.
	count, err := m.CountAllEvents(ctx)
	if err != nil {
		t.Fatalf("CountAllEvents failed: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d after tag reset, want 2", count)
	}
}

func TestAnalyze(t *testing.T) {
	m := newTestManager(t)
	mustInsert(t, m, fileEvent(100, 7, "/alpha"))

	if err := m.Analyze(context.Background()); err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
}

func TestStatsTracksOperations(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	mustInsert(t, m, fileEvent(100, 7, "/alpha"))
	if _, err := m.EventIDs(ctx, types.TimeRange{Start: 0, End: 1000}, nil); err != nil {
		t.Fatalf("EventIDs failed: %v", err)
	}

	tags := filter.NewTagsFilter(filter.NewTagNameFilter("Bookmark", 11))
	tags.SetSelected(true)
	root := filter.NewRootFilter(nil, tags, nil, nil, nil, nil)
	if _, err := m.EventIDs(ctx, types.TimeRange{Start: 0, End: 1000}, root); err != nil {
		t.Fatalf("filtered EventIDs failed: %v", err)
	}

	snap := m.Stats()

	calls := make(map[string]int64)
	for _, op := range snap.Ops {
		calls[op.Op] = op.Calls
	}
	if calls["InsertEvent"] != 1 {
		t.Errorf("InsertEvent calls = %d, want 1", calls["InsertEvent"])
	}
	if calls["EventIDs"] != 2 {
		t.Errorf("EventIDs calls = %d, want 2", calls["EventIDs"])
	}

	if snap.FilterKinds["unrestricted"] == 0 {
		t.Error("unfiltered query not counted as unrestricted")
	}
	if snap.FilterKinds["tags"] == 0 || snap.FilterKinds["restricted"] == 0 {
		t.Errorf("tag-restricted query not counted: %v", snap.FilterKinds)
	}
}

func TestCloseReleasesPreparedStatements(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	mustInsert(t, m, fileEvent(100, 7, "/alpha"))
	if _, err := m.EventByID(ctx, 1); err != nil {
		t.Fatalf("EventByID failed: %v", err)
	}

	if err := m.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}

	// The store is still open, so reads re-prepare transparently.
	ev, err := m.EventByID(ctx, 1)
	if err != nil {
		t.Fatalf("EventByID after Close failed: %v", err)
	}
	if ev == nil {
		t.Error("event not found after Close")
	}
}

func TestDDLLabel(t *testing.T) {
	tests := []struct {
		stmt string
		want string
	}{
		{"CREATE TABLE IF NOT EXISTS events (\n  event_id INTEGER\n)", "CREATE TABLE events"},
		{"DROP TABLE IF EXISTS tags", "DROP TABLE tags"},
		{"CREATE INDEX IF NOT EXISTS idx_events_time ON events(time)", "CREATE INDEX idx_events_time"},
		{"ALTER TABLE events ADD COLUMN tagged INTEGER", "ALTER TABLE events"},
		{"ANALYZE", "ANALYZE"},
	}
	for _, tt := range tests {
		if got := ddlLabel(tt.stmt); got != tt.want {
			t.Errorf("ddlLabel(%q) = %q, want %q", tt.stmt, got, tt.want)
		}
	}
}

func TestSQLFragmentHelpers(t *testing.T) {
	if got := timeCondition(types.TimeRange{Start: 10, End: 20}); got != "time >= 10 AND time < 20" {
		t.Errorf("timeCondition = %q", got)
	}
	if got := joinIDs([]int64{3, 1, 2}); got != "3, 1, 2" {
		t.Errorf("joinIDs = %q", got)
	}
	if got := placeholderList(casedb.SQLiteDialect{}, 3); got != "?, ?, ?" {
		t.Errorf("sqlite placeholderList = %q", got)
	}
	if got := placeholderList(casedb.PostgresDialect{}, 3); got != "$1, $2, $3" {
		t.Errorf("postgres placeholderList = %q", got)
	}
}
