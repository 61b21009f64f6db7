// Package integration provides end-to-end integration tests for Chronolith.
package integration

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/chronolith/chronolith/pkg/casedb"
	"github.com/chronolith/chronolith/pkg/filter"
	"github.com/chronolith/chronolith/pkg/timeline"
	"github.com/chronolith/chronolith/pkg/types"
)

// 2023-06-01 00:00:00 UTC, the first instant of the test case's activity.
const caseStart = int64(1685577600)

const hour = int64(3600)

func openCase(t *testing.T) *casedb.SQLiteCase {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "chronolith-integration-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	db, err := casedb.OpenSQLite(filepath.Join(tempDir, "case.db"))
	if err != nil {
		t.Fatalf("failed to open case database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newManager(t *testing.T, db casedb.CaseDB) *timeline.Manager {
	t.Helper()

	cfg := timeline.DefaultConfig()
	cfg.Logger = log.New(io.Discard, "", 0)
	m, err := timeline.NewManager(db, cfg)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func insert(t *testing.T, m *timeline.Manager, spec timeline.EventSpec) *types.Event {
	t.Helper()
	ev, err := m.InsertEvent(context.Background(), spec)
	if err != nil {
		t.Fatalf("InsertEvent failed: %v", err)
	}
	return ev
}

// seedCase ingests a small two-day investigation: file activity on the
// system drive, a flagged download with its browser artifacts, and activity
// from a second data source a day later.
func seedCase(t *testing.T, m *timeline.Manager) (download *types.Event) {
	t.Helper()

	// One document touched by three timestamp kinds at one instant.
	for _, st := range []types.SubType{types.FileModified, types.FileAccessed, types.FileCreated} {
		insert(t, m, timeline.EventSpec{
			Time:             caseStart + hour,
			Type:             st,
			DataSourceID:     1,
			ContentID:        100,
			FullDescription:  "/Users/kim/Documents/report.doc",
			MedDescription:   "/Users/kim/Documents",
			ShortDescription: "/Users",
		})
	}

	// A known-good system file, hidden once the known filter is on.
	known := timeline.EventSpec{
		Time:             caseStart + 2*hour,
		Type:             types.FileModified,
		DataSourceID:     1,
		ContentID:        101,
		FullDescription:  "/Windows/System32/kernel32.dll",
		MedDescription:   "/Windows/System32",
		ShortDescription: "/Windows",
		Known:            types.KnownGood,
	}
	insert(t, m, known)

	// The download that hit a hash set, plus the history around it.
	artifact := int64(500)
	download = insert(t, m, timeline.EventSpec{
		Time:             caseStart + 3*hour,
		Type:             types.WebDownload,
		DataSourceID:     1,
		ContentID:        102,
		ArtifactID:       &artifact,
		FullDescription:  "https://files.example.net/invoice.exe",
		MedDescription:   "files.example.net",
		ShortDescription: "example.net",
		HashSetNames:     []string{"Project VIC"},
	})
	historyArtifact := int64(501)
	insert(t, m, timeline.EventSpec{
		Time:             caseStart + 3*hour - 40,
		Type:             types.WebHistory,
		DataSourceID:     1,
		ContentID:        102,
		ArtifactID:       &historyArtifact,
		FullDescription:  "https://files.example.net/",
		MedDescription:   "files.example.net",
		ShortDescription: "example.net",
	})

	// Unrelated mailbox traffic later the same day.
	insert(t, m, timeline.EventSpec{
		Time:             caseStart + 10*hour,
		Type:             types.Email,
		DataSourceID:     1,
		ContentID:        103,
		FullDescription:  "RE: quarterly numbers",
		MedDescription:   "inbox",
		ShortDescription: "mail",
	})

	// A second data source joins a day later.
	insert(t, m, timeline.EventSpec{
		Time:             caseStart + 24*hour,
		Type:             types.DeviceAttached,
		DataSourceID:     2,
		ContentID:        200,
		FullDescription:  "USB mass storage 4C530001",
		MedDescription:   "USB mass storage",
		ShortDescription: "USB",
	})
	insert(t, m, timeline.EventSpec{
		Time:             caseStart + 25*hour,
		Type:             types.FileAccessed,
		DataSourceID:     2,
		ContentID:        201,
		FullDescription:  "/Volumes/USB/payload.zip",
		MedDescription:   "/Volumes/USB",
		ShortDescription: "/Volumes",
	})
	return download
}

// TestInvestigationWorkflow walks the full read side the way a timeline UI
// would: whole-case statistics first, then zoomed aggregation, then drill
// down to combined events and single events.
func TestInvestigationWorkflow(t *testing.T) {
	db := openCase(t)
	m := newManager(t, db)
	ctx := context.Background()

	seedCase(t, m)

	count, err := m.CountAllEvents(ctx)
	if err != nil {
		t.Fatalf("CountAllEvents failed: %v", err)
	}
	if count != 9 {
		t.Fatalf("case has %d events, want 9", count)
	}

	minTime, err := m.MinTime(ctx)
	if err != nil {
		t.Fatalf("MinTime failed: %v", err)
	}
	maxTime, err := m.MaxTime(ctx)
	if err != nil {
		t.Fatalf("MaxTime failed: %v", err)
	}
	if minTime != caseStart+hour || maxTime != caseStart+25*hour {
		t.Errorf("case bounds = (%d, %d)", minTime, maxTime)
	}

	sources, err := m.DataSourceIDs(ctx)
	if err != nil {
		t.Fatalf("DataSourceIDs failed: %v", err)
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i] < sources[j] })
	if len(sources) != 2 || sources[0] != 1 || sources[1] != 2 {
		t.Errorf("DataSourceIDs = %v, want [1 2]", sources)
	}

	wholeCase := types.TimeRange{Start: minTime, End: maxTime + 1}

	counts, err := m.CountEventsByType(ctx, wholeCase, nil, types.TypeLevelBase)
	if err != nil {
		t.Fatalf("CountEventsByType failed: %v", err)
	}
	if counts[types.BaseFileSystem] != 5 {
		t.Errorf("file system count = %d, want 5", counts[types.BaseFileSystem])
	}
	if counts[types.BaseWebActivity] != 2 {
		t.Errorf("web activity count = %d, want 2", counts[types.BaseWebActivity])
	}
	if counts[types.BaseMiscellaneous] != 2 {
		t.Errorf("miscellaneous count = %d, want 2", counts[types.BaseMiscellaneous])
	}

	// Zoomed out, the whole case buckets by hours.
	stripes, err := m.EventStripes(ctx, timeline.ZoomParams{
		Range:            wholeCase,
		TypeLevel:        types.TypeLevelBase,
		DescriptionLevel: types.DescriptionShort,
	})
	if err != nil {
		t.Fatalf("EventStripes failed: %v", err)
	}
	if len(stripes) == 0 {
		t.Fatal("whole-case zoom produced no stripes")
	}
	var totalEvents int
	for _, s := range stripes {
		totalEvents += s.Count()
	}
	if totalEvents != 9 {
		t.Errorf("stripes cover %d events, want 9", totalEvents)
	}

	// Drilling into the download hour shows the web activity around it.
	downloadHour := types.TimeRange{Start: caseStart + 3*hour - 300, End: caseStart + 3*hour + 300}
	stripes, err = m.EventStripes(ctx, timeline.ZoomParams{
		Range:            downloadHour,
		TypeLevel:        types.TypeLevelSub,
		DescriptionLevel: types.DescriptionFull,
	})
	if err != nil {
		t.Fatalf("EventStripes failed: %v", err)
	}
	if len(stripes) != 2 {
		t.Fatalf("download window has %d stripes, want history and download", len(stripes))
	}

	// The three timestamp kinds of the document fold into one combined
	// event.
	combined, err := m.CombinedEvents(ctx, types.TimeRange{Start: caseStart + hour, End: caseStart + hour + 1}, nil)
	if err != nil {
		t.Fatalf("CombinedEvents failed: %v", err)
	}
	if len(combined) != 1 {
		t.Fatalf("CombinedEvents returned %d entries, want 1", len(combined))
	}
	if len(combined[0].Events) != 3 {
		t.Errorf("combined entry has %d sub-types, want 3", len(combined[0].Events))
	}

	// BoundingInterval snaps a quiet stretch to the surrounding activity.
	quiet := types.TimeRange{Start: caseStart + 12*hour, End: caseStart + 20*hour}
	interval, err := m.BoundingInterval(ctx, quiet, nil)
	if err != nil {
		t.Fatalf("BoundingInterval failed: %v", err)
	}
	want := types.TimeRange{Start: caseStart + 10*hour, End: caseStart + 24*hour + 1}
	if interval == nil || *interval != want {
		t.Errorf("BoundingInterval = %v, want %s", interval, want)
	}
}

// TestFilteredViews exercises the filter tree against a seeded case: known
// state, hash sets, types, and text restrictions.
func TestFilteredViews(t *testing.T) {
	db := openCase(t)
	m := newManager(t, db)
	ctx := context.Background()

	download := seedCase(t, m)
	wholeCase := types.TimeRange{Start: caseStart, End: caseStart + 48*hour}

	// Hiding known files drops the system dll.
	root := filter.DefaultRootFilter()
	root.HideKnown().SetSelected(true)
	ids, err := m.EventIDs(ctx, wholeCase, root)
	if err != nil {
		t.Fatalf("EventIDs failed: %v", err)
	}
	if len(ids) != 8 {
		t.Errorf("hide-known view has %d events, want 8", len(ids))
	}

	// Restricting to the flagged hash set leaves only the download.
	names, err := m.HashSetNames(ctx)
	if err != nil {
		t.Fatalf("HashSetNames failed: %v", err)
	}
	var setID int64
	for id, name := range names {
		if name == "Project VIC" {
			setID = id
		}
	}
	if setID == 0 {
		t.Fatalf("hash set missing: %v", names)
	}
	hashHits := filter.NewHashHitsFilter(filter.NewHashSetFilter("Project VIC", setID))
	hashHits.SetSelected(true)
	root = filter.NewRootFilter(nil, nil, hashHits, nil, nil, nil)
	ids, err = m.EventIDs(ctx, wholeCase, root)
	if err != nil {
		t.Fatalf("EventIDs failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != download.ID {
		t.Errorf("hash-set view = %v, want [%d]", ids, download.ID)
	}

	// Text search finds the USB volume regardless of type.
	root = filter.NewRootFilter(nil, nil, nil, filter.NewTextFilter("usb"), nil, nil)
	ids, err = m.EventIDs(ctx, wholeCase, root)
	if err != nil {
		t.Fatalf("EventIDs failed: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("text view has %d events, want the device and the zip", len(ids))
	}

	// A second data source view sees only its own events.
	ds := filter.NewDataSourcesFilter(filter.NewDataSourceFilter("usb-image", 2))
	root = filter.NewRootFilter(ds, nil, nil, nil, nil, nil)
	ids, err = m.EventIDs(ctx, wholeCase, root)
	if err != nil {
		t.Fatalf("EventIDs failed: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("data-source view has %d events, want 2", len(ids))
	}
}

// TestTagWorkflow runs the whole tag life cycle: apply, query through the
// filter, summarize, and remove.
func TestTagWorkflow(t *testing.T) {
	db := openCase(t)
	m := newManager(t, db)
	ctx := context.Background()

	seedCase(t, m)
	wholeCase := types.TimeRange{Start: caseStart, End: caseStart + 48*hour}
	bookmark := types.Tag{TagID: 1, TagNameID: 11, DisplayName: "Bookmark"}

	// Tag the document's file events.
	tagged, err := m.AddTag(ctx, 100, nil, bookmark)
	if err != nil {
		t.Fatalf("AddTag failed: %v", err)
	}
	if len(tagged) != 3 {
		t.Fatalf("AddTag covered %d events, want the 3 document events", len(tagged))
	}

	tags := filter.NewTagsFilter(filter.NewTagNameFilter("Bookmark", 11))
	tags.SetSelected(true)
	root := filter.NewRootFilter(nil, tags, nil, nil, nil, nil)
	ids, err := m.EventIDs(ctx, wholeCase, root)
	if err != nil {
		t.Fatalf("EventIDs failed: %v", err)
	}
	if len(ids) != 3 {
		t.Errorf("tag view has %d events, want 3", len(ids))
	}

	// One distinct Bookmark tag covers all three events.
	counts, err := m.TagCountsByTagName(ctx, ids)
	if err != nil {
		t.Fatalf("TagCountsByTagName failed: %v", err)
	}
	if len(counts) != 1 || counts[0].DisplayName != "Bookmark" || counts[0].Count != 1 {
		t.Errorf("tag counts = %v", counts)
	}

	// The tagged events surface in the stripe subsets too.
	stripes, err := m.EventStripes(ctx, timeline.ZoomParams{
		Range:            wholeCase,
		TypeLevel:        types.TypeLevelBase,
		DescriptionLevel: types.DescriptionFull,
	})
	if err != nil {
		t.Fatalf("EventStripes failed: %v", err)
	}
	var striped int
	for _, s := range stripes {
		striped += len(s.TaggedIDs)
	}
	if striped != 3 {
		t.Errorf("stripes carry %d tagged ids, want 3", striped)
	}

	// Removing the tag clears the flags and the view.
	var eventIDs []int64
	for id := range tagged {
		eventIDs = append(eventIDs, id)
	}
	if _, err := m.DeleteTag(ctx, eventIDs, bookmark.TagID, false); err != nil {
		t.Fatalf("DeleteTag failed: %v", err)
	}
	ids, err = m.EventIDs(ctx, wholeCase, root)
	if err != nil {
		t.Fatalf("EventIDs failed: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("tag view still has %v after deletion", ids)
	}
}

// TestConfigDrivenSetup builds a manager from a config file with an
// environment override on top, the way a host application would.
func TestConfigDrivenSetup(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "chronolith-config-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	configPath := filepath.Join(tempDir, "timeline.yaml")
	content := "merge_gap_divisor: 2\nstripe_cache_bytes: 65536\n"
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	t.Setenv("CHRONOLITH_MERGE_GAP_DIVISOR", "8")

	cfg, err := timeline.LoadConfigFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadConfigFromFile failed: %v", err)
	}
	timeline.LoadConfigFromEnv(&cfg)

	if cfg.MergeGapDivisor != 8 {
		t.Errorf("MergeGapDivisor = %d, want the env override 8", cfg.MergeGapDivisor)
	}
	if cfg.StripeCacheBytes != 65536 {
		t.Errorf("StripeCacheBytes = %d, want the file value 65536", cfg.StripeCacheBytes)
	}

	db := openCase(t)
	cfg.Logger = log.New(io.Discard, "", 0)
	m, err := timeline.NewManager(db, cfg)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	defer m.Close()

	insert(t, m, timeline.EventSpec{
		Time:            caseStart,
		Type:            types.FileModified,
		DataSourceID:    1,
		ContentID:       1,
		FullDescription: "/probe",
	})
	count, err := m.CountAllEvents(context.Background())
	if err != nil {
		t.Fatalf("CountAllEvents failed: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

// TestRebuildWorkflow verifies the two reset paths: the tag-only reset and
// the full store rebuild.
func TestRebuildWorkflow(t *testing.T) {
	db := openCase(t)
	m := newManager(t, db)
	ctx := context.Background()

	seedCase(t, m)
	if _, err := m.AddTag(ctx, 100, nil, types.Tag{TagID: 1, TagNameID: 11, DisplayName: "Bookmark"}); err != nil {
		t.Fatalf("AddTag failed: %v", err)
	}

	if err := m.ReinitializeTags(ctx); err != nil {
		t.Fatalf("ReinitializeTags failed: %v", err)
	}
	count, err := m.CountAllEvents(ctx)
	if err != nil {
		t.Fatalf("CountAllEvents failed: %v", err)
	}
	if count != 9 {
		t.Errorf("tag reset dropped events: count = %d", count)
	}

	if err := m.Reinitialize(ctx); err != nil {
		t.Fatalf("Reinitialize failed: %v", err)
	}
	count, err = m.CountAllEvents(ctx)
	if err != nil {
		t.Fatalf("CountAllEvents failed: %v", err)
	}
	if count != 0 {
		t.Errorf("rebuild left %d events behind", count)
	}

	// The rebuilt store accepts the case again.
	seedCase(t, m)
	count, err = m.CountAllEvents(ctx)
	if err != nil {
		t.Fatalf("CountAllEvents failed: %v", err)
	}
	if count != 9 {
		t.Errorf("re-seeded count = %d, want 9", count)
	}
}
