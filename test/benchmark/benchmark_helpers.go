// Package benchmark provides performance benchmarks for Chronolith.
package benchmark

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/chronolith/chronolith/pkg/casedb"
	"github.com/chronolith/chronolith/pkg/timeline"
	"github.com/chronolith/chronolith/pkg/types"
)

// Every generated case starts at 2023-06-01 00:00:00 UTC.
const caseStart = int64(1685577600)

var benchSubTypes = []types.SubType{
	types.FileModified,
	types.FileAccessed,
	types.FileCreated,
	types.WebDownload,
	types.WebHistory,
	types.Email,
}

// newBenchManager opens a fresh on-disk case and returns a manager over it.
func newBenchManager(b *testing.B, cfg timeline.Config) *timeline.Manager {
	b.Helper()

	dir, err := os.MkdirTemp("", "chronolith-bench-*")
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { os.RemoveAll(dir) })

	db, err := casedb.OpenSQLite(filepath.Join(dir, "case.db"))
	if err != nil {
		b.Fatalf("failed to open case database: %v", err)
	}
	b.Cleanup(func() { db.Close() })

	cfg.Logger = log.New(io.Discard, "", 0)
	m, err := timeline.NewManager(db, cfg)
	if err != nil {
		b.Fatalf("NewManager failed: %v", err)
	}
	b.Cleanup(func() { m.Close() })
	return m
}

// benchEvent returns a deterministic spec for index i: events land 7 seconds
// apart, cycle through the common sub-types, and spread over 32 directories
// so type and description grouping both have work to do.
func benchEvent(i int) timeline.EventSpec {
	dir := i % 32
	return timeline.EventSpec{
		Time:             caseStart + int64(i)*7,
		Type:             benchSubTypes[i%len(benchSubTypes)],
		DataSourceID:     int64(i%4) + 1,
		ContentID:        int64(i + 1),
		FullDescription:  fmt.Sprintf("/case/dir%02d/file%06d", dir, i),
		MedDescription:   fmt.Sprintf("/case/dir%02d", dir),
		ShortDescription: "/case",
	}
}

// seedEvents inserts n generated events and returns the range covering them.
func seedEvents(b *testing.B, m *timeline.Manager, n int) types.TimeRange {
	b.Helper()

	ctx := context.Background()
	for i := 0; i < n; i++ {
		if _, err := m.InsertEvent(ctx, benchEvent(i)); err != nil {
			b.Fatalf("seed insert %d failed: %v", i, err)
		}
	}
	return types.TimeRange{Start: caseStart, End: caseStart + int64(n)*7 + 1}
}
