// Package observability provides the statistics sink the timeline manager
// reports into: per-operation call accounting and filter-kind usage, for
// diagnosing slow or busy query shapes.
package observability

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// QueryStats tracks operation frequency and filter-kind usage.
type QueryStats struct {
	mu        sync.RWMutex
	ops       map[string]*OpStats
	filterUse map[string]int64
	window    time.Duration
	capacity  int
}

// OpStats holds the accounting for one operation name.
type OpStats struct {
	Op            string
	Calls         int64
	Errors        int64
	TotalDuration time.Duration
	LastDuration  time.Duration
	LastSeen      time.Time
	LastQueryID   uuid.UUID
}

// Snapshot is a point-in-time copy of everything the sink has seen.
type Snapshot struct {
	Ops         []OpStats
	FilterKinds map[string]int64
}

// NewQueryStats creates a new statistics sink.
// window: time duration for pruning idle entries (e.g., 1 hour)
// capacity: maximum distinct operation names kept (default 256)
func NewQueryStats(window time.Duration, capacity int) *QueryStats {
	if capacity <= 0 {
		capacity = 256
	}
	return &QueryStats{
		ops:       make(map[string]*OpStats),
		filterUse: make(map[string]int64),
		window:    window,
		capacity:  capacity,
	}
}

// Record records one completed operation under its name.
// qid: the correlation id the operation was logged under.
// failed: whether the operation returned an error.
// This method is O(1) and thread-safe while under capacity.
func (q *QueryStats) Record(op string, d time.Duration, qid uuid.UUID, failed bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	stats, exists := q.ops[op]
	if !exists {
		stats = &OpStats{Op: op}
		q.ops[op] = stats
	}

	stats.Calls++
	if failed {
		stats.Errors++
	}
	stats.TotalDuration += d
	stats.LastDuration = d
	stats.LastSeen = time.Now()
	stats.LastQueryID = qid

	for len(q.ops) > q.capacity {
		q.evictStalestLocked()
	}
}

// evictStalestLocked drops the operation with the oldest LastSeen.
// Caller must hold q.mu.
func (q *QueryStats) evictStalestLocked() {
	var stalest string
	var when time.Time
	first := true
	for op, stats := range q.ops {
		if first || stats.LastSeen.Before(when) {
			stalest = op
			when = stats.LastSeen
			first = false
		}
	}
	delete(q.ops, stalest)
}

// RecordFilterKinds counts each filter kind participating in a query.
func (q *QueryStats) RecordFilterKinds(kinds ...string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, kind := range kinds {
		q.filterUse[kind]++
	}
}

// TopOps returns the top N operations by call count.
// Returns a copy of the stats sorted by calls (descending).
func (q *QueryStats) TopOps(n int) []OpStats {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if n <= 0 || len(q.ops) == 0 {
		return []OpStats{}
	}

	stats := make([]OpStats, 0, len(q.ops))
	for _, s := range q.ops {
		stats = append(stats, *s)
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Calls != stats[j].Calls {
			return stats[i].Calls > stats[j].Calls
		}
		return stats[i].Op < stats[j].Op
	})

	if n > len(stats) {
		n = len(stats)
	}
	return stats[:n]
}

// FilterKindCounts returns a copy of the filter-kind usage counts.
func (q *QueryStats) FilterKindCounts() map[string]int64 {
	q.mu.RLock()
	defer q.mu.RUnlock()

	counts := make(map[string]int64, len(q.filterUse))
	for kind, n := range q.filterUse {
		counts[kind] = n
	}
	return counts
}

// Snapshot returns a deep copy of all recorded statistics, operations sorted
// by call count descending.
func (q *QueryStats) Snapshot() Snapshot {
	return Snapshot{
		Ops:         q.TopOps(math.MaxInt),
		FilterKinds: q.FilterKindCounts(),
	}
}

// Prune removes operations where time.Since(LastSeen) > window.
// This should be called periodically by long-lived processes.
func (q *QueryStats) Prune() {
	q.mu.Lock()
	defer q.mu.Unlock()

	threshold := time.Now().Add(-q.window)
	for op, stats := range q.ops {
		if stats.LastSeen.Before(threshold) {
			delete(q.ops, op)
		}
	}
}
