package timeline

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	cerrors "github.com/chronolith/chronolith/internal/errors"
	"github.com/chronolith/chronolith/internal/schema"
	"github.com/chronolith/chronolith/internal/sqlcond"
	"github.com/chronolith/chronolith/pkg/filter"
	"github.com/chronolith/chronolith/pkg/types"
)

// eventColumns is the scan order shared by full-event selects; scanEventRow
// depends on it.
const eventColumns = "event_id, datasource_id, file_id, artifact_id, time, " +
	"sub_type, full_description, med_description, short_description, " +
	"known_state, hash_hit, tagged"

// EventByID returns the event with the given id, or (nil, nil) when no such
// event exists.
func (m *Manager) EventByID(ctx context.Context, eventID int64) (*types.Event, error) {
	m.db.AcquireReadLock()
	defer m.db.ReleaseReadLock()

	query := fmt.Sprintf("SELECT %s FROM events WHERE event_id = %s",
		eventColumns, m.d.Placeholder(1))
	stmt, err := m.getOrPrepareStmt(ctx, query)
	if err != nil {
		return nil, err
	}
	return scanEventRow(stmt.QueryRowContext(ctx, eventID))
}

// scanEventRow scans a full-event row, mapping sql.ErrNoRows to (nil, nil).
func scanEventRow(row *sql.Row) (*types.Event, error) {
	var (
		e         types.Event
		artifact  sql.NullInt64
		subType   sql.NullInt64
		medDesc   sql.NullString
		shortDesc sql.NullString
		known     int64
		hashHit   int64
		tagged    int64
	)
	err := row.Scan(
		&e.ID, &e.DataSourceID, &e.ContentID, &artifact, &e.Time,
		&subType, &e.FullDescription, &medDesc, &shortDesc,
		&known, &hashHit, &tagged,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, cerrors.NewQueryError("scan event", err)
	}

	if artifact.Valid {
		id := artifact.Int64
		e.ArtifactID = &id
	}
	if subType.Valid {
		e.Type = types.SubType(subType.Int64)
	}
	e.MedDescription = medDesc.String
	e.ShortDescription = shortDesc.String
	e.Known = types.KnownState(known)
	e.HashHit = hashHit != 0
	e.Tagged = tagged != 0
	return &e, nil
}

// EventIDs returns the ids of events inside the half-open range that satisfy
// the filter, ordered by time ascending. When membership filters join in the
// tag or hash-hit relations an id appears once per matching row.
func (m *Manager) EventIDs(ctx context.Context, r types.TimeRange, root *filter.RootFilter) (ids []int64, err error) {
	started := time.Now()
	qid := uuid.New()
	defer func() { m.observe("EventIDs", started, qid, err) }()

	r = r.Widened()
	cond := sqlcond.Compile(root, m.d)
	m.recordFilterKinds(cond)

	query := "SELECT events.event_id AS event_id FROM events" + joinClause(cond) +
		" WHERE " + timeCondition(r) + " AND " + cond.Where +
		" ORDER BY time ASC"

	m.db.AcquireReadLock()
	defer m.db.ReleaseReadLock()

	rows, err := m.db.Reader().QueryContext(ctx, query)
	if err != nil {
		return nil, cerrors.NewStoreError(cerrors.CodeStoreQueryFailed, "get event ids in range", err)
	}
	return scanIDs(rows, "scan event ids")
}

// CountEventsByType counts the filtered events in the range, grouped by type
// at the requested granularity. Types with no matching events have no entry
// in the result.
func (m *Manager) CountEventsByType(ctx context.Context, r types.TimeRange, root *filter.RootFilter, level types.TypeLevel) (counts map[types.EventType]int64, err error) {
	started := time.Now()
	qid := uuid.New()
	defer func() { m.observe("CountEventsByType", started, qid, err) }()

	r = r.Widened()
	cond := sqlcond.Compile(root, m.d)
	m.recordFilterKinds(cond)
	typeColumn := schema.TypeColumn(level)

	query := "SELECT count(DISTINCT events.event_id) AS count, " + typeColumn +
		" FROM events" + joinClause(cond) +
		" WHERE " + timeCondition(r) + " AND " + cond.Where +
		" GROUP BY " + typeColumn

	m.db.AcquireReadLock()
	defer m.db.ReleaseReadLock()

	rows, err := m.db.Reader().QueryContext(ctx, query)
	if err != nil {
		return nil, cerrors.NewStoreError(cerrors.CodeStoreQueryFailed, "count events by type", err)
	}
	defer rows.Close()

	counts = make(map[types.EventType]int64)
	for rows.Next() {
		var (
			count   int64
			ordinal sql.NullInt64
		)
		if err := rows.Scan(&count, &ordinal); err != nil {
			return nil, cerrors.NewQueryError("scan type count", err)
		}
		if !ordinal.Valid {
			continue
		}
		et, ok := typeFromOrdinal(level, int(ordinal.Int64))
		if !ok {
			return nil, cerrors.New(cerrors.CategoryInternal, cerrors.CodeUnexpected,
				fmt.Sprintf("unknown %s type ordinal %d", level, ordinal.Int64))
		}
		counts[et] = count
	}
	if err := rows.Err(); err != nil {
		return nil, cerrors.NewQueryError("iterate type counts", err)
	}
	return counts, nil
}

// CountAllEvents returns the total number of events in the store.
func (m *Manager) CountAllEvents(ctx context.Context) (int64, error) {
	m.db.AcquireReadLock()
	defer m.db.ReleaseReadLock()

	stmt, err := m.getOrPrepareStmt(ctx,
		"SELECT count(event_id) AS count FROM events WHERE event_id IS NOT NULL")
	if err != nil {
		return 0, err
	}
	var count int64
	if err := stmt.QueryRowContext(ctx).Scan(&count); err != nil {
		return 0, cerrors.NewQueryError("count all events", err)
	}
	return count, nil
}

// CombinedEvents returns the filtered events in the range folded so that all
// events sharing an instant, a full description, and backing content form
// one entry with a representative event id per sub-type. Entries are ordered
// by time, then description.
func (m *Manager) CombinedEvents(ctx context.Context, r types.TimeRange, root *filter.RootFilter) (combined []types.CombinedEvent, err error) {
	started := time.Now()
	qid := uuid.New()
	defer func() { m.observe("CombinedEvents", started, qid, err) }()

	r = r.Widened()
	cond := sqlcond.Compile(root, m.d)
	m.recordFilterKinds(cond)

	query := "SELECT full_description, time, file_id, " +
		m.d.GroupConcat("CAST(events.event_id AS VARCHAR)", ",") + " AS event_ids, " +
		m.d.GroupConcat("CAST(sub_type AS VARCHAR)", ",") + " AS sub_types" +
		" FROM events" + joinClause(cond) +
		" WHERE " + timeCondition(r) + " AND " + cond.Where +
		" GROUP BY time, full_description, file_id" +
		" ORDER BY time ASC, full_description"

	m.db.AcquireReadLock()
	defer m.db.ReleaseReadLock()

	rows, err := m.db.Reader().QueryContext(ctx, query)
	if err != nil {
		return nil, cerrors.NewStoreError(cerrors.CodeStoreQueryFailed, "get combined events", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			ce       types.CombinedEvent
			idsCat   sql.NullString
			typesCat sql.NullString
		)
		if err := rows.Scan(&ce.FullDescription, &ce.Time, &ce.ContentID, &idsCat, &typesCat); err != nil {
			return nil, cerrors.NewQueryError("scan combined event", err)
		}
		ce.Events, err = zipTypeIDs(idsCat.String, typesCat.String)
		if err != nil {
			return nil, err
		}
		combined = append(combined, ce)
	}
	if err := rows.Err(); err != nil {
		return nil, cerrors.NewQueryError("iterate combined events", err)
	}

	m.logger.Printf("[INFO] timeline: combined query %s returned %d entries in %s",
		qid, len(combined), time.Since(started))
	return combined, nil
}

// zipTypeIDs pairs the two group-concat payloads of a combined-event row
// into a sub-type to representative-id map.
func zipTypeIDs(idsCat, typesCat string) (map[types.SubType]int64, error) {
	ids := strings.Split(idsCat, ",")
	ordinals := strings.Split(typesCat, ",")
	if len(ids) != len(ordinals) {
		return nil, cerrors.New(cerrors.CategoryInternal, cerrors.CodeGroupDecodeFailed,
			fmt.Sprintf("combined row has %d ids but %d types", len(ids), len(ordinals)))
	}
	events := make(map[types.SubType]int64, len(ids))
	for i := range ids {
		id, err := strconv.ParseInt(strings.TrimSpace(ids[i]), 10, 64)
		if err != nil {
			return nil, cerrors.Wrap(cerrors.CategoryInternal, cerrors.CodeGroupDecodeFailed,
				"parse combined event id", err)
		}
		ordinal, err := strconv.Atoi(strings.TrimSpace(ordinals[i]))
		if err != nil {
			return nil, cerrors.Wrap(cerrors.CategoryInternal, cerrors.CodeGroupDecodeFailed,
				"parse combined sub-type", err)
		}
		st, ok := types.SubTypeFromOrdinal(ordinal)
		if !ok {
			return nil, cerrors.New(cerrors.CategoryInternal, cerrors.CodeGroupDecodeFailed,
				fmt.Sprintf("unknown sub-type ordinal %d", ordinal))
		}
		events[st] = id
	}
	return events, nil
}

// BoundingInterval returns the smallest interval enclosing the filtered
// events nearest the requested range: from the latest event at or before the
// range start to the earliest event at or after the range end. When no event
// exists on the early side the interval starts at the epoch; when none
// exists on the late side it ends at the store's maximum time. An empty
// store yields (nil, nil).
func (m *Manager) BoundingInterval(ctx context.Context, r types.TimeRange, root *filter.RootFilter) (interval *types.TimeRange, err error) {
	started := time.Now()
	qid := uuid.New()
	defer func() { m.observe("BoundingInterval", started, qid, err) }()

	cond := sqlcond.Compile(root, m.d)
	m.recordFilterKinds(cond)
	joins := joinClause(cond)

	query := fmt.Sprintf(
		"SELECT (SELECT Max(time) FROM events%s WHERE time <= %d AND %s) AS start_time,"+
			" (SELECT Min(time) FROM events%s WHERE time >= %d AND %s) AS end_time",
		joins, r.Start, cond.Where, joins, r.End, cond.Where)

	var start, end sql.NullInt64
	m.db.AcquireReadLock()
	scanErr := m.db.Reader().QueryRowContext(ctx, query).Scan(&start, &end)
	m.db.ReleaseReadLock()
	if scanErr != nil {
		return nil, cerrors.NewStoreError(cerrors.CodeStoreQueryFailed, "get bounding interval", scanErr)
	}

	startTime := int64(0)
	if start.Valid {
		startTime = start.Int64
	}
	endTime := end.Int64
	if !end.Valid {
		endTime, err = m.MaxTime(ctx)
		if err != nil {
			return nil, err
		}
		if endTime < 0 {
			return nil, nil
		}
	}
	return &types.TimeRange{Start: startTime, End: endTime + 1}, nil
}

// SpanningInterval returns the half-open interval covering the given events,
// [earliest, latest+1). Returns (nil, nil) when ids is empty or none of the
// ids exist.
func (m *Manager) SpanningInterval(ctx context.Context, eventIDs []int64) (*types.TimeRange, error) {
	if len(eventIDs) == 0 {
		return nil, nil
	}

	query := "SELECT Min(time) AS min_time, Max(time) AS max_time FROM events" +
		" WHERE event_id IN (" + joinIDs(eventIDs) + ")"

	m.db.AcquireReadLock()
	defer m.db.ReleaseReadLock()

	var minTime, maxTime sql.NullInt64
	if err := m.db.Reader().QueryRowContext(ctx, query).Scan(&minTime, &maxTime); err != nil {
		return nil, cerrors.NewStoreError(cerrors.CodeStoreQueryFailed, "get spanning interval", err)
	}
	if !minTime.Valid || !maxTime.Valid {
		return nil, nil
	}
	return &types.TimeRange{Start: minTime.Int64, End: maxTime.Int64 + 1}, nil
}

// MinTime returns the time of the oldest event, or -1 when the store is
// empty.
func (m *Manager) MinTime(ctx context.Context) (int64, error) {
	return m.scalarTime(ctx, "SELECT Min(time) AS min_time FROM events", "get min time")
}

// MaxTime returns the time of the newest event, or -1 when the store is
// empty.
func (m *Manager) MaxTime(ctx context.Context) (int64, error) {
	return m.scalarTime(ctx, "SELECT Max(time) AS max_time FROM events", "get max time")
}

func (m *Manager) scalarTime(ctx context.Context, query, op string) (int64, error) {
	m.db.AcquireReadLock()
	defer m.db.ReleaseReadLock()

	stmt, err := m.getOrPrepareStmt(ctx, query)
	if err != nil {
		return -1, err
	}
	var t sql.NullInt64
	if err := stmt.QueryRowContext(ctx).Scan(&t); err != nil {
		return -1, cerrors.NewQueryError(op, err)
	}
	if !t.Valid {
		return -1, nil
	}
	return t.Int64, nil
}

// EventIDsForArtifact returns the ids of events derived from the given
// artifact.
func (m *Manager) EventIDsForArtifact(ctx context.Context, artifactID int64) ([]int64, error) {
	m.db.AcquireReadLock()
	defer m.db.ReleaseReadLock()

	query := "SELECT event_id FROM events WHERE artifact_id = " + m.d.Placeholder(1)
	stmt, err := m.getOrPrepareStmt(ctx, query)
	if err != nil {
		return nil, err
	}
	rows, err := stmt.QueryContext(ctx, artifactID)
	if err != nil {
		return nil, cerrors.NewStoreError(cerrors.CodeStoreQueryFailed, "get artifact event ids", err)
	}
	return scanIDs(rows, "scan artifact event ids")
}

// EventIDsForContent returns the ids of events backed by the given content.
// With includeArtifacts false only events derived directly from the file
// itself are returned; events derived from artifacts on it are left out.
func (m *Manager) EventIDsForContent(ctx context.Context, contentID int64, includeArtifacts bool) ([]int64, error) {
	m.db.AcquireReadLock()
	defer m.db.ReleaseReadLock()

	query := "SELECT event_id FROM events WHERE file_id = " + m.d.Placeholder(1)
	if !includeArtifacts {
		query += " AND artifact_id IS NULL"
	}
	stmt, err := m.getOrPrepareStmt(ctx, query)
	if err != nil {
		return nil, err
	}
	rows, err := stmt.QueryContext(ctx, contentID)
	if err != nil {
		return nil, cerrors.NewStoreError(cerrors.CodeStoreQueryFailed, "get content event ids", err)
	}
	return scanIDs(rows, "scan content event ids")
}

// DataSourceIDs returns the distinct data sources that have events, leaving
// out the zero id legacy rows carry.
func (m *Manager) DataSourceIDs(ctx context.Context) ([]int64, error) {
	m.db.AcquireReadLock()
	defer m.db.ReleaseReadLock()

	query := "SELECT DISTINCT datasource_id FROM events WHERE " +
		m.d.NotEqual("datasource_id", "0")
	stmt, err := m.getOrPrepareStmt(ctx, query)
	if err != nil {
		return nil, err
	}
	rows, err := stmt.QueryContext(ctx)
	if err != nil {
		return nil, cerrors.NewStoreError(cerrors.CodeStoreQueryFailed, "get data source ids", err)
	}
	return scanIDs(rows, "scan data source ids")
}

// HashSetNames returns the hash sets the store has seen, keyed by id.
func (m *Manager) HashSetNames(ctx context.Context) (map[int64]string, error) {
	m.db.AcquireReadLock()
	defer m.db.ReleaseReadLock()

	stmt, err := m.getOrPrepareStmt(ctx, "SELECT hash_set_id, hash_set_name FROM hash_sets")
	if err != nil {
		return nil, err
	}
	rows, err := stmt.QueryContext(ctx)
	if err != nil {
		return nil, cerrors.NewStoreError(cerrors.CodeStoreQueryFailed, "get hash set names", err)
	}
	defer rows.Close()

	names := make(map[int64]string)
	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, cerrors.NewQueryError("scan hash set name", err)
		}
		names[id] = name
	}
	if err := rows.Err(); err != nil {
		return nil, cerrors.NewQueryError("iterate hash set names", err)
	}
	return names, nil
}

// TagCountsByTagName summarizes how many distinct tags of each tag name the
// given events carry, ordered by display name.
func (m *Manager) TagCountsByTagName(ctx context.Context, eventIDs []int64) ([]types.TagCount, error) {
	if len(eventIDs) == 0 {
		return nil, nil
	}

	query := "SELECT tag_name_id, tag_name_display_name, COUNT(DISTINCT tag_id) AS count" +
		" FROM tags WHERE event_id IN (" + joinIDs(eventIDs) + ")" +
		" GROUP BY tag_name_id, tag_name_display_name" +
		" ORDER BY tag_name_display_name"

	m.db.AcquireReadLock()
	defer m.db.ReleaseReadLock()

	rows, err := m.db.Reader().QueryContext(ctx, query)
	if err != nil {
		return nil, cerrors.NewStoreError(cerrors.CodeStoreQueryFailed, "count tags by name", err)
	}
	defer rows.Close()

	var counts []types.TagCount
	for rows.Next() {
		var (
			tc      types.TagCount
			display sql.NullString
		)
		if err := rows.Scan(&tc.TagNameID, &display, &tc.Count); err != nil {
			return nil, cerrors.NewQueryError("scan tag count", err)
		}
		tc.DisplayName = display.String
		counts = append(counts, tc)
	}
	if err := rows.Err(); err != nil {
		return nil, cerrors.NewQueryError("iterate tag counts", err)
	}
	return counts, nil
}

// typeFromOrdinal maps a persisted type ordinal back to an EventType at the
// given granularity.
func typeFromOrdinal(level types.TypeLevel, ordinal int) (types.EventType, bool) {
	if level == types.TypeLevelBase {
		b, ok := types.BaseTypeFromOrdinal(ordinal)
		return b, ok
	}
	s, ok := types.SubTypeFromOrdinal(ordinal)
	return s, ok
}

// scanIDs drains a single-int64-column result set.
func scanIDs(rows *sql.Rows, op string) ([]int64, error) {
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, cerrors.NewQueryError(op, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, cerrors.NewQueryError(op, err)
	}
	return ids, nil
}
