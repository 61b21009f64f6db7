package timeline

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	cerrors "github.com/chronolith/chronolith/internal/errors"
	"github.com/chronolith/chronolith/pkg/types"
)

// EventSpec describes one event to add to the store. The hash-hit and tagged
// flags of the stored event are not set directly; they derive from whether
// HashSetNames and Tags are non-empty.
type EventSpec struct {
	Time             int64 // seconds since the Unix epoch
	Type             types.SubType
	DataSourceID     int64
	ContentID        int64
	ArtifactID       *int64
	FullDescription  string
	MedDescription   string
	ShortDescription string
	Known            types.KnownState
	HashSetNames     []string
	Tags             []types.Tag
}

func (s *EventSpec) validate() error {
	if s.FullDescription == "" {
		return cerrors.NewValidationError(cerrors.CodeInvalidEvent,
			"event full description must not be empty")
	}
	if !s.Type.Valid() {
		return cerrors.NewValidationError(cerrors.CodeInvalidEvent,
			fmt.Sprintf("unknown event sub-type %d", s.Type))
	}
	if !s.Known.Valid() {
		return cerrors.NewValidationError(cerrors.CodeInvalidEvent,
			fmt.Sprintf("unknown known state %d", s.Known))
	}
	return nil
}

// InsertEvent validates spec, writes the event and its hash-set and tag
// associations in one transaction, and returns the stored event.
func (m *Manager) InsertEvent(ctx context.Context, spec EventSpec) (ev *types.Event, err error) {
	started := time.Now()
	qid := uuid.New()
	defer func() { m.observe("InsertEvent", started, qid, err) }()

	if err = spec.validate(); err != nil {
		return nil, err
	}

	hashHit := len(spec.HashSetNames) > 0
	tagged := len(spec.Tags) > 0

	m.db.AcquireWriteLock()
	defer m.db.ReleaseWriteLock()

	tx, err := m.db.BeginTx(ctx)
	if err != nil {
		return nil, cerrors.NewStoreError(cerrors.CodeTxFailed, "begin event insert", err)
	}
	defer tx.Rollback()

	eventID, err := m.insertEventRow(ctx, tx, spec, hashHit, tagged)
	if err != nil {
		return nil, err
	}
	for _, name := range spec.HashSetNames {
		if err = m.insertHashSetHit(ctx, tx, eventID, name); err != nil {
			return nil, err
		}
	}
	for _, tag := range spec.Tags {
		if err = m.insertTagRow(ctx, tx, eventID, tag); err != nil {
			return nil, err
		}
	}
	if err = tx.Commit(); err != nil {
		return nil, cerrors.NewStoreError(cerrors.CodeTxFailed, "commit event insert", err)
	}
	m.purgeStripeCache()

	return &types.Event{
		ID:               eventID,
		DataSourceID:     spec.DataSourceID,
		ContentID:        spec.ContentID,
		ArtifactID:       spec.ArtifactID,
		Time:             spec.Time,
		Type:             spec.Type,
		FullDescription:  spec.FullDescription,
		MedDescription:   spec.MedDescription,
		ShortDescription: spec.ShortDescription,
		Known:            spec.Known,
		HashHit:          hashHit,
		Tagged:           tagged,
	}, nil
}

// insertEventRow writes the events row and returns its assigned id.
func (m *Manager) insertEventRow(ctx context.Context, tx *sql.Tx, spec EventSpec, hashHit, tagged bool) (int64, error) {
	query := fmt.Sprintf(
		"INSERT INTO events (datasource_id, file_id, artifact_id, time, sub_type, base_type,"+
			" full_description, med_description, short_description, known_state, hash_hit, tagged)"+
			" VALUES (%s)", placeholderList(m.d, 12))

	args := []interface{}{
		spec.DataSourceID, spec.ContentID, spec.ArtifactID, spec.Time,
		spec.Type.Ordinal(), spec.Type.Base().Ordinal(),
		spec.FullDescription, spec.MedDescription, spec.ShortDescription,
		int64(spec.Known), boolFlag(hashHit), boolFlag(tagged),
	}

	if m.d.UseReturning() {
		var id int64
		err := tx.QueryRowContext(ctx, query+" RETURNING event_id", args...).Scan(&id)
		if err != nil {
			return 0, cerrors.NewStoreError(cerrors.CodeStoreWriteFailed, "insert event", err)
		}
		return id, nil
	}

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, cerrors.NewStoreError(cerrors.CodeStoreWriteFailed, "insert event", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, cerrors.NewStoreError(cerrors.CodeStoreWriteFailed, "read event id", err)
	}
	return id, nil
}

// insertHashSetHit upserts the named hash set and links the event to it.
func (m *Manager) insertHashSetHit(ctx context.Context, tx *sql.Tx, eventID int64, name string) error {
	insert := m.d.InsertIgnore("hash_sets", "hash_set_name", m.d.Placeholder(1))
	if _, err := tx.ExecContext(ctx, insert, name); err != nil {
		return cerrors.NewStoreError(cerrors.CodeStoreWriteFailed, "insert hash set", err)
	}

	var setID int64
	lookup := "SELECT hash_set_id FROM hash_sets WHERE hash_set_name = " + m.d.Placeholder(1)
	if err := tx.QueryRowContext(ctx, lookup, name).Scan(&setID); err != nil {
		return cerrors.NewStoreError(cerrors.CodeStoreQueryFailed, "look up hash set", err)
	}

	link := m.d.InsertIgnore("hash_set_hits", "hash_set_id, event_id", placeholderList(m.d, 2))
	if _, err := tx.ExecContext(ctx, link, setID, eventID); err != nil {
		return cerrors.NewStoreError(cerrors.CodeStoreWriteFailed, "insert hash set hit", err)
	}
	return nil
}

// insertTagRow records one tag application. A duplicate application of the
// same tag name to the same event is silently ignored.
func (m *Manager) insertTagRow(ctx context.Context, tx *sql.Tx, eventID int64, tag types.Tag) error {
	insert := m.d.InsertIgnore("tags",
		"tag_id, tag_name_id, tag_name_display_name, event_id", placeholderList(m.d, 4))
	if _, err := tx.ExecContext(ctx, insert, tag.TagID, tag.TagNameID, tag.DisplayName, eventID); err != nil {
		return cerrors.NewStoreError(cerrors.CodeStoreWriteFailed, "insert tag", err)
	}
	return nil
}

// AddTag applies a tag to every event backed by the given content. A nil
// artifactID targets the events derived from the file itself; a non-nil one
// targets the events derived from that artifact. It returns the single-second
// time ranges of the tagged events keyed by event id, so callers know which
// parts of the timeline need refreshing.
func (m *Manager) AddTag(ctx context.Context, contentID int64, artifactID *int64, tag types.Tag) (tagged map[int64]types.TimeRange, err error) {
	started := time.Now()
	qid := uuid.New()
	defer func() { m.observe("AddTag", started, qid, err) }()

	m.db.AcquireWriteLock()
	defer m.db.ReleaseWriteLock()

	tx, err := m.db.BeginTx(ctx)
	if err != nil {
		return nil, cerrors.NewStoreError(cerrors.CodeTxFailed, "begin tag add", err)
	}
	defer tx.Rollback()

	tagged, err = m.matchingEventTimes(ctx, tx, contentID, artifactID)
	if err != nil {
		return nil, err
	}
	if len(tagged) == 0 {
		return tagged, nil
	}

	ids := make([]int64, 0, len(tagged))
	for id := range tagged {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	update := "UPDATE events SET tagged = 1 WHERE event_id IN (" + joinIDs(ids) + ")"
	if _, err = tx.ExecContext(ctx, update); err != nil {
		return nil, cerrors.NewStoreError(cerrors.CodeStoreWriteFailed, "mark events tagged", err)
	}
	for _, id := range ids {
		if err = m.insertTagRow(ctx, tx, id, tag); err != nil {
			return nil, err
		}
	}
	if err = tx.Commit(); err != nil {
		return nil, cerrors.NewStoreError(cerrors.CodeTxFailed, "commit tag add", err)
	}
	m.purgeStripeCache()
	return tagged, nil
}

// matchingEventTimes finds the events a tag operation targets and their
// single-second ranges.
func (m *Manager) matchingEventTimes(ctx context.Context, tx *sql.Tx, contentID int64, artifactID *int64) (map[int64]types.TimeRange, error) {
	query := "SELECT event_id, time FROM events WHERE file_id = " + m.d.Placeholder(1)
	args := []interface{}{contentID}
	if artifactID == nil {
		query += " AND artifact_id IS NULL"
	} else {
		query += " AND artifact_id = " + m.d.Placeholder(2)
		args = append(args, *artifactID)
	}

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, cerrors.NewStoreError(cerrors.CodeStoreQueryFailed, "find taggable events", err)
	}
	defer rows.Close()

	times := make(map[int64]types.TimeRange)
	for rows.Next() {
		var id, t int64
		if err := rows.Scan(&id, &t); err != nil {
			return nil, cerrors.NewQueryError("scan taggable event", err)
		}
		times[id] = types.TimeRange{Start: t, End: t + 1}
	}
	if err := rows.Err(); err != nil {
		return nil, cerrors.NewQueryError("iterate taggable events", err)
	}
	return times, nil
}

// DeleteTag removes the tag's applications and sets the given events' tagged
// flag to stillTagged, which the caller derives from whether other tags
// remain on the same content. Returns the event ids whose flag was written.
func (m *Manager) DeleteTag(ctx context.Context, eventIDs []int64, tagID int64, stillTagged bool) (updated []int64, err error) {
	started := time.Now()
	qid := uuid.New()
	defer func() { m.observe("DeleteTag", started, qid, err) }()

	m.db.AcquireWriteLock()
	defer m.db.ReleaseWriteLock()

	tx, err := m.db.BeginTx(ctx)
	if err != nil {
		return nil, cerrors.NewStoreError(cerrors.CodeTxFailed, "begin tag delete", err)
	}
	defer tx.Rollback()

	del := "DELETE FROM tags WHERE tag_id = " + m.d.Placeholder(1)
	if _, err = tx.ExecContext(ctx, del, tagID); err != nil {
		return nil, cerrors.NewStoreError(cerrors.CodeStoreWriteFailed, "delete tag", err)
	}

	if len(eventIDs) > 0 {
		update := fmt.Sprintf("UPDATE events SET tagged = %d WHERE event_id IN (%s)",
			boolFlag(stillTagged), joinIDs(eventIDs))
		if _, err = tx.ExecContext(ctx, update); err != nil {
			return nil, cerrors.NewStoreError(cerrors.CodeStoreWriteFailed, "update tagged flags", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, cerrors.NewStoreError(cerrors.CodeTxFailed, "commit tag delete", err)
	}
	m.purgeStripeCache()
	return eventIDs, nil
}

func boolFlag(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
