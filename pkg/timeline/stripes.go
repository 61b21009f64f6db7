package timeline

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/chronolith/chronolith/internal/cluster"
	cerrors "github.com/chronolith/chronolith/internal/errors"
	"github.com/chronolith/chronolith/internal/schema"
	"github.com/chronolith/chronolith/internal/sqlcond"
	"github.com/chronolith/chronolith/internal/stripecache"
	"github.com/chronolith/chronolith/pkg/filter"
	"github.com/chronolith/chronolith/pkg/types"
)

// ZoomParams describes one zoomed view of the timeline: the visible range,
// the filter, and the granularities to aggregate at.
type ZoomParams struct {
	Range            types.TimeRange
	Filter           *filter.RootFilter
	TypeLevel        types.TypeLevel
	DescriptionLevel types.DescriptionLevel
}

// EventStripes computes the zoomed aggregation of the filtered events in the
// range. Events are bucketed by the unit the range's span implies and grouped
// by type and description at the requested granularities; adjacent clusters
// with small gaps are merged, and everything sharing a (type, description)
// pair folds into one stripe. Identical queries are served from the stripe
// cache until the next write.
func (m *Manager) EventStripes(ctx context.Context, params ZoomParams) (stripes []types.EventStripe, err error) {
	started := time.Now()
	qid := uuid.New()
	defer func() { m.observe("EventStripes", started, qid, err) }()

	r := params.Range.Widened()
	cond := sqlcond.Compile(params.Filter, m.d)
	m.recordFilterKinds(cond)
	unit := types.UnitForSpan(r.Duration())

	var key stripecache.Key
	if m.cache != nil {
		key = m.stripeKey(r, cond, unit, params)
		if blob, ok := m.cache.Get(key); ok {
			stripes, err = decodeStripes(blob)
			if err == nil {
				m.logger.Printf("[INFO] timeline: stripes query %s served from cache (%d stripes)",
					qid, len(stripes))
				return stripes, nil
			}
			m.logger.Printf("[WARN] timeline: recomputing undecodable stripe cache entry: %v", err)
			err = nil
		}
	}

	clusters, err := m.queryClusters(ctx, r, cond, unit, params)
	if err != nil {
		return nil, err
	}

	stripes = cluster.Assemble(clusters, unit, m.cfg.MergeGapDivisor)

	if m.cache != nil {
		blob, encErr := encodeStripes(params.TypeLevel, stripes)
		if encErr != nil {
			m.logger.Printf("[WARN] timeline: failed to encode stripes for cache: %v", encErr)
		} else {
			m.cache.Put(key, blob)
		}
	}

	m.logger.Printf("[INFO] timeline: stripes query %s aggregated %d clusters into %d stripes (%s buckets) in %s",
		qid, len(clusters), len(stripes), unit, time.Since(started))
	return stripes, nil
}

// stripeKey derives the cache key for a stripes query. Everything that can
// change the result participates, including the dialect and the merge
// tolerance.
func (m *Manager) stripeKey(r types.TimeRange, cond sqlcond.Condition, unit types.TimeUnit, params ZoomParams) stripecache.Key {
	return stripecache.KeyOf(
		m.d.Name(),
		cond.Where,
		strconv.FormatBool(cond.JoinTags),
		strconv.FormatBool(cond.JoinHashHits),
		strconv.FormatInt(r.Start, 10),
		strconv.FormatInt(r.End, 10),
		strconv.Itoa(int(params.TypeLevel)),
		strconv.Itoa(int(params.DescriptionLevel)),
		strconv.Itoa(int(unit)),
		strconv.FormatInt(m.cfg.MergeGapDivisor, 10),
	)
}

// queryClusters runs the bucketing query and scans one proto-cluster per
// (bucket, type, description) group. The store lock is held only here; the
// in-memory merge phases work on the returned slice.
func (m *Manager) queryClusters(ctx context.Context, r types.TimeRange, cond sqlcond.Condition, unit types.TimeUnit, params ZoomParams) ([]types.EventCluster, error) {
	typeColumn := schema.TypeColumn(params.TypeLevel)
	descColumn := schema.DescriptionColumn(params.DescriptionLevel)

	idExpr := "CAST(events.event_id AS VARCHAR)"
	query := "SELECT " + m.d.BucketExpr("time", unit) + " AS bucket, " +
		m.d.GroupConcat(idExpr, ",") + " AS event_ids, " +
		m.d.GroupConcat("CASE WHEN hash_hit = 1 THEN "+idExpr+" END", ",") + " AS hash_hit_ids, " +
		m.d.GroupConcat("CASE WHEN tagged = 1 THEN "+idExpr+" END", ",") + " AS tagged_ids, " +
		"Min(time) AS min_time, Max(time) AS max_time, " +
		typeColumn + ", " + descColumn +
		" FROM events" + joinClause(cond) +
		" WHERE " + timeCondition(r) + " AND " + cond.Where +
		" GROUP BY bucket, " + typeColumn + ", " + descColumn +
		" ORDER BY min_time"

	m.db.AcquireReadLock()
	defer m.db.ReleaseReadLock()

	rows, err := m.db.Reader().QueryContext(ctx, query)
	if err != nil {
		return nil, cerrors.NewStoreError(cerrors.CodeStoreQueryFailed, "get event clusters", err)
	}
	defer rows.Close()

	var clusters []types.EventCluster
	for rows.Next() {
		c, err := scanCluster(rows, params)
		if err != nil {
			return nil, err
		}
		if c != nil {
			clusters = append(clusters, *c)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, cerrors.NewQueryError("iterate event clusters", err)
	}
	return clusters, nil
}

// scanCluster scans one bucket group. Groups whose type column is NULL are
// skipped; they cannot be attributed at the requested granularity.
func scanCluster(rows *sql.Rows, params ZoomParams) (*types.EventCluster, error) {
	var (
		bucket  sql.NullString
		idsCat  sql.NullString
		hashCat sql.NullString
		tagCat  sql.NullString
		minTime int64
		maxTime int64
		ordinal sql.NullInt64
		desc    sql.NullString
	)
	err := rows.Scan(&bucket, &idsCat, &hashCat, &tagCat, &minTime, &maxTime, &ordinal, &desc)
	if err != nil {
		return nil, cerrors.NewQueryError("scan event cluster", err)
	}
	if !ordinal.Valid {
		return nil, nil
	}
	et, ok := typeFromOrdinal(params.TypeLevel, int(ordinal.Int64))
	if !ok {
		return nil, cerrors.New(cerrors.CategoryInternal, cerrors.CodeUnexpected,
			fmt.Sprintf("unknown %s type ordinal %d", params.TypeLevel, ordinal.Int64))
	}

	ids, err := parseGroupIDs(idsCat.String)
	if err != nil {
		return nil, err
	}
	hashIDs, err := parseGroupIDs(hashCat.String)
	if err != nil {
		return nil, err
	}
	tagIDs, err := parseGroupIDs(tagCat.String)
	if err != nil {
		return nil, err
	}

	return &types.EventCluster{
		Type:        et,
		Description: desc.String,
		Level:       params.DescriptionLevel,
		Span:        types.Span{Start: minTime, End: maxTime},
		EventIDs:    ids,
		HashHitIDs:  hashIDs,
		TaggedIDs:   tagIDs,
	}, nil
}

// parseGroupIDs decodes a group-concat id payload into a sorted slice free
// of duplicates. Membership joins can repeat an id within one group; the
// cluster id sets deduplicate.
func parseGroupIDs(payload string) ([]int64, error) {
	if payload == "" {
		return nil, nil
	}
	parts := strings.Split(payload, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, cerrors.Wrap(cerrors.CategoryInternal, cerrors.CodeGroupDecodeFailed,
				"parse cluster event id", err)
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := ids[:1]
	for _, id := range ids[1:] {
		if id != out[len(out)-1] {
			out = append(out, id)
		}
	}
	return out, nil
}

// The cached form flattens EventType to its ordinal; the envelope remembers
// the level so decoding rebuilds the right implementation.
type cachedEnvelope struct {
	TypeLevel types.TypeLevel `json:"type_level"`
	Stripes   []cachedStripe  `json:"stripes"`
}

type cachedStripe struct {
	Type        int                    `json:"type"`
	Description string                 `json:"description"`
	Level       types.DescriptionLevel `json:"level"`
	Span        types.Span             `json:"span"`
	EventIDs    []int64                `json:"event_ids,omitempty"`
	HashHitIDs  []int64                `json:"hash_hit_ids,omitempty"`
	TaggedIDs   []int64                `json:"tagged_ids,omitempty"`
	Clusters    []cachedCluster        `json:"clusters"`
}

type cachedCluster struct {
	Type        int                    `json:"type"`
	Description string                 `json:"description"`
	Level       types.DescriptionLevel `json:"level"`
	Span        types.Span             `json:"span"`
	EventIDs    []int64                `json:"event_ids,omitempty"`
	HashHitIDs  []int64                `json:"hash_hit_ids,omitempty"`
	TaggedIDs   []int64                `json:"tagged_ids,omitempty"`
}

func encodeStripes(level types.TypeLevel, stripes []types.EventStripe) ([]byte, error) {
	env := cachedEnvelope{TypeLevel: level, Stripes: make([]cachedStripe, len(stripes))}
	for i, s := range stripes {
		cs := cachedStripe{
			Type:        s.Type.Ordinal(),
			Description: s.Description,
			Level:       s.Level,
			Span:        s.Span,
			EventIDs:    s.EventIDs,
			HashHitIDs:  s.HashHitIDs,
			TaggedIDs:   s.TaggedIDs,
			Clusters:    make([]cachedCluster, len(s.Clusters)),
		}
		for j, c := range s.Clusters {
			cs.Clusters[j] = cachedCluster{
				Type:        c.Type.Ordinal(),
				Description: c.Description,
				Level:       c.Level,
				Span:        c.Span,
				EventIDs:    c.EventIDs,
				HashHitIDs:  c.HashHitIDs,
				TaggedIDs:   c.TaggedIDs,
			}
		}
		env.Stripes[i] = cs
	}
	return json.Marshal(env)
}

func decodeStripes(blob []byte) ([]types.EventStripe, error) {
	var env cachedEnvelope
	if err := json.Unmarshal(blob, &env); err != nil {
		return nil, err
	}
	stripes := make([]types.EventStripe, len(env.Stripes))
	for i, cs := range env.Stripes {
		et, ok := typeFromOrdinal(env.TypeLevel, cs.Type)
		if !ok {
			return nil, fmt.Errorf("cached stripe has unknown type ordinal %d", cs.Type)
		}
		s := types.EventStripe{
			Type:        et,
			Description: cs.Description,
			Level:       cs.Level,
			Span:        cs.Span,
			EventIDs:    cs.EventIDs,
			HashHitIDs:  cs.HashHitIDs,
			TaggedIDs:   cs.TaggedIDs,
			Clusters:    make([]types.EventCluster, len(cs.Clusters)),
		}
		for j, cc := range cs.Clusters {
			cet, ok := typeFromOrdinal(env.TypeLevel, cc.Type)
			if !ok {
				return nil, fmt.Errorf("cached cluster has unknown type ordinal %d", cc.Type)
			}
			s.Clusters[j] = types.EventCluster{
				Type:        cet,
				Description: cc.Description,
				Level:       cc.Level,
				Span:        cc.Span,
				EventIDs:    cc.EventIDs,
				HashHitIDs:  cc.HashHitIDs,
				TaggedIDs:   cc.TaggedIDs,
			}
		}
		stripes[i] = s
	}
	return stripes, nil
}
