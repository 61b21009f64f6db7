// Package types holds the timeline data model: events, the two-level type
// hierarchy, time ranges and zoom units, and the cluster/stripe aggregates.
package types

// KnownState describes how an event's backing content scored against the
// case's hash databases. The numeric values are persisted in the events
// table and must not be reordered.
type KnownState int

const (
	// KnownUnknown means the content matched no hash database.
	KnownUnknown KnownState = iota
	// KnownGood means the content matched a known-good hash database.
	KnownGood
	// KnownBad means the content matched a notable hash database.
	KnownBad
)

// String returns a human-readable label for the state.
func (k KnownState) String() string {
	switch k {
	case KnownUnknown:
		return "unknown"
	case KnownGood:
		return "known"
	case KnownBad:
		return "known bad"
	default:
		return "invalid"
	}
}

// Valid reports whether k is one of the defined states.
func (k KnownState) Valid() bool {
	return k >= KnownUnknown && k <= KnownBad
}

// DescriptionLevel selects one of the three description granularities an
// event carries. Full is the most specific, short the most aggregated.
type DescriptionLevel int

const (
	DescriptionFull DescriptionLevel = iota
	DescriptionMedium
	DescriptionShort
)

// String returns the level name.
func (l DescriptionLevel) String() string {
	switch l {
	case DescriptionFull:
		return "full"
	case DescriptionMedium:
		return "medium"
	case DescriptionShort:
		return "short"
	default:
		return "invalid"
	}
}

// Event is a single timeline event as stored. Events are immutable once
// read; the write paths produce new values.
//
// ContentID identifies the backing file or object in the host case.
// ArtifactID is nil for events derived directly from file metadata and
// non-nil for events derived from an analysis artifact.
type Event struct {
	ID               int64
	DataSourceID     int64
	ContentID        int64
	ArtifactID       *int64
	Time             int64 // seconds since the Unix epoch
	Type             SubType
	FullDescription  string
	MedDescription   string
	ShortDescription string
	Known            KnownState
	HashHit          bool
	Tagged           bool
}

// Description returns the event's description at the requested granularity.
func (e *Event) Description(level DescriptionLevel) string {
	switch level {
	case DescriptionShort:
		return e.ShortDescription
	case DescriptionMedium:
		return e.MedDescription
	default:
		return e.FullDescription
	}
}

// Tag is a host-assigned annotation on an event's backing content. TagID
// identifies the concrete tag instance, TagNameID the tag definition it was
// created from.
type Tag struct {
	TagID       int64
	TagNameID   int64
	DisplayName string
}

// TagCount is one row of a tag-name frequency summary.
type TagCount struct {
	TagNameID   int64
	DisplayName string
	Count       int64
}
