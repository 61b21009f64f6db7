package types

// CombinedEvent folds together every event that shares an instant, a full
// description, and backing content, keeping one representative event id per
// sub-type. A single file touched at one instant by several timestamp kinds
// surfaces as one combined event rather than several near-identical rows.
type CombinedEvent struct {
	Time            int64
	FullDescription string
	ContentID       int64
	// Events maps each sub-type present at this instant to a
	// representative event id of that sub-type.
	Events map[SubType]int64
}
