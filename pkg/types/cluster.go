package types

import "sort"

// EventCluster is a time-bounded group of events sharing one type and one
// description at the granularities a zoomed query asked for. The id slices
// are sorted and free of duplicates.
type EventCluster struct {
	Type        EventType
	Description string
	Level       DescriptionLevel
	Span        Span
	EventIDs    []int64
	HashHitIDs  []int64
	TaggedIDs   []int64
}

// SameGroup reports whether two clusters share the grouping key a merge
// requires.
func (c EventCluster) SameGroup(o EventCluster) bool {
	return c.Type == o.Type && c.Description == o.Description
}

// Count returns the number of events in the cluster.
func (c EventCluster) Count() int { return len(c.EventIDs) }

// Merge combines two clusters of the same type and description into one
// whose span and id sets cover both. Merge is commutative and associative.
// It panics when the clusters disagree on type or description; callers
// group before merging.
func (c EventCluster) Merge(o EventCluster) EventCluster {
	if !c.SameGroup(o) {
		panic("types: merging event clusters from different groups")
	}
	return EventCluster{
		Type:        c.Type,
		Description: c.Description,
		Level:       c.Level,
		Span:        c.Span.Union(o.Span),
		EventIDs:    unionSorted(c.EventIDs, o.EventIDs),
		HashHitIDs:  unionSorted(c.HashHitIDs, o.HashHitIDs),
		TaggedIDs:   unionSorted(c.TaggedIDs, o.TaggedIDs),
	}
}

// EventStripe is the cross-bucket aggregation of every cluster sharing one
// (type, description) pair. Its span is the union of its clusters' spans
// and Clusters holds the members ordered by span start.
type EventStripe struct {
	Type        EventType
	Description string
	Level       DescriptionLevel
	Span        Span
	EventIDs    []int64
	HashHitIDs  []int64
	TaggedIDs   []int64
	Clusters    []EventCluster
}

// StripeOf lifts a single cluster into a stripe containing just it.
func StripeOf(c EventCluster) EventStripe {
	return EventStripe{
		Type:        c.Type,
		Description: c.Description,
		Level:       c.Level,
		Span:        c.Span,
		EventIDs:    c.EventIDs,
		HashHitIDs:  c.HashHitIDs,
		TaggedIDs:   c.TaggedIDs,
		Clusters:    []EventCluster{c},
	}
}

// SameGroup reports whether two stripes share the grouping key a merge
// requires.
func (s EventStripe) SameGroup(o EventStripe) bool {
	return s.Type == o.Type && s.Description == o.Description
}

// Count returns the number of events in the stripe.
func (s EventStripe) Count() int { return len(s.EventIDs) }

// Merge combines two stripes of the same type and description. The result
// is independent of merge order up to the ordering of Clusters, which is
// re-sorted by span start. It panics when the stripes disagree on type or
// description.
func (s EventStripe) Merge(o EventStripe) EventStripe {
	if !s.SameGroup(o) {
		panic("types: merging event stripes from different groups")
	}
	clusters := make([]EventCluster, 0, len(s.Clusters)+len(o.Clusters))
	clusters = append(clusters, s.Clusters...)
	clusters = append(clusters, o.Clusters...)
	sort.SliceStable(clusters, func(i, j int) bool {
		return clusters[i].Span.Start < clusters[j].Span.Start
	})
	return EventStripe{
		Type:        s.Type,
		Description: s.Description,
		Level:       s.Level,
		Span:        s.Span.Union(o.Span),
		EventIDs:    unionSorted(s.EventIDs, o.EventIDs),
		HashHitIDs:  unionSorted(s.HashHitIDs, o.HashHitIDs),
		TaggedIDs:   unionSorted(s.TaggedIDs, o.TaggedIDs),
		Clusters:    clusters,
	}
}

// unionSorted merges two sorted id slices into a new sorted slice without
// duplicates. Inputs that are unsorted are tolerated at the cost of a sort.
func unionSorted(a, b []int64) []int64 {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	out := make([]int64, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	dedup := out[:1]
	for _, id := range out[1:] {
		if id != dedup[len(dedup)-1] {
			dedup = append(dedup, id)
		}
	}
	return dedup
}
