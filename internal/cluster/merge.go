// Package cluster implements the lock-free merge phases that turn bucketed
// query rows into the stripe hierarchy: an explicit grouping pass, a
// gap-tolerant adjacency merge within each group, and the cross-bucket
// consolidation of each group into one stripe.
package cluster

import (
	"sort"

	"github.com/chronolith/chronolith/pkg/types"
)

// groupKey is the identity clusters must share to merge: the event type and
// the description, both at the granularity the query asked for.
type groupKey struct {
	eventType   types.EventType
	description string
}

// Group partitions clusters by (type, description), preserving first-seen
// group order. Every input cluster lands in exactly one group.
func Group(clusters []types.EventCluster) [][]types.EventCluster {
	index := make(map[groupKey]int)
	var groups [][]types.EventCluster
	for _, c := range clusters {
		key := groupKey{eventType: c.Type, description: c.Description}
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], c)
	}
	return groups
}

// MergeAdjacent folds one group's clusters in span-start order, merging the
// next cluster into the running one when their spans overlap or the gap
// between them is at most one divisor-th of the bucket period, the period
// measured from the instant the gap starts. All clusters must share one
// (type, description) key; a divisor below one is treated as one.
func MergeAdjacent(group []types.EventCluster, unit types.TimeUnit, divisor int64) []types.EventCluster {
	if len(group) == 0 {
		return nil
	}
	if divisor < 1 {
		divisor = 1
	}
	sorted := make([]types.EventCluster, len(group))
	copy(sorted, group)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Span.Start != sorted[j].Span.Start {
			return sorted[i].Span.Start < sorted[j].Span.Start
		}
		return sorted[i].Span.End < sorted[j].Span.End
	})

	out := make([]types.EventCluster, 0, len(sorted))
	current := sorted[0]
	for _, next := range sorted[1:] {
		gap := current.Span.GapTo(next.Span)
		if gap <= 0 || gap <= unit.PeriodFrom(current.Span.End)/divisor {
			current = current.Merge(next)
		} else {
			out = append(out, current)
			current = next
		}
	}
	return append(out, current)
}

// Assemble runs the full in-memory pipeline: group the raw clusters, merge
// near-adjacent ones within each group, consolidate each group into a single
// stripe, and order the stripes by span start with type ordinal and
// description as tie-breaks so equal inputs always assemble equal outputs.
func Assemble(clusters []types.EventCluster, unit types.TimeUnit, divisor int64) []types.EventStripe {
	groups := Group(clusters)
	stripes := make([]types.EventStripe, 0, len(groups))
	for _, group := range groups {
		merged := MergeAdjacent(group, unit, divisor)
		stripe := types.StripeOf(merged[0])
		for _, c := range merged[1:] {
			stripe = stripe.Merge(types.StripeOf(c))
		}
		stripes = append(stripes, stripe)
	}
	sort.SliceStable(stripes, func(i, j int) bool {
		a, b := stripes[i], stripes[j]
		if a.Span.Start != b.Span.Start {
			return a.Span.Start < b.Span.Start
		}
		if a.Type.Ordinal() != b.Type.Ordinal() {
			return a.Type.Ordinal() < b.Type.Ordinal()
		}
		return a.Description < b.Description
	})
	return stripes
}
