package types

import "fmt"

// TimeRange is a half-open interval [Start, End) in seconds since the Unix
// epoch. Query operations interpret a zero-width range [t, t) as the
// single-second range [t, t+1).
type TimeRange struct {
	Start int64
	End   int64
}

// NewTimeRange builds a range from two instants, swapping them if given out
// of order.
func NewTimeRange(start, end int64) TimeRange {
	if end < start {
		start, end = end, start
	}
	return TimeRange{Start: start, End: end}
}

// Duration returns the range's length in seconds.
func (r TimeRange) Duration() int64 { return r.End - r.Start }

// Widened returns the range with zero-width collapsed to one second. Ranges
// that already have width are returned unchanged.
func (r TimeRange) Widened() TimeRange {
	if r.Start == r.End {
		return TimeRange{Start: r.Start, End: r.End + 1}
	}
	return r
}

// Contains reports whether the instant t falls inside the range.
func (r TimeRange) Contains(t int64) bool {
	return t >= r.Start && t < r.End
}

// Union returns the smallest range covering both r and o.
func (r TimeRange) Union(o TimeRange) TimeRange {
	u := r
	if o.Start < u.Start {
		u.Start = o.Start
	}
	if o.End > u.End {
		u.End = o.End
	}
	return u
}

func (r TimeRange) String() string {
	return fmt.Sprintf("[%d, %d)", r.Start, r.End)
}

// Span is a closed interval [Start, End] in seconds since the Unix epoch,
// used for cluster and stripe extents. A span covering a single instant has
// Start == End.
type Span struct {
	Start int64
	End   int64
}

// Union returns the smallest span covering both s and o.
func (s Span) Union(o Span) Span {
	u := s
	if o.Start < u.Start {
		u.Start = o.Start
	}
	if o.End > u.End {
		u.End = o.End
	}
	return u
}

// GapTo returns the number of seconds between the end of s and the start of
// o. A result <= 0 means the spans overlap or abut.
func (s Span) GapTo(o Span) int64 {
	return o.Start - s.End
}

func (s Span) String() string {
	return fmt.Sprintf("[%d, %d]", s.Start, s.End)
}
