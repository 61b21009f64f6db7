package types

import "time"

// TimeUnit is the bucket granularity implied by a queried range's span.
// Finer units have larger values, so units compare with < and >.
type TimeUnit int

const (
	UnitYears TimeUnit = iota
	UnitMonths
	UnitDays
	UnitHours
	UnitMinutes
	UnitSeconds
)

var timeUnitNames = [...]string{
	UnitYears:   "years",
	UnitMonths:  "months",
	UnitDays:    "days",
	UnitHours:   "hours",
	UnitMinutes: "minutes",
	UnitSeconds: "seconds",
}

func (u TimeUnit) String() string {
	if u < 0 || int(u) >= len(timeUnitNames) {
		return "invalid"
	}
	return timeUnitNames[u]
}

const (
	secondsPerMinute = 60
	secondsPerHour   = 60 * secondsPerMinute
	secondsPerDay    = 24 * secondsPerHour
)

// UnitForSpan derives the bucket granularity for a range spanning the given
// number of seconds. The mapping is monotonic: a wider span never yields a
// finer unit. Thresholds sit at three of the next-coarser unit so a zoomed
// view always has a handful of buckets to show.
func UnitForSpan(spanSeconds int64) TimeUnit {
	switch {
	case spanSeconds > 3*365*secondsPerDay:
		return UnitYears
	case spanSeconds > 3*30*secondsPerDay:
		return UnitMonths
	case spanSeconds > 3*secondsPerDay:
		return UnitDays
	case spanSeconds > 3*secondsPerHour:
		return UnitHours
	case spanSeconds > 3*secondsPerMinute:
		return UnitMinutes
	default:
		return UnitSeconds
	}
}

// PeriodFrom returns the duration in seconds of one unit anchored at the
// given instant. The result is calendar-aware: one month from March 1 is 31
// days, one year from January 1 of a leap year is 366 days.
func (u TimeUnit) PeriodFrom(start int64) int64 {
	t := time.Unix(start, 0).UTC()
	var next time.Time
	switch u {
	case UnitYears:
		next = t.AddDate(1, 0, 0)
	case UnitMonths:
		next = t.AddDate(0, 1, 0)
	case UnitDays:
		next = t.AddDate(0, 0, 1)
	case UnitHours:
		next = t.Add(time.Hour)
	case UnitMinutes:
		next = t.Add(time.Minute)
	default:
		next = t.Add(time.Second)
	}
	return next.Unix() - start
}
