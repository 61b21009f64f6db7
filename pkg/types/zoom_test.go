package types

import (
	"testing"
	"time"
)

func TestUnitForSpanThresholds(t *testing.T) {
	cases := []struct {
		span int64
		want TimeUnit
	}{
		{10 * 365 * secondsPerDay, UnitYears},
		{4 * 365 * secondsPerDay, UnitYears},
		{6 * 30 * secondsPerDay, UnitMonths},
		{30 * secondsPerDay, UnitDays},
		{2 * secondsPerDay, UnitHours},
		{4 * secondsPerHour, UnitHours},
		{30 * secondsPerMinute, UnitMinutes},
		{90, UnitSeconds},
		{1, UnitSeconds},
		{0, UnitSeconds},
	}
	for _, tc := range cases {
		if got := UnitForSpan(tc.span); got != tc.want {
			t.Errorf("UnitForSpan(%d) = %v, want %v", tc.span, got, tc.want)
		}
	}
}

func TestPeriodFromIsCalendarAware(t *testing.T) {
	march1 := time.Date(2019, time.March, 1, 0, 0, 0, 0, time.UTC).Unix()
	if got := UnitMonths.PeriodFrom(march1); got != 31*secondsPerDay {
		t.Errorf("month from March 1 = %d seconds, want 31 days", got)
	}
	feb1 := time.Date(2019, time.February, 1, 0, 0, 0, 0, time.UTC).Unix()
	if got := UnitMonths.PeriodFrom(feb1); got != 28*secondsPerDay {
		t.Errorf("month from Feb 1 2019 = %d seconds, want 28 days", got)
	}
	leapJan1 := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC).Unix()
	if got := UnitYears.PeriodFrom(leapJan1); got != 366*secondsPerDay {
		t.Errorf("year from Jan 1 2020 = %d seconds, want 366 days", got)
	}
	anyInstant := time.Date(2021, time.July, 14, 9, 30, 0, 0, time.UTC).Unix()
	if got := UnitHours.PeriodFrom(anyInstant); got != secondsPerHour {
		t.Errorf("hour period = %d seconds, want %d", got, secondsPerHour)
	}
}
