package summary

import (
	"strings"
	"time"
)

// Period is the span a summary covers.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

// ParsePeriod maps a period name to a Period, defaulting to day.
func ParsePeriod(s string) Period {
	switch Period(strings.ToLower(strings.TrimSpace(s))) {
	case PeriodWeek:
		return PeriodWeek
	case PeriodMonth:
		return PeriodMonth
	default:
		return PeriodDay
	}
}

// Window returns the inclusive bounds of the period containing now, in now's location.
//
//	day:   local midnight to the last nanosecond of the day
//	week:  Monday 00:00 to now
//	month: the 1st 00:00 to now
func Window(period Period, now time.Time) (time.Time, time.Time) {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch period {
	case PeriodWeek:
		offset := (int(now.Weekday()) + 6) % 7
		return midnight.AddDate(0, 0, -offset), now
	case PeriodMonth:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()), now
	default:
		return midnight, midnight.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
}
