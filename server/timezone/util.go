// Package timezone resolves the reference zone of the server clock and parses
// the date filters accepted by the API.
//
// Stored timestamps are UTC seconds; every day boundary (summary windows,
// analytics days, date filters) is computed in the configured zone.
package timezone

import (
	"fmt"
	"strings"
	"time"
)

// Default location constants
var (
	// UTC is the coordinated universal time timezone
	UTC = time.UTC

	// Local is the local timezone
	Local = time.Local
)

// ParseTimezone parses an IANA timezone identifier (e.g., "Asia/Jerusalem").
// "Local" selects the host zone. If the timezone is invalid, returns UTC and an error.
func ParseTimezone(tz string) (*time.Location, error) {
	switch tz {
	case "", TimezoneUTC:
		return UTC, nil
	case TimezoneLocal:
		return Local, nil
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		return UTC, fmt.Errorf("invalid timezone %q: %w", tz, err)
	}

	return loc, nil
}

// IsValidTimezone checks if a timezone identifier is valid.
func IsValidTimezone(tz string) bool {
	_, err := ParseTimezone(tz)
	return err == nil
}

// ToUserTimezone converts a Unix timestamp to the user's timezone.
func ToUserTimezone(ts int64, tz *time.Location) time.Time {
	if tz == nil {
		tz = UTC
	}
	return time.Unix(ts, 0).In(tz)
}

// StartOfDay returns the start of the day (00:00:00) in the given timezone.
func StartOfDay(t time.Time, tz *time.Location) time.Time {
	if tz == nil {
		tz = UTC
	}
	t = t.In(tz)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, tz)
}

// EndOfDay returns the end of the day (23:59:59.999999999) in the given timezone.
func EndOfDay(t time.Time, tz *time.Location) time.Time {
	if tz == nil {
		tz = UTC
	}
	t = t.In(tz)
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 999999999, tz)
}

// ParseDateBound parses an RFC 3339 instant or a YYYY-MM-DD date in tz.
// A bare date is the start of that day, or its end when end is true.
func ParseDateBound(value string, tz *time.Location, end bool) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	if tz == nil {
		tz = UTC
	}
	day, err := time.ParseInLocation(time.DateOnly, value, tz)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD or RFC 3339", value)
	}
	if end {
		return EndOfDay(day, tz), nil
	}
	return day, nil
}

// Common timezone constants
const (
	// TimezoneUTC is the UTC timezone identifier
	TimezoneUTC = "UTC"

	// TimezoneLocal selects the host timezone
	TimezoneLocal = "Local"

	// TimezoneAsiaJerusalem is the Israel timezone
	TimezoneAsiaJerusalem = "Asia/Jerusalem"
)
