package aitime

import (
	"strings"
	"time"
)

// FormatClock renders t the way users of locale write clock times:
// 24-hour for Hebrew, 12-hour with an AM/PM marker otherwise.
func FormatClock(t time.Time, locale string) string {
	if Uses24Hour(locale) {
		return t.Format("15:04")
	}
	return t.Format("3:04 PM")
}

// Uses24Hour reports whether locale writes times in 24-hour form.
func Uses24Hour(locale string) bool {
	return strings.HasPrefix(strings.ToLower(locale), "he")
}
