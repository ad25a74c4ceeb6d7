// Package aitime provides the time expression parser shared by the server
// command pipeline and the offline client.
package aitime

import "time"

// TimeService defines the time parsing interface consumed by the command classifier.
type TimeService interface {
	// ParseTime extracts an explicit clock time from fragment and anchors it on
	// the calendar day of reference, in reference's location.
	// Returns false when no recognizable time token is present.
	ParseTime(fragment, locale string, reference time.Time) (time.Time, bool)

	// HasTimeCue reports whether the message carries a time-like cue:
	// an explicit time token or a day-part word such as "morning".
	HasTimeCue(message string) bool

	// Now returns the reference instant used when no time is given.
	Now() time.Time
}

// Token is a time token found in free text.
type Token struct {
	Hour   int
	Minute int
	// Meridiem is "am", "pm" or empty.
	Meridiem string
	// Explicit is true for tokens with minutes or an am/pm marker.
	Explicit bool
	Start    int
	End      int
	Text     string
}
