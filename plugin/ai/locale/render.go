package locale

import (
	"fmt"
	"strings"
	"time"

	"github.com/hrygo/babywise/plugin/ai/aitime"
	"github.com/hrygo/babywise/plugin/ai/summary"
)

// MaxListedEntries caps the per-section entry lines of a rendered summary.
const MaxListedEntries = 5

// RenderSummary renders s as markdown in locale, with times shown in loc.
func RenderSummary(s *summary.Summary, locale string, loc *time.Location) string {
	c := catalogFor(locale)
	if loc == nil {
		loc = time.Local
	}
	withDate := s.Period != summary.PeriodDay

	stamp := func(t time.Time) string {
		t = t.In(loc)
		clock := aitime.FormatClock(t, locale)
		if withDate {
			return t.Format(c.dateLayout) + " " + clock
		}
		return clock
	}

	var b strings.Builder
	fmt.Fprintf(&b, c.header, c.periodNames[string(s.Period)])
	b.WriteString("\n\n")

	b.WriteString(c.sleepTitle + "\n")
	fmt.Fprintf(&b, c.sleepCount+"\n", s.Sleep.Count)
	if s.Sleep.Count == 0 {
		b.WriteString(c.noSleep + "\n")
	} else {
		fmt.Fprintf(&b, c.sleepTotal+"\n", FormatDuration(s.Sleep.TotalDurationMinutes, locale))
		for _, interval := range lastN(s.Sleep.Intervals, MaxListedEntries) {
			if interval.IsOpen() {
				fmt.Fprintf(&b, "- %s - %s\n", stamp(interval.StartTime), c.ongoing)
				continue
			}
			fmt.Fprintf(&b, "- %s - %s (%s)\n",
				stamp(interval.StartTime),
				stamp(*interval.EndTime),
				FormatDuration(interval.DurationMinutes, locale),
			)
		}
	}

	b.WriteString("\n" + c.feedingTitle + "\n")
	fmt.Fprintf(&b, c.feedingCount+"\n", s.Feeding.Count)
	if s.Feeding.Count == 0 {
		b.WriteString(c.noFeeding + "\n")
	} else {
		for _, feeding := range lastN(s.Feeding.Events, MaxListedEntries) {
			fmt.Fprintf(&b, "- %s\n", stamp(feeding.StartTime))
		}
	}

	if s.IsEmpty() {
		b.WriteString("\n" + c.notEnoughData + "\n")
	}
	if s.Local {
		b.WriteString("\n" + c.localOnly + "\n")
	}
	return b.String()
}

func lastN[T any](items []T, n int) []T {
	if len(items) <= n {
		return items
	}
	return items[len(items)-n:]
}
