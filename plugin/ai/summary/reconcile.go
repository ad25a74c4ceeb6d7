package summary

import (
	"log/slog"
	"sort"
	"time"

	"github.com/hrygo/babywise/store"
)

// MaxSleepSpan bounds how far a sleep end may lie after the start it closes.
// A start whose nearest end is further away stays open.
const MaxSleepSpan = 24 * time.Hour

// Interval is a reconciled sleep span. EndTime is nil while the sleep is ongoing.
type Interval struct {
	StartTime       time.Time  `json:"start_time"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	DurationMinutes int        `json:"duration_minutes"`
}

// IsOpen reports whether the interval has no end yet.
func (i Interval) IsOpen() bool {
	return i.EndTime == nil
}

// SleepSummary aggregates the merged sleep intervals of a window.
type SleepSummary struct {
	Count                int        `json:"count"`
	TotalDurationMinutes int        `json:"total_duration_minutes"`
	Intervals            []Interval `json:"events"`
}

// FeedingEvent is a single counted feeding.
type FeedingEvent struct {
	StartTime time.Time `json:"start_time"`
}

// FeedingSummary counts feeding starts; feeding duration is not tracked.
type FeedingSummary struct {
	Count  int            `json:"count"`
	Events []FeedingEvent `json:"events"`
}

// ComputeSleepSummary reconciles the sleep events of a single thread whose start
// falls in [start, end] into non-overlapping intervals.
//
// Each start is paired with the nearest end strictly after it. Starts sharing an end
// collapse to one span from the earliest of them. Overlapping or touching spans are
// merged. Starts with no following end form a single open interval, and a start
// whose end lies beyond MaxSleepSpan forms an open interval of its own. Open
// intervals are counted but excluded from the total. Durations are truncated to
// whole minutes. Times are reported in the location of start.
func ComputeSleepSummary(events []*store.RoutineEvent, start, end time.Time) SleepSummary {
	loc := start.Location()
	var starts, ends []time.Time
	for _, event := range validEvents(events, start, end) {
		switch event.EventType {
		case store.RoutineEventSleepStart:
			starts = append(starts, event.StartTime().In(loc))
		case store.RoutineEventSleepEnd:
			ends = append(ends, event.StartTime().In(loc))
		}
	}
	sortTimes(starts)
	sortTimes(ends)

	// Earliest start per end instant.
	paired := make(map[int64]time.Time)
	var open *time.Time
	var stale []time.Time
	for _, s := range starts {
		idx := sort.Search(len(ends), func(i int) bool { return ends[i].After(s) })
		if idx == len(ends) {
			if open == nil {
				open = &s
			}
			continue
		}
		e := ends[idx]
		if e.Sub(s) > MaxSleepSpan {
			slog.Warn("sleep start has no end within a day, keeping it open",
				slog.Time("start", s),
				slog.Time("next_end", e),
			)
			stale = append(stale, s)
			continue
		}
		if earliest, ok := paired[e.UnixNano()]; !ok || s.Before(earliest) {
			paired[e.UnixNano()] = s
		}
	}

	var closed []Interval
	for endNano, s := range paired {
		e := time.Unix(0, endNano).In(loc)
		if !e.After(s) {
			continue
		}
		closed = append(closed, Interval{StartTime: s, EndTime: &e})
	}

	intervals := mergeIntervals(closed)
	result := SleepSummary{Intervals: make([]Interval, 0, len(intervals)+len(stale)+1)}
	for _, interval := range intervals {
		interval.DurationMinutes = int(interval.EndTime.Sub(interval.StartTime) / time.Minute)
		result.TotalDurationMinutes += interval.DurationMinutes
		result.Intervals = append(result.Intervals, interval)
	}
	for _, s := range stale {
		result.Intervals = append(result.Intervals, Interval{StartTime: s})
	}
	if open != nil {
		result.Intervals = append(result.Intervals, Interval{StartTime: *open})
	}
	sort.SliceStable(result.Intervals, func(i, j int) bool {
		return result.Intervals[i].StartTime.Before(result.Intervals[j].StartTime)
	})
	result.Count = len(result.Intervals)
	return result
}

// ComputeFeedingSummary counts every feed start whose time falls in [start, end].
func ComputeFeedingSummary(events []*store.RoutineEvent, start, end time.Time) FeedingSummary {
	result := FeedingSummary{Events: []FeedingEvent{}}
	for _, event := range validEvents(events, start, end) {
		if event.EventType != store.RoutineEventFeedStart {
			continue
		}
		result.Events = append(result.Events, FeedingEvent{StartTime: event.StartTime().In(start.Location())})
	}
	sort.Slice(result.Events, func(i, j int) bool {
		return result.Events[i].StartTime.Before(result.Events[j].StartTime)
	})
	result.Count = len(result.Events)
	return result
}

// mergeIntervals collapses overlapping or touching closed intervals.
func mergeIntervals(intervals []Interval) []Interval {
	if len(intervals) == 0 {
		return nil
	}
	sort.Slice(intervals, func(i, j int) bool {
		return intervals[i].StartTime.Before(intervals[j].StartTime)
	})

	merged := []Interval{intervals[0]}
	for _, next := range intervals[1:] {
		last := &merged[len(merged)-1]
		if next.StartTime.After(*last.EndTime) {
			merged = append(merged, next)
			continue
		}
		if next.EndTime.After(*last.EndTime) {
			last.EndTime = next.EndTime
		}
	}
	return merged
}

// validEvents drops malformed rows and rows outside [start, end].
func validEvents(events []*store.RoutineEvent, start, end time.Time) []*store.RoutineEvent {
	valid := make([]*store.RoutineEvent, 0, len(events))
	for _, event := range events {
		if event == nil {
			continue
		}
		if event.StartTs <= 0 || !event.EventType.IsValid() {
			slog.Warn("skipping malformed routine event",
				slog.Int("id", int(event.ID)),
				slog.String("thread_id", event.ThreadID),
				slog.String("event_type", string(event.EventType)),
				slog.Int64("start_ts", event.StartTs),
			)
			continue
		}
		at := event.StartTime()
		if at.Before(start) || at.After(end) {
			continue
		}
		valid = append(valid, event)
	}
	return valid
}

func sortTimes(times []time.Time) {
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
}
