// Package summary reconciles stored routine events into sleep and feeding summaries.
// It is a pure computation shared by the server and the offline client.
package summary

import (
	"time"

	"github.com/hrygo/babywise/store"
)

// Summary is the reconciled routine report of one thread over one period.
type Summary struct {
	ThreadID    string         `json:"thread_id"`
	Period      Period         `json:"period"`
	PeriodStart time.Time      `json:"period_start"`
	PeriodEnd   time.Time      `json:"period_end"`
	Sleep       SleepSummary   `json:"sleep"`
	Feeding     FeedingSummary `json:"feeding"`
	// Local marks a summary computed from the offline buffer only.
	Local bool `json:"local,omitempty"`
}

// IsEmpty reports whether neither sleep nor feeding was recorded.
func (s *Summary) IsEmpty() bool {
	return s.Sleep.Count == 0 && s.Feeding.Count == 0
}

// Compute builds the summary of threadID for the period containing now.
// Events of other threads are ignored.
func Compute(threadID string, events []*store.RoutineEvent, period Period, now time.Time) *Summary {
	start, end := Window(period, now)
	return ComputeWindow(threadID, events, period, start, end)
}

// ComputeWindow builds the summary of threadID over [start, end].
func ComputeWindow(threadID string, events []*store.RoutineEvent, period Period, start, end time.Time) *Summary {
	own := make([]*store.RoutineEvent, 0, len(events))
	for _, event := range events {
		if event != nil && event.ThreadID == threadID {
			own = append(own, event)
		}
	}
	return &Summary{
		ThreadID:    threadID,
		Period:      period,
		PeriodStart: start,
		PeriodEnd:   end,
		Sleep:       ComputeSleepSummary(own, start, end),
		Feeding:     ComputeFeedingSummary(own, start, end),
	}
}

// DailyStats is one day of routine analytics.
type DailyStats struct {
	Date         string `json:"date"`
	SleepMinutes int    `json:"sleep_minutes"`
	SleepCount   int    `json:"sleep_count"`
	FeedingCount int    `json:"feeding_count"`
}

// Analytics aggregates per-day statistics over several days.
type Analytics struct {
	ThreadID            string       `json:"thread_id"`
	Days                []DailyStats `json:"days"`
	AverageSleepMinutes float64      `json:"average_sleep_minutes"`
	AverageFeedings     float64      `json:"average_feedings"`
}

// ComputeAnalytics splits the events into the last days calendar days ending with
// now's day and reconciles each day on its own.
func ComputeAnalytics(threadID string, sleepEvents, feedingEvents []*store.RoutineEvent, days int, now time.Time) *Analytics {
	if days <= 0 {
		days = 7
	}
	result := &Analytics{ThreadID: threadID, Days: make([]DailyStats, 0, days)}
	today, _ := Window(PeriodDay, now)

	var sleepTotal, feedTotal int
	for i := days - 1; i >= 0; i-- {
		dayStart := today.AddDate(0, 0, -i)
		dayEnd := dayStart.AddDate(0, 0, 1).Add(-time.Nanosecond)
		sleep := ComputeSleepSummary(sleepEvents, dayStart, dayEnd)
		feeding := ComputeFeedingSummary(feedingEvents, dayStart, dayEnd)
		result.Days = append(result.Days, DailyStats{
			Date:         dayStart.Format(time.DateOnly),
			SleepMinutes: sleep.TotalDurationMinutes,
			SleepCount:   sleep.Count,
			FeedingCount: feeding.Count,
		})
		sleepTotal += sleep.TotalDurationMinutes
		feedTotal += feeding.Count
	}
	result.AverageSleepMinutes = float64(sleepTotal) / float64(days)
	result.AverageFeedings = float64(feedTotal) / float64(days)
	return result
}
