package locale

import (
	"fmt"
	"time"

	"github.com/hrygo/babywise/plugin/ai/aitime"
	"github.com/hrygo/babywise/store"
)

type catalog struct {
	confirmations map[store.RoutineEventType]string
	help          string
	notEnoughData string
	localOnly     string
	adviceDown    string

	periodNames map[string]string
	header      string

	sleepTitle   string
	sleepCount   string
	sleepTotal   string
	noSleep      string
	ongoing      string
	feedingTitle string
	feedingCount string
	noFeeding    string

	hourUnit   string
	minuteUnit string
	dateLayout string
}

var english = &catalog{
	confirmations: map[store.RoutineEventType]string{
		store.RoutineEventSleepStart: "Recorded sleep start at %s",
		store.RoutineEventSleepEnd:   "Recorded wake up at %s",
		store.RoutineEventFeedStart:  "Recorded feeding start at %s",
		store.RoutineEventFeedEnd:    "Recorded feeding end at %s",
	},
	help: `How to use routine tracking:

1. Recording sleep:
   - "baby went to sleep at 9:30"
   - "woke up at 11:00"

2. Recording feeding:
   - "started feeding at 10:00"
   - "finished feeding at 10:20"

3. Getting summaries:
   - "show me today's summary"
   - "weekly summary"
`,
	notEnoughData: "Not enough data to generate a summary. Try recording some events first.",
	localOnly:     "_Showing data saved on this device only. It will sync when the connection is back._",
	adviceDown:    "I'm having trouble answering right now. Please try again in a moment.",

	periodNames: map[string]string{"day": "Today", "week": "This Week", "month": "This Month"},
	header:      "**Baby Routine Summary for %s**",

	sleepTitle:   "**Sleep:**",
	sleepCount:   "- Total sleep events: %d",
	sleepTotal:   "- Total sleep time: %s",
	noSleep:      "- No sleep recorded",
	ongoing:      "ongoing",
	feedingTitle: "**Feeding:**",
	feedingCount: "- Total feedings: %d",
	noFeeding:    "- No feedings recorded",

	hourUnit:   "h",
	minuteUnit: "m",
	dateLayout: "Jan 2",
}

var hebrew = &catalog{
	confirmations: map[store.RoutineEventType]string{
		store.RoutineEventSleepStart: "רשמתי שהתינוק התחיל לישון ב-%s",
		store.RoutineEventSleepEnd:   "רשמתי שהתינוק התעורר ב-%s",
		store.RoutineEventFeedStart:  "רשמתי שהתינוק התחיל לאכול ב-%s",
		store.RoutineEventFeedEnd:    "רשמתי שהתינוק סיים לאכול ב-%s",
	},
	help: `איך להשתמש במעקב שגרה:

1. רישום שינה:
   - "התינוק הלך לישון ב-9:30"
   - "התעורר ב-11:00"

2. רישום האכלה:
   - "התחיל לאכול ב-10:00"
   - "סיים לאכול ב-10:20"

3. בקשת סיכום:
   - "תראה לי סיכום של היום"
   - "סיכום שבועי"
`,
	notEnoughData: "אין מספיק נתונים כדי ליצור סיכום. נסה לתעד כמה אירועים קודם.",
	localOnly:     "_מוצגים נתונים השמורים במכשיר זה בלבד. הם יסונכרנו כשהחיבור יחזור._",
	adviceDown:    "אני מתקשה לענות כרגע. נסו שוב בעוד רגע.",

	periodNames: map[string]string{"day": "היום", "week": "שבוע", "month": "חודש"},
	header:      "**סיכום שגרת תינוק ל%s**",

	sleepTitle:   "**שינה:**",
	sleepCount:   "- סך הכל אירועי שינה: %d",
	sleepTotal:   "- סך הכל זמן שינה: %s",
	noSleep:      "- לא נרשמה שינה",
	ongoing:      "עדיין ישן",
	feedingTitle: "**האכלה:**",
	feedingCount: "- סך הכל האכלות: %d",
	noFeeding:    "- לא נרשמו האכלות",

	hourUnit:   "ש",
	minuteUnit: "ד",
	dateLayout: "02/01",
}

func catalogFor(locale string) *catalog {
	if locale == Hebrew {
		return hebrew
	}
	return english
}

// Confirmation is the reply to a recorded tracking command.
func Confirmation(eventType store.RoutineEventType, at time.Time, locale string) string {
	c := catalogFor(locale)
	format, ok := c.confirmations[eventType]
	if !ok {
		format = c.confirmations[store.RoutineEventSleepStart]
	}
	return fmt.Sprintf(format, aitime.FormatClock(at, locale))
}

// Help is the routine tracking usage text.
func Help(locale string) string {
	return catalogFor(locale).help
}

// NotEnoughData is shown when a summary period holds no events.
func NotEnoughData(locale string) string {
	return catalogFor(locale).notEnoughData
}

// LocalOnlyNotice marks a summary computed from unsynced local data.
func LocalOnlyNotice(locale string) string {
	return catalogFor(locale).localOnly
}

// AdviceUnavailable is the reply when no advice could be generated.
func AdviceUnavailable(locale string) string {
	return catalogFor(locale).adviceDown
}

// FormatDuration renders whole minutes as "1h 45m" or "1ש 45ד".
func FormatDuration(minutes int, locale string) string {
	c := catalogFor(locale)
	if minutes < 0 {
		minutes = 0
	}
	return fmt.Sprintf("%d%s %d%s", minutes/60, c.hourUnit, minutes%60, c.minuteUnit)
}
