package router

import "regexp"

// Vocabularies are matched per word; Hebrew words also match behind the
// one-letter prefixes ו/ה/ש/ב/ל/מ/כש. Entries with a space match as phrases.

var summaryWords = []string{
	"summary", "summaries", "report", "stats", "statistics", "overview", "recap",
	"סיכום", "סיכומים", "דוח", "סקירה", "סטטיסטיקה", "נתונים",
}

var weekWords = []string{"week", "weekly", "week's", "שבוע", "שבועי", "שבועית"}

var monthWords = []string{"month", "monthly", "month's", "חודש", "חודשי", "חודשית"}

var helpPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\s*/?help\s*[!?.]*\s*$`),
	regexp.MustCompile(`(?i)\bhelp\s+(?:me\s+)?(?:with\s+)?(?:tracking|commands|routines?|logging)\b`),
	regexp.MustCompile(`(?i)\b(?:how|explain)\b.*\b(?:track|log|record)\b`),
	regexp.MustCompile(`(?i)\b(?:what|which)\s+(?:tracking\s+|routine\s+)?commands\b`),
	regexp.MustCompile(`^\s*עזרה\s*[!?.]*\s*$`),
	regexp.MustCompile(`עזרה\s+(?:עם\s+|ב)?(?:מעקב|פקודות|שגרה|רישום)`),
	regexp.MustCompile(`(?:איך|הסבר)\s.*(?:לעקוב|לרשום|לתעד)`),
	regexp.MustCompile(`(?:אילו|איזה|מה)\s+(?:ה)?פקודות`),
}

var interrogativeWords = []string{
	"how", "when", "what", "why", "where", "which", "should", "can", "could",
	"כמה", "מתי", "איך", "למה", "איפה", "מדוע", "האם",
}

var feedActionWords = []string{
	"fed", "feed", "feeding", "feeds", "nursed", "nursing", "breastfed", "breastfeeding",
	"bottle", "bottled", "ate", "eating", "formula",
	"האכלתי", "האכלנו", "האכילה", "האכיל", "האכלה", "הנקתי", "הנקה", "הניקה",
	"בקבוק", "אכל", "אכלה", "אוכל", "אוכלת", "לאכול", "להאכיל", "להניק",
	"מאכיל", "מאכילה", "יונק", "יונקת", "ינק", "ינקה",
}

var feedEndWords = []string{
	"finished", "stopped", "done", "ended", "completed",
	"סיים", "סיימה", "סיימתי", "סיימנו", "גמר", "גמרה", "הפסיק", "הפסיקה", "הפסקתי",
	"הסתיימה", "הסתיים", "נגמרה", "נגמר",
}

var sleepStartWords = []string{
	"sleep", "sleeping", "asleep", "nap", "napping", "bed", "bedtime", "dozed",
	"ישן", "ישנה", "נרדם", "נרדמה", "נרדמו", "לישון", "שינה", "תנומה", "נמנם", "נמנמה",
}

// sleepEndPhrases contain start vocabulary but close a sleep.
var sleepEndPhrases = []string{
	"stopped sleeping", "finished sleeping", "stopped napping", "finished napping",
	"done sleeping", "done napping", "up from nap", "up from his nap", "up from her nap",
	"סיים לישון", "סיימה לישון", "הפסיק לישון", "הפסיקה לישון",
}

var sleepEndWords = []string{
	"woke", "wake", "wakes", "awake", "awoke", "woken", "waking", "got up",
	"התעורר", "התעוררה", "התעוררו", "ער", "ערה", "קם", "קמה",
}
