package aitime

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Patterns for time parsing
var (
	// 8, 08:30, 8:30pm, 8 a.m., 20:30
	clockPattern = regexp.MustCompile(`(?i)(\d+)(?::(\d+))?(?:\s*(a\.m\.?|p\.m\.?|am|pm))?`)

	// Hebrew script detection
	hebrewPattern = regexp.MustCompile(`[\x{0590}-\x{05FF}]`)
)

// cueWords introduce a bare hour ("at 8", "ב-8", "בשעה 8").
var cueWords = map[string]bool{
	"at": true, "@": true, "around": true, "about": true, "since": true,
	"by": true, "till": true, "until": true, "approx": true,
	"ב": true, "מ": true, "בשעה": true, "בסביבות": true, "סביבות": true,
	"מאז": true, "עד": true, "משעה": true,
}

// eveningWords shift a bare morning hour into the afternoon/evening.
var eveningWords = []string{"evening", "tonight", "afternoon", "בערב", "אחר הצהריים", "אחה\"צ"}

// dayPartWords are time-like cues that are never turned into a clock time.
var dayPartWords = []string{
	"morning", "afternoon", "evening", "night", "tonight", "noon", "midnight",
	"בוקר", "צהריים", "ערב", "לילה", "אחר הצהריים",
}

// Parser parses explicit clock times out of free text.
type Parser struct {
	timezone *time.Location
	now      func() time.Time
}

// NewParser creates a new time parser with the given timezone.
func NewParser(timezone *time.Location) *Parser {
	if timezone == nil {
		timezone = time.Local
	}
	return &Parser{
		timezone: timezone,
		now:      time.Now,
	}
}

// WithClock returns a new parser that reads "now" from the given clock.
func (p *Parser) WithClock(now func() time.Time) *Parser {
	return &Parser{
		timezone: p.timezone,
		now:      now,
	}
}

// Now returns the current instant in the parser's timezone.
func (p *Parser) Now() time.Time {
	return p.now().In(p.timezone)
}

// Location returns the parser's timezone.
func (p *Parser) Location() *time.Location {
	return p.timezone
}

// Parse parses fragment against today in the parser's timezone.
func (p *Parser) Parse(fragment, locale string) (time.Time, bool) {
	return p.ParseTime(fragment, locale, p.Now())
}

// ParseTime extracts the best time token from fragment and places it on the
// calendar day of reference. A time earlier than reference is not moved to
// the next day.
func (p *Parser) ParseTime(fragment, locale string, reference time.Time) (time.Time, bool) {
	tok, ok := FindToken(fragment)
	if !ok {
		return time.Time{}, false
	}

	hour := resolveHour(tok, fragment, locale)
	return time.Date(reference.Year(), reference.Month(), reference.Day(), hour, tok.Minute, 0, 0, reference.Location()), true
}

// HasTimeCue reports whether message carries a time token or a day-part word.
func (p *Parser) HasTimeCue(message string) bool {
	if _, ok := FindToken(message); ok {
		return true
	}
	lower := strings.ToLower(message)
	for _, w := range dayPartWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// IsHebrew reports whether s contains Hebrew script.
func IsHebrew(s string) bool {
	return hebrewPattern.MatchString(s)
}

// FindToken returns the most specific time token in s.
// Tokens carrying minutes or an am/pm marker win over bare hours; among
// tokens of equal rank the leftmost wins.
func FindToken(s string) (Token, bool) {
	tokens := FindTokens(s)
	if len(tokens) == 0 {
		return Token{}, false
	}
	for _, tok := range tokens {
		if tok.Explicit {
			return tok, true
		}
	}
	return tokens[0], true
}

// FindTokens returns every valid time token in s, left to right.
func FindTokens(s string) []Token {
	var tokens []Token
	for _, m := range clockPattern.FindAllStringSubmatchIndex(s, -1) {
		if tok, ok := buildToken(s, m); ok {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

func buildToken(s string, m []int) (Token, bool) {
	hourText := s[m[2]:m[3]]
	if len(hourText) > 2 {
		return Token{}, false
	}
	hour, _ := strconv.Atoi(hourText)

	end := m[3]
	minute, hasMinute := 0, false
	if m[4] >= 0 {
		minuteText := s[m[4]:m[5]]
		if len(minuteText) != 2 {
			return Token{}, false
		}
		minute, _ = strconv.Atoi(minuteText)
		if minute > 59 {
			return Token{}, false
		}
		hasMinute = true
		end = m[5]
	}

	meridiem := ""
	if m[6] >= 0 && !letterAt(s, m[7]) {
		meridiem = strings.ReplaceAll(strings.ToLower(s[m[6]:m[7]]), ".", "")
		end = m[7]
	}

	// "3rd", "2kg": digits glued to a word are not times.
	if meridiem == "" && letterAt(s, end) {
		return Token{}, false
	}
	// "10:30:15", "1/2"
	if m[2] > 0 && strings.ContainsRune(":/", rune(s[m[2]-1])) {
		return Token{}, false
	}

	switch {
	case meridiem != "" && (hour < 1 || hour > 12):
		return Token{}, false
	case hour > 23:
		return Token{}, false
	}

	explicit := hasMinute || meridiem != ""
	if !explicit && !hasCue(s[:m[2]]) {
		return Token{}, false
	}

	return Token{
		Hour:     hour,
		Minute:   minute,
		Meridiem: meridiem,
		Explicit: explicit,
		Start:    m[2],
		End:      end,
		Text:     s[m[2]:end],
	}, true
}

// resolveHour converts a token to a 0-23 hour.
func resolveHour(tok Token, message, locale string) int {
	switch tok.Meridiem {
	case "am":
		if tok.Hour == 12 {
			return 0
		}
		return tok.Hour
	case "pm":
		if tok.Hour < 12 {
			return tok.Hour + 12
		}
		return tok.Hour
	}

	// Hebrew users write 24-hour times, so bare hours are taken literally.
	if Uses24Hour(locale) || tok.Hour == 0 || tok.Hour >= 12 {
		return tok.Hour
	}
	lower := strings.ToLower(message)
	for _, w := range eveningWords {
		if strings.Contains(lower, w) {
			return tok.Hour + 12
		}
	}
	return tok.Hour
}

// hasCue reports whether the text before a bare number ends with a cue word.
func hasCue(prefix string) bool {
	prefix = strings.TrimRightFunc(prefix, unicode.IsSpace)
	prefix = strings.TrimRight(prefix, "-־")
	word := prefix
	if i := strings.LastIndexFunc(prefix, unicode.IsSpace); i >= 0 {
		word = prefix[i+1:]
	}
	// "ב14" and "ב-14" both leave the bare prefix letter as the last word.
	return cueWords[strings.ToLower(word)]
}

func letterAt(s string, i int) bool {
	if i >= len(s) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return unicode.IsLetter(r)
}

var _ TimeService = (*Parser)(nil)
