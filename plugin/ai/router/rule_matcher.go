package router

import (
	"slices"
	"strings"
	"unicode"

	"github.com/hrygo/babywise/plugin/ai/summary"
)

// hebrewPrefixes are the clitics stripped before a Hebrew vocabulary lookup.
var hebrewPrefixes = []string{"כש", "וה", "ו", "ה", "ש", "ב", "ל", "מ"}

// message is a classified message split into lower-cased words.
type message struct {
	raw    string
	lower  string
	words  []string
	padded string
}

func newMessage(raw string) *message {
	lower := strings.ToLower(raw)
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
	return &message{
		raw:    raw,
		lower:  lower,
		words:  words,
		padded: " " + strings.Join(words, " ") + " ",
	}
}

// has reports whether the message contains term as a word or phrase.
func (m *message) has(term string) bool {
	if strings.Contains(term, " ") {
		return strings.Contains(m.padded, " "+term+" ")
	}
	for _, w := range m.words {
		if w == term {
			return true
		}
		for _, p := range hebrewPrefixes {
			if strings.HasPrefix(w, p) && strings.TrimPrefix(w, p) == term {
				return true
			}
		}
	}
	return false
}

func (m *message) hasAny(terms []string) bool {
	for _, term := range terms {
		if m.has(term) {
			return true
		}
	}
	return false
}

// without returns a copy of m with the given phrases removed.
func (m *message) without(phrases []string) *message {
	padded := m.padded
	for _, p := range phrases {
		padded = strings.ReplaceAll(padded, " "+p+" ", " ")
	}
	return newMessage(padded)
}

// isQuestion reports interrogative phrasing. Question words match exactly:
// "שמתי" must not read as "מתי".
func (m *message) isQuestion() bool {
	if strings.Contains(m.raw, "?") {
		return true
	}
	for _, w := range m.words {
		if slices.Contains(interrogativeWords, w) {
			return true
		}
	}
	return false
}

// Rule is one entry of the ordered classification list.
// Match returns false when the rule does not apply.
type Rule struct {
	Name  string
	Match func(c *Classifier, m *message, locale string) (Result, bool)
}

// DefaultRules is the classification order; the first matching rule wins.
var DefaultRules = []Rule{
	{Name: "summary", Match: matchSummary},
	{Name: "help", Match: matchHelp},
	{Name: "feeding", Match: matchFeeding},
	{Name: "sleep", Match: matchSleep},
}

// matchSummary fires on any summary keyword, regardless of time tokens.
func matchSummary(_ *Classifier, m *message, _ string) (Result, bool) {
	if !m.hasAny(summaryWords) {
		return Result{}, false
	}
	period := summary.PeriodDay
	switch {
	case m.hasAny(weekWords):
		period = summary.PeriodWeek
	case m.hasAny(monthWords):
		period = summary.PeriodMonth
	}
	return Result{Kind: KindCommand, Subtype: SubtypeSummary, Period: period}, true
}

func matchHelp(_ *Classifier, m *message, _ string) (Result, bool) {
	for _, p := range helpPatterns {
		if p.MatchString(m.raw) {
			return Result{Kind: KindCommand, Subtype: SubtypeHelp}, true
		}
	}
	return Result{}, false
}

// matchFeeding needs a feeding action, a time cue and non-question phrasing.
func matchFeeding(c *Classifier, m *message, _ string) (Result, bool) {
	if !m.hasAny(feedActionWords) {
		return Result{}, false
	}
	if !c.timeService.HasTimeCue(m.raw) || m.isQuestion() {
		return Result{}, false
	}
	subtype := SubtypeFeedStart
	if m.hasAny(feedEndWords) {
		subtype = SubtypeFeedEnd
	}
	return Result{Kind: KindCommand, Subtype: subtype}, true
}

// matchSleep accepts statements without a time. Start vocabulary is checked
// before end vocabulary, so a message carrying both records a sleep start.
func matchSleep(_ *Classifier, m *message, _ string) (Result, bool) {
	if m.isQuestion() {
		return Result{}, false
	}
	if m.without(sleepEndPhrases).hasAny(sleepStartWords) {
		return Result{Kind: KindCommand, Subtype: SubtypeSleepStart}, true
	}
	if m.hasAny(sleepEndPhrases) || m.hasAny(sleepEndWords) {
		return Result{Kind: KindCommand, Subtype: SubtypeSleepEnd}, true
	}
	return Result{}, false
}
