package router

import (
	"log/slog"
	"time"

	"github.com/hrygo/babywise/plugin/ai/aitime"
	"github.com/hrygo/babywise/plugin/ai/locale"
)

// Classifier evaluates an ordered rule list against a message.
// It holds no per-thread state and is safe for concurrent use.
type Classifier struct {
	timeService aitime.TimeService
	rules       []Rule
	domains     *DomainMatcher
}

// NewClassifier creates a classifier using the default rule order.
func NewClassifier(timeService aitime.TimeService) *Classifier {
	return NewClassifierWithRules(timeService, DefaultRules)
}

// NewClassifierWithRules creates a classifier with a custom rule order.
func NewClassifierWithRules(timeService aitime.TimeService, rules []Rule) *Classifier {
	if timeService == nil {
		timeService = aitime.NewParser(time.Local)
	}
	return &Classifier{
		timeService: timeService,
		rules:       rules,
		domains:     NewDomainMatcher(),
	}
}

// Classify classifies message against the time service's current instant.
func (c *Classifier) Classify(message, requestedLocale string) Result {
	return c.ClassifyAt(message, requestedLocale, c.timeService.Now())
}

// ClassifyAt classifies message. Event commands carry the parsed clock time
// anchored on now's day, or now itself when the message holds no time.
func (c *Classifier) ClassifyAt(message, requestedLocale string, now time.Time) Result {
	loc := locale.Normalize(requestedLocale, message)
	m := newMessage(message)

	for _, rule := range c.rules {
		result, ok := rule.Match(c, m, loc)
		if !ok {
			continue
		}
		result.Locale = loc
		result.Rule = rule.Name
		if _, isEvent := result.EventType(); isEvent {
			result.Time, result.HasTime = c.timeService.ParseTime(message, loc, now)
			if !result.HasTime {
				result.Time = now
			}
		}
		slog.Debug("message classified",
			"rule", rule.Name,
			"subtype", result.Subtype,
			"has_time", result.HasTime,
			"locale", loc,
		)
		return result
	}

	return Result{Kind: KindConversational, Locale: loc, Rule: "conversational"}
}

// SelectDomain picks the advice domain of message.
func (c *Classifier) SelectDomain(message string) Domain {
	return c.domains.Match(message)
}

var _ RouterService = (*Classifier)(nil)
