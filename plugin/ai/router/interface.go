// Package router classifies chat messages into routine tracking commands or
// conversational queries. It is shared by the server and the offline client so
// both derive the same event from the same message.
package router

import (
	"time"

	"github.com/hrygo/babywise/plugin/ai/summary"
	"github.com/hrygo/babywise/store"
)

// RouterService defines the classification interface consumed by the chat layer.
type RouterService interface {
	// Classify decides what message asks for, reading "now" from the time service.
	Classify(message, locale string) Result

	// ClassifyAt is Classify against an explicit reference instant.
	ClassifyAt(message, locale string, now time.Time) Result

	// SelectDomain picks the advice domain of a conversational message.
	SelectDomain(message string) Domain
}

// Kind separates tracking commands from conversational queries.
type Kind string

const (
	KindCommand        Kind = "command"
	KindConversational Kind = "conversational"
)

// Subtype is the tracking command a message maps to.
type Subtype string

const (
	SubtypeSleepStart Subtype = Subtype(store.RoutineEventSleepStart)
	SubtypeSleepEnd   Subtype = Subtype(store.RoutineEventSleepEnd)
	SubtypeFeedStart  Subtype = Subtype(store.RoutineEventFeedStart)
	SubtypeFeedEnd    Subtype = Subtype(store.RoutineEventFeedEnd)
	SubtypeSummary    Subtype = "summary"
	SubtypeHelp       Subtype = "help"
)

// Result is the outcome of classifying one message.
type Result struct {
	Kind    Kind    `json:"kind"`
	Subtype Subtype `json:"subtype,omitempty"`
	// Time is the event instant: the parsed clock time, or "now" when none was given.
	Time time.Time `json:"time,omitempty"`
	// HasTime is true when Time was parsed from the message.
	HasTime bool           `json:"has_time"`
	Period  summary.Period `json:"period,omitempty"`
	Locale  string         `json:"locale"`
	// Rule names the rule that matched.
	Rule string `json:"rule"`
}

// IsCommand reports whether the message is a tracking command.
func (r Result) IsCommand() bool {
	return r.Kind == KindCommand
}

// EventType returns the routine event a command records, if any.
func (r Result) EventType() (store.RoutineEventType, bool) {
	if r.Kind != KindCommand {
		return "", false
	}
	t := store.RoutineEventType(r.Subtype)
	return t, t.IsValid()
}

// Domain is the advice area of a conversational query.
type Domain string

const (
	DomainSleep       Domain = "sleep"
	DomainFeeding     Domain = "feeding"
	DomainHealth      Domain = "health"
	DomainDevelopment Domain = "development"
	DomainSafety      Domain = "safety"
	DomainGeneral     Domain = "general"
)
