package offline

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/babywise/plugin/ai/locale"
	"github.com/hrygo/babywise/plugin/ai/router"
	"github.com/hrygo/babywise/plugin/ai/summary"
)

// Reply is the client's answer to one chat message.
type Reply struct {
	Text   string
	Locale string
	RTL    bool
	Result router.Result
	// Entry is the buffered event, for tracking commands.
	Entry *Entry
	// Local marks text produced without the server.
	Local bool
}

// Client handles chat messages on the device, using the same classifier and
// time parser as the server so a buffered event equals the one the server
// would have stored.
type Client struct {
	classifier router.RouterService
	buffer     *Buffer
	remote     Remote
	syncer     *Syncer
	loc        *time.Location
	now        func() time.Time
}

// NewClient creates an offline client. syncer may be nil.
func NewClient(classifier router.RouterService, buffer *Buffer, remote Remote, syncer *Syncer, loc *time.Location) *Client {
	if loc == nil {
		loc = time.Local
	}
	return &Client{
		classifier: classifier,
		buffer:     buffer,
		remote:     remote,
		syncer:     syncer,
		loc:        loc,
		now:        time.Now,
	}
}

// Handle classifies a message and answers it.
func (c *Client) Handle(ctx context.Context, threadID, message, requestedLocale string) (*Reply, error) {
	result := c.classifier.ClassifyAt(message, requestedLocale, c.now().In(c.loc))
	lang := result.Locale

	if !result.IsCommand() {
		return c.chat(ctx, threadID, message, result)
	}
	switch result.Subtype {
	case router.SubtypeHelp:
		return &Reply{Text: locale.Help(lang), Locale: lang, RTL: locale.IsRTL(lang), Result: result, Local: true}, nil
	case router.SubtypeSummary:
		reply, err := c.Summary(ctx, threadID, result.Period, lang)
		if err != nil {
			return nil, err
		}
		reply.Result = result
		return reply, nil
	default:
		return c.Capture(threadID, message, result)
	}
}

// Capture buffers the event of a tracking command and returns the confirmation.
func (c *Client) Capture(threadID, message string, result router.Result) (*Reply, error) {
	eventType, ok := result.EventType()
	if !ok {
		return nil, errors.Errorf("%q is not an event command", result.Subtype)
	}

	entry := &Entry{
		ThreadID:   threadID,
		EventType:  eventType,
		StartTime:  result.Time,
		Notes:      message,
		CapturedAt: c.now(),
	}
	if err := c.buffer.Add(entry); err != nil {
		return nil, errors.Wrap(err, "failed to buffer event")
	}
	if c.syncer != nil {
		c.syncer.Trigger()
	}

	return &Reply{
		Text:   locale.Confirmation(eventType, result.Time.In(c.loc), result.Locale),
		Locale: result.Locale,
		RTL:    locale.IsRTL(result.Locale),
		Result: result,
		Entry:  entry,
		Local:  true,
	}, nil
}

// Summary fetches the server summary, or reconciles the buffered unsynced
// entries locally when the server is unavailable.
func (c *Client) Summary(ctx context.Context, threadID string, period summary.Period, lang string) (*Reply, error) {
	remote, err := c.remote.Summary(ctx, threadID, period, lang)
	if err == nil {
		return &Reply{Text: remote.Text, Locale: lang, RTL: locale.IsRTL(lang)}, nil
	}
	if !errors.Is(err, ErrStoreUnavailable) {
		return nil, err
	}

	slog.Info("server unavailable, summarizing buffered events", "thread_id", threadID, "error", err)
	s := summary.Compute(threadID, c.buffer.Unsynced(threadID), period, c.now().In(c.loc))
	s.Local = true
	return &Reply{
		Text:   locale.RenderSummary(s, lang, c.loc),
		Locale: lang,
		RTL:    locale.IsRTL(lang),
		Local:  true,
	}, nil
}

func (c *Client) chat(ctx context.Context, threadID, message string, result router.Result) (*Reply, error) {
	lang := result.Locale
	text, err := c.remote.Chat(ctx, threadID, message, lang)
	local := false
	if err != nil {
		if !errors.Is(err, ErrStoreUnavailable) {
			return nil, err
		}
		text, local = locale.AdviceUnavailable(lang), true
	}
	return &Reply{Text: text, Locale: lang, RTL: locale.IsRTL(lang), Result: result, Local: local}, nil
}
