package advice

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/babywise/plugin/ai/locale"
	"github.com/hrygo/babywise/plugin/ai/router"
	"github.com/hrygo/babywise/plugin/ai/session"
	"github.com/hrygo/babywise/plugin/ai/timeout"
	"github.com/hrygo/babywise/server/ai"
)

// LLMGenerator generates advice with a chat completion model.
type LLMGenerator struct {
	client  ChatClient
	timeout time.Duration
}

// NewLLMGenerator creates an LLM backed advice generator.
func NewLLMGenerator(client ChatClient) *LLMGenerator {
	return &LLMGenerator{
		client:  client,
		timeout: timeout.AdviceTimeout,
	}
}

// Generate answers the latest user message with the conversation as history.
func (g *LLMGenerator) Generate(ctx context.Context, conversation *session.ConversationContext) (string, error) {
	if conversation == nil || conversation.LastUserMessage() == "" {
		return "", errors.New("conversation has no user message")
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	messages := BuildMessages(conversation)
	start := time.Now()
	reply, err := g.client.Chat(ctx, messages)
	if err != nil {
		slog.Warn("advice generation failed",
			"thread_id", conversation.ThreadID,
			"domain", conversation.Domain,
			"error", err)
		return "", errors.Wrap(ErrUnavailable, err.Error())
	}
	slog.Debug("advice generated",
		"thread_id", conversation.ThreadID,
		"domain", conversation.Domain,
		"messages", len(messages),
		"duration", time.Since(start))
	return reply, nil
}

// BuildMessages turns a conversation into the chat request: system prompt, then history.
func BuildMessages(conversation *session.ConversationContext) []ai.Message {
	lang := locale.Normalize(conversation.Locale, "")
	prompt := SystemPrompt(router.Domain(conversation.Domain), lang, conversation.Metadata)

	messages := make([]ai.Message, 0, len(conversation.Messages)+1)
	messages = append(messages, ai.Message{Role: session.RoleSystem, Content: prompt})
	for _, m := range conversation.Messages {
		if m.Role == session.RoleSystem {
			continue
		}
		messages = append(messages, ai.Message{Role: m.Role, Content: m.Content})
	}
	return messages
}

// FallbackGenerator answers with a localized "advice unavailable" notice.
// It is used when no model is configured.
type FallbackGenerator struct{}

func (FallbackGenerator) Generate(_ context.Context, conversation *session.ConversationContext) (string, error) {
	lang := locale.Default
	if conversation != nil {
		lang = conversation.Locale
	}
	return locale.AdviceUnavailable(lang), nil
}

var (
	_ AdviceGenerator = (*LLMGenerator)(nil)
	_ AdviceGenerator = FallbackGenerator{}
)
