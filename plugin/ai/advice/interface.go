// Package advice answers conversational parenting questions.
// The chat layer only decides whether to call it; what is said is up to the generator.
package advice

import (
	"context"

	"github.com/pkg/errors"

	"github.com/hrygo/babywise/plugin/ai/session"
	"github.com/hrygo/babywise/server/ai"
)

// ErrUnavailable reports that no advice could be produced.
var ErrUnavailable = errors.New("advice generator unavailable")

// AdviceGenerator produces advice text for a conversation.
type AdviceGenerator interface {
	Generate(ctx context.Context, conversation *session.ConversationContext) (string, error)
}

// ChatClient is the completion capability the LLM generator consumes.
type ChatClient interface {
	Chat(ctx context.Context, messages []ai.Message) (string, error)
}
