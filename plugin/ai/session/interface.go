// Package session keeps per-thread conversation context for advice generation.
// Contexts live in the shared cache and expire after a period of inactivity.
package session

import "context"

// SessionService defines the conversation context store, keyed by thread.
type SessionService interface {
	// LoadContext loads the context of a thread, or nil when none exists.
	LoadContext(ctx context.Context, threadID string) (*ConversationContext, error)

	// SaveContext saves the context of a thread.
	SaveContext(ctx context.Context, threadID string, conversation *ConversationContext) error

	// DeleteContext drops the context of a thread.
	DeleteContext(ctx context.Context, threadID string) error
}

// ConversationContext is what the advice generator sees of a conversation.
type ConversationContext struct {
	ThreadID string    `json:"thread_id"`
	Locale   string    `json:"locale"`
	Domain   string    `json:"domain,omitempty"`
	Messages []Message `json:"messages"`
	// Metadata holds facts gathered along the conversation, such as the baby's age.
	Metadata  map[string]any `json:"metadata"`
	CreatedAt int64          `json:"created_at"`
	UpdatedAt int64          `json:"updated_at"`
}

// Message is one conversation turn.
type Message struct {
	Role    string `json:"role"` // "user" | "assistant" | "system"
	Content string `json:"content"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// LastUserMessage returns the most recent user turn, or "".
func (c *ConversationContext) LastUserMessage() string {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if c.Messages[i].Role == RoleUser {
			return c.Messages[i].Content
		}
	}
	return ""
}
