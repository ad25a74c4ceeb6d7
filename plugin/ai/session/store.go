package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/babywise/store/cache"
)

// DefaultTTL is how long an idle conversation context is kept.
const DefaultTTL = 24 * time.Hour

// sessionStore implements SessionService on top of a cache.
type sessionStore struct {
	cache cache.Cache
	ttl   time.Duration
	now   func() time.Time
}

// NewSessionStore creates a cache backed session store.
func NewSessionStore(c cache.Cache, ttl time.Duration) SessionService {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &sessionStore{
		cache: c,
		ttl:   ttl,
		now:   time.Now,
	}
}

// LoadContext loads the conversation context.
func (s *sessionStore) LoadContext(ctx context.Context, threadID string) (*ConversationContext, error) {
	data, ok := s.cache.Get(ctx, cache.SessionKey(threadID))
	if !ok {
		return nil, nil
	}

	var conversation ConversationContext
	if err := json.Unmarshal(data, &conversation); err != nil {
		// A corrupt entry starts a fresh conversation rather than failing the chat.
		slog.Warn("failed to unmarshal cached context", "thread_id", threadID, "error", err)
		return nil, nil
	}
	return &conversation, nil
}

// SaveContext saves the conversation context.
func (s *sessionStore) SaveContext(ctx context.Context, threadID string, conversation *ConversationContext) error {
	now := s.now().Unix()
	if conversation.CreatedAt == 0 {
		conversation.CreatedAt = now
	}
	conversation.UpdatedAt = now
	conversation.ThreadID = threadID

	data, err := json.Marshal(conversation)
	if err != nil {
		return errors.Wrap(err, "failed to marshal context")
	}
	if err := s.cache.Set(ctx, cache.SessionKey(threadID), data, s.ttl); err != nil {
		return errors.Wrap(err, "failed to save context")
	}
	return nil
}

// DeleteContext deletes a conversation context.
func (s *sessionStore) DeleteContext(ctx context.Context, threadID string) error {
	if err := s.cache.Invalidate(ctx, cache.SessionKey(threadID)); err != nil {
		return errors.Wrap(err, "failed to delete context")
	}
	return nil
}

// Ensure sessionStore implements SessionService
var _ SessionService = (*sessionStore)(nil)
