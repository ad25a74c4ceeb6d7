package session

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
)

const (
	// MaxMessagesPerSession is the maximum number of messages to keep in a session.
	// This implements a sliding window to prevent unbounded growth.
	MaxMessagesPerSession = 20
)

// SessionRecovery loads or creates contexts and appends turns to them.
// Appends to the same thread are serialized.
type SessionRecovery struct {
	sessionSvc SessionService

	mu    sync.Mutex
	locks map[string]*threadLock
}

// threadLock is held by every in-flight call on a thread; the entry is dropped
// when the last holder releases it.
type threadLock struct {
	sync.Mutex
	refs int
}

// NewSessionRecovery creates a new session recovery handler.
func NewSessionRecovery(sessionSvc SessionService) *SessionRecovery {
	return &SessionRecovery{
		sessionSvc: sessionSvc,
		locks:      make(map[string]*threadLock),
	}
}

// RecoverSession returns the thread's context, creating an empty one if needed.
func (r *SessionRecovery) RecoverSession(ctx context.Context, threadID, locale string) (*ConversationContext, error) {
	existing, err := r.sessionSvc.LoadContext(ctx, threadID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load session")
	}
	if existing != nil {
		if locale != "" {
			existing.Locale = locale
		}
		if existing.Metadata == nil {
			existing.Metadata = make(map[string]any)
		}
		return existing, nil
	}

	now := time.Now().Unix()
	return &ConversationContext{
		ThreadID:  threadID,
		Locale:    locale,
		Messages:  make([]Message, 0, MaxMessagesPerSession),
		Metadata:  make(map[string]any),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// AppendMessages adds turns to the thread's context and saves it,
// keeping only the last MaxMessagesPerSession messages.
func (r *SessionRecovery) AppendMessages(ctx context.Context, threadID, locale string, msgs ...Message) (*ConversationContext, error) {
	return r.Update(ctx, threadID, locale, func(conversation *ConversationContext) {
		conversation.Messages = append(conversation.Messages, msgs...)
	})
}

// Update applies fn to the thread's context and saves it. Updates to the same
// thread are serialized, and the message window is enforced after fn runs.
func (r *SessionRecovery) Update(ctx context.Context, threadID, locale string, fn func(*ConversationContext)) (*ConversationContext, error) {
	unlock := r.lock(threadID)
	defer unlock()

	conversation, err := r.RecoverSession(ctx, threadID, locale)
	if err != nil {
		return nil, err
	}

	fn(conversation)
	if len(conversation.Messages) > MaxMessagesPerSession {
		conversation.Messages = conversation.Messages[len(conversation.Messages)-MaxMessagesPerSession:]
	}

	if err := r.sessionSvc.SaveContext(ctx, threadID, conversation); err != nil {
		return nil, errors.Wrap(err, "failed to save session")
	}
	return conversation, nil
}

// ResetSession drops the thread's context.
func (r *SessionRecovery) ResetSession(ctx context.Context, threadID string) error {
	unlock := r.lock(threadID)
	defer unlock()
	return r.sessionSvc.DeleteContext(ctx, threadID)
}

// lock acquires the thread's lock and returns its release func.
func (r *SessionRecovery) lock(threadID string) func() {
	r.mu.Lock()
	l, ok := r.locks[threadID]
	if !ok {
		l = &threadLock{}
		r.locks[threadID] = l
	}
	l.refs++
	r.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		r.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(r.locks, threadID)
		}
		r.mu.Unlock()
	}
}

func (r *SessionRecovery) lockCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.locks)
}
