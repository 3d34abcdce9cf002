// Package session keeps the in-memory, per-user state of the assistant:
// the context documents and the running conversation.
package session

import (
	"sort"
	"sync"

	"notedesk/internal/chat"
	"notedesk/internal/docctx"
)

// Session is the state of one user. Both fields are safe for concurrent
// use on their own.
type Session struct {
	UserID string
	Docs   *docctx.Store
	Chat   *chat.Conversation
}

// Registry creates sessions lazily, one per user id.
type Registry struct {
	completer chat.Completer

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry binds new conversations to completer.
func NewRegistry(completer chat.Completer) *Registry {
	return &Registry{
		completer: completer,
		sessions:  make(map[string]*Session),
	}
}

// Get returns the session of userID, creating it on first use.
func (r *Registry) Get(userID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[userID]
	if !ok {
		s = &Session{
			UserID: userID,
			Docs:   docctx.New(),
			Chat:   chat.NewConversation(r.completer),
		}
		r.sessions[userID] = s
	}
	return s
}

// Drop forgets a user's session.
func (r *Registry) Drop(userID string) {
	r.mu.Lock()
	delete(r.sessions, userID)
	r.mu.Unlock()
}

// Users lists user ids with a live session, sorted.
func (r *Registry) Users() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
