// Package docctx holds the per-session set of documents a user can hand to
// the chat assistant as context, plus the currently selected one.
package docctx

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Type classifies a context document.
type Type string

const (
	TypeNote    Type = "note"
	TypeTask    Type = "task"
	TypePage    Type = "page"
	TypeMeeting Type = "meeting"
)

// Valid reports whether t is one of the known document types.
func (t Type) Valid() bool {
	switch t {
	case TypeNote, TypeTask, TypePage, TypeMeeting:
		return true
	}
	return false
}

// DefaultRecentLimit is used by RecentDocuments when limit <= 0.
const DefaultRecentLimit = 5

// Document is a piece of text that may be injected into a chat request.
type Document struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Type        Type      `json:"type"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// Context is the resolved active document together with the string sent
// to the completion endpoint.
type Context struct {
	Document Document
	Text     string
}

// Store is safe for concurrent use. The zero value is not usable; call New.
type Store struct {
	mu        sync.RWMutex
	docs      []Document
	currentID string
}

func New() *Store {
	return &Store{docs: make([]Document, 0)}
}

// Add appends doc. Titles may repeat; ids are expected to be unique.
// Adding does not change the current selection.
func (s *Store) Add(doc Document) {
	s.mu.Lock()
	s.docs = append(s.docs, doc)
	s.mu.Unlock()
}

// Put replaces any document with doc's id by doc, appended last.
func (s *Store) Put(doc Document) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeLocked(doc.ID)
	s.docs = append(s.docs, doc)
}

// Remove deletes every document with the given id. Missing ids are a no-op.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(id)
}

func (s *Store) removeLocked(id string) {
	kept := s.docs[:0]
	for _, d := range s.docs {
		if d.ID != id {
			kept = append(kept, d)
		}
	}
	s.docs = kept
}

// Documents returns a copy in insertion order.
func (s *Store) Documents() []Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Document, len(s.docs))
	copy(out, s.docs)
	return out
}

// ByID matches id exactly.
func (s *Store) ByID(id string) (Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byIDLocked(id)
}

func (s *Store) byIDLocked(id string) (Document, bool) {
	for _, d := range s.docs {
		if d.ID == id {
			return d, true
		}
	}
	return Document{}, false
}

// ByTitle matches title case-insensitively and returns the first hit.
func (s *Store) ByTitle(title string) (Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, d := range s.docs {
		if strings.EqualFold(d.Title, title) {
			return d, true
		}
	}
	return Document{}, false
}

// RecentDocuments returns up to limit documents, newest LastUpdated first.
func (s *Store) RecentDocuments(limit int) []Document {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	out := s.Documents()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastUpdated.After(out[j].LastUpdated)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// SetCurrent selects id as the active context. An empty id clears the
// selection. Existence is checked only when the context is read.
func (s *Store) SetCurrent(id string) {
	s.mu.Lock()
	s.currentID = id
	s.mu.Unlock()
}

// CurrentID returns the raw selection, which may point at a removed document.
func (s *Store) CurrentID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentID
}

// CurrentContext resolves the selection. ok is false when nothing is
// selected or the selected document no longer exists.
func (s *Store) CurrentContext() (Context, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.currentID == "" {
		return Context{}, false
	}
	doc, ok := s.byIDLocked(s.currentID)
	if !ok {
		return Context{}, false
	}
	return Context{Document: doc, Text: Format(doc)}, true
}

// GetCurrentContext returns only the formatted context string, or "" when
// there is no usable selection.
func (s *Store) GetCurrentContext() string {
	c, ok := s.CurrentContext()
	if !ok {
		return ""
	}
	return c.Text
}

// Format renders doc as "<title> (<type>)\n\n<content>".
func Format(doc Document) string {
	return fmt.Sprintf("%s (%s)\n\n%s", doc.Title, doc.Type, doc.Content)
}
