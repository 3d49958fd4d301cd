package session

import (
	"container/list"
	"context"
	"log"
	"sync"
	"time"

	"github.com/murmurware/voice-relay/backend/internal/model/chat"
)

// DefaultMaxSessions bounds the store when no explicit cap is configured.
const DefaultMaxSessions = 256

// Store holds per-session transcripts in memory. Sessions are created lazily
// on first append and evicted least-recently-used once the cap is reached, so
// the process never grows without bound.
type Store struct {
	mu       sync.RWMutex
	max      int
	sessions map[string]*entry
	order    *list.List // front = most recently appended
}

type entry struct {
	meta  chat.Session
	turns []chat.Turn
	elem  *list.Element
}

// NewStore bootstraps the in-memory session store.
func NewStore(maxSessions int) *Store {
	if maxSessions < 1 {
		maxSessions = DefaultMaxSessions
	}
	return &Store{
		max:      maxSessions,
		sessions: make(map[string]*entry),
		order:    list.New(),
	}
}

// Append adds a turn to the named session, creating the session if absent.
// Appends always succeed; turns within a session keep strict append order.
func (s *Store) Append(_ context.Context, sessionID string, role chat.Role, text string) {
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[sessionID]
	if !ok {
		e = &entry{
			meta:  chat.Session{ID: sessionID, CreatedAt: now},
			turns: make([]chat.Turn, 0, 16),
		}
		e.elem = s.order.PushFront(sessionID)
		s.sessions[sessionID] = e
		s.evictLocked()
	} else {
		s.order.MoveToFront(e.elem)
	}

	e.meta.LastUsedAt = now
	e.turns = append(e.turns, chat.Turn{Role: role, Text: text, CreatedAt: now})
}

// History returns a copy of the session's ordered transcript. Unknown
// sessions yield an empty slice, never an error.
func (s *Store) History(_ context.Context, sessionID string) []chat.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.sessions[sessionID]
	if !ok {
		return []chat.Turn{}
	}

	copied := make([]chat.Turn, len(e.turns))
	copy(copied, e.turns)
	return copied
}

// Session returns stored metadata for the given session.
func (s *Store) Session(_ context.Context, sessionID string) (chat.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.sessions[sessionID]
	if !ok {
		return chat.Session{}, false
	}
	return e.meta, true
}

// Len reports how many sessions are currently held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// evictLocked drops least-recently-appended sessions past the cap.
// Caller must hold the write lock.
func (s *Store) evictLocked() {
	for len(s.sessions) > s.max {
		oldest := s.order.Back()
		if oldest == nil {
			return
		}
		id := oldest.Value.(string)
		s.order.Remove(oldest)
		delete(s.sessions, id)
		log.Printf("[session] evicted session=%s (cap=%d)", id, s.max)
	}
}
