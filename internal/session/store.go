// Package session keeps the per-conversation mutable state of the engine.
// Each chat identity owns one Session; the Store serializes access per key so
// events for the same conversation never interleave while conversations stay
// independent of each other.
package session

import (
	"container/list"
	"log/slog"
	"sync"

	"storagebot/core/logger"
	"storagebot/internal/flow"
)

// Session is the typed scratch space of one conversation.
type Session struct {
	// State tracks the rental flow step.
	State flow.State
	// UTMSource holds the referring-campaign tag captured at first contact.
	// It is consumed at the first completed flow and never set again.
	UTMSource string
	// Draft is the in-progress rental payload.
	Draft flow.Draft
	// CurrentBoxID references the box last opened from the box list.
	CurrentBoxID int64
	// AwaitingPhone routes the next free-text message into Draft.Phone.
	AwaitingPhone bool
	// AwaitingAddress routes the next free-text message into Draft.Address.
	AwaitingAddress bool
}

// BeginFlow resets the draft and collection flags for a fresh rental flow,
// discarding whatever a prior completed or abandoned flow left behind.
func (s *Session) BeginFlow() {
	s.Draft = flow.NewDraft()
	s.State = flow.StateIdle
	s.AwaitingPhone = false
	s.AwaitingAddress = false
}

// FinishFlow clears the consumed draft after a completed flow.
func (s *Session) FinishFlow() {
	s.Draft = flow.Draft{}
	s.State = flow.StateIdle
	s.AwaitingPhone = false
	s.AwaitingAddress = false
}

type entry struct {
	sess *Session
	mu   sync.Mutex
	elem *list.Element
	refs int
}

// Store owns the sessions of all live conversations. Capacity is bounded:
// least-recently-used conversations are evicted once the cap is exceeded, so
// abandoned flows do not grow memory for the life of the process.
type Store struct {
	mu      sync.Mutex
	cap     int
	entries map[int64]*entry
	lru     *list.List // front = most recently used; values are chat ids
}

// NewStore creates a Store bounded to maxSessions conversations.
func NewStore(maxSessions int) *Store {
	if maxSessions <= 0 {
		maxSessions = 8192
	}
	return &Store{
		cap:     maxSessions,
		entries: make(map[int64]*entry),
		lru:     list.New(),
	}
}

// Acquire returns the session for a chat with its per-key lock held. The
// returned release function must be called exactly once when event handling
// is done; until then further events for the same chat block while other
// chats proceed concurrently.
func (s *Store) Acquire(chatID int64) (*Session, func()) {
	s.mu.Lock()
	e, ok := s.entries[chatID]
	if !ok {
		e = &entry{sess: &Session{State: flow.StateIdle}}
		e.elem = s.lru.PushFront(chatID)
		s.entries[chatID] = e
		s.evictLocked()
	} else {
		s.lru.MoveToFront(e.elem)
	}
	e.refs++
	s.mu.Unlock()

	e.mu.Lock()

	var once sync.Once
	release := func() {
		once.Do(func() {
			e.mu.Unlock()
			s.mu.Lock()
			e.refs--
			s.mu.Unlock()
		})
	}
	return e.sess, release
}

// Len reports the number of resident sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lru.Len()
}

// evictLocked drops least-recently-used idle entries while over capacity.
// Entries currently held by an event are skipped; the cap may be exceeded
// transiently until they release.
func (s *Store) evictLocked() {
	for s.lru.Len() > s.cap {
		back := s.lru.Back()
		if back == nil {
			return
		}
		chatID := back.Value.(int64)
		e := s.entries[chatID]
		if e != nil && e.refs > 0 {
			return
		}
		s.lru.Remove(back)
		delete(s.entries, chatID)
		logger.Session.Debug("session evicted",
			slog.String("event", "session.evict"),
			slog.Int64("chat_id", chatID),
			slog.Int("resident", s.lru.Len()),
		)
	}
}
