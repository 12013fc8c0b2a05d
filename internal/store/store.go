package store

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrSessionExists = errors.New("session already exists")

// maxEvents caps a session journal; the oldest entries are dropped first.
const maxEvents = 200

type Event struct {
	Type    string         `json:"type"`
	Ts      time.Time      `json:"timestamp"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Session is one kiosk customer visit, from the first interaction until the
// order is completed or cancelled.
type Session struct {
	ID        string     `json:"session_id"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Outcome   string     `json:"outcome,omitempty"`
}

// Store is the in-memory session journal. It is read by HTTP handlers while
// the conversation loop writes, hence the lock.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	events   map[string][]Event
	current  string
}

func New() *Store {
	return &Store{
		sessions: make(map[string]*Session),
		events:   make(map[string][]Event),
	}
}

// Begin opens a fresh session and makes it current.
func (s *Store) Begin() *Session {
	sess := &Session{ID: uuid.New().String(), StartedAt: time.Now().UTC()}
	_ = s.CreateSession(sess)
	return sess
}

func (s *Store) CreateSession(sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sess.ID]; ok {
		return ErrSessionExists
	}
	s.sessions[sess.ID] = sess
	s.events[sess.ID] = []Event{}
	s.current = sess.ID
	return nil
}

// End stamps the session outcome; the current pointer is cleared.
func (s *Store) End(id, outcome string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok && sess.EndedAt == nil {
		now := time.Now().UTC()
		sess.EndedAt = &now
		sess.Outcome = outcome
	}
	if s.current == id {
		s.current = ""
	}
}

func (s *Store) GetSession(id string) *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[id]
}

// Current returns the id of the open session, or "".
func (s *Store) Current() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Store) AppendEvent(sessionID, typ string, payload map[string]any) Event {
	evt := Event{Type: typ, Ts: time.Now().UTC(), Payload: payload}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[sessionID] = append(s.events[sessionID], evt)
	if l := len(s.events[sessionID]); l > maxEvents {
		// Leave room for the truncation marker so the total stays at maxEvents
		keep := maxEvents - 1
		dropped := l - keep
		s.events[sessionID] = append([]Event(nil), s.events[sessionID][l-keep:]...)
		warn := Event{Type: "events_truncated", Ts: time.Now().UTC(), Payload: map[string]any{"session_id": sessionID, "dropped": dropped, "kept": keep}}
		s.events[sessionID] = append(s.events[sessionID], warn)
	}
	return evt
}

func (s *Store) ListEvents(sessionID string) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.events[sessionID]
	out := make([]Event, len(src))
	copy(out, src)
	return out
}

func (s *Store) ListSessionIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		out = append(out, id)
	}
	return out
}
