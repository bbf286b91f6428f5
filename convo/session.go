package convo

import (
	"slices"
	"sync"
	"time"
)

// Session accumulates messages for a multi-message collection.
type Session struct {
	mu      sync.Mutex
	items   []string
	expires time.Time
}

// Add appends text to the session and returns the new number of items.
func (s *Session) Add(text string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, text)
	return len(s.items)
}

// Items returns a copy of the collected items in order.
func (s *Session) Items() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.items)
}

// Len returns the number of collected items.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Expires returns the time after which the session is discarded.
func (s *Session) Expires() time.Time {
	return s.expires
}

// Begin starts a new collection session for key, replacing any existing one.
func (m *Manager) Begin(key Key, timeout time.Duration) *Session {
	s := &Session{expires: m.now().Add(timeout)}
	m.sessions.Store(key, s)
	return s
}

// Session returns the unexpired session for key.
func (m *Manager) Session(key Key) (*Session, bool) {
	s, ok := m.sessions.Load(key)
	if !ok {
		return nil, false
	}
	if !m.now().Before(s.expires) {
		m.sessions.DeleteIf(key, same(s))
		return nil, false
	}
	return s, true
}

// End discards the session for key.
func (m *Manager) End(key Key) {
	m.sessions.Delete(key)
}

// Sessions returns the number of sessions held.
func (m *Manager) Sessions() int {
	return m.sessions.Len()
}

// Remaining returns the time left before s expires, as seen by m's clock.
func (m *Manager) Remaining(s *Session) time.Duration {
	return s.expires.Sub(m.now())
}
