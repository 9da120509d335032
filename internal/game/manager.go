package game

import (
	"sync"
)

// Manager is the per-room session registry. It only guards the map;
// each session carries its own lock.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager returns an empty registry.
func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

// Get returns the room's active session, if any.
func (m *Manager) Get(roomID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[roomID]
	return s, ok
}

// Put registers a session, replacing and stopping any previous one for
// the room.
func (m *Manager) Put(roomID string, s *Session) {
	m.mu.Lock()
	old := m.sessions[roomID]
	m.sessions[roomID] = s
	m.mu.Unlock()
	if old != nil {
		old.Stop()
	}
}

// Delete removes and stops the room's session.
func (m *Manager) Delete(roomID string) {
	m.mu.Lock()
	s := m.sessions[roomID]
	delete(m.sessions, roomID)
	m.mu.Unlock()
	if s != nil {
		s.Stop()
	}
}
