package upload

import (
	"sync"
	"time"
)

// MemoryStore is an in-memory Store guarded by a mutex. One bot process
// serves all chats, so there is no need for shared session storage.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[int64]*Session
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: map[int64]*Session{}}
}

func (m *MemoryStore) Get(userID int64) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[userID]
}

func (m *MemoryStore) Put(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.UserID] = s
}

func (m *MemoryStore) Delete(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
}

// Sweep removes sessions idle longer than maxAge and returns how many were
// dropped. Called periodically so abandoned uploads do not pile up.
func (m *MemoryStore) Sweep(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	cutoff := time.Now().Add(-maxAge)
	for id, s := range m.sessions {
		if s.StartedAt.Before(cutoff) {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}
