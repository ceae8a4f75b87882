package services

import (
	"sync"

	"shards-game-backend/internal/models"
)

// SessionStore holds at most one live grid session per user. Get-or-create
// is atomic per user, so two racing reveals from the same user always see
// the same grid and a paid round never generates twice.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[int64]*models.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[int64]*models.Session)}
}

// GetOrCreate returns the live session for userID, calling generate to
// make one only if none exists. The generator runs under the store lock;
// it must be pure computation, no I/O.
func (s *SessionStore) GetOrCreate(userID int64, generate func() *models.Session) *models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session, ok := s.sessions[userID]; ok {
		return session
	}

	session := generate()
	s.sessions[userID] = session
	return session
}

// Get returns the live session for userID, or nil.
func (s *SessionStore) Get(userID int64) *models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[userID]
}

// Clear destroys the user's live session. Clearing an absent session is
// a no-op.
func (s *SessionStore) Clear(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}
