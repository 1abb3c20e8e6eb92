// Package storage holds in-memory note sessions for the HTTP server. The
// server is a review surface over the local output directory, so sessions
// do not survive a restart.
package storage

import (
	"sort"
	"sync"

	"github.com/monty-notes/inkwell/internal/models"
)

type SessionStore struct {
	sessions map[string]*models.NoteSession
	mu       sync.RWMutex
}

func New() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*models.NoteSession),
	}
}

func (s *SessionStore) Get(sessionID string) (*models.NoteSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, exists := s.sessions[sessionID]
	return session, exists
}

func (s *SessionStore) Set(sessionID string, session *models.NoteSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = session
}

// List returns all sessions, newest first.
func (s *SessionStore) List() []*models.NoteSession {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]*models.NoteSession, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})
	return sessions
}

func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}
