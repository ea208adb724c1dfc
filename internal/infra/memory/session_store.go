package memory

import (
	"sync"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) Create(pin string, quiz domain.QuizSnapshot, cfg app.SessionConfig) (*app.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[pin]; ok {
		return nil, domain.ErrPinTaken
	}
	session := app.NewSession(pin, quiz, cfg)
	s.sessions[pin] = session
	return session, nil
}

func (s *SessionStore) Get(pin string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[pin]
	return session, ok
}

func (s *SessionStore) Remove(pin string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, pin)
}

func (s *SessionStore) List() []*app.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*app.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		out = append(out, session)
	}
	return out
}

func (s *SessionStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
