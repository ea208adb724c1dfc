package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
)

// releaseScript deletes a reservation only while it still names our game.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// refreshScript extends a reservation only while it still names our game.
var refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Sessions themselves stay in a local map; Redis holds a PIN reservation
// (SET NX with TTL, value = game id) so that processes sharing the instance
// never hand out the same PIN twice. KeepAlive must run for as long as the
// store is in use, otherwise reservations lapse after ttl.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration

	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) Create(pin string, quiz domain.QuizSnapshot, cfg app.SessionConfig) (*app.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[pin]; ok {
		return nil, domain.ErrPinTaken
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	reserved, err := s.client.SetNX(ctx, s.key(pin), cfg.GameID, s.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("reserve pin: %w", err)
	}
	if !reserved {
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
	session, ok := s.sessions[pin]
	if !ok {
		return
	}
	delete(s.sessions, pin)
	// best-effort release; the TTL reclaims the key otherwise
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = releaseScript.Run(ctx, s.client, []string{s.key(pin)}, session.GameID()).Err()
}

// KeepAlive refreshes the reservations of local sessions every third of the
// TTL until ctx is done.
func (s *SessionStore) KeepAlive(ctx context.Context) {
	if s.ttl <= 0 {
		return
	}
	interval := s.ttl / 3
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refresh(ctx)
		}
	}
}

// refresh re-arms the TTL of every reservation this store still owns and
// returns how many were extended.
func (s *SessionStore) refresh(ctx context.Context) int {
	refreshed := 0
	for _, session := range s.List() {
		n, err := refreshScript.Run(ctx, s.client, []string{s.key(session.PIN())}, session.GameID(), s.ttl.Milliseconds()).Int()
		if err == nil && n == 1 {
			refreshed++
		}
	}
	return refreshed
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

func (s *SessionStore) key(pin string) string {
	return "quiz:session:" + pin
}
