package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"live-quiz-service/internal/domain"
)

// SessionRepository abstracts where active sessions are registered (in-memory, Redis-backed, etc).
// Create must fail with domain.ErrPinTaken when the PIN is already held.
type SessionRepository interface {
	Create(pin string, quiz domain.QuizSnapshot, cfg SessionConfig) (*Session, error)
	Get(pin string) (*Session, bool)
	Remove(pin string)
	List() []*Session
	Count() int
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.QuizSnapshot, error)
}

// ResultSink durably records the outcome of a finished game.
type ResultSink interface {
	SaveResults(ctx context.Context, result domain.GameResult) error
}

// Scope tells which participants of a session an event targets.
type Scope int

const (
	ScopeAll Scope = iota
	ScopeHost
	ScopePlayers
	ScopeParticipant
)

func (s Scope) String() string {
	switch s {
	case ScopeAll:
		return "all"
	case ScopeHost:
		return "host"
	case ScopePlayers:
		return "players"
	default:
		return "participant"
	}
}

// Audience is the resolved list of participant ids an event is delivered to.
type Audience struct {
	Scope      Scope
	Recipients []string
}

// Notifier delivers session events to connected participants. Implementations
// must not block and must not call back into the session.
type Notifier interface {
	Notify(to Audience, event string, payload any)
}

type nopNotifier struct{}

func (nopNotifier) Notify(Audience, string, any) {}

// FanoutSink forwards a result to every sink concurrently and reports the
// first failure.
type FanoutSink []ResultSink

func (f FanoutSink) SaveResults(ctx context.Context, result domain.GameResult) error {
	var g errgroup.Group
	for _, sink := range f {
		sink := sink
		g.Go(func() error {
			return sink.SaveResults(ctx, result)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	return nil
}
