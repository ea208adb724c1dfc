package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"live-quiz-service/internal/domain"
)

// QuizLoader fetches quiz content from a backing store (Postgres, a YAML file, ...).
type QuizLoader interface {
	LoadQuiz(ctx context.Context, quizID string) (domain.QuizSnapshot, error)
}

// QuizRepository caches quiz snapshots with TTL to avoid repeated catalog hits.
type QuizRepository struct {
	loader QuizLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.RWMutex
	rnd   *rand.Rand
	cache map[string]cachedQuiz
}

type cachedQuiz struct {
	quiz      domain.QuizSnapshot
	expiresAt time.Time
}

func NewQuizRepository(loader QuizLoader, ttl time.Duration) *QuizRepository {
	return NewQuizRepositoryWithClock(loader, ttl, time.Now)
}

// NewQuizRepositoryWithClock is test-only for deterministic expiry.
func NewQuizRepositoryWithClock(loader QuizLoader, ttl time.Duration, clock func() time.Time) *QuizRepository {
	return &QuizRepository{
		loader: loader,
		ttl:    ttl,
		clock:  clock,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedQuiz),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, quizID string) (domain.QuizSnapshot, error) {
	if quiz, ok := r.lookup(quizID); ok {
		return quiz, nil
	}

	result, err, _ := r.sf.Do(quizID, func() (interface{}, error) {
		if quiz, ok := r.lookup(quizID); ok {
			return quiz, nil
		}

		quiz, err := r.loader.LoadQuiz(ctx, quizID)
		if err != nil {
			return domain.QuizSnapshot{}, err
		}
		if r.ttl > 0 {
			r.mu.Lock()
			r.cache[quizID] = cachedQuiz{
				quiz:      quiz,
				expiresAt: r.clock().Add(r.ttlWithJitterLocked()),
			}
			r.mu.Unlock()
		}
		return quiz, nil
	})
	if err != nil {
		return domain.QuizSnapshot{}, err
	}
	return result.(domain.QuizSnapshot), nil
}

func (r *QuizRepository) lookup(quizID string) (domain.QuizSnapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[quizID]
	if !ok || !entry.expiresAt.After(r.clock()) {
		return domain.QuizSnapshot{}, false
	}
	return entry.quiz, true
}

func (r *QuizRepository) ttlWithJitterLocked() time.Duration {
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
