package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"live-quiz-service/internal/domain"
)

// QuizLoader fetches quiz content from a backing store (Postgres, a YAML file, ...).
type QuizLoader interface {
	LoadQuiz(ctx context.Context, quizID string) (domain.QuizSnapshot, error)
}

// QuizRepository caches quiz snapshots in Redis and falls back to a loader on cache miss.
// Snapshots are stored as JSON: SET quiz:{quizID}:snapshot {json} EX ttl
type QuizRepository struct {
	client *redis.Client
	loader QuizLoader
	ttl    time.Duration
	logger *zap.Logger
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuizRepository(client *redis.Client, loader QuizLoader, ttl time.Duration, logger *zap.Logger) *QuizRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuizRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		logger: logger,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, quizID string) (domain.QuizSnapshot, error) {
	if quiz, ok := r.cached(ctx, quizID); ok {
		return quiz, nil
	}

	result, err, _ := r.sf.Do(quizID, func() (interface{}, error) {
		// Re-check cache in case another caller filled it.
		if quiz, ok := r.cached(ctx, quizID); ok {
			return quiz, nil
		}

		quiz, err := r.loader.LoadQuiz(ctx, quizID)
		if err != nil {
			return domain.QuizSnapshot{}, err
		}

		raw, err := json.Marshal(quiz)
		if err != nil {
			return domain.QuizSnapshot{}, err
		}
		if err := r.client.Set(ctx, r.key(quizID), raw, r.ttlWithJitter()).Err(); err != nil {
			r.logger.Warn("cache quiz snapshot", zap.String("quiz_id", quizID), zap.Error(err))
		}
		return quiz, nil
	})
	if err != nil {
		return domain.QuizSnapshot{}, err
	}
	return result.(domain.QuizSnapshot), nil
}

// Invalidate drops the cached snapshot so the next read hits the loader.
func (r *QuizRepository) Invalidate(ctx context.Context, quizID string) error {
	return r.client.Del(ctx, r.key(quizID)).Err()
}

func (r *QuizRepository) cached(ctx context.Context, quizID string) (domain.QuizSnapshot, bool) {
	raw, err := r.client.Get(ctx, r.key(quizID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn("read quiz cache", zap.String("quiz_id", quizID), zap.Error(err))
		}
		return domain.QuizSnapshot{}, false
	}
	var quiz domain.QuizSnapshot
	if err := json.Unmarshal(raw, &quiz); err != nil {
		r.logger.Warn("decode cached quiz", zap.String("quiz_id", quizID), zap.Error(err))
		return domain.QuizSnapshot{}, false
	}
	return quiz, true
}

func (r *QuizRepository) key(quizID string) string {
	return "quiz:" + quizID + ":snapshot"
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
