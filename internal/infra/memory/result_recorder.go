package memory

import (
	"context"
	"sync"

	"live-quiz-service/internal/domain"
)

// ResultRecorder keeps finished game results in memory. It is the sink used
// when Postgres is not configured, and a convenient probe in tests.
type ResultRecorder struct {
	mu      sync.Mutex
	results []domain.GameResult
}

func NewResultRecorder() *ResultRecorder {
	return &ResultRecorder{}
}

func (r *ResultRecorder) SaveResults(_ context.Context, result domain.GameResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
	return nil
}

// Results returns a copy of everything recorded so far.
func (r *ResultRecorder) Results() []domain.GameResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.GameResult(nil), r.results...)
}
