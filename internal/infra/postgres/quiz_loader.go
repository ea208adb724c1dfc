package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"live-quiz-service/internal/domain"
)

// QuizLoader loads quiz JSONB from Postgres.
type QuizLoader struct {
	pool *pgxpool.Pool
}

func NewQuizLoader(pool *pgxpool.Pool) *QuizLoader {
	return &QuizLoader{pool: pool}
}

func (l *QuizLoader) LoadQuiz(ctx context.Context, quizID string) (domain.QuizSnapshot, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM quizzes WHERE id=$1`, quizID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.QuizSnapshot{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.QuizSnapshot{}, fmt.Errorf("load quiz: %w", err)
	}
	var quiz domain.QuizSnapshot
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.QuizSnapshot{}, fmt.Errorf("unmarshal quiz: %w", err)
	}
	if quiz.ID == "" {
		quiz.ID = quizID
	}
	return quiz, nil
}

// SaveQuiz upserts a quiz document. The catalog is authored elsewhere; this
// is used for seeding.
func (l *QuizLoader) SaveQuiz(ctx context.Context, quiz domain.QuizSnapshot) error {
	raw, err := json.Marshal(quiz)
	if err != nil {
		return fmt.Errorf("marshal quiz: %w", err)
	}
	_, err = l.pool.Exec(ctx, `
		INSERT INTO quizzes (id, data) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		quiz.ID, raw)
	if err != nil {
		return fmt.Errorf("save quiz: %w", err)
	}
	return nil
}
