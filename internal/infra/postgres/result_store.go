package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"live-quiz-service/internal/domain"
)

// ResultStore persists final player scores and the game status.
type ResultStore struct {
	pool *pgxpool.Pool
}

func NewResultStore(pool *pgxpool.Pool) *ResultStore {
	return &ResultStore{pool: pool}
}

func (s *ResultStore) SaveResults(ctx context.Context, result domain.GameResult) error {
	err := s.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO games (id, pin, quiz_id, quiz_title, status, finished_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, finished_at = EXCLUDED.finished_at`,
			result.GameID, result.PIN, result.QuizID, result.QuizTitle, string(result.Status), result.FinishedAt)
		if err != nil {
			return fmt.Errorf("upsert game: %w", err)
		}

		batch := &pgx.Batch{}
		for _, p := range result.Players {
			batch.Queue(`
				INSERT INTO players (game_id, id, nickname, score, rank)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (game_id, id) DO UPDATE
				SET score = EXCLUDED.score, rank = EXCLUDED.rank, updated_at = now()`,
				result.GameID, p.PlayerID, p.Nickname, p.Score, p.Rank)
		}
		br := tx.SendBatch(ctx, batch)
		for range result.Players {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return fmt.Errorf("upsert player: %w", err)
			}
		}
		return br.Close()
	})
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	return nil
}

// PlayerScores returns the stored ranking of a game.
func (s *ResultStore) PlayerScores(ctx context.Context, gameID string) ([]domain.PlayerResult, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, nickname, score, rank FROM players WHERE game_id=$1 ORDER BY rank`, gameID)
	if err != nil {
		return nil, fmt.Errorf("query players: %w", err)
	}
	defer rows.Close()

	var out []domain.PlayerResult
	for rows.Next() {
		var p domain.PlayerResult
		if err := rows.Scan(&p.PlayerID, &p.Nickname, &p.Score, &p.Rank); err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GameStatus returns the stored status of a game.
func (s *ResultStore) GameStatus(ctx context.Context, gameID string) (domain.GameStatus, error) {
	var status string
	if err := s.pool.QueryRow(ctx, `SELECT status FROM games WHERE id=$1`, gameID).Scan(&status); err != nil {
		return "", fmt.Errorf("query game: %w", err)
	}
	return domain.GameStatus(status), nil
}
