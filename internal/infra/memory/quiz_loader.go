package memory

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"live-quiz-service/internal/domain"
)

// StaticQuizLoader is a simple loader backed by an in-memory map (useful for tests/demos).
type StaticQuizLoader struct {
	quizzes map[string]domain.QuizSnapshot
}

func NewStaticQuizLoader(quizzes map[string]domain.QuizSnapshot) *StaticQuizLoader {
	return &StaticQuizLoader{quizzes: quizzes}
}

func (l *StaticQuizLoader) LoadQuiz(_ context.Context, quizID string) (domain.QuizSnapshot, error) {
	if quiz, ok := l.quizzes[quizID]; ok {
		return quiz, nil
	}
	return domain.QuizSnapshot{}, domain.ErrQuizNotFound
}

type quizFile struct {
	Quizzes []domain.QuizSnapshot `yaml:"quizzes"`
}

// LoadQuizFile reads a YAML catalog of quizzes for running without Postgres.
func LoadQuizFile(path string) (*StaticQuizLoader, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read quiz file: %w", err)
	}
	var doc quizFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse quiz file: %w", err)
	}
	quizzes := make(map[string]domain.QuizSnapshot, len(doc.Quizzes))
	for _, quiz := range doc.Quizzes {
		if quiz.ID == "" {
			return nil, fmt.Errorf("%w: quiz without id in %s", domain.ErrInvalidQuiz, path)
		}
		quizzes[quiz.ID] = quiz
	}
	return NewStaticQuizLoader(quizzes), nil
}
