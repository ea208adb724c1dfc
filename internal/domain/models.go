package domain

import (
	"fmt"
	"time"
)

// GameStatus is the lifecycle state of a game session. It only moves forward:
// waiting -> playing -> finished.
type GameStatus string

const (
	StatusWaiting  GameStatus = "waiting"
	StatusPlaying  GameStatus = "playing"
	StatusFinished GameStatus = "finished"
)

// QuestionType names the kind of a question on the wire and in storage.
type QuestionType string

const (
	TypeMultipleChoice QuestionType = "MULTIPLE_CHOICE"
	TypeTrueFalse      QuestionType = "TRUE_FALSE"
	TypeSurvey         QuestionType = "SURVEY"
	TypePuzzle         QuestionType = "PUZZLE"
	TypeDragDrop       QuestionType = "DRAG_DROP"
)

// Option represents a selectable answer of a choice or survey question.
type Option struct {
	Text    string `json:"text" yaml:"text"`
	Correct bool   `json:"isCorrect" yaml:"isCorrect"`
}

// QuestionKind is the closed set of question variants. Each variant carries
// only the data its type needs; switch on the concrete type to handle them.
type QuestionKind interface {
	Type() QuestionType
	questionKind()
}

// ChoiceQuestion is a MULTIPLE_CHOICE question, or TRUE_FALSE when Binary is set.
type ChoiceQuestion struct {
	Options []Option
	Binary  bool
}

func (q ChoiceQuestion) Type() QuestionType {
	if q.Binary {
		return TypeTrueFalse
	}
	return TypeMultipleChoice
}

func (ChoiceQuestion) questionKind() {}

// SurveyQuestion collects opinions; it is never scored.
type SurveyQuestion struct {
	Options []Option
}

func (SurveyQuestion) Type() QuestionType { return TypeSurvey }
func (SurveyQuestion) questionKind()      {}

// PuzzleQuestion expects a free-text answer.
type PuzzleQuestion struct {
	CorrectAnswer string
	CaseSensitive bool
}

func (PuzzleQuestion) Type() QuestionType { return TypePuzzle }
func (PuzzleQuestion) questionKind()      {}

// OrderingQuestion is a DRAG_DROP question; Items holds the canonical order.
type OrderingQuestion struct {
	Items []string
}

func (OrderingQuestion) Type() QuestionType { return TypeDragDrop }
func (OrderingQuestion) questionKind()      {}

// Question is one step of a quiz.
type Question struct {
	Text      string
	TimeLimit int // seconds
	Points    int
	Kind      QuestionKind
}

// Type returns the question type, or "" when the variant is missing.
func (q Question) Type() QuestionType {
	if q.Kind == nil {
		return ""
	}
	return q.Kind.Type()
}

// TimeLimitDuration returns the answer window.
func (q Question) TimeLimitDuration() time.Duration {
	return time.Duration(q.TimeLimit) * time.Second
}

// QuizSnapshot is the immutable copy of a quiz held by a running game.
type QuizSnapshot struct {
	ID        string     `json:"id" yaml:"id"`
	Title     string     `json:"title" yaml:"title"`
	Questions []Question `json:"questions" yaml:"questions"`
}

// Validate checks that the snapshot can be played.
func (q QuizSnapshot) Validate() error {
	if len(q.Questions) == 0 {
		return ErrQuizEmpty
	}
	for i, question := range q.Questions {
		if question.TimeLimit <= 0 {
			return fmt.Errorf("%w: question %d has no time limit", ErrInvalidQuiz, i)
		}
		if question.Points < 0 {
			return fmt.Errorf("%w: question %d has negative points", ErrInvalidQuiz, i)
		}
		switch kind := question.Kind.(type) {
		case ChoiceQuestion:
			if len(kind.Options) == 0 {
				return fmt.Errorf("%w: question %d has no options", ErrInvalidQuiz, i)
			}
		case SurveyQuestion:
			if len(kind.Options) == 0 {
				return fmt.Errorf("%w: question %d has no options", ErrInvalidQuiz, i)
			}
		case PuzzleQuestion:
		case OrderingQuestion:
			if len(kind.Items) == 0 {
				return fmt.Errorf("%w: question %d has no items", ErrInvalidQuiz, i)
			}
		default:
			return fmt.Errorf("%w: question %d has unknown type", ErrInvalidQuiz, i)
		}
	}
	return nil
}

// Submission is the raw answer payload sent by a player. Which field is read
// depends on the question type.
type Submission struct {
	AnswerIndex  *int     `json:"answerIndex,omitempty"`
	TextAnswer   *string  `json:"textAnswer,omitempty"`
	OrderedItems []string `json:"orderedItems,omitempty"`
}

// SubmittedAnswer is the ledger entry for one (player, question) pair.
// It is never mutated after creation.
type SubmittedAnswer struct {
	Submission
	IsCorrect bool  `json:"isCorrect"`
	Points    int   `json:"points"`
	ElapsedMs int64 `json:"elapsedMs"`
}

// AnsweredQuestion is one entry of a player's answer history.
type AnsweredQuestion struct {
	QuestionIndex int  `json:"questionIndex"`
	IsCorrect     bool `json:"isCorrect"`
	Points        int  `json:"points"`
}

// PlayerState represents a player inside one game session.
type PlayerState struct {
	ID       string             `json:"id"`
	Nickname string             `json:"nickname"`
	Score    int                `json:"score"`
	Streak   int                `json:"streak"`
	JoinSeq  int                `json:"-"`
	History  []AnsweredQuestion `json:"history"`
}

// LeaderboardEntry is a snapshot-friendly view of a player's standing.
type LeaderboardEntry struct {
	Rank     int    `json:"rank"`
	PlayerID string `json:"-"`
	Nickname string `json:"nickname"`
	Score    int    `json:"score"`
}

// GameInfo summarizes a session for lookups and acknowledgements.
type GameInfo struct {
	GameID        string     `json:"gameId"`
	PIN           string     `json:"pin"`
	QuizID        string     `json:"quizId"`
	QuizTitle     string     `json:"quizTitle"`
	QuestionCount int        `json:"questionCount"`
	PlayerCount   int        `json:"playerCount"`
	Status        GameStatus `json:"status"`
}

// PlayerResult is the final standing of one player.
type PlayerResult struct {
	PlayerID string `json:"playerId"`
	Nickname string `json:"nickname"`
	Score    int    `json:"score"`
	Rank     int    `json:"rank"`
}

// GameResult is what the persistence sinks receive when a game ends.
type GameResult struct {
	GameID     string         `json:"gameId"`
	PIN        string         `json:"pin"`
	QuizID     string         `json:"quizId"`
	QuizTitle  string         `json:"quizTitle"`
	Status     GameStatus     `json:"status"`
	FinishedAt time.Time      `json:"finishedAt"`
	Players    []PlayerResult `json:"players"`
}

// Scoreboard is the ranked view of a session served by the results endpoint.
type Scoreboard struct {
	QuizTitle      string             `json:"quizTitle"`
	TotalQuestions int                `json:"totalQuestions"`
	Status         GameStatus         `json:"status"`
	Players        []LeaderboardEntry `json:"players"`
}
