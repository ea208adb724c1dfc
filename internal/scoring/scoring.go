// Package scoring decides correctness and awards time-decayed points for a
// single submission. It holds no state.
package scoring

import (
	"math"
	"strings"
	"time"

	"live-quiz-service/internal/domain"
)

// Result is the outcome of scoring one submission.
type Result struct {
	IsCorrect bool
	Points    int
}

// Score evaluates sub against q given the time elapsed since the question opened.
func Score(q domain.Question, sub domain.Submission, elapsed time.Duration) Result {
	var correct bool
	switch kind := q.Kind.(type) {
	case domain.SurveyQuestion:
		return Result{IsCorrect: true}
	case domain.ChoiceQuestion:
		correct = choiceCorrect(kind, sub)
	case domain.PuzzleQuestion:
		correct = puzzleCorrect(kind, sub)
	case domain.OrderingQuestion:
		correct = orderingCorrect(kind, sub)
	default:
		return Result{}
	}
	if !correct {
		return Result{}
	}
	return Result{IsCorrect: true, Points: TimeDecayPoints(q.Points, q.TimeLimit, elapsed)}
}

// TimeDecayPoints returns round(base * (0.5 + 0.5*ratio)) where ratio shrinks
// linearly from 1 at zero elapsed time to 0 at the time limit.
func TimeDecayPoints(base, timeLimitSeconds int, elapsed time.Duration) int {
	if base <= 0 {
		return 0
	}
	limitMs := float64(timeLimitSeconds) * 1000
	ratio := 0.0
	if limitMs > 0 {
		ms := math.Min(math.Max(float64(elapsed.Milliseconds()), 0), limitMs)
		ratio = math.Max(0, 1-ms/limitMs)
	}
	return int(math.Round(float64(base) * (0.5 + 0.5*ratio)))
}

func choiceCorrect(q domain.ChoiceQuestion, sub domain.Submission) bool {
	if sub.AnswerIndex == nil {
		return false
	}
	idx := *sub.AnswerIndex
	if idx < 0 || idx >= len(q.Options) {
		return false
	}
	return q.Options[idx].Correct
}

func puzzleCorrect(q domain.PuzzleQuestion, sub domain.Submission) bool {
	if sub.TextAnswer == nil {
		return false
	}
	got := strings.TrimSpace(*sub.TextAnswer)
	want := strings.TrimSpace(q.CorrectAnswer)
	if q.CaseSensitive {
		return got == want
	}
	return strings.EqualFold(got, want)
}

func orderingCorrect(q domain.OrderingQuestion, sub domain.Submission) bool {
	if len(sub.OrderedItems) != len(q.Items) {
		return false
	}
	for i, item := range q.Items {
		if sub.OrderedItems[i] != item {
			return false
		}
	}
	return true
}
