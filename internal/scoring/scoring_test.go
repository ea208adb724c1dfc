package scoring

import (
	"testing"
	"time"

	"live-quiz-service/internal/domain"
)

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func ms(v int64) time.Duration { return time.Duration(v) * time.Millisecond }

func choice(points int) domain.Question {
	return domain.Question{
		Text:      "2+2?",
		TimeLimit: 10,
		Points:    points,
		Kind: domain.ChoiceQuestion{Options: []domain.Option{
			{Text: "3"},
			{Text: "4", Correct: true},
		}},
	}
}

func TestTimeDecayBounds(t *testing.T) {
	q := choice(1000)
	sub := domain.Submission{AnswerIndex: intPtr(1)}

	if got := Score(q, sub, 0); !got.IsCorrect || got.Points != 1000 {
		t.Fatalf("expected full points at zero elapsed, got %+v", got)
	}
	if got := Score(q, sub, ms(10000)); got.Points != 500 {
		t.Fatalf("expected half points at the limit, got %d", got.Points)
	}
	if got := Score(q, sub, ms(25000)); got.Points != 500 {
		t.Fatalf("expected clamped half points past the limit, got %d", got.Points)
	}

	prev := 1000
	for elapsed := int64(0); elapsed <= 10000; elapsed += 250 {
		points := TimeDecayPoints(1000, 10, ms(elapsed))
		if points > prev {
			t.Fatalf("points increased at %dms: %d > %d", elapsed, points, prev)
		}
		prev = points
	}
}

func TestTimeDecayRoundsOddBase(t *testing.T) {
	if got := TimeDecayPoints(333, 10, ms(10000)); got != 167 {
		t.Fatalf("expected round(166.5)=167, got %d", got)
	}
}

func TestChoiceWrongAndOutOfRange(t *testing.T) {
	q := choice(1000)
	for _, sub := range []domain.Submission{
		{AnswerIndex: intPtr(0)},
		{AnswerIndex: intPtr(7)},
		{AnswerIndex: intPtr(-1)},
		{},
	} {
		if got := Score(q, sub, 0); got.IsCorrect || got.Points != 0 {
			t.Fatalf("expected wrong answer for %+v, got %+v", sub, got)
		}
	}
}

func TestSurveyNeverAwardsPoints(t *testing.T) {
	q := domain.Question{
		TimeLimit: 10,
		Points:    1000,
		Kind:      domain.SurveyQuestion{Options: []domain.Option{{Text: "Cats"}, {Text: "Dogs"}}},
	}
	got := Score(q, domain.Submission{AnswerIndex: intPtr(1)}, 0)
	if !got.IsCorrect || got.Points != 0 {
		t.Fatalf("expected {true 0}, got %+v", got)
	}
}

func TestPuzzleCaseSensitivity(t *testing.T) {
	insensitive := domain.Question{TimeLimit: 10, Points: 1000, Kind: domain.PuzzleQuestion{CorrectAnswer: "Paris"}}
	if got := Score(insensitive, domain.Submission{TextAnswer: strPtr("  paris ")}, 0); !got.IsCorrect {
		t.Fatalf("expected case-insensitive match, got %+v", got)
	}

	sensitive := domain.Question{TimeLimit: 10, Points: 1000, Kind: domain.PuzzleQuestion{CorrectAnswer: "Paris", CaseSensitive: true}}
	if got := Score(sensitive, domain.Submission{TextAnswer: strPtr("paris")}, 0); got.IsCorrect {
		t.Fatalf("expected case-sensitive mismatch, got %+v", got)
	}
	if got := Score(sensitive, domain.Submission{TextAnswer: strPtr("Paris ")}, 0); !got.IsCorrect {
		t.Fatalf("expected trimmed exact match, got %+v", got)
	}
}

func TestDragDropOrdering(t *testing.T) {
	q := domain.Question{TimeLimit: 10, Points: 1000, Kind: domain.OrderingQuestion{Items: []string{"A", "B", "C"}}}

	if got := Score(q, domain.Submission{OrderedItems: []string{"A", "B", "C"}}, 0); !got.IsCorrect || got.Points != 1000 {
		t.Fatalf("expected canonical order to be correct, got %+v", got)
	}
	if got := Score(q, domain.Submission{OrderedItems: []string{"A", "C", "B"}}, 0); got.IsCorrect {
		t.Fatalf("expected swapped order to be wrong")
	}
	if got := Score(q, domain.Submission{OrderedItems: []string{"A", "B"}}, 0); got.IsCorrect {
		t.Fatalf("expected short submission to be wrong")
	}
}

func TestUnknownKindScoresNothing(t *testing.T) {
	if got := Score(domain.Question{TimeLimit: 10, Points: 100}, domain.Submission{}, 0); got.IsCorrect || got.Points != 0 {
		t.Fatalf("expected zero result, got %+v", got)
	}
}
