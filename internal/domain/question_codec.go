package domain

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// questionDoc is the flat storage/wire shape of a question. DRAG_DROP items may
// come either as "items" or, like the catalog stores them, as ordered answers.
type questionDoc struct {
	Type          QuestionType `json:"type" yaml:"type"`
	Text          string       `json:"text" yaml:"text"`
	TimeLimit     int          `json:"timeLimit" yaml:"timeLimit"`
	Points        int          `json:"points" yaml:"points"`
	Answers       []Option     `json:"answers,omitempty" yaml:"answers,omitempty"`
	CorrectAnswer string       `json:"correctAnswer,omitempty" yaml:"correctAnswer,omitempty"`
	CaseSensitive bool         `json:"caseSensitive,omitempty" yaml:"caseSensitive,omitempty"`
	Items         []string     `json:"items,omitempty" yaml:"items,omitempty"`
}

func (d questionDoc) toQuestion() (Question, error) {
	q := Question{Text: d.Text, TimeLimit: d.TimeLimit, Points: d.Points}
	switch d.Type {
	case TypeMultipleChoice, "":
		q.Kind = ChoiceQuestion{Options: d.Answers}
	case TypeTrueFalse:
		q.Kind = ChoiceQuestion{Options: d.Answers, Binary: true}
	case TypeSurvey:
		q.Kind = SurveyQuestion{Options: d.Answers}
		q.Points = 0
	case TypePuzzle:
		q.Kind = PuzzleQuestion{CorrectAnswer: d.CorrectAnswer, CaseSensitive: d.CaseSensitive}
	case TypeDragDrop:
		items := d.Items
		if len(items) == 0 {
			items = make([]string, 0, len(d.Answers))
			for _, a := range d.Answers {
				items = append(items, a.Text)
			}
		}
		q.Kind = OrderingQuestion{Items: items}
	default:
		return Question{}, fmt.Errorf("%w: unknown question type %q", ErrInvalidQuiz, d.Type)
	}
	return q, nil
}

func docFromQuestion(q Question) questionDoc {
	d := questionDoc{Type: q.Type(), Text: q.Text, TimeLimit: q.TimeLimit, Points: q.Points}
	switch kind := q.Kind.(type) {
	case ChoiceQuestion:
		d.Answers = kind.Options
	case SurveyQuestion:
		d.Answers = kind.Options
	case PuzzleQuestion:
		d.CorrectAnswer = kind.CorrectAnswer
		d.CaseSensitive = kind.CaseSensitive
	case OrderingQuestion:
		d.Items = kind.Items
	}
	return d
}

func (q Question) MarshalJSON() ([]byte, error) {
	return json.Marshal(docFromQuestion(q))
}

func (q *Question) UnmarshalJSON(data []byte) error {
	var d questionDoc
	if err := json.Unmarshal(data, &d); err != nil {
		return err
	}
	parsed, err := d.toQuestion()
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}

func (q Question) MarshalYAML() (interface{}, error) {
	return docFromQuestion(q), nil
}

func (q *Question) UnmarshalYAML(value *yaml.Node) error {
	var d questionDoc
	if err := value.Decode(&d); err != nil {
		return err
	}
	parsed, err := d.toQuestion()
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}
