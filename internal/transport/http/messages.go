package http

import (
	"encoding/json"

	"live-quiz-service/internal/domain"
)

// Inbound event types.
const (
	eventHostJoin     = "host:join"
	eventPlayerJoin   = "player:join"
	eventHostStart    = "host:start"
	eventPlayerAnswer = "player:answer"
	eventShowResults  = "host:showResults"
	eventNextQuestion = "host:nextQuestion"
)

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type pinPayload struct {
	PIN string `json:"pin"`
}

type hostJoinPayload struct {
	PIN       string `json:"pin"`
	HostToken string `json:"hostToken"`
}

type playerJoinPayload struct {
	PIN      string `json:"pin"`
	Nickname string `json:"nickname"`
}

type answerPayload struct {
	PIN          string   `json:"pin"`
	AnswerIndex  *int     `json:"answerIndex"`
	TextAnswer   *string  `json:"textAnswer"`
	OrderedItems []string `json:"orderedItems"`
}

func (p answerPayload) submission() domain.Submission {
	return domain.Submission{
		AnswerIndex:  p.AnswerIndex,
		TextAnswer:   p.TextAnswer,
		OrderedItems: p.OrderedItems,
	}
}

func errorMessage(err error) outboundMessage {
	return outboundMessage{
		Type:    domain.EventError,
		Payload: domain.ErrorPayload{Message: err.Error(), Code: domain.CodeOf(err)},
	}
}
