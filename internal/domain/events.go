package domain

// Outbound event types emitted by a game session.
const (
	EventHostJoined   = "host:joined"
	EventPlayerJoined = "player:joined"
	EventRoster       = "host:roster"
	EventGameStarted  = "game:started"
	EventQuestion     = "question:start"
	EventHostQuestion = "question:show"
	EventAnswerAck    = "player:answered"
	EventAnswerTally  = "host:answerCount"
	EventResults      = "question:results"
	EventGameEnded    = "game:ended"
	EventCancelled    = "game:cancelled"
	EventError        = "error"
)

// HostJoinedPayload acknowledges a host subscription.
type HostJoinedPayload struct {
	PIN           string `json:"pin"`
	GameID        string `json:"gameId"`
	QuizTitle     string `json:"quizTitle"`
	QuestionCount int    `json:"questionCount"`
	PlayerCount   int    `json:"playerCount"`
}

// PlayerJoinedPayload acknowledges a successful player join.
type PlayerJoinedPayload struct {
	PIN         string `json:"pin"`
	Nickname    string `json:"nickname"`
	PlayerCount int    `json:"playerCount"`
}

// RosterEntry is one player in the host's lobby list.
type RosterEntry struct {
	Nickname string `json:"nickname"`
	Score    int    `json:"score"`
}

// RosterPayload is sent to the host whenever the player list changes.
type RosterPayload struct {
	Players     []RosterEntry `json:"players"`
	PlayerCount int           `json:"playerCount"`
}

// StartedPayload announces the start and the lead-in before question one.
type StartedPayload struct {
	LeadInMs    int64 `json:"leadInMs"`
	PlayerCount int   `json:"playerCount"`
}

// AnswerView is one selectable answer as shown to players.
type AnswerView struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// QuestionView is what players see: answer texts only.
type QuestionView struct {
	Index     int          `json:"index"`
	Total     int          `json:"total"`
	Text      string       `json:"text"`
	TimeLimit int          `json:"timeLimit"`
	Type      QuestionType `json:"type"`
	Points    int          `json:"points"`
	Answers   []AnswerView `json:"answers"`
}

// HostQuestionView extends the player view with the correct-answer metadata.
type HostQuestionView struct {
	QuestionView
	CorrectAnswers []int    `json:"correctAnswers"`
	CorrectAnswer  *string  `json:"correctAnswer,omitempty"`
	CaseSensitive  *bool    `json:"caseSensitive,omitempty"`
	CorrectOrder   []string `json:"correctOrder,omitempty"`
}

// AnswerAck is the per-player outcome of a submission.
type AnswerAck struct {
	IsCorrect  bool `json:"isCorrect"`
	Points     int  `json:"points"`
	TotalScore int  `json:"totalScore"`
	Streak     int  `json:"streak"`
	IsSurvey   bool `json:"isSurvey"`
}

// AnswerTally tells the host how many players have answered so far.
type AnswerTally struct {
	Count int `json:"count"`
	Total int `json:"total"`
}

// AnswerStat counts the picks of one answer.
type AnswerStat struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
	Count int    `json:"count"`
}

// QuestionResults is broadcast to everyone when a question is revealed.
type QuestionResults struct {
	QuestionIndex  int                `json:"questionIndex"`
	Type           QuestionType       `json:"type"`
	CorrectAnswers []int              `json:"correctAnswers"`
	CorrectAnswer  *string            `json:"correctAnswer,omitempty"`
	CorrectOrder   []string           `json:"correctOrder,omitempty"`
	AnswerStats    []AnswerStat       `json:"answerStats"`
	Leaderboard    []LeaderboardEntry `json:"leaderboard"`
	IsLastQuestion bool               `json:"isLastQuestion"`
	IsSurvey       bool               `json:"isSurvey"`
}

// GameSummary is the terminal broadcast of a finished game.
type GameSummary struct {
	Podium         []LeaderboardEntry `json:"podium"`
	Leaderboard    []LeaderboardEntry `json:"leaderboard"`
	QuizTitle      string             `json:"quizTitle"`
	TotalQuestions int                `json:"totalQuestions"`
}

// CancelledPayload tells participants the game was cancelled.
type CancelledPayload struct {
	Message string `json:"message"`
}

// ErrorPayload is sent to the connection whose event was rejected.
type ErrorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}
