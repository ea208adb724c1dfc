package domain

import "errors"

var (
	// ErrSessionNotFound is returned when no active game holds the PIN.
	ErrSessionNotFound = errors.New("game not found")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuizEmpty is returned when a quiz has no questions to play.
	ErrQuizEmpty = errors.New("quiz has no questions")
	// ErrInvalidQuiz wraps catalog data that cannot be played.
	ErrInvalidQuiz = errors.New("invalid quiz")
	// ErrPinTaken is returned by a registry when the PIN is already in use.
	ErrPinTaken = errors.New("pin already in use")
	// ErrPinExhausted means no free PIN was found within the retry budget.
	ErrPinExhausted = errors.New("could not allocate a game pin")

	ErrAlreadyStarted   = errors.New("game already started")
	ErrNicknameTaken    = errors.New("nickname already taken")
	ErrInvalidNickname  = errors.New("invalid nickname")
	ErrAlreadyJoined    = errors.New("connection already joined a game")
	ErrNotHost          = errors.New("only the host can do this")
	ErrNoPlayers        = errors.New("no players in the game")
	ErrNotPlaying       = errors.New("game is not in progress")
	ErrNoActiveQuestion = errors.New("no active question")
	ErrAlreadyAnswered  = errors.New("answer already submitted")
	ErrGameFinished     = errors.New("game is finished")
	ErrInvalidHostToken = errors.New("invalid host token")
	ErrInvalidPayload   = errors.New("invalid payload")
	ErrUnsupportedEvent = errors.New("unsupported message type")

	// ErrParticipantNotFound is returned when a connection acts on a game it has not joined.
	ErrParticipantNotFound = errors.New("participant not found in game")
	// ErrSessionClosed is returned once the host has left and the game was cancelled.
	ErrSessionClosed = errors.New("game was cancelled")
	// ErrPersistence wraps failures of the result sinks.
	ErrPersistence = errors.New("persist game results")
)

// Kind classifies errors for propagation.
type Kind int

const (
	// KindInternal covers unexpected faults.
	KindInternal Kind = iota
	// KindProtocol is a recoverable out-of-state or malformed event.
	KindProtocol
	// KindNotFound is an unknown pin or quiz.
	KindNotFound
	// KindTerminal ends the session for everyone.
	KindTerminal
	// KindPersistence is logged and never surfaced to participants.
	KindPersistence
)

var catalog = []struct {
	err  error
	kind Kind
	code string
}{
	{ErrSessionNotFound, KindNotFound, "PIN_NOT_FOUND"},
	{ErrQuizNotFound, KindNotFound, "QUIZ_NOT_FOUND"},
	{ErrQuizEmpty, KindProtocol, "QUIZ_EMPTY"},
	{ErrInvalidQuiz, KindProtocol, "INVALID_QUIZ"},
	{ErrPinTaken, KindInternal, "PIN_TAKEN"},
	{ErrPinExhausted, KindInternal, "PIN_EXHAUSTED"},
	{ErrAlreadyStarted, KindProtocol, "ALREADY_STARTED"},
	{ErrNicknameTaken, KindProtocol, "NICKNAME_TAKEN"},
	{ErrInvalidNickname, KindProtocol, "INVALID_NICKNAME"},
	{ErrAlreadyJoined, KindProtocol, "ALREADY_JOINED"},
	{ErrNotHost, KindProtocol, "NOT_HOST"},
	{ErrNoPlayers, KindProtocol, "NO_PLAYERS"},
	{ErrNotPlaying, KindProtocol, "NOT_PLAYING"},
	{ErrNoActiveQuestion, KindProtocol, "NO_ACTIVE_QUESTION"},
	{ErrAlreadyAnswered, KindProtocol, "ALREADY_ANSWERED"},
	{ErrGameFinished, KindProtocol, "GAME_FINISHED"},
	{ErrInvalidHostToken, KindProtocol, "INVALID_HOST_TOKEN"},
	{ErrInvalidPayload, KindProtocol, "INVALID_PAYLOAD"},
	{ErrUnsupportedEvent, KindProtocol, "UNSUPPORTED_EVENT"},
	{ErrParticipantNotFound, KindProtocol, "NOT_JOINED"},
	{ErrSessionClosed, KindTerminal, "GAME_CANCELLED"},
	{ErrPersistence, KindPersistence, "PERSISTENCE_FAILED"},
}

// KindOf returns the taxonomy class of err.
func KindOf(err error) Kind {
	for _, entry := range catalog {
		if errors.Is(err, entry.err) {
			return entry.kind
		}
	}
	return KindInternal
}

// CodeOf returns the stable machine code sent to clients for err.
func CodeOf(err error) string {
	for _, entry := range catalog {
		if errors.Is(err, entry.err) {
			return entry.code
		}
	}
	return "INTERNAL_ERROR"
}
