package app

import (
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/scoring"
)

const (
	leaderboardSize = 5
	podiumSize      = 3

	cancelledByHost = "The host left the game"
)

// SessionConfig carries the collaborators and tunables of a single session.
type SessionConfig struct {
	GameID     string
	Notifier   Notifier
	Scheduler  Scheduler
	Now        func() time.Time
	LeadIn     time.Duration
	Shuffle    func(n int, swap func(i, j int))
	OnFinished func(domain.GameResult)
}

// Session is the state machine of one running game. Every exported method
// holds the session mutex for its whole duration, and events are emitted
// while the lock is held so each audience observes them in order.
type Session struct {
	pin  string
	quiz domain.QuizSnapshot
	cfg  SessionConfig

	mu            sync.Mutex
	status        domain.GameStatus
	closed        bool
	hostID        string
	players       map[string]*domain.PlayerState
	joinSeq       int
	current       int
	questionStart time.Time
	questionOpen  bool
	revealed      bool
	answers       []map[string]domain.SubmittedAnswer
	timer         Timer
	timerSeq      uint64
	final         []domain.LeaderboardEntry
	finishedAt    time.Time
}

// NewSession creates a waiting session for the quiz snapshot.
func NewSession(pin string, quiz domain.QuizSnapshot, cfg SessionConfig) *Session {
	if cfg.GameID == "" {
		cfg.GameID = uuid.NewString()
	}
	if cfg.Notifier == nil {
		cfg.Notifier = nopNotifier{}
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = SystemScheduler()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Shuffle == nil {
		cfg.Shuffle = rand.Shuffle
	}
	answers := make([]map[string]domain.SubmittedAnswer, len(quiz.Questions))
	for i := range answers {
		answers[i] = make(map[string]domain.SubmittedAnswer)
	}
	return &Session{
		pin:     pin,
		quiz:    quiz,
		cfg:     cfg,
		status:  domain.StatusWaiting,
		players: make(map[string]*domain.PlayerState),
		current: -1,
		answers: answers,
	}
}

func (s *Session) PIN() string               { return s.pin }
func (s *Session) GameID() string            { return s.cfg.GameID }
func (s *Session) Quiz() domain.QuizSnapshot { return s.quiz }

// Info returns a summary of the session.
func (s *Session) Info() domain.GameInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.infoLocked()
}

func (s *Session) Status() domain.GameStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// CurrentQuestion returns the index of the active question, -1 before the first one.
func (s *Session) CurrentQuestion() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *Session) Player(participantID string) (domain.PlayerState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[participantID]
	if !ok {
		return domain.PlayerState{}, false
	}
	return clonePlayer(p), true
}

// Answer returns the ledger entry of a participant for a question.
func (s *Session) Answer(participantID string, question int) (domain.SubmittedAnswer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if question < 0 || question >= len(s.answers) {
		return domain.SubmittedAnswer{}, false
	}
	a, ok := s.answers[question][participantID]
	return a, ok
}

// Standings returns the full ranking: the frozen final one once the game is
// finished, the live one otherwise.
func (s *Session) Standings() domain.Scoreboard {
	s.mu.Lock()
	defer s.mu.Unlock()
	players := s.final
	if s.status != domain.StatusFinished {
		players = s.rankLocked(0)
	}
	return domain.Scoreboard{
		QuizTitle:      s.quiz.Title,
		TotalQuestions: len(s.quiz.Questions),
		Status:         s.status,
		Players:        players,
	}
}

// AttachHost registers the connection that drives the session.
func (s *Session) AttachHost(participantID string) (domain.HostJoinedPayload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.HostJoinedPayload{}, domain.ErrSessionClosed
	}
	if _, isPlayer := s.players[participantID]; isPlayer {
		return domain.HostJoinedPayload{}, domain.ErrAlreadyJoined
	}
	s.hostID = participantID

	ack := domain.HostJoinedPayload{
		PIN:           s.pin,
		GameID:        s.cfg.GameID,
		QuizTitle:     s.quiz.Title,
		QuestionCount: len(s.quiz.Questions),
		PlayerCount:   len(s.players),
	}
	s.notifyLocked(s.only(participantID), domain.EventHostJoined, ack)
	if len(s.players) > 0 {
		s.notifyRosterLocked()
	}
	return ack, nil
}

// Join adds a player while the session is waiting. Nicknames are unique
// ignoring case.
func (s *Session) Join(participantID, nickname string) (domain.PlayerState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.PlayerState{}, domain.ErrSessionClosed
	}
	if s.status != domain.StatusWaiting {
		return domain.PlayerState{}, domain.ErrAlreadyStarted
	}
	if participantID == s.hostID {
		return domain.PlayerState{}, domain.ErrAlreadyJoined
	}
	if _, ok := s.players[participantID]; ok {
		return domain.PlayerState{}, domain.ErrAlreadyJoined
	}
	for _, p := range s.players {
		if strings.EqualFold(p.Nickname, nickname) {
			return domain.PlayerState{}, domain.ErrNicknameTaken
		}
	}

	s.joinSeq++
	player := &domain.PlayerState{
		ID:       participantID,
		Nickname: nickname,
		JoinSeq:  s.joinSeq,
		History:  []domain.AnsweredQuestion{},
	}
	s.players[participantID] = player

	s.notifyLocked(s.only(participantID), domain.EventPlayerJoined, domain.PlayerJoinedPayload{
		PIN:         s.pin,
		Nickname:    nickname,
		PlayerCount: len(s.players),
	})
	s.notifyRosterLocked()
	return clonePlayer(player), nil
}

// Start moves the session to playing and arms the lead-in before the first question.
func (s *Session) Start(participantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrSessionClosed
	}
	if s.hostID == "" || participantID != s.hostID {
		return domain.ErrNotHost
	}
	if s.status != domain.StatusWaiting {
		return domain.ErrAlreadyStarted
	}
	if len(s.players) == 0 {
		return domain.ErrNoPlayers
	}

	s.status = domain.StatusPlaying
	s.notifyLocked(s.everyone(), domain.EventGameStarted, domain.StartedPayload{
		LeadInMs:    s.cfg.LeadIn.Milliseconds(),
		PlayerCount: len(s.players),
	})
	s.armLocked(s.cfg.LeadIn, func() {
		if s.current == -1 {
			s.advanceLocked()
		}
	})
	return nil
}

// NextQuestion lets the host advance without waiting for a timer.
func (s *Session) NextQuestion(participantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.hostActionAllowedLocked(participantID); err != nil {
		return err
	}
	s.advanceLocked()
	return nil
}

// Reveal closes the active question and broadcasts its results. Calling it
// again for the same question is a no-op.
func (s *Session) Reveal(participantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.hostActionAllowedLocked(participantID); err != nil {
		return err
	}
	if s.current < 0 {
		return domain.ErrNoActiveQuestion
	}
	s.revealLocked()
	return nil
}

// SubmitAnswer scores a player's answer to the active question. At most one
// answer per player and question is accepted.
func (s *Session) SubmitAnswer(participantID string, sub domain.Submission) (domain.AnswerAck, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.closed:
		return domain.AnswerAck{}, domain.ErrSessionClosed
	case s.status == domain.StatusWaiting:
		return domain.AnswerAck{}, domain.ErrNotPlaying
	case s.status == domain.StatusFinished:
		return domain.AnswerAck{}, domain.ErrGameFinished
	}
	player, ok := s.players[participantID]
	if !ok {
		return domain.AnswerAck{}, domain.ErrParticipantNotFound
	}
	if !s.questionOpen {
		return domain.AnswerAck{}, domain.ErrNoActiveQuestion
	}
	ledger := s.answers[s.current]
	if _, dup := ledger[participantID]; dup {
		return domain.AnswerAck{}, domain.ErrAlreadyAnswered
	}

	question := s.quiz.Questions[s.current]
	elapsed := s.cfg.Now().Sub(s.questionStart)
	if elapsed < 0 {
		elapsed = 0
	}
	result := scoring.Score(question, sub, elapsed)
	survey := question.Type() == domain.TypeSurvey

	if !survey {
		if result.IsCorrect {
			player.Score += result.Points
			player.Streak++
		} else {
			player.Streak = 0
		}
	}
	player.History = append(player.History, domain.AnsweredQuestion{
		QuestionIndex: s.current,
		IsCorrect:     result.IsCorrect,
		Points:        result.Points,
	})
	ledger[participantID] = domain.SubmittedAnswer{
		Submission: sub,
		IsCorrect:  result.IsCorrect,
		Points:     result.Points,
		ElapsedMs:  elapsed.Milliseconds(),
	}

	ack := domain.AnswerAck{
		IsCorrect:  result.IsCorrect,
		Points:     result.Points,
		TotalScore: player.Score,
		Streak:     player.Streak,
		IsSurvey:   survey,
	}
	s.notifyLocked(s.only(participantID), domain.EventAnswerAck, ack)
	s.notifyLocked(s.host(), domain.EventAnswerTally, domain.AnswerTally{Count: len(ledger), Total: len(s.players)})
	return ack, nil
}

// Leave removes a participant. When the host leaves an unfinished game the
// session is cancelled for everyone; cancelled reports whether that happened.
func (s *Session) Leave(participantID string) (hostLeft, cancelled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hostID != "" && participantID == s.hostID {
		s.hostID = ""
		if s.closed {
			return true, false
		}
		s.closed = true
		s.disarmLocked()
		if s.status == domain.StatusFinished {
			return true, false
		}
		s.notifyLocked(s.playersOnly(), domain.EventCancelled, domain.CancelledPayload{Message: cancelledByHost})
		return true, true
	}

	if _, ok := s.players[participantID]; !ok {
		return false, false
	}
	delete(s.players, participantID)
	if s.closed {
		return false, false
	}
	s.notifyRosterLocked()
	if s.questionOpen {
		s.notifyLocked(s.host(), domain.EventAnswerTally, domain.AnswerTally{
			Count: len(s.answers[s.current]),
			Total: len(s.players),
		})
	}
	return false, false
}

// Cancel tears the session down without a host action, e.g. on shutdown.
func (s *Session) Cancel(message string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	s.closed = true
	s.disarmLocked()
	if s.status == domain.StatusFinished {
		return false
	}
	s.notifyLocked(s.everyone(), domain.EventCancelled, domain.CancelledPayload{Message: message})
	return true
}

func (s *Session) hostActionAllowedLocked(participantID string) error {
	if s.closed {
		return domain.ErrSessionClosed
	}
	if s.hostID == "" || participantID != s.hostID {
		return domain.ErrNotHost
	}
	switch s.status {
	case domain.StatusWaiting:
		return domain.ErrNotPlaying
	case domain.StatusFinished:
		return domain.ErrGameFinished
	}
	return nil
}

func (s *Session) advanceLocked() {
	if s.status != domain.StatusPlaying {
		return
	}
	s.disarmLocked()
	s.closeQuestionLocked()

	s.current++
	if s.current >= len(s.quiz.Questions) {
		s.finishLocked()
		return
	}

	s.questionStart = s.cfg.Now()
	s.questionOpen = true
	s.revealed = false

	view, hostView := s.questionViewsLocked(s.current)
	s.notifyLocked(s.host(), domain.EventHostQuestion, hostView)
	s.notifyLocked(s.playersOnly(), domain.EventQuestion, view)

	idx := s.current
	s.armLocked(s.quiz.Questions[idx].TimeLimitDuration(), func() {
		if s.current == idx {
			s.revealLocked()
		}
	})
}

// closeQuestionLocked stops accepting answers for the active question and
// breaks the streak of every player who did not answer it.
func (s *Session) closeQuestionLocked() {
	if !s.questionOpen {
		return
	}
	s.questionOpen = false
	if s.quiz.Questions[s.current].Type() == domain.TypeSurvey {
		return
	}
	ledger := s.answers[s.current]
	for id, p := range s.players {
		if _, answered := ledger[id]; !answered {
			p.Streak = 0
		}
	}
}

func (s *Session) revealLocked() {
	if s.current < 0 || s.current >= len(s.quiz.Questions) || s.revealed {
		return
	}
	s.disarmLocked()
	s.closeQuestionLocked()
	s.revealed = true

	question := s.quiz.Questions[s.current]
	results := domain.QuestionResults{
		QuestionIndex:  s.current,
		Type:           question.Type(),
		CorrectAnswers: []int{},
		AnswerStats:    s.answerStatsLocked(s.current),
		Leaderboard:    s.rankLocked(leaderboardSize),
		IsLastQuestion: s.current == len(s.quiz.Questions)-1,
		IsSurvey:       question.Type() == domain.TypeSurvey,
	}
	switch kind := question.Kind.(type) {
	case domain.ChoiceQuestion:
		results.CorrectAnswers = correctIndexes(kind.Options)
	case domain.PuzzleQuestion:
		answer := kind.CorrectAnswer
		results.CorrectAnswer = &answer
	case domain.OrderingQuestion:
		results.CorrectOrder = append([]string(nil), kind.Items...)
	}
	s.notifyLocked(s.everyone(), domain.EventResults, results)
}

func (s *Session) finishLocked() {
	s.status = domain.StatusFinished
	s.questionOpen = false
	s.disarmLocked()
	s.finishedAt = s.cfg.Now()
	s.final = s.rankLocked(0)

	podium := s.final[:min(podiumSize, len(s.final))]
	s.notifyLocked(s.everyone(), domain.EventGameEnded, domain.GameSummary{
		Podium:         podium,
		Leaderboard:    s.final,
		QuizTitle:      s.quiz.Title,
		TotalQuestions: len(s.quiz.Questions),
	})
	if s.cfg.OnFinished != nil {
		s.cfg.OnFinished(s.resultLocked())
	}
}

// armLocked replaces the pending timer. A timer that fires after being
// replaced or stopped finds a different sequence number and does nothing.
func (s *Session) armLocked(d time.Duration, fire func()) {
	s.disarmLocked()
	seq := s.timerSeq
	s.timer = s.cfg.Scheduler.AfterFunc(d, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed || seq != s.timerSeq {
			return
		}
		s.timer = nil
		fire()
	})
}

func (s *Session) disarmLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.timerSeq++
}

func (s *Session) questionViewsLocked(idx int) (domain.QuestionView, domain.HostQuestionView) {
	question := s.quiz.Questions[idx]
	view := domain.QuestionView{
		Index:     idx,
		Total:     len(s.quiz.Questions),
		Text:      question.Text,
		TimeLimit: question.TimeLimit,
		Type:      question.Type(),
		Points:    question.Points,
		Answers:   []domain.AnswerView{},
	}
	host := domain.HostQuestionView{CorrectAnswers: []int{}}

	switch kind := question.Kind.(type) {
	case domain.ChoiceQuestion:
		view.Answers = optionViews(kind.Options)
		host.CorrectAnswers = correctIndexes(kind.Options)
	case domain.SurveyQuestion:
		view.Answers = optionViews(kind.Options)
	case domain.PuzzleQuestion:
		answer, caseSensitive := kind.CorrectAnswer, kind.CaseSensitive
		host.CorrectAnswer = &answer
		host.CaseSensitive = &caseSensitive
	case domain.OrderingQuestion:
		shuffled := append([]string(nil), kind.Items...)
		s.cfg.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		view.Answers = make([]domain.AnswerView, len(shuffled))
		for i, item := range shuffled {
			view.Answers[i] = domain.AnswerView{Index: i, Text: item}
		}
		host.CorrectOrder = append([]string(nil), kind.Items...)
	}
	host.QuestionView = view
	return view, host
}

func (s *Session) answerStatsLocked(idx int) []domain.AnswerStat {
	ledger := s.answers[idx]
	var options []domain.Option
	switch kind := s.quiz.Questions[idx].Kind.(type) {
	case domain.ChoiceQuestion:
		options = kind.Options
	case domain.SurveyQuestion:
		options = kind.Options
	case domain.PuzzleQuestion, domain.OrderingQuestion:
		correct := 0
		for _, a := range ledger {
			if a.IsCorrect {
				correct++
			}
		}
		return []domain.AnswerStat{
			{Index: 0, Text: "Correct", Count: correct},
			{Index: 1, Text: "Incorrect", Count: len(ledger) - correct},
		}
	default:
		return []domain.AnswerStat{}
	}

	stats := make([]domain.AnswerStat, len(options))
	for i, o := range options {
		stats[i] = domain.AnswerStat{Index: i, Text: o.Text}
	}
	for _, a := range ledger {
		if a.AnswerIndex == nil {
			continue
		}
		if i := *a.AnswerIndex; i >= 0 && i < len(stats) {
			stats[i].Count++
		}
	}
	return stats
}

// rankLocked orders players by score descending, ties by join order. A
// positive limit truncates the result.
func (s *Session) rankLocked(limit int) []domain.LeaderboardEntry {
	ordered := s.playersByJoinLocked()
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Score > ordered[j].Score
	})
	if limit > 0 && len(ordered) > limit {
		ordered = ordered[:limit]
	}
	entries := make([]domain.LeaderboardEntry, len(ordered))
	for i, p := range ordered {
		entries[i] = domain.LeaderboardEntry{
			Rank:     i + 1,
			PlayerID: p.ID,
			Nickname: p.Nickname,
			Score:    p.Score,
		}
	}
	return entries
}

func (s *Session) playersByJoinLocked() []*domain.PlayerState {
	ordered := make([]*domain.PlayerState, 0, len(s.players))
	for _, p := range s.players {
		ordered = append(ordered, p)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].JoinSeq < ordered[j].JoinSeq
	})
	return ordered
}

func (s *Session) notifyRosterLocked() {
	ordered := s.playersByJoinLocked()
	roster := make([]domain.RosterEntry, len(ordered))
	for i, p := range ordered {
		roster[i] = domain.RosterEntry{Nickname: p.Nickname, Score: p.Score}
	}
	s.notifyLocked(s.host(), domain.EventRoster, domain.RosterPayload{Players: roster, PlayerCount: len(roster)})
}

func (s *Session) resultLocked() domain.GameResult {
	players := make([]domain.PlayerResult, len(s.final))
	for i, e := range s.final {
		players[i] = domain.PlayerResult{PlayerID: e.PlayerID, Nickname: e.Nickname, Score: e.Score, Rank: e.Rank}
	}
	return domain.GameResult{
		GameID:     s.cfg.GameID,
		PIN:        s.pin,
		QuizID:     s.quiz.ID,
		QuizTitle:  s.quiz.Title,
		Status:     s.status,
		FinishedAt: s.finishedAt,
		Players:    players,
	}
}

func (s *Session) infoLocked() domain.GameInfo {
	return domain.GameInfo{
		GameID:        s.cfg.GameID,
		PIN:           s.pin,
		QuizID:        s.quiz.ID,
		QuizTitle:     s.quiz.Title,
		QuestionCount: len(s.quiz.Questions),
		PlayerCount:   len(s.players),
		Status:        s.status,
	}
}

func (s *Session) notifyLocked(to Audience, event string, payload any) {
	if len(to.Recipients) == 0 {
		return
	}
	s.cfg.Notifier.Notify(to, event, payload)
}

func (s *Session) host() Audience {
	if s.hostID == "" {
		return Audience{Scope: ScopeHost}
	}
	return Audience{Scope: ScopeHost, Recipients: []string{s.hostID}}
}

func (s *Session) only(participantID string) Audience {
	return Audience{Scope: ScopeParticipant, Recipients: []string{participantID}}
}

func (s *Session) playersOnly() Audience {
	ordered := s.playersByJoinLocked()
	ids := make([]string, len(ordered))
	for i, p := range ordered {
		ids[i] = p.ID
	}
	return Audience{Scope: ScopePlayers, Recipients: ids}
}

func (s *Session) everyone() Audience {
	players := s.playersOnly()
	ids := make([]string, 0, len(players.Recipients)+1)
	if s.hostID != "" {
		ids = append(ids, s.hostID)
	}
	ids = append(ids, players.Recipients...)
	return Audience{Scope: ScopeAll, Recipients: ids}
}

func optionViews(options []domain.Option) []domain.AnswerView {
	views := make([]domain.AnswerView, len(options))
	for i, o := range options {
		views[i] = domain.AnswerView{Index: i, Text: o.Text}
	}
	return views
}

func correctIndexes(options []domain.Option) []int {
	idx := []int{}
	for i, o := range options {
		if o.Correct {
			idx = append(idx, i)
		}
	}
	return idx
}

func clonePlayer(p *domain.PlayerState) domain.PlayerState {
	out := *p
	out.History = append(make([]domain.AnsweredQuestion, 0, len(p.History)), p.History...)
	return out
}
