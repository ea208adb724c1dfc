package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/metrics"
	"live-quiz-service/internal/security"
)

const shutdownMessage = "The server is shutting down"

// ServiceConfig tunes the game lifecycle. Unset collaborators, timeouts and
// attempts fall back to defaults.
type ServiceConfig struct {
	Logger            *zap.Logger
	LeadIn            time.Duration
	FinishedRetention time.Duration
	PersistTimeout    time.Duration
	PinAttempts       int

	Scheduler Scheduler
	Now       func() time.Time
	NewPIN    func() (string, error)
	Shuffle   func(n int, swap func(i, j int))
}

func (c ServiceConfig) withDefaults() ServiceConfig {
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.LeadIn < 0 {
		c.LeadIn = 0
	}
	if c.FinishedRetention < 0 {
		c.FinishedRetention = 0
	}
	if c.PersistTimeout <= 0 {
		c.PersistTimeout = 10 * time.Second
	}
	if c.PinAttempts <= 0 {
		c.PinAttempts = 20
	}
	if c.Scheduler == nil {
		c.Scheduler = SystemScheduler()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.NewPIN == nil {
		c.NewPIN = RandomPIN
	}
	return c
}

// GameService contains the game use cases: creation, joining, play and teardown.
type GameService struct {
	sessions SessionRepository
	quizzes  QuizRepository
	sink     ResultSink
	notifier Notifier
	cfg      ServiceConfig
	logger   *zap.Logger

	// inflight counts result writes; idle is closed whenever it drops to zero.
	persistMu sync.Mutex
	inflight  int
	idle      chan struct{}

	evictMu sync.Mutex
}

func NewGameService(store SessionRepository, quizzes QuizRepository, sink ResultSink, notifier Notifier, cfg ServiceConfig) *GameService {
	cfg = cfg.withDefaults()
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &GameService{
		sessions: store,
		quizzes:  quizzes,
		sink:     sink,
		notifier: notifier,
		cfg:      cfg,
		logger:   cfg.Logger,
	}
}

// CreateGame snapshots the quiz and registers a waiting session under a fresh PIN.
func (s *GameService) CreateGame(ctx context.Context, quizID string) (domain.GameInfo, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.GameInfo{}, err
	}
	if err := quiz.Validate(); err != nil {
		return domain.GameInfo{}, err
	}

	gameID := uuid.NewString()
	for attempt := 0; attempt < s.cfg.PinAttempts; attempt++ {
		pin, err := s.cfg.NewPIN()
		if err != nil {
			return domain.GameInfo{}, err
		}
		session, err := s.sessions.Create(pin, quiz, s.sessionConfig(gameID))
		if errors.Is(err, domain.ErrPinTaken) {
			continue
		}
		if err != nil {
			return domain.GameInfo{}, fmt.Errorf("register session: %w", err)
		}

		metrics.GamesCreated.Inc()
		metrics.ActiveSessions.Inc()
		s.logger.Info("game created",
			zap.String("pin", pin),
			zap.String("game_id", gameID),
			zap.String("quiz_id", quiz.ID),
			zap.Int("questions", len(quiz.Questions)),
		)
		return session.Info(), nil
	}
	return domain.GameInfo{}, domain.ErrPinExhausted
}

// Lookup returns the live session registered under pin.
func (s *GameService) Lookup(pin string) (*Session, error) {
	session, ok := s.sessions.Get(pin)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// Check reports whether players can still join the game.
func (s *GameService) Check(pin string) (domain.GameInfo, error) {
	session, err := s.Lookup(pin)
	if err != nil {
		return domain.GameInfo{}, err
	}
	info := session.Info()
	if info.Status != domain.StatusWaiting {
		return info, domain.ErrAlreadyStarted
	}
	return info, nil
}

// Results returns the ranking of a live or recently finished game.
func (s *GameService) Results(pin string) (domain.Scoreboard, error) {
	session, err := s.Lookup(pin)
	if err != nil {
		return domain.Scoreboard{}, err
	}
	return session.Standings(), nil
}

func (s *GameService) HostJoin(pin, participantID string) (domain.HostJoinedPayload, error) {
	session, err := s.Lookup(pin)
	if err != nil {
		return domain.HostJoinedPayload{}, err
	}
	return session.AttachHost(participantID)
}

// PlayerJoin sanitizes the nickname and adds the player to a waiting game.
func (s *GameService) PlayerJoin(pin, participantID, nickname string) (domain.PlayerState, error) {
	session, err := s.Lookup(pin)
	if err != nil {
		return domain.PlayerState{}, err
	}
	if session.Status() != domain.StatusWaiting {
		return domain.PlayerState{}, domain.ErrAlreadyStarted
	}
	clean, err := security.SanitizeNickname(nickname)
	if err != nil {
		return domain.PlayerState{}, err
	}
	return session.Join(participantID, clean)
}

func (s *GameService) Start(pin, participantID string) error {
	session, err := s.Lookup(pin)
	if err != nil {
		return err
	}
	if err := session.Start(participantID); err != nil {
		return err
	}
	s.logger.Info("game started", zap.String("pin", pin), zap.Int("players", session.Info().PlayerCount))
	return nil
}

func (s *GameService) NextQuestion(pin, participantID string) error {
	session, err := s.Lookup(pin)
	if err != nil {
		return err
	}
	return session.NextQuestion(participantID)
}

func (s *GameService) Reveal(pin, participantID string) error {
	session, err := s.Lookup(pin)
	if err != nil {
		return err
	}
	return session.Reveal(participantID)
}

// SubmitAnswer records a player's answer to the active question.
func (s *GameService) SubmitAnswer(pin, participantID string, sub domain.Submission) (domain.AnswerAck, error) {
	session, err := s.Lookup(pin)
	if err != nil {
		return domain.AnswerAck{}, err
	}
	idx := session.CurrentQuestion()
	ack, err := session.SubmitAnswer(participantID, sub)
	if err != nil {
		return ack, err
	}
	qType := "unknown"
	if quiz := session.Quiz(); idx >= 0 && idx < len(quiz.Questions) {
		qType = string(quiz.Questions[idx].Type())
	}
	metrics.AnswersSubmitted.WithLabelValues(qType, strconv.FormatBool(ack.IsCorrect)).Inc()
	return ack, nil
}

// Leave handles a disconnect. A departing host tears the session down and
// removes it from the registry.
func (s *GameService) Leave(pin, participantID string) {
	session, ok := s.sessions.Get(pin)
	if !ok {
		return
	}
	hostLeft, cancelled := session.Leave(participantID)
	if !hostLeft {
		return
	}
	if cancelled {
		metrics.GamesEnded.WithLabelValues("cancelled").Inc()
		s.logger.Info("game cancelled by host", zap.String("pin", pin))
	}
	s.evict(pin, session.GameID())
}

// WaitForPersistence blocks until in-flight result writes complete or ctx is done.
func (s *GameService) WaitForPersistence(ctx context.Context) error {
	s.persistMu.Lock()
	idle := s.idle
	s.persistMu.Unlock()
	if idle == nil {
		return nil
	}
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown cancels every registered session and waits for pending result writes.
func (s *GameService) Shutdown(ctx context.Context) error {
	for _, session := range s.sessions.List() {
		if session.Cancel(shutdownMessage) {
			metrics.GamesEnded.WithLabelValues("cancelled").Inc()
		}
		s.evict(session.PIN(), session.GameID())
	}
	return s.WaitForPersistence(ctx)
}

func (s *GameService) sessionConfig(gameID string) SessionConfig {
	return SessionConfig{
		GameID:     gameID,
		Notifier:   s.notifier,
		Scheduler:  s.cfg.Scheduler,
		Now:        s.cfg.Now,
		LeadIn:     s.cfg.LeadIn,
		Shuffle:    s.cfg.Shuffle,
		OnFinished: s.onFinished,
	}
}

// onFinished runs under the session lock: it must only hand work off.
func (s *GameService) onFinished(result domain.GameResult) {
	metrics.GamesEnded.WithLabelValues("finished").Inc()
	s.logger.Info("game finished",
		zap.String("pin", result.PIN),
		zap.String("game_id", result.GameID),
		zap.Int("players", len(result.Players)),
	)
	s.persist(result)
	s.cfg.Scheduler.AfterFunc(s.cfg.FinishedRetention, func() {
		s.evict(result.PIN, result.GameID)
	})
}

func (s *GameService) persist(result domain.GameResult) {
	if s.sink == nil {
		return
	}
	s.beginPersist()
	go func() {
		defer s.endPersist()
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.PersistTimeout)
		defer cancel()
		if err := s.sink.SaveResults(ctx, result); err != nil {
			metrics.ResultSinkFailures.Inc()
			s.logger.Error("persist game results",
				zap.String("pin", result.PIN),
				zap.String("game_id", result.GameID),
				zap.Error(err),
			)
			return
		}
		s.logger.Debug("game results persisted", zap.String("game_id", result.GameID))
	}()
}

func (s *GameService) beginPersist() {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	if s.inflight == 0 {
		s.idle = make(chan struct{})
	}
	s.inflight++
}

func (s *GameService) endPersist() {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	s.inflight--
	if s.inflight == 0 {
		close(s.idle)
	}
}

// evict drops pin from the registry if it still maps to the same game.
func (s *GameService) evict(pin, gameID string) {
	s.evictMu.Lock()
	defer s.evictMu.Unlock()
	session, ok := s.sessions.Get(pin)
	if !ok || session.GameID() != gameID {
		return
	}
	s.sessions.Remove(pin)
	metrics.ActiveSessions.Dec()
}
