package app_test

import (
	"sync"
	"time"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
)

// fakeScheduler records timers so tests decide when they fire.
type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	wasActive := !t.stopped && !t.fired
	t.stopped = true
	return wasActive
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) app.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{d: d, f: f}
	s.timers = append(s.timers, t)
	return t
}

// pending returns armed timers that were neither stopped nor fired.
func (s *fakeScheduler) pending() []*fakeTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*fakeTimer
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			out = append(out, t)
		}
	}
	return out
}

// fireNext runs the oldest pending timer with the given duration.
func (s *fakeScheduler) fireNext(d time.Duration) bool {
	for _, t := range s.pending() {
		if t.d == d {
			t.fired = true
			t.f()
			return true
		}
	}
	return false
}

type sentEvent struct {
	to      app.Audience
	event   string
	payload any
}

// recorder is a Notifier that keeps every event.
type recorder struct {
	mu     sync.Mutex
	events []sentEvent
}

func (r *recorder) Notify(to app.Audience, event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, sentEvent{to: to, event: event, payload: payload})
}

func (r *recorder) byType(event string) []sentEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []sentEvent
	for _, e := range r.events {
		if e.event == event {
			out = append(out, e)
		}
	}
	return out
}

func (r *recorder) last(event string) (sentEvent, bool) {
	events := r.byType(event)
	if len(events) == 0 {
		return sentEvent{}, false
	}
	return events[len(events)-1], true
}

func (s sentEvent) reaches(id string) bool {
	for _, r := range s.to.Recipients {
		if r == id {
			return true
		}
	}
	return false
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func choiceQuestion(text string, correct int, options ...string) domain.Question {
	opts := make([]domain.Option, len(options))
	for i, o := range options {
		opts[i] = domain.Option{Text: o, Correct: i == correct}
	}
	return domain.Question{Text: text, TimeLimit: 10, Points: 1000, Kind: domain.ChoiceQuestion{Options: opts}}
}

func twoQuestionQuiz() domain.QuizSnapshot {
	return domain.QuizSnapshot{
		ID:    "quiz-1",
		Title: "Basics",
		Questions: []domain.Question{
			choiceQuestion("2+2?", 1, "3", "4", "5"),
			choiceQuestion("Capital of Italy?", 0, "Rome", "Milan"),
		},
	}
}

const leadIn = 3 * time.Second

type harness struct {
	sched   *fakeScheduler
	notes   *recorder
	clock   *clock
	session *app.Session
	results []domain.GameResult
}

func newHarness(quiz domain.QuizSnapshot) *harness {
	h := &harness{sched: &fakeScheduler{}, notes: &recorder{}, clock: newClock()}
	h.session = app.NewSession("123456", quiz, app.SessionConfig{
		GameID:    "game-1",
		Notifier:  h.notes,
		Scheduler: h.sched,
		Now:       h.clock.Now,
		LeadIn:    leadIn,
		Shuffle:   func(n int, swap func(i, j int)) { swap(0, n-1) },
		OnFinished: func(r domain.GameResult) {
			h.results = append(h.results, r)
		},
	})
	return h
}
