package app_test

import (
	"errors"
	"testing"
	"time"

	"live-quiz-service/internal/domain"
)

func TestEndToEndTwoQuestionGame(t *testing.T) {
	h := newHarness(twoQuestionQuiz())
	s := h.session

	if _, err := s.AttachHost("host"); err != nil {
		t.Fatalf("attach host: %v", err)
	}
	if _, err := s.Join("p1", "Alice"); err != nil {
		t.Fatalf("join alice: %v", err)
	}
	if _, err := s.Join("p2", "Bob"); err != nil {
		t.Fatalf("join bob: %v", err)
	}
	if err := s.Start("host"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if s.CurrentQuestion() != -1 {
		t.Fatalf("first question must wait for the lead-in")
	}
	if !h.sched.fireNext(leadIn) {
		t.Fatalf("expected lead-in timer")
	}
	if s.CurrentQuestion() != 0 {
		t.Fatalf("expected question 0 after lead-in, got %d", s.CurrentQuestion())
	}

	ack, err := s.SubmitAnswer("p1", domain.Submission{AnswerIndex: intPtr(1)})
	if err != nil {
		t.Fatalf("alice answer: %v", err)
	}
	if !ack.IsCorrect || ack.Points != 1000 || ack.TotalScore != 1000 {
		t.Fatalf("expected alice to get 1000, got %+v", ack)
	}
	ack, err = s.SubmitAnswer("p2", domain.Submission{AnswerIndex: intPtr(0)})
	if err != nil {
		t.Fatalf("bob answer: %v", err)
	}
	if ack.IsCorrect || ack.Points != 0 {
		t.Fatalf("expected bob to get 0, got %+v", ack)
	}

	if err := s.Reveal("host"); err != nil {
		t.Fatalf("reveal: %v", err)
	}
	ev, ok := h.notes.last(domain.EventResults)
	if !ok {
		t.Fatalf("expected results event")
	}
	res := ev.payload.(domain.QuestionResults)
	if len(res.Leaderboard) != 2 ||
		res.Leaderboard[0].Nickname != "Alice" || res.Leaderboard[0].Score != 1000 ||
		res.Leaderboard[1].Nickname != "Bob" || res.Leaderboard[1].Score != 0 {
		t.Fatalf("unexpected leaderboard %+v", res.Leaderboard)
	}
	if res.IsLastQuestion || res.AnswerStats[0].Count != 1 || res.AnswerStats[1].Count != 1 {
		t.Fatalf("unexpected results %+v", res)
	}

	if err := s.NextQuestion("host"); err != nil {
		t.Fatalf("next: %v", err)
	}
	if !h.sched.fireNext(10 * time.Second) {
		t.Fatalf("expected question timer")
	}
	ev, _ = h.notes.last(domain.EventResults)
	res = ev.payload.(domain.QuestionResults)
	if res.QuestionIndex != 1 || !res.IsLastQuestion {
		t.Fatalf("expected auto reveal of last question, got %+v", res)
	}
	for _, stat := range res.AnswerStats {
		if stat.Count != 0 {
			t.Fatalf("expected empty stats, got %+v", res.AnswerStats)
		}
	}

	if err := s.NextQuestion("host"); err != nil {
		t.Fatalf("final advance: %v", err)
	}
	if s.Status() != domain.StatusFinished {
		t.Fatalf("expected finished, got %s", s.Status())
	}
	ev, ok = h.notes.last(domain.EventGameEnded)
	if !ok {
		t.Fatalf("expected game ended event")
	}
	summary := ev.payload.(domain.GameSummary)
	if len(summary.Podium) != 2 || summary.Podium[0].Nickname != "Alice" || summary.Podium[1].Nickname != "Bob" {
		t.Fatalf("unexpected podium %+v", summary.Podium)
	}
	if !ev.reaches("host") || !ev.reaches("p1") || !ev.reaches("p2") {
		t.Fatalf("summary must reach everyone, got %v", ev.to.Recipients)
	}
	if len(h.results) != 1 || h.results[0].Players[0].Score != 1000 || h.results[0].Status != domain.StatusFinished {
		t.Fatalf("unexpected finished result %+v", h.results)
	}

	if err := s.NextQuestion("host"); !errors.Is(err, domain.ErrGameFinished) {
		t.Fatalf("expected ErrGameFinished, got %v", err)
	}
}

func TestJoinRules(t *testing.T) {
	h := newHarness(twoQuestionQuiz())
	s := h.session
	_, _ = s.AttachHost("host")

	if err := s.Start("host"); !errors.Is(err, domain.ErrNoPlayers) {
		t.Fatalf("expected ErrNoPlayers, got %v", err)
	}
	if _, err := s.Join("p1", "Alice"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := s.Join("p2", "ALICE"); !errors.Is(err, domain.ErrNicknameTaken) {
		t.Fatalf("expected ErrNicknameTaken, got %v", err)
	}
	if _, err := s.Join("p1", "Other"); !errors.Is(err, domain.ErrAlreadyJoined) {
		t.Fatalf("expected ErrAlreadyJoined, got %v", err)
	}
	if err := s.Start("p1"); !errors.Is(err, domain.ErrNotHost) {
		t.Fatalf("expected ErrNotHost, got %v", err)
	}

	roster, ok := h.notes.last(domain.EventRoster)
	if !ok || !roster.reaches("host") || roster.reaches("p1") {
		t.Fatalf("roster must go to the host only")
	}
	if got := roster.payload.(domain.RosterPayload); got.PlayerCount != 1 || got.Players[0].Nickname != "Alice" {
		t.Fatalf("unexpected roster %+v", got)
	}

	if err := s.Start("host"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := s.Join("p3", "Carol"); !errors.Is(err, domain.ErrAlreadyStarted) {
		t.Fatalf("expected ErrAlreadyStarted, got %v", err)
	}
	if err := s.Start("host"); !errors.Is(err, domain.ErrAlreadyStarted) {
		t.Fatalf("expected second start to fail, got %v", err)
	}
}

func TestNicknameReleasedOnLeave(t *testing.T) {
	h := newHarness(twoQuestionQuiz())
	s := h.session
	_, _ = s.AttachHost("host")
	_, _ = s.Join("p1", "Alice")

	if hostLeft, _ := s.Leave("p1"); hostLeft {
		t.Fatalf("player leave must not be reported as host leave")
	}
	if _, err := s.Join("p2", "alice"); err != nil {
		t.Fatalf("expected nickname to be free again: %v", err)
	}
}

func TestDuplicateAnswerRejected(t *testing.T) {
	h := startedGame(t, twoQuestionQuiz(), "Alice")
	s := h.session

	if _, err := s.SubmitAnswer("p1", domain.Submission{AnswerIndex: intPtr(1)}); err != nil {
		t.Fatalf("answer: %v", err)
	}
	h.clock.Advance(time.Second)
	if _, err := s.SubmitAnswer("p1", domain.Submission{AnswerIndex: intPtr(0)}); !errors.Is(err, domain.ErrAlreadyAnswered) {
		t.Fatalf("expected ErrAlreadyAnswered, got %v", err)
	}
	p, _ := s.Player("p1")
	if p.Score != 1000 {
		t.Fatalf("score must not change, got %d", p.Score)
	}
	stored, ok := s.Answer("p1", 0)
	if !ok || *stored.AnswerIndex != 1 || stored.ElapsedMs != 0 {
		t.Fatalf("stored answer must not change, got %+v", stored)
	}

	tally, ok := h.notes.last(domain.EventAnswerTally)
	if !ok || !tally.reaches("host") || tally.reaches("p1") {
		t.Fatalf("tally must go to the host only")
	}
	if got := tally.payload.(domain.AnswerTally); got.Count != 1 || got.Total != 1 {
		t.Fatalf("unexpected tally %+v", got)
	}
}

func TestAnswerRequiresActiveQuestion(t *testing.T) {
	h := newHarness(twoQuestionQuiz())
	s := h.session
	_, _ = s.AttachHost("host")
	_, _ = s.Join("p1", "Alice")

	if _, err := s.SubmitAnswer("p1", domain.Submission{AnswerIndex: intPtr(1)}); !errors.Is(err, domain.ErrNotPlaying) {
		t.Fatalf("expected ErrNotPlaying before start, got %v", err)
	}
	_ = s.Start("host")
	if _, err := s.SubmitAnswer("p1", domain.Submission{AnswerIndex: intPtr(1)}); !errors.Is(err, domain.ErrNoActiveQuestion) {
		t.Fatalf("expected ErrNoActiveQuestion during lead-in, got %v", err)
	}
	h.sched.fireNext(leadIn)
	if _, err := s.SubmitAnswer("stranger", domain.Submission{AnswerIndex: intPtr(1)}); !errors.Is(err, domain.ErrParticipantNotFound) {
		t.Fatalf("expected ErrParticipantNotFound, got %v", err)
	}

	_ = s.Reveal("host")
	if _, err := s.SubmitAnswer("p1", domain.Submission{AnswerIndex: intPtr(1)}); !errors.Is(err, domain.ErrNoActiveQuestion) {
		t.Fatalf("expected answers after reveal to be rejected, got %v", err)
	}
}

func TestTimeDecayUsesSessionClock(t *testing.T) {
	h := startedGame(t, twoQuestionQuiz(), "Alice")
	h.clock.Advance(10 * time.Second)
	ack, err := h.session.SubmitAnswer("p1", domain.Submission{AnswerIndex: intPtr(1)})
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if ack.Points != 500 {
		t.Fatalf("expected half points at the limit, got %d", ack.Points)
	}
}

func TestLeaderboardStableOrdering(t *testing.T) {
	q := func() domain.Question {
		return domain.Question{Text: "x", TimeLimit: 10, Points: 10, Kind: domain.ChoiceQuestion{Options: []domain.Option{{Text: "a", Correct: true}, {Text: "b"}}}}
	}
	quiz := domain.QuizSnapshot{ID: "q", Title: "Ties", Questions: []domain.Question{q(), q(), q()}}
	h := startedGame(t, quiz, "A", "B", "C", "D")
	s := h.session

	// correct answers per question: A 3, B 1, C 3, D 2 -> 30, 10, 30, 20
	plan := map[string]int{"p1": 3, "p2": 1, "p3": 3, "p4": 2}
	for question := 0; question < 3; question++ {
		for _, id := range []string{"p1", "p2", "p3", "p4"} {
			choice := 1
			if question < plan[id] {
				choice = 0
			}
			if _, err := s.SubmitAnswer(id, domain.Submission{AnswerIndex: intPtr(choice)}); err != nil {
				t.Fatalf("answer %s q%d: %v", id, question, err)
			}
		}
		if err := s.NextQuestion("host"); err != nil {
			t.Fatalf("next: %v", err)
		}
	}

	board := s.Standings()
	want := []struct {
		nick  string
		score int
	}{{"A", 30}, {"C", 30}, {"D", 20}, {"B", 10}}
	if len(board.Players) != len(want) {
		t.Fatalf("unexpected standings %+v", board.Players)
	}
	for i, w := range want {
		got := board.Players[i]
		if got.Nickname != w.nick || got.Score != w.score || got.Rank != i+1 {
			t.Fatalf("position %d: want %s/%d, got %+v", i, w.nick, w.score, got)
		}
	}
	if board.Status != domain.StatusFinished {
		t.Fatalf("expected finished standings, got %s", board.Status)
	}
}

func TestSurveyNeverTouchesStreak(t *testing.T) {
	quiz := domain.QuizSnapshot{ID: "q", Questions: []domain.Question{
		choiceQuestion("warmup", 0, "yes", "no"),
		{Text: "mood", TimeLimit: 10, Kind: domain.SurveyQuestion{Options: []domain.Option{{Text: "good"}, {Text: "bad"}}}},
		choiceQuestion("last", 0, "yes", "no"),
	}}
	h := startedGame(t, quiz, "Alice", "Bob")
	s := h.session

	_, _ = s.SubmitAnswer("p1", domain.Submission{AnswerIndex: intPtr(0)})
	_, _ = s.SubmitAnswer("p2", domain.Submission{AnswerIndex: intPtr(0)})
	_ = s.NextQuestion("host")

	ack, err := s.SubmitAnswer("p1", domain.Submission{AnswerIndex: intPtr(1)})
	if err != nil {
		t.Fatalf("survey answer: %v", err)
	}
	if !ack.IsCorrect || ack.Points != 0 || !ack.IsSurvey || ack.Streak != 1 {
		t.Fatalf("unexpected survey ack %+v", ack)
	}
	// Bob skips the survey: his streak must survive.
	_ = s.Reveal("host")
	ev, _ := h.notes.last(domain.EventResults)
	res := ev.payload.(domain.QuestionResults)
	if !res.IsSurvey || len(res.CorrectAnswers) != 0 || res.AnswerStats[1].Count != 1 {
		t.Fatalf("unexpected survey results %+v", res)
	}
	if p, _ := s.Player("p2"); p.Streak != 1 {
		t.Fatalf("skipping a survey must not break the streak, got %d", p.Streak)
	}
}

func TestUnansweredQuestionResetsStreak(t *testing.T) {
	h := startedGame(t, twoQuestionQuiz(), "Alice")
	s := h.session

	_, _ = s.SubmitAnswer("p1", domain.Submission{AnswerIndex: intPtr(1)})
	_ = s.NextQuestion("host")
	if p, _ := s.Player("p1"); p.Streak != 1 {
		t.Fatalf("expected streak 1, got %d", p.Streak)
	}
	h.sched.fireNext(10 * time.Second)
	if p, _ := s.Player("p1"); p.Streak != 0 {
		t.Fatalf("expected streak reset after unanswered question, got %d", p.Streak)
	}
}

func TestRevealIsIdempotentAndStaleTimersAreNoops(t *testing.T) {
	h := startedGame(t, twoQuestionQuiz(), "Alice")
	s := h.session

	timers := h.sched.pending()
	if len(timers) != 1 {
		t.Fatalf("expected one question timer, got %d", len(timers))
	}
	stale := timers[0]

	if err := s.Reveal("host"); err != nil {
		t.Fatalf("reveal: %v", err)
	}
	if err := s.Reveal("host"); err != nil {
		t.Fatalf("second reveal: %v", err)
	}
	// the stopped timer fires anyway, as a racing runtime timer could
	stale.f()
	if got := len(h.notes.byType(domain.EventResults)); got != 1 {
		t.Fatalf("expected exactly one results broadcast, got %d", got)
	}

	_ = s.NextQuestion("host")
	stale.f()
	if s.CurrentQuestion() != 1 || len(h.notes.byType(domain.EventResults)) != 1 {
		t.Fatalf("stale timer must not reveal question 1")
	}
}

func TestHostOnlyActions(t *testing.T) {
	h := startedGame(t, twoQuestionQuiz(), "Alice")
	s := h.session
	if err := s.Reveal("p1"); !errors.Is(err, domain.ErrNotHost) {
		t.Fatalf("expected ErrNotHost for reveal, got %v", err)
	}
	if err := s.NextQuestion("p1"); !errors.Is(err, domain.ErrNotHost) {
		t.Fatalf("expected ErrNotHost for next, got %v", err)
	}
}

func TestQuestionViews(t *testing.T) {
	quiz := domain.QuizSnapshot{ID: "q", Questions: []domain.Question{
		{Text: "order", TimeLimit: 10, Points: 100, Kind: domain.OrderingQuestion{Items: []string{"A", "B", "C"}}},
		{Text: "capital", TimeLimit: 10, Points: 100, Kind: domain.PuzzleQuestion{CorrectAnswer: "Paris"}},
	}}
	h := startedGame(t, quiz, "Alice")
	s := h.session

	playerEv, ok := h.notes.last(domain.EventQuestion)
	if !ok || playerEv.reaches("host") || !playerEv.reaches("p1") {
		t.Fatalf("player view must go to players only")
	}
	view, isPlain := playerEv.payload.(domain.QuestionView)
	if !isPlain {
		t.Fatalf("player view must not carry correct answers, got %T", playerEv.payload)
	}
	if view.Answers[0].Text != "C" || view.Answers[0].Index != 0 || view.Answers[2].Text != "A" || view.Answers[2].Index != 2 {
		t.Fatalf("expected shuffled, re-indexed items, got %+v", view.Answers)
	}

	hostEv, _ := h.notes.last(domain.EventHostQuestion)
	hostView := hostEv.payload.(domain.HostQuestionView)
	if !hostEv.reaches("host") || len(hostView.CorrectOrder) != 3 || hostView.CorrectOrder[0] != "A" {
		t.Fatalf("unexpected host view %+v", hostView)
	}

	ack, _ := s.SubmitAnswer("p1", domain.Submission{OrderedItems: []string{"A", "B", "C"}})
	if !ack.IsCorrect || ack.Points != 100 {
		t.Fatalf("expected canonical order to score, got %+v", ack)
	}
	_ = s.Reveal("host")
	ev, _ := h.notes.last(domain.EventResults)
	res := ev.payload.(domain.QuestionResults)
	if len(res.CorrectOrder) != 3 || res.AnswerStats[0].Text != "Correct" || res.AnswerStats[0].Count != 1 || res.AnswerStats[1].Count != 0 {
		t.Fatalf("unexpected ordering results %+v", res)
	}

	_ = s.NextQuestion("host")
	hostEv, _ = h.notes.last(domain.EventHostQuestion)
	hostView = hostEv.payload.(domain.HostQuestionView)
	if hostView.CorrectAnswer == nil || *hostView.CorrectAnswer != "Paris" || hostView.CaseSensitive == nil || *hostView.CaseSensitive {
		t.Fatalf("unexpected puzzle host view %+v", hostView)
	}
	ack, _ = s.SubmitAnswer("p1", domain.Submission{TextAnswer: strPtr("london")})
	if ack.IsCorrect {
		t.Fatalf("expected wrong puzzle answer")
	}
}

func TestHostLeaveCancelsSession(t *testing.T) {
	h := startedGame(t, twoQuestionQuiz(), "Alice", "Bob")
	s := h.session

	hostLeft, cancelled := s.Leave("host")
	if !hostLeft || !cancelled {
		t.Fatalf("expected host leave to cancel, got %v %v", hostLeft, cancelled)
	}
	ev, ok := h.notes.last(domain.EventCancelled)
	if !ok || !ev.reaches("p1") || !ev.reaches("p2") {
		t.Fatalf("expected cancellation to reach every player")
	}
	if len(h.sched.pending()) != 0 {
		t.Fatalf("expected timers to be cancelled")
	}
	if _, err := s.SubmitAnswer("p1", domain.Submission{AnswerIndex: intPtr(1)}); !errors.Is(err, domain.ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}
}

func TestPlayerLeaveUpdatesHost(t *testing.T) {
	h := startedGame(t, twoQuestionQuiz(), "Alice", "Bob")
	s := h.session
	_, _ = s.SubmitAnswer("p1", domain.Submission{AnswerIndex: intPtr(1)})

	if hostLeft, cancelled := s.Leave("p2"); hostLeft || cancelled {
		t.Fatalf("player leave must not cancel")
	}
	roster, _ := h.notes.last(domain.EventRoster)
	if got := roster.payload.(domain.RosterPayload); got.PlayerCount != 1 {
		t.Fatalf("expected roster of 1, got %+v", got)
	}
	tally, _ := h.notes.last(domain.EventAnswerTally)
	if got := tally.payload.(domain.AnswerTally); got.Count != 1 || got.Total != 1 {
		t.Fatalf("expected tally 1/1, got %+v", got)
	}
}

// startedGame attaches a host, joins players p1..pn and fires the lead-in.
func startedGame(t *testing.T, quiz domain.QuizSnapshot, nicknames ...string) *harness {
	t.Helper()
	h := newHarness(quiz)
	if _, err := h.session.AttachHost("host"); err != nil {
		t.Fatalf("attach host: %v", err)
	}
	for i, nick := range nicknames {
		id := "p" + string(rune('1'+i))
		if _, err := h.session.Join(id, nick); err != nil {
			t.Fatalf("join %s: %v", nick, err)
		}
	}
	if err := h.session.Start("host"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !h.sched.fireNext(leadIn) {
		t.Fatalf("expected lead-in timer")
	}
	return h
}
