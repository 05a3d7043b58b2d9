package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nhattan2005/AI-Job-Board-sub001/internal/errs"
	"github.com/nhattan2005/AI-Job-Board-sub001/internal/models"
)

// scriptedGenerator replays canned responses (or errors) in order and records
// every call for assertions.
type scriptedGenerator struct {
	responses []any // string or error
	calls     int
	systems   []string
	histories [][]models.Turn
	prompts   []string
}

func (g *scriptedGenerator) next() (string, error) {
	if g.calls > len(g.responses) {
		return "", errors.New("scripted generator exhausted")
	}
	item := g.responses[g.calls-1]
	if err, ok := item.(error); ok {
		return "", err
	}
	return item.(string), nil
}

func (g *scriptedGenerator) GenerateText(_ context.Context, prompt string, _ float32) (string, error) {
	g.calls++
	g.prompts = append(g.prompts, prompt)
	return g.next()
}

func (g *scriptedGenerator) GenerateConversation(_ context.Context, system string, history []models.Turn, _ float32) (string, error) {
	g.calls++
	g.systems = append(g.systems, system)
	g.histories = append(g.histories, append([]models.Turn{}, history...))
	return g.next()
}

// fakeSessionRepo is an in-memory SessionRepository with the same CAS
// semantics as the real one.
type fakeSessionRepo struct {
	sessions map[uuid.UUID]*models.InterviewSession
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[uuid.UUID]*models.InterviewSession)}
}

func (f *fakeSessionRepo) Create(session *models.InterviewSession) error {
	clone := *session
	clone.Transcript = append(models.Transcript{}, session.Transcript...)
	f.sessions[session.ID] = &clone
	return nil
}

func (f *fakeSessionRepo) FindByID(id uuid.UUID) (*models.InterviewSession, error) {
	session, ok := f.sessions[id]
	if !ok {
		return nil, errs.New(errs.KindNotFound, "session not found")
	}
	clone := *session
	clone.Transcript = append(models.Transcript{}, session.Transcript...)
	return &clone, nil
}

func (f *fakeSessionRepo) AppendExchange(id uuid.UUID, version int, candidate, interviewer models.Turn) error {
	session, ok := f.sessions[id]
	if !ok {
		return errs.New(errs.KindConflict, "session was modified concurrently")
	}
	if session.Version != version {
		return errs.New(errs.KindConflict, "session was modified concurrently")
	}
	session.Transcript = append(session.Transcript, candidate, interviewer)
	session.QuestionsAsked++
	session.Version++
	session.UpdatedAt = time.Now()
	return nil
}

func (f *fakeSessionRepo) Complete(id uuid.UUID, report *models.FeedbackReport, score *float64) error {
	session, ok := f.sessions[id]
	if !ok {
		return errs.New(errs.KindNotFound, "session not found")
	}
	session.Status = models.SessionCompleted
	session.Feedback = report
	session.OverallScore = score
	return nil
}

func (f *fakeSessionRepo) FindIdleActive(idleSince time.Time, limit int) ([]models.InterviewSession, error) {
	var result []models.InterviewSession
	for _, session := range f.sessions {
		if session.Status == models.SessionActive && session.UpdatedAt.Before(idleSince) {
			result = append(result, *session)
		}
		if len(result) == limit {
			break
		}
	}
	return result, nil
}

const completeReply = "Thanks for sharing that. Could you describe a project where you owned the backend design end to end?"

func newTestInterviewService(repo *fakeSessionRepo, gen *scriptedGenerator) InterviewService {
	return NewInterviewService(repo, gen, InterviewOptions{
		MaxQuestions:  5,
		StartCooldown: 5 * time.Second,
	})
}

func startedSession(t *testing.T, repo *fakeSessionRepo, svc InterviewService, userID string) *models.InterviewSession {
	t.Helper()
	session, _, err := svc.StartSession(context.Background(), userID, StartSessionParams{
		InterviewType:  models.InterviewHR,
		JobDescription: "Backend engineer role working on Go services.",
	})
	if err != nil {
		t.Fatalf("failed to start session: %v", err)
	}
	return session
}

func TestStartSessionInitialState(t *testing.T) {
	repo := newFakeSessionRepo()
	gen := &scriptedGenerator{responses: []any{"Hello! I'm Dana from HR. To begin, what attracted you to this role?"}}
	svc := newTestInterviewService(repo, gen)

	session, firstMessage, err := svc.StartSession(context.Background(), "user-1", StartSessionParams{
		InterviewType:  models.InterviewHR,
		JobDescription: "Backend engineer role.",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if firstMessage == "" {
		t.Fatalf("expected a first message")
	}

	stored, err := repo.FindByID(session.ID)
	if err != nil {
		t.Fatalf("session was not persisted: %v", err)
	}
	if stored.Status != models.SessionActive {
		t.Fatalf("expected active status, got %s", stored.Status)
	}
	if stored.QuestionsAsked != 0 {
		t.Fatalf("expected 0 questions asked, got %d", stored.QuestionsAsked)
	}
	if len(stored.Transcript) != 2 {
		t.Fatalf("expected 2 transcript turns, got %d", len(stored.Transcript))
	}
	if stored.Transcript[0].Role != models.RoleCandidate || stored.Transcript[0].Text != "Start the interview" {
		t.Fatalf("unexpected opener turn: %+v", stored.Transcript[0])
	}
	if stored.Transcript[1].Role != models.RoleInterviewer {
		t.Fatalf("expected interviewer turn second, got %+v", stored.Transcript[1])
	}
}

func TestStartSessionRejectsInvalidType(t *testing.T) {
	svc := newTestInterviewService(newFakeSessionRepo(), &scriptedGenerator{})

	_, _, err := svc.StartSession(context.Background(), "user-1", StartSessionParams{
		InterviewType:  "CEO",
		JobDescription: "whatever",
	})
	if !errs.IsKind(err, errs.KindInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}

func TestStartSessionCooldown(t *testing.T) {
	repo := newFakeSessionRepo()
	gen := &scriptedGenerator{responses: []any{
		"Hi! I'm your interviewer today. Shall we start with your background?",
		"Hi! I'm your interviewer today. Shall we start with your background?",
	}}
	svc := newTestInterviewService(repo, gen)

	startedSession(t, repo, svc, "user-1")

	_, _, err := svc.StartSession(context.Background(), "user-1", StartSessionParams{
		InterviewType:  models.InterviewHR,
		JobDescription: "Backend engineer role.",
	})
	if !errs.IsKind(err, errs.KindTooManyRequests) {
		t.Fatalf("expected too many requests error, got %v", err)
	}

	// A different user is not affected by the cooldown.
	if _, _, err := svc.StartSession(context.Background(), "user-2", StartSessionParams{
		InterviewType:  models.InterviewTechLead,
		JobDescription: "Backend engineer role.",
	}); err != nil {
		t.Fatalf("cooldown must be per-user: %v", err)
	}
}

func TestReserveStartEvictsExpiredSlots(t *testing.T) {
	svc := NewInterviewService(newFakeSessionRepo(), &scriptedGenerator{}, InterviewOptions{
		MaxQuestions:  5,
		StartCooldown: 10 * time.Millisecond,
	}).(*interviewService)

	for _, user := range []string{"user-1", "user-2", "user-3"} {
		if err := svc.reserveStart(user); err != nil {
			t.Fatalf("unexpected error reserving for %s: %v", user, err)
		}
	}
	if len(svc.lastStarts) != 3 {
		t.Fatalf("expected 3 reserved slots, got %d", len(svc.lastStarts))
	}

	time.Sleep(20 * time.Millisecond)

	if err := svc.reserveStart("user-4"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(svc.lastStarts) != 1 {
		t.Fatalf("expired slots must be evicted, got %d entries", len(svc.lastStarts))
	}
	if _, ok := svc.lastStarts["user-4"]; !ok {
		t.Fatalf("fresh slot must survive eviction")
	}
}

func TestStartSessionFailureKeepsNoState(t *testing.T) {
	repo := newFakeSessionRepo()
	gen := &scriptedGenerator{responses: []any{errs.Wrap(errs.KindUpstreamTimeout, "deadline exceeded", context.DeadlineExceeded)}}
	svc := newTestInterviewService(repo, gen)

	_, _, err := svc.StartSession(context.Background(), "user-1", StartSessionParams{
		InterviewType:  models.InterviewHR,
		JobDescription: "Backend engineer role.",
	})
	if !errs.IsKind(err, errs.KindUpstreamTimeout) {
		t.Fatalf("expected upstream timeout, got %v", err)
	}
	if len(repo.sessions) != 0 {
		t.Fatalf("no session must be persisted on a failed start")
	}
}

func TestAdvanceSessionIncrementsCounter(t *testing.T) {
	repo := newFakeSessionRepo()
	gen := &scriptedGenerator{responses: []any{
		"Welcome! Tell me about yourself and what draws you to backend work today?",
		completeReply,
		completeReply,
	}}
	svc := newTestInterviewService(repo, gen)
	session := startedSession(t, repo, svc, "user-1")

	answer := "I spent four years building payment systems in Go with a focus on reliability and observability."

	_, questionsAsked, err := svc.AdvanceSession(context.Background(), "user-1", session.ID, answer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if questionsAsked != 1 {
		t.Fatalf("expected questionsAsked 1, got %d", questionsAsked)
	}

	_, questionsAsked, err = svc.AdvanceSession(context.Background(), "user-1", session.ID, answer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if questionsAsked != 2 {
		t.Fatalf("expected questionsAsked 2, got %d", questionsAsked)
	}

	stored, _ := repo.FindByID(session.ID)
	if stored.QuestionsAsked != 2 {
		t.Fatalf("expected persisted counter 2, got %d", stored.QuestionsAsked)
	}
	if len(stored.Transcript) != 6 {
		t.Fatalf("expected 6 transcript turns after 2 exchanges, got %d", len(stored.Transcript))
	}
}

func TestAdvanceSessionShortAnswerAsksForElaboration(t *testing.T) {
	repo := newFakeSessionRepo()
	gen := &scriptedGenerator{responses: []any{
		"Welcome! Tell me about yourself and what you are hoping to practice today?",
		completeReply,
	}}
	svc := newTestInterviewService(repo, gen)
	session := startedSession(t, repo, svc, "user-1")

	if _, _, err := svc.AdvanceSession(context.Background(), "user-1", session.ID, "I like Go."); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lastHistory := gen.histories[len(gen.histories)-1]
	instruction := lastHistory[len(lastHistory)-1].Text
	if !strings.Contains(instruction, "elaborate") {
		t.Fatalf("expected elaboration instruction for a short answer, got: %s", instruction)
	}
}

func TestAdvanceSessionClosesAfterQuestionBudget(t *testing.T) {
	repo := newFakeSessionRepo()
	gen := &scriptedGenerator{responses: []any{
		"Welcome! Let's begin: walk me through your most recent project in detail please?",
		"Thank you for your time today, this concludes our mock interview. Best of luck!",
	}}
	svc := newTestInterviewService(repo, gen)
	session := startedSession(t, repo, svc, "user-1")

	// Simulate an interview that already used its whole question budget.
	repo.sessions[session.ID].QuestionsAsked = 5

	answer := "My final answer covers the architecture choices I made and the trade-offs between consistency and availability."
	_, questionsAsked, err := svc.AdvanceSession(context.Background(), "user-1", session.ID, answer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if questionsAsked != 6 {
		t.Fatalf("expected questionsAsked 6, got %d", questionsAsked)
	}

	lastHistory := gen.histories[len(gen.histories)-1]
	instruction := lastHistory[len(lastHistory)-1].Text
	if !strings.Contains(instruction, "Do not ask another question") {
		t.Fatalf("expected closing instruction after budget exhausted, got: %s", instruction)
	}
}

func TestAdvanceSessionRepairsTruncatedReply(t *testing.T) {
	repo := newFakeSessionRepo()
	gen := &scriptedGenerator{responses: []any{
		"Welcome! Could you start by describing your current role and responsibilities please?",
		"That is a great point about latency and the importance of measuring trade-",
		"offs before optimizing. With that in mind, how do you decide what to profile first?",
	}}
	svc := newTestInterviewService(repo, gen)
	session := startedSession(t, repo, svc, "user-1")

	answer := "We cut p99 latency in half by caching session lookups and batching database writes during peak hours."
	message, _, err := svc.AdvanceSession(context.Background(), "user-1", session.ID, answer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gen.calls != 3 {
		t.Fatalf("expected exactly one continuation call, got %d total calls", gen.calls)
	}
	if !strings.Contains(message, "tradeoffs") {
		t.Fatalf("expected hyphen-repaired concatenation, got: %s", message)
	}
	if strings.HasSuffix(strings.TrimSpace(message), "-") {
		t.Fatalf("repaired message must not end with a dangling hyphen: %s", message)
	}
	if !strings.Contains(message, "how do you decide what to profile first?") {
		t.Fatalf("continuation must be appended: %s", message)
	}
}

func TestAdvanceSessionContinuationFailureAppendsClarifier(t *testing.T) {
	repo := newFakeSessionRepo()
	gen := &scriptedGenerator{responses: []any{
		"Welcome! Could you start by describing your current role and responsibilities please?",
		"Interesting, and how did the team react to the migra-",
		errs.Wrap(errs.KindUpstreamTimeout, "deadline exceeded", context.DeadlineExceeded),
	}}
	svc := newTestInterviewService(repo, gen)
	session := startedSession(t, repo, svc, "user-1")

	answer := "We migrated the monolith into services over six months while keeping releases weekly and defect rates flat."
	message, _, err := svc.AdvanceSession(context.Background(), "user-1", session.ID, answer)
	if err != nil {
		t.Fatalf("continuation failure must not fail the turn: %v", err)
	}

	if !strings.Contains(message, genericClarifier) {
		t.Fatalf("expected generic clarifier terminator, got: %s", message)
	}
	if strings.Contains(message, "migra-") {
		t.Fatalf("dangling hyphen fragment must be cleaned: %s", message)
	}
}

func TestAdvanceSessionFailureDoesNotPersistTurn(t *testing.T) {
	repo := newFakeSessionRepo()
	gen := &scriptedGenerator{responses: []any{
		"Welcome! Could you start by describing your current role and responsibilities please?",
		errs.Wrap(errs.KindQuotaExceeded, "rate limited", errors.New("429")),
	}}
	svc := newTestInterviewService(repo, gen)
	session := startedSession(t, repo, svc, "user-1")

	_, _, err := svc.AdvanceSession(context.Background(), "user-1", session.ID, "A reasonably long answer about my background in distributed systems and team leadership.")
	if !errs.IsKind(err, errs.KindQuotaExceeded) {
		t.Fatalf("expected quota error, got %v", err)
	}

	stored, _ := repo.FindByID(session.ID)
	if stored.QuestionsAsked != 0 {
		t.Fatalf("counter must not move on failure, got %d", stored.QuestionsAsked)
	}
	if len(stored.Transcript) != 2 {
		t.Fatalf("transcript must be untouched on failure, got %d turns", len(stored.Transcript))
	}
}

func TestAdvanceSessionOwnershipAndLifecycle(t *testing.T) {
	repo := newFakeSessionRepo()
	gen := &scriptedGenerator{responses: []any{
		"Welcome! Could you start by describing your current role and responsibilities please?",
	}}
	svc := newTestInterviewService(repo, gen)
	session := startedSession(t, repo, svc, "user-1")

	if _, _, err := svc.AdvanceSession(context.Background(), "intruder", session.ID, "some answer"); !errs.IsKind(err, errs.KindNotFound) {
		t.Fatalf("foreign session must read as not found, got %v", err)
	}

	if _, _, err := svc.AdvanceSession(context.Background(), "user-1", uuid.New(), "some answer"); !errs.IsKind(err, errs.KindNotFound) {
		t.Fatalf("missing session must be not found, got %v", err)
	}

	repo.sessions[session.ID].Status = models.SessionCompleted
	if _, _, err := svc.AdvanceSession(context.Background(), "user-1", session.ID, "some answer"); !errs.IsKind(err, errs.KindConflict) {
		t.Fatalf("completed session must reject turns, got %v", err)
	}
}

func TestEndSessionStoresReport(t *testing.T) {
	repo := newFakeSessionRepo()
	gen := &scriptedGenerator{responses: []any{
		"Welcome! Could you start by describing your current role and responsibilities please?",
		"```json\n{\"overall_score\": 82, \"strengths\": [\"clear communication\"], \"weaknesses\": [\"few metrics\"], \"recommendation\": \"Hire\"}\n```",
	}}
	svc := newTestInterviewService(repo, gen)
	session := startedSession(t, repo, svc, "user-1")

	report, err := svc.EndSession(context.Background(), "user-1", session.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.OverallScore == nil || *report.OverallScore != 82 {
		t.Fatalf("unexpected score: %+v", report.OverallScore)
	}
	if report.Recommendation != "Hire" {
		t.Fatalf("unexpected recommendation: %s", report.Recommendation)
	}

	stored, _ := repo.FindByID(session.ID)
	if stored.Status != models.SessionCompleted {
		t.Fatalf("session must be completed, got %s", stored.Status)
	}
	if stored.OverallScore == nil || *stored.OverallScore != 82 {
		t.Fatalf("score must be persisted: %+v", stored.OverallScore)
	}

	// The evaluation prompt is built from the labeled transcript.
	lastPrompt := gen.prompts[len(gen.prompts)-1]
	if !strings.Contains(lastPrompt, "Candidate:") || !strings.Contains(lastPrompt, "Interviewer:") {
		t.Fatalf("feedback prompt must contain the labeled transcript: %s", lastPrompt)
	}
}

func TestEndSessionUnparseableFeedbackUsesSafeDefault(t *testing.T) {
	repo := newFakeSessionRepo()
	gen := &scriptedGenerator{responses: []any{
		"Welcome! Could you start by describing your current role and responsibilities please?",
		"The candidate did okay overall, I would say somewhere in the middle.",
	}}
	svc := newTestInterviewService(repo, gen)
	session := startedSession(t, repo, svc, "user-1")

	report, err := svc.EndSession(context.Background(), "user-1", session.ID)
	if err != nil {
		t.Fatalf("unparseable feedback must not fail: %v", err)
	}

	if report.OverallScore != nil {
		t.Fatalf("expected nil score in safe default, got %v", *report.OverallScore)
	}
	if report.Recommendation != "Maybe" {
		t.Fatalf("expected Maybe recommendation, got %s", report.Recommendation)
	}
	if report.Strengths == nil || report.Weaknesses == nil {
		t.Fatalf("safe default arrays must be non-nil")
	}

	stored, _ := repo.FindByID(session.ID)
	if stored.Status != models.SessionCompleted {
		t.Fatalf("session must still complete, got %s", stored.Status)
	}
}

func TestEndSessionTransportErrorKeepsSessionActive(t *testing.T) {
	repo := newFakeSessionRepo()
	gen := &scriptedGenerator{responses: []any{
		"Welcome! Could you start by describing your current role and responsibilities please?",
		errs.Wrap(errs.KindUpstreamTimeout, "deadline exceeded", context.DeadlineExceeded),
	}}
	svc := newTestInterviewService(repo, gen)
	session := startedSession(t, repo, svc, "user-1")

	if _, err := svc.EndSession(context.Background(), "user-1", session.ID); !errs.IsKind(err, errs.KindUpstreamTimeout) {
		t.Fatalf("expected timeout error, got %v", err)
	}

	stored, _ := repo.FindByID(session.ID)
	if stored.Status != models.SessionActive {
		t.Fatalf("session must stay active so end can be retried, got %s", stored.Status)
	}
}

func TestEndSessionIdempotentAfterCompletion(t *testing.T) {
	repo := newFakeSessionRepo()
	gen := &scriptedGenerator{responses: []any{
		"Welcome! Could you start by describing your current role and responsibilities please?",
		`{"overall_score": 70, "strengths": [], "weaknesses": [], "recommendation": "Maybe"}`,
	}}
	svc := newTestInterviewService(repo, gen)
	session := startedSession(t, repo, svc, "user-1")

	first, err := svc.EndSession(context.Background(), "user-1", session.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second, err := svc.EndSession(context.Background(), "user-1", session.ID)
	if err != nil {
		t.Fatalf("ending a completed session must return the stored report: %v", err)
	}
	if second.Recommendation != first.Recommendation {
		t.Fatalf("stored report mismatch: %+v vs %+v", first, second)
	}
}

func TestLooksTruncated(t *testing.T) {
	cases := []struct {
		name string
		text string
		want bool
	}{
		{"trailing hyphen", "This answer was cut off right in the middle of a compound word like trade-", true},
		{"too short", "Sounds good.", true},
		{"no terminal punctuation", "That is interesting and I would like to hear much more about the rollout you described", true},
		{"complete question", "That makes sense to me. Could you describe how you validated the migration afterwards?", false},
		{"complete exclamation", "Thank you for your time today, this concludes our mock interview. Good luck out there!", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := looksTruncated(tc.text); got != tc.want {
				t.Fatalf("looksTruncated(%q) = %v, want %v", tc.text, got, tc.want)
			}
		})
	}
}

func TestJoinContinuation(t *testing.T) {
	got := joinContinuation("measuring trade-", "offs before optimizing.")
	if got != "measuring tradeoffs before optimizing." {
		t.Fatalf("unexpected mid-word join: %q", got)
	}

	got = joinContinuation("We should talk about scaling", "the ingestion pipeline next.")
	if got != "We should talk about scaling the ingestion pipeline next." {
		t.Fatalf("unexpected word-boundary join: %q", got)
	}
}
