package services

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/nhattan2005/AI-Job-Board-sub001/internal/errs"
	"github.com/nhattan2005/AI-Job-Board-sub001/internal/models"
	"github.com/nhattan2005/AI-Job-Board-sub001/internal/repositories"
)

const (
	// openingMessage is the synthetic candidate turn that kicks off every
	// session. It is persisted but never counted as an answer.
	openingMessage = "Start the interview"

	// genericClarifier terminates a truncated reply when the continuation
	// call itself fails.
	genericClarifier = "Could you walk me through that in a bit more detail?"

	// truncationMinLength is the reply length below which a response is
	// treated as possibly cut off.
	truncationMinLength = 40

	shortAnswerWords = 10
)

// StartSessionParams describes the interview context: either a posted job or
// an ad-hoc CV + job-description pair for unaffiliated practice.
type StartSessionParams struct {
	InterviewType  models.InterviewType
	Job            *models.Job
	JobDescription string
	CVText         string
}

// InterviewOptions bound the session machine's budgets.
type InterviewOptions struct {
	MaxQuestions        int
	StartCooldown       time.Duration
	GenerateTimeout     time.Duration
	ContinuationTimeout time.Duration
}

func (o InterviewOptions) withDefaults() InterviewOptions {
	if o.MaxQuestions <= 0 {
		o.MaxQuestions = 5
	}
	if o.StartCooldown <= 0 {
		o.StartCooldown = 5 * time.Second
	}
	if o.GenerateTimeout <= 0 {
		o.GenerateTimeout = 30 * time.Second
	}
	if o.ContinuationTimeout <= 0 {
		o.ContinuationTimeout = 20 * time.Second
	}
	return o
}

// InterviewService drives mock-interview sessions: a bounded multi-turn
// conversation with a persona-specific AI interviewer, a fixed question
// budget, and a structured feedback report at the end.
type InterviewService interface {
	StartSession(ctx context.Context, userID string, params StartSessionParams) (*models.InterviewSession, string, error)
	AdvanceSession(ctx context.Context, userID string, sessionID uuid.UUID, candidateText string) (string, int, error)
	EndSession(ctx context.Context, userID string, sessionID uuid.UUID) (*models.FeedbackReport, error)
	GetSession(userID string, sessionID uuid.UUID) (*models.InterviewSession, error)
}

type interviewService struct {
	sessionRepo   repositories.SessionRepository
	generator     TextGenerator
	promptBuilder *PromptBuilder
	opts          InterviewOptions

	startMu    sync.Mutex
	lastStarts map[string]time.Time
}

func NewInterviewService(
	sessionRepo repositories.SessionRepository,
	generator TextGenerator,
	opts InterviewOptions,
) InterviewService {
	return &interviewService{
		sessionRepo:   sessionRepo,
		generator:     generator,
		promptBuilder: NewPromptBuilder(),
		opts:          opts.withDefaults(),
		lastStarts:    make(map[string]time.Time),
	}
}

// StartSession implements InterviewService.
func (s *interviewService) StartSession(ctx context.Context, userID string, params StartSessionParams) (*models.InterviewSession, string, error) {
	if userID == "" {
		return nil, "", errs.New(errs.KindInvalidInput, "user id is required")
	}
	if !params.InterviewType.Valid() {
		return nil, "", errs.Newf(errs.KindInvalidInput, "invalid interview type: %s", params.InterviewType)
	}
	if params.Job == nil && strings.TrimSpace(params.JobDescription) == "" {
		return nil, "", errs.New(errs.KindInvalidInput, "a job or a job description is required")
	}

	if err := s.reserveStart(userID); err != nil {
		return nil, "", err
	}

	session := &models.InterviewSession{
		ID:             uuid.New(),
		UserID:         userID,
		InterviewType:  params.InterviewType,
		JobDescription: strings.TrimSpace(params.JobDescription),
		CVText:         params.CVText,
		Status:         models.SessionActive,
	}
	if params.Job != nil {
		session.JobTitle = params.Job.Title
		session.JobDescription = params.Job.Description
		session.Company = params.Job.Company
		session.Location = params.Job.Location
	}

	system := s.systemPrompt(session)
	opener := models.Turn{Role: models.RoleCandidate, Text: openingMessage}

	callCtx, cancel := context.WithTimeout(ctx, s.opts.GenerateTimeout)
	defer cancel()

	firstMessage, err := s.generator.GenerateConversation(callCtx, system, []models.Turn{opener}, 0.7)
	if err != nil {
		// No partial state is kept; the caller may retry the whole start.
		return nil, "", err
	}

	session.Transcript = models.Transcript{
		opener,
		{Role: models.RoleInterviewer, Text: firstMessage},
	}

	if err := s.sessionRepo.Create(session); err != nil {
		return nil, "", err
	}

	log.Printf("🎤 Interview session %s started for user %s (%s)", session.ID, userID, session.InterviewType)
	return session, firstMessage, nil
}

// AdvanceSession implements InterviewService. The candidate's message is only
// persisted after the AI reply (including any truncation repair) succeeds, so
// a failed call leaves the session untouched and the same turn can be retried.
func (s *interviewService) AdvanceSession(ctx context.Context, userID string, sessionID uuid.UUID, candidateText string) (string, int, error) {
	candidateText = strings.TrimSpace(candidateText)
	if candidateText == "" {
		return "", 0, errs.New(errs.KindInvalidInput, "message text is required")
	}

	session, err := s.loadOwned(userID, sessionID)
	if err != nil {
		return "", 0, err
	}
	if session.Status == models.SessionCompleted {
		return "", 0, errs.New(errs.KindConflict, "session is already completed")
	}

	system := s.systemPrompt(session)
	instruction := s.promptBuilder.BuildTurnInstruction(
		session.QuestionsAsked,
		s.opts.MaxQuestions,
		len(strings.Fields(candidateText)),
	)

	outgoing := append(models.Transcript{}, session.Transcript...)
	outgoing = append(outgoing,
		models.Turn{Role: models.RoleCandidate, Text: candidateText},
		models.Turn{Role: models.RoleCandidate, Text: instruction},
	)

	callCtx, cancel := context.WithTimeout(ctx, s.opts.GenerateTimeout)
	defer cancel()

	reply, err := s.generator.GenerateConversation(callCtx, system, outgoing, 0.7)
	if err != nil {
		return "", 0, err
	}

	if looksTruncated(reply) {
		reply = s.repairTruncation(ctx, system, outgoing, reply)
	}

	candidateTurn := models.Turn{Role: models.RoleCandidate, Text: candidateText}
	interviewerTurn := models.Turn{Role: models.RoleInterviewer, Text: reply}
	if err := s.sessionRepo.AppendExchange(session.ID, session.Version, candidateTurn, interviewerTurn); err != nil {
		return "", 0, err
	}

	return reply, session.QuestionsAsked + 1, nil
}

// EndSession implements InterviewService. Ending an already-completed session
// returns the stored report.
func (s *interviewService) EndSession(ctx context.Context, userID string, sessionID uuid.UUID) (*models.FeedbackReport, error) {
	session, err := s.loadOwned(userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status == models.SessionCompleted {
		if session.Feedback != nil {
			return session.Feedback, nil
		}
		return nil, errs.New(errs.KindConflict, "session is already completed")
	}

	prompt := s.promptBuilder.BuildFeedbackPrompt(session.Transcript, session.InterviewType, session.JobTitle)

	callCtx, cancel := context.WithTimeout(ctx, s.opts.GenerateTimeout)
	defer cancel()

	response, err := s.generator.GenerateText(callCtx, prompt, 0.5)
	if err != nil {
		// Session stays active; the caller may retry ending it.
		return nil, err
	}

	report, ok := parseFeedbackResponse(response)
	if !ok {
		log.Printf("⚠️  Feedback response for session %s was not valid JSON, storing safe default", session.ID)
	}

	if err := s.sessionRepo.Complete(session.ID, &report, report.OverallScore); err != nil {
		return nil, err
	}

	log.Printf("🏁 Interview session %s completed (%d answers)", session.ID, session.QuestionsAsked)
	return &report, nil
}

// GetSession implements InterviewService.
func (s *interviewService) GetSession(userID string, sessionID uuid.UUID) (*models.InterviewSession, error) {
	return s.loadOwned(userID, sessionID)
}

// loadOwned resolves a session for the requesting user. A session owned by
// someone else reads as not found so the API leaks no existence information.
func (s *interviewService) loadOwned(userID string, sessionID uuid.UUID) (*models.InterviewSession, error) {
	if userID == "" {
		return nil, errs.New(errs.KindInvalidInput, "user id is required")
	}

	session, err := s.sessionRepo.FindByID(sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, errs.New(errs.KindNotFound, "session not found")
	}
	return session, nil
}

// reserveStart enforces the per-user start cooldown. The slot is reserved
// before the AI call so a double-submit cannot race past the check. Expired
// slots are evicted on each reservation so the map stays bounded by the
// number of users active within one cooldown window.
func (s *interviewService) reserveStart(userID string) error {
	s.startMu.Lock()
	defer s.startMu.Unlock()

	now := time.Now()
	for id, last := range s.lastStarts {
		if now.Sub(last) >= s.opts.StartCooldown {
			delete(s.lastStarts, id)
		}
	}

	if last, ok := s.lastStarts[userID]; ok && now.Sub(last) < s.opts.StartCooldown {
		return errs.New(errs.KindTooManyRequests, "a session was started moments ago, please wait a few seconds")
	}
	s.lastStarts[userID] = now
	return nil
}

func (s *interviewService) systemPrompt(session *models.InterviewSession) string {
	return s.promptBuilder.BuildInterviewSystemPrompt(
		session.InterviewType,
		session.JobTitle,
		session.Company,
		session.Location,
		session.JobDescription,
		session.CVText,
		s.opts.MaxQuestions,
	)
}

// repairTruncation issues a single bounded continuation request and splices
// the continuation onto the truncated fragment. If the continuation fails,
// the fragment is closed with a generic clarifying question instead of being
// returned broken.
func (s *interviewService) repairTruncation(ctx context.Context, system string, outgoing models.Transcript, fragment string) string {
	continuationHistory := append(models.Transcript{}, outgoing...)
	continuationHistory = append(continuationHistory,
		models.Turn{Role: models.RoleInterviewer, Text: fragment},
		models.Turn{Role: models.RoleCandidate, Text: s.promptBuilder.BuildContinuationInstruction()},
	)

	callCtx, cancel := context.WithTimeout(ctx, s.opts.ContinuationTimeout)
	defer cancel()

	continuation, err := s.generator.GenerateConversation(callCtx, system, continuationHistory, 0.7)
	if err != nil {
		log.Printf("⚠️  Continuation request failed: %v", err)
		return safeTerminate(fragment)
	}

	return joinContinuation(fragment, continuation)
}

// safeTerminate closes a broken fragment with a generic clarifying question
// when no continuation could be obtained.
func safeTerminate(fragment string) string {
	frag := strings.TrimSpace(strings.TrimRight(strings.TrimSpace(fragment), "-"))
	if frag == "" {
		return genericClarifier
	}
	return frag + "\n\n" + genericClarifier
}

// looksTruncated judges whether an AI reply was possibly cut off: it ends
// mid-word (trailing hyphen), is suspiciously short, or does not end with
// sentence-terminating punctuation.
func looksTruncated(text string) bool {
	t := strings.TrimSpace(text)
	if t == "" {
		return true
	}
	if strings.HasSuffix(t, "-") {
		return true
	}
	if utf8.RuneCountInString(t) < truncationMinLength {
		return true
	}

	last, _ := utf8.DecodeLastRuneInString(t)
	switch last {
	case '.', '?', '!':
		return false
	default:
		return true
	}
}

// joinContinuation splices a continuation onto a truncated fragment. A
// dangling trailing hyphen marks a mid-word cut: it is removed and the
// continuation attached without a separator.
func joinContinuation(fragment, continuation string) string {
	frag := strings.TrimSpace(fragment)
	cont := strings.TrimSpace(continuation)

	if strings.HasSuffix(frag, "-") {
		return strings.TrimRight(frag, "-") + cont
	}
	if frag == "" {
		return cont
	}
	return frag + " " + cont
}

// parseFeedbackResponse parses the structured evaluation, falling back to a
// minimal safe default when the response is unusable.
func parseFeedbackResponse(response string) (models.FeedbackReport, bool) {
	safeDefault := models.FeedbackReport{
		Strengths:      []string{},
		Weaknesses:     []string{},
		Recommendation: "Maybe",
	}

	cleaned := stripCodeFences(response)

	var report models.FeedbackReport
	if err := json.Unmarshal([]byte(cleaned), &report); err != nil {
		if match := jsonObjectPattern.FindString(cleaned); match != "" {
			if err := json.Unmarshal([]byte(match), &report); err != nil {
				return safeDefault, false
			}
		} else {
			return safeDefault, false
		}
	}

	if report.Strengths == nil {
		report.Strengths = []string{}
	}
	if report.Weaknesses == nil {
		report.Weaknesses = []string{}
	}
	switch report.Recommendation {
	case "Hire", "No Hire", "Maybe":
	default:
		report.Recommendation = "Maybe"
	}

	return report, true
}
