package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/nhattan2005/AI-Job-Board-sub001/internal/errs"
	"github.com/nhattan2005/AI-Job-Board-sub001/internal/models"
	"github.com/nhattan2005/AI-Job-Board-sub001/internal/repositories"
	"github.com/nhattan2005/AI-Job-Board-sub001/internal/services"
)

// userIDHeader carries the caller identity. Authentication itself is done by
// the gateway in front of this service.
const userIDHeader = "X-User-ID"

// InterviewHandler serves the mock-interview session endpoints.
type InterviewHandler struct {
	interviews  services.InterviewService
	jobRepo     repositories.JobRepository
	storage     services.StorageService
	extractor   services.TextExtractor
	maxFileSize int64
}

func NewInterviewHandler(
	interviews services.InterviewService,
	jobRepo repositories.JobRepository,
	storage services.StorageService,
	extractor services.TextExtractor,
	maxFileSize int64,
) *InterviewHandler {
	return &InterviewHandler{
		interviews:  interviews,
		jobRepo:     jobRepo,
		storage:     storage,
		extractor:   extractor,
		maxFileSize: maxFileSize,
	}
}

// HandleStart handles POST /api/mock-interview/start: a session against a
// posted job.
func (h *InterviewHandler) HandleStart(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}

	var req models.StartInterviewRequest
	if err := c.BodyParser(&req); err != nil {
		return errs.New(errs.KindInvalidInput, "invalid request payload")
	}
	if req.JobID == "" {
		return errs.New(errs.KindInvalidInput, "jobId is required")
	}

	jobID, err := uuid.Parse(req.JobID)
	if err != nil {
		return errs.New(errs.KindInvalidInput, "invalid jobId format")
	}

	job, err := h.jobRepo.FindByID(jobID)
	if err != nil {
		return err
	}

	session, firstMessage, err := h.interviews.StartSession(c.Context(), userID, services.StartSessionParams{
		InterviewType: models.InterviewType(req.InterviewType),
		Job:           job,
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(models.StartInterviewResponse{
		SessionID: session.ID.String(),
		Message:   firstMessage,
	})
}

// HandleStartPractice handles POST /api/mock-interview/start-practice: an
// ad-hoc session from an uploaded CV and a pasted job description.
func (h *InterviewHandler) HandleStartPractice(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}

	jobDescription := c.FormValue("jobDescription")
	if jobDescription == "" {
		return errs.New(errs.KindInvalidInput, "jobDescription is required")
	}
	interviewType := c.FormValue("interviewType")

	file, err := c.FormFile("cv")
	if err != nil {
		return errs.New(errs.KindInvalidInput, "cv file is required")
	}

	cvText, err := extractUploadedCV(file, h.storage, h.extractor, h.maxFileSize)
	if err != nil {
		return err
	}

	session, firstMessage, err := h.interviews.StartSession(c.Context(), userID, services.StartSessionParams{
		InterviewType:  models.InterviewType(interviewType),
		JobDescription: jobDescription,
		CVText:         cvText,
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(models.StartInterviewResponse{
		SessionID: session.ID.String(),
		Message:   firstMessage,
	})
}

// HandleChat handles POST /api/mock-interview/chat.
func (h *InterviewHandler) HandleChat(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}

	var req models.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return errs.New(errs.KindInvalidInput, "invalid request payload")
	}

	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		return errs.New(errs.KindInvalidInput, "invalid sessionId format")
	}

	message, questionsAsked, err := h.interviews.AdvanceSession(c.Context(), userID, sessionID, req.UserText)
	if err != nil {
		return err
	}

	return c.JSON(models.ChatResponse{
		Message:        message,
		QuestionsAsked: questionsAsked,
	})
}

// HandleEnd handles POST /api/mock-interview/end.
func (h *InterviewHandler) HandleEnd(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}

	var req models.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return errs.New(errs.KindInvalidInput, "invalid request payload")
	}

	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		return errs.New(errs.KindInvalidInput, "invalid sessionId format")
	}

	report, err := h.interviews.EndSession(c.Context(), userID, sessionID)
	if err != nil {
		return err
	}

	return c.JSON(report)
}

// HandleGetSession handles GET /api/mock-interview/session/:id.
func (h *InterviewHandler) HandleGetSession(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}

	sessionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return errs.New(errs.KindInvalidInput, "invalid session id format")
	}

	session, err := h.interviews.GetSession(userID, sessionID)
	if err != nil {
		return err
	}

	return c.JSON(models.SessionHistoryResponse{
		SessionID:      session.ID.String(),
		InterviewType:  session.InterviewType,
		Status:         session.Status,
		QuestionsAsked: session.QuestionsAsked,
		ChatHistory:    session.Transcript,
	})
}

func callerID(c *fiber.Ctx) (string, error) {
	userID := c.Get(userIDHeader)
	if userID == "" {
		return "", errs.Newf(errs.KindInvalidInput, "%s header is required", userIDHeader)
	}
	return userID, nil
}
