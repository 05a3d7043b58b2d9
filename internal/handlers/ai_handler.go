package handlers

import (
	"log"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/nhattan2005/AI-Job-Board-sub001/internal/errs"
	"github.com/nhattan2005/AI-Job-Board-sub001/internal/models"
	"github.com/nhattan2005/AI-Job-Board-sub001/internal/repositories"
	"github.com/nhattan2005/AI-Job-Board-sub001/internal/services"
)

// AIHandler serves the CV-to-job matching and tailoring endpoints.
type AIHandler struct {
	jobRepo     repositories.JobRepository
	storage     services.StorageService
	extractor   services.TextExtractor
	matcher     services.MatcherService
	tailor      services.TailoringService
	maxFileSize int64
}

func NewAIHandler(
	jobRepo repositories.JobRepository,
	storage services.StorageService,
	extractor services.TextExtractor,
	matcher services.MatcherService,
	tailor services.TailoringService,
	maxFileSize int64,
) *AIHandler {
	return &AIHandler{
		jobRepo:     jobRepo,
		storage:     storage,
		extractor:   extractor,
		matcher:     matcher,
		tailor:      tailor,
		maxFileSize: maxFileSize,
	}
}

// HandleMatch handles POST /api/ai/match. The CV arrives as a multipart file;
// the job side is either a posted job id or free-text job description.
func (h *AIHandler) HandleMatch(c *fiber.Ctx) error {
	cvText, err := h.extractCV(c)
	if err != nil {
		return err
	}

	job, jobDescription, err := h.resolveJobSide(c)
	if err != nil {
		return err
	}

	var score float64
	if job != nil {
		score, err = h.matcher.ComputeMatchScoreForJob(c.Context(), job, cvText)
	} else {
		score, err = h.matcher.ComputeMatchScore(c.Context(), jobDescription, cvText)
	}
	if err != nil {
		return err
	}

	return c.JSON(models.MatchResponse{Score: score})
}

// HandleTailorCV handles POST /api/ai/tailor-cv.
func (h *AIHandler) HandleTailorCV(c *fiber.Ctx) error {
	cvText, err := h.extractCV(c)
	if err != nil {
		return err
	}

	job, jobDescription, err := h.resolveJobSide(c)
	if err != nil {
		return err
	}
	if job != nil {
		jobDescription = job.MatchText()
	}

	suggestions, err := h.tailor.ComputeTailoringSuggestions(c.Context(), cvText, jobDescription)
	if err != nil {
		return err
	}

	return c.JSON(models.TailorResponse{Suggestions: suggestions})
}

// extractCV stages the uploaded CV, extracts its text, and removes the file.
func (h *AIHandler) extractCV(c *fiber.Ctx) (string, error) {
	file, err := c.FormFile("cv")
	if err != nil {
		return "", errs.New(errs.KindInvalidInput, "cv file is required")
	}

	return extractUploadedCV(file, h.storage, h.extractor, h.maxFileSize)
}

// resolveJobSide returns either a posted job (jobId field) or a free-text
// description (jobDescription field).
func (h *AIHandler) resolveJobSide(c *fiber.Ctx) (*models.Job, string, error) {
	jobIDStr := c.FormValue("jobId")
	jobDescription := c.FormValue("jobDescription")

	if jobIDStr != "" {
		jobID, err := uuid.Parse(jobIDStr)
		if err != nil {
			return nil, "", errs.New(errs.KindInvalidInput, "invalid jobId format")
		}
		job, err := h.jobRepo.FindByID(jobID)
		if err != nil {
			return nil, "", err
		}
		return job, "", nil
	}

	if jobDescription == "" {
		return nil, "", errs.New(errs.KindInvalidInput, "either jobId or jobDescription is required")
	}
	return nil, jobDescription, nil
}

// extractUploadedCV is shared by every endpoint that accepts a CV upload.
func extractUploadedCV(file *multipart.FileHeader, storage services.StorageService, extractor services.TextExtractor, maxFileSize int64) (string, error) {
	if file.Size > maxFileSize {
		return "", errs.Newf(errs.KindInvalidInput, "cv file too large, max size: %d bytes", maxFileSize)
	}

	filename, filePath, err := storage.SaveFile(file)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := storage.DeleteFile(filename); err != nil {
			log.Printf("⚠️  Failed to remove staged upload %s: %v", filename, err)
		}
	}()

	return extractor.ExtractText(filePath)
}
