package repositories

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nhattan2005/AI-Job-Board-sub001/internal/errs"
	"github.com/nhattan2005/AI-Job-Board-sub001/internal/models"
)

type SessionRepository interface {
	Create(session *models.InterviewSession) error
	FindByID(id uuid.UUID) (*models.InterviewSession, error)
	// AppendExchange appends a candidate/interviewer turn pair and bumps the
	// question counter. The write is guarded by the version the caller read:
	// if another advance committed first, nothing is written and a conflict
	// error is returned.
	AppendExchange(id uuid.UUID, version int, candidate, interviewer models.Turn) error
	Complete(id uuid.UUID, report *models.FeedbackReport, score *float64) error
	FindIdleActive(idleSince time.Time, limit int) ([]models.InterviewSession, error)
}

type sessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Create(session *models.InterviewSession) error {
	if err := r.db.Create(session).Error; err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (r *sessionRepository) FindByID(id uuid.UUID) (*models.InterviewSession, error) {
	var session models.InterviewSession
	if err := r.db.Where("id = ?", id).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.New(errs.KindNotFound, "session not found")
		}
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	return &session, nil
}

func (r *sessionRepository) AppendExchange(id uuid.UUID, version int, candidate, interviewer models.Turn) error {
	var session models.InterviewSession

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND version = ?", id, version).First(&session).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.New(errs.KindConflict, "session was modified concurrently")
			}
			return fmt.Errorf("failed to load session for append: %w", err)
		}

		transcript := append(session.Transcript, candidate, interviewer)

		result := tx.Model(&models.InterviewSession{}).
			Where("id = ? AND version = ?", id, version).
			Updates(map[string]interface{}{
				"transcript":      transcript,
				"questions_asked": session.QuestionsAsked + 1,
				"version":         version + 1,
				"updated_at":      time.Now(),
			})

		if result.Error != nil {
			return fmt.Errorf("failed to append exchange: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return errs.New(errs.KindConflict, "session was modified concurrently")
		}
		return nil
	})

	return err
}

func (r *sessionRepository) Complete(id uuid.UUID, report *models.FeedbackReport, score *float64) error {
	updates := map[string]interface{}{
		"status":     models.SessionCompleted,
		"updated_at": time.Now(),
	}
	if report != nil {
		updates["feedback"] = report
	}
	if score != nil {
		updates["overall_score"] = *score
	}

	result := r.db.Model(&models.InterviewSession{}).
		Where("id = ?", id).
		Updates(updates)

	if result.Error != nil {
		return fmt.Errorf("failed to complete session: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errs.New(errs.KindNotFound, "session not found")
	}
	return nil
}

func (r *sessionRepository) FindIdleActive(idleSince time.Time, limit int) ([]models.InterviewSession, error) {
	var sessions []models.InterviewSession
	err := r.db.
		Where("status = ? AND updated_at < ?", models.SessionActive, idleSince).
		Order("updated_at ASC").
		Limit(limit).
		Find(&sessions).Error

	if err != nil {
		return nil, fmt.Errorf("failed to find idle sessions: %w", err)
	}
	return sessions, nil
}
