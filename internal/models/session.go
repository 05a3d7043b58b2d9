package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
)

type InterviewType string

const (
	InterviewHR       InterviewType = "HR"
	InterviewTechLead InterviewType = "Tech_Lead"
)

func (t InterviewType) Valid() bool {
	return t == InterviewHR || t == InterviewTechLead
}

type TurnRole string

const (
	RoleCandidate   TurnRole = "candidate"
	RoleInterviewer TurnRole = "interviewer"
)

// Turn is one message within a session transcript.
type Turn struct {
	Role TurnRole `json:"role"`
	Text string   `json:"text"`
}

// Transcript is stored as a jsonb column.
type Transcript []Turn

func (t Transcript) Value() (driver.Value, error) {
	return json.Marshal(t)
}

func (t *Transcript) Scan(value any) error {
	if value == nil {
		*t = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported transcript column type %T", value)
	}
	return json.Unmarshal(data, t)
}

// CandidateAnswers counts candidate turns excluding the synthetic opener
// that kicks off every session.
func (t Transcript) CandidateAnswers() int {
	count := 0
	for _, turn := range t {
		if turn.Role == RoleCandidate {
			count++
		}
	}
	if count > 0 {
		count--
	}
	return count
}

// FeedbackReport is the structured interview evaluation produced on session end.
// OverallScore is nil when the evaluation response could not be parsed.
type FeedbackReport struct {
	OverallScore   *float64 `json:"overall_score"`
	Strengths      []string `json:"strengths"`
	Weaknesses     []string `json:"weaknesses"`
	Recommendation string   `json:"recommendation"`
}

func (r FeedbackReport) Value() (driver.Value, error) {
	return json.Marshal(r)
}

func (r *FeedbackReport) Scan(value any) error {
	if value == nil {
		*r = FeedbackReport{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported feedback column type %T", value)
	}
	return json.Unmarshal(data, r)
}

// InterviewSession is one mock-interview conversation. Version guards
// transcript writes with compare-and-swap semantics so two concurrent
// advances cannot silently drop a turn.
type InterviewSession struct {
	ID             uuid.UUID       `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID         string          `gorm:"type:text;not null;index" json:"user_id"`
	InterviewType  InterviewType   `gorm:"type:text;not null" json:"interview_type"`
	JobTitle       string          `gorm:"type:text" json:"job_title"`
	JobDescription string          `gorm:"type:text" json:"job_description"`
	Company        string          `gorm:"type:text" json:"company"`
	Location       string          `gorm:"type:text" json:"location"`
	CVText         string          `gorm:"type:text" json:"-"`
	Transcript     Transcript      `gorm:"type:jsonb;not null;default:'[]'" json:"transcript"`
	QuestionsAsked int             `gorm:"not null;default:0" json:"questions_asked"`
	Status         SessionStatus   `gorm:"type:text;not null;default:'active'" json:"status"`
	Feedback       *FeedbackReport `gorm:"type:jsonb" json:"feedback,omitempty"`
	OverallScore   *float64        `gorm:"type:decimal(5,2)" json:"overall_score,omitempty"`
	Version        int             `gorm:"not null;default:0" json:"-"`
	CreatedAt      time.Time       `gorm:"type:timestamp;default:now()" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"type:timestamp;default:now()" json:"updated_at"`
}

func (InterviewSession) TableName() string {
	return "interview_sessions"
}
