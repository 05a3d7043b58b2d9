package models

import (
	"time"

	"github.com/google/uuid"
)

// Job is the read model for posted jobs. Full job CRUD lives in the main
// board service; the AI core only needs to resolve a job id into text.
type Job struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Title       string    `gorm:"type:text;not null" json:"title"`
	Description string    `gorm:"type:text;not null" json:"description"`
	Company     string    `gorm:"type:text" json:"company"`
	Location    string    `gorm:"type:text" json:"location"`
	CreatedAt   time.Time `gorm:"type:timestamp;default:now()" json:"created_at"`
	UpdatedAt   time.Time `gorm:"type:timestamp;default:now()" json:"updated_at"`
}

func (Job) TableName() string {
	return "jobs"
}

// MatchText is the job text fed to the embedding model.
func (j *Job) MatchText() string {
	return j.Title + "\n\n" + j.Description
}
