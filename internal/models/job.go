package models

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// Terminal reports whether no further transition is allowed.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// EvaluationJob is one asynchronous evaluation of an upload batch.
type EvaluationJob struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	JobID           string    `gorm:"type:text;not null" json:"job_id"`
	BatchID         string    `gorm:"type:text;not null;index" json:"batch_id"`
	Status          JobStatus `gorm:"not null;default:'queued';index" json:"status"`
	CVMatchRate     *float64  `gorm:"type:decimal(5,4)" json:"cv_match_rate,omitempty"`
	CVFeedback      *string   `gorm:"type:text" json:"cv_feedback,omitempty"`
	ProjectScore    *float64  `gorm:"type:decimal(3,2)" json:"project_score,omitempty"`
	ProjectFeedback *string   `gorm:"type:text" json:"project_feedback,omitempty"`
	OverallSummary  *string   `gorm:"type:text" json:"overall_summary,omitempty"`
	Decision        *string   `gorm:"type:text" json:"decision,omitempty"`
	Details         *string   `gorm:"type:jsonb" json:"details,omitempty"`
	ErrorMessage    *string   `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt       time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (EvaluationJob) TableName() string {
	return "evaluation_jobs"
}
