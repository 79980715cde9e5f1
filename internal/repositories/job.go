package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"alfredoptarigan/cv-screener/internal/models"
)

var (
	ErrJobNotFound       = errors.New("evaluation job not found")
	ErrInvalidTransition = errors.New("evaluation job is not in the expected state")
)

type JobRepository interface {
	Create(job *models.EvaluationJob) error
	FindByID(id uuid.UUID) (*models.EvaluationJob, error)
	// Claim moves a queued job to processing. It reports false when another worker got there first.
	Claim(id uuid.UUID) (bool, error)
	Complete(id uuid.UUID, result *models.EvaluationResult) error
	Fail(id uuid.UUID, errorMsg string) error
	FindPendingJobs(limit int) ([]models.EvaluationJob, error)
	Ping(ctx context.Context) error
}

type jobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) JobRepository {
	return &jobRepository{db: db}
}

func (r *jobRepository) Create(job *models.EvaluationJob) error {
	if err := r.db.Create(job).Error; err != nil {
		return fmt.Errorf("failed to create evaluation job: %w", err)
	}
	return nil
}

func (r *jobRepository) FindByID(id uuid.UUID) (*models.EvaluationJob, error) {
	var job models.EvaluationJob
	if err := r.db.Where("id = ?", id).First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to find evaluation job: %w", err)
	}
	return &job, nil
}

func (r *jobRepository) Claim(id uuid.UUID) (bool, error) {
	result := r.db.Model(&models.EvaluationJob{}).
		Where("id = ? AND status = ?", id, models.StatusQueued).
		Updates(map[string]interface{}{
			"status":     models.StatusProcessing,
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return false, fmt.Errorf("failed to claim job: %w", result.Error)
	}

	return result.RowsAffected == 1, nil
}

func (r *jobRepository) Complete(id uuid.UUID, res *models.EvaluationResult) error {
	details, err := json.Marshal(res.Details)
	if err != nil {
		return fmt.Errorf("failed to encode details: %w", err)
	}

	result := r.db.Model(&models.EvaluationJob{}).
		Where("id = ? AND status = ?", id, models.StatusProcessing).
		Updates(map[string]interface{}{
			"status":           models.StatusCompleted,
			"cv_match_rate":    res.CVMatchRate,
			"cv_feedback":      res.CVFeedback,
			"project_score":    res.ProjectScore,
			"project_feedback": res.ProjectFeedback,
			"overall_summary":  res.OverallSummary,
			"decision":         string(res.Decision),
			"details":          string(details),
			"updated_at":       time.Now(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update result: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrInvalidTransition
	}

	return nil
}

func (r *jobRepository) Fail(id uuid.UUID, errorMsg string) error {
	result := r.db.Model(&models.EvaluationJob{}).
		Where("id = ? AND status IN ?", id, []models.JobStatus{models.StatusQueued, models.StatusProcessing}).
		Updates(map[string]interface{}{
			"status":        models.StatusFailed,
			"error_message": errorMsg,
			"updated_at":    time.Now(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update error: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrInvalidTransition
	}

	return nil
}

func (r *jobRepository) FindPendingJobs(limit int) ([]models.EvaluationJob, error) {
	var jobs []models.EvaluationJob
	err := r.db.
		Where("status = ?", models.StatusQueued).
		Order("created_at ASC").
		Limit(limit).
		Find(&jobs).Error

	if err != nil {
		return nil, fmt.Errorf("failed to find pending jobs: %w", err)
	}

	return jobs, nil
}

func (r *jobRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database handle: %w", err)
	}
	return sqlDB.PingContext(ctx)
}
