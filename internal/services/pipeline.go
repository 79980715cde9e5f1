package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/cv-screener/internal/logger"
	"alfredoptarigan/cv-screener/internal/models"
	"alfredoptarigan/cv-screener/internal/repositories"
)

// MaxErrorLength bounds the failure message recorded on a job.
const MaxErrorLength = 2000

// AsyncOutcome is what one run of the pipeline reports.
type AsyncOutcome struct {
	Status models.JobStatus
	Result *models.EvaluationResult
	Error  string
}

type JobPipeline interface {
	// Submit checks the batch and records a queued job for it.
	Submit(ctx context.Context, jobID, batchID string) (*models.EvaluationJob, error)
	// Process claims and runs one queued job. Jobs claimed elsewhere are skipped.
	Process(ctx context.Context, id uuid.UUID) error
	// RunAsyncEvaluation evaluates the files and deletes the batch on every exit path.
	RunAsyncEvaluation(ctx context.Context, jobID string, files BatchFiles, batchID string) AsyncOutcome
}

type jobPipeline struct {
	jobRepo    repositories.JobRepository
	storage    StorageService
	evaluator  EvaluatorService
	jobTimeout time.Duration
	log        *zap.Logger
}

func NewJobPipeline(
	jobRepo repositories.JobRepository,
	storage StorageService,
	evaluator EvaluatorService,
	jobTimeout time.Duration,
	log *zap.Logger,
) JobPipeline {
	return &jobPipeline{
		jobRepo:    jobRepo,
		storage:    storage,
		evaluator:  evaluator,
		jobTimeout: jobTimeout,
		log:        logger.OrNop(log),
	}
}

// Submit implements JobPipeline.
func (p *jobPipeline) Submit(ctx context.Context, jobID, batchID string) (*models.EvaluationJob, error) {
	if jobID == "" {
		return nil, errors.New("job_id is required")
	}
	if _, err := p.storage.BatchPaths(batchID); err != nil {
		return nil, err
	}

	now := time.Now()
	job := &models.EvaluationJob{
		ID:        uuid.New(),
		JobID:     jobID,
		BatchID:   batchID,
		Status:    models.StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := p.jobRepo.Create(job); err != nil {
		return nil, err
	}

	p.log.Info("📋 evaluation job queued", logger.JobFields(job.ID.String(), jobID, batchID)...)
	return job, nil
}

// Process implements JobPipeline.
func (p *jobPipeline) Process(ctx context.Context, id uuid.UUID) error {
	claimed, err := p.jobRepo.Claim(id)
	if err != nil {
		return err
	}
	if !claimed {
		p.log.Debug("job already claimed", zap.String(logger.FieldJobID, id.String()))
		return nil
	}

	job, err := p.jobRepo.FindByID(id)
	if err != nil {
		// The batch id is unknown here, so the upload stays for the operator.
		return p.abandon(id, fmt.Errorf("failed to load claimed job: %w", err))
	}
	log := p.log.With(logger.JobFields(id.String(), job.JobID, job.BatchID)...)

	var outcome AsyncOutcome
	files, err := p.storage.BatchPaths(job.BatchID)
	if err != nil {
		p.cleanup(log, job.BatchID)
		outcome = AsyncOutcome{Status: models.StatusFailed, Error: err.Error()}
	} else {
		runCtx := ctx
		if p.jobTimeout > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(ctx, p.jobTimeout)
			defer cancel()
		}
		outcome = p.RunAsyncEvaluation(runCtx, job.JobID, *files, job.BatchID)
	}

	if outcome.Status == models.StatusCompleted {
		if err := p.jobRepo.Complete(id, outcome.Result); err != nil {
			log.Error("❌ Failed to save evaluation results", zap.Error(err))
			return p.abandon(id, fmt.Errorf("failed to save results: %w", err))
		}
		log.Info("✅ Evaluation completed successfully")
		return nil
	}

	if err := p.jobRepo.Fail(id, outcome.Error); err != nil {
		return fmt.Errorf("failed to record failure: %w", err)
	}
	log.Warn("❌ Evaluation failed", zap.String("error", outcome.Error))
	return nil
}

// abandon moves a claimed job to failed after cause so it never stays processing.
func (p *jobPipeline) abandon(id uuid.UUID, cause error) error {
	if err := p.jobRepo.Fail(id, truncateRunes(cause.Error(), MaxErrorLength)); err != nil {
		p.log.Error("❌ Failed to record job failure",
			zap.String(logger.FieldJobID, id.String()), zap.Error(err))
		return fmt.Errorf("%w (recording failure: %v)", cause, err)
	}
	return cause
}

// RunAsyncEvaluation implements JobPipeline.
func (p *jobPipeline) RunAsyncEvaluation(ctx context.Context, jobID string, files BatchFiles, batchID string) (outcome AsyncOutcome) {
	log := p.log.With(logger.JobFields("", jobID, batchID)...)
	start := time.Now()

	defer p.cleanup(log, batchID)
	defer func() {
		if r := recover(); r != nil {
			outcome = failedOutcome(fmt.Errorf("evaluation panicked: %v", r))
		}
	}()

	log.Info("🔄 Starting evaluation",
		zap.Int("cv_files", len(files.CV)),
		zap.Int("project_files", len(files.Project)),
	)

	result, err := p.evaluator.EvaluateFromFiles(ctx, jobID, files.CV, files.Project)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("job timed out after %s: %w", p.jobTimeout, err)
		}
		return failedOutcome(err)
	}

	log.Info("evaluation done", zap.Duration("elapsed", time.Since(start)))
	return AsyncOutcome{Status: models.StatusCompleted, Result: result}
}

func failedOutcome(err error) AsyncOutcome {
	return AsyncOutcome{Status: models.StatusFailed, Error: truncateRunes(err.Error(), MaxErrorLength)}
}

// cleanup deletes the batch directory. Errors are logged and never change the outcome.
func (p *jobPipeline) cleanup(log *zap.Logger, batchID string) {
	if err := p.storage.DeleteBatch(batchID); err != nil {
		log.Warn("⚠️  batch cleanup failed", zap.Error(err))
		return
	}
	log.Debug("batch cleaned up")
}
