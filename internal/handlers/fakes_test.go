package handlers

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"alfredoptarigan/cv-screener/internal/models"
	"alfredoptarigan/cv-screener/internal/repositories"
)

type memJobRepo struct {
	mu      sync.Mutex
	jobs    map[uuid.UUID]*models.EvaluationJob
	pingErr error
}

func newMemJobRepo() *memJobRepo {
	return &memJobRepo{jobs: map[uuid.UUID]*models.EvaluationJob{}}
}

func (r *memJobRepo) Create(job *models.EvaluationJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *job
	r.jobs[job.ID] = &cp
	return nil
}

func (r *memJobRepo) FindByID(id uuid.UUID) (*models.EvaluationJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, repositories.ErrJobNotFound
	}
	cp := *job
	return &cp, nil
}

func (r *memJobRepo) Claim(id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok || job.Status != models.StatusQueued {
		return false, nil
	}
	job.Status = models.StatusProcessing
	return true, nil
}

func (r *memJobRepo) Complete(id uuid.UUID, res *models.EvaluationResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok || job.Status != models.StatusProcessing {
		return repositories.ErrInvalidTransition
	}
	decision := string(res.Decision)
	job.Status = models.StatusCompleted
	job.CVMatchRate = &res.CVMatchRate
	job.CVFeedback = &res.CVFeedback
	job.ProjectScore = &res.ProjectScore
	job.ProjectFeedback = &res.ProjectFeedback
	job.OverallSummary = &res.OverallSummary
	job.Decision = &decision
	return nil
}

func (r *memJobRepo) Fail(id uuid.UUID, msg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok || job.Status.Terminal() {
		return repositories.ErrInvalidTransition
	}
	job.Status = models.StatusFailed
	job.ErrorMessage = &msg
	return nil
}

func (r *memJobRepo) FindPendingJobs(limit int) ([]models.EvaluationJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.EvaluationJob
	for _, j := range r.jobs {
		if j.Status == models.StatusQueued && len(out) < limit {
			out = append(out, *j)
		}
	}
	return out, nil
}

func (r *memJobRepo) Ping(context.Context) error { return r.pingErr }

// stubEvaluator returns a fixed result or error for uploaded files.
type stubEvaluator struct {
	result *models.EvaluationResult
	err    error
}

func (s *stubEvaluator) EvaluatePersistent(context.Context, string, string) (*models.EvaluationResult, error) {
	return nil, errors.New("not used")
}

func (s *stubEvaluator) EvaluateFromFiles(context.Context, string, []string, []string) (*models.EvaluationResult, error) {
	return s.result, s.err
}

// queueRecorder captures enqueued ids instead of running a worker.
type queueRecorder struct {
	mu  sync.Mutex
	ids []uuid.UUID
}

func (q *queueRecorder) EnqueueJob(id uuid.UUID) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ids = append(q.ids, id)
}
