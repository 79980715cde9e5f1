package services

import (
	"context"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"alfredoptarigan/cv-screener/internal/models"
	"alfredoptarigan/cv-screener/internal/repositories"
)

// hashEmbedder maps each word to a bucket so texts sharing words are close.
type hashEmbedder struct {
	dim int

	mu      sync.Mutex
	batches [][]string
}

func newHashEmbedder() *hashEmbedder {
	return &hashEmbedder{dim: 64}
}

func (h *hashEmbedder) Dimension() int { return h.dim }

func (h *hashEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	h.mu.Lock()
	h.batches = append(h.batches, append([]string(nil), texts...))
	h.mu.Unlock()

	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, h.dim)
		for _, w := range strings.Fields(strings.ToLower(t)) {
			f := fnv.New32a()
			_, _ = f.Write([]byte(w))
			v[f.Sum32()%uint32(h.dim)]++
		}
		out[i] = normalizeVector(v)
	}
	return out, nil
}

func (h *hashEmbedder) calls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.batches)
}

// shortEmbedder claims a wider dimension than it produces.
type shortEmbedder struct{}

func (shortEmbedder) Dimension() int { return 8 }

func (shortEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0, 0}
	}
	return out, nil
}

// droppingEmbedder answers every batch with a single vector.
type droppingEmbedder struct{}

func (droppingEmbedder) Dimension() int { return 4 }

func (droppingEmbedder) Embed(context.Context, []string) ([][]float32, error) {
	return [][]float32{{1, 0, 0, 0}}, nil
}

type llmReply struct {
	text string
	err  error
}

// scriptedLLM returns replies in order and records the json mode of every call.
type scriptedLLM struct {
	mu        sync.Mutex
	replies   []llmReply
	jsonModes []bool
	messages  [][]ChatMessage
}

func (s *scriptedLLM) Complete(_ context.Context, messages []ChatMessage, jsonMode bool) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.jsonModes = append(s.jsonModes, jsonMode)
	s.messages = append(s.messages, messages)
	if len(s.replies) == 0 {
		return "", &ProviderError{Provider: "fake", Body: "no scripted reply"}
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return r.text, r.err
}

// memJobRepo is an in-memory JobRepository with the same transition rules as the gorm one.
type memJobRepo struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*models.EvaluationJob
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
	job.ProjectScore = &res.ProjectScore
	job.CVFeedback = &res.CVFeedback
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

func (r *memJobRepo) Ping(context.Context) error { return nil }

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const validLLMOutput = `{
  "cv": {
    "feedback": "Strong backend profile.",
    "dimensions": [
      {"name": "Technical Skills Match", "weight": 0.40, "score": 4, "rationale": "Go and Postgres", "evidence": [{"chunk_id": "c1", "filename": "cv.txt", "snippet": "Go"}]},
      {"name": "Experience Level", "weight": 0.25, "score": 4, "rationale": "5 years", "evidence": []},
      {"name": "Relevant Achievements", "weight": 0.20, "score": 4, "rationale": "scaled systems", "evidence": []},
      {"name": "Cultural / Collaboration Fit", "weight": 0.15, "score": 4, "rationale": "mentoring", "evidence": []}
    ]
  },
  "project": {
    "feedback": "Solid RAG pipeline.",
    "dimensions": [
      {"name": "Correctness (Prompt & Chaining)", "weight": 0.30, "score": 4, "rationale": "ok", "evidence": []},
      {"name": "Code Quality & Structure", "weight": 0.25, "score": 4, "rationale": "ok", "evidence": []},
      {"name": "Resilience & Error Handling", "weight": 0.20, "score": 4, "rationale": "ok", "evidence": []},
      {"name": "Documentation & Explanation", "weight": 0.15, "score": 4, "rationale": "ok", "evidence": []},
      {"name": "Creativity / Bonus", "weight": 0.10, "score": 4, "rationale": "ok", "evidence": []}
    ]
  },
  "overall_summary": "Recommended for the next stage.",
  "risks": ["limited frontend exposure"]
}`
