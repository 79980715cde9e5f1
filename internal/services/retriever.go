package services

import (
	"context"
	"fmt"
	"strings"

	"alfredoptarigan/cv-screener/internal/models"
)

// Fixed retrieval queries, one per evidence category.
const (
	QueryJobDescription = "backend responsibilities llm rag chaining async reliability safeguards"
	QueryRubricCV       = "cv match technical skills experience achievements culture collaboration"
	QueryRubricProject  = "project correctness code quality resilience error handling documentation creativity"
	QueryCandidateCV    = "skills experience backend databases apis cloud ai llm"
	QueryProject        = "prompt design chaining rag retrieval error handling retries randomness readme tests"
)

// Context budgets in characters.
const (
	JobDescriptionBudget = 6000
	RubricBudget         = 4000
	SnippetBudget        = 400
)

const DefaultTopK = 8

// JobContext is the posting-level context shared by every candidate of a job.
type JobContext struct {
	JobDescription string
	RubricCV       string
	RubricProject  string
}

// Evidence is everything the orchestrator puts in front of the model.
type Evidence struct {
	JobContext
	CV      []models.EvidenceItem
	Project []models.EvidenceItem
}

// Retriever runs the fixed queries. Posting context always comes from the durable index;
// candidate evidence comes from whichever index the caller supplies.
type Retriever struct {
	durable EvidenceIndex
	topK    int
}

func NewRetriever(durable EvidenceIndex, topK int) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{durable: durable, topK: topK}
}

// JobContext fetches the job description and both rubric blocks for jobID.
func (r *Retriever) JobContext(ctx context.Context, jobID string) (JobContext, error) {
	jd, err := r.block(ctx, QueryJobDescription,
		models.SearchFilter{JobID: jobID, SourceType: models.SourceJobDescription}, JobDescriptionBudget)
	if err != nil {
		return JobContext{}, fmt.Errorf("failed to retrieve job description: %w", err)
	}

	rubricCV, err := r.block(ctx, QueryRubricCV,
		models.SearchFilter{JobID: jobID, SourceType: models.SourceRubric, Section: models.SectionRubricCV}, RubricBudget)
	if err != nil {
		return JobContext{}, fmt.Errorf("failed to retrieve cv rubric: %w", err)
	}

	rubricProject, err := r.block(ctx, QueryRubricProject,
		models.SearchFilter{JobID: jobID, SourceType: models.SourceRubric, Section: models.SectionRubricProject}, RubricBudget)
	if err != nil {
		return JobContext{}, fmt.Errorf("failed to retrieve project rubric: %w", err)
	}

	return JobContext{JobDescription: jd, RubricCV: rubricCV, RubricProject: rubricProject}, nil
}

// CandidateEvidence queries index for source (cv or project). scope carries the job and
// candidate constraints when index is durable and is left empty for an ephemeral index.
func (r *Retriever) CandidateEvidence(ctx context.Context, index EvidenceIndex, source models.SourceType, scope models.SearchFilter) ([]models.EvidenceItem, error) {
	var query string
	switch source {
	case models.SourceCV:
		query = QueryCandidateCV
	case models.SourceProject:
		query = QueryProject
	default:
		return nil, fmt.Errorf("no candidate query for source type %q", source)
	}

	scope.SourceType = source
	hits, err := index.Search(ctx, query, scope, r.topK)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve %s evidence: %w", source, err)
	}
	return hitsToEvidence(hits), nil
}

func (r *Retriever) block(ctx context.Context, query string, filter models.SearchFilter, budget int) (string, error) {
	hits, err := r.durable.Search(ctx, query, filter, r.topK)
	if err != nil {
		return "", err
	}

	texts := make([]string, len(hits))
	for i, h := range hits {
		texts[i] = h.Text
	}
	return truncateRunes(strings.Join(texts, "\n\n"), budget), nil
}

func hitsToEvidence(hits []models.SearchHit) []models.EvidenceItem {
	items := make([]models.EvidenceItem, 0, len(hits))
	for _, h := range hits {
		items = append(items, models.EvidenceItem{
			ChunkID:  h.ID,
			Filename: h.Metadata.Filename,
			Snippet:  truncateRunes(h.Text, SnippetBudget),
		})
	}
	return items
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
