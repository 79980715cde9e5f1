package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"alfredoptarigan/cv-screener/internal/logger"
	"alfredoptarigan/cv-screener/internal/models"
)

// UploadCandidateID labels evidence built from uploaded files. It is never persisted.
const UploadCandidateID = "upload"

type EvaluatorService interface {
	// EvaluatePersistent scores a candidate whose CV and project are already in the durable index.
	EvaluatePersistent(ctx context.Context, jobID, candidateID string) (*models.EvaluationResult, error)
	// EvaluateFromFiles scores uploaded files through ephemeral indexes that are discarded afterwards.
	EvaluateFromFiles(ctx context.Context, jobID string, cvPaths, projectPaths []string) (*models.EvaluationResult, error)
}

type evaluatorService struct {
	retriever     *Retriever
	durable       EvidenceIndex
	embedder      Embedder
	loader        TextLoader
	chunker       TextChunker
	llm           LLMClient
	promptBuilder *PromptBuilder
	log           *zap.Logger
}

func NewEvaluatorService(
	retriever *Retriever,
	durable EvidenceIndex,
	embedder Embedder,
	loader TextLoader,
	chunker TextChunker,
	llm LLMClient,
	promptBuilder *PromptBuilder,
	log *zap.Logger,
) EvaluatorService {
	return &evaluatorService{
		retriever:     retriever,
		durable:       durable,
		embedder:      embedder,
		loader:        loader,
		chunker:       chunker,
		llm:           llm,
		promptBuilder: promptBuilder,
		log:           logger.OrNop(log),
	}
}

// EvaluatePersistent implements EvaluatorService.
func (e *evaluatorService) EvaluatePersistent(ctx context.Context, jobID, candidateID string) (*models.EvaluationResult, error) {
	if candidateID == "" {
		return nil, errors.New("candidate id is required in persistent mode")
	}

	scope := models.SearchFilter{JobID: jobID, CandidateID: candidateID}
	ev, err := e.gather(ctx, jobID,
		func(ctx context.Context) ([]models.EvidenceItem, error) {
			return e.retriever.CandidateEvidence(ctx, e.durable, models.SourceCV, scope)
		},
		func(ctx context.Context) ([]models.EvidenceItem, error) {
			return e.retriever.CandidateEvidence(ctx, e.durable, models.SourceProject, scope)
		},
	)
	if err != nil {
		return nil, err
	}
	return e.score(ctx, ev)
}

// EvaluateFromFiles implements EvaluatorService.
func (e *evaluatorService) EvaluateFromFiles(ctx context.Context, jobID string, cvPaths, projectPaths []string) (*models.EvaluationResult, error) {
	ev, err := e.gather(ctx, jobID,
		func(ctx context.Context) ([]models.EvidenceItem, error) {
			return e.ephemeralEvidence(ctx, jobID, models.SourceCV, cvPaths)
		},
		func(ctx context.Context) ([]models.EvidenceItem, error) {
			return e.ephemeralEvidence(ctx, jobID, models.SourceProject, projectPaths)
		},
	)
	if err != nil {
		return nil, err
	}
	return e.score(ctx, ev)
}

func (e *evaluatorService) ephemeralEvidence(ctx context.Context, jobID string, source models.SourceType, paths []string) ([]models.EvidenceItem, error) {
	idx, err := BuildEphemeralIndex(ctx, e.loader, e.chunker, e.embedder, paths, EphemeralScope{
		JobID:       jobID,
		CandidateID: UploadCandidateID,
		SourceType:  source,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build %s index: %w", source, err)
	}

	e.log.Debug("ephemeral index built",
		zap.String(logger.FieldPosting, jobID),
		zap.String("source_type", string(source)),
		zap.Int("files", len(paths)),
		zap.Int("chunks", idx.Len()),
	)
	return e.retriever.CandidateEvidence(ctx, idx, source, models.SearchFilter{})
}

type evidenceFunc func(ctx context.Context) ([]models.EvidenceItem, error)

// gather fetches posting context and both candidate evidence sets concurrently and
// returns once all three are done.
func (e *evaluatorService) gather(ctx context.Context, jobID string, cvFn, projectFn evidenceFunc) (Evidence, error) {
	var ev Evidence
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		jc, err := e.retriever.JobContext(gctx, jobID)
		if err != nil {
			return err
		}
		ev.JobContext = jc
		return nil
	})
	g.Go(func() error {
		items, err := cvFn(gctx)
		if err != nil {
			return err
		}
		ev.CV = items
		return nil
	})
	g.Go(func() error {
		items, err := projectFn(gctx)
		if err != nil {
			return err
		}
		ev.Project = items
		return nil
	})

	if err := g.Wait(); err != nil {
		return Evidence{}, err
	}

	e.log.Info("🔍 evidence retrieved",
		zap.String(logger.FieldPosting, jobID),
		zap.Int("cv_evidence", len(ev.CV)),
		zap.Int("project_evidence", len(ev.Project)),
	)
	return ev, nil
}

// score asks the model in JSON mode and retries once without it when the output
// does not validate. Provider errors are not retried.
func (e *evaluatorService) score(ctx context.Context, ev Evidence) (*models.EvaluationResult, error) {
	messages, err := e.promptBuilder.BuildMessages(ev)
	if err != nil {
		return nil, err
	}

	e.log.Info("🤖 Evaluating candidate with LLM...")
	raw, err := e.llm.Complete(ctx, messages, true)
	if err != nil {
		return nil, fmt.Errorf("failed to get llm response: %w", err)
	}

	result, verr := ValidateLLMOutput(raw)
	if verr != nil {
		e.log.Warn("⚠️  LLM output failed validation, retrying without json mode",
			zap.Error(verr),
			zap.String("response_preview", logger.TruncateForLog(raw, 200)),
		)

		raw, err = e.llm.Complete(ctx, messages, false)
		if err != nil {
			return nil, fmt.Errorf("failed to get llm response on retry: %w", err)
		}
		result, verr = ValidateLLMOutput(raw)
		if verr != nil {
			return nil, fmt.Errorf("llm output invalid after retry: %w", verr)
		}
	}

	out := Aggregate(result)
	e.log.Info("✅ Evaluation scored",
		zap.Float64("cv_match_rate", out.CVMatchRate),
		zap.Float64("project_score", out.ProjectScore),
		zap.String("decision", string(out.Decision)),
	)
	return out, nil
}
