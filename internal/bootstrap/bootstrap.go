package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"alfredoptarigan/cv-screener/internal/config"
	"alfredoptarigan/cv-screener/internal/repositories"
	"alfredoptarigan/cv-screener/internal/services"
)

// Components are the process-wide resources shared by the api and worker binaries.
type Components struct {
	DB       *gorm.DB
	JobRepo  repositories.JobRepository
	Storage  services.StorageService
	Durable  *services.DurableIndex
	Pipeline services.JobPipeline
	Worker   services.Worker
}

// Build wires every component from cfg. The caller owns Close.
func Build(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Components, error) {
	db, err := config.InitDatabase(cfg, log)
	if err != nil {
		return nil, err
	}
	c := &Components{DB: db, JobRepo: repositories.NewJobRepository(db)}

	c.Storage = services.NewStorageService(cfg.Storage.UploadPath, cfg.Storage.MaxFileSize, log)
	if err := c.Storage.EnsureUploadDir(); err != nil {
		c.Close(log)
		return nil, err
	}

	evaluator, durable, err := BuildEvaluator(ctx, cfg, log)
	if err != nil {
		c.Close(log)
		return nil, err
	}
	c.Durable = durable

	c.Pipeline = services.NewJobPipeline(c.JobRepo, c.Storage, evaluator, cfg.Worker.JobTimeout, log)
	c.Worker = services.NewWorker(
		c.JobRepo,
		c.Pipeline,
		cfg.Worker.Concurrency,
		cfg.Worker.QueueSize,
		cfg.Worker.PollInterval,
		log,
	)
	log.Info("✅ Services initialized successfully")

	return c, nil
}

// BuildEvaluator wires the scoring path without a database: embedder, durable
// index, model client and rubric. The caller closes the returned index.
func BuildEvaluator(ctx context.Context, cfg *config.Config, log *zap.Logger) (services.EvaluatorService, *services.DurableIndex, error) {
	embedder, err := services.NewGeminiEmbedder(ctx, cfg.Embedding)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	log.Info("✅ Embedder initialized", zap.String("model", cfg.Embedding.Model), zap.Int("dimension", embedder.Dimension()))

	qdrantClient, err := services.NewQdrantClient(cfg.Qdrant.URL, cfg.Qdrant.APIKey)
	if err != nil {
		return nil, nil, err
	}
	durable := services.NewDurableIndex(qdrantClient, embedder, cfg.Qdrant.Collection, log)
	log.Info("✅ Qdrant initialized", zap.String("collection", cfg.Qdrant.Collection))

	llm, err := services.NewLLMClient(ctx, cfg.LLM, log)
	if err != nil {
		_ = durable.Close()
		return nil, nil, fmt.Errorf("failed to initialize llm: %w", err)
	}

	rubric, err := services.LoadRubric()
	if err != nil {
		_ = durable.Close()
		return nil, nil, err
	}

	evaluator := services.NewEvaluatorService(
		services.NewRetriever(durable, cfg.Retrieval.TopK),
		durable,
		embedder,
		services.NewTextLoader(),
		services.NewTextChunker(cfg.Chunking.Words, cfg.Chunking.Overlap),
		llm,
		services.NewPromptBuilder(rubric),
		log,
	)
	return evaluator, durable, nil
}

// Close releases the durable index connection and the database pool.
func (c *Components) Close(log *zap.Logger) {
	var errs []error
	if c.Durable != nil {
		errs = append(errs, c.Durable.Close())
	}
	if c.DB != nil {
		errs = append(errs, config.CloseDatabase(c.DB))
	}
	if err := errors.Join(errs...); err != nil {
		log.Warn("⚠️  error while closing resources", zap.Error(err))
	}
}
