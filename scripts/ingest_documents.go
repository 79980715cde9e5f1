package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"alfredoptarigan/cv-screener/internal/config"
	"alfredoptarigan/cv-screener/internal/logger"
	"alfredoptarigan/cv-screener/internal/models"
	"alfredoptarigan/cv-screener/internal/services"
)

var rootCmd = &cobra.Command{
	Use:   "ingest",
	Short: "ingest job descriptions, rubrics and candidate documents into the durable evidence index",
	RunE:  runIngest,
}

func init() {
	flags := rootCmd.Flags()
	flags.String("job-id", "", "job posting id (default $JOB_ID)")
	flags.String("source-type", string(models.SourceJobDescription), "jd | rubric | cv | project")
	flags.String("section", "", "section label, e.g. rubric_cv or rubric_project")
	flags.String("candidate-id", "", "candidate id for cv/project documents")
	flags.StringArray("paths", nil, "document path (repeatable)")
	flags.Bool("no-pii-mask", false, "disable email/phone masking")
	flags.Bool("auto-section", false, "split a job description on its headings")
	flags.Bool("replace-candidate", false, "delete the candidate's existing records before ingesting")

	_ = rootCmd.MarkFlagRequired("paths")

	for _, name := range []string{"job-id", "source-type", "section", "candidate-id", "no-pii-mask", "auto-section", "replace-candidate"} {
		if err := viper.BindPFlag(name, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("binding %s flag: %v", name, err))
		}
	}
	if err := viper.BindEnv("job-id", "JOB_ID"); err != nil {
		panic(fmt.Sprintf("binding JOB_ID environment variable: %v", err))
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runIngest(cmd *cobra.Command, _ []string) error {
	paths, err := cmd.Flags().GetStringArray("paths")
	if err != nil {
		return err
	}

	opts := services.IngestOptions{
		JobID:       strings.TrimSpace(viper.GetString("job-id")),
		SourceType:  models.SourceType(viper.GetString("source-type")),
		Section:     viper.GetString("section"),
		CandidateID: viper.GetString("candidate-id"),
		MaskPII:     !viper.GetBool("no-pii-mask"),
	}
	if opts.JobID == "" {
		return fmt.Errorf("--job-id or JOB_ID is required")
	}
	if !opts.SourceType.Valid() {
		return fmt.Errorf("invalid --source-type %q", opts.SourceType)
	}
	autoSection := viper.GetBool("auto-section")
	if autoSection && opts.SourceType != models.SourceJobDescription {
		return fmt.Errorf("--auto-section only applies to --source-type jd")
	}

	cfg := config.Load()
	log, err := logger.New(cfg.Log, "ingest")
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("🚀 Starting document ingestion...", zap.Int("documents", len(paths)))

	embedder, err := services.NewGeminiEmbedder(ctx, cfg.Embedding)
	if err != nil {
		return fmt.Errorf("failed to initialize embedder: %w", err)
	}

	client, err := services.NewQdrantClient(cfg.Qdrant.URL, cfg.Qdrant.APIKey)
	if err != nil {
		return err
	}
	index := services.NewDurableIndex(client, embedder, cfg.Qdrant.Collection, log)
	defer func() {
		if err := index.Close(); err != nil {
			log.Warn("⚠️  failed to close qdrant", zap.Error(err))
		}
	}()

	if viper.GetBool("replace-candidate") {
		if opts.CandidateID == "" {
			return fmt.Errorf("--replace-candidate requires --candidate-id")
		}
		if err := index.DeleteCandidate(ctx, opts.JobID, opts.CandidateID); err != nil {
			return err
		}
		log.Info("🗑️  previous candidate records deleted", zap.String("candidate_id", opts.CandidateID))
	}

	ingestor := services.NewIngestor(
		index,
		services.NewTextLoader(),
		services.NewTextChunker(cfg.Chunking.Words, cfg.Chunking.Overlap),
		log,
	)

	summary, err := ingestor.IngestBatch(ctx, paths, opts, autoSection)
	if err != nil {
		log.Error("❌ Ingestion failed", zap.Error(err), zap.Int("chunks_before_failure", summary.Chunks))
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("failed to print summary: %w", err)
	}

	log.Info("✅ All documents ingested successfully!", zap.Int("chunks", summary.Chunks))
	return nil
}
