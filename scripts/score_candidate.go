package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"alfredoptarigan/cv-screener/internal/bootstrap"
	"alfredoptarigan/cv-screener/internal/config"
	"alfredoptarigan/cv-screener/internal/logger"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "score a candidate whose cv and project report are already ingested",
	Args:  cobra.NoArgs,
	RunE:  runScore,
}

func init() {
	flags := scoreCmd.Flags()
	flags.String("job-id", "", "job posting id (default $JOB_ID)")
	flags.String("candidate-id", "", "candidate id used when the documents were ingested")

	rootCmd.AddCommand(scoreCmd)
}

// scoreTarget reads the posting and candidate from the score flags; the posting
// falls back to JOB_ID like the ingest command.
func scoreTarget(cmd *cobra.Command) (jobID, candidateID string, err error) {
	jobID, _ = cmd.Flags().GetString("job-id")
	candidateID, _ = cmd.Flags().GetString("candidate-id")

	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		jobID = strings.TrimSpace(viper.GetString("job-id"))
	}
	candidateID = strings.TrimSpace(candidateID)

	if jobID == "" {
		return "", "", fmt.Errorf("--job-id or JOB_ID is required")
	}
	if candidateID == "" {
		return "", "", fmt.Errorf("--candidate-id is required")
	}
	return jobID, candidateID, nil
}

func runScore(cmd *cobra.Command, _ []string) error {
	jobID, candidateID, err := scoreTarget(cmd)
	if err != nil {
		return err
	}

	cfg := config.Load()
	log, err := logger.New(cfg.Log, "score")
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	evaluator, index, err := bootstrap.BuildEvaluator(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := index.Close(); err != nil {
			log.Warn("⚠️  failed to close qdrant", zap.Error(err))
		}
	}()

	log = log.With(zap.String(logger.FieldPosting, jobID), zap.String("candidate_id", candidateID))
	log.Info("🔄 Scoring ingested candidate")

	result, err := evaluator.EvaluatePersistent(ctx, jobID, candidateID)
	if err != nil {
		log.Error("❌ Scoring failed", zap.Error(err))
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("failed to print result: %w", err)
	}

	log.Info("✅ Candidate scored", zap.String("decision", string(result.Decision)))
	return nil
}
