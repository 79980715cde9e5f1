package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"alfredoptarigan/cv-screener/internal/bootstrap"
	"alfredoptarigan/cv-screener/internal/config"
	"alfredoptarigan/cv-screener/internal/logger"
)

// Runs only the evaluation worker. Any number of these may share one database.
func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Log, "worker")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := cfg.Validate(); err != nil {
		log.Fatal("❌ Invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	comps, err := bootstrap.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal("❌ Failed to initialize worker", zap.Error(err))
	}
	defer comps.Close(log)

	comps.Worker.Start(ctx)
	log.Info("👷 Listening for evaluation jobs", zap.Duration("poll_interval", cfg.Worker.PollInterval))

	<-ctx.Done()
	comps.Worker.Stop()
}
