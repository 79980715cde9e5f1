package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/cv-screener/internal/logger"
	"alfredoptarigan/cv-screener/internal/repositories"
)

const pendingBatchSize = 10

type Worker interface {
	Start(ctx context.Context)
	Stop()
	EnqueueJob(id uuid.UUID)
}

type worker struct {
	jobRepo      repositories.JobRepository
	pipeline     JobPipeline
	jobQueue     chan uuid.UUID
	concurrency  int
	pollInterval time.Duration
	wg           sync.WaitGroup
	stopChan     chan struct{}
	stopOnce     sync.Once
	log          *zap.Logger
}

func NewWorker(
	jobRepo repositories.JobRepository,
	pipeline JobPipeline,
	concurrency int,
	queueSize int,
	pollInterval time.Duration,
	log *zap.Logger,
) Worker {
	if concurrency <= 0 {
		concurrency = 1
	}
	if queueSize <= 0 {
		queueSize = 100
	}
	if pollInterval <= 0 {
		pollInterval = 10 * time.Second
	}
	return &worker{
		jobRepo:      jobRepo,
		pipeline:     pipeline,
		jobQueue:     make(chan uuid.UUID, queueSize),
		concurrency:  concurrency,
		pollInterval: pollInterval,
		stopChan:     make(chan struct{}),
		log:          logger.OrNop(log),
	}
}

// Start implements Worker.
func (w *worker) Start(ctx context.Context) {
	w.log.Info("🚀 Starting worker", zap.Int("concurrency", w.concurrency))

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.processJobs(ctx, i+1)
	}

	w.wg.Add(1)
	go w.pollPendingJobs(ctx)

	w.log.Info("✅ Worker started successfully")
}

// Stop implements Worker. In-flight jobs run to completion or to their job timeout.
func (w *worker) Stop() {
	w.log.Info("🛑 Stopping worker...")
	w.stopOnce.Do(func() { close(w.stopChan) })
	w.wg.Wait()
	w.log.Info("✅ Worker stopped")
}

// EnqueueJob implements Worker. A full queue drops the id; the poller picks the job up later.
func (w *worker) EnqueueJob(id uuid.UUID) {
	// Checked on its own: select picks randomly among ready cases.
	select {
	case <-w.stopChan:
		w.log.Warn("⚠️  Worker stopped, cannot enqueue job", zap.String(logger.FieldJobID, id.String()))
		return
	default:
	}

	select {
	case w.jobQueue <- id:
		w.log.Debug("📥 Job enqueued", zap.String(logger.FieldJobID, id.String()))
	default:
		w.log.Warn("⚠️  Job queue full, leaving job to the poller", zap.String(logger.FieldJobID, id.String()))
	}
}

func (w *worker) processJobs(ctx context.Context, workerID int) {
	defer w.wg.Done()
	log := w.log.With(zap.Int("worker", workerID))
	log.Debug("👷 Worker processing jobs")

	for {
		select {
		case <-w.stopChan:
			log.Debug("👷 Worker stopped")
			return
		case <-ctx.Done():
			return
		case id := <-w.jobQueue:
			if err := w.pipeline.Process(context.WithoutCancel(ctx), id); err != nil {
				log.Error("❌ Failed to process job", zap.String(logger.FieldJobID, id.String()), zap.Error(err))
			}
		}
	}
}

func (w *worker) pollPendingJobs(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.log.Debug("🔄 Starting pending jobs poller", zap.Duration("interval", w.pollInterval))

	for {
		select {
		case <-w.stopChan:
			w.log.Debug("🔄 Pending jobs poller stopped")
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			pendingJobs, err := w.jobRepo.FindPendingJobs(pendingBatchSize)
			if err != nil {
				w.log.Warn("⚠️  Failed to fetch pending jobs", zap.Error(err))
				continue
			}

			if len(pendingJobs) > 0 {
				w.log.Info("📋 Found pending jobs", zap.Int("count", len(pendingJobs)))
			}

			for _, job := range pendingJobs {
				w.EnqueueJob(job.ID)
			}
		}
	}
}
