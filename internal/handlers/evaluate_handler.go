package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/cv-screener/internal/logger"
	"alfredoptarigan/cv-screener/internal/models"
	"alfredoptarigan/cv-screener/internal/services"
)

// Enqueuer hands a queued job to a worker.
type Enqueuer interface {
	EnqueueJob(id uuid.UUID)
}

type EvaluationHandler struct {
	pipeline services.JobPipeline
	worker   Enqueuer
	log      *zap.Logger
}

func NewEvaluationHandler(pipeline services.JobPipeline, worker Enqueuer, log *zap.Logger) *EvaluationHandler {
	return &EvaluationHandler{
		pipeline: pipeline,
		worker:   worker,
		log:      logger.OrNop(log),
	}
}

// HandleEvaluate handles POST /evaluate
func (h *EvaluationHandler) HandleEvaluate(c *fiber.Ctx) error {
	var req models.EvaluateRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request payload",
		})
	}

	req.JobID = strings.TrimSpace(req.JobID)
	req.BatchID = strings.TrimSpace(req.BatchID)

	if req.JobID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "job_id is required",
		})
	}

	if req.BatchID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "batch_id is required",
		})
	}

	job, err := h.pipeline.Submit(c.UserContext(), req.JobID, req.BatchID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidBatchID):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid batch_id format",
			})
		case errors.Is(err, services.ErrBatchNotFound), errors.Is(err, services.ErrEmptyBatch):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Batch not found or empty",
			})
		}
		h.log.Error("failed to create evaluation job", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create evaluation job",
		})
	}

	h.worker.EnqueueJob(job.ID)

	return c.Status(fiber.StatusAccepted).JSON(models.EvaluateResponse{
		ID:     job.ID.String(),
		Status: string(job.Status),
	})
}
