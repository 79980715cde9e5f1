package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"alfredoptarigan/cv-screener/internal/models"
	"alfredoptarigan/cv-screener/internal/repositories"
)

type ResultHandler struct {
	jobRepo repositories.JobRepository
}

func NewResultHandler(jobRepo repositories.JobRepository) *ResultHandler {
	return &ResultHandler{
		jobRepo: jobRepo,
	}
}

// HandleGetResult handles GET /result/:id
func (h *ResultHandler) HandleGetResult(c *fiber.Ctx) error {
	jobID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid evaluation ID format",
		})
	}

	job, err := h.jobRepo.FindByID(jobID)
	if err != nil {
		if errors.Is(err, repositories.ErrJobNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Evaluation not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load evaluation",
		})
	}

	return c.JSON(toResultResponse(job))
}

func toResultResponse(job *models.EvaluationJob) models.ResultResponse {
	response := models.ResultResponse{
		ID:     job.ID.String(),
		Status: string(job.Status),
	}

	if job.Status == models.StatusCompleted {
		response.Result = &models.EvaluationData{
			CVMatchRate:     deref(job.CVMatchRate),
			CVFeedback:      deref(job.CVFeedback),
			ProjectScore:    deref(job.ProjectScore),
			ProjectFeedback: deref(job.ProjectFeedback),
			OverallSummary:  deref(job.OverallSummary),
			Decision:        deref(job.Decision),
		}
	}

	if job.Status == models.StatusFailed && job.ErrorMessage != nil {
		response.Error = job.ErrorMessage
	}

	return response
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
