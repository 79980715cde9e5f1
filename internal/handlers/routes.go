package handlers

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes mounts the API under /api/v1.
func RegisterRoutes(app *fiber.App, upload *UploadHandler, evaluate *EvaluationHandler, result *ResultHandler, health *HealthHandler) {
	api := app.Group("/api/v1")

	api.Get("/health", health.HandleHealth)
	api.Post("/upload", upload.HandleUpload)
	api.Post("/evaluate", evaluate.HandleEvaluate)
	api.Get("/result/:id", result.HandleGetResult)
}
