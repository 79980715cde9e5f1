package handlers

import (
	"errors"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"alfredoptarigan/cv-screener/internal/logger"
	"alfredoptarigan/cv-screener/internal/services"
)

type UploadHandler struct {
	storageService services.StorageService
	log            *zap.Logger
}

func NewUploadHandler(storageService services.StorageService, log *zap.Logger) *UploadHandler {
	return &UploadHandler{
		storageService: storageService,
		log:            logger.OrNop(log),
	}
}

func formFiles(form *multipart.Form, field string) []*multipart.FileHeader {
	files := append([]*multipart.FileHeader{}, form.File[field]...)
	return append(files, form.File[field+"[]"]...)
}

// HandleUpload handles POST /upload
func (h *UploadHandler) HandleUpload(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "failed to parse multipart form",
		})
	}

	resp, err := h.storageService.SaveBatch(formFiles(form, "cv_files"), formFiles(form, "project_files"))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyBatch):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "No files uploaded. Please upload 'cv_files' and/or 'project_files'.",
			})
		case errors.Is(err, services.ErrUnsupportedFormat), errors.Is(err, services.ErrFileTooLarge):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		h.log.Error("failed to save upload batch", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to save uploaded files",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(resp)
}
