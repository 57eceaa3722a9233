package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/cityfix-service/internal/api/dto"
	"github.com/spec-kit/cityfix-service/internal/storage"
	"github.com/spec-kit/cityfix-service/pkg/apperrors"
)

const presignExpiry = 15 * time.Minute

var errMediaDisabled = errors.New("media storage not configured")

// MediaHandler hands out presigned URLs for issue photo uploads.
type MediaHandler struct {
	store *storage.MediaStore
}

// NewMediaHandler constructs handler.
func NewMediaHandler(store *storage.MediaStore) *MediaHandler {
	return &MediaHandler{store: store}
}

// UploadURL POST /media/upload-url.
func (h *MediaHandler) UploadURL(c *fiber.Ctx) error {
	if !h.store.Enabled() {
		return apperrors.NewStoreUnavailable(errMediaDisabled)
	}
	var req dto.UploadURLRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.FileName == "" {
		return apperrors.NewValidationError("file_name required", nil)
	}

	key, url, err := h.store.PresignUpload(c.Context(), req.FileName, presignExpiry)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.UploadURLResponse{Key: key, URL: url}})
}

// DownloadURL GET /media/download-url. Object keys contain slashes so the
// key travels as a query parameter rather than a path segment.
func (h *MediaHandler) DownloadURL(c *fiber.Ctx) error {
	if !h.store.Enabled() {
		return apperrors.NewStoreUnavailable(errMediaDisabled)
	}
	key := c.Query("key")
	if key == "" {
		return apperrors.NewValidationError("key required", nil)
	}
	url, err := h.store.PresignDownload(c.Context(), key, presignExpiry)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"key": key, "url": url}})
}
