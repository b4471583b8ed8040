package handler

import (
	"errors"
	"mime/multipart"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grader-api/internal/middleware"
	"github.com/noah-isme/gema-grader-api/internal/service"
	"github.com/noah-isme/gema-grader-api/internal/utils"
)

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

// optionalFormFile returns nil when the field is absent or carries no file name.
func optionalFormFile(c *fiber.Ctx, field string) *multipart.FileHeader {
	file, err := c.FormFile(field)
	if err != nil || file == nil || strings.TrimSpace(file.Filename) == "" {
		return nil
	}
	return file
}

func sendLoadError(c *fiber.Ctx, err error) error {
	if errors.Is(err, service.ErrUploadTooLarge) {
		return utils.SendError(c, fiber.StatusRequestEntityTooLarge, err.Error())
	}
	return utils.SendError(c, fiber.StatusBadRequest, err.Error())
}

// sendServiceError maps grading errors onto HTTP status codes.
func sendServiceError(c *fiber.Ctx, logger *zerolog.Logger, err error, msg string) error {
	switch {
	case errors.Is(err, service.ErrUploadTooLarge):
		return utils.SendError(c, fiber.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, service.ErrNoText),
		errors.Is(err, service.ErrContentMismatch),
		errors.Is(err, service.ErrNoAssignments):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		logger.Error().Err(err).Msg(msg)
		return utils.SendError(c, fiber.StatusInternalServerError, err.Error())
	}
}
