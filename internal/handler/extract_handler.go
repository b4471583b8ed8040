package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grader-api/internal/service"
	"github.com/noah-isme/gema-grader-api/internal/utils"
)

// ExtractHandler exposes plain text extraction for uploaded documents.
type ExtractHandler struct {
	service  service.GradingService
	maxBytes int64
	logger   zerolog.Logger
}

// NewExtractHandler constructs an extraction handler.
func NewExtractHandler(service service.GradingService, maxBytes int64, logger zerolog.Logger) *ExtractHandler {
	return &ExtractHandler{
		service:  service,
		maxBytes: maxBytes,
		logger:   logger.With().Str("component", "extract_handler").Logger(),
	}
}

// Register wires extraction routes.
func (h *ExtractHandler) Register(router fiber.Router) {
	router.Post("/extract-text", h.extract)
}

func (h *ExtractHandler) extract(c *fiber.Ctx) error {
	logger := requestLogger(h.logger, c)

	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}

	doc, err := service.LoadDocument(file, h.maxBytes)
	if err != nil {
		return sendLoadError(c, err)
	}

	result, err := h.service.ExtractText(c.UserContext(), doc)
	if err != nil {
		return sendServiceError(c, logger, err, "text extraction failed")
	}

	logger.Info().
		Str("file_name", doc.FileName).
		Str("source", result.Source).
		Int("chars", len(result.Text)).
		Msg("text extracted")

	return utils.SendJSON(c, fiber.StatusOK, result)
}
