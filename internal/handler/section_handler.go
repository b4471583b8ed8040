package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grader-api/internal/dto"
	"github.com/noah-isme/gema-grader-api/internal/service"
	"github.com/noah-isme/gema-grader-api/internal/utils"
)

// SectionHandler produces narrative insights for a section of graded assignments.
type SectionHandler struct {
	service service.GradingService
	logger  zerolog.Logger
}

// NewSectionHandler constructs a section handler.
func NewSectionHandler(service service.GradingService, logger zerolog.Logger) *SectionHandler {
	return &SectionHandler{
		service: service,
		logger:  logger.With().Str("component", "section_handler").Logger(),
	}
}

// Register wires section routes.
func (h *SectionHandler) Register(router fiber.Router) {
	router.Post("/sections/:sectionId/feedback", h.feedback)
}

func (h *SectionHandler) feedback(c *fiber.Ctx) error {
	logger := requestLogger(h.logger, c)

	var payload dto.SectionFeedbackRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	sectionID := strings.TrimSpace(c.Params("sectionId"))
	result, err := h.service.SummarizeSection(c.UserContext(), sectionID, payload)
	if err != nil {
		return sendServiceError(c, logger, err, "section feedback failed")
	}

	return utils.SendJSON(c, fiber.StatusOK, result)
}
