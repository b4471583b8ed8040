package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grader-api/internal/service"
	"github.com/noah-isme/gema-grader-api/internal/utils"
)

// AnalysisHandler grades uploaded assignments.
type AnalysisHandler struct {
	service  service.GradingService
	maxBytes int64
	logger   zerolog.Logger
}

// NewAnalysisHandler constructs an analysis handler.
func NewAnalysisHandler(service service.GradingService, maxBytes int64, logger zerolog.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		service:  service,
		maxBytes: maxBytes,
		logger:   logger.With().Str("component", "analysis_handler").Logger(),
	}
}

// Register wires analysis routes.
func (h *AnalysisHandler) Register(router fiber.Router) {
	router.Post("/analyze", h.analyze)
}

func (h *AnalysisHandler) analyze(c *fiber.Ctx) error {
	logger := requestLogger(h.logger, c)

	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}

	doc, err := service.LoadDocument(file, h.maxBytes)
	if err != nil {
		return sendLoadError(c, err)
	}

	req := service.GradeRequest{
		Document:      doc,
		ReferenceText: c.FormValue("reference_text"),
		StudentName:   c.FormValue("student_name"),
		StudentID:     c.FormValue("student_id"),
		RubricWeights: c.FormValue("rubric_weights"),
	}

	if refFile := optionalFormFile(c, "reference_file"); refFile != nil {
		reference, err := service.LoadDocument(refFile, h.maxBytes)
		if err != nil {
			return sendLoadError(c, err)
		}
		req.Reference = &reference
	}

	result, err := h.service.Grade(c.UserContext(), req)
	if err != nil {
		return sendServiceError(c, logger, err, "assignment analysis failed")
	}

	logger.Info().
		Str("file_name", result.FileName).
		Str("student_id", result.ID).
		Float64("overall_score", result.OverallScore).
		Bool("is_assignment", result.IsAssignment).
		Msg("assignment analyzed")

	return utils.SendJSON(c, fiber.StatusOK, result)
}
