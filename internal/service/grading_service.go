package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grader-api/internal/dto"
	"github.com/noah-isme/gema-grader-api/internal/middleware"
	"github.com/noah-isme/gema-grader-api/internal/models"
)

const (
	defaultStudentName = "Unknown Student"
	defaultFeedback    = "Analysis complete."
)

// GradeRequest collects everything submitted with an assignment for grading.
type GradeRequest struct {
	Document      Document
	Reference     *Document
	ReferenceText string
	StudentName   string
	StudentID     string
	RubricWeights string
}

// GradingService orchestrates extraction, analysis and section insights for the HTTP layer.
type GradingService interface {
	ExtractText(ctx context.Context, doc Document) (dto.ExtractTextResponse, error)
	Grade(ctx context.Context, req GradeRequest) (dto.AnalysisResponse, error)
	SummarizeSection(ctx context.Context, sectionID string, req dto.SectionFeedbackRequest) (dto.SectionFeedbackResponse, error)
}

type gradingService struct {
	extractor  TextExtractor
	analyzer   AssignmentAnalyzer
	summarizer SectionSummarizer
	publisher  AnalysisPublisher
	validator  *validator.Validate
	logger     zerolog.Logger
	now        func() time.Time
}

// NewGradingService constructs the grading orchestrator. publisher may be nil.
func NewGradingService(extractor TextExtractor, analyzer AssignmentAnalyzer, summarizer SectionSummarizer, publisher AnalysisPublisher, validate *validator.Validate, logger zerolog.Logger) GradingService {
	return &gradingService{
		extractor:  extractor,
		analyzer:   analyzer,
		summarizer: summarizer,
		publisher:  publisher,
		validator:  validate,
		logger:     logger.With().Str("component", "grading_service").Logger(),
		now:        time.Now,
	}
}

func (s *gradingService) ExtractText(ctx context.Context, doc Document) (dto.ExtractTextResponse, error) {
	extracted, err := s.extractor.Extract(ctx, doc)
	if err != nil {
		return dto.ExtractTextResponse{}, err
	}
	if extracted.Empty() {
		return dto.ExtractTextResponse{}, ErrNoText
	}
	return dto.NewExtractTextResponse(extracted), nil
}

func (s *gradingService) Grade(ctx context.Context, req GradeRequest) (dto.AnalysisResponse, error) {
	extracted, err := s.extractor.Extract(ctx, req.Document)
	if err != nil {
		return dto.AnalysisResponse{}, err
	}
	if extracted.Empty() {
		return dto.AnalysisResponse{}, ErrNoText
	}

	reference := strings.TrimSpace(req.ReferenceText)
	if reference == "" && req.Reference != nil && strings.TrimSpace(req.Reference.FileName) != "" {
		refText, err := s.extractor.Extract(ctx, *req.Reference)
		if err != nil {
			return dto.AnalysisResponse{}, err
		}
		reference = refText.Text
	}

	weights := strings.TrimSpace(req.RubricWeights)
	if weights != "" && !json.Valid([]byte(weights)) {
		s.logger.Warn().Str("rubric_weights", weights).Msg("failed to parse rubric weights, using defaults")
		weights = ""
	}

	result, err := s.analyzer.Analyze(ctx, AnalysisInput{
		Text:          extracted.Text,
		ReferenceText: reference,
		RubricWeights: json.RawMessage(weights),
	})
	if err != nil {
		return dto.AnalysisResponse{}, err
	}

	if result.AnalyzedAt.IsZero() {
		result.AnalyzedAt = s.now()
	}
	if strings.TrimSpace(result.Feedback) == "" {
		result.Feedback = defaultFeedback
	}

	response := dto.NewAnalysisResponse(
		firstNonEmpty(result.StudentID, req.StudentID, "STU-"+result.AnalyzedAt.Format("200601021504")),
		firstNonEmpty(result.StudentName, req.StudentName, defaultStudentName),
		req.Document.FileName,
		result,
	)

	s.publish(ctx, response, result, extracted.Source)
	return response, nil
}

func (s *gradingService) SummarizeSection(ctx context.Context, sectionID string, req dto.SectionFeedbackRequest) (dto.SectionFeedbackResponse, error) {
	if len(req.Assignments) == 0 {
		return dto.SectionFeedbackResponse{}, ErrNoAssignments
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.SectionFeedbackResponse{}, err
	}

	summaries := make([]models.StudentScoreSummary, 0, len(req.Assignments))
	for _, assignment := range req.Assignments {
		summaries = append(summaries, assignment.ToModel())
	}

	insight, err := s.summarizer.Summarize(ctx, req.SectionName, summaries)
	if err != nil {
		return dto.SectionFeedbackResponse{}, err
	}

	s.logger.Info().
		Str("section_id", sectionID).
		Str("section_name", insight.SectionName).
		Int("students", insight.StudentCount).
		Msg("section insight generated")

	return dto.SectionFeedbackResponse{Feedback: insight.Feedback}, nil
}

func (s *gradingService) publish(ctx context.Context, response dto.AnalysisResponse, result models.AnalysisResult, source models.TextSource) {
	if s.publisher == nil {
		return
	}

	event := dto.AnalysisEvent{
		EventID:       uuid.NewString(),
		CorrelationID: middleware.CorrelationIDFromContext(ctx),
		StudentID:     response.ID,
		StudentName:   response.Name,
		FileName:      response.FileName,
		OverallScore:  response.OverallScore,
		IsAssignment:  result.IsAssignment,
		TextSource:    string(source),
		AnalyzedAt:    result.AnalyzedAt.UTC(),
	}
	if err := s.publisher.PublishAnalysis(ctx, event); err != nil {
		s.logger.Warn().
			Err(err).
			Str("student_id", response.ID).
			Str("correlation_id", event.CorrelationID).
			Msg("failed to publish analysis event")
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
