package service

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/gema-grader-api/internal/models"
	"github.com/noah-isme/gema-grader-api/internal/observability"
	"github.com/noah-isme/gema-grader-api/pkg/ai"
)

const (
	defaultTextBudget      = 15000
	defaultReferenceBudget = 10000

	// divergenceTolerance is how far the model's overall score may drift from the formula before it is reported.
	divergenceTolerance = 1.0

	notAssignmentFeedback = "This document does not appear to be a student assignment."

	// maxQuestionsSolved caps the model's question count before it is converted to an int.
	maxQuestionsSolved = 1000
)

// AnalysisInput carries the assignment text and optional grading context.
type AnalysisInput struct {
	Text          string
	ReferenceText string
	// RubricWeights is a JSON object of percentages; empty or invalid payloads fall back to defaults.
	RubricWeights json.RawMessage
}

// AnalyzerConfig tunes the model and input budgets used for grading.
type AnalyzerConfig struct {
	Model           string
	TextBudget      int
	ReferenceBudget int
	ScorePolicy     models.ScorePolicy
}

// AssignmentAnalyzer grades assignment text with a language model.
type AssignmentAnalyzer interface {
	Analyze(ctx context.Context, input AnalysisInput) (models.AnalysisResult, error)
}

type assignmentAnalyzer struct {
	client ai.Client
	cfg    AnalyzerConfig
	logger zerolog.Logger
	tracer trace.Tracer
	now    func() time.Time
}

// NewAssignmentAnalyzer constructs an analyzer backed by the given model client.
func NewAssignmentAnalyzer(client ai.Client, cfg AnalyzerConfig, logger zerolog.Logger) AssignmentAnalyzer {
	if cfg.TextBudget <= 0 {
		cfg.TextBudget = defaultTextBudget
	}
	if cfg.ReferenceBudget <= 0 {
		cfg.ReferenceBudget = defaultReferenceBudget
	}
	cfg.ScorePolicy = models.ParseScorePolicy(string(cfg.ScorePolicy))

	return &assignmentAnalyzer{
		client: client,
		cfg:    cfg,
		logger: logger.With().Str("component", "assignment_analyzer").Logger(),
		tracer: otel.Tracer("github.com/noah-isme/gema-grader-api/internal/service/analyzer"),
		now:    time.Now,
	}
}

func (s *assignmentAnalyzer) Analyze(ctx context.Context, input AnalysisInput) (models.AnalysisResult, error) {
	if strings.TrimSpace(input.Text) == "" {
		return models.AnalysisResult{}, ErrNoText
	}

	ctx, span := s.tracer.Start(ctx, "assignment.analyze", trace.WithAttributes(
		attribute.String("analysis.score_policy", string(s.cfg.ScorePolicy)),
		attribute.Bool("analysis.has_reference", strings.TrimSpace(input.ReferenceText) != ""),
	))
	defer span.End()

	start := time.Now()
	defer func() {
		observability.AnalysisLatency().Observe(time.Since(start).Seconds())
	}()

	text, textTruncated := truncateRunes(input.Text, s.cfg.TextBudget)
	reference, referenceTruncated := truncateRunes(strings.TrimSpace(input.ReferenceText), s.cfg.ReferenceBudget)
	if textTruncated {
		observability.Truncations().WithLabelValues("text").Inc()
	}
	if referenceTruncated {
		observability.Truncations().WithLabelValues("reference").Inc()
	}
	span.SetAttributes(
		attribute.Bool("analysis.text_truncated", textTruncated),
		attribute.Bool("analysis.reference_truncated", referenceTruncated),
	)

	weights := s.resolveWeights(input.RubricWeights)

	resp, err := s.client.Complete(ctx, ai.CompletionRequest{
		Model: s.cfg.Model,
		Messages: []ai.Message{
			{Role: ai.RoleSystem, Content: buildAnalysisSystemPrompt(reference, weights)},
			{Role: ai.RoleUser, Content: buildAnalysisUserPrompt(text)},
		},
		JSON: true,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("language model call failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, "model call failed")
		return models.AnalysisResult{}, &AnalysisError{Op: "analyze assignment", Err: err}
	}

	data, err := parseVerdict(resp.Content)
	if err != nil {
		s.logger.Error().Err(err).Msg("model returned an unusable verdict")
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid verdict")
		return models.AnalysisResult{}, &AnalysisError{Op: "parse verdict", Err: err}
	}

	result, err := s.buildResult(data, weights)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid verdict")
		return models.AnalysisResult{}, &AnalysisError{Op: "score verdict", Err: err}
	}
	result.TextTruncated = textTruncated
	result.ReferenceTruncated = referenceTruncated
	result.AnalyzedAt = s.now()

	span.SetAttributes(
		attribute.Bool("analysis.is_assignment", result.IsAssignment),
		attribute.Float64("analysis.overall_score", result.Metrics.OverallScore),
	)
	span.SetStatus(codes.Ok, "analyzed")
	return result, nil
}

func (s *assignmentAnalyzer) resolveWeights(raw json.RawMessage) models.RubricWeights {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return models.DefaultRubricWeights()
	}
	weights, err := models.ParseRubricWeights(raw)
	if err != nil {
		s.logger.Warn().Err(err).Msg("falling back to default rubric weights")
		return models.DefaultRubricWeights()
	}
	return weights
}

func (s *assignmentAnalyzer) buildResult(data verdict, weights models.RubricWeights) (models.AnalysisResult, error) {
	var metrics models.ScoreMetrics
	for name, target := range map[string]*float64{
		"relevance":     &metrics.Relevance,
		"understanding": &metrics.Understanding,
		"logic":         &metrics.Logic,
		"structure":     &metrics.Structure,
		"clarity":       &metrics.Clarity,
	} {
		value, err := data.metric(name)
		if err != nil {
			return models.AnalysisResult{}, err
		}
		*target = value
	}

	modelOverall, overallErr := data.metric("overallScore")
	if overallErr != nil && s.cfg.ScorePolicy == models.ScorePolicyTrust {
		return models.AnalysisResult{}, overallErr
	}
	metrics.OverallScore = modelOverall
	metrics = metrics.Clamped()

	isAssignment := data.IsAssignment == nil || *data.IsAssignment
	feedback := ""
	if data.Feedback != nil {
		feedback = sanitizeText(*data.Feedback)
	}

	perQuestion := make([]string, 0, len(data.PerQuestionFeedback))
	for _, item := range data.PerQuestionFeedback {
		if cleaned := sanitizeText(item); cleaned != "" {
			perQuestion = append(perQuestion, cleaned)
		}
	}

	questionsSolved := 0
	if data.QuestionsSolved != nil {
		questionsSolved = int(math.Round(math.Min(*data.QuestionsSolved, maxQuestionsSolved)))
	}

	if !isAssignment {
		metrics = models.ScoreMetrics{}
		questionsSolved = 0
		if feedback == "" {
			feedback = notAssignmentFeedback
		}
	} else if metrics.IsZero() {
		s.logger.Warn().Msg("assignment verdict carries no scores")
	}

	if isAssignment && s.cfg.ScorePolicy == models.ScorePolicyVerify {
		computed := weights.Apply(metrics)
		if overallErr != nil || math.Abs(computed-metrics.OverallScore) > divergenceTolerance {
			observability.ScoreDivergence().Inc()
			s.logger.Warn().
				Float64("model_overall", modelOverall).
				Float64("computed_overall", computed).
				Msg("model overall score disagrees with rubric formula")
		}
		metrics.OverallScore = computed
	}

	name := ""
	if data.StudentName != nil {
		name = sanitizeText(*data.StudentName)
	}

	return models.AnalysisResult{
		StudentID:           data.studentID(),
		StudentName:         name,
		QuestionsSolved:     questionsSolved,
		PerQuestionFeedback: perQuestion,
		Feedback:            feedback,
		IsAssignment:        isAssignment,
		Metrics:             metrics,
		ModelOverallScore:   modelOverall,
		Weights:             weights,
		ScorePolicy:         s.cfg.ScorePolicy,
	}, nil
}

// truncateRunes cuts s to at most limit characters and reports whether anything was dropped.
func truncateRunes(s string, limit int) (string, bool) {
	if limit <= 0 || len(s) <= limit {
		return s, false
	}
	count := 0
	for i := range s {
		if count == limit {
			return s[:i], true
		}
		count++
	}
	return s, false
}
