package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

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
	sectionSystemPrompt  = "You are an educational analytics AI."
	sectionTemperature   = 0.7
	sectionMaxTokens     = 400
	defaultSectionName   = "Section"
	defaultSummaryPerson = "Unknown"
)

// SectionSummarizer produces a narrative insight for a group of graded assignments.
type SectionSummarizer interface {
	Summarize(ctx context.Context, sectionName string, summaries []models.StudentScoreSummary) (models.SectionInsight, error)
}

// SummarizerConfig selects the model used for section insights.
type SummarizerConfig struct {
	Model string
}

type sectionSummarizer struct {
	client ai.Client
	cfg    SummarizerConfig
	logger zerolog.Logger
	tracer trace.Tracer
}

// NewSectionSummarizer constructs a section summarizer.
func NewSectionSummarizer(client ai.Client, cfg SummarizerConfig, logger zerolog.Logger) SectionSummarizer {
	return &sectionSummarizer{
		client: client,
		cfg:    cfg,
		logger: logger.With().Str("component", "section_summarizer").Logger(),
		tracer: otel.Tracer("github.com/noah-isme/gema-grader-api/internal/service/section"),
	}
}

func (s *sectionSummarizer) Summarize(ctx context.Context, sectionName string, summaries []models.StudentScoreSummary) (models.SectionInsight, error) {
	if len(summaries) == 0 {
		observability.SectionSummaries().WithLabelValues("rejected").Inc()
		return models.SectionInsight{}, ErrNoAssignments
	}

	name := strings.TrimSpace(sectionName)
	if name == "" {
		name = defaultSectionName
	}

	ctx, span := s.tracer.Start(ctx, "section.summarize", trace.WithAttributes(
		attribute.String("section.name", name),
		attribute.Int("section.students", len(summaries)),
	))
	defer span.End()

	resp, err := s.client.Complete(ctx, ai.CompletionRequest{
		Model: s.cfg.Model,
		Messages: []ai.Message{
			{Role: ai.RoleSystem, Content: sectionSystemPrompt},
			{Role: ai.RoleUser, Content: buildSectionPrompt(name, summaries)},
		},
		Temperature: ai.Temperature(sectionTemperature),
		MaxTokens:   sectionMaxTokens,
	})
	if err != nil {
		observability.SectionSummaries().WithLabelValues("failed").Inc()
		s.logger.Error().Err(err).Str("section", name).Msg("section feedback request failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, "model call failed")
		return models.SectionInsight{}, &SummaryError{Op: "summarize section", Err: err}
	}

	feedback := sanitizeText(stripCodeFence(resp.Content))
	if feedback == "" {
		observability.SectionSummaries().WithLabelValues("failed").Inc()
		err := fmt.Errorf("empty narrative returned")
		span.RecordError(err)
		span.SetStatus(codes.Error, "empty narrative")
		return models.SectionInsight{}, &SummaryError{Op: "summarize section", Err: err}
	}

	observability.SectionSummaries().WithLabelValues("ok").Inc()
	span.SetStatus(codes.Ok, "summarized")
	return models.SectionInsight{
		SectionName:  name,
		StudentCount: len(summaries),
		Feedback:     feedback,
	}, nil
}

func buildSectionPrompt(sectionName string, summaries []models.StudentScoreSummary) string {
	lines := make([]string, 0, len(summaries))
	for _, summary := range summaries {
		student := strings.TrimSpace(summary.StudentName)
		if student == "" {
			student = defaultSummaryPerson
		}
		lines = append(lines, fmt.Sprintf(
			"- %s: Score %s%%, Relevance %s%%, Understanding %s%%, Logic %s%%, Structure %s%%, Clarity %s%%",
			student,
			percent(summary.OverallScore),
			percent(summary.Relevance),
			percent(summary.Understanding),
			percent(summary.Logic),
			percent(summary.Structure),
			percent(summary.Clarity),
		))
	}

	builder := strings.Builder{}
	builder.WriteString("You are an educational analytics expert.\n\n")
	builder.WriteString(fmt.Sprintf("Analyze the following section %q with\n%d student assignments:\n\n", sectionName, len(summaries)))
	builder.WriteString(strings.Join(lines, "\n"))
	builder.WriteString(`

Provide a concise 4-6 sentence section-level insight covering:
1. Common weaknesses across students
2. Topics students struggle with most
3. The strongest area of the class
4. 1-2 specific suggestions for the teacher

Respond with ONLY the feedback text, no JSON or formatting.`)
	return builder.String()
}

func percent(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
