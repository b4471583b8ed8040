package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/gema-grader-api/internal/models"
	"github.com/noah-isme/gema-grader-api/internal/observability"
	"github.com/noah-isme/gema-grader-api/pkg/ai"
	"github.com/noah-isme/gema-grader-api/pkg/document"
)

const transcriptionInstruction = "Transcribe the handwriting or text in this image exactly. If it's an assignment, include the questions and answers."

// PageRasterizer opens PDF bytes for page rendering.
type PageRasterizer interface {
	Open(data []byte) (document.PageSet, error)
}

// VisionTranscriber turns scanned or handwritten PDF pages into text using a vision model.
type VisionTranscriber interface {
	Transcribe(ctx context.Context, pdf []byte) (models.Transcript, error)
}

// VisionConfig tunes page rendering and the model used for transcription.
type VisionConfig struct {
	Model    string
	MaxPages int
	Scale    float64
}

type visionTranscriber struct {
	client     ai.Client
	rasterizer PageRasterizer
	cfg        VisionConfig
	logger     zerolog.Logger
	tracer     trace.Tracer
}

// NewVisionTranscriber constructs a transcriber. A nil client yields ErrVisionUnavailable on use.
func NewVisionTranscriber(client ai.Client, rasterizer PageRasterizer, cfg VisionConfig, logger zerolog.Logger) VisionTranscriber {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 5
	}
	if cfg.Scale <= 0 {
		cfg.Scale = 1.5
	}

	return &visionTranscriber{
		client:     client,
		rasterizer: rasterizer,
		cfg:        cfg,
		logger:     logger.With().Str("component", "vision_transcriber").Logger(),
		tracer:     otel.Tracer("github.com/noah-isme/gema-grader-api/internal/service/vision"),
	}
}

// Transcribe renders up to MaxPages pages and transcribes them one after another.
// A page that fails to render or transcribe is recorded on its PageTranscription and skipped.
func (s *visionTranscriber) Transcribe(ctx context.Context, pdf []byte) (models.Transcript, error) {
	if s.client == nil || s.rasterizer == nil {
		return models.Transcript{}, ErrVisionUnavailable
	}

	ctx, span := s.tracer.Start(ctx, "vision.transcribe", trace.WithAttributes(
		attribute.Int("vision.max_pages", s.cfg.MaxPages),
		attribute.Float64("vision.scale", s.cfg.Scale),
	))
	defer span.End()

	pages, err := s.rasterizer.Open(pdf)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "open failed")
		return models.Transcript{}, &ExtractionError{Op: "render pdf", Err: err}
	}
	defer func() {
		if err := pages.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to close rendered document")
		}
	}()

	total := pages.NumPages()
	limit := total
	if limit > s.cfg.MaxPages {
		limit = s.cfg.MaxPages
	}
	span.SetAttributes(attribute.Int("vision.page_count", total), attribute.Int("vision.pages", limit))

	transcript := models.Transcript{
		PageCount: total,
		Pages:     make([]models.PageTranscription, 0, limit),
	}
	for i := 0; i < limit; i++ {
		result := s.transcribePage(ctx, pages, i)
		if result.Failed() {
			observability.OCRPages().WithLabelValues("failed").Inc()
			s.logger.Warn().Err(result.Err).Int("page", result.Page).Msg("vision transcription failed for page")
		} else {
			observability.OCRPages().WithLabelValues("ok").Inc()
		}
		transcript.Pages = append(transcript.Pages, result)
	}

	if failed := transcript.FailedPages(); len(failed) > 0 {
		span.SetAttributes(attribute.IntSlice("vision.failed_pages", failed))
	}
	span.SetStatus(codes.Ok, "transcribed")
	return transcript, nil
}

func (s *visionTranscriber) transcribePage(ctx context.Context, pages document.PageSet, index int) models.PageTranscription {
	result := models.PageTranscription{Page: index + 1}
	if err := ctx.Err(); err != nil {
		result.Err = err
		return result
	}

	image, err := pages.RenderPNG(index, s.cfg.Scale)
	if err != nil {
		result.Err = err
		return result
	}

	resp, err := s.client.Complete(ctx, ai.CompletionRequest{
		Model: s.cfg.Model,
		Messages: []ai.Message{{
			Role:    ai.RoleUser,
			Content: transcriptionInstruction,
			Images:  []ai.Image{{MIMEType: "image/png", Data: image}},
		}},
	})
	if err != nil {
		result.Err = fmt.Errorf("transcribe page %d: %w", index+1, err)
		return result
	}

	result.Text = strings.TrimSpace(resp.Content)
	return result
}
