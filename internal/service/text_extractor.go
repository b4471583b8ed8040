package service

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/gema-grader-api/internal/models"
	"github.com/noah-isme/gema-grader-api/internal/observability"
)

const docxMIME = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// pdfHeaderWindow is how far into an upload the %PDF- header may start.
const pdfHeaderWindow = 1024

var pdfMagic = []byte("%PDF-")

// Document is an uploaded file held fully in memory so it can be read more than once.
type Document struct {
	FileName string
	Data     []byte
}

// PDFTextReader reads the native text layer of a PDF, one string per page.
type PDFTextReader interface {
	PageTexts(data []byte) ([]string, error)
}

// DOCXTextReader reads the body text of a DOCX document.
type DOCXTextReader interface {
	Text(data []byte) (string, error)
}

// TextExtractor converts uploaded documents to plain text.
type TextExtractor interface {
	Extract(ctx context.Context, doc Document) (models.ExtractedText, error)
}

// TextExtractorConfig holds the OCR fallback threshold.
type TextExtractorConfig struct {
	MinNativeChars int
}

type textExtractor struct {
	pdf    PDFTextReader
	docx   DOCXTextReader
	vision VisionTranscriber
	cfg    TextExtractorConfig
	logger zerolog.Logger
	tracer trace.Tracer
}

// NewTextExtractor constructs a text extractor with vision OCR fallback for scanned PDFs.
func NewTextExtractor(pdf PDFTextReader, docx DOCXTextReader, vision VisionTranscriber, cfg TextExtractorConfig, logger zerolog.Logger) TextExtractor {
	if cfg.MinNativeChars <= 0 {
		cfg.MinNativeChars = 50
	}

	return &textExtractor{
		pdf:    pdf,
		docx:   docx,
		vision: vision,
		cfg:    cfg,
		logger: logger.With().Str("component", "text_extractor").Logger(),
		tracer: otel.Tracer("github.com/noah-isme/gema-grader-api/internal/service/extract"),
	}
}

// Extract returns the text of a .pdf or .docx document. Other extensions yield an empty
// result with Source "none" and no error.
func (s *textExtractor) Extract(ctx context.Context, doc Document) (models.ExtractedText, error) {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(doc.FileName)))

	ctx, span := s.tracer.Start(ctx, "document.extract", trace.WithAttributes(
		attribute.String("document.extension", ext),
		attribute.Int("document.size_bytes", len(doc.Data)),
	))
	defer span.End()

	var (
		result models.ExtractedText
		err    error
	)
	switch ext {
	case ".pdf":
		result, err = s.extractPDF(ctx, doc)
	case ".docx":
		result, err = s.extractDOCX(doc)
	default:
		s.logger.Info().Str("file_name", doc.FileName).Msg("unsupported document extension")
		result = models.ExtractedText{Source: models.TextSourceNone}
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "extraction failed")
		return models.ExtractedText{}, err
	}

	observability.Extractions().WithLabelValues(string(result.Source)).Inc()
	span.SetAttributes(
		attribute.String("document.text_source", string(result.Source)),
		attribute.Int("document.text_length", len(result.Text)),
	)
	span.SetStatus(codes.Ok, "extracted")
	return result, nil
}

func (s *textExtractor) extractPDF(ctx context.Context, doc Document) (models.ExtractedText, error) {
	data, ok := pdfPayload(doc.Data)
	if !ok {
		return models.ExtractedText{}, ErrContentMismatch
	}
	if len(data) != len(doc.Data) {
		s.logger.Debug().
			Str("file_name", doc.FileName).
			Int("skipped_bytes", len(doc.Data)-len(data)).
			Msg("pdf header found after leading bytes")
		doc.Data = data
	}

	pages, err := s.pdf.PageTexts(doc.Data)
	if err != nil {
		return models.ExtractedText{}, &ExtractionError{Op: "read pdf", FileName: doc.FileName, Err: err}
	}

	text := strings.Join(pages, "")
	if strippedLength(text) >= s.cfg.MinNativeChars {
		return models.ExtractedText{
			Text:      text,
			Source:    models.TextSourceNativePDF,
			PageCount: len(pages),
		}, nil
	}

	s.logger.Info().
		Str("file_name", doc.FileName).
		Int("native_chars", strippedLength(text)).
		Msg("detected possible scanned pdf, starting vision ocr")

	if s.vision == nil {
		return models.ExtractedText{}, &ExtractionError{Op: "ocr pdf", FileName: doc.FileName, Err: ErrVisionUnavailable}
	}

	transcript, err := s.vision.Transcribe(ctx, doc.Data)
	if err != nil {
		var extractionErr *ExtractionError
		if errors.As(err, &extractionErr) {
			extractionErr.FileName = doc.FileName
			return models.ExtractedText{}, extractionErr
		}
		return models.ExtractedText{}, &ExtractionError{Op: "ocr pdf", FileName: doc.FileName, Err: err}
	}

	return models.ExtractedText{
		Text:      transcript.Text(),
		Source:    models.TextSourceVisionOCR,
		PageCount: len(pages),
		Pages:     transcript.Pages,
	}, nil
}

func (s *textExtractor) extractDOCX(doc Document) (models.ExtractedText, error) {
	if !isZipContainer(doc.Data) {
		return models.ExtractedText{}, ErrContentMismatch
	}

	text, err := s.docx.Text(doc.Data)
	if err != nil {
		return models.ExtractedText{}, &ExtractionError{Op: "read docx", FileName: doc.FileName, Err: err}
	}

	// DOCX files are not routed through OCR; surface suspiciously short ones.
	if strippedLength(text) < s.cfg.MinNativeChars {
		s.logger.Warn().
			Str("file_name", doc.FileName).
			Int("native_chars", strippedLength(text)).
			Msg("docx produced little text and has no ocr fallback")
	}

	return models.ExtractedText{Text: text, Source: models.TextSourceDOCX}, nil
}

// pdfPayload returns data starting at its PDF header. Bytes ahead of a header within the first
// pdfHeaderWindow bytes are dropped so readers see a file that starts at %PDF-.
func pdfPayload(data []byte) ([]byte, bool) {
	window := data
	if len(window) > pdfHeaderWindow {
		window = window[:pdfHeaderWindow]
	}
	idx := bytes.Index(window, pdfMagic)
	if idx < 0 {
		return nil, false
	}
	return data[idx:], true
}

func isZipContainer(data []byte) bool {
	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		if m.Is("application/zip") || m.Is(docxMIME) {
			return true
		}
	}
	return false
}

func strippedLength(text string) int {
	return utf8.RuneCountInString(strings.TrimSpace(text))
}
