package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNoText indicates no usable text could be obtained from the input.
	ErrNoText = errors.New("no text extracted")
	// ErrContentMismatch indicates the file bytes do not match the declared extension.
	ErrContentMismatch = errors.New("file content does not match its extension")
	// ErrUploadTooLarge indicates the payload exceeded the configured limit.
	ErrUploadTooLarge = errors.New("file exceeds maximum allowed size")
	// ErrNoAssignments indicates a section summary was requested without any graded assignments.
	ErrNoAssignments = errors.New("no assignment data")
	// ErrVisionUnavailable indicates OCR was required but no vision model is configured.
	ErrVisionUnavailable = errors.New("vision transcription unavailable")

	// ErrExtraction is matched by every *ExtractionError.
	ErrExtraction = errors.New("text extraction failed")
	// ErrAnalysis is matched by every *AnalysisError.
	ErrAnalysis = errors.New("assignment analysis failed")
	// ErrSummary is matched by every *SummaryError.
	ErrSummary = errors.New("section summary failed")
)

// ExtractionError reports a document that could not be turned into text.
type ExtractionError struct {
	Op       string
	FileName string
	Err      error
}

func (e *ExtractionError) Error() string {
	if e.FileName != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.FileName, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrExtraction) match any extraction failure.
func (e *ExtractionError) Is(target error) bool { return target == ErrExtraction }

// AnalysisError reports a failed model call or an unusable model verdict.
type AnalysisError struct {
	Op  string
	Err error
}

func (e *AnalysisError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *AnalysisError) Unwrap() error { return e.Err }

func (e *AnalysisError) Is(target error) bool { return target == ErrAnalysis }

// SummaryError reports a failed section insight request.
type SummaryError struct {
	Op  string
	Err error
}

func (e *SummaryError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *SummaryError) Unwrap() error { return e.Err }

func (e *SummaryError) Is(target error) bool { return target == ErrSummary }
