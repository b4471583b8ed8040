package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-grader-api/internal/dto"
	"github.com/noah-isme/gema-grader-api/internal/middleware"
	"github.com/noah-isme/gema-grader-api/internal/models"
)

type extractorStub struct {
	results map[string]models.ExtractedText
	err     error
	seen    []string
}

func (s *extractorStub) Extract(_ context.Context, doc Document) (models.ExtractedText, error) {
	s.seen = append(s.seen, doc.FileName)
	if s.err != nil {
		return models.ExtractedText{}, s.err
	}
	return s.results[doc.FileName], nil
}

type analyzerStub struct {
	result models.AnalysisResult
	err    error
	inputs []AnalysisInput
}

func (s *analyzerStub) Analyze(_ context.Context, input AnalysisInput) (models.AnalysisResult, error) {
	s.inputs = append(s.inputs, input)
	return s.result, s.err
}

type summarizerStub struct {
	insight   models.SectionInsight
	err       error
	summaries []models.StudentScoreSummary
}

func (s *summarizerStub) Summarize(_ context.Context, sectionName string, summaries []models.StudentScoreSummary) (models.SectionInsight, error) {
	s.summaries = summaries
	if s.err != nil {
		return models.SectionInsight{}, s.err
	}
	insight := s.insight
	insight.SectionName = sectionName
	insight.StudentCount = len(summaries)
	return insight, nil
}

type publisherStub struct {
	events []dto.AnalysisEvent
	err    error
}

func (p *publisherStub) PublishAnalysis(_ context.Context, event dto.AnalysisEvent) error {
	p.events = append(p.events, event)
	return p.err
}

func newGradingFixture(extractor *extractorStub, analyzer *analyzerStub, publisher AnalysisPublisher) *gradingService {
	svc := NewGradingService(extractor, analyzer, &summarizerStub{insight: models.SectionInsight{Feedback: "ok"}}, publisher, validator.New(), testLogger()).(*gradingService)
	svc.now = func() time.Time { return time.Date(2024, 3, 9, 14, 5, 0, 0, time.UTC) }
	return svc
}

func TestGradeBackfillsIdentityAndFeedback(t *testing.T) {
	extractor := &extractorStub{results: map[string]models.ExtractedText{
		"hw.pdf": {Text: "Q1. answer", Source: models.TextSourceNativePDF},
	}}
	analyzer := &analyzerStub{result: models.AnalysisResult{
		IsAssignment: true,
		Metrics:      models.ScoreMetrics{Relevance: 80, Understanding: 70, Logic: 60, Structure: 90, Clarity: 50, OverallScore: 70},
	}}
	publisher := &publisherStub{}
	svc := newGradingFixture(extractor, analyzer, publisher)

	resp, err := svc.Grade(context.Background(), GradeRequest{Document: Document{FileName: "hw.pdf"}})
	require.NoError(t, err)
	require.Equal(t, "STU-202403091405", resp.ID)
	require.Equal(t, "Unknown Student", resp.Name)
	require.Equal(t, "Analysis complete.", resp.Feedback)
	require.Equal(t, "hw.pdf", resp.FileName)
	require.Equal(t, "2024-03-09T14:05:00Z", resp.Date)
	require.Equal(t, 70.0, resp.OverallScore)
	require.NotNil(t, resp.PerQuestionFeedback)

	require.Len(t, publisher.events, 1)
	event := publisher.events[0]
	require.NotEmpty(t, event.EventID)
	require.Equal(t, "STU-202403091405", event.StudentID)
	require.Equal(t, "native_pdf", event.TextSource)
	require.True(t, event.IsAssignment)
	require.Empty(t, event.CorrelationID)
}

func TestGradeEventCarriesCorrelationID(t *testing.T) {
	extractor := &extractorStub{results: map[string]models.ExtractedText{
		"hw.pdf": {Text: "Q1. answer", Source: models.TextSourceNativePDF},
	}}
	publisher := &publisherStub{}
	svc := newGradingFixture(extractor, &analyzerStub{result: models.AnalysisResult{IsAssignment: true}}, publisher)

	ctx := middleware.ContextWithCorrelation(context.Background(), "req-9")
	_, err := svc.Grade(ctx, GradeRequest{Document: Document{FileName: "hw.pdf"}})
	require.NoError(t, err)

	require.Len(t, publisher.events, 1)
	require.Equal(t, "req-9", publisher.events[0].CorrelationID)
}

func TestGradePrefersModelThenFormIdentity(t *testing.T) {
	extractor := &extractorStub{results: map[string]models.ExtractedText{"hw.pdf": {Text: "Q1"}}}
	analyzer := &analyzerStub{result: models.AnalysisResult{StudentName: "Ayu", Feedback: "Good."}}
	svc := newGradingFixture(extractor, analyzer, nil)

	resp, err := svc.Grade(context.Background(), GradeRequest{
		Document:    Document{FileName: "hw.pdf"},
		StudentName: "Form Name",
		StudentID:   " 10-B-04 ",
	})
	require.NoError(t, err)
	require.Equal(t, "Ayu", resp.Name)
	require.Equal(t, "10-B-04", resp.ID)
	require.Equal(t, "Good.", resp.Feedback)
}

func TestGradeReferenceTextWinsOverReferenceFile(t *testing.T) {
	extractor := &extractorStub{results: map[string]models.ExtractedText{
		"hw.pdf":  {Text: "Q1"},
		"key.pdf": {Text: "file reference"},
	}}
	analyzer := &analyzerStub{}
	svc := newGradingFixture(extractor, analyzer, nil)

	_, err := svc.Grade(context.Background(), GradeRequest{
		Document:      Document{FileName: "hw.pdf"},
		Reference:     &Document{FileName: "key.pdf"},
		ReferenceText: "typed reference",
	})
	require.NoError(t, err)
	require.Equal(t, []string{"hw.pdf"}, extractor.seen)
	require.Equal(t, "typed reference", analyzer.inputs[0].ReferenceText)

	_, err = svc.Grade(context.Background(), GradeRequest{
		Document:  Document{FileName: "hw.pdf"},
		Reference: &Document{FileName: "key.pdf"},
	})
	require.NoError(t, err)
	require.Equal(t, "file reference", analyzer.inputs[1].ReferenceText)
}

func TestGradeRubricWeightsPassThrough(t *testing.T) {
	extractor := &extractorStub{results: map[string]models.ExtractedText{"hw.pdf": {Text: "Q1"}}}
	analyzer := &analyzerStub{}
	svc := newGradingFixture(extractor, analyzer, nil)

	_, err := svc.Grade(context.Background(), GradeRequest{Document: Document{FileName: "hw.pdf"}, RubricWeights: `{"relevance":40}`})
	require.NoError(t, err)
	require.JSONEq(t, `{"relevance":40}`, string(analyzer.inputs[0].RubricWeights))

	_, err = svc.Grade(context.Background(), GradeRequest{Document: Document{FileName: "hw.pdf"}, RubricWeights: `{relevance:`})
	require.NoError(t, err)
	require.Empty(t, analyzer.inputs[1].RubricWeights)
}

func TestGradeNoTextSkipsAnalysis(t *testing.T) {
	extractor := &extractorStub{results: map[string]models.ExtractedText{"notes.txt": {Source: models.TextSourceNone}}}
	analyzer := &analyzerStub{}
	svc := newGradingFixture(extractor, analyzer, nil)

	_, err := svc.Grade(context.Background(), GradeRequest{Document: Document{FileName: "notes.txt"}})
	require.ErrorIs(t, err, ErrNoText)
	require.Empty(t, analyzer.inputs)
}

func TestGradePropagatesErrors(t *testing.T) {
	extractErr := &ExtractionError{Op: "read pdf", FileName: "hw.pdf", Err: errors.New("broken xref")}
	svc := newGradingFixture(&extractorStub{err: extractErr}, &analyzerStub{}, nil)
	_, err := svc.Grade(context.Background(), GradeRequest{Document: Document{FileName: "hw.pdf"}})
	require.ErrorIs(t, err, ErrExtraction)

	extractor := &extractorStub{results: map[string]models.ExtractedText{"hw.pdf": {Text: "Q1"}}}
	publisher := &publisherStub{}
	svc = newGradingFixture(extractor, &analyzerStub{err: &AnalysisError{Op: "analyze assignment", Err: errors.New("timeout")}}, publisher)
	_, err = svc.Grade(context.Background(), GradeRequest{Document: Document{FileName: "hw.pdf"}})
	require.ErrorIs(t, err, ErrAnalysis)
	require.Empty(t, publisher.events)
}

func TestGradePublishFailureIsNotFatal(t *testing.T) {
	extractor := &extractorStub{results: map[string]models.ExtractedText{"hw.pdf": {Text: "Q1"}}}
	publisher := &publisherStub{err: errors.New("nats: connection closed")}
	svc := newGradingFixture(extractor, &analyzerStub{}, publisher)

	_, err := svc.Grade(context.Background(), GradeRequest{Document: Document{FileName: "hw.pdf"}})
	require.NoError(t, err)
	require.Len(t, publisher.events, 1)
}

func TestExtractText(t *testing.T) {
	extractor := &extractorStub{results: map[string]models.ExtractedText{
		"scan.pdf": {
			Text:      "page one\n\n",
			Source:    models.TextSourceVisionOCR,
			PageCount: 2,
			Pages:     []models.PageTranscription{{Page: 1, Text: "page one"}, {Page: 2, Err: errors.New("timeout")}},
		},
		"blank.pdf": {Text: "  ", Source: models.TextSourceVisionOCR},
	}}
	svc := newGradingFixture(extractor, &analyzerStub{}, nil)

	resp, err := svc.ExtractText(context.Background(), Document{FileName: "scan.pdf"})
	require.NoError(t, err)
	require.Equal(t, "vision_ocr", resp.Source)
	require.Equal(t, 2, resp.PageCount)
	require.Equal(t, []int{2}, resp.FailedPages)

	_, err = svc.ExtractText(context.Background(), Document{FileName: "blank.pdf"})
	require.ErrorIs(t, err, ErrNoText)
}

func TestSummarizeSection(t *testing.T) {
	svc := newGradingFixture(&extractorStub{}, &analyzerStub{}, nil)
	summarizer := &summarizerStub{insight: models.SectionInsight{Feedback: "Class is strong on structure."}}
	svc.summarizer = summarizer

	resp, err := svc.SummarizeSection(context.Background(), "sec-1", dto.SectionFeedbackRequest{
		SectionName: "10-B",
		Assignments: []dto.SectionAssignmentSummary{
			{StudentName: "Ayu", OverallScore: 72, Relevance: 80, Understanding: 70, Logic: 60, Structure: 90, Clarity: 50},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "Class is strong on structure.", resp.Feedback)
	require.Len(t, summarizer.summaries, 1)
	require.Equal(t, 72.0, summarizer.summaries[0].OverallScore)
}

func TestSummarizeSectionValidation(t *testing.T) {
	svc := newGradingFixture(&extractorStub{}, &analyzerStub{}, nil)

	_, err := svc.SummarizeSection(context.Background(), "sec-1", dto.SectionFeedbackRequest{SectionName: "empty"})
	require.ErrorIs(t, err, ErrNoAssignments)

	_, err = svc.SummarizeSection(context.Background(), "sec-1", dto.SectionFeedbackRequest{
		Assignments: []dto.SectionAssignmentSummary{{OverallScore: 140}},
	})
	var validationErrs validator.ValidationErrors
	require.ErrorAs(t, err, &validationErrs)
}
