package dto

import (
	"time"

	"github.com/noah-isme/gema-grader-api/internal/models"
)

// ExtractTextResponse is returned by the text extraction endpoint.
type ExtractTextResponse struct {
	Text        string `json:"text"`
	Source      string `json:"source"`
	PageCount   int    `json:"pageCount"`
	FailedPages []int  `json:"failedPages,omitempty"`
}

// NewExtractTextResponse maps extracted text into its response payload.
func NewExtractTextResponse(extracted models.ExtractedText) ExtractTextResponse {
	return ExtractTextResponse{
		Text:        extracted.Text,
		Source:      string(extracted.Source),
		PageCount:   extracted.PageCount,
		FailedPages: extracted.FailedPages(),
	}
}

// AnalysisResponse is the flattened grading verdict returned to the dashboard.
type AnalysisResponse struct {
	ID                  string   `json:"id"`
	Name                string   `json:"name"`
	FileName            string   `json:"fileName"`
	Date                string   `json:"date"`
	Relevance           float64  `json:"relevance"`
	Understanding       float64  `json:"understanding"`
	Logic               float64  `json:"logic"`
	Structure           float64  `json:"structure"`
	Clarity             float64  `json:"clarity"`
	OverallScore        float64  `json:"overallScore"`
	QuestionsSolved     int      `json:"questionsSolved"`
	PerQuestionFeedback []string `json:"perQuestionFeedback"`
	Feedback            string   `json:"feedback"`
	IsAssignment        bool     `json:"isAssignment"`
	TextTruncated       bool     `json:"textTruncated"`
	ReferenceTruncated  bool     `json:"referenceTruncated"`
}

// NewAnalysisResponse maps an analysis result; identity fields are resolved by the caller.
func NewAnalysisResponse(id, name, fileName string, result models.AnalysisResult) AnalysisResponse {
	perQuestion := result.PerQuestionFeedback
	if perQuestion == nil {
		perQuestion = []string{}
	}

	return AnalysisResponse{
		ID:                  id,
		Name:                name,
		FileName:            fileName,
		Date:                result.AnalyzedAt.Format(time.RFC3339),
		Relevance:           result.Metrics.Relevance,
		Understanding:       result.Metrics.Understanding,
		Logic:               result.Metrics.Logic,
		Structure:           result.Metrics.Structure,
		Clarity:             result.Metrics.Clarity,
		OverallScore:        result.Metrics.OverallScore,
		QuestionsSolved:     result.QuestionsSolved,
		PerQuestionFeedback: perQuestion,
		Feedback:            result.Feedback,
		IsAssignment:        result.IsAssignment,
		TextTruncated:       result.TextTruncated,
		ReferenceTruncated:  result.ReferenceTruncated,
	}
}

// SectionAssignmentSummary is one graded assignment in a section feedback request.
type SectionAssignmentSummary struct {
	StudentName   string  `json:"student_name" validate:"max=200"`
	OverallScore  float64 `json:"overall_score" validate:"gte=0,lte=100"`
	Relevance     float64 `json:"relevance" validate:"gte=0,lte=100"`
	Understanding float64 `json:"understanding" validate:"gte=0,lte=100"`
	Logic         float64 `json:"logic" validate:"gte=0,lte=100"`
	Structure     float64 `json:"structure" validate:"gte=0,lte=100"`
	Clarity       float64 `json:"clarity" validate:"gte=0,lte=100"`
}

// ToModel converts the payload row into the domain summary.
func (s SectionAssignmentSummary) ToModel() models.StudentScoreSummary {
	return models.StudentScoreSummary{
		StudentName:   s.StudentName,
		Relevance:     s.Relevance,
		Understanding: s.Understanding,
		Logic:         s.Logic,
		Structure:     s.Structure,
		Clarity:       s.Clarity,
		OverallScore:  s.OverallScore,
	}
}

// SectionFeedbackRequest is the body of the section insight endpoint.
type SectionFeedbackRequest struct {
	SectionName string                     `json:"section_name" validate:"max=200"`
	Assignments []SectionAssignmentSummary `json:"assignments" validate:"required,min=1,dive"`
}

// SectionFeedbackResponse wraps the narrative insight.
type SectionFeedbackResponse struct {
	Feedback string `json:"feedback"`
}

// AnalysisEvent is published after an assignment has been graded.
type AnalysisEvent struct {
	EventID       string    `json:"eventId"`
	CorrelationID string    `json:"correlationId,omitempty"`
	StudentID     string    `json:"studentId"`
	StudentName   string    `json:"studentName"`
	FileName      string    `json:"fileName"`
	OverallScore  float64   `json:"overallScore"`
	IsAssignment  bool      `json:"isAssignment"`
	TextSource    string    `json:"textSource"`
	AnalyzedAt    time.Time `json:"analyzedAt"`
}
