package models

import (
	"math"
	"time"
)

// ScorePolicy decides where the overall score of an analysis comes from.
type ScorePolicy string

const (
	// ScorePolicyVerify recomputes the overall score from the five metrics and the resolved weights.
	ScorePolicyVerify ScorePolicy = "verify"
	// ScorePolicyTrust keeps the overall score reported by the model.
	ScorePolicyTrust ScorePolicy = "trust"
)

// ParseScorePolicy maps configuration strings onto a policy, defaulting to verify.
func ParseScorePolicy(value string) ScorePolicy {
	if ScorePolicy(value) == ScorePolicyTrust {
		return ScorePolicyTrust
	}
	return ScorePolicyVerify
}

// ScoreMetrics holds the five evaluation factors and the derived overall score, each in 0-100.
type ScoreMetrics struct {
	Relevance     float64 `json:"relevance"`
	Understanding float64 `json:"understanding"`
	Logic         float64 `json:"logic"`
	Structure     float64 `json:"structure"`
	Clarity       float64 `json:"clarity"`
	OverallScore  float64 `json:"overallScore"`
}

// Clamped returns a copy with every value forced into 0-100.
func (m ScoreMetrics) Clamped() ScoreMetrics {
	return ScoreMetrics{
		Relevance:     ClampScore(m.Relevance),
		Understanding: ClampScore(m.Understanding),
		Logic:         ClampScore(m.Logic),
		Structure:     ClampScore(m.Structure),
		Clarity:       ClampScore(m.Clarity),
		OverallScore:  ClampScore(m.OverallScore),
	}
}

// IsZero reports whether every metric including the overall score is zero.
func (m ScoreMetrics) IsZero() bool {
	return m == ScoreMetrics{}
}

// AnalysisResult is the structured verdict for one assignment document.
type AnalysisResult struct {
	StudentID           string
	StudentName         string
	QuestionsSolved     int
	PerQuestionFeedback []string
	Feedback            string
	IsAssignment        bool
	Metrics             ScoreMetrics
	ModelOverallScore   float64
	Weights             RubricWeights
	ScorePolicy         ScorePolicy
	TextTruncated       bool
	ReferenceTruncated  bool
	AnalyzedAt          time.Time
}

// StudentScoreSummary is one student's row in a section aggregate.
type StudentScoreSummary struct {
	StudentName   string
	Relevance     float64
	Understanding float64
	Logic         float64
	Structure     float64
	Clarity       float64
	OverallScore  float64
}

// SectionInsight is a narrative describing a group of graded assignments.
type SectionInsight struct {
	SectionName  string
	StudentCount int
	Feedback     string
}

// ClampScore bounds a score to 0-100.
func ClampScore(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}

// RoundScore rounds to two decimal places.
func RoundScore(v float64) float64 {
	return math.Round(v*100) / 100
}
