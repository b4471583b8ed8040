package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce       sync.Once
	apiRequestsTotal   *prometheus.CounterVec
	apiLatencySeconds  *prometheus.HistogramVec
	apiErrorsTotal     *prometheus.CounterVec
	extractionsTotal   *prometheus.CounterVec
	ocrPagesTotal      *prometheus.CounterVec
	truncationsTotal   *prometheus.CounterVec
	analysisSeconds    prometheus.Histogram
	scoreDivergence    prometheus.Counter
	sectionSummaryRuns *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the grading API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gema",
			Name:      "api_requests_total",
			Help:      "Total number of grading API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gema",
			Name:      "api_latency_seconds",
			Help:      "Latency distribution for grading API requests.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gema",
			Name:      "api_errors_total",
			Help:      "Total number of error responses returned by grading endpoints.",
		}, []string{"method", "route", "status"})

		extractionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gema",
			Subsystem: "grader",
			Name:      "extractions_total",
			Help:      "Documents converted to text, by the path that produced the text.",
		}, []string{"source"})

		ocrPagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gema",
			Subsystem: "grader",
			Name:      "ocr_pages_total",
			Help:      "Pages sent through vision transcription, by outcome.",
		}, []string{"outcome"})

		truncationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gema",
			Subsystem: "grader",
			Name:      "input_truncations_total",
			Help:      "Analyzer inputs cut to the configured character budget.",
		}, []string{"input"})

		analysisSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "gema",
			Subsystem: "grader",
			Name:      "analysis_duration_seconds",
			Help:      "Duration of assignment analysis including the model call.",
			Buckets:   []float64{0.5, 1, 2, 4, 8, 16, 32, 64},
		})

		scoreDivergence = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gema",
			Subsystem: "grader",
			Name:      "overall_score_divergence_total",
			Help:      "Analyses where the model's overall score disagreed with the weighted formula.",
		})

		sectionSummaryRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gema",
			Subsystem: "grader",
			Name:      "section_summaries_total",
			Help:      "Section insight requests, by outcome.",
		}, []string{"outcome"})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			extractionsTotal,
			ocrPagesTotal,
			truncationsTotal,
			analysisSeconds,
			scoreDivergence,
			sectionSummaryRuns,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// Extractions counts extracted documents by text source.
func Extractions() *prometheus.CounterVec {
	RegisterMetrics()
	return extractionsTotal
}

// OCRPages counts transcribed pages by outcome ("ok" or "failed").
func OCRPages() *prometheus.CounterVec {
	RegisterMetrics()
	return ocrPagesTotal
}

// Truncations counts analyzer inputs cut to budget ("text" or "reference").
func Truncations() *prometheus.CounterVec {
	RegisterMetrics()
	return truncationsTotal
}

// AnalysisLatency exposes the analysis duration histogram.
func AnalysisLatency() prometheus.Histogram {
	RegisterMetrics()
	return analysisSeconds
}

// ScoreDivergence counts model overall scores that disagree with the formula.
func ScoreDivergence() prometheus.Counter {
	RegisterMetrics()
	return scoreDivergence
}

// SectionSummaries counts section insight requests by outcome.
func SectionSummaries() *prometheus.CounterVec {
	RegisterMetrics()
	return sectionSummaryRuns
}
