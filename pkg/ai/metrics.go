package ai

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	completionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "gema",
		Subsystem: "ai",
		Name:      "completion_duration_seconds",
		Help:      "Duration of language model completion requests",
		Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
	}, []string{"provider", "model"})

	completionFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gema",
		Subsystem: "ai",
		Name:      "completion_failures_total",
		Help:      "Number of failed language model completion requests",
	}, []string{"provider", "model"})

	completionTokens = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gema",
		Subsystem: "ai",
		Name:      "completion_tokens_total",
		Help:      "Tokens consumed by language model completions",
	}, []string{"provider", "model", "kind"})
)

func observeUsage(provider, model string, resp CompletionResponse) {
	if resp.PromptTokens > 0 {
		completionTokens.WithLabelValues(provider, model, "prompt").Add(float64(resp.PromptTokens))
	}
	if resp.CompletionTokens > 0 {
		completionTokens.WithLabelValues(provider, model, "completion").Add(float64(resp.CompletionTokens))
	}
}
