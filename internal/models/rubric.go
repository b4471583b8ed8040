package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Default rubric percentages used when a teacher supplies no weights.
const (
	DefaultRelevancePercent     = 20.0
	DefaultUnderstandingPercent = 30.0
	DefaultLogicPercent         = 20.0
	DefaultStructurePercent     = 15.0
	DefaultClarityPercent       = 15.0
)

// ErrInvalidWeights indicates a rubric weight payload could not be used.
var ErrInvalidWeights = errors.New("invalid rubric weights")

// RubricWeights holds the fraction each evaluation factor contributes to the overall score.
type RubricWeights struct {
	Relevance     float64 `json:"relevance"`
	Understanding float64 `json:"understanding"`
	Logic         float64 `json:"logic"`
	Structure     float64 `json:"structure"`
	Clarity       float64 `json:"clarity"`
	Custom        bool    `json:"custom"`
}

// DefaultRubricWeights returns 0.20/0.30/0.20/0.15/0.15.
func DefaultRubricWeights() RubricWeights {
	return RubricWeights{
		Relevance:     DefaultRelevancePercent / 100,
		Understanding: DefaultUnderstandingPercent / 100,
		Logic:         DefaultLogicPercent / 100,
		Structure:     DefaultStructurePercent / 100,
		Clarity:       DefaultClarityPercent / 100,
	}
}

// Sum returns the total of the five fractions.
func (w RubricWeights) Sum() float64 {
	return w.Relevance + w.Understanding + w.Logic + w.Structure + w.Clarity
}

// Apply computes the weighted overall score for the given metrics, rounded to two decimals.
func (w RubricWeights) Apply(m ScoreMetrics) float64 {
	total := m.Relevance*w.Relevance +
		m.Understanding*w.Understanding +
		m.Logic*w.Logic +
		m.Structure*w.Structure +
		m.Clarity*w.Clarity
	return ClampScore(RoundScore(total))
}

// ParseRubricWeights converts a JSON object of percentages into fractions.
//
// Values may be JSON numbers or numeric strings. Missing keys take their default percentage.
// Sets that do not total 100 are scaled proportionally so the overall score stays within 0-100.
func ParseRubricWeights(raw []byte) (RubricWeights, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return RubricWeights{}, fmt.Errorf("%w: empty payload", ErrInvalidWeights)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(trimmed), &payload); err != nil {
		return RubricWeights{}, fmt.Errorf("%w: %v", ErrInvalidWeights, err)
	}

	percents := map[string]float64{
		"relevance":     DefaultRelevancePercent,
		"understanding": DefaultUnderstandingPercent,
		"logic":         DefaultLogicPercent,
		"structure":     DefaultStructurePercent,
		"clarity":       DefaultClarityPercent,
	}
	for key := range percents {
		value, ok := payload[key]
		if !ok || value == nil {
			continue
		}
		parsed, err := percentValue(value)
		if err != nil {
			return RubricWeights{}, fmt.Errorf("%w: %s: %v", ErrInvalidWeights, key, err)
		}
		if parsed < 0 || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
			return RubricWeights{}, fmt.Errorf("%w: %s must be a non-negative number", ErrInvalidWeights, key)
		}
		percents[key] = parsed
	}

	total := percents["relevance"] + percents["understanding"] + percents["logic"] + percents["structure"] + percents["clarity"]
	if total <= 0 {
		return RubricWeights{}, fmt.Errorf("%w: weights must total more than zero", ErrInvalidWeights)
	}

	return RubricWeights{
		Relevance:     percents["relevance"] / total,
		Understanding: percents["understanding"] / total,
		Logic:         percents["logic"] / total,
		Structure:     percents["structure"] / total,
		Clarity:       percents["clarity"] / total,
		Custom:        true,
	}, nil
}

func percentValue(v interface{}) (float64, error) {
	switch typed := v.(type) {
	case float64:
		return typed, nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(typed), "%")), 64)
	default:
		return 0, fmt.Errorf("unsupported value %v", v)
	}
}
