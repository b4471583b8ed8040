package service

import (
	"encoding/json"
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

const verdictSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["metrics"],
  "properties": {
    "isAssignment": {"type": ["boolean", "null"]},
    "studentName": {"type": ["string", "null"]},
    "studentId": {"type": ["string", "number", "null"]},
    "questionsSolved": {"type": ["number", "null"], "minimum": 0},
    "perQuestionFeedback": {"type": ["array", "null"], "items": {"type": "string"}},
    "feedback": {"type": ["string", "null"]},
    "metrics": {
      "type": "object",
      "required": ["relevance", "understanding", "logic", "structure", "clarity"],
      "properties": {
        "relevance": {"type": ["number", "string"]},
        "understanding": {"type": ["number", "string"]},
        "logic": {"type": ["number", "string"]},
        "structure": {"type": ["number", "string"]},
        "clarity": {"type": ["number", "string"]}
      }
    }
  }
}`

var verdictSchema = jsonschema.MustCompileString("analysis_verdict.json", verdictSchemaJSON)

var textPolicy = bluemonday.StrictPolicy()

// verdict is the model's answer after schema validation.
type verdict struct {
	IsAssignment        *bool                  `json:"isAssignment"`
	StudentName         *string                `json:"studentName"`
	StudentID           interface{}            `json:"studentId"`
	QuestionsSolved     *float64               `json:"questionsSolved"`
	PerQuestionFeedback []string               `json:"perQuestionFeedback"`
	Metrics             map[string]interface{} `json:"metrics"`
	Feedback            *string                `json:"feedback"`
}

func parseVerdict(content string) (verdict, error) {
	cleaned := stripCodeFence(content)

	var document interface{}
	if err := json.Unmarshal([]byte(cleaned), &document); err != nil {
		return verdict{}, fmt.Errorf("parse verdict json: %w", err)
	}
	if err := verdictSchema.Validate(document); err != nil {
		return verdict{}, fmt.Errorf("verdict does not match schema: %w", err)
	}

	var data verdict
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return verdict{}, fmt.Errorf("decode verdict: %w", err)
	}
	return data, nil
}

func (v verdict) metric(name string) (float64, error) {
	value, ok := v.Metrics[name]
	if !ok || value == nil {
		return 0, nil
	}
	return numberValue(value)
}

func (v verdict) studentID() string {
	switch id := v.StudentID.(type) {
	case string:
		return sanitizeText(id)
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	default:
		return ""
	}
}

func numberValue(v interface{}) (float64, error) {
	switch typed := v.(type) {
	case float64:
		return typed, nil
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(typed), "%")), 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", typed)
		}
		return parsed, nil
	default:
		return 0, fmt.Errorf("not a number: %v", v)
	}
}

// markupTag matches opening or closing HTML elements with quoted attributes only, so prose such as
// "a<b and b>c" or "List<String>" is never read as a tag.
var markupTag = regexp.MustCompile(`(?i)</?(?:a|b|i|u|s|em|strong|p|br|hr|div|span|code|pre|sub|sup|ul|ol|li|h[1-6]|blockquote|table|thead|tbody|tr|td|th|img|iframe|script|style)(?:\s+[a-z-]+\s*=\s*(?:"[^"]*"|'[^']*'))*\s*/?>`)

// sanitizeText strips HTML elements from model output and keeps every other character, including
// comparison operators and generic type brackets.
func sanitizeText(value string) string {
	tags := markupTag.FindAllStringIndex(value, -1)
	if len(tags) == 0 {
		return strings.TrimSpace(value)
	}

	var builder strings.Builder
	last := 0
	for _, tag := range tags {
		builder.WriteString(strings.ReplaceAll(value[last:tag[0]], "<", "&lt;"))
		builder.WriteString(value[tag[0]:tag[1]])
		last = tag[1]
	}
	builder.WriteString(strings.ReplaceAll(value[last:], "<", "&lt;"))

	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(builder.String())))
}

func stripCodeFence(text string) string {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```JSON")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}
