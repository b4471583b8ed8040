package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/api/option"
)

const geminiProvider = "gemini"

// GeminiConfig defines configuration options for the Gemini client.
type GeminiConfig struct {
	APIKey    string
	Model     string
	MaxTokens int
	Logger    zerolog.Logger
}

// GeminiClient implements Client on top of the Google generative AI SDK.
type GeminiClient struct {
	client *genai.Client
	cfg    GeminiConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewGeminiClient builds a Gemini-backed client.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	return &GeminiClient{
		client: client,
		cfg:    cfg,
		tracer: otel.Tracer("github.com/noah-isme/gema-grader-api/pkg/ai/gemini"),
		logger: logger.With().Str("component", "gemini_client").Logger(),
	}, nil
}

// Close releases the underlying SDK connection.
func (c *GeminiClient) Close() error {
	return c.client.Close()
}

// Complete maps the request onto a single GenerateContent call. System messages become the
// model's system instruction; all user text and images are sent as one content turn.
func (c *GeminiClient) Complete(parent context.Context, req CompletionRequest) (CompletionResponse, error) {
	modelName := req.Model
	if modelName == "" {
		modelName = c.cfg.Model
	}

	ctx, span := c.tracer.Start(parent, "gemini.complete", trace.WithAttributes(
		attribute.String("model", modelName),
		attribute.Bool("json", req.JSON),
	))
	defer span.End()

	model := c.client.GenerativeModel(modelName)
	if req.JSON {
		model.ResponseMIMEType = "application/json"
	}
	if req.Temperature != nil {
		model.SetTemperature(*req.Temperature)
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.cfg.MaxTokens
	}
	if maxTokens > 0 {
		model.SetMaxOutputTokens(int32(maxTokens))
	}

	system, parts := toGeminiParts(req.Messages)
	if system != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(system))
	}

	start := time.Now()
	resp, err := model.GenerateContent(ctx, parts...)
	completionDuration.WithLabelValues(geminiProvider, modelName).Observe(time.Since(start).Seconds())
	if err != nil {
		completionFailures.WithLabelValues(geminiProvider, modelName).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return CompletionResponse{}, fmt.Errorf("gemini complete: %w", err)
	}

	content := collectGeminiText(resp)
	if content == "" {
		completionFailures.WithLabelValues(geminiProvider, modelName).Inc()
		span.RecordError(ErrEmptyCompletion)
		span.SetStatus(codes.Error, ErrEmptyCompletion.Error())
		return CompletionResponse{}, fmt.Errorf("gemini complete: %w", ErrEmptyCompletion)
	}

	result := CompletionResponse{Content: content, Model: modelName}
	if resp.UsageMetadata != nil {
		result.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		result.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	observeUsage(geminiProvider, modelName, result)

	return result, nil
}

func toGeminiParts(messages []Message) (string, []genai.Part) {
	var system []string
	parts := make([]genai.Part, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == RoleSystem {
			system = append(system, msg.Content)
			continue
		}
		if msg.Content != "" {
			parts = append(parts, genai.Text(msg.Content))
		}
		for _, img := range msg.Images {
			mime := img.MIMEType
			if mime == "" {
				mime = "image/png"
			}
			parts = append(parts, genai.Blob{MIMEType: mime, Data: img.Data})
		}
	}
	return strings.Join(system, "\n\n"), parts
}

func collectGeminiText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var builder strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			builder.WriteString(string(text))
		}
	}
	return strings.TrimSpace(builder.String())
}
