package ai

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const openAIProvider = "openai"

// OpenAIConfig defines configuration options for OpenAI-compatible chat backends (OpenAI, Groq).
type OpenAIConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	Logger    zerolog.Logger
}

// OpenAIClient implements Client against an OpenAI-compatible chat completion API.
type OpenAIClient struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIClient builds a new client using the provided configuration.
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "llama-3.3-70b-versatile"
	}

	tracer := otel.Tracer("github.com/noah-isme/gema-grader-api/pkg/ai/openai")
	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	client := openai.NewClientWithConfig(config)

	return &OpenAIClient{
		client: client,
		cfg:    cfg,
		tracer: tracer,
		logger: logger.With().Str("component", "openai_client").Logger(),
	}, nil
}

// Complete sends a chat completion request and returns the first choice.
func (c *OpenAIClient) Complete(parent context.Context, req CompletionRequest) (CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = c.cfg.Model
	}

	ctx, span := c.tracer.Start(parent, "openai.complete", trace.WithAttributes(
		attribute.String("model", model),
		attribute.Bool("json", req.JSON),
		attribute.Int("messages", len(req.Messages)),
	))
	defer span.End()

	request := openai.ChatCompletionRequest{
		Model:    model,
		Messages: toOpenAIMessages(req.Messages),
	}
	if req.MaxTokens > 0 {
		request.MaxTokens = req.MaxTokens
	} else if c.cfg.MaxTokens > 0 {
		request.MaxTokens = c.cfg.MaxTokens
	}
	if req.Temperature != nil {
		request.Temperature = *req.Temperature
	}
	if req.JSON {
		request.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, request)
	completionDuration.WithLabelValues(openAIProvider, model).Observe(time.Since(start).Seconds())
	if err != nil {
		completionFailures.WithLabelValues(openAIProvider, model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return CompletionResponse{}, fmt.Errorf("openai complete: %w", err)
	}

	if len(resp.Choices) == 0 {
		completionFailures.WithLabelValues(openAIProvider, model).Inc()
		span.RecordError(ErrEmptyCompletion)
		span.SetStatus(codes.Error, ErrEmptyCompletion.Error())
		return CompletionResponse{}, fmt.Errorf("openai complete: %w", ErrEmptyCompletion)
	}

	result := CompletionResponse{
		Content:          resp.Choices[0].Message.Content,
		Model:            resp.Model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}
	if result.Model == "" {
		result.Model = model
	}
	observeUsage(openAIProvider, model, result)

	c.logger.Debug().
		Str("model", result.Model).
		Int("prompt_tokens", result.PromptTokens).
		Int("completion_tokens", result.CompletionTokens).
		Msg("completion finished")

	return result, nil
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		if len(msg.Images) == 0 {
			out = append(out, openai.ChatCompletionMessage{Role: msg.Role, Content: msg.Content})
			continue
		}

		parts := make([]openai.ChatMessagePart, 0, len(msg.Images)+1)
		if msg.Content != "" {
			parts = append(parts, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeText,
				Text: msg.Content,
			})
		}
		for _, img := range msg.Images {
			parts = append(parts, openai.ChatMessagePart{
				Type:     openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{URL: dataURL(img)},
			})
		}
		out = append(out, openai.ChatCompletionMessage{Role: msg.Role, MultiContent: parts})
	}
	return out
}

func dataURL(img Image) string {
	mime := img.MIMEType
	if mime == "" {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}
