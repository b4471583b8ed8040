package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grader-api/internal/config"
	"github.com/noah-isme/gema-grader-api/internal/handler"
	"github.com/noah-isme/gema-grader-api/internal/middleware"
	"github.com/noah-isme/gema-grader-api/internal/models"
	"github.com/noah-isme/gema-grader-api/internal/router"
	"github.com/noah-isme/gema-grader-api/internal/service"
	"github.com/noah-isme/gema-grader-api/pkg/ai"
	"github.com/noah-isme/gema-grader-api/pkg/document"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()

	client, closeClient, err := newModelClient(context.Background(), cfg, logger)
	if err != nil {
		log.Fatalf("failed to create %s client: %v", cfg.AIProvider, err)
	}
	defer closeClient()

	var conn *nats.Conn
	if cfg.NATSURL != "" {
		conn, err = nats.Connect(cfg.NATSURL, nats.Name(cfg.AppName))
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer conn.Close()
	} else {
		logger.Info().Msg("nats url not set, analysis events disabled")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	vision := service.NewVisionTranscriber(client, document.NewRasterizer(), service.VisionConfig{
		Model:    cfg.VisionModel,
		MaxPages: cfg.OCRMaxPages,
		Scale:    cfg.OCRScale,
	}, logger)
	extractor := service.NewTextExtractor(document.NewPDFTextReader(), document.NewDOCXTextReader(), vision, service.TextExtractorConfig{
		MinNativeChars: cfg.MinNativeChars,
	}, logger)
	analyzer := service.NewAssignmentAnalyzer(client, service.AnalyzerConfig{
		Model:           cfg.AnalysisModel,
		TextBudget:      cfg.TextBudget,
		ReferenceBudget: cfg.ReferenceBudget,
		ScorePolicy:     models.ParseScorePolicy(cfg.ScorePolicy),
	}, logger)
	summarizer := service.NewSectionSummarizer(client, service.SummarizerConfig{Model: cfg.SummaryModel}, logger)
	publisher := service.NewNATSAnalysisPublisher(conn, cfg.NATSSubject)

	gradingService := service.NewGradingService(extractor, analyzer, summarizer, publisher, validate, logger)

	maxBytes := cfg.UploadLimitBytes()
	extractHandler := handler.NewExtractHandler(gradingService, maxBytes, logger)
	analysisHandler := handler.NewAnalysisHandler(gradingService, maxBytes, logger)
	sectionHandler := handler.NewSectionHandler(gradingService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		// assignment and reference file plus form fields
		BodyLimit: int(2*maxBytes) + 1024*1024,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		ExtractHandler:  extractHandler,
		AnalysisHandler: analysisHandler,
		SectionHandler:  sectionHandler,
		RateLimiter:     middleware.RateLimit("grader", cfg.RateLimitMax, cfg.RateLimitWindow),
		Logger:          &logger,
	})

	go func() {
		logger.Info().
			Str("addr", cfg.HTTPAddress()).
			Str("provider", cfg.AIProvider).
			Str("analysis_model", cfg.AnalysisModel).
			Str("vision_model", cfg.VisionModel).
			Msg("grader api listening")
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func newModelClient(ctx context.Context, cfg config.Config, logger zerolog.Logger) (ai.Client, func(), error) {
	switch cfg.AIProvider {
	case config.ProviderGemini:
		client, err := ai.NewGeminiClient(ctx, ai.GeminiConfig{
			APIKey: cfg.GeminiAPIKey,
			Model:  cfg.AnalysisModel,
			Logger: logger,
		})
		if err != nil {
			return nil, nil, err
		}
		return client, func() {
			if err := client.Close(); err != nil {
				logger.Warn().Err(err).Msg("failed to close gemini client")
			}
		}, nil
	default:
		client, err := ai.NewOpenAIClient(ai.OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.AnalysisModel,
			Logger:  logger,
		})
		if err != nil {
			return nil, nil, err
		}
		return client, func() {}, nil
	}
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
