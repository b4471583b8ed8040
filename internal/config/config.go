package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Supported language model providers.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Config holds runtime configuration values for the grader service.
type Config struct {
	AppName         string
	AppEnv          string
	AppPort         string
	UploadMaxMB     int
	AIProvider      string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	GeminiAPIKey    string
	AnalysisModel   string
	VisionModel     string
	SummaryModel    string
	ScorePolicy     string
	OCRMaxPages     int
	OCRScale        float64
	MinNativeChars  int
	TextBudget      int
	ReferenceBudget int
	NATSURL         string
	NATSSubject     string
	RateLimitMax    int
	RateLimitWindow time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// UploadLimitBytes converts the upload limit to bytes.
func (c Config) UploadLimitBytes() int64 {
	return int64(c.UploadMaxMB) * 1024 * 1024
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("GEMA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	_ = v.BindEnv("openai_api_key", "GEMA_OPENAI_API_KEY", "GROQ_API_KEY")

	v.SetDefault("app.name", "GEMA Grader API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "5000")
	v.SetDefault("upload.max_mb", 20)
	v.SetDefault("ai.provider", ProviderOpenAI)
	v.SetDefault("openai.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("ai.score_policy", "verify")
	v.SetDefault("ocr.max_pages", 5)
	v.SetDefault("ocr.scale", 1.5)
	v.SetDefault("ocr.min_native_chars", 50)
	v.SetDefault("analysis.text_budget", 15000)
	v.SetDefault("analysis.reference_budget", 10000)
	v.SetDefault("nats.subject", "gema.grader.analysis")
	v.SetDefault("ratelimit.max", 30)
	v.SetDefault("ratelimit.window", "1m")

	window, err := time.ParseDuration(v.GetString("ratelimit.window"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid rate limit window: %w", err)
	}

	cfg := Config{
		AppName:         v.GetString("app.name"),
		AppEnv:          v.GetString("app.env"),
		AppPort:         v.GetString("app.port"),
		UploadMaxMB:     v.GetInt("upload.max_mb"),
		AIProvider:      strings.ToLower(strings.TrimSpace(v.GetString("ai.provider"))),
		OpenAIAPIKey:    v.GetString("openai_api_key"),
		OpenAIBaseURL:   v.GetString("openai.base_url"),
		GeminiAPIKey:    v.GetString("gemini_api_key"),
		AnalysisModel:   v.GetString("ai.analysis_model"),
		VisionModel:     v.GetString("ai.vision_model"),
		SummaryModel:    v.GetString("ai.summary_model"),
		ScorePolicy:     strings.ToLower(v.GetString("ai.score_policy")),
		OCRMaxPages:     v.GetInt("ocr.max_pages"),
		OCRScale:        v.GetFloat64("ocr.scale"),
		MinNativeChars:  v.GetInt("ocr.min_native_chars"),
		TextBudget:      v.GetInt("analysis.text_budget"),
		ReferenceBudget: v.GetInt("analysis.reference_budget"),
		NATSURL:         v.GetString("nats.url"),
		NATSSubject:     v.GetString("nats.subject"),
		RateLimitMax:    v.GetInt("ratelimit.max"),
		RateLimitWindow: window,
	}

	defaultAnalysis, defaultVision := "llama-3.3-70b-versatile", "meta-llama/llama-4-scout-17b-16e-instruct"
	if cfg.AIProvider == ProviderGemini {
		defaultAnalysis, defaultVision = "gemini-1.5-flash", "gemini-1.5-flash"
	}
	if cfg.AnalysisModel == "" {
		cfg.AnalysisModel = defaultAnalysis
	}
	if cfg.VisionModel == "" {
		cfg.VisionModel = defaultVision
	}
	if cfg.SummaryModel == "" {
		cfg.SummaryModel = cfg.AnalysisModel
	}

	if cfg.UploadMaxMB <= 0 {
		cfg.UploadMaxMB = 20
	}

	switch cfg.ScorePolicy {
	case "verify", "trust":
	default:
		return Config{}, fmt.Errorf("invalid score policy %q", cfg.ScorePolicy)
	}

	switch cfg.AIProvider {
	case ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return Config{}, fmt.Errorf("openai api key must be provided")
		}
	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return Config{}, fmt.Errorf("gemini api key must be provided")
		}
	default:
		return Config{}, fmt.Errorf("unsupported ai provider %q", cfg.AIProvider)
	}

	return cfg, nil
}
