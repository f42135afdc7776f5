package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port string

	// Auth
	APIKey string

	// Classifier
	Provider             string
	GeminiAPIKey         string
	GeminiModel          string
	OpenAIAPIKey         string
	OpenAIBaseURL        string
	OpenAIModel          string
	ClassifierTimeout    time.Duration
	ClassifierMaxRetries int

	// Annotation
	CommentAuthor string

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Upload limits
	MaxUploadBytes int64

	// Job state
	JobTTL time.Duration
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey: os.Getenv("ANSWERMARK_API_KEY"),

		Provider:             envOr("CLASSIFIER_PROVIDER", "gemini"),
		GeminiAPIKey:         os.Getenv("GENAI_API_KEY"),
		GeminiModel:          envOr("GENAI_MODEL", "gemini-3-flash-preview"),
		OpenAIAPIKey:         os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:        os.Getenv("OPENAI_BASE_URL"),
		OpenAIModel:          envOr("OPENAI_MODEL", "gpt-4o-mini"),
		ClassifierTimeout:    envDuration("CLASSIFIER_TIMEOUT", 120*time.Second),
		ClassifierMaxRetries: envInt("CLASSIFIER_MAX_RETRIES", 3),

		CommentAuthor: envOr("COMMENT_AUTHOR", "ChemistryAI"),

		WorkerCount:  envInt("WORKER_COUNT", 4),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 100),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),
	}

	// An optional provider file refines the classifier settings; env values
	// above remain the fallback for anything the file leaves out.
	if path := os.Getenv("CLASSIFIER_CONFIG"); path != "" {
		if providers, err := LoadProviders(path); err == nil {
			cfg.applyProviders(providers)
		}
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.ClassifierTimeout <= 0 {
		cfg.ClassifierTimeout = 120 * time.Second
	}
	if cfg.ClassifierMaxRetries <= 0 {
		cfg.ClassifierMaxRetries = 1
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}

	return cfg
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("ANSWERMARK_API_KEY is required")
	}
	switch c.Provider {
	case "gemini":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GENAI_API_KEY is required for the gemini provider")
		}
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for the openai provider")
		}
	default:
		return fmt.Errorf("unknown classifier provider %q (want gemini or openai)", c.Provider)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
