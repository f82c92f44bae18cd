package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port         string
	DatabasePath string
	LogLevel     string

	// S3
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3BucketName      string
	S3UseSSL          bool

	// Completion provider (OpenRouter)
	LLMEnabled       bool
	OpenRouterAPIKey string
	OpenRouterModel  string
	ProviderTimeout  time.Duration

	// Webhook
	WebhookURL string

	// Upload limits
	MaxFileSize int64

	// Retrieval policy
	ChunkSize      int
	ChunkOverlap   int
	TopK           int
	RelevanceFloor float64

	// Audit policy thresholds. Documented with the rule table in
	// internal/audit.
	AutoRenewalNoticeDays        int
	ConfidentialitySurvivalYears int
}

func Load() (*Config, error) {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		DatabasePath:      getEnv("DATABASE_PATH", "data/contracts.db"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		S3Endpoint:        getEnv("S3_ENDPOINT", "localhost:9000"),
		S3AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", "minioadmin"),
		S3SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", "minioadmin"),
		S3BucketName:      getEnv("S3_BUCKET_NAME", "contracts"),
		S3UseSSL:          getEnv("S3_USE_SSL", "false") == "true",
		LLMEnabled:        getEnv("LLM_ENABLED", "true") == "true",
		OpenRouterAPIKey:  getEnv("OPENROUTER_API_KEY", ""),
		OpenRouterModel:   getEnv("OPENROUTER_MODEL", "openai/gpt-4o-mini"),
		ProviderTimeout:   getEnvDuration("PROVIDER_TIMEOUT", 30*time.Second),
		WebhookURL:        getEnv("WEBHOOK_URL", ""),
		MaxFileSize:       10 << 20,

		ChunkSize:      getEnvInt("CHUNK_SIZE", 800),
		ChunkOverlap:   getEnvInt("CHUNK_OVERLAP", 160),
		TopK:           getEnvInt("RETRIEVAL_TOP_K", 3),
		RelevanceFloor: getEnvFloat("RELEVANCE_FLOOR", 0.05),

		AutoRenewalNoticeDays:        getEnvInt("AUTO_RENEWAL_NOTICE_DAYS", 30),
		ConfidentialitySurvivalYears: getEnvInt("CONFIDENTIALITY_SURVIVAL_YEARS", 5),
	}

	// An empty API key just disables the completion provider; the extractive
	// strategy keeps the QA path working.
	if cfg.OpenRouterAPIKey == "" {
		cfg.LLMEnabled = false
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
