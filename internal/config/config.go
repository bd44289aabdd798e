package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string
	HTTPAddr string

	DatabaseURL string
	RedisURL    string

	AsynqQueue       string
	AsynqConcurrency int

	IMAPHost     string
	IMAPPort     int
	IMAPUsername string
	IMAPPassword string
	IMAPFolder   string
	PollInterval time.Duration

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string

	EmailEnabled     bool
	EmailFromName    string
	EmailFromAddress string

	GeminiAPIKey        string
	GeminiModel         string
	DraftRequestsPerMin int

	CalendarBaseURL string

	// OwnDomains identifies the business party's own addresses; replies and
	// extractor candidates matching these are never treated as customer contact.
	OwnDomains []string

	HourlyRate int

	CORSAllowAll bool
	CORSOrigins  []string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	emailEnabled := strings.EqualFold(getEnv("EMAIL_ENABLED", "true"), "true")

	cfg := &Config{
		Env:      getEnv("APP_ENV", "development"),
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379/0"),

		AsynqQueue:       getEnv("ASYNQ_QUEUE", "leads"),
		AsynqConcurrency: mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),

		IMAPHost:     getEnv("IMAP_HOST", ""),
		IMAPPort:     mustInt(getEnv("IMAP_PORT", "993")),
		IMAPUsername: getEnv("IMAP_USERNAME", ""),
		IMAPPassword: getEnv("IMAP_PASSWORD", ""),
		IMAPFolder:   getEnv("IMAP_FOLDER", "INBOX"),
		PollInterval: mustDuration(getEnv("POLL_INTERVAL", "2m")),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		EmailEnabled:     emailEnabled,
		EmailFromName:    getEnv("EMAIL_FROM_NAME", "Rendetalje"),
		EmailFromAddress: getEnv("EMAIL_FROM_ADDRESS", "info@rendetalje.dk"),

		GeminiAPIKey:        getEnv("GEMINI_API_KEY", ""),
		GeminiModel:         getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		DraftRequestsPerMin: mustInt(getEnv("DRAFT_REQUESTS_PER_MIN", "10")),

		CalendarBaseURL: getEnv("CALENDAR_BASE_URL", ""),

		OwnDomains: splitCSV(getEnv("OWN_DOMAINS", "rendetalje.dk,rendetalje")),

		HourlyRate: mustInt(getEnv("HOURLY_RATE", "349")),

		CORSAllowAll: corsAllowAll,
		CORSOrigins:  corsOrigins,
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}
	if cfg.EmailEnabled && cfg.SMTPHost == "" {
		return nil, fmt.Errorf("SMTP_HOST is required when EMAIL_ENABLED is true")
	}
	if cfg.EmailEnabled && cfg.EmailFromAddress == "" {
		return nil, fmt.Errorf("EMAIL_FROM_ADDRESS is required when email is enabled")
	}
	if cfg.HourlyRate <= 0 {
		return nil, fmt.Errorf("HOURLY_RATE must be positive")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return n
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
