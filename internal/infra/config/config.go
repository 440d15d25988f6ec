package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application.
type AppConfig struct {
	HTTPAddr    string
	LogLevel    string
	Environment string

	// Storage selects the job table / progress store backend.
	StorageBackend string // "memory" or "postgres"
	DatabaseURL    string // required for the postgres backend

	// Notification channel and its credentials.
	NotifyChannel  string // "console", "email" or "telegram"
	SendGridAPIKey string
	FromEmail      string
	TelegramToken  string

	// Dispatcher tuning.
	PollInterval   time.Duration
	MaxRetries     int
	RetryDelay     time.Duration
	HandlerTimeout time.Duration

	// Scheduling policy.
	MaxLessons         int
	AdvanceOnFailure   bool // count a terminally failed lesson as delivered
	FirstLessonNow     bool // past-due first lesson fires immediately instead of rolling a day
	TestModeStartDelay time.Duration
	TestModeInterval   time.Duration
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.HTTPAddr = envOr("HTTP_ADDR", ":8080")
	cfg.LogLevel = strings.ToLower(envOr("LOG_LEVEL", "info"))
	cfg.Environment = strings.ToLower(envOr("ENVIRONMENT", "development"))

	cfg.StorageBackend = strings.ToLower(envOr("STORAGE_BACKEND", "memory"))
	switch cfg.StorageBackend {
	case "memory":
	case "postgres":
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when STORAGE_BACKEND=postgres")
		}
	default:
		return nil, fmt.Errorf("invalid STORAGE_BACKEND %q (want memory or postgres)", cfg.StorageBackend)
	}

	cfg.NotifyChannel = strings.ToLower(envOr("NOTIFY_CHANNEL", "console"))
	switch cfg.NotifyChannel {
	case "console":
	case "email":
		cfg.SendGridAPIKey = os.Getenv("SENDGRID_API_KEY")
		if cfg.SendGridAPIKey == "" {
			return nil, fmt.Errorf("SENDGRID_API_KEY is required when NOTIFY_CHANNEL=email")
		}
		cfg.FromEmail = envOr("FROM_EMAIL", "lessons@learnhub.local")
	case "telegram":
		cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
		if cfg.TelegramToken == "" {
			return nil, fmt.Errorf("TELEGRAM_TOKEN is required when NOTIFY_CHANNEL=telegram")
		}
	default:
		return nil, fmt.Errorf("invalid NOTIFY_CHANNEL %q (want console, email or telegram)", cfg.NotifyChannel)
	}

	if cfg.PollInterval, err = durationOr("POLL_INTERVAL", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.MaxRetries, err = intOr("MAX_RETRIES", 2); err != nil {
		return nil, err
	}
	if cfg.RetryDelay, err = durationOr("RETRY_DELAY", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.HandlerTimeout, err = durationOr("HANDLER_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	// A hung external call must not outlive the retry spacing.
	if cfg.HandlerTimeout >= cfg.RetryDelay {
		return nil, fmt.Errorf("HANDLER_TIMEOUT (%s) must be shorter than RETRY_DELAY (%s)", cfg.HandlerTimeout, cfg.RetryDelay)
	}

	if cfg.MaxLessons, err = intOr("MAX_LESSONS", 30); err != nil {
		return nil, err
	}
	if cfg.AdvanceOnFailure, err = boolOr("ADVANCE_ON_FAILURE", true); err != nil {
		return nil, err
	}
	if cfg.FirstLessonNow, err = boolOr("FIRST_LESSON_NOW", false); err != nil {
		return nil, err
	}
	if cfg.TestModeStartDelay, err = durationOr("TEST_MODE_START_DELAY", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.TestModeInterval, err = durationOr("TEST_MODE_INTERVAL", time.Minute); err != nil {
		return nil, err
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intOr(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func boolOr(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func durationOr(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
