package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	Port        string `envconfig:"PORT" default:"8080"`

	TelegramBotToken string `envconfig:"TELEGRAM_BOT_TOKEN" required:"true"`
	// Если задан — бот работает через вебхук, иначе long polling.
	WebhookURL string `envconfig:"WEBHOOK_URL" default:""`

	// Пустое значение — DSN собирается из POSTGRES_* (см. cmd/bot).
	DatabaseURL string `envconfig:"DATABASE_URL" default:""`

	GeminiAPIKey string `envconfig:"GEMINI_API_KEY" required:"true"`
	GeminiModel  string `envconfig:"GEMINI_MODEL" default:"gemini-2.5-flash"`

	GoogleBooksAPIKey string `envconfig:"GOOGLE_BOOKS_API_KEY" default:""`

	// База deep-link на мини-приложение, напр. https://t.me/bookworm_club_bot/shelf
	AppURL string `envconfig:"APP_URL" default:""`

	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"15m"`
	SweepInterval time.Duration `envconfig:"SESSION_SWEEP_INTERVAL" default:"1m"`

	MatchThreshold float64 `envconfig:"MATCH_THRESHOLD" default:"0.9"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.TelegramBotToken) == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	if strings.TrimSpace(c.GeminiAPIKey) == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	if c.MatchThreshold <= 0 || c.MatchThreshold > 1 {
		return fmt.Errorf("MATCH_THRESHOLD must be in (0, 1], got %v", c.MatchThreshold)
	}
	if c.SessionTTL < time.Minute {
		return fmt.Errorf("SESSION_TTL must be >= 1m")
	}
	if c.SweepInterval < time.Second {
		return fmt.Errorf("SESSION_SWEEP_INTERVAL must be >= 1s")
	}
	return nil
}
