package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"faceit-tracker/internal/constants"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

type Config struct {
	FaceitAPIKey      string
	DiscordWebhookURL string
	Game              string
	DBPath            string
	AdminPort         string
	LogLevel          string

	PollInterval  time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	RecheckDelay  time.Duration

	// Recap window boundary: weekday/hour in Timezone.
	RecapWeekday time.Weekday
	RecapHour    int
	Timezone     string
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		FaceitAPIKey:      getEnv("FACEIT_API_KEY", ""),
		DiscordWebhookURL: getEnv("DISCORD_WEBHOOK_URL", ""),
		Game:              getEnv("FACEIT_GAME", "cs2"),
		DBPath:            getEnv("DB_PATH", "tracker.db"),
		AdminPort:         getEnv("ADMIN_PORT", "8080"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		PollInterval:      getEnvDuration("POLL_INTERVAL", constants.DefaultPollInterval),
		RetryAttempts:     getEnvInt("RETRY_ATTEMPTS", constants.DefaultRetryAttempts),
		RetryDelay:        getEnvDuration("RETRY_DELAY", constants.DefaultRetryDelay),
		RecheckDelay:      getEnvDuration("STATS_RECHECK_DELAY", constants.DefaultRecheckDelay),
		RecapWeekday:      time.Weekday(getEnvInt("RECAP_WEEKDAY", int(time.Sunday))),
		RecapHour:         getEnvInt("RECAP_HOUR", 22),
		Timezone:          getEnv("RECAP_TIMEZONE", "Europe/Copenhagen"),
	}

	if cfg.FaceitAPIKey == "" {
		return nil, fmt.Errorf("FACEIT_API_KEY is required")
	}
	if cfg.DiscordWebhookURL == "" {
		return nil, fmt.Errorf("DISCORD_WEBHOOK_URL is required")
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("invalid RECAP_TIMEZONE %q: %w", cfg.Timezone, err)
	}
	if cfg.RecapHour < 0 || cfg.RecapHour > 23 {
		return nil, fmt.Errorf("RECAP_HOUR must be 0-23, got %d", cfg.RecapHour)
	}

	logger.Info().
		Str("game", cfg.Game).
		Str("db_path", cfg.DBPath).
		Str("admin_port", cfg.AdminPort).
		Str("log_level", cfg.LogLevel).
		Dur("poll_interval", cfg.PollInterval).
		Int("retry_attempts", cfg.RetryAttempts).
		Dur("recheck_delay", cfg.RecheckDelay).
		Str("recap_timezone", cfg.Timezone).
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
