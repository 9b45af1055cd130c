// Package config provides application configuration loading from environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Defaults.
const (
	DefaultReminderHour        = 20
	DefaultReminderTimezone    = "Asia/Colombo"
	DefaultReminderConcurrency = 4
	DefaultSendRatePerSecond   = 25
)

// Telemetry exporters.
const (
	ExporterNone     = "none"
	ExporterStdout   = "stdout"
	ExporterOTLPGRPC = "otlp-grpc"
	ExporterOTLPHTTP = "otlp-http"
)

// Config holds all configuration for the application.
type Config struct {
	TelegramBotToken string
	DatabaseURL      string
	LogLevel         string
	LogFormat        string

	DailyReminderEnabled bool
	ReminderHour         int
	ReminderMinute       int
	ReminderTimezone     string
	ReminderConcurrency  int

	SendRatePerSecond float64

	OTelExporter string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		LogLevel:         os.Getenv("LOG_LEVEL"),
		LogFormat:        os.Getenv("LOG_FORMAT"),
	}

	cfg.DailyReminderEnabled = os.Getenv("DAILY_REMINDER_ENABLED") != "false"

	cfg.ReminderHour = DefaultReminderHour
	if hourStr := os.Getenv("REMINDER_HOUR"); hourStr != "" {
		if h, err := strconv.Atoi(hourStr); err == nil && h >= 0 && h <= 23 {
			cfg.ReminderHour = h
		}
	}

	if minStr := os.Getenv("REMINDER_MINUTE"); minStr != "" {
		if m, err := strconv.Atoi(minStr); err == nil && m >= 0 && m <= 59 {
			cfg.ReminderMinute = m
		}
	}

	cfg.ReminderTimezone = DefaultReminderTimezone
	if tz := os.Getenv("REMINDER_TIMEZONE"); tz != "" {
		if _, err := time.LoadLocation(tz); err == nil {
			cfg.ReminderTimezone = tz
		}
	}

	cfg.ReminderConcurrency = DefaultReminderConcurrency
	if cStr := os.Getenv("REMINDER_CONCURRENCY"); cStr != "" {
		if c, err := strconv.Atoi(cStr); err == nil && c > 0 {
			cfg.ReminderConcurrency = c
		}
	}

	cfg.SendRatePerSecond = DefaultSendRatePerSecond
	if rStr := os.Getenv("SEND_RATE_PER_SECOND"); rStr != "" {
		if r, err := strconv.ParseFloat(rStr, 64); err == nil && r > 0 {
			cfg.SendRatePerSecond = r
		}
	}

	cfg.OTelExporter = strings.ToLower(strings.TrimSpace(os.Getenv("OTEL_EXPORTER")))
	if cfg.OTelExporter == "" {
		cfg.OTelExporter = ExporterNone
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks that all required configuration is present.
func (c *Config) validate() error {
	var errs []string

	if c.TelegramBotToken == "" {
		errs = append(errs, "TELEGRAM_BOT_TOKEN is required")
	}
	if c.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}
	switch c.OTelExporter {
	case ExporterNone, ExporterStdout, ExporterOTLPGRPC, ExporterOTLPHTTP:
	default:
		errs = append(errs, fmt.Sprintf("OTEL_EXPORTER %q is not one of none, stdout, otlp-grpc, otlp-http", c.OTelExporter))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// Location returns the reminder time zone. Load already rejected unknown
// zones, so this only falls back to UTC for hand-built configs.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.ReminderTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
