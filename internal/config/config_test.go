package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
}

func TestLoad(t *testing.T) {
	t.Run("loads required config from env", func(t *testing.T) {
		t.Setenv("TELEGRAM_BOT_TOKEN", "test-token-123")
		t.Setenv("DATABASE_URL", "postgres://localhost/test")

		cfg, err := Load()
		require.NoError(t, err)
		require.Equal(t, "test-token-123", cfg.TelegramBotToken)
		require.Equal(t, "postgres://localhost/test", cfg.DatabaseURL)
	})

	t.Run("applies defaults", func(t *testing.T) {
		setRequired(t)
		t.Setenv("DAILY_REMINDER_ENABLED", "")
		t.Setenv("REMINDER_HOUR", "")
		t.Setenv("REMINDER_MINUTE", "")
		t.Setenv("REMINDER_TIMEZONE", "")
		t.Setenv("REMINDER_CONCURRENCY", "")
		t.Setenv("SEND_RATE_PER_SECOND", "")
		t.Setenv("OTEL_EXPORTER", "")

		cfg, err := Load()
		require.NoError(t, err)
		require.True(t, cfg.DailyReminderEnabled)
		require.Equal(t, DefaultReminderHour, cfg.ReminderHour)
		require.Equal(t, 0, cfg.ReminderMinute)
		require.Equal(t, DefaultReminderTimezone, cfg.ReminderTimezone)
		require.Equal(t, DefaultReminderConcurrency, cfg.ReminderConcurrency)
		require.InDelta(t, DefaultSendRatePerSecond, cfg.SendRatePerSecond, 0.001)
		require.Equal(t, ExporterNone, cfg.OTelExporter)
	})

	t.Run("reminder can be disabled", func(t *testing.T) {
		setRequired(t)
		t.Setenv("DAILY_REMINDER_ENABLED", "false")

		cfg, err := Load()
		require.NoError(t, err)
		require.False(t, cfg.DailyReminderEnabled)
	})

	t.Run("parses reminder time", func(t *testing.T) {
		setRequired(t)
		t.Setenv("REMINDER_HOUR", "9")
		t.Setenv("REMINDER_MINUTE", "45")
		t.Setenv("REMINDER_TIMEZONE", "Europe/Berlin")

		cfg, err := Load()
		require.NoError(t, err)
		require.Equal(t, 9, cfg.ReminderHour)
		require.Equal(t, 45, cfg.ReminderMinute)
		require.Equal(t, "Europe/Berlin", cfg.ReminderTimezone)
	})

	t.Run("ignores out of range reminder time", func(t *testing.T) {
		setRequired(t)
		t.Setenv("REMINDER_HOUR", "24")
		t.Setenv("REMINDER_MINUTE", "60")

		cfg, err := Load()
		require.NoError(t, err)
		require.Equal(t, DefaultReminderHour, cfg.ReminderHour)
		require.Equal(t, 0, cfg.ReminderMinute)
	})

	t.Run("ignores invalid timezone", func(t *testing.T) {
		setRequired(t)
		t.Setenv("REMINDER_TIMEZONE", "Mars/Olympus")

		cfg, err := Load()
		require.NoError(t, err)
		require.Equal(t, DefaultReminderTimezone, cfg.ReminderTimezone)
	})

	t.Run("ignores non-positive concurrency and rate", func(t *testing.T) {
		setRequired(t)
		t.Setenv("REMINDER_CONCURRENCY", "0")
		t.Setenv("SEND_RATE_PER_SECOND", "-1")

		cfg, err := Load()
		require.NoError(t, err)
		require.Equal(t, DefaultReminderConcurrency, cfg.ReminderConcurrency)
		require.InDelta(t, DefaultSendRatePerSecond, cfg.SendRatePerSecond, 0.001)
	})

	t.Run("normalizes exporter", func(t *testing.T) {
		setRequired(t)
		t.Setenv("OTEL_EXPORTER", " OTLP-GRPC ")

		cfg, err := Load()
		require.NoError(t, err)
		require.Equal(t, ExporterOTLPGRPC, cfg.OTelExporter)
	})

	t.Run("rejects unknown exporter", func(t *testing.T) {
		setRequired(t)
		t.Setenv("OTEL_EXPORTER", "zipkin")

		cfg, err := Load()
		require.Error(t, err)
		require.Nil(t, cfg)
		require.Contains(t, err.Error(), "OTEL_EXPORTER")
	})

	t.Run("reports every missing required value", func(t *testing.T) {
		t.Setenv("TELEGRAM_BOT_TOKEN", "")
		t.Setenv("DATABASE_URL", "")

		cfg, err := Load()
		require.Error(t, err)
		require.Nil(t, cfg)
		require.Contains(t, err.Error(), "TELEGRAM_BOT_TOKEN is required")
		require.Contains(t, err.Error(), "DATABASE_URL is required")
	})
}

func TestLocation(t *testing.T) {
	t.Parallel()

	cfg := &Config{ReminderTimezone: "Asia/Colombo"}
	require.Equal(t, "Asia/Colombo", cfg.Location().String())

	cfg = &Config{ReminderTimezone: "Nowhere/Land"}
	require.Equal(t, time.UTC, cfg.Location())
}
