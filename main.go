// Package main is the entry point for the expense split Telegram bot.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"gitlab.com/yelinaung/split-bot/internal/bot"
	"gitlab.com/yelinaung/split-bot/internal/config"
	"gitlab.com/yelinaung/split-bot/internal/database"
	"gitlab.com/yelinaung/split-bot/internal/directory"
	"gitlab.com/yelinaung/split-bot/internal/ledger"
	"gitlab.com/yelinaung/split-bot/internal/logger"
	"gitlab.com/yelinaung/split-bot/internal/repository"
	"gitlab.com/yelinaung/split-bot/internal/telemetry"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logger.Log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the bot and the daily reminder scheduler",
		RunE:  runServe,
	}

	root := &cobra.Command{
		Use:           "split-bot",
		Short:         "Telegram bot for splitting shared expenses",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}
	root.AddCommand(
		serve,
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply database migrations and exit",
			RunE:  runMigrate,
		},
		&cobra.Command{
			Use:   "remind",
			Short: "Send one round of reminders for unpaid splits and exit",
			RunE:  runRemind,
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintln(cmd.OutOrStdout(), versionString())
			},
		},
	)
	return root
}

func versionString() string {
	return fmt.Sprintf("split-bot %s (commit: %s, built: %s)", version, commit, date)
}

// app holds the process-wide resources every command needs.
type app struct {
	cfg      *config.Config
	pool     *pgxpool.Pool
	metrics  *telemetry.Metrics
	shutdown telemetry.ShutdownFunc
}

// setup loads config, configures logging and telemetry, and connects to the
// database with migrations applied.
func setup(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Configure(cfg.LogLevel, cfg.LogFormat)
	logger.InitHashSalt()

	shutdown, err := telemetry.Setup(ctx, cfg.OTelExporter, version)
	if err != nil {
		return nil, fmt.Errorf("failed to set up telemetry: %w", err)
	}

	metrics, err := telemetry.NewMetrics()
	if err != nil {
		_ = shutdown(ctx)
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		_ = shutdown(ctx)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := database.RunMigrations(ctx, pool); err != nil {
		pool.Close()
		_ = shutdown(ctx)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Log.Info().Msg("Database initialized successfully")
	return &app{cfg: cfg, pool: pool, metrics: metrics, shutdown: shutdown}, nil
}

// close releases the database pool and flushes telemetry.
func (a *app) close() {
	a.pool.Close()
	if err := a.shutdown(context.Background()); err != nil && !errors.Is(err, context.Canceled) {
		logger.Log.Warn().Err(err).Msg("Telemetry shutdown failed")
	}
}

// newBot wires the repositories, directory and ledger into a Telegram bot.
func (a *app) newBot() (*bot.Bot, error) {
	dir := directory.New(repository.NewUserRepository(a.pool))
	l := ledger.New(
		repository.NewExpenseRepository(a.pool),
		repository.NewSplitRepository(a.pool),
		ledger.WithMetrics(a.metrics),
	)
	return bot.New(a.cfg, bot.Deps{Directory: dir, Ledger: l, Metrics: a.metrics})
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	telegramBot, err := a.newBot()
	if err != nil {
		return fmt.Errorf("failed to create bot: %w", err)
	}

	logger.Log.Info().Str("version", version).Msg("Starting split-bot")
	telegramBot.Start(ctx)
	logger.Log.Info().Msg("Shutting down...")
	return nil
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	a.close()
	return nil
}

func runRemind(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	telegramBot, err := a.newBot()
	if err != nil {
		return fmt.Errorf("failed to create bot: %w", err)
	}

	report, err := telegramBot.RunReminders(ctx)
	if err != nil {
		return fmt.Errorf("reminder run failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "pending=%d recipients=%d sent=%d failed=%d\n",
		report.Pending, report.Recipients, report.Sent, report.Failed)
	return nil
}
