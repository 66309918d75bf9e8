// QuizLabs - Telegram quiz bot
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ashureev/quizlabs/internal/config"
	"github.com/ashureev/quizlabs/internal/feed"
	"github.com/ashureev/quizlabs/internal/game"
	"github.com/ashureev/quizlabs/internal/playlog"
	"github.com/ashureev/quizlabs/internal/store"
	"github.com/ashureev/quizlabs/internal/telegram"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	if cfg.Telegram.Token == "" {
		slog.Error("TELEGRAM_BOT_TOKEN environment variable is required")
		os.Exit(1)
	}

	dsn := cfg.DB.DSN
	if cfg.DB.Driver == string(store.DriverSQLite) && dsn == "" {
		dsn = cfg.DB.Path
	}
	repo, err := store.Open(context.Background(), store.Driver(cfg.DB.Driver), dsn)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	catalog, err := feed.Load(context.Background(), cfg.Game.QuizSource)
	if err != nil {
		slog.Error("Failed to load quiz catalog", "error", err, "source", cfg.Game.QuizSource)
		os.Exit(1)
	}

	plays, err := playlog.New(playlog.Config{
		Enabled:   cfg.PlayLog.Enabled,
		Path:      cfg.PlayLog.Path,
		QueueSize: cfg.PlayLog.QueueSize,
	}, logger)
	if err != nil {
		slog.Error("Failed to initialize play log", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := plays.Close(); closeErr != nil {
			slog.Error("Failed to close play log", "error", closeErr)
		}
	}()

	games := game.NewRegistry(catalog, game.Options{
		Results: repo,
		PlayLog: plays,
		Retry: game.RetryPolicy{
			MaxRetries: cfg.Retry.DatabaseMaxRetries,
			BaseDelay:  cfg.Retry.DatabaseRetryBaseDelay,
		},
		Logger: logger,
	})

	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		slog.Error("Failed to connect to Telegram", "error", err)
		os.Exit(1)
	}
	slog.Info("Authorized on account", "username", api.Self.UserName)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	game.StartTTLWorker(ctx, games, cfg.Game.TTL, cfg.Game.SweepInterval, nil)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := api.GetUpdatesChan(u)

	bot := telegram.NewBot(api, games, repo, cfg.Game.FeedbackDelay, logger)
	bot.Run(ctx, updates)

	api.StopReceivingUpdates()
	slog.Info("Bot stopped")
}
