// QuizLabs - quiz game server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/quizlabs/internal/api"
	"github.com/ashureev/quizlabs/internal/config"
	"github.com/ashureev/quizlabs/internal/feed"
	"github.com/ashureev/quizlabs/internal/game"
	"github.com/ashureev/quizlabs/internal/grpcapi"
	"github.com/ashureev/quizlabs/internal/identity"
	"github.com/ashureev/quizlabs/internal/live"
	"github.com/ashureev/quizlabs/internal/middleware"
	"github.com/ashureev/quizlabs/internal/playlog"
	"github.com/ashureev/quizlabs/internal/quiz"
	"github.com/ashureev/quizlabs/internal/store"
	"github.com/ashureev/quizlabs/web"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
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

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment(), "db_driver", cfg.DB.Driver)

	// Initialize dependencies.
	repo, err := openStore(cfg)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	loadCatalog := func(ctx context.Context) (*quiz.Catalog, error) {
		return feed.Load(ctx, cfg.Game.QuizSource)
	}
	catalog, err := loadCatalog(context.Background())
	if err != nil {
		slog.Error("Failed to load quiz catalog", "error", err, "source", cfg.Game.QuizSource)
		os.Exit(1)
	}
	slog.Info("Quiz catalog loaded", "quizzes", catalog.Len(), "source", cfg.Game.QuizSource)

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

	if cfg.Identity.Secret == "" {
		slog.Warn("IDENTITY_SECRET not set, player cookies will not survive a restart")
	}
	signer, err := identity.NewSigner(cfg.Identity.Secret)
	if err != nil {
		slog.Error("Failed to initialize identity signer", "error", err)
		os.Exit(1)
	}

	// Initialize handlers.
	conns := live.NewConnManager()
	baseHandler := api.NewHandler(repo, games, cfg)
	quizHandler := api.NewQuizHandler(baseHandler, conns)
	adminHandler := api.NewAdminHandler(baseHandler, loadCatalog)
	healthHandler := api.NewHealthHandler(repo, games)
	wsHandler := live.NewHandler(repo, games, conns, cfg.Game.FeedbackDelay, cfg.FrontendURL, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(identity.Middleware(repo, signer, cfg.IsDevelopment()))

	// Public routes.
	healthHandler.RegisterHealth(r)
	quizHandler.RegisterRoutes(r)
	adminHandler.RegisterRoutes(r)

	// WebSocket endpoint.
	r.Get("/ws/play", wsHandler.ServeHTTP)

	// Serve embedded frontend (SPA catch-all).
	r.Handle("/*", web.SPAHandler())

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // WebSocket games outlive any write deadline
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start TTL worker.
	game.StartTTLWorker(ctx, games, cfg.Game.TTL, cfg.Game.SweepInterval, func(k game.Key) {
		conns.CloseKey(k, "game expired")
	})

	// Start gRPC catalog service (optional).
	var grpcApp *grpcapi.App
	if cfg.GRPCPort != "" {
		grpcApp = grpcapi.New(logger, games, cfg.GRPCPort)
		go func() {
			if err := grpcApp.Run(); err != nil {
				slog.Error("gRPC server failed", "error", err)
				os.Exit(1)
			}
		}()
	}

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	if grpcApp != nil {
		grpcApp.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}

func openStore(cfg *config.Config) (store.Repository, error) {
	dsn := cfg.DB.DSN
	if cfg.DB.Driver == string(store.DriverSQLite) && dsn == "" {
		dsn = cfg.DB.Path
	}
	return store.Open(context.Background(), store.Driver(cfg.DB.Driver), dsn)
}
