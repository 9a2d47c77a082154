package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-co-op/gocron/v2"
	_ "github.com/lib/pq"

	"github.com/scrimverse/tournament-engine/config"
	"github.com/scrimverse/tournament-engine/db"
	"github.com/scrimverse/tournament-engine/handlers"
	"github.com/scrimverse/tournament-engine/notify"
	"github.com/scrimverse/tournament-engine/repositories"
	api "github.com/scrimverse/tournament-engine/routes"
	"github.com/scrimverse/tournament-engine/services"
	"github.com/scrimverse/tournament-engine/storage"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		}
	}()
	logger.Info("database connection established")

	var uploader storage.FileUploader
	if cfg.R2AccountID != "" {
		uploader, err = storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Warn("R2 storage not configured, banner uploads disabled")
	}

	hub := notify.NewHub()
	go hub.Run()
	notifier := notify.NewHubNotifier(hub)
	logger.Info("websocket hub started")

	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	entryRepo := repositories.NewPostgresEntryRepository(dbConn)
	roundRepo := repositories.NewPostgresRoundRepository(dbConn)
	groupRepo := repositories.NewPostgresGroupRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	scoreRepo := repositories.NewPostgresScoreRepository(dbConn)
	standingRepo := repositories.NewPostgresStandingRepository(dbConn)
	statsRepo := repositories.NewPostgresStatsRepository(dbConn)

	locks := services.NewRoundLocks()
	entryProvider := services.NewRepoEntryProvider(entryRepo)
	qualificationService := services.NewQualificationService(groupRepo, matchRepo, scoreRepo)
	statsService := services.NewStatsService(dbConn, statsRepo, entryRepo, logger)
	scoreService := services.NewScoreService(
		dbConn, tournamentRepo, roundRepo, groupRepo, matchRepo,
		scoreRepo, standingRepo, notifier, locks, logger,
	)
	tournamentService := services.NewTournamentService(
		dbConn, tournamentRepo, roundRepo, groupRepo, matchRepo, entryRepo,
		entryProvider, qualificationService, statsService, notifier, uploader,
		locks, logger,
	)
	logger.Info("services initialized")

	// Date-driven registration window sweep.
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		logger.Error("failed to create scheduler", slog.Any("error", err))
		os.Exit(1)
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(cfg.StatusSweepInterval),
		gocron.NewTask(func() {
			if err := tournamentService.AutoUpdateTournamentStatusesByDates(context.Background()); err != nil {
				logger.Error("status sweep failed", slog.Any("error", err))
			}
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		logger.Error("failed to schedule status sweep", slog.Any("error", err))
		os.Exit(1)
	}
	scheduler.Start()
	defer func() {
		if err := scheduler.Shutdown(); err != nil {
			logger.Error("scheduler shutdown failed", slog.Any("error", err))
		}
	}()
	logger.Info("status sweep scheduled", slog.Duration("interval", cfg.StatusSweepInterval))

	tournamentHandler := handlers.NewTournamentHandler(tournamentService, logger)
	scoreHandler := handlers.NewScoreHandler(scoreService, logger)
	statsHandler := handlers.NewStatsHandler(statsService, logger)
	webSocketHandler := handlers.NewWebSocketHandler(hub, logger)

	router := chi.NewRouter()
	api.SetupRoutes(router, cfg.JWTSecretKey, tournamentHandler, scoreHandler, statsHandler, webSocketHandler)
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
}
