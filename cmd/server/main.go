package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gaslink/backend-go/internal/api"
	"github.com/gaslink/backend-go/internal/cache"
	"github.com/gaslink/backend-go/internal/config"
	"github.com/gaslink/backend-go/internal/jobs"
	"github.com/gaslink/backend-go/internal/repository/postgres"
	"github.com/gaslink/backend-go/internal/scheduler"
	"github.com/gaslink/backend-go/internal/service"
	"github.com/gaslink/backend-go/internal/storage"
	"github.com/gaslink/backend-go/pkg/logger"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger.SetLevel(cfg.Server.Mode)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
		logger.UseJSON()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	repo := postgres.NewInventoryRepository(db)

	summaryCache, err := cache.NewSummaryCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Summary cache unavailable, continuing without it")
		summaryCache = cache.NewNoopSummaryCache()
	}

	backups, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize backup storage")
	}

	// Initialize services
	engine := service.NewEngine(repo, summaryCache, backups, cfg.Inventory, cfg.Storage.BackupPrefix)
	tracker := jobs.NewTracker(postgres.NewJobRunRepository(db))
	location := cfg.Inventory.Location()

	var sched *scheduler.Scheduler
	if cfg.Inventory.SchedulerEnabled {
		sched = scheduler.New(repo, tracker, location, cfg.Inventory.DistributorConcurrency)
		if err := scheduler.RegisterInventoryJobs(sched, engine, cfg.Inventory); err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to register scheduled jobs")
		}
		sched.Start(ctx)
		defer sched.Stop()
	}

	// Initialize HTTP server
	router := api.NewRouter(&api.Services{
		Engine:    engine,
		Tracker:   tracker,
		Scheduler: sched,
		Location:  location,
	}, cfg.Server.AllowedOrigins)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Str("timezone", location.String()).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Log.Info().Msg("Shutting down server...")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error().Err(err).Msg("Server forced to shutdown")
		os.Exit(1)
	}

	logger.Log.Info().Msg("Server exiting")
}
