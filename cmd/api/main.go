package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gaslink/backend-go/internal/api/middleware"
	"github.com/gaslink/backend-go/internal/cache"
	"github.com/gaslink/backend-go/internal/config"
	"github.com/gaslink/backend-go/internal/drive"
	"github.com/gaslink/backend-go/internal/repository/postgres"
	"github.com/gaslink/backend-go/internal/service"
	"github.com/gaslink/backend-go/pkg/logger"
	"github.com/gorilla/mux"
)

// The drive ingest server imports corporation exchange sheets from Google
// Drive or direct uploads and optionally repopulates affected summaries.
func main() {
	cfg := config.Load()
	logger.SetLevel(cfg.Server.Mode)

	ctx := context.Background()

	// A missing credential only disables the Drive routes; uploads still work.
	var browser drive.FolderBrowser
	driveService, err := drive.NewService(ctx, cfg.Drive.CredentialsJSON)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Google Drive disabled")
	} else {
		browser = driveService
	}

	// Initialize Database
	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	repo := postgres.NewInventoryRepository(db)

	summaryCache, err := cache.NewSummaryCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Summary cache unavailable, continuing without it")
		summaryCache = cache.NewNoopSummaryCache()
	}
	population := service.NewPopulationService(repo, repo, summaryCache)

	var source drive.FileSource
	if driveService != nil {
		source = driveService
	}
	ingestService := drive.NewIngestService(source, repo)

	r := mux.NewRouter()
	r.Use(middleware.HTTPLogger)

	driveHandler := drive.NewHandler(browser, ingestService, population, cfg.Inventory.Location())
	driveHandler.RegisterRoutes(r)

	// Health check endpoint
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods(http.MethodGet)

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	logger.Log.Info().Str("addr", addr).Bool("drive", browser != nil).Msg("Drive ingest server starting")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Log.Fatal().Err(err).Msg("Drive ingest server stopped")
	}
}
