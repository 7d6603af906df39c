package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gaslink/backend-go/internal/cache"
	"github.com/gaslink/backend-go/internal/config"
	"github.com/gaslink/backend-go/internal/jobs"
	"github.com/gaslink/backend-go/internal/repository/postgres"
	"github.com/gaslink/backend-go/internal/service"
	"github.com/gaslink/backend-go/internal/storage"
	"github.com/gaslink/backend-go/pkg/logger"
	"github.com/jmoiron/sqlx"
	"github.com/urfave/cli/v2"
)

type envKey struct{}

// env holds the connections shared by every command.
type env struct {
	cfg     *config.Config
	db      *postgres.DB
	repo    *postgres.InventoryRepository
	engine  *service.Engine
	tracker *jobs.Tracker
	backups storage.ObjectStorage
}

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "db-url",
		Usage:   "Database connection string (defaults to the DB_* settings)",
		EnvVars: []string{"DATABASE_URL"},
	}
}

func newDistributorFlag() *cli.Int64Flag {
	return &cli.Int64Flag{
		Name:     "distributor",
		Aliases:  []string{"d"},
		Usage:    "Distributor id",
		Required: true,
		EnvVars:  []string{"INVENTORY_DISTRIBUTOR_ID"},
	}
}

func openDB(c *cli.Context, cfg *config.Config) (*postgres.DB, error) {
	if url := c.String("db-url"); url != "" {
		db, err := sqlx.Connect(postgres.DriverPGX, url)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return postgres.Wrap(db), nil
	}
	return postgres.Open(&cfg.Database, postgres.DriverPGX)
}

// initEnv opens the database and builds the engine. It runs before every
// command that needs them.
func initEnv(c *cli.Context) error {
	cfg := config.Load()
	logger.SetLevel(c.String("log-level"))

	db, err := openDB(c, cfg)
	if err != nil {
		return err
	}

	backups, err := storage.New(c.Context, cfg.Storage)
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to initialize backup storage: %w", err)
	}

	summaryCache, err := cache.NewSummaryCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("summary cache unavailable, continuing without it")
		summaryCache = cache.NewNoopSummaryCache()
	}

	repo := postgres.NewInventoryRepository(db)
	e := &env{
		cfg:     cfg,
		db:      db,
		repo:    repo,
		engine:  service.NewEngine(repo, summaryCache, backups, cfg.Inventory, cfg.Storage.BackupPrefix),
		tracker: jobs.NewTracker(postgres.NewJobRunRepository(db)),
		backups: backups,
	}
	c.Context = context.WithValue(c.Context, envKey{}, e)
	return nil
}

func closeEnv(c *cli.Context) error {
	if e, ok := c.Context.Value(envKey{}).(*env); ok && e.db != nil {
		return e.db.Close()
	}
	return nil
}

func getEnv(c *cli.Context) *env {
	return c.Context.Value(envKey{}).(*env)
}

func main() {
	app := &cli.App{
		Name:  "inventory",
		Usage: "Operate the daily inventory continuity engine",
		Flags: []cli.Flag{
			newDBURLFlag(),
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Commands: []*cli.Command{
			populateCommand(),
			gapsCommand(),
			recoverCommand(),
			rebuildCommand(),
			checkCommand(),
			reconcileCommand(),
			lowStockCommand(),
			importCorpCommand(),
			runJobCommand(),
			jobRunsCommand(),
			backupsCommand(),
			migrateCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
