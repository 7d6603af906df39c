package service

import (
	"github.com/gaslink/backend-go/internal/cache"
	"github.com/gaslink/backend-go/internal/config"
	"github.com/gaslink/backend-go/internal/repository"
	"github.com/gaslink/backend-go/internal/storage"
)

// Engine bundles the inventory services over one repository.
type Engine struct {
	Summaries   *SummaryService
	Population  *PopulationService
	Gaps        *GapService
	Rebuild     *RebuildService
	LowStock    *LowStockMonitor
	Continuity  *ContinuityService
	Unaccounted *UnaccountedService
}

func NewEngine(repo repository.InventoryRepository, cacheImpl cache.SummaryCache, backups storage.ObjectStorage, cfg config.InventoryConfig, backupPrefix string) *Engine {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopSummaryCache()
	}
	loc := cfg.Location()

	population := NewPopulationService(repo, repo, cacheImpl)
	return &Engine{
		Summaries:  NewSummaryService(repo, cacheImpl),
		Population: population,
		Gaps: NewGapService(repo, population, GapOptions{
			LookbackDays:   cfg.GapLookbackDays,
			AlertThreshold: cfg.GapAlertThresholdDays,
			Reflow:         cfg.ReflowAfterRecovery,
			Location:       loc,
		}),
		Rebuild:     NewRebuildService(repo, repo, population, backups, backupPrefix, loc),
		LowStock:    NewLowStockMonitor(repo, repo, repo, cfg.DefaultLowStockLevel),
		Continuity:  NewContinuityService(repo, population),
		Unaccounted: NewUnaccountedService(repo, population, cacheImpl),
	}
}
