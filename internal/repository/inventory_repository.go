// backend-go/internal/repository/inventory_repository.go
package repository

import (
	"context"
	"time"

	"github.com/gaslink/backend-go/internal/domain"
)

// SummaryRepository stores daily inventory summary rows. Lookups of a single
// row return (nil, nil) when the row does not exist.
type SummaryRepository interface {
	GetSummary(ctx context.Context, distributorID, cylinderTypeID int64, date time.Time) (*domain.DailyInventorySummary, error)
	GetLatestSummaryBefore(ctx context.Context, distributorID, cylinderTypeID int64, date time.Time) (*domain.DailyInventorySummary, error)
	ListSummaries(ctx context.Context, distributorID int64, from, to time.Time) ([]domain.DailyInventorySummary, error)
	ListSummaryDates(ctx context.Context, distributorID int64, from, to time.Time) ([]time.Time, error)

	// UpsertSummary inserts the row or overwrites only its derived fields.
	UpsertSummary(ctx context.Context, summary *domain.DailyInventorySummary) error
	DeleteSummaries(ctx context.Context, distributorID int64, from, to time.Time) (int64, error)

	// RecordUnaccounted adds the entry quantity to the row's manual field and
	// appends the entry to the audit log. The row must already exist.
	RecordUnaccounted(ctx context.Context, entry *domain.UnaccountedEntry) error
}

// CatalogRepository reads the tenant catalog and the operational tables the
// engine aggregates from.
type CatalogRepository interface {
	ListActiveDistributors(ctx context.Context) ([]domain.Distributor, error)
	ListActiveCylinderTypes(ctx context.Context, distributorID int64) ([]domain.CylinderType, error)

	// AggregateMovements sums order items and corporation exchanges for one
	// day, keyed by cylinder type id.
	AggregateMovements(ctx context.Context, distributorID int64, date time.Time) (map[int64]domain.Movements, error)

	// ActivityRange is the first and last date with a summary row, an order
	// or a corporation exchange. Both are nil when there is no activity.
	ActivityRange(ctx context.Context, distributorID int64) (first, last *time.Time, err error)
}

type ReplenishmentRepository interface {
	LowStockThresholds(ctx context.Context, distributorID int64) (map[int64]int, error)
	HasPendingRequest(ctx context.Context, distributorID, cylinderTypeID int64, date time.Time) (bool, error)
	CreateRequest(ctx context.Context, req *domain.ReplenishmentRequest) error
}

type CorpExchangeRepository interface {
	ResolveCylinderTypeID(ctx context.Context, distributorID int64, code string) (int64, error)
	UpsertCorpExchanges(ctx context.Context, rows []domain.CorpExchange) (int, error)
}

// InventoryRepository is everything the engine needs from storage.
type InventoryRepository interface {
	SummaryRepository
	CatalogRepository
	ReplenishmentRepository
	CorpExchangeRepository
}

// JobRunRepository tracks executions of scheduled and CLI jobs.
type JobRunRepository interface {
	CreateJobRun(ctx context.Context, run *domain.JobRun) error
	CompleteJobRun(ctx context.Context, runID string, status domain.JobRunStatus, message string, completedAt time.Time) error
	ListJobRuns(ctx context.Context, jobName string, limit int) ([]domain.JobRun, error)
}
