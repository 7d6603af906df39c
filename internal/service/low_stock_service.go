package service

import (
	"context"
	"time"

	"github.com/gaslink/backend-go/internal/domain"
	"github.com/gaslink/backend-go/internal/inventory"
	"github.com/gaslink/backend-go/internal/repository"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const defaultLowStockLevel = 10

// LowStockMonitor raises replenishment requests when yesterday closed below
// the tenant threshold.
type LowStockMonitor struct {
	catalog          repository.CatalogRepository
	summaries        repository.SummaryRepository
	replenishment    repository.ReplenishmentRepository
	defaultThreshold int
}

func NewLowStockMonitor(catalog repository.CatalogRepository, summaries repository.SummaryRepository, replenishment repository.ReplenishmentRepository, defaultThreshold int) *LowStockMonitor {
	if defaultThreshold <= 0 {
		defaultThreshold = defaultLowStockLevel
	}
	return &LowStockMonitor{
		catalog:          catalog,
		summaries:        summaries,
		replenishment:    replenishment,
		defaultThreshold: defaultThreshold,
	}
}

// Check compares the previous day's closing fulls of each active type against
// its threshold and creates at most one pending request per type and date.
func (m *LowStockMonitor) Check(ctx context.Context, distributorID int64, date time.Time) (*domain.LowStockResult, error) {
	date = inventory.DateOnly(date)
	result := &domain.LowStockResult{
		DistributorID: distributorID,
		Date:          inventory.FormatDate(date),
		Created:       make([]domain.LowStockAlert, 0),
		Skipped:       make([]domain.LowStockAlert, 0),
	}

	types, err := m.catalog.ListActiveCylinderTypes(ctx, distributorID)
	if err != nil {
		return nil, errors.Wrap(err, "list active cylinder types")
	}

	thresholds, err := m.replenishment.LowStockThresholds(ctx, distributorID)
	if err != nil {
		return nil, errors.Wrap(err, "load low stock thresholds")
	}

	yesterday := date.AddDate(0, 0, -1)
	for _, ct := range types {
		threshold, ok := thresholds[ct.ID]
		if !ok || threshold <= 0 {
			threshold = m.defaultThreshold
		}

		alert := domain.LowStockAlert{CylinderTypeID: ct.ID, Code: ct.Code, Threshold: threshold}

		prev, err := m.summaries.GetSummary(ctx, distributorID, ct.ID, yesterday)
		if err != nil {
			return nil, errors.Wrapf(err, "get summary for type %s", ct.Code)
		}
		if prev == nil {
			alert.Reason = "no summary for previous day"
			result.Skipped = append(result.Skipped, alert)
			continue
		}

		alert.CurrentStock = prev.ClosingFulls
		if alert.CurrentStock >= threshold {
			continue
		}

		pending, err := m.replenishment.HasPendingRequest(ctx, distributorID, ct.ID, date)
		if err != nil {
			return nil, errors.Wrapf(err, "check pending request for type %s", ct.Code)
		}
		if pending {
			alert.Reason = "pending request exists"
			result.Skipped = append(result.Skipped, alert)
			continue
		}

		alert.RequestedQty = threshold - alert.CurrentStock
		req := &domain.ReplenishmentRequest{
			DistributorID:  distributorID,
			CylinderTypeID: ct.ID,
			RequestDate:    date,
			RequestedQty:   alert.RequestedQty,
			CurrentStock:   alert.CurrentStock,
			Threshold:      threshold,
			Status:         domain.ReplenishmentStatusPending,
		}
		if err := m.replenishment.CreateRequest(ctx, req); err != nil {
			return nil, errors.Wrapf(err, "create replenishment request for type %s", ct.Code)
		}

		log.Info().
			Int64("distributor_id", distributorID).
			Int64("cylinder_type_id", ct.ID).
			Int("stock", alert.CurrentStock).
			Int("threshold", threshold).
			Int("requested", alert.RequestedQty).
			Msg("low stock: replenishment requested")
		result.Created = append(result.Created, alert)
	}

	return result, nil
}
