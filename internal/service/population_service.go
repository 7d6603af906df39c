package service

import (
	"context"
	"fmt"
	"time"

	"github.com/gaslink/backend-go/internal/cache"
	"github.com/gaslink/backend-go/internal/domain"
	"github.com/gaslink/backend-go/internal/inventory"
	"github.com/gaslink/backend-go/internal/repository"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// PopulationService derives one day's summary rows for a distributor.
type PopulationService struct {
	catalog   repository.CatalogRepository
	summaries repository.SummaryRepository
	cache     cache.SummaryCache
	calc      *inventory.BalanceCalculator
}

func NewPopulationService(catalog repository.CatalogRepository, summaries repository.SummaryRepository, cacheImpl cache.SummaryCache) *PopulationService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopSummaryCache()
	}
	return &PopulationService{
		catalog:   catalog,
		summaries: summaries,
		cache:     cacheImpl,
		calc:      inventory.NewBalanceCalculator(),
	}
}

// Populate computes and upserts the summary of every active cylinder type for
// date. A failing type does not stop the others; the result reports success
// only when every type was written. The returned error is reserved for
// failures that prevent the run from starting at all.
func (s *PopulationService) Populate(ctx context.Context, distributorID int64, date time.Time) (*domain.PopulationResult, error) {
	date = inventory.DateOnly(date)
	result := &domain.PopulationResult{
		DistributorID: distributorID,
		Date:          inventory.FormatDate(date),
		Types:         make([]domain.TypePopulation, 0),
	}

	logger := log.With().Int64("distributor_id", distributorID).Str("date", result.Date).Logger()

	types, err := s.catalog.ListActiveCylinderTypes(ctx, distributorID)
	if err != nil {
		result.Message = "failed to list cylinder types"
		return result, errors.Wrap(err, "list active cylinder types")
	}
	if len(types) == 0 {
		result.Success = true
		result.Message = "no active cylinder types"
		return result, nil
	}

	movements, err := s.catalog.AggregateMovements(ctx, distributorID, date)
	if err != nil {
		result.Message = "failed to aggregate movements"
		return result, errors.Wrap(err, "aggregate movements")
	}

	written := 0
	for _, ct := range types {
		tp := domain.TypePopulation{CylinderTypeID: ct.ID, Code: ct.Code}

		summary, err := s.populateType(ctx, distributorID, ct, date, movements[ct.ID])
		if err != nil {
			logger.Error().Err(err).Int64("cylinder_type_id", ct.ID).Msg("population: cylinder type failed")
			tp.Error = err.Error()
		} else {
			tp.Success = true
			tp.Summary = summary
			written++
		}
		result.Types = append(result.Types, tp)
	}

	if written > 0 {
		if err := s.cache.InvalidateDistributor(ctx, distributorID); err != nil {
			logger.Warn().Err(err).Msg("population: cache invalidate failed")
		}
	}

	result.Success = written == len(types)
	if result.Success {
		result.Message = fmt.Sprintf("populated %d cylinder types", written)
	} else {
		result.Message = fmt.Sprintf("populated %d of %d cylinder types", written, len(types))
	}

	logger.Debug().Bool("success", result.Success).Int("types", len(types)).Msg("population: done")
	return result, nil
}

func (s *PopulationService) populateType(ctx context.Context, distributorID int64, ct domain.CylinderType, date time.Time, m domain.Movements) (*domain.DailyInventorySummary, error) {
	prev, err := s.previousSummary(ctx, distributorID, ct.ID, date)
	if err != nil {
		return nil, err
	}

	summary := s.calc.BuildSummary(distributorID, ct.ID, date, inventory.OpeningFrom(prev), m)
	if summary.Status == domain.SummaryStatusPending {
		log.Warn().
			Int64("distributor_id", distributorID).
			Int64("cylinder_type_id", ct.ID).
			Str("date", inventory.FormatDate(date)).
			Int("opening_fulls", summary.OpeningFulls).
			Int("delivered", summary.DeliveredQty).
			Msg("population: negative closing clamped to zero")
	}

	if err := s.summaries.UpsertSummary(ctx, summary); err != nil {
		return nil, errors.Wrapf(err, "upsert summary for type %s", ct.Code)
	}
	return summary, nil
}

// previousSummary prefers the previous calendar day and falls back to the
// last known balance before date.
func (s *PopulationService) previousSummary(ctx context.Context, distributorID, cylinderTypeID int64, date time.Time) (*domain.DailyInventorySummary, error) {
	prev, err := s.summaries.GetSummary(ctx, distributorID, cylinderTypeID, date.AddDate(0, 0, -1))
	if err != nil {
		return nil, errors.Wrap(err, "get previous summary")
	}
	if prev != nil {
		return prev, nil
	}

	prev, err = s.summaries.GetLatestSummaryBefore(ctx, distributorID, cylinderTypeID, date)
	if err != nil {
		return nil, errors.Wrap(err, "get latest summary")
	}
	return prev, nil
}

// PopulateRange populates each date in [start, end] in order. With
// stopOnFailure the chain halts at the first failing date.
func (s *PopulationService) PopulateRange(ctx context.Context, distributorID int64, start, end time.Time, stopOnFailure bool) (done int, failed []string, err error) {
	for _, d := range inventory.DateRange(start, end) {
		if err := ctx.Err(); err != nil {
			return done, failed, err
		}

		res, err := s.Populate(ctx, distributorID, d)
		if err != nil || !res.Success {
			failed = append(failed, inventory.FormatDate(d))
			if stopOnFailure {
				return done, failed, nil
			}
			continue
		}
		done++
	}
	return done, failed, nil
}
