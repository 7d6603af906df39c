package service

import (
	"context"
	"strings"

	"github.com/gaslink/backend-go/internal/cache"
	"github.com/gaslink/backend-go/internal/domain"
	"github.com/gaslink/backend-go/internal/inventory"
	"github.com/gaslink/backend-go/internal/repository"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// UnaccountedService records manual discrepancies against summary rows.
type UnaccountedService struct {
	summaries  repository.SummaryRepository
	population *PopulationService
	cache      cache.SummaryCache
}

func NewUnaccountedService(summaries repository.SummaryRepository, population *PopulationService, cacheImpl cache.SummaryCache) *UnaccountedService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopSummaryCache()
	}
	return &UnaccountedService{summaries: summaries, population: population, cache: cacheImpl}
}

func validateUnaccounted(entry *domain.UnaccountedEntry) error {
	switch {
	case entry.DistributorID <= 0 || entry.CylinderTypeID <= 0:
		return errors.Wrap(domain.ErrInvalidInput, "distributor and cylinder type are required")
	case entry.EntryDate.IsZero():
		return errors.Wrap(domain.ErrInvalidInput, "entry date is required")
	case !entry.Kind.Valid():
		return errors.Wrapf(domain.ErrInvalidInput, "kind must be customer or inventory, got %q", entry.Kind)
	case !entry.ResponsibleRole.Valid():
		return errors.Wrapf(domain.ErrInvalidInput, "responsible role must be driver or inventory_staff, got %q", entry.ResponsibleRole)
	case entry.Quantity <= 0:
		return errors.Wrapf(domain.ErrInvalidInput, "quantity must be positive, got %d", entry.Quantity)
	case strings.TrimSpace(entry.Reason) == "":
		return errors.Wrap(domain.ErrInvalidInput, "reason is required")
	}
	return nil
}

// Record adds entry to its summary row, populating the row first when the
// date has not been derived yet.
func (s *UnaccountedService) Record(ctx context.Context, entry *domain.UnaccountedEntry) (*domain.UnaccountedEntry, error) {
	if err := validateUnaccounted(entry); err != nil {
		return nil, err
	}
	entry.EntryDate = inventory.DateOnly(entry.EntryDate)
	entry.Reason = strings.TrimSpace(entry.Reason)
	entry.ResponsibleParty = strings.TrimSpace(entry.ResponsibleParty)

	row, err := s.summaries.GetSummary(ctx, entry.DistributorID, entry.CylinderTypeID, entry.EntryDate)
	if err != nil {
		return nil, errors.Wrap(err, "get summary")
	}
	if row == nil {
		res, err := s.population.Populate(ctx, entry.DistributorID, entry.EntryDate)
		if err != nil {
			return nil, errors.Wrap(err, "populate summary for unaccounted entry")
		}
		if !populated(res, entry.CylinderTypeID) {
			return nil, errors.Wrapf(domain.ErrNotFound, "no summary for cylinder type %d on %s", entry.CylinderTypeID, inventory.FormatDate(entry.EntryDate))
		}
	}

	if err := s.summaries.RecordUnaccounted(ctx, entry); err != nil {
		return nil, errors.Wrap(err, "record unaccounted entry")
	}

	if err := s.cache.InvalidateDistributor(ctx, entry.DistributorID); err != nil {
		log.Warn().Err(err).Msg("unaccounted: cache invalidate failed")
	}

	log.Info().
		Int64("distributor_id", entry.DistributorID).
		Int64("cylinder_type_id", entry.CylinderTypeID).
		Str("date", inventory.FormatDate(entry.EntryDate)).
		Str("kind", string(entry.Kind)).
		Int("quantity", entry.Quantity).
		Msg("unaccounted: entry recorded")

	return entry, nil
}

func populated(res *domain.PopulationResult, cylinderTypeID int64) bool {
	for _, tp := range res.Types {
		if tp.CylinderTypeID == cylinderTypeID {
			return tp.Success
		}
	}
	return false
}
