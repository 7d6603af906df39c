package service

import (
	"context"
	"time"

	"github.com/gaslink/backend-go/internal/cache"
	"github.com/gaslink/backend-go/internal/domain"
	"github.com/gaslink/backend-go/internal/inventory"
	"github.com/gaslink/backend-go/internal/repository"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// SummaryService is the cached read path for summary rows.
type SummaryService struct {
	repo  repository.SummaryRepository
	cache cache.SummaryCache
}

func NewSummaryService(repo repository.SummaryRepository, cacheImpl cache.SummaryCache) *SummaryService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopSummaryCache()
	}
	return &SummaryService{repo: repo, cache: cacheImpl}
}

func (s *SummaryService) List(ctx context.Context, distributorID int64, from, to time.Time) ([]domain.DailyInventorySummary, error) {
	from, to = inventory.DateOnly(from), inventory.DateOnly(to)
	if to.Before(from) {
		return nil, errors.Wrapf(domain.ErrInvalidInput, "end %s is before start %s", inventory.FormatDate(to), inventory.FormatDate(from))
	}
	fromKey, toKey := inventory.FormatDate(from), inventory.FormatDate(to)

	if rows, ok, err := s.cache.GetSummaries(ctx, distributorID, fromKey, toKey); err == nil && ok {
		return rows, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("summaries: cache get failed")
	}

	rows, err := s.repo.ListSummaries(ctx, distributorID, from, to)
	if err != nil {
		return nil, errors.Wrap(err, "list summaries")
	}
	if rows == nil {
		rows = make([]domain.DailyInventorySummary, 0)
	}

	if err := s.cache.SetSummaries(ctx, distributorID, fromKey, toKey, rows); err != nil {
		log.Warn().Err(err).Msg("summaries: cache set failed")
	}

	return rows, nil
}
