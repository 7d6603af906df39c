package service

import (
	"context"
	"fmt"
	"time"

	"github.com/gaslink/backend-go/internal/domain"
	"github.com/gaslink/backend-go/internal/inventory"
	"github.com/gaslink/backend-go/internal/repository"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type GapOptions struct {
	LookbackDays   int
	AlertThreshold int
	Reflow         bool
	Location       *time.Location
}

// GapService finds calendar dates without summary rows and backfills them.
type GapService struct {
	summaries  repository.SummaryRepository
	population *PopulationService
	opts       GapOptions
}

func NewGapService(summaries repository.SummaryRepository, population *PopulationService, opts GapOptions) *GapService {
	if opts.LookbackDays <= 0 {
		opts.LookbackDays = 30
	}
	if opts.AlertThreshold <= 0 {
		opts.AlertThreshold = 7
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &GapService{summaries: summaries, population: population, opts: opts}
}

// Detect reports gaps in [today-lookbackDays, today]. A non-positive lookback
// uses the configured default.
func (s *GapService) Detect(ctx context.Context, distributorID int64, lookbackDays int) (*domain.GapReport, error) {
	if lookbackDays < 0 {
		return nil, errors.Wrapf(domain.ErrInvalidInput, "lookback days must not be negative, got %d", lookbackDays)
	}
	if lookbackDays == 0 {
		lookbackDays = s.opts.LookbackDays
	}

	today := inventory.Today(s.opts.Location)
	return s.DetectInRange(ctx, distributorID, today.AddDate(0, 0, -lookbackDays), today)
}

// DetectInRange reports gaps in [start, end]. A date counts as present when
// any cylinder type has a row for it.
func (s *GapService) DetectInRange(ctx context.Context, distributorID int64, start, end time.Time) (*domain.GapReport, error) {
	start, end = inventory.DateOnly(start), inventory.DateOnly(end)
	if end.Before(start) {
		return nil, errors.Wrapf(domain.ErrInvalidInput, "end %s is before start %s", inventory.FormatDate(end), inventory.FormatDate(start))
	}

	present, err := s.summaries.ListSummaryDates(ctx, distributorID, start, end)
	if err != nil {
		return nil, errors.Wrap(err, "list summary dates")
	}

	missing := inventory.MissingDates(start, end, present)
	report := &domain.GapReport{
		DistributorID: distributorID,
		From:          inventory.FormatDate(start),
		To:            inventory.FormatDate(end),
		MissingDates:  inventory.FormatDates(missing),
		MissingCount:  len(missing),
		LargestGap:    inventory.LargestContiguousRun(missing),
	}
	report.Alert = report.LargestGap > s.opts.AlertThreshold

	if report.Alert {
		log.Warn().
			Int64("distributor_id", distributorID).
			Int("largest_gap", report.LargestGap).
			Int("threshold", s.opts.AlertThreshold).
			Msg("gap detection: largest gap exceeds alert threshold")
	}

	return report, nil
}

// Recover backfills every missing date in [start, end] oldest first. Failures
// are recorded and the chain continues. With reflow enabled, dates that
// already had rows after the earliest backfilled date are repopulated too,
// including rows past end, so that they open on the recovered balance. A date
// only counts as filled when at least one cylinder type row was written.
func (s *GapService) Recover(ctx context.Context, distributorID int64, start, end time.Time) (*domain.RecoveryResult, error) {
	report, err := s.DetectInRange(ctx, distributorID, start, end)
	if err != nil {
		return nil, err
	}

	result := &domain.RecoveryResult{DistributorID: distributorID}
	if report.MissingCount == 0 {
		result.Success = true
		result.Message = "no missing dates"
		return result, nil
	}

	missing := make(map[string]struct{}, len(report.MissingDates))
	for _, d := range report.MissingDates {
		missing[d] = struct{}{}
	}

	earliest, err := inventory.ParseDate(report.MissingDates[0])
	if err != nil {
		return nil, errors.Wrap(err, "parse earliest missing date")
	}

	logger := log.With().Int64("distributor_id", distributorID).Logger()
	logger.Info().Int("missing", report.MissingCount).Str("from", report.MissingDates[0]).Msg("gap recovery: starting")

	dates := inventory.DateRange(earliest, end)
	if s.opts.Reflow {
		tail, err := s.summaries.ListSummaryDates(ctx, distributorID, end.AddDate(0, 0, 1), inventory.MaxDate)
		if err != nil {
			return nil, errors.Wrap(err, "list summary dates after range")
		}
		dates = append(dates, tail...)
	}

	noTypes := false
	for _, d := range dates {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		date := inventory.FormatDate(d)
		_, isMissing := missing[date]
		if !isMissing && !s.opts.Reflow {
			continue
		}

		res, err := s.population.Populate(ctx, distributorID, d)
		if err != nil || !res.Success {
			logger.Error().Err(err).Str("date", date).Msg("gap recovery: population failed")
			result.FailedDates = append(result.FailedDates, date)
			continue
		}
		if len(res.Types) == 0 {
			noTypes = true
			result.FailedDates = append(result.FailedDates, date)
			continue
		}

		if isMissing {
			result.FilledDates++
		} else {
			result.ReflowedDates++
		}
	}

	result.Success = len(result.FailedDates) == 0
	result.Message = fmt.Sprintf("filled %d of %d missing dates", result.FilledDates, report.MissingCount)
	if noTypes {
		result.Message += ", no active cylinder types"
	}
	if result.ReflowedDates > 0 {
		result.Message += fmt.Sprintf(", reflowed %d", result.ReflowedDates)
	}

	logger.Info().
		Int("filled", result.FilledDates).
		Int("reflowed", result.ReflowedDates).
		Int("failed", len(result.FailedDates)).
		Msg("gap recovery: done")

	return result, nil
}

// RecoverLookback runs Recover over the detection window ending today.
func (s *GapService) RecoverLookback(ctx context.Context, distributorID int64, lookbackDays int) (*domain.RecoveryResult, error) {
	if lookbackDays <= 0 {
		lookbackDays = s.opts.LookbackDays
	}
	today := inventory.Today(s.opts.Location)
	return s.Recover(ctx, distributorID, today.AddDate(0, 0, -lookbackDays), today)
}

// latestSummaryDate returns the last date on or after from that has a summary
// row, or nil when there is none.
func latestSummaryDate(ctx context.Context, summaries repository.SummaryRepository, distributorID int64, from time.Time) (*time.Time, error) {
	dates, err := summaries.ListSummaryDates(ctx, distributorID, from, inventory.MaxDate)
	if err != nil {
		return nil, err
	}
	if len(dates) == 0 {
		return nil, nil
	}
	last := inventory.DateOnly(dates[len(dates)-1])
	return &last, nil
}
