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

// ContinuityService audits the carry-forward chain and repairs it.
type ContinuityService struct {
	summaries  repository.SummaryRepository
	population *PopulationService
}

func NewContinuityService(summaries repository.SummaryRepository, population *PopulationService) *ContinuityService {
	return &ContinuityService{summaries: summaries, population: population}
}

// Check lists every continuity issue dated within [from, to]. The row before
// from is read too so the first day's opening is verified.
func (s *ContinuityService) Check(ctx context.Context, distributorID int64, from, to time.Time) (*domain.ContinuityReport, error) {
	from, to = inventory.DateOnly(from), inventory.DateOnly(to)
	if to.Before(from) {
		return nil, errors.Wrapf(domain.ErrInvalidInput, "end %s is before start %s", inventory.FormatDate(to), inventory.FormatDate(from))
	}

	rows, err := s.summaries.ListSummaries(ctx, distributorID, from.AddDate(0, 0, -1), to)
	if err != nil {
		return nil, errors.Wrap(err, "list summaries")
	}

	report := &domain.ContinuityReport{
		DistributorID: distributorID,
		From:          inventory.FormatDate(from),
		To:            inventory.FormatDate(to),
		Issues:        make([]domain.ContinuityIssue, 0),
	}
	for _, r := range rows {
		if !r.SummaryDate.Before(from) {
			report.RowsChecked++
		}
	}

	for _, issue := range inventory.FindContinuityIssues(rows) {
		if issue.Date < report.From {
			continue
		}
		report.Issues = append(report.Issues, issue)
	}

	if !report.Consistent() {
		log.Warn().Int64("distributor_id", distributorID).Int("issues", len(report.Issues)).Msg("continuity: issues found")
	}
	return report, nil
}

// Reconcile repopulates every date from the earliest issue through to, in
// order. Failures are recorded and the chain continues.
func (s *ContinuityService) Reconcile(ctx context.Context, distributorID int64, from, to time.Time) (*domain.ReconcileResult, error) {
	report, err := s.Check(ctx, distributorID, from, to)
	if err != nil {
		return nil, err
	}

	result := &domain.ReconcileResult{DistributorID: distributorID}
	start, ok := inventory.EarliestIssueDate(report.Issues)
	if !ok {
		result.Success = true
		result.Message = "summaries are consistent"
		return result, nil
	}
	result.StartedFrom = inventory.FormatDate(start)

	done, failed, err := s.population.PopulateRange(ctx, distributorID, start, inventory.DateOnly(to), false)
	result.RepopulatedDays = done
	result.FailedDates = failed
	if err != nil {
		return result, errors.Wrap(err, "reconcile interrupted")
	}

	result.Success = len(failed) == 0
	result.Message = fmt.Sprintf("repopulated %d days from %s", done, result.StartedFrom)
	log.Info().Int64("distributor_id", distributorID).Str("from", result.StartedFrom).Int("days", done).Msg("continuity: reconciled")
	return result, nil
}
