package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"path"
	"strconv"
	"time"

	"github.com/gaslink/backend-go/internal/domain"
	"github.com/gaslink/backend-go/internal/inventory"
	"github.com/gaslink/backend-go/internal/repository"
	"github.com/gaslink/backend-go/internal/storage"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type RebuildOptions struct {
	Confirm bool
	Until   *time.Time
}

// RebuildService wipes a distributor's summary history and derives it again
// from day one.
type RebuildService struct {
	catalog      repository.CatalogRepository
	summaries    repository.SummaryRepository
	population   *PopulationService
	backups      storage.ObjectStorage
	backupPrefix string
	location     *time.Location
}

func NewRebuildService(
	catalog repository.CatalogRepository,
	summaries repository.SummaryRepository,
	population *PopulationService,
	backups storage.ObjectStorage,
	backupPrefix string,
	location *time.Location,
) *RebuildService {
	if location == nil {
		location = time.UTC
	}
	if backupPrefix == "" {
		backupPrefix = "inventory-backups"
	}
	return &RebuildService{
		catalog:      catalog,
		summaries:    summaries,
		population:   population,
		backups:      backups,
		backupPrefix: backupPrefix,
		location:     location,
	}
}

// Rebuild deletes every summary row in the activity range and repopulates
// the range day by day. The range is capped at Until but never ends before
// the last stored row. Manual unaccounted fields in the range are lost. It
// stops at the first failing day since every later day depends on it.
func (s *RebuildService) Rebuild(ctx context.Context, distributorID int64, opts RebuildOptions) (*domain.RebuildResult, error) {
	if !opts.Confirm {
		return nil, errors.Wrap(domain.ErrConfirmationRequired, "rebuild deletes all summaries for the distributor")
	}

	result := &domain.RebuildResult{DistributorID: distributorID}
	logger := log.With().Int64("distributor_id", distributorID).Logger()

	first, last, err := s.catalog.ActivityRange(ctx, distributorID)
	if err != nil {
		return nil, errors.Wrap(err, "resolve activity range")
	}
	if first == nil || last == nil {
		result.Success = true
		result.Message = "no activity to rebuild"
		return result, nil
	}

	until := inventory.Today(s.location)
	if opts.Until != nil {
		until = inventory.DateOnly(*opts.Until)
	}

	from, to := inventory.DateOnly(*first), inventory.DateOnly(*last)
	if to.After(until) {
		to = until
	}

	// Rows past the cap would open on balances that no longer exist, so the
	// range always reaches the last stored row.
	lastRow, err := latestSummaryDate(ctx, s.summaries, distributorID, from)
	if err != nil {
		return nil, errors.Wrap(err, "resolve last summary date")
	}
	if lastRow != nil && lastRow.After(to) {
		logger.Info().
			Str("until", inventory.FormatDate(to)).
			Str("last_row", inventory.FormatDate(*lastRow)).
			Msg("rebuild: extending range to the last stored summary")
		to = *lastRow
	}

	if to.Before(from) {
		result.Success = true
		result.Message = "no activity before the requested end date"
		return result, nil
	}
	result.From = inventory.FormatDate(from)
	result.To = inventory.FormatDate(to)

	existing, err := s.summaries.ListSummaries(ctx, distributorID, from, to)
	if err != nil {
		return nil, errors.Wrap(err, "list summaries for backup")
	}

	if len(existing) > 0 && s.backups != nil {
		key, err := s.backup(ctx, distributorID, existing)
		if err != nil {
			return nil, errors.Wrap(err, "backup summaries before rebuild")
		}
		result.BackupKey = key
		logger.Info().Str("key", key).Int("rows", len(existing)).Msg("rebuild: summaries backed up")
	}

	deleted, err := s.summaries.DeleteSummaries(ctx, distributorID, from, to)
	if err != nil {
		return nil, errors.Wrap(err, "delete summaries")
	}
	result.DeletedRows = deleted
	logger.Warn().Int64("deleted", deleted).Str("from", result.From).Str("to", result.To).Msg("rebuild: summaries deleted")

	rebuilt, failed, err := s.population.PopulateRange(ctx, distributorID, from, to, true)
	result.RebuiltDays = rebuilt
	if err != nil {
		return result, errors.Wrap(err, "rebuild interrupted")
	}

	total := len(inventory.DateRange(from, to))
	if len(failed) > 0 {
		result.Message = fmt.Sprintf("rebuild stopped at %s after %d of %d days", failed[0], rebuilt, total)
		logger.Error().Str("date", failed[0]).Msg("rebuild: stopped at failing day")
		return result, nil
	}

	result.Success = true
	result.Message = fmt.Sprintf("rebuilt %d days from %s to %s", rebuilt, result.From, result.To)
	logger.Info().Int("days", rebuilt).Msg("rebuild: done")
	return result, nil
}

func (s *RebuildService) backup(ctx context.Context, distributorID int64, rows []domain.DailyInventorySummary) (string, error) {
	payload, err := EncodeSummariesCSV(rows)
	if err != nil {
		return "", err
	}

	key := path.Join(
		s.backupPrefix,
		fmt.Sprintf("distributor-%d", distributorID),
		fmt.Sprintf("summaries-%s.csv", time.Now().UTC().Format("20060102T150405Z")),
	)
	if err := s.backups.UploadObject(ctx, key, payload); err != nil {
		return "", err
	}
	return key, nil
}

var summaryCSVHeader = []string{
	"summary_date", "cylinder_type_id", "distributor_id",
	"opening_fulls", "opening_empties",
	"received_from_corp_qty", "sent_to_corp_qty", "empties_sent_to_corp_qty",
	"delivered_qty", "collected_empties_qty", "soft_blocked_qty", "cancelled_stock",
	"closing_fulls", "closing_empties", "status",
	"customer_unaccounted", "inventory_unaccounted",
	"unaccounted_reason", "responsible_party", "responsible_role",
}

// EncodeSummariesCSV renders rows in the backup layout, header first.
func EncodeSummariesCSV(rows []domain.DailyInventorySummary) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(summaryCSVHeader); err != nil {
		return nil, err
	}

	itoa := strconv.Itoa
	for _, r := range rows {
		record := []string{
			inventory.FormatDate(r.SummaryDate),
			strconv.FormatInt(r.CylinderTypeID, 10),
			strconv.FormatInt(r.DistributorID, 10),
			itoa(r.OpeningFulls), itoa(r.OpeningEmpties),
			itoa(r.ReceivedFromCorpQty), itoa(r.SentToCorpQty), itoa(r.EmptiesSentToCorpQty),
			itoa(r.DeliveredQty), itoa(r.CollectedEmptiesQty), itoa(r.SoftBlockedQty), itoa(r.CancelledStock),
			itoa(r.ClosingFulls), itoa(r.ClosingEmpties), string(r.Status),
			itoa(r.CustomerUnaccounted), itoa(r.InventoryUnaccounted),
			deref(r.UnaccountedReason), deref(r.ResponsibleParty), deref(r.ResponsibleRole),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	return buf.Bytes(), w.Error()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
