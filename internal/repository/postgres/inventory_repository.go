// backend-go/internal/repository/postgres/inventory_repository.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gaslink/backend-go/internal/domain"
	"github.com/gaslink/backend-go/internal/repository"
	"github.com/jmoiron/sqlx"
)

// InventoryRepository implements the engine repositories on postgres.
type InventoryRepository struct {
	db *DB
}

func NewInventoryRepository(db *DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

var _ repository.InventoryRepository = (*InventoryRepository)(nil)

const summaryColumns = `
	id, summary_date, cylinder_type_id, distributor_id,
	opening_fulls, opening_empties,
	received_from_corp_qty, sent_to_corp_qty, empties_sent_to_corp_qty,
	delivered_qty, collected_empties_qty, soft_blocked_qty, cancelled_stock,
	closing_fulls, closing_empties, status,
	customer_unaccounted, inventory_unaccounted,
	unaccounted_reason, responsible_party, responsible_role,
	created_at, updated_at`

func (r *InventoryRepository) GetSummary(ctx context.Context, distributorID, cylinderTypeID int64, date time.Time) (*domain.DailyInventorySummary, error) {
	query := `SELECT` + summaryColumns + `
		FROM daily_inventory_summaries
		WHERE distributor_id = $1 AND cylinder_type_id = $2 AND summary_date = $3`

	var row domain.DailyInventorySummary
	err := sqlx.GetContext(ctx, r.db, &row, query, distributorID, cylinderTypeID, date)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get summary: %w", err)
	}
	return &row, nil
}

func (r *InventoryRepository) GetLatestSummaryBefore(ctx context.Context, distributorID, cylinderTypeID int64, date time.Time) (*domain.DailyInventorySummary, error) {
	query := `SELECT` + summaryColumns + `
		FROM daily_inventory_summaries
		WHERE distributor_id = $1 AND cylinder_type_id = $2 AND summary_date < $3
		ORDER BY summary_date DESC
		LIMIT 1`

	var row domain.DailyInventorySummary
	err := sqlx.GetContext(ctx, r.db, &row, query, distributorID, cylinderTypeID, date)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest summary: %w", err)
	}
	return &row, nil
}

func (r *InventoryRepository) ListSummaries(ctx context.Context, distributorID int64, from, to time.Time) ([]domain.DailyInventorySummary, error) {
	query := `SELECT` + summaryColumns + `
		FROM daily_inventory_summaries
		WHERE distributor_id = $1 AND summary_date BETWEEN $2 AND $3
		ORDER BY summary_date, cylinder_type_id`

	var rows []domain.DailyInventorySummary
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, distributorID, from, to); err != nil {
		return nil, fmt.Errorf("failed to list summaries: %w", err)
	}
	return rows, nil
}

func (r *InventoryRepository) ListSummaryDates(ctx context.Context, distributorID int64, from, to time.Time) ([]time.Time, error) {
	query := `
		SELECT DISTINCT summary_date
		FROM daily_inventory_summaries
		WHERE distributor_id = $1 AND summary_date BETWEEN $2 AND $3
		ORDER BY summary_date`

	var dates []time.Time
	if err := sqlx.SelectContext(ctx, r.db, &dates, query, distributorID, from, to); err != nil {
		return nil, fmt.Errorf("failed to list summary dates: %w", err)
	}
	return dates, nil
}

const upsertSummaryQuery = `
	INSERT INTO daily_inventory_summaries (
		summary_date, cylinder_type_id, distributor_id,
		opening_fulls, opening_empties,
		received_from_corp_qty, sent_to_corp_qty, empties_sent_to_corp_qty,
		delivered_qty, collected_empties_qty, soft_blocked_qty, cancelled_stock,
		closing_fulls, closing_empties, status,
		created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW(), NOW())
	ON CONFLICT (summary_date, cylinder_type_id, distributor_id)
	DO UPDATE SET
		opening_fulls = EXCLUDED.opening_fulls,
		opening_empties = EXCLUDED.opening_empties,
		received_from_corp_qty = EXCLUDED.received_from_corp_qty,
		sent_to_corp_qty = EXCLUDED.sent_to_corp_qty,
		empties_sent_to_corp_qty = EXCLUDED.empties_sent_to_corp_qty,
		delivered_qty = EXCLUDED.delivered_qty,
		collected_empties_qty = EXCLUDED.collected_empties_qty,
		soft_blocked_qty = EXCLUDED.soft_blocked_qty,
		cancelled_stock = EXCLUDED.cancelled_stock,
		closing_fulls = EXCLUDED.closing_fulls,
		closing_empties = EXCLUDED.closing_empties,
		status = EXCLUDED.status,
		updated_at = NOW()
	RETURNING id, customer_unaccounted, inventory_unaccounted,
		unaccounted_reason, responsible_party, responsible_role,
		created_at, updated_at
`

// UpsertSummary writes the derived columns. On conflict the manual
// unaccounted columns are left untouched and read back into summary.
func (r *InventoryRepository) UpsertSummary(ctx context.Context, s *domain.DailyInventorySummary) error {
	err := r.db.QueryRowContext(ctx, upsertSummaryQuery,
		s.SummaryDate, s.CylinderTypeID, s.DistributorID,
		s.OpeningFulls, s.OpeningEmpties,
		s.ReceivedFromCorpQty, s.SentToCorpQty, s.EmptiesSentToCorpQty,
		s.DeliveredQty, s.CollectedEmptiesQty, s.SoftBlockedQty, s.CancelledStock,
		s.ClosingFulls, s.ClosingEmpties, s.Status,
	).Scan(
		&s.ID, &s.CustomerUnaccounted, &s.InventoryUnaccounted,
		&s.UnaccountedReason, &s.ResponsibleParty, &s.ResponsibleRole,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert summary: %w", err)
	}
	return nil
}

func (r *InventoryRepository) DeleteSummaries(ctx context.Context, distributorID int64, from, to time.Time) (int64, error) {
	query := `
		DELETE FROM daily_inventory_summaries
		WHERE distributor_id = $1 AND summary_date BETWEEN $2 AND $3`

	res, err := r.db.ExecContext(ctx, query, distributorID, from, to)
	if err != nil {
		return 0, fmt.Errorf("failed to delete summaries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted summaries: %w", err)
	}
	return n, nil
}

var unaccountedColumn = map[domain.UnaccountedKind]string{
	domain.UnaccountedCustomer:  "customer_unaccounted",
	domain.UnaccountedInventory: "inventory_unaccounted",
}

func (r *InventoryRepository) RecordUnaccounted(ctx context.Context, e *domain.UnaccountedEntry) error {
	column, ok := unaccountedColumn[e.Kind]
	if !ok {
		return fmt.Errorf("unaccounted kind %q: %w", e.Kind, domain.ErrInvalidInput)
	}

	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		// 1. Add to the manual column of the summary row
		update := fmt.Sprintf(`
			UPDATE daily_inventory_summaries
			SET %[1]s = %[1]s + $1,
				unaccounted_reason = $2,
				responsible_party = $3,
				responsible_role = $4,
				updated_at = NOW()
			WHERE distributor_id = $5 AND cylinder_type_id = $6 AND summary_date = $7`, column)

		res, err := tx.ExecContext(ctx, update,
			e.Quantity, e.Reason, e.ResponsibleParty, e.ResponsibleRole,
			e.DistributorID, e.CylinderTypeID, e.EntryDate,
		)
		if err != nil {
			return fmt.Errorf("failed to update unaccounted quantity: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("failed to check updated summary: %w", err)
		} else if n == 0 {
			return fmt.Errorf("summary for %s: %w", e.EntryDate.Format(domain.DateLayout), domain.ErrNotFound)
		}

		// 2. Append to the audit log
		insert := `
			INSERT INTO unaccounted_entries (
				distributor_id, cylinder_type_id, entry_date, kind, quantity,
				reason, responsible_party, responsible_role, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
			RETURNING id, created_at`

		err = tx.QueryRowContext(ctx, insert,
			e.DistributorID, e.CylinderTypeID, e.EntryDate, e.Kind, e.Quantity,
			e.Reason, e.ResponsibleParty, e.ResponsibleRole,
		).Scan(&e.ID, &e.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert unaccounted entry: %w", err)
		}
		return nil
	})
}
