package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gaslink/backend-go/internal/domain"
)

func (r *InventoryRepository) LowStockThresholds(ctx context.Context, distributorID int64) (map[int64]int, error) {
	query := `
		SELECT cylinder_type_id, low_stock_threshold
		FROM inventory_settings
		WHERE distributor_id = $1`

	rows, err := r.db.QueryContext(ctx, query, distributorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load thresholds: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]int)
	for rows.Next() {
		var typeID int64
		var threshold int
		if err := rows.Scan(&typeID, &threshold); err != nil {
			return nil, fmt.Errorf("failed to scan threshold: %w", err)
		}
		out[typeID] = threshold
	}
	return out, rows.Err()
}

func (r *InventoryRepository) HasPendingRequest(ctx context.Context, distributorID, cylinderTypeID int64, date time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM replenishment_requests
			WHERE distributor_id = $1 AND cylinder_type_id = $2
			  AND request_date = $3 AND status = $4
		)`

	var exists bool
	err := r.db.QueryRowContext(ctx, query, distributorID, cylinderTypeID, date, domain.ReplenishmentStatusPending).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check pending request: %w", err)
	}
	return exists, nil
}

func (r *InventoryRepository) CreateRequest(ctx context.Context, req *domain.ReplenishmentRequest) error {
	query := `
		INSERT INTO replenishment_requests (
			distributor_id, cylinder_type_id, request_date,
			requested_qty, current_stock, threshold, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		req.DistributorID, req.CylinderTypeID, req.RequestDate,
		req.RequestedQty, req.CurrentStock, req.Threshold, req.Status,
	).Scan(&req.ID, &req.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create replenishment request: %w", err)
	}
	return nil
}

func (r *InventoryRepository) ResolveCylinderTypeID(ctx context.Context, distributorID int64, code string) (int64, error) {
	query := `
		SELECT id FROM cylinder_types
		WHERE distributor_id = $1 AND LOWER(code) = LOWER($2) AND deleted_at IS NULL`

	var id int64
	err := r.db.QueryRowContext(ctx, query, distributorID, strings.TrimSpace(code)).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("cylinder type %q: %w", code, domain.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to resolve cylinder type: %w", err)
	}
	return id, nil
}

func (r *InventoryRepository) UpsertCorpExchanges(ctx context.Context, exchanges []domain.CorpExchange) (int, error) {
	if len(exchanges) == 0 {
		return 0, nil
	}

	written := 0
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO corp_exchanges (
				distributor_id, cylinder_type_id, exchange_date, reference,
				received_fulls, sent_fulls, sent_empties, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
			ON CONFLICT (distributor_id, cylinder_type_id, exchange_date, reference)
			DO UPDATE SET
				received_fulls = EXCLUDED.received_fulls,
				sent_fulls = EXCLUDED.sent_fulls,
				sent_empties = EXCLUDED.sent_empties,
				updated_at = NOW()`

		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, ex := range exchanges {
			if _, err := stmt.ExecContext(ctx,
				ex.DistributorID, ex.CylinderTypeID, ex.ExchangeDate, ex.Reference,
				ex.ReceivedFulls, ex.SentFulls, ex.SentEmpties,
			); err != nil {
				return fmt.Errorf("failed to upsert corp exchange %s: %w", ex.Reference, err)
			}
			written++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}
