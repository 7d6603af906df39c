package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/gaslink/backend-go/internal/domain"
	"github.com/jmoiron/sqlx"
)

func (r *InventoryRepository) ListActiveDistributors(ctx context.Context) ([]domain.Distributor, error) {
	query := `
		SELECT id, name, code, timezone, active, created_at
		FROM distributors
		WHERE active = TRUE
		ORDER BY id`

	var out []domain.Distributor
	if err := sqlx.SelectContext(ctx, r.db, &out, query); err != nil {
		return nil, fmt.Errorf("failed to list distributors: %w", err)
	}
	return out, nil
}

func (r *InventoryRepository) ListActiveCylinderTypes(ctx context.Context, distributorID int64) ([]domain.CylinderType, error) {
	query := `
		SELECT id, distributor_id, code, name, capacity_kg, active, deleted_at
		FROM cylinder_types
		WHERE distributor_id = $1 AND active = TRUE AND deleted_at IS NULL
		ORDER BY id`

	var out []domain.CylinderType
	if err := sqlx.SelectContext(ctx, r.db, &out, query, distributorID); err != nil {
		return nil, fmt.Errorf("failed to list cylinder types: %w", err)
	}
	return out, nil
}

type movementRow struct {
	CylinderTypeID int64 `db:"cylinder_type_id"`
	domain.Movements
}

// AggregateMovements reads the day's order items by status and the day's
// corporation exchanges.
func (r *InventoryRepository) AggregateMovements(ctx context.Context, distributorID int64, date time.Time) (map[int64]domain.Movements, error) {
	orders := `
		SELECT
			oi.cylinder_type_id,
			COALESCE(SUM(oi.quantity) FILTER (WHERE o.status = 'delivered'), 0) AS delivered,
			COALESCE(SUM(oi.empties_collected) FILTER (WHERE o.status = 'delivered'), 0) AS collected_empties,
			COALESCE(SUM(oi.quantity) FILTER (WHERE o.status IN ('pending', 'processing')), 0) AS soft_blocked,
			COALESCE(SUM(oi.quantity) FILTER (WHERE o.status = 'cancelled'), 0) AS cancelled,
			0 AS received_from_corp,
			0 AS sent_to_corp,
			0 AS empties_sent_to_corp
		FROM orders o
		JOIN order_items oi ON oi.order_id = o.id
		WHERE o.distributor_id = $1 AND o.delivery_date = $2
		GROUP BY oi.cylinder_type_id`

	exchanges := `
		SELECT
			cylinder_type_id,
			0 AS delivered,
			0 AS collected_empties,
			0 AS soft_blocked,
			0 AS cancelled,
			COALESCE(SUM(received_fulls), 0) AS received_from_corp,
			COALESCE(SUM(sent_fulls), 0) AS sent_to_corp,
			COALESCE(SUM(sent_empties), 0) AS empties_sent_to_corp
		FROM corp_exchanges
		WHERE distributor_id = $1 AND exchange_date = $2
		GROUP BY cylinder_type_id`

	out := make(map[int64]domain.Movements)
	for _, q := range []struct {
		name  string
		query string
	}{{"orders", orders}, {"corp exchanges", exchanges}} {
		var rows []movementRow
		if err := sqlx.SelectContext(ctx, r.db, &rows, q.query, distributorID, date); err != nil {
			return nil, fmt.Errorf("failed to aggregate %s: %w", q.name, err)
		}
		for _, row := range rows {
			out[row.CylinderTypeID] = out[row.CylinderTypeID].Add(row.Movements)
		}
	}
	return out, nil
}

func (r *InventoryRepository) ActivityRange(ctx context.Context, distributorID int64) (*time.Time, *time.Time, error) {
	query := `
		SELECT MIN(d), MAX(d)
		FROM (
			SELECT summary_date AS d FROM daily_inventory_summaries WHERE distributor_id = $1
			UNION ALL
			SELECT delivery_date FROM orders WHERE distributor_id = $1
			UNION ALL
			SELECT exchange_date FROM corp_exchanges WHERE distributor_id = $1
		) activity`

	var first, last sql.NullTime
	if err := r.db.QueryRowContext(ctx, query, distributorID).Scan(&first, &last); err != nil {
		return nil, nil, fmt.Errorf("failed to resolve activity range: %w", err)
	}
	if !first.Valid || !last.Valid {
		return nil, nil, nil
	}
	return &first.Time, &last.Time, nil
}
