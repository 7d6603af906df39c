package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gaslink/backend-go/internal/domain"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*InventoryRepository, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return NewInventoryRepository(Wrap(sqlx.NewDb(conn, "sqlmock"))), mock
}

var day = time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)

func TestUpsertSummary_OnlyOverwritesDerivedColumns(t *testing.T) {
	repo, mock := newMockRepo(t)
	reason := "short delivery"

	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (summary_date, cylinder_type_id, distributor_id)")).
		WithArgs(day, int64(10), int64(1), 40, 10, 0, 0, 0, 5, 3, 0, 0, 35, 13, domain.SummaryStatusCalculated).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "customer_unaccounted", "inventory_unaccounted",
			"unaccounted_reason", "responsible_party", "responsible_role",
			"created_at", "updated_at",
		}).AddRow(7, 2, 0, reason, "Ravi", "driver", day, day))

	s := &domain.DailyInventorySummary{
		SummaryDate: day, CylinderTypeID: 10, DistributorID: 1,
		OpeningFulls: 40, OpeningEmpties: 10, DeliveredQty: 5, CollectedEmptiesQty: 3,
		ClosingFulls: 35, ClosingEmpties: 13, Status: domain.SummaryStatusCalculated,
	}
	require.NoError(t, repo.UpsertSummary(context.Background(), s))

	assert.Equal(t, int64(7), s.ID)
	assert.Equal(t, 2, s.CustomerUnaccounted)
	require.NotNil(t, s.UnaccountedReason)
	assert.Equal(t, reason, *s.UnaccountedReason)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertSummaryQuery_ConflictLeavesManualColumnsAlone(t *testing.T) {
	idx := strings.Index(upsertSummaryQuery, "DO UPDATE SET")
	require.Positive(t, idx)
	conflict := upsertSummaryQuery[idx:strings.Index(upsertSummaryQuery, "RETURNING")]

	for _, col := range []string{"customer_unaccounted", "inventory_unaccounted", "unaccounted_reason", "responsible_party", "responsible_role", "created_at"} {
		assert.NotContains(t, conflict, col)
	}
	assert.Contains(t, conflict, "closing_fulls = EXCLUDED.closing_fulls")
}

func TestGetSummary_NotFoundIsNil(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM daily_inventory_summaries")).
		WithArgs(int64(1), int64(10), day).
		WillReturnError(sql.ErrNoRows)

	row, err := repo.GetSummary(context.Background(), 1, 10, day)
	require.NoError(t, err)
	assert.Nil(t, row)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetLatestSummaryBefore_OrdersDescending(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("summary_date < $3")+"(?s).*"+regexp.QuoteMeta("ORDER BY summary_date DESC")).
		WithArgs(int64(1), int64(10), day).
		WillReturnRows(sqlmock.NewRows([]string{"id", "summary_date", "cylinder_type_id", "distributor_id", "closing_fulls", "closing_empties", "status"}).
			AddRow(3, day.AddDate(0, 0, -4), 10, 1, 22, 8, "calculated"))

	row, err := repo.GetLatestSummaryBefore(context.Background(), 1, 10, day)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, 22, row.ClosingFulls)
	assert.Equal(t, domain.SummaryStatusCalculated, row.Status)
}

func TestListSummaryDates(t *testing.T) {
	repo, mock := newMockRepo(t)
	from := day.AddDate(0, 0, -2)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT summary_date")).
		WithArgs(int64(1), from, day).
		WillReturnRows(sqlmock.NewRows([]string{"summary_date"}).AddRow(from).AddRow(day))

	dates, err := repo.ListSummaryDates(context.Background(), 1, from, day)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{from, day}, dates)
}

func TestDeleteSummaries_ReturnsAffectedRows(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM daily_inventory_summaries")).
		WithArgs(int64(1), day, day).
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := repo.DeleteSummaries(context.Background(), 1, day, day)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}

func TestRecordUnaccounted_UpdatesRowAndAudits(t *testing.T) {
	repo, mock := newMockRepo(t)
	entry := &domain.UnaccountedEntry{
		DistributorID: 1, CylinderTypeID: 10, EntryDate: day,
		Kind: domain.UnaccountedCustomer, Quantity: 2, Reason: "kept by customer",
		ResponsibleParty: "Ravi", ResponsibleRole: domain.RoleDriver,
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SET customer_unaccounted = customer_unaccounted + $1")).
		WithArgs(2, "kept by customer", "Ravi", domain.RoleDriver, int64(1), int64(10), day).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO unaccounted_entries")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(55, day))
	mock.ExpectCommit()

	require.NoError(t, repo.RecordUnaccounted(context.Background(), entry))
	assert.Equal(t, int64(55), entry.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordUnaccounted_MissingRowRollsBack(t *testing.T) {
	repo, mock := newMockRepo(t)
	entry := &domain.UnaccountedEntry{
		DistributorID: 1, CylinderTypeID: 10, EntryDate: day,
		Kind: domain.UnaccountedInventory, Quantity: 1, Reason: "leak", ResponsibleRole: domain.RoleInventoryStaff,
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SET inventory_unaccounted = inventory_unaccounted + $1")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.RecordUnaccounted(context.Background(), entry)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAggregateMovements_MergesOrdersAndExchanges(t *testing.T) {
	repo, mock := newMockRepo(t)
	cols := []string{"cylinder_type_id", "delivered", "collected_empties", "soft_blocked", "cancelled", "received_from_corp", "sent_to_corp", "empties_sent_to_corp"}

	mock.ExpectQuery(regexp.QuoteMeta("JOIN order_items oi ON oi.order_id = o.id")).
		WithArgs(int64(1), day).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(10, 5, 3, 2, 1, 0, 0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM corp_exchanges")).
		WithArgs(int64(1), day).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(10, 0, 0, 0, 0, 50, 1, 20).AddRow(11, 0, 0, 0, 0, 8, 0, 0))

	out, err := repo.AggregateMovements(context.Background(), 1, day)
	require.NoError(t, err)

	assert.Equal(t, domain.Movements{Delivered: 5, CollectedEmpties: 3, SoftBlocked: 2, Cancelled: 1, ReceivedFromCorp: 50, SentToCorp: 1, EmptiesSentToCorp: 20}, out[10])
	assert.Equal(t, 8, out[11].ReceivedFromCorp)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityRange_EmptyIsNil(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT MIN(d), MAX(d)")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"min", "max"}).AddRow(nil, nil))

	first, last, err := repo.ActivityRange(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, first)
	assert.Nil(t, last)
}

func TestHasPendingRequest(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM replenishment_requests")).
		WithArgs(int64(1), int64(10), day, domain.ReplenishmentStatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.HasPendingRequest(context.Background(), 1, 10, day)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestResolveCylinderTypeID_Unknown(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("LOWER(code) = LOWER($2)")).
		WithArgs(int64(1), "DOM14").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.ResolveCylinderTypeID(context.Background(), 1, " DOM14 ")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestUpsertCorpExchanges_UsesPreparedStatementInTx(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO corp_exchanges"))
	prep.ExpectExec().WithArgs(int64(1), int64(10), day, "CH-1", 50, 0, 20).WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().WithArgs(int64(1), int64(11), day, "CH-1", 8, 0, 0).WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	n, err := repo.UpsertCorpExchanges(context.Background(), []domain.CorpExchange{
		{DistributorID: 1, CylinderTypeID: 10, ExchangeDate: day, Reference: "CH-1", ReceivedFulls: 50, SentEmpties: 20},
		{DistributorID: 1, CylinderTypeID: 11, ExchangeDate: day, Reference: "CH-1", ReceivedFulls: 8},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
