package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/gaslink/backend-go/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRebuild_RequiresConfirmation(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "2024-06-01", domestic, 40, 10)

	res, err := f.rebuild.Rebuild(context.Background(), distID, RebuildOptions{})

	assert.Nil(t, res)
	assert.True(t, errors.Is(err, domain.ErrConfirmationRequired))
	assert.Equal(t, 1, f.store.SummaryCount(distID))
}

func TestRebuild_ReplacesHistoryFromFirstActivity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	until := mustDate(t, "2024-06-30")

	// GIVEN corp stock arriving on the 1st, a delivery on the 2nd and a corrupted row
	_, err := f.store.UpsertCorpExchanges(ctx, []domain.CorpExchange{{
		DistributorID: distID, CylinderTypeID: domestic, ExchangeDate: mustDate(t, "2024-06-01"),
		Reference: "CH-1", ReceivedFulls: 50,
	}})
	require.NoError(t, err)
	f.deliver(t, "2024-06-02", domestic, 5, 2)
	f.seed(t, "2024-06-02", domestic, 999, 999)

	// WHEN the distributor is rebuilt
	res, err := f.rebuild.Rebuild(ctx, distID, RebuildOptions{Confirm: true, Until: &until})
	require.NoError(t, err)

	// THEN the range spans the activity and every day is derived again
	assert.True(t, res.Success, res.Message)
	assert.Equal(t, "2024-06-01", res.From)
	assert.Equal(t, "2024-06-02", res.To)
	assert.Equal(t, int64(1), res.DeletedRows)
	assert.Equal(t, 2, res.RebuiltDays)

	row, _ := f.store.GetSummary(ctx, distID, domestic, mustDate(t, "2024-06-02"))
	require.NotNil(t, row)
	assert.Equal(t, 50, row.OpeningFulls)
	assert.Equal(t, 45, row.ClosingFulls)
	assert.Equal(t, 2, row.ClosingEmpties)

	// AND the old rows were backed up first
	require.NotEmpty(t, res.BackupKey)
	assert.True(t, strings.HasPrefix(res.BackupKey, "backups/distributor-1/"))
	payload, ok := f.backups.Object(res.BackupKey)
	require.True(t, ok)
	assert.Contains(t, string(payload), "2024-06-02,10,1,999,999")
}

func TestRebuild_StopsAtFirstFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	until := mustDate(t, "2024-06-30")
	f.deliver(t, "2024-06-01", domestic, 1, 0)
	f.deliver(t, "2024-06-03", domestic, 1, 0)
	f.store.FailOn[mustDate(t, "2024-06-02")] = errors.New("lock timeout")

	res, err := f.rebuild.Rebuild(ctx, distID, RebuildOptions{Confirm: true, Until: &until})
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.Equal(t, 1, res.RebuiltDays)
	assert.Contains(t, res.Message, "2024-06-02")

	row, _ := f.store.GetSummary(ctx, distID, domestic, mustDate(t, "2024-06-03"))
	assert.Nil(t, row)
}

func TestRebuild_NoActivity(t *testing.T) {
	f := newFixture(t)

	res, err := f.rebuild.Rebuild(context.Background(), distID, RebuildOptions{Confirm: true})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Zero(t, res.RebuiltDays)
	assert.Empty(t, res.BackupKey)
}

func TestRebuild_CapsRangeAtUntil(t *testing.T) {
	f := newFixture(t)
	until := mustDate(t, "2024-06-02")
	f.deliver(t, "2024-06-01", domestic, 1, 0)
	f.deliver(t, "2024-06-10", domestic, 1, 0)

	res, err := f.rebuild.Rebuild(context.Background(), distID, RebuildOptions{Confirm: true, Until: &until})
	require.NoError(t, err)
	assert.Equal(t, "2024-06-02", res.To)
	assert.Equal(t, 2, res.RebuiltDays)
}

func TestEncodeSummariesCSV(t *testing.T) {
	reason := "broken valve"
	payload, err := EncodeSummariesCSV([]domain.DailyInventorySummary{{
		SummaryDate:       mustDate(t, "2024-06-01"),
		CylinderTypeID:    10,
		DistributorID:     1,
		OpeningFulls:      5,
		ClosingFulls:      5,
		Status:            domain.SummaryStatusCalculated,
		UnaccountedReason: &reason,
	}})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(payload)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "summary_date,cylinder_type_id,distributor_id"))
	assert.True(t, strings.HasPrefix(lines[1], "2024-06-01,10,1,5,0"))
	assert.True(t, strings.HasSuffix(lines[1], "broken valve,,"))
}

func TestRebuild_ExtendsCappedRangeToLastStoredRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	until := mustDate(t, "2024-06-02")

	// GIVEN stored rows through the 3rd, corp stock on the 1st and a delivery on the 2nd
	for _, d := range []string{"2024-06-01", "2024-06-02", "2024-06-03"} {
		f.seed(t, d, domestic, 40, 10)
	}
	_, err := f.store.UpsertCorpExchanges(ctx, []domain.CorpExchange{{
		DistributorID: distID, CylinderTypeID: domestic, ExchangeDate: mustDate(t, "2024-06-01"),
		Reference: "CH-7", ReceivedFulls: 50,
	}})
	require.NoError(t, err)
	f.deliver(t, "2024-06-02", domestic, 5, 0)

	// WHEN the rebuild is capped before the last stored row
	res, err := f.rebuild.Rebuild(ctx, distID, RebuildOptions{Confirm: true, Until: &until})
	require.NoError(t, err)

	// THEN the row after the cap is derived again too
	assert.True(t, res.Success, res.Message)
	assert.Equal(t, "2024-06-03", res.To)
	assert.Equal(t, int64(3), res.DeletedRows)
	assert.Equal(t, 3, res.RebuiltDays)

	row, _ := f.store.GetSummary(ctx, distID, domestic, mustDate(t, "2024-06-03"))
	require.NotNil(t, row)
	assert.Equal(t, 45, row.OpeningFulls)
	assert.Equal(t, 45, row.ClosingFulls)

	// AND the chain holds across the day after the cap
	check, err := f.continuity.Check(ctx, distID, mustDate(t, "2024-06-01"), mustDate(t, "2024-06-03"))
	require.NoError(t, err)
	assert.True(t, check.Consistent(), "%+v", check.Issues)
}
