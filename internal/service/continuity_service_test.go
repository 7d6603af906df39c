package service

import (
	"context"
	"testing"

	"github.com/gaslink/backend-go/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContinuity_DetectsAndReconcilesMismatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	from, to := mustDate(t, "2024-06-01"), mustDate(t, "2024-06-04")

	f.seed(t, "2024-06-01", domestic, 40, 10)
	f.deliver(t, "2024-06-02", domestic, 5, 3)
	f.deliver(t, "2024-06-03", domestic, 5, 3)
	_, failed, err := f.population.PopulateRange(ctx, distID, mustDate(t, "2024-06-02"), to, false)
	require.NoError(t, err)
	require.Empty(t, failed)

	// GIVEN a later delivery booked on the 2nd after the chain was derived
	f.deliver(t, "2024-06-02", domestic, 2, 0)
	_, err = f.population.Populate(ctx, distID, mustDate(t, "2024-06-02"))
	require.NoError(t, err)

	// WHEN the chain is checked
	report, err := f.continuity.Check(ctx, distID, from, to)
	require.NoError(t, err)

	// THEN the 3rd no longer opens on the 2nd's closing
	require.Len(t, report.Issues, 1)
	assert.Equal(t, domain.IssueCarryForwardMismatch, report.Issues[0].Kind)
	assert.Equal(t, "2024-06-03", report.Issues[0].Date)
	assert.Equal(t, 33, report.Issues[0].ExpectedFulls)
	assert.Equal(t, 35, report.Issues[0].ActualFulls)

	// AND reconcile repairs it from there onwards
	res, err := f.continuity.Reconcile(ctx, distID, from, to)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "2024-06-03", res.StartedFrom)
	assert.Equal(t, 2, res.RepopulatedDays)

	report, err = f.continuity.Check(ctx, distID, from, to)
	require.NoError(t, err)
	assert.True(t, report.Consistent(), "%+v", report.Issues)

	row, _ := f.store.GetSummary(ctx, distID, domestic, to)
	require.NotNil(t, row)
	assert.Equal(t, 28, row.ClosingFulls)
}

func TestContinuity_CheckReadsDayBeforeWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "2024-06-01", domestic, 40, 10)
	f.seed(t, "2024-06-02", domestic, 12, 10)

	report, err := f.continuity.Check(ctx, distID, mustDate(t, "2024-06-02"), mustDate(t, "2024-06-02"))
	require.NoError(t, err)

	assert.Equal(t, 1, report.RowsChecked)
	require.Len(t, report.Issues, 1)
	assert.Equal(t, "2024-06-02", report.Issues[0].Date)
}

func TestContinuity_ReconcileConsistentIsNoop(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "2024-06-01", domestic, 40, 10)

	res, err := f.continuity.Reconcile(context.Background(), distID, mustDate(t, "2024-06-01"), mustDate(t, "2024-06-01"))
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Zero(t, res.RepopulatedDays)
	assert.Empty(t, res.StartedFrom)
}
