package inventory

import (
	"testing"

	"github.com/gaslink/backend-go/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func row(date string, typeID int64, openF, openE, closeF, closeE int) domain.DailyInventorySummary {
	return domain.DailyInventorySummary{
		SummaryDate:    day(date),
		CylinderTypeID: typeID,
		DistributorID:  1,
		OpeningFulls:   openF,
		OpeningEmpties: openE,
		ClosingFulls:   closeF,
		ClosingEmpties: closeE,
		Status:         domain.SummaryStatusCalculated,
	}
}

func TestFindContinuityIssues_ConsistentChain(t *testing.T) {
	rows := []domain.DailyInventorySummary{
		row("2024-06-02", 1, 35, 13, 30, 15),
		row("2024-06-01", 1, 40, 10, 35, 13),
		row("2024-06-01", 2, 5, 5, 5, 5),
		row("2024-06-02", 2, 5, 5, 4, 6),
	}

	assert.Empty(t, FindContinuityIssues(rows))
}

func TestFindContinuityIssues_CarryForwardMismatch(t *testing.T) {
	// GIVEN a day whose opening does not match the previous closing
	rows := []domain.DailyInventorySummary{
		row("2024-06-01", 1, 40, 10, 35, 13),
		row("2024-06-02", 1, 36, 13, 31, 13),
	}

	// WHEN the chain is checked
	issues := FindContinuityIssues(rows)

	// THEN exactly one mismatch is reported on the later date
	require.Len(t, issues, 1)
	assert.Equal(t, domain.IssueCarryForwardMismatch, issues[0].Kind)
	assert.Equal(t, "2024-06-02", issues[0].Date)
	assert.Equal(t, 35, issues[0].ExpectedFulls)
	assert.Equal(t, 36, issues[0].ActualFulls)
}

func TestFindContinuityIssues_GapIsNotMismatch(t *testing.T) {
	rows := []domain.DailyInventorySummary{
		row("2024-06-01", 1, 40, 10, 35, 13),
		row("2024-06-04", 1, 20, 2, 20, 2),
	}

	assert.Empty(t, FindContinuityIssues(rows))
}

func TestFindContinuityIssues_NegativeAndPending(t *testing.T) {
	negative := row("2024-06-01", 1, 0, 0, -3, 0)
	pending := row("2024-06-01", 2, 1, 0, 0, 0)
	pending.Status = domain.SummaryStatusPending

	issues := FindContinuityIssues([]domain.DailyInventorySummary{pending, negative})

	require.Len(t, issues, 2)
	assert.Equal(t, domain.IssueNegativeBalance, issues[0].Kind)
	assert.Equal(t, int64(1), issues[0].CylinderTypeID)
	assert.Equal(t, domain.IssuePendingRow, issues[1].Kind)
	assert.Equal(t, int64(2), issues[1].CylinderTypeID)
}

func TestEarliestIssueDate(t *testing.T) {
	_, ok := EarliestIssueDate(nil)
	assert.False(t, ok)

	issues := []domain.ContinuityIssue{
		{Kind: domain.IssueCarryForwardMismatch, Date: "2024-06-09"},
		{Kind: domain.IssuePendingRow, Date: "2024-06-03"},
		{Kind: domain.IssueCarryForwardMismatch, Date: "2024-06-05"},
	}

	earliest, ok := EarliestIssueDate(issues)
	require.True(t, ok)
	assert.Equal(t, "2024-06-03", FormatDate(earliest))
}
