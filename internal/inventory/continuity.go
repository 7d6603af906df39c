package inventory

import (
	"sort"
	"time"

	"github.com/gaslink/backend-go/internal/domain"
)

// FindContinuityIssues scans summary rows for carry-forward mismatches between
// consecutive dates, negative balances and rows left pending. Rows may come in
// any order and for several cylinder types. Dates with no row in between are
// gaps, not mismatches, and are skipped here.
func FindContinuityIssues(rows []domain.DailyInventorySummary) []domain.ContinuityIssue {
	byType := make(map[int64][]domain.DailyInventorySummary)
	for _, r := range rows {
		byType[r.CylinderTypeID] = append(byType[r.CylinderTypeID], r)
	}

	typeIDs := make([]int64, 0, len(byType))
	for id := range byType {
		typeIDs = append(typeIDs, id)
	}
	sort.Slice(typeIDs, func(i, j int) bool { return typeIDs[i] < typeIDs[j] })

	var issues []domain.ContinuityIssue
	for _, typeID := range typeIDs {
		series := byType[typeID]
		sort.Slice(series, func(i, j int) bool { return series[i].SummaryDate.Before(series[j].SummaryDate) })

		for i, row := range series {
			date := FormatDate(row.SummaryDate)

			if row.ClosingFulls < 0 || row.ClosingEmpties < 0 || row.OpeningFulls < 0 || row.OpeningEmpties < 0 {
				issues = append(issues, domain.ContinuityIssue{
					Kind:           domain.IssueNegativeBalance,
					CylinderTypeID: typeID,
					Date:           date,
					ActualFulls:    row.ClosingFulls,
					ActualEmpties:  row.ClosingEmpties,
				})
			}

			if row.Status == domain.SummaryStatusPending {
				issues = append(issues, domain.ContinuityIssue{
					Kind:           domain.IssuePendingRow,
					CylinderTypeID: typeID,
					Date:           date,
					ActualFulls:    row.ClosingFulls,
					ActualEmpties:  row.ClosingEmpties,
				})
			}

			if i == 0 {
				continue
			}
			prev := series[i-1]
			if !isNextDay(prev.SummaryDate, row.SummaryDate) {
				continue
			}
			if prev.ClosingFulls != row.OpeningFulls || prev.ClosingEmpties != row.OpeningEmpties {
				issues = append(issues, domain.ContinuityIssue{
					Kind:            domain.IssueCarryForwardMismatch,
					CylinderTypeID:  typeID,
					Date:            date,
					ExpectedFulls:   prev.ClosingFulls,
					ActualFulls:     row.OpeningFulls,
					ExpectedEmpties: prev.ClosingEmpties,
					ActualEmpties:   row.OpeningEmpties,
				})
			}
		}
	}

	return issues
}

// EarliestIssueDate returns the earliest date any issue was reported on,
// which is where a reconcile has to start repopulating.
func EarliestIssueDate(issues []domain.ContinuityIssue) (time.Time, bool) {
	var (
		earliest time.Time
		found    bool
	)
	for _, issue := range issues {
		d, err := ParseDate(issue.Date)
		if err != nil {
			continue
		}
		if !found || d.Before(earliest) {
			earliest = d
			found = true
		}
	}
	return earliest, found
}

func isNextDay(prev, next time.Time) bool {
	return DateOnly(prev).AddDate(0, 0, 1).Equal(DateOnly(next))
}
