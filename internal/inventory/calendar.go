package inventory

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/gaslink/backend-go/internal/domain"
)

// MaxDate is an open upper bound for date range queries.
var MaxDate = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

// DateOnly truncates t to its calendar date at UTC midnight. The wall-clock
// date of t is kept, so callers convert to the tenant location first.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Today returns the current calendar date in loc.
func Today(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return DateOnly(time.Now().In(loc))
}

// ParseDate parses a YYYY-MM-DD string into a calendar date.
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(domain.DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD", domain.ErrInvalidInput, value)
	}
	return DateOnly(t), nil
}

// FormatDate renders a calendar date.
func FormatDate(t time.Time) string {
	return t.Format(domain.DateLayout)
}

// DateRange returns every calendar date from start to end inclusive, oldest first.
// An inverted range yields nothing.
func DateRange(start, end time.Time) []time.Time {
	start, end = DateOnly(start), DateOnly(end)
	if end.Before(start) {
		return nil
	}

	days := int(end.Sub(start).Hours()/24) + 1
	dates := make([]time.Time, 0, days)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates
}

// MissingDates is the set difference between the full calendar of [start, end]
// and the dates present, returned in chronological order.
func MissingDates(start, end time.Time, present []time.Time) []time.Time {
	have := make(map[time.Time]struct{}, len(present))
	for _, d := range present {
		have[DateOnly(d)] = struct{}{}
	}

	var missing []time.Time
	for _, d := range DateRange(start, end) {
		if _, ok := have[d]; !ok {
			missing = append(missing, d)
		}
	}
	return missing
}

// LargestContiguousRun returns the length of the longest run of consecutive
// calendar dates in dates. Input order does not matter.
func LargestContiguousRun(dates []time.Time) int {
	if len(dates) == 0 {
		return 0
	}

	sorted := make([]time.Time, len(dates))
	for i, d := range dates {
		sorted[i] = DateOnly(d)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	largest, current := 1, 1
	for i := 1; i < len(sorted); i++ {
		switch {
		case sorted[i].Equal(sorted[i-1]):
			continue
		case sorted[i].Equal(sorted[i-1].AddDate(0, 0, 1)):
			current++
		default:
			current = 1
		}
		if current > largest {
			largest = current
		}
	}
	return largest
}

// FormatDates renders dates as YYYY-MM-DD strings.
func FormatDates(dates []time.Time) []string {
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = FormatDate(d)
	}
	return out
}
