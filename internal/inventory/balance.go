package inventory

import (
	"time"

	"github.com/gaslink/backend-go/internal/domain"
)

// Opening is the carried-forward balance a day starts with.
type Opening struct {
	Fulls   int
	Empties int
}

// OpeningFrom carries a previous closing forward. A nil row means the
// distributor has no history for the type yet and starts from zero.
func OpeningFrom(prev *domain.DailyInventorySummary) Opening {
	if prev == nil {
		return Opening{}
	}
	return Opening{Fulls: prev.ClosingFulls, Empties: prev.ClosingEmpties}
}

// Closing holds the computed end-of-day balance. Clamped is set when the raw
// arithmetic went negative and had to be floored at zero.
type Closing struct {
	Fulls      int
	Empties    int
	RawFulls   int
	RawEmpties int
	Clamped    bool
}

// BalanceCalculator derives closing balances from an opening and a day's movements.
type BalanceCalculator struct{}

// NewBalanceCalculator creates a new balance calculator
func NewBalanceCalculator() *BalanceCalculator {
	return &BalanceCalculator{}
}

// Calculate applies the day's movements to the opening balance.
//
//	fulls   = opening + received from corp − sent to corp − delivered
//	empties = opening + collected from customers − empties sent to corp
//
// Soft-blocked and cancelled quantities are still physically owned by the
// depot and do not move the closing balance.
func (bc *BalanceCalculator) Calculate(open Opening, m domain.Movements) Closing {
	rawFulls := open.Fulls + m.ReceivedFromCorp - m.SentToCorp - m.Delivered
	rawEmpties := open.Empties + m.CollectedEmpties - m.EmptiesSentToCorp

	closing := Closing{
		Fulls:      clamp(rawFulls),
		Empties:    clamp(rawEmpties),
		RawFulls:   rawFulls,
		RawEmpties: rawEmpties,
	}
	closing.Clamped = rawFulls < 0 || rawEmpties < 0

	return closing
}

// BuildSummary assembles the derived part of a summary row. Manual fields are
// left zero; the repository upsert keeps whatever is already stored for them.
func (bc *BalanceCalculator) BuildSummary(distributorID, cylinderTypeID int64, date time.Time, open Opening, m domain.Movements) *domain.DailyInventorySummary {
	closing := bc.Calculate(open, m)

	status := domain.SummaryStatusCalculated
	if closing.Clamped {
		status = domain.SummaryStatusPending
	}

	return &domain.DailyInventorySummary{
		SummaryDate:          DateOnly(date),
		CylinderTypeID:       cylinderTypeID,
		DistributorID:        distributorID,
		OpeningFulls:         open.Fulls,
		OpeningEmpties:       open.Empties,
		ReceivedFromCorpQty:  m.ReceivedFromCorp,
		SentToCorpQty:        m.SentToCorp,
		EmptiesSentToCorpQty: m.EmptiesSentToCorp,
		DeliveredQty:         m.Delivered,
		CollectedEmptiesQty:  m.CollectedEmpties,
		SoftBlockedQty:       m.SoftBlocked,
		CancelledStock:       m.Cancelled,
		ClosingFulls:         closing.Fulls,
		ClosingEmpties:       closing.Empties,
		Status:               status,
	}
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
