package inventory

import (
	"testing"
	"time"

	"github.com/gaslink/backend-go/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculate_CarriesForwardDeliveriesAndCollections(t *testing.T) {
	// GIVEN 40 fulls and 10 empties carried from yesterday
	open := Opening{Fulls: 40, Empties: 10}

	// WHEN 5 cylinders are delivered and 3 empties collected
	closing := NewBalanceCalculator().Calculate(open, domain.Movements{Delivered: 5, CollectedEmpties: 3})

	// THEN the day closes on 35 fulls and 13 empties
	assert.Equal(t, 35, closing.Fulls)
	assert.Equal(t, 13, closing.Empties)
	assert.False(t, closing.Clamped)
}

func TestCalculate_CorpExchangeMovesBothBalances(t *testing.T) {
	open := Opening{Fulls: 20, Empties: 30}
	m := domain.Movements{ReceivedFromCorp: 50, SentToCorp: 2, EmptiesSentToCorp: 25, Delivered: 10, CollectedEmpties: 8}

	closing := NewBalanceCalculator().Calculate(open, m)

	assert.Equal(t, 58, closing.Fulls)
	assert.Equal(t, 13, closing.Empties)
}

func TestCalculate_SoftBlockedAndCancelledDoNotMoveStock(t *testing.T) {
	open := Opening{Fulls: 12, Empties: 4}

	closing := NewBalanceCalculator().Calculate(open, domain.Movements{SoftBlocked: 7, Cancelled: 3})

	assert.Equal(t, 12, closing.Fulls)
	assert.Equal(t, 4, closing.Empties)
}

func TestCalculate_ClampsNegativeClosing(t *testing.T) {
	// GIVEN more deliveries than stock on hand
	open := Opening{Fulls: 3, Empties: 0}

	// WHEN the day is computed
	closing := NewBalanceCalculator().Calculate(open, domain.Movements{Delivered: 5, EmptiesSentToCorp: 1})

	// THEN both balances are floored at zero and the raw values are kept
	assert.Equal(t, 0, closing.Fulls)
	assert.Equal(t, 0, closing.Empties)
	assert.Equal(t, -2, closing.RawFulls)
	assert.Equal(t, -1, closing.RawEmpties)
	assert.True(t, closing.Clamped)
}

func TestBuildSummary_StatusReflectsClamping(t *testing.T) {
	bc := NewBalanceCalculator()
	date := time.Date(2024, 3, 5, 17, 30, 0, 0, time.UTC)

	clean := bc.BuildSummary(1, 2, date, Opening{Fulls: 10}, domain.Movements{Delivered: 4})
	require.NotNil(t, clean)
	assert.Equal(t, domain.SummaryStatusCalculated, clean.Status)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), clean.SummaryDate)
	assert.Equal(t, int64(1), clean.DistributorID)
	assert.Equal(t, int64(2), clean.CylinderTypeID)
	assert.Equal(t, 4, clean.DeliveredQty)
	assert.Equal(t, 6, clean.ClosingFulls)

	short := bc.BuildSummary(1, 2, date, Opening{Fulls: 1}, domain.Movements{Delivered: 4})
	assert.Equal(t, domain.SummaryStatusPending, short.Status)
	assert.Equal(t, 0, short.ClosingFulls)
}

func TestOpeningFrom(t *testing.T) {
	assert.Equal(t, Opening{}, OpeningFrom(nil))

	prev := &domain.DailyInventorySummary{ClosingFulls: 9, ClosingEmpties: 11}
	assert.Equal(t, Opening{Fulls: 9, Empties: 11}, OpeningFrom(prev))
}
