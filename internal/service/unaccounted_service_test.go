package service

import (
	"context"
	"errors"
	"testing"

	"github.com/gaslink/backend-go/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validEntry(t *testing.T) *domain.UnaccountedEntry {
	return &domain.UnaccountedEntry{
		DistributorID:    distID,
		CylinderTypeID:   domestic,
		EntryDate:        mustDate(t, "2024-06-02"),
		Kind:             domain.UnaccountedInventory,
		Quantity:         1,
		Reason:           "  leak found during audit ",
		ResponsibleParty: "Meena",
		ResponsibleRole:  domain.RoleInventoryStaff,
	}
}

func TestUnaccounted_Validation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		mutate func(e *domain.UnaccountedEntry)
	}{
		{name: "bad role", mutate: func(e *domain.UnaccountedEntry) { e.ResponsibleRole = "manager" }},
		{name: "bad kind", mutate: func(e *domain.UnaccountedEntry) { e.Kind = "supplier" }},
		{name: "zero quantity", mutate: func(e *domain.UnaccountedEntry) { e.Quantity = 0 }},
		{name: "blank reason", mutate: func(e *domain.UnaccountedEntry) { e.Reason = "  " }},
		{name: "missing type", mutate: func(e *domain.UnaccountedEntry) { e.CylinderTypeID = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := validEntry(t)
			tt.mutate(entry)

			_, err := f.unaccounted.Record(context.Background(), entry)
			assert.True(t, errors.Is(err, domain.ErrInvalidInput), "got %v", err)
		})
	}
	assert.Empty(t, f.store.UnaccountedEntries())
}

func TestUnaccounted_PopulatesMissingRowAndAccumulates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "2024-06-01", domestic, 40, 10)

	// GIVEN no row exists for the entry date yet
	// WHEN two entries are recorded
	_, err := f.unaccounted.Record(ctx, validEntry(t))
	require.NoError(t, err)
	second := validEntry(t)
	second.Quantity = 2
	_, err = f.unaccounted.Record(ctx, second)
	require.NoError(t, err)

	// THEN the row was derived and carries both quantities
	row, _ := f.store.GetSummary(ctx, distID, domestic, mustDate(t, "2024-06-02"))
	require.NotNil(t, row)
	assert.Equal(t, 40, row.OpeningFulls)
	assert.Equal(t, 3, row.InventoryUnaccounted)
	assert.Zero(t, row.CustomerUnaccounted)
	require.NotNil(t, row.ResponsibleRole)
	assert.Equal(t, "inventory_staff", *row.ResponsibleRole)
	require.NotNil(t, row.UnaccountedReason)
	assert.Equal(t, "leak found during audit", *row.UnaccountedReason)

	// AND both entries are in the audit log
	assert.Len(t, f.store.UnaccountedEntries(), 2)
}

func TestUnaccounted_UnknownTypeIsNotFound(t *testing.T) {
	f := newFixture(t)
	entry := validEntry(t)
	entry.CylinderTypeID = 404

	_, err := f.unaccounted.Record(context.Background(), entry)
	assert.True(t, errors.Is(err, domain.ErrNotFound), "got %v", err)
}

func TestSummaryService_List(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "2024-06-02", commercial, 1, 1)
	f.seed(t, "2024-06-01", domestic, 2, 2)
	f.seed(t, "2024-06-05", domestic, 3, 3)

	rows, err := f.summaries.List(ctx, distID, mustDate(t, "2024-06-01"), mustDate(t, "2024-06-02"))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "2024-06-01", rows[0].SummaryDate.Format(domain.DateLayout))

	empty, err := f.summaries.List(ctx, 99, mustDate(t, "2024-06-01"), mustDate(t, "2024-06-02"))
	require.NoError(t, err)
	assert.NotNil(t, empty)

	_, err = f.summaries.List(ctx, distID, mustDate(t, "2024-06-02"), mustDate(t, "2024-06-01"))
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}
