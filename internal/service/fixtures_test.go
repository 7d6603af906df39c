package service

import (
	"testing"
	"time"

	"github.com/gaslink/backend-go/internal/domain"
	"github.com/gaslink/backend-go/internal/inventory"
	"github.com/gaslink/backend-go/internal/repository/memory"
	"github.com/gaslink/backend-go/internal/storage"
)

const (
	distID     int64 = 1
	domestic   int64 = 10
	commercial int64 = 11
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := inventory.ParseDate(s)
	if err != nil {
		t.Fatalf("parse %s: %v", s, err)
	}
	return d
}

type fixture struct {
	store   *memory.Store
	backups *storage.MemoryStorage

	population  *PopulationService
	gaps        *GapService
	rebuild     *RebuildService
	lowStock    *LowStockMonitor
	continuity  *ContinuityService
	unaccounted *UnaccountedService
	summaries   *SummaryService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	store.AddDistributor(domain.Distributor{ID: distID, Name: "Sri Ganesh Gas", Code: "SGG", Active: true})
	store.AddCylinderType(domain.CylinderType{ID: domestic, DistributorID: distID, Code: "DOM14", Name: "Domestic 14.2kg", Active: true})
	store.AddCylinderType(domain.CylinderType{ID: commercial, DistributorID: distID, Code: "COM19", Name: "Commercial 19kg", Active: true})

	backups := storage.NewMemoryStorage()
	population := NewPopulationService(store, store, nil)

	return &fixture{
		store:      store,
		backups:    backups,
		population: population,
		gaps: NewGapService(store, population, GapOptions{
			LookbackDays:   30,
			AlertThreshold: 7,
			Reflow:         true,
		}),
		rebuild:     NewRebuildService(store, store, population, backups, "backups", time.UTC),
		lowStock:    NewLowStockMonitor(store, store, store, 10),
		continuity:  NewContinuityService(store, population),
		unaccounted: NewUnaccountedService(store, population, nil),
		summaries:   NewSummaryService(store, nil),
	}
}

func (f *fixture) deliver(t *testing.T, date string, typeID int64, qty, empties int) {
	f.store.AddOrder(domain.Order{
		DistributorID: distID,
		DeliveryDate:  mustDate(t, date),
		Status:        domain.OrderStatusDelivered,
		Items:         []domain.OrderItem{{CylinderTypeID: typeID, Quantity: qty, EmptiesCollected: empties}},
	})
}

func (f *fixture) seed(t *testing.T, date string, typeID int64, closingFulls, closingEmpties int) {
	f.store.PutSummary(domain.DailyInventorySummary{
		SummaryDate:    mustDate(t, date),
		CylinderTypeID: typeID,
		DistributorID:  distID,
		OpeningFulls:   closingFulls,
		OpeningEmpties: closingEmpties,
		ClosingFulls:   closingFulls,
		ClosingEmpties: closingEmpties,
		Status:         domain.SummaryStatusCalculated,
	})
}
