package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gaslink/backend-go/internal/domain"
)

type summaryKey struct {
	date          time.Time
	typeID        int64
	distributorID int64
}

func keyOf(distributorID, typeID int64, date time.Time) summaryKey {
	return summaryKey{date: dateOnly(date), typeID: typeID, distributorID: distributorID}
}

type exchangeKey struct {
	distributorID int64
	typeID        int64
	date          time.Time
	reference     string
}

// Store is an in-process implementation of the inventory repositories. It
// mirrors the postgres upsert semantics and serves as the test double for the
// service, api, scheduler, jobs and drive tests.
type Store struct {
	mu sync.RWMutex

	distributors  map[int64]domain.Distributor
	cylinderTypes map[int64]domain.CylinderType
	orders        []domain.Order
	exchanges     map[exchangeKey]domain.CorpExchange
	thresholds    map[int64]map[int64]int
	summaries     map[summaryKey]domain.DailyInventorySummary
	requests      []domain.ReplenishmentRequest
	unaccounted   []domain.UnaccountedEntry
	jobRuns       []domain.JobRun

	nextID int64

	// FailOn makes UpsertSummary fail for the given date, for exercising
	// best-effort paths in tests.
	FailOn map[time.Time]error
}

func NewStore() *Store {
	return &Store{
		distributors:  make(map[int64]domain.Distributor),
		cylinderTypes: make(map[int64]domain.CylinderType),
		exchanges:     make(map[exchangeKey]domain.CorpExchange),
		thresholds:    make(map[int64]map[int64]int),
		summaries:     make(map[summaryKey]domain.DailyInventorySummary),
		FailOn:        make(map[time.Time]error),
	}
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// Seeding helpers

func (s *Store) AddDistributor(d domain.Distributor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.distributors[d.ID] = d
}

func (s *Store) AddCylinderType(ct domain.CylinderType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cylinderTypes[ct.ID] = ct
}

func (s *Store) AddOrder(o domain.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.ID == 0 {
		o.ID = s.id()
	}
	o.DeliveryDate = dateOnly(o.DeliveryDate)
	s.orders = append(s.orders, o)
}

func (s *Store) SetThreshold(distributorID, cylinderTypeID int64, threshold int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.thresholds[distributorID] == nil {
		s.thresholds[distributorID] = make(map[int64]int)
	}
	s.thresholds[distributorID][cylinderTypeID] = threshold
}

// PutSummary stores a row verbatim, bypassing upsert rules.
func (s *Store) PutSummary(row domain.DailyInventorySummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row.SummaryDate = dateOnly(row.SummaryDate)
	if row.ID == 0 {
		row.ID = s.id()
	}
	s.summaries[keyOf(row.DistributorID, row.CylinderTypeID, row.SummaryDate)] = row
}

func (s *Store) Requests() []domain.ReplenishmentRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.ReplenishmentRequest(nil), s.requests...)
}

func (s *Store) UnaccountedEntries() []domain.UnaccountedEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.UnaccountedEntry(nil), s.unaccounted...)
}

func (s *Store) SummaryCount(distributorID int64) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for k := range s.summaries {
		if k.distributorID == distributorID {
			n++
		}
	}
	return n
}

// SummaryRepository

func (s *Store) GetSummary(_ context.Context, distributorID, cylinderTypeID int64, date time.Time) (*domain.DailyInventorySummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.summaries[keyOf(distributorID, cylinderTypeID, date)]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

func (s *Store) GetLatestSummaryBefore(_ context.Context, distributorID, cylinderTypeID int64, date time.Time) (*domain.DailyInventorySummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	date = dateOnly(date)
	var latest *domain.DailyInventorySummary
	for k, row := range s.summaries {
		if k.distributorID != distributorID || k.typeID != cylinderTypeID || !k.date.Before(date) {
			continue
		}
		if latest == nil || k.date.After(latest.SummaryDate) {
			r := row
			latest = &r
		}
	}
	return latest, nil
}

func (s *Store) ListSummaries(_ context.Context, distributorID int64, from, to time.Time) ([]domain.DailyInventorySummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	from, to = dateOnly(from), dateOnly(to)
	var rows []domain.DailyInventorySummary
	for k, row := range s.summaries {
		if k.distributorID == distributorID && !k.date.Before(from) && !k.date.After(to) {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].SummaryDate.Equal(rows[j].SummaryDate) {
			return rows[i].SummaryDate.Before(rows[j].SummaryDate)
		}
		return rows[i].CylinderTypeID < rows[j].CylinderTypeID
	})
	return rows, nil
}

func (s *Store) ListSummaryDates(ctx context.Context, distributorID int64, from, to time.Time) ([]time.Time, error) {
	rows, err := s.ListSummaries(ctx, distributorID, from, to)
	if err != nil {
		return nil, err
	}
	var dates []time.Time
	for _, r := range rows {
		if len(dates) == 0 || !dates[len(dates)-1].Equal(r.SummaryDate) {
			dates = append(dates, r.SummaryDate)
		}
	}
	return dates, nil
}

func (s *Store) UpsertSummary(_ context.Context, summary *domain.DailyInventorySummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	date := dateOnly(summary.SummaryDate)
	if err, ok := s.FailOn[date]; ok {
		return err
	}

	key := keyOf(summary.DistributorID, summary.CylinderTypeID, date)
	now := time.Now().UTC()

	row := *summary
	row.SummaryDate = date
	row.UpdatedAt = now
	if existing, ok := s.summaries[key]; ok {
		row.ID = existing.ID
		row.CreatedAt = existing.CreatedAt
		row.CustomerUnaccounted = existing.CustomerUnaccounted
		row.InventoryUnaccounted = existing.InventoryUnaccounted
		row.UnaccountedReason = existing.UnaccountedReason
		row.ResponsibleParty = existing.ResponsibleParty
		row.ResponsibleRole = existing.ResponsibleRole
	} else {
		row.ID = s.id()
		row.CreatedAt = now
	}

	s.summaries[key] = row
	*summary = row
	return nil
}

func (s *Store) DeleteSummaries(_ context.Context, distributorID int64, from, to time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	from, to = dateOnly(from), dateOnly(to)
	var n int64
	for k := range s.summaries {
		if k.distributorID == distributorID && !k.date.Before(from) && !k.date.After(to) {
			delete(s.summaries, k)
			n++
		}
	}
	return n, nil
}

func (s *Store) RecordUnaccounted(_ context.Context, entry *domain.UnaccountedEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := keyOf(entry.DistributorID, entry.CylinderTypeID, entry.EntryDate)
	row, ok := s.summaries[key]
	if !ok {
		return fmt.Errorf("summary for %s: %w", entry.EntryDate.Format(domain.DateLayout), domain.ErrNotFound)
	}

	switch entry.Kind {
	case domain.UnaccountedCustomer:
		row.CustomerUnaccounted += entry.Quantity
	case domain.UnaccountedInventory:
		row.InventoryUnaccounted += entry.Quantity
	}
	reason, party, role := entry.Reason, entry.ResponsibleParty, string(entry.ResponsibleRole)
	row.UnaccountedReason = &reason
	row.ResponsibleParty = &party
	row.ResponsibleRole = &role
	row.UpdatedAt = time.Now().UTC()
	s.summaries[key] = row

	entry.ID = s.id()
	entry.EntryDate = dateOnly(entry.EntryDate)
	entry.CreatedAt = row.UpdatedAt
	s.unaccounted = append(s.unaccounted, *entry)
	return nil
}

// CatalogRepository

func (s *Store) ListActiveDistributors(_ context.Context) ([]domain.Distributor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Distributor
	for _, d := range s.distributors {
		if d.Active {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListActiveCylinderTypes(_ context.Context, distributorID int64) ([]domain.CylinderType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.CylinderType
	for _, ct := range s.cylinderTypes {
		if ct.DistributorID == distributorID && ct.Active && ct.DeletedAt == nil {
			out = append(out, ct)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) AggregateMovements(_ context.Context, distributorID int64, date time.Time) (map[int64]domain.Movements, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	date = dateOnly(date)
	out := make(map[int64]domain.Movements)
	for _, o := range s.orders {
		if o.DistributorID != distributorID || !o.DeliveryDate.Equal(date) {
			continue
		}
		for _, item := range o.Items {
			var m domain.Movements
			switch {
			case o.Status == domain.OrderStatusDelivered:
				m.Delivered = item.Quantity
				m.CollectedEmpties = item.EmptiesCollected
			case o.Status == domain.OrderStatusCancelled:
				m.Cancelled = item.Quantity
			case o.Status.IsSoftBlocking():
				m.SoftBlocked = item.Quantity
			}
			out[item.CylinderTypeID] = out[item.CylinderTypeID].Add(m)
		}
	}
	for k, ex := range s.exchanges {
		if k.distributorID != distributorID || !k.date.Equal(date) {
			continue
		}
		out[k.typeID] = out[k.typeID].Add(domain.Movements{
			ReceivedFromCorp:  ex.ReceivedFulls,
			SentToCorp:        ex.SentFulls,
			EmptiesSentToCorp: ex.SentEmpties,
		})
	}
	return out, nil
}

func (s *Store) ActivityRange(_ context.Context, distributorID int64) (*time.Time, *time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var first, last *time.Time
	see := func(d time.Time) {
		d = dateOnly(d)
		if first == nil || d.Before(*first) {
			f := d
			first = &f
		}
		if last == nil || d.After(*last) {
			l := d
			last = &l
		}
	}
	for k := range s.summaries {
		if k.distributorID == distributorID {
			see(k.date)
		}
	}
	for _, o := range s.orders {
		if o.DistributorID == distributorID {
			see(o.DeliveryDate)
		}
	}
	for k := range s.exchanges {
		if k.distributorID == distributorID {
			see(k.date)
		}
	}
	return first, last, nil
}

// ReplenishmentRepository

func (s *Store) LowStockThresholds(_ context.Context, distributorID int64) (map[int64]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[int64]int, len(s.thresholds[distributorID]))
	for k, v := range s.thresholds[distributorID] {
		out[k] = v
	}
	return out, nil
}

func (s *Store) HasPendingRequest(_ context.Context, distributorID, cylinderTypeID int64, date time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	date = dateOnly(date)
	for _, r := range s.requests {
		if r.DistributorID == distributorID && r.CylinderTypeID == cylinderTypeID &&
			r.RequestDate.Equal(date) && r.Status == domain.ReplenishmentStatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) CreateRequest(_ context.Context, req *domain.ReplenishmentRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	req.ID = s.id()
	req.RequestDate = dateOnly(req.RequestDate)
	req.CreatedAt = time.Now().UTC()
	s.requests = append(s.requests, *req)
	return nil
}

// CorpExchangeRepository

func (s *Store) ResolveCylinderTypeID(_ context.Context, distributorID int64, code string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, ct := range s.cylinderTypes {
		if ct.DistributorID == distributorID && ct.DeletedAt == nil && strings.EqualFold(ct.Code, strings.TrimSpace(code)) {
			return ct.ID, nil
		}
	}
	return 0, fmt.Errorf("cylinder type %q: %w", code, domain.ErrNotFound)
}

func (s *Store) UpsertCorpExchanges(_ context.Context, rows []domain.CorpExchange) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ex := range rows {
		ex.ExchangeDate = dateOnly(ex.ExchangeDate)
		k := exchangeKey{distributorID: ex.DistributorID, typeID: ex.CylinderTypeID, date: ex.ExchangeDate, reference: ex.Reference}
		if existing, ok := s.exchanges[k]; ok {
			ex.ID = existing.ID
		} else {
			ex.ID = s.id()
		}
		s.exchanges[k] = ex
	}
	return len(rows), nil
}

// JobRunRepository

func (s *Store) CreateJobRun(_ context.Context, run *domain.JobRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobRuns = append(s.jobRuns, *run)
	return nil
}

func (s *Store) CompleteJobRun(_ context.Context, runID string, status domain.JobRunStatus, message string, completedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.jobRuns {
		if s.jobRuns[i].RunID == runID {
			s.jobRuns[i].Status = status
			s.jobRuns[i].Message = message
			s.jobRuns[i].CompletedAt = &completedAt
			return nil
		}
	}
	return fmt.Errorf("job run %s: %w", runID, domain.ErrNotFound)
}

func (s *Store) ListJobRuns(_ context.Context, jobName string, limit int) ([]domain.JobRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.JobRun
	for i := len(s.jobRuns) - 1; i >= 0; i-- {
		if jobName != "" && s.jobRuns[i].JobName != jobName {
			continue
		}
		out = append(out, s.jobRuns[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
