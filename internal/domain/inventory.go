// backend-go/internal/domain/inventory.go
package domain

import "time"

// DateLayout is the calendar-date format used in APIs, CSV files and logs.
const DateLayout = "2006-01-02"

// SummaryStatus marks whether a summary row was derived cleanly or needs a human.
type SummaryStatus string

const (
	SummaryStatusCalculated SummaryStatus = "calculated"
	SummaryStatusPending    SummaryStatus = "pending"
)

// Distributor is a tenant of the platform.
type Distributor struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Code      string    `json:"code" db:"code"`
	Timezone  string    `json:"timezone" db:"timezone"`
	Active    bool      `json:"active" db:"active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// CylinderType is a cylinder size a distributor stocks (e.g. 14.2kg domestic).
type CylinderType struct {
	ID            int64      `json:"id" db:"id"`
	DistributorID int64      `json:"distributor_id" db:"distributor_id"`
	Code          string     `json:"code" db:"code"`
	Name          string     `json:"name" db:"name"`
	CapacityKg    float64    `json:"capacity_kg" db:"capacity_kg"`
	Active        bool       `json:"active" db:"active"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// DailyInventorySummary is the per (date, cylinder type, distributor) stock row.
// Fields up to Status are derived by the population service; the unaccounted
// block is entered manually and survives re-population.
type DailyInventorySummary struct {
	ID             int64     `json:"id" db:"id"`
	SummaryDate    time.Time `json:"summary_date" db:"summary_date"`
	CylinderTypeID int64     `json:"cylinder_type_id" db:"cylinder_type_id"`
	DistributorID  int64     `json:"distributor_id" db:"distributor_id"`

	OpeningFulls         int `json:"opening_fulls" db:"opening_fulls"`
	OpeningEmpties       int `json:"opening_empties" db:"opening_empties"`
	ReceivedFromCorpQty  int `json:"received_from_corp_qty" db:"received_from_corp_qty"`
	SentToCorpQty        int `json:"sent_to_corp_qty" db:"sent_to_corp_qty"`
	EmptiesSentToCorpQty int `json:"empties_sent_to_corp_qty" db:"empties_sent_to_corp_qty"`
	DeliveredQty         int `json:"delivered_qty" db:"delivered_qty"`
	CollectedEmptiesQty  int `json:"collected_empties_qty" db:"collected_empties_qty"`
	SoftBlockedQty       int `json:"soft_blocked_qty" db:"soft_blocked_qty"`
	CancelledStock       int `json:"cancelled_stock" db:"cancelled_stock"`
	ClosingFulls         int `json:"closing_fulls" db:"closing_fulls"`
	ClosingEmpties       int `json:"closing_empties" db:"closing_empties"`

	Status SummaryStatus `json:"status" db:"status"`

	CustomerUnaccounted  int     `json:"customer_unaccounted" db:"customer_unaccounted"`
	InventoryUnaccounted int     `json:"inventory_unaccounted" db:"inventory_unaccounted"`
	UnaccountedReason    *string `json:"unaccounted_reason,omitempty" db:"unaccounted_reason"`
	ResponsibleParty     *string `json:"responsible_party,omitempty" db:"responsible_party"`
	ResponsibleRole      *string `json:"responsible_role,omitempty" db:"responsible_role"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Movements are the system-derived quantities for one cylinder type on one day.
type Movements struct {
	ReceivedFromCorp  int `json:"received_from_corp" db:"received_from_corp"`
	SentToCorp        int `json:"sent_to_corp" db:"sent_to_corp"`
	EmptiesSentToCorp int `json:"empties_sent_to_corp" db:"empties_sent_to_corp"`
	Delivered         int `json:"delivered" db:"delivered"`
	CollectedEmpties  int `json:"collected_empties" db:"collected_empties"`
	SoftBlocked       int `json:"soft_blocked" db:"soft_blocked"`
	Cancelled         int `json:"cancelled" db:"cancelled"`
}

// Add merges two movement sets.
func (m Movements) Add(o Movements) Movements {
	return Movements{
		ReceivedFromCorp:  m.ReceivedFromCorp + o.ReceivedFromCorp,
		SentToCorp:        m.SentToCorp + o.SentToCorp,
		EmptiesSentToCorp: m.EmptiesSentToCorp + o.EmptiesSentToCorp,
		Delivered:         m.Delivered + o.Delivered,
		CollectedEmpties:  m.CollectedEmpties + o.CollectedEmpties,
		SoftBlocked:       m.SoftBlocked + o.SoftBlocked,
		Cancelled:         m.Cancelled + o.Cancelled,
	}
}

// Order is a customer order; only the fields the inventory engine reads.
type Order struct {
	ID            int64       `json:"id" db:"id"`
	DistributorID int64       `json:"distributor_id" db:"distributor_id"`
	DeliveryDate  time.Time   `json:"delivery_date" db:"delivery_date"`
	Status        OrderStatus `json:"status" db:"status"`
	Items         []OrderItem `json:"items" db:"-"`
}

type OrderItem struct {
	OrderID          int64 `json:"order_id" db:"order_id"`
	CylinderTypeID   int64 `json:"cylinder_type_id" db:"cylinder_type_id"`
	Quantity         int   `json:"quantity" db:"quantity"`
	EmptiesCollected int   `json:"empties_collected" db:"empties_collected"`
}

// CorpExchange is one challan line exchanged with the upstream corporation.
type CorpExchange struct {
	ID             int64     `json:"id" db:"id"`
	DistributorID  int64     `json:"distributor_id" db:"distributor_id"`
	CylinderTypeID int64     `json:"cylinder_type_id" db:"cylinder_type_id"`
	ExchangeDate   time.Time `json:"exchange_date" db:"exchange_date"`
	Reference      string    `json:"reference" db:"reference"`
	ReceivedFulls  int       `json:"received_fulls" db:"received_fulls"`
	SentFulls      int       `json:"sent_fulls" db:"sent_fulls"`
	SentEmpties    int       `json:"sent_empties" db:"sent_empties"`
}

const ReplenishmentStatusPending = "pending"

// ReplenishmentRequest asks the corporation for more full cylinders.
type ReplenishmentRequest struct {
	ID             int64     `json:"id" db:"id"`
	DistributorID  int64     `json:"distributor_id" db:"distributor_id"`
	CylinderTypeID int64     `json:"cylinder_type_id" db:"cylinder_type_id"`
	RequestDate    time.Time `json:"request_date" db:"request_date"`
	RequestedQty   int       `json:"requested_qty" db:"requested_qty"`
	CurrentStock   int       `json:"current_stock" db:"current_stock"`
	Threshold      int       `json:"threshold" db:"threshold"`
	Status         string    `json:"status" db:"status"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// UnaccountedEntry is a manually logged discrepancy.
type UnaccountedEntry struct {
	ID               int64           `json:"id" db:"id"`
	DistributorID    int64           `json:"distributor_id" db:"distributor_id"`
	CylinderTypeID   int64           `json:"cylinder_type_id" db:"cylinder_type_id"`
	EntryDate        time.Time       `json:"entry_date" db:"entry_date"`
	Kind             UnaccountedKind `json:"kind" db:"kind"`
	Quantity         int             `json:"quantity" db:"quantity"`
	Reason           string          `json:"reason" db:"reason"`
	ResponsibleParty string          `json:"responsible_party" db:"responsible_party"`
	ResponsibleRole  ResponsibleRole `json:"responsible_role" db:"responsible_role"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
}
