package domain

import "strings"

// OrderStatus is the lifecycle state of a customer order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

var orderStatusLabels = map[OrderStatus]string{
	OrderStatusPending:    "Pending",
	OrderStatusProcessing: "Processing",
	OrderStatusDelivered:  "Delivered",
	OrderStatusCancelled:  "Cancelled",
}

// OrderStatusLabel returns a human-readable label for an order status.
func OrderStatusLabel(status OrderStatus) string {
	if label, ok := orderStatusLabels[status]; ok {
		return label
	}

	return "Unknown"
}

// ParseOrderStatus returns the status for a given label (case-insensitive).
// "canceled" is accepted as an alias.
func ParseOrderStatus(label string) (OrderStatus, bool) {
	normalized := strings.ToLower(strings.TrimSpace(label))
	if normalized == "canceled" {
		normalized = string(OrderStatusCancelled)
	}
	status := OrderStatus(normalized)
	_, ok := orderStatusLabels[status]

	return status, ok
}

// IsSoftBlocking reports whether the order still reserves full cylinders.
func (s OrderStatus) IsSoftBlocking() bool {
	return s == OrderStatusPending || s == OrderStatusProcessing
}

// ResponsibleRole identifies who is answerable for an unaccounted quantity.
type ResponsibleRole string

const (
	RoleDriver         ResponsibleRole = "driver"
	RoleInventoryStaff ResponsibleRole = "inventory_staff"
)

func (r ResponsibleRole) Valid() bool {
	return r == RoleDriver || r == RoleInventoryStaff
}

// UnaccountedKind says which manual column an entry lands in.
type UnaccountedKind string

const (
	UnaccountedCustomer  UnaccountedKind = "customer"
	UnaccountedInventory UnaccountedKind = "inventory"
)

func (k UnaccountedKind) Valid() bool {
	return k == UnaccountedCustomer || k == UnaccountedInventory
}
