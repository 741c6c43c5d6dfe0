package model

import "time"

// Notification kinds.  Kind is informational; clients use it to pick an
// icon or a deep link together with ResourceType/ResourceID.
const (
	NotifySupplyOrder  = "supply_order"
	NotifyProductOrder = "product_order"
	NotifyLabor        = "labor"
	NotifyExchange     = "labor_exchange"
	NotifyLowStock     = "low_stock"
)

// Notification is a message surfaced to a single user.
type Notification struct {
	ID           uint64     `json:"id"`
	UserID       uint64     `json:"user_id"`
	Kind         string     `json:"kind"`
	Title        string     `json:"title"`
	Message      string     `json:"message"`
	ResourceType *string    `json:"resource_type,omitempty"`
	ResourceID   *uint64    `json:"resource_id,omitempty"`
	ReadAt       *time.Time `json:"read_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Read reports whether the notification has been marked read.
func (n Notification) Read() bool { return n.ReadAt != nil }
