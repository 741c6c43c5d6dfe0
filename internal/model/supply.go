package model

import "time"

// Listing status values shared by supply and product listings.
const (
	ListingActive   = "active"
	ListingInactive = "inactive"
)

// SupplyListing is an input (seed, fertilizer, tools) offered by a
// supplier.
type SupplyListing struct {
	ID                uint64    `json:"id"`
	SupplierID        uint64    `json:"supplier_id"`
	Name              string    `json:"name"`
	Category          string    `json:"category"`
	Description       *string   `json:"description,omitempty"`
	Unit              string    `json:"unit"`
	PriceCents        int64     `json:"price_cents"`
	QuantityAvailable float64   `json:"quantity_available"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// SupplyOrder is a farmer's purchase against a supply listing.  Name
// and unit are copied from the listing at order time so completion can
// book the goods into the farmer's materials.
type SupplyOrder struct {
	ID              uint64      `json:"id"`
	OrderNumber     string      `json:"order_number"`
	ListingID       uint64      `json:"listing_id"`
	BuyerID         uint64      `json:"buyer_id"`
	SupplierID      uint64      `json:"supplier_id"`
	ItemName        string      `json:"item_name"`
	Unit            string      `json:"unit"`
	Quantity        float64     `json:"quantity"`
	UnitPriceCents  int64       `json:"unit_price_cents"`
	TotalCents      int64       `json:"total_cents"`
	Status          OrderStatus `json:"status"`
	DeliveryAddress *string     `json:"delivery_address,omitempty"`
	Notes           *string     `json:"notes,omitempty"`
	RejectionReason *string     `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// PartyOf returns which side of the order userID is on, or 0 when the
// user is neither buyer nor supplier.
func (o SupplyOrder) PartyOf(userID uint64) Party {
	switch userID {
	case o.BuyerID:
		return PartyBuyer
	case o.SupplierID:
		return PartySeller
	}
	return 0
}
