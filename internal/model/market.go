package model

import "time"

// ProductListing is farm produce offered on the marketplace.
type ProductListing struct {
	ID                uint64    `json:"id"`
	FarmerID          uint64    `json:"farmer_id"`
	HarvestID         *uint64   `json:"harvest_id,omitempty"`
	Name              string    `json:"name"`
	Category          string    `json:"category"`
	Description       *string   `json:"description,omitempty"`
	Unit              string    `json:"unit"`
	PriceCents        int64     `json:"price_cents"`
	QuantityAvailable float64   `json:"quantity_available"`
	Status            string    `json:"status"`
	RatingSum         int       `json:"-"`
	RatingCount       int       `json:"rating_count"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// AverageRating is rating_sum / rating_count, or 0 without ratings.
func (l ProductListing) AverageRating() float64 {
	if l.RatingCount == 0 {
		return 0
	}
	return float64(l.RatingSum) / float64(l.RatingCount)
}

// ProductOrder is a purchase against a product listing.
type ProductOrder struct {
	ID              uint64      `json:"id"`
	OrderNumber     string      `json:"order_number"`
	ListingID       uint64      `json:"listing_id"`
	BuyerID         uint64      `json:"buyer_id"`
	SellerID        uint64      `json:"seller_id"`
	Quantity        float64     `json:"quantity"`
	UnitPriceCents  int64       `json:"unit_price_cents"`
	TotalCents      int64       `json:"total_cents"`
	Status          OrderStatus `json:"status"`
	DeliveryAddress *string     `json:"delivery_address,omitempty"`
	Notes           *string     `json:"notes,omitempty"`
	RejectionReason *string     `json:"rejection_reason,omitempty"`
	Rating          *int        `json:"rating,omitempty"`
	Review          *string     `json:"review,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// PartyOf returns which side of the order userID is on.
func (o ProductOrder) PartyOf(userID uint64) Party {
	switch userID {
	case o.BuyerID:
		return PartyBuyer
	case o.SellerID:
		return PartySeller
	}
	return 0
}

// ValidRating reports whether r is within the 1–5 star range.
func ValidRating(r int) bool { return r >= 1 && r <= 5 }
