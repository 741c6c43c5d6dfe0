package service

import (
	"context"
	"encoding/hex"
	"errors"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/iliyamo/farmhub/internal/model"
	"github.com/iliyamo/farmhub/internal/repository"
)

// resolveOrderTransition finds the transition for event on an order in
// status, fired by party.  A caller outside the order is ErrForbidden, an
// event not allowed from status is ErrInvalidTransition and the right
// event fired by the wrong side is ErrForbidden.
func resolveOrderTransition(status model.OrderStatus, party model.Party, ev model.OrderEvent) (model.OrderTransition, error) {
	if party == 0 {
		return model.OrderTransition{}, repository.ErrForbidden
	}
	t, ok := model.NextOrderTransition(status, ev)
	if !ok {
		return model.OrderTransition{}, repository.ErrInvalidTransition
	}
	if t.Actor != party {
		return model.OrderTransition{}, repository.ErrForbidden
	}
	return t, nil
}

// StockAdjuster is the part of a listing store an order transition
// needs.  L is the listing type.
type StockAdjuster[L any] interface {
	GetForUpdate(ctx context.Context, tx repository.DBTX, id uint64) (L, error)
	AdjustStock(ctx context.Context, q repository.DBTX, id uint64, delta float64) error
}

// applyStockEffect moves quantity out of or back into the listing inside
// tx.  Decrements lock the listing first so a missing listing is
// ErrNotFound rather than ErrInsufficientStock.
func applyStockEffect[L any](ctx context.Context, tx repository.DBTX, stock StockAdjuster[L], effect model.StockEffect, listingID uint64, quantity float64) error {
	switch effect {
	case model.StockDecrement:
		if _, err := stock.GetForUpdate(ctx, tx, listingID); err != nil {
			return err
		}
		return stock.AdjustStock(ctx, tx, listingID, -quantity)
	case model.StockRestore:
		return stock.AdjustStock(ctx, tx, listingID, quantity)
	}
	return nil
}

// transitionReason keeps the reason only for reject and cancel.
func transitionReason(t model.OrderTransition, in TransitionInput) *string {
	if t.To == model.OrderRejected || t.To == model.OrderCancelled {
		return trimmed(in.Reason)
	}
	return nil
}

// newOrderNumber returns prefix + "-" + 8 upper-case hex digits.
func newOrderNumber(prefix string) string {
	u := uuid.New()
	return prefix + "-" + strings.ToUpper(hex.EncodeToString(u[:4]))
}

// withOrderNumber retries create while the generated number collides.
func withOrderNumber(prefix string, create func(number string) error) error {
	var err error
	for i := 0; i < 3; i++ {
		if err = create(newOrderNumber(prefix)); !errors.Is(err, repository.ErrConflict) {
			return err
		}
	}
	return err
}

// totalCents prices quantity at unitCents, rounded to the nearest cent.
func totalCents(unitCents int64, quantity float64) int64 {
	return int64(math.Round(float64(unitCents) * quantity))
}

// OrderInput is the body of POST /supply_chain/orders and
// POST /marketplace/orders.
type OrderInput struct {
	ListingID       uint64  `json:"listing_id"`
	Quantity        float64 `json:"quantity"`
	DeliveryAddress *string `json:"delivery_address"`
	Notes           *string `json:"notes"`
}

func (in OrderInput) validate() error {
	v := &validator{}
	v.check(in.ListingID > 0, "listing_id is required")
	v.check(in.Quantity > 0, "quantity must be greater than 0")
	return v.err()
}

// TransitionInput carries the optional reason sent with reject and
// cancel.
type TransitionInput struct {
	Reason *string `json:"reason"`
}

// ListingInput is used for create (Name, Unit, PriceCents and
// QuantityAvailable required) and partial update of both listing kinds.
type ListingInput struct {
	Name              *string  `json:"name"`
	Category          *string  `json:"category"`
	Description       *string  `json:"description"`
	Unit              *string  `json:"unit"`
	PriceCents        *int64   `json:"price_cents"`
	QuantityAvailable *float64 `json:"quantity_available"`
	Status            *string  `json:"status"`
}

// listingFields is the subset of listing columns ListingInput edits.
type listingFields struct {
	Name, Category, Unit, Status *string
	Description                  **string
	PriceCents                   *int64
	QuantityAvailable            *float64
}

func (in ListingInput) apply(f listingFields, creating bool) error {
	v := &validator{}
	if creating || in.Name != nil {
		v.check(str(in.Name) != "", "name is required")
		*f.Name = str(in.Name)
	}
	if creating || in.Category != nil {
		c := strings.ToLower(str(in.Category))
		if c == "" {
			c = "general"
		}
		*f.Category = c
	}
	if in.Description != nil {
		*f.Description = trimmed(in.Description)
	}
	if creating || in.Unit != nil {
		v.check(str(in.Unit) != "", "unit is required")
		*f.Unit = str(in.Unit)
	}
	if creating || in.PriceCents != nil {
		v.check(in.PriceCents != nil && *in.PriceCents >= 0, "price_cents must be 0 or more")
		if in.PriceCents != nil {
			*f.PriceCents = *in.PriceCents
		}
	}
	if creating || in.QuantityAvailable != nil {
		v.check(in.QuantityAvailable != nil && *in.QuantityAvailable >= 0, "quantity_available must be 0 or more")
		if in.QuantityAvailable != nil {
			*f.QuantityAvailable = *in.QuantityAvailable
		}
	}
	if creating && in.Status == nil {
		*f.Status = model.ListingActive
	} else if in.Status != nil {
		st := strings.ToLower(str(in.Status))
		v.check(st == model.ListingActive || st == model.ListingInactive, "status must be active or inactive")
		*f.Status = st
	}
	return v.err()
}

// ParseParty maps the ?as= query value; anything but "seller" is the
// buyer view.
func ParseParty(s string) model.Party {
	if strings.EqualFold(s, "seller") || strings.EqualFold(s, "supplier") {
		return model.PartySeller
	}
	return model.PartyBuyer
}
