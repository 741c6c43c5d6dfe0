package service

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/iliyamo/farmhub/internal/database"
	"github.com/iliyamo/farmhub/internal/metrics"
	"github.com/iliyamo/farmhub/internal/model"
	"github.com/iliyamo/farmhub/internal/repository"
)

// SupplyListingStore persists supplier listings.
type SupplyListingStore interface {
	Create(ctx context.Context, l *model.SupplyListing) error
	Get(ctx context.Context, q repository.DBTX, id uint64) (model.SupplyListing, error)
	GetForUpdate(ctx context.Context, tx repository.DBTX, id uint64) (model.SupplyListing, error)
	List(ctx context.Context, f repository.ListingFilter, p model.Page) ([]model.SupplyListing, int, error)
	Update(ctx context.Context, q repository.DBTX, l model.SupplyListing) error
	AdjustStock(ctx context.Context, q repository.DBTX, id uint64, delta float64) error
	Delete(ctx context.Context, id uint64) error
}

// SupplyOrderStore persists supply orders.
type SupplyOrderStore interface {
	Create(ctx context.Context, q repository.DBTX, o *model.SupplyOrder) error
	Get(ctx context.Context, q repository.DBTX, id uint64) (model.SupplyOrder, error)
	GetForUpdate(ctx context.Context, tx repository.DBTX, id uint64) (model.SupplyOrder, error)
	List(ctx context.Context, f repository.OrderFilter, p model.Page) ([]model.SupplyOrder, int, error)
	UpdateStatus(ctx context.Context, q repository.DBTX, id uint64, status model.OrderStatus, reason *string) error
}

// InventoryStore books delivered supplies into a farmer's materials.
type InventoryStore interface {
	AddStock(ctx context.Context, q repository.DBTX, ownerID uint64, name, unit string, qty float64) error
}

// SupplyService implements the supply_chain module.
type SupplyService struct {
	listings  SupplyListingStore
	orders    SupplyOrderStore
	inventory InventoryStore
	tx        database.TxRunner
	notifier  Notifier
	log       *zap.Logger
}

func NewSupplyService(listings SupplyListingStore, orders SupplyOrderStore, inventory InventoryStore,
	tx database.TxRunner, n Notifier, log *zap.Logger) *SupplyService {
	return &SupplyService{listings: listings, orders: orders, inventory: inventory, tx: tx, notifier: n, log: log}
}

func supplyListingFields(l *model.SupplyListing) listingFields {
	return listingFields{
		Name: &l.Name, Category: &l.Category, Unit: &l.Unit, Status: &l.Status,
		Description: &l.Description, PriceCents: &l.PriceCents, QuantityAvailable: &l.QuantityAvailable,
	}
}

func (s *SupplyService) CreateListing(ctx context.Context, supplierID uint64, in ListingInput) (model.SupplyListing, error) {
	l := model.SupplyListing{SupplierID: supplierID}
	if err := in.apply(supplyListingFields(&l), true); err != nil {
		return model.SupplyListing{}, err
	}
	if err := s.listings.Create(ctx, &l); err != nil {
		return model.SupplyListing{}, err
	}
	return l, nil
}

// GetListing returns an active listing, or any listing to its owner.
func (s *SupplyService) GetListing(ctx context.Context, userID, id uint64) (model.SupplyListing, error) {
	l, err := s.listings.Get(ctx, nil, id)
	if err != nil {
		return model.SupplyListing{}, err
	}
	if l.Status != model.ListingActive && l.SupplierID != userID {
		return model.SupplyListing{}, repository.ErrNotFound
	}
	return l, nil
}

// BrowseListings lists active listings of every supplier.
func (s *SupplyService) BrowseListings(ctx context.Context, f repository.ListingFilter, p model.Page) ([]model.SupplyListing, int, error) {
	f.OwnerID = 0
	f.Status = model.ListingActive
	return s.listings.List(ctx, f, p)
}

// MyListings lists the supplier's own listings in any status.
func (s *SupplyService) MyListings(ctx context.Context, supplierID uint64, f repository.ListingFilter, p model.Page) ([]model.SupplyListing, int, error) {
	f.OwnerID = supplierID
	return s.listings.List(ctx, f, p)
}

func (s *SupplyService) UpdateListing(ctx context.Context, supplierID, id uint64, in ListingInput) (model.SupplyListing, error) {
	err := s.tx.WithTx(ctx, func(tx *sql.Tx) error {
		l, err := s.listings.GetForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if l.SupplierID != supplierID {
			return repository.ErrForbidden
		}
		if err := in.apply(supplyListingFields(&l), false); err != nil {
			return err
		}
		return s.listings.Update(ctx, tx, l)
	})
	if err != nil {
		return model.SupplyListing{}, err
	}
	return s.listings.Get(ctx, nil, id)
}

func (s *SupplyService) DeleteListing(ctx context.Context, supplierID, id uint64) error {
	l, err := s.listings.Get(ctx, nil, id)
	if err != nil {
		return err
	}
	if l.SupplierID != supplierID {
		return repository.ErrForbidden
	}
	return s.listings.Delete(ctx, id)
}

// PlaceOrder creates a pending order at the listing's current price.
// Stock is only taken when the supplier confirms.
func (s *SupplyService) PlaceOrder(ctx context.Context, buyerID uint64, in OrderInput) (model.SupplyOrder, error) {
	if err := in.validate(); err != nil {
		return model.SupplyOrder{}, err
	}
	var o model.SupplyOrder
	err := s.tx.WithTx(ctx, func(tx *sql.Tx) error {
		l, err := s.listings.Get(ctx, tx, in.ListingID)
		if err != nil {
			return err
		}
		if l.Status != model.ListingActive {
			return repository.ErrNotFound
		}
		if l.SupplierID == buyerID {
			return repository.ErrForbidden
		}
		if in.Quantity > l.QuantityAvailable {
			return repository.ErrInsufficientStock
		}
		return withOrderNumber("SO", func(number string) error {
			o = model.SupplyOrder{
				OrderNumber:     number,
				ListingID:       l.ID,
				BuyerID:         buyerID,
				SupplierID:      l.SupplierID,
				ItemName:        l.Name,
				Unit:            l.Unit,
				Quantity:        in.Quantity,
				UnitPriceCents:  l.PriceCents,
				TotalCents:      totalCents(l.PriceCents, in.Quantity),
				DeliveryAddress: trimmed(in.DeliveryAddress),
				Notes:           trimmed(in.Notes),
			}
			return s.orders.Create(ctx, tx, &o)
		})
	})
	if err != nil {
		return model.SupplyOrder{}, err
	}
	metrics.RecordOrderTransition("supply", string(o.Status))
	notify(ctx, s.notifier, s.log, o.SupplierID, model.NotifySupplyOrder, "New supply order",
		fmt.Sprintf("Order %s: %g %s of %s.", o.OrderNumber, o.Quantity, o.Unit, o.ItemName),
		"supply_order", o.ID)
	return o, nil
}

// GetOrder returns an order to its buyer or supplier.
func (s *SupplyService) GetOrder(ctx context.Context, userID, id uint64) (model.SupplyOrder, error) {
	o, err := s.orders.Get(ctx, nil, id)
	if err != nil {
		return model.SupplyOrder{}, err
	}
	if o.PartyOf(userID) == 0 {
		return model.SupplyOrder{}, repository.ErrForbidden
	}
	return o, nil
}

func (s *SupplyService) ListOrders(ctx context.Context, userID uint64, party model.Party, status model.OrderStatus, p model.Page) ([]model.SupplyOrder, int, error) {
	if status != "" && !status.Valid() {
		return nil, 0, &ValidationError{Errors: []string{"status is not a valid order status"}}
	}
	return s.orders.List(ctx, repository.OrderFilter{UserID: userID, Party: party, Status: status}, p)
}

// SupplyOrderResult is a transitioned order plus an optional non-fatal
// warning.
type SupplyOrderResult struct {
	Order   model.SupplyOrder
	Warning string
}

// TransitionOrder fires ev on the order as userID.  Stock effects run in
// the same transaction as the status change.  Completing an order books
// the goods into the buyer's materials afterwards; a failure there is
// reported as a warning and does not undo the completion.
func (s *SupplyService) TransitionOrder(ctx context.Context, userID, id uint64, ev model.OrderEvent, in TransitionInput) (SupplyOrderResult, error) {
	var (
		o model.SupplyOrder
		t model.OrderTransition
	)
	err := s.tx.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		if o, err = s.orders.GetForUpdate(ctx, tx, id); err != nil {
			return err
		}
		if t, err = resolveOrderTransition(o.Status, o.PartyOf(userID), ev); err != nil {
			return err
		}
		if err := applyStockEffect[model.SupplyListing](ctx, tx, s.listings, t.Effect, o.ListingID, o.Quantity); err != nil {
			return err
		}
		return s.orders.UpdateStatus(ctx, tx, id, t.To, transitionReason(t, in))
	})
	if err != nil {
		return SupplyOrderResult{}, err
	}
	metrics.RecordOrderTransition("supply", string(t.To))

	var res SupplyOrderResult
	if t.To == model.OrderCompleted {
		if err := s.inventory.AddStock(ctx, nil, o.BuyerID, o.ItemName, o.Unit, o.Quantity); err != nil {
			s.log.Warn("supply order completed but inventory update failed",
				zap.Uint64("order_id", o.ID), zap.Uint64("buyer_id", o.BuyerID), zap.Error(err))
			res.Warning = "order completed but the delivered goods could not be added to your materials"
		}
	}

	counterparty := o.SupplierID
	if t.Actor == model.PartySeller {
		counterparty = o.BuyerID
	}
	notify(ctx, s.notifier, s.log, counterparty, model.NotifySupplyOrder,
		fmt.Sprintf("Supply order %s", t.To),
		fmt.Sprintf("Order %s (%s) is now %s.", o.OrderNumber, o.ItemName, t.To),
		"supply_order", o.ID)

	res.Order, err = s.orders.Get(ctx, nil, id)
	return res, err
}
