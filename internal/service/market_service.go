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

// ProductListingStore persists marketplace listings.
type ProductListingStore interface {
	Create(ctx context.Context, l *model.ProductListing) error
	Get(ctx context.Context, q repository.DBTX, id uint64) (model.ProductListing, error)
	GetForUpdate(ctx context.Context, tx repository.DBTX, id uint64) (model.ProductListing, error)
	List(ctx context.Context, f repository.ListingFilter, p model.Page) ([]model.ProductListing, int, error)
	Update(ctx context.Context, q repository.DBTX, l model.ProductListing) error
	AdjustStock(ctx context.Context, q repository.DBTX, id uint64, delta float64) error
	AddRating(ctx context.Context, q repository.DBTX, id uint64, rating int) error
	Delete(ctx context.Context, id uint64) error
}

// ProductOrderStore persists marketplace orders.
type ProductOrderStore interface {
	Create(ctx context.Context, q repository.DBTX, o *model.ProductOrder) error
	Get(ctx context.Context, q repository.DBTX, id uint64) (model.ProductOrder, error)
	GetForUpdate(ctx context.Context, tx repository.DBTX, id uint64) (model.ProductOrder, error)
	List(ctx context.Context, f repository.OrderFilter, p model.Page) ([]model.ProductOrder, int, error)
	UpdateStatus(ctx context.Context, q repository.DBTX, id uint64, status model.OrderStatus, reason *string) error
	SetRating(ctx context.Context, q repository.DBTX, id uint64, rating int, review *string) error
}

// HarvestLookup resolves the harvest a product listing is made from.
type HarvestLookup interface {
	GetByID(ctx context.Context, id uint64) (model.Harvest, error)
}

// MarketService implements the marketplace module.
type MarketService struct {
	listings ProductListingStore
	orders   ProductOrderStore
	harvests HarvestLookup
	tx       database.TxRunner
	notifier Notifier
	log      *zap.Logger
}

func NewMarketService(listings ProductListingStore, orders ProductOrderStore, harvests HarvestLookup,
	tx database.TxRunner, n Notifier, log *zap.Logger) *MarketService {
	return &MarketService{listings: listings, orders: orders, harvests: harvests, tx: tx, notifier: n, log: log}
}

// ProductListingInput extends ListingInput with the source harvest.  A
// harvest_id of 0 on update detaches the harvest.
type ProductListingInput struct {
	ListingInput
	HarvestID *uint64 `json:"harvest_id"`
}

func (s *MarketService) apply(ctx context.Context, farmerID uint64, in ProductListingInput, l *model.ProductListing, creating bool) error {
	if in.HarvestID != nil {
		if *in.HarvestID == 0 {
			l.HarvestID = nil
		} else {
			h, err := s.harvests.GetByID(ctx, *in.HarvestID)
			if err != nil {
				return err
			}
			if h.OwnerID != farmerID {
				return repository.ErrForbidden
			}
			hid := h.ID
			l.HarvestID = &hid
		}
	}
	return in.ListingInput.apply(listingFields{
		Name: &l.Name, Category: &l.Category, Unit: &l.Unit, Status: &l.Status,
		Description: &l.Description, PriceCents: &l.PriceCents, QuantityAvailable: &l.QuantityAvailable,
	}, creating)
}

func (s *MarketService) CreateListing(ctx context.Context, farmerID uint64, in ProductListingInput) (model.ProductListing, error) {
	l := model.ProductListing{FarmerID: farmerID}
	if err := s.apply(ctx, farmerID, in, &l, true); err != nil {
		return model.ProductListing{}, err
	}
	if err := s.listings.Create(ctx, &l); err != nil {
		return model.ProductListing{}, err
	}
	return l, nil
}

// GetListing returns an active listing, or any listing to its farmer.
func (s *MarketService) GetListing(ctx context.Context, userID, id uint64) (model.ProductListing, error) {
	l, err := s.listings.Get(ctx, nil, id)
	if err != nil {
		return model.ProductListing{}, err
	}
	if l.Status != model.ListingActive && l.FarmerID != userID {
		return model.ProductListing{}, repository.ErrNotFound
	}
	return l, nil
}

func (s *MarketService) BrowseListings(ctx context.Context, f repository.ListingFilter, p model.Page) ([]model.ProductListing, int, error) {
	f.OwnerID = 0
	f.Status = model.ListingActive
	return s.listings.List(ctx, f, p)
}

func (s *MarketService) MyListings(ctx context.Context, farmerID uint64, f repository.ListingFilter, p model.Page) ([]model.ProductListing, int, error) {
	f.OwnerID = farmerID
	return s.listings.List(ctx, f, p)
}

func (s *MarketService) UpdateListing(ctx context.Context, farmerID, id uint64, in ProductListingInput) (model.ProductListing, error) {
	err := s.tx.WithTx(ctx, func(tx *sql.Tx) error {
		l, err := s.listings.GetForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if l.FarmerID != farmerID {
			return repository.ErrForbidden
		}
		if err := s.apply(ctx, farmerID, in, &l, false); err != nil {
			return err
		}
		return s.listings.Update(ctx, tx, l)
	})
	if err != nil {
		return model.ProductListing{}, err
	}
	return s.listings.Get(ctx, nil, id)
}

func (s *MarketService) DeleteListing(ctx context.Context, farmerID, id uint64) error {
	l, err := s.listings.Get(ctx, nil, id)
	if err != nil {
		return err
	}
	if l.FarmerID != farmerID {
		return repository.ErrForbidden
	}
	return s.listings.Delete(ctx, id)
}

// PlaceOrder creates a pending order.  Any authenticated user other than
// the listing's farmer may buy.
func (s *MarketService) PlaceOrder(ctx context.Context, buyerID uint64, in OrderInput) (model.ProductOrder, error) {
	if err := in.validate(); err != nil {
		return model.ProductOrder{}, err
	}
	var o model.ProductOrder
	err := s.tx.WithTx(ctx, func(tx *sql.Tx) error {
		l, err := s.listings.Get(ctx, tx, in.ListingID)
		if err != nil {
			return err
		}
		if l.Status != model.ListingActive {
			return repository.ErrNotFound
		}
		if l.FarmerID == buyerID {
			return repository.ErrForbidden
		}
		if in.Quantity > l.QuantityAvailable {
			return repository.ErrInsufficientStock
		}
		return withOrderNumber("PO", func(number string) error {
			o = model.ProductOrder{
				OrderNumber:     number,
				ListingID:       l.ID,
				BuyerID:         buyerID,
				SellerID:        l.FarmerID,
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
		return model.ProductOrder{}, err
	}
	metrics.RecordOrderTransition("product", string(o.Status))
	notify(ctx, s.notifier, s.log, o.SellerID, model.NotifyProductOrder, "New marketplace order",
		fmt.Sprintf("Order %s for %g units.", o.OrderNumber, o.Quantity), "product_order", o.ID)
	return o, nil
}

func (s *MarketService) GetOrder(ctx context.Context, userID, id uint64) (model.ProductOrder, error) {
	o, err := s.orders.Get(ctx, nil, id)
	if err != nil {
		return model.ProductOrder{}, err
	}
	if o.PartyOf(userID) == 0 {
		return model.ProductOrder{}, repository.ErrForbidden
	}
	return o, nil
}

func (s *MarketService) ListOrders(ctx context.Context, userID uint64, party model.Party, status model.OrderStatus, p model.Page) ([]model.ProductOrder, int, error) {
	if status != "" && !status.Valid() {
		return nil, 0, &ValidationError{Errors: []string{"status is not a valid order status"}}
	}
	return s.orders.List(ctx, repository.OrderFilter{UserID: userID, Party: party, Status: status}, p)
}

// TransitionOrder fires ev on the order as userID with the same stock
// effects as supply orders.
func (s *MarketService) TransitionOrder(ctx context.Context, userID, id uint64, ev model.OrderEvent, in TransitionInput) (model.ProductOrder, error) {
	var (
		o model.ProductOrder
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
		if err := applyStockEffect[model.ProductListing](ctx, tx, s.listings, t.Effect, o.ListingID, o.Quantity); err != nil {
			return err
		}
		return s.orders.UpdateStatus(ctx, tx, id, t.To, transitionReason(t, in))
	})
	if err != nil {
		return model.ProductOrder{}, err
	}
	metrics.RecordOrderTransition("product", string(t.To))

	counterparty := o.SellerID
	if t.Actor == model.PartySeller {
		counterparty = o.BuyerID
	}
	notify(ctx, s.notifier, s.log, counterparty, model.NotifyProductOrder,
		fmt.Sprintf("Marketplace order %s", t.To),
		fmt.Sprintf("Order %s is now %s.", o.OrderNumber, t.To), "product_order", o.ID)
	return s.orders.Get(ctx, nil, id)
}

// RateInput is the body of the rate endpoints.
type RateInput struct {
	Rating int     `json:"rating"`
	Review *string `json:"review"`
}

// RateOrder stores the buyer's 1-5 rating on a completed order and folds
// it into the listing aggregates.  Each order is rated at most once.
func (s *MarketService) RateOrder(ctx context.Context, buyerID, id uint64, in RateInput) (model.ProductOrder, error) {
	if !model.ValidRating(in.Rating) {
		return model.ProductOrder{}, &ValidationError{Errors: []string{"rating must be between 1 and 5"}}
	}
	var o model.ProductOrder
	err := s.tx.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		if o, err = s.orders.GetForUpdate(ctx, tx, id); err != nil {
			return err
		}
		if o.BuyerID != buyerID {
			return repository.ErrForbidden
		}
		if o.Status != model.OrderCompleted {
			return repository.ErrInvalidTransition
		}
		if o.Rating != nil {
			return repository.ErrConflict
		}
		if err := s.orders.SetRating(ctx, tx, id, in.Rating, trimmed(in.Review)); err != nil {
			return err
		}
		return s.listings.AddRating(ctx, tx, o.ListingID, in.Rating)
	})
	if err != nil {
		return model.ProductOrder{}, err
	}
	notify(ctx, s.notifier, s.log, o.SellerID, model.NotifyProductOrder, "New rating",
		fmt.Sprintf("Order %s was rated %d/5.", o.OrderNumber, in.Rating), "product_order", o.ID)
	return s.orders.Get(ctx, nil, id)
}
