package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/farmhub/internal/model"
	"github.com/iliyamo/farmhub/internal/repository"
)

const (
	sellerID = 50
	buyerID  = 51
)

type fakeProductListings struct {
	rows map[uint64]*model.ProductListing
	next uint64
}

func (f *fakeProductListings) Create(_ context.Context, l *model.ProductListing) error {
	f.next++
	l.ID = f.next
	c := *l
	f.rows[l.ID] = &c
	return nil
}

func (f *fakeProductListings) Get(_ context.Context, _ repository.DBTX, id uint64) (model.ProductListing, error) {
	l, ok := f.rows[id]
	if !ok {
		return model.ProductListing{}, repository.ErrNotFound
	}
	return *l, nil
}

func (f *fakeProductListings) GetForUpdate(ctx context.Context, tx repository.DBTX, id uint64) (model.ProductListing, error) {
	return f.Get(ctx, tx, id)
}

func (f *fakeProductListings) List(context.Context, repository.ListingFilter, model.Page) ([]model.ProductListing, int, error) {
	return nil, 0, nil
}

func (f *fakeProductListings) Update(_ context.Context, _ repository.DBTX, l model.ProductListing) error {
	f.rows[l.ID] = &l
	return nil
}

func (f *fakeProductListings) AdjustStock(_ context.Context, _ repository.DBTX, id uint64, delta float64) error {
	l, ok := f.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	if l.QuantityAvailable+delta < 0 {
		return repository.ErrInsufficientStock
	}
	l.QuantityAvailable += delta
	return nil
}

func (f *fakeProductListings) AddRating(_ context.Context, _ repository.DBTX, id uint64, rating int) error {
	l := f.rows[id]
	l.RatingSum += rating
	l.RatingCount++
	return nil
}

func (f *fakeProductListings) Delete(_ context.Context, id uint64) error {
	delete(f.rows, id)
	return nil
}

type fakeProductOrders struct {
	rows map[uint64]*model.ProductOrder
	next uint64
}

func (f *fakeProductOrders) Create(_ context.Context, _ repository.DBTX, o *model.ProductOrder) error {
	f.next++
	o.ID = f.next
	o.Status = model.OrderPending
	c := *o
	f.rows[o.ID] = &c
	return nil
}

func (f *fakeProductOrders) Get(_ context.Context, _ repository.DBTX, id uint64) (model.ProductOrder, error) {
	o, ok := f.rows[id]
	if !ok {
		return model.ProductOrder{}, repository.ErrNotFound
	}
	return *o, nil
}

func (f *fakeProductOrders) GetForUpdate(ctx context.Context, tx repository.DBTX, id uint64) (model.ProductOrder, error) {
	return f.Get(ctx, tx, id)
}

func (f *fakeProductOrders) List(context.Context, repository.OrderFilter, model.Page) ([]model.ProductOrder, int, error) {
	return nil, 0, nil
}

func (f *fakeProductOrders) UpdateStatus(_ context.Context, _ repository.DBTX, id uint64, st model.OrderStatus, reason *string) error {
	o := f.rows[id]
	o.Status = st
	if reason != nil {
		o.RejectionReason = reason
	}
	return nil
}

func (f *fakeProductOrders) SetRating(_ context.Context, _ repository.DBTX, id uint64, rating int, review *string) error {
	o := f.rows[id]
	if o.Rating != nil {
		return repository.ErrConflict
	}
	o.Rating, o.Review = &rating, review
	return nil
}

type marketFixture struct {
	svc      *MarketService
	listings *fakeProductListings
	orders   *fakeProductOrders
	harvests *farmHarvests
	notifier *recordingNotifier
	listing  model.ProductListing
}

func newMarketFixture(t *testing.T) *marketFixture {
	t.Helper()
	f := &marketFixture{
		listings: &fakeProductListings{rows: map[uint64]*model.ProductListing{}},
		orders:   &fakeProductOrders{rows: map[uint64]*model.ProductOrder{}},
		harvests: &farmHarvests{rows: map[uint64]*model.Harvest{}},
		notifier: &recordingNotifier{},
	}
	f.svc = NewMarketService(f.listings, f.orders, f.harvests, passTx{}, f.notifier, nopLog)
	name, unit, cat := "Beras Pandan Wangi", "kg", "Grain"
	price, qty := int64(1200), 50.0
	l, err := f.svc.CreateListing(context.Background(), sellerID, ProductListingInput{ListingInput: ListingInput{
		Name: &name, Unit: &unit, Category: &cat, PriceCents: &price, QuantityAvailable: &qty,
	}})
	require.NoError(t, err)
	f.listing = l
	return f
}

func (f *marketFixture) completedOrder(t *testing.T, qty float64) model.ProductOrder {
	t.Helper()
	ctx := context.Background()
	o, err := f.svc.PlaceOrder(ctx, buyerID, OrderInput{ListingID: f.listing.ID, Quantity: qty})
	require.NoError(t, err)
	steps := []struct {
		as uint64
		ev model.OrderEvent
	}{
		{sellerID, model.OrderEventConfirm},
		{sellerID, model.OrderEventShip},
		{sellerID, model.OrderEventDeliver},
		{buyerID, model.OrderEventComplete},
	}
	for _, s := range steps {
		o, err = f.svc.TransitionOrder(ctx, s.as, o.ID, s.ev, TransitionInput{})
		require.NoError(t, err, s.ev)
	}
	return o
}

func TestMarketListingHarvestMustBeOwn(t *testing.T) {
	f := newMarketFixture(t)
	ctx := context.Background()
	assert.Equal(t, "grain", f.listing.Category)

	mine := model.Harvest{OwnerID: sellerID, CropType: "rice"}
	require.NoError(t, f.harvests.Create(ctx, &mine))
	theirs := model.Harvest{OwnerID: buyerID, CropType: "maize"}
	require.NoError(t, f.harvests.Create(ctx, &theirs))

	_, err := f.svc.UpdateListing(ctx, sellerID, f.listing.ID, ProductListingInput{HarvestID: &theirs.ID})
	assert.ErrorIs(t, err, repository.ErrForbidden)

	l, err := f.svc.UpdateListing(ctx, sellerID, f.listing.ID, ProductListingInput{HarvestID: &mine.ID})
	require.NoError(t, err)
	require.NotNil(t, l.HarvestID)
	assert.Equal(t, mine.ID, *l.HarvestID)

	missing := uint64(99)
	_, err = f.svc.UpdateListing(ctx, sellerID, f.listing.ID, ProductListingInput{HarvestID: &missing})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	detach := uint64(0)
	l, err = f.svc.UpdateListing(ctx, sellerID, f.listing.ID, ProductListingInput{HarvestID: &detach})
	require.NoError(t, err)
	assert.Nil(t, l.HarvestID)

	_, err = f.svc.UpdateListing(ctx, buyerID, f.listing.ID, ProductListingInput{})
	assert.ErrorIs(t, err, repository.ErrForbidden)
}

func TestMarketPlaceOrder(t *testing.T) {
	f := newMarketFixture(t)
	ctx := context.Background()

	o, err := f.svc.PlaceOrder(ctx, buyerID, OrderInput{ListingID: f.listing.ID, Quantity: 2.5})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(o.OrderNumber, "PO-"))
	assert.Equal(t, int64(3000), o.TotalCents)
	assert.Len(t, f.notifier.to(sellerID), 1)

	_, err = f.svc.PlaceOrder(ctx, sellerID, OrderInput{ListingID: f.listing.ID, Quantity: 1})
	assert.ErrorIs(t, err, repository.ErrForbidden)
	_, err = f.svc.PlaceOrder(ctx, buyerID, OrderInput{ListingID: f.listing.ID, Quantity: 51})
	assert.ErrorIs(t, err, repository.ErrInsufficientStock)

	_, err = f.svc.GetOrder(ctx, outsiderID, o.ID)
	assert.ErrorIs(t, err, repository.ErrForbidden)
}

func TestMarketConfirmAndCancelMoveStock(t *testing.T) {
	f := newMarketFixture(t)
	ctx := context.Background()
	o, err := f.svc.PlaceOrder(ctx, buyerID, OrderInput{ListingID: f.listing.ID, Quantity: 20})
	require.NoError(t, err)

	_, err = f.svc.TransitionOrder(ctx, buyerID, o.ID, model.OrderEventConfirm, TransitionInput{})
	assert.ErrorIs(t, err, repository.ErrForbidden, "buyer cannot confirm")

	_, err = f.svc.TransitionOrder(ctx, sellerID, o.ID, model.OrderEventConfirm, TransitionInput{})
	require.NoError(t, err)
	assert.Equal(t, 30.0, f.listings.rows[f.listing.ID].QuantityAvailable)

	why := " changed plans "
	got, err := f.svc.TransitionOrder(ctx, buyerID, o.ID, model.OrderEventCancel, TransitionInput{Reason: &why})
	require.NoError(t, err)
	assert.Equal(t, model.OrderCancelled, got.Status)
	require.NotNil(t, got.RejectionReason)
	assert.Equal(t, "changed plans", *got.RejectionReason)
	assert.Equal(t, 50.0, f.listings.rows[f.listing.ID].QuantityAvailable)
}

func TestMarketRateOrder(t *testing.T) {
	f := newMarketFixture(t)
	ctx := context.Background()

	pending, err := f.svc.PlaceOrder(ctx, buyerID, OrderInput{ListingID: f.listing.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = f.svc.RateOrder(ctx, buyerID, pending.ID, RateInput{Rating: 4})
	assert.ErrorIs(t, err, repository.ErrInvalidTransition, "only completed orders")

	o := f.completedOrder(t, 5)
	assert.Equal(t, model.OrderCompleted, o.Status)

	var verr *ValidationError
	_, err = f.svc.RateOrder(ctx, buyerID, o.ID, RateInput{Rating: 6})
	assert.ErrorAs(t, err, &verr)
	_, err = f.svc.RateOrder(ctx, sellerID, o.ID, RateInput{Rating: 5})
	assert.ErrorIs(t, err, repository.ErrForbidden)

	rated, err := f.svc.RateOrder(ctx, buyerID, o.ID, RateInput{Rating: 4})
	require.NoError(t, err)
	require.NotNil(t, rated.Rating)
	assert.Equal(t, 4, *rated.Rating)

	l := f.listings.rows[f.listing.ID]
	assert.Equal(t, 4, l.RatingSum)
	assert.Equal(t, 1, l.RatingCount)

	_, err = f.svc.RateOrder(ctx, buyerID, o.ID, RateInput{Rating: 2})
	assert.ErrorIs(t, err, repository.ErrConflict)
	assert.Equal(t, 1, f.listings.rows[f.listing.ID].RatingCount)
}

func TestMarketGetInactiveListing(t *testing.T) {
	f := newMarketFixture(t)
	ctx := context.Background()
	off := "inactive"
	_, err := f.svc.UpdateListing(ctx, sellerID, f.listing.ID, ProductListingInput{ListingInput: ListingInput{Status: &off}})
	require.NoError(t, err)

	_, err = f.svc.GetListing(ctx, buyerID, f.listing.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = f.svc.GetListing(ctx, sellerID, f.listing.ID)
	assert.NoError(t, err)
	_, err = f.svc.PlaceOrder(ctx, buyerID, OrderInput{ListingID: f.listing.ID, Quantity: 1})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
