package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/farmhub/internal/model"
)

// ProductListingRepo persists marketplace listings.
type ProductListingRepo struct{ db *sql.DB }

func NewProductListingRepo(db *sql.DB) *ProductListingRepo { return &ProductListingRepo{db: db} }

const productListingCols = `id, farmer_id, harvest_id, name, category, description, unit, price_cents,
	quantity_available, status, rating_sum, rating_count, created_at, updated_at`

func scanProductListing(s scanner) (model.ProductListing, error) {
	var l model.ProductListing
	err := s.Scan(&l.ID, &l.FarmerID, &l.HarvestID, &l.Name, &l.Category, &l.Description, &l.Unit,
		&l.PriceCents, &l.QuantityAvailable, &l.Status, &l.RatingSum, &l.RatingCount, &l.CreatedAt, &l.UpdatedAt)
	return l, err
}

func (r *ProductListingRepo) Create(ctx context.Context, l *model.ProductListing) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO product_listings (farmer_id, harvest_id, name, category, description, unit, price_cents,
		   quantity_available, status)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		l.FarmerID, l.HarvestID, l.Name, l.Category, l.Description, l.Unit, l.PriceCents, l.QuantityAvailable, l.Status)
	if err != nil {
		return err
	}
	id, err := insertID(res)
	if err != nil {
		return err
	}
	*l, err = r.Get(ctx, r.db, id)
	return err
}

func (r *ProductListingRepo) Get(ctx context.Context, q DBTX, id uint64) (model.ProductListing, error) {
	l, err := scanProductListing(orDB(q, r.db).QueryRowContext(ctx,
		"SELECT "+productListingCols+" FROM product_listings WHERE id=?", id))
	return l, notFound(err)
}

func (r *ProductListingRepo) GetForUpdate(ctx context.Context, tx DBTX, id uint64) (model.ProductListing, error) {
	l, err := scanProductListing(orDB(tx, r.db).QueryRowContext(ctx,
		"SELECT "+productListingCols+" FROM product_listings WHERE id=? FOR UPDATE", id))
	return l, notFound(err)
}

// List returns one page of listings matching f, newest first.
func (r *ProductListingRepo) List(ctx context.Context, f ListingFilter, p model.Page) ([]model.ProductListing, int, error) {
	w := listingWhere("farmer_id", f)
	total, err := count(ctx, r.db, "product_listings", w)
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+productListingCols+" FROM product_listings"+w.String()+" ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		pageArgs(w.args, p)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := make([]model.ProductListing, 0)
	for rows.Next() {
		l, err := scanProductListing(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, l)
	}
	return out, total, rows.Err()
}

func (r *ProductListingRepo) Update(ctx context.Context, q DBTX, l model.ProductListing) error {
	_, err := orDB(q, r.db).ExecContext(ctx,
		`UPDATE product_listings SET harvest_id=?, name=?, category=?, description=?, unit=?, price_cents=?,
		   quantity_available=?, status=?
		 WHERE id=?`,
		l.HarvestID, l.Name, l.Category, l.Description, l.Unit, l.PriceCents, l.QuantityAvailable, l.Status, l.ID)
	return err
}

// AdjustStock adds delta to quantity_available, refusing to go negative.
func (r *ProductListingRepo) AdjustStock(ctx context.Context, q DBTX, id uint64, delta float64) error {
	res, err := orDB(q, r.db).ExecContext(ctx,
		`UPDATE product_listings SET quantity_available = quantity_available + ?
		 WHERE id=? AND quantity_available + ? >= 0`,
		delta, id, delta)
	if err = mustAffect(res, err); errors.Is(err, ErrNotFound) {
		return ErrInsufficientStock
	}
	return err
}

// AddRating folds one 1–5 rating into the listing aggregates.
func (r *ProductListingRepo) AddRating(ctx context.Context, q DBTX, id uint64, rating int) error {
	return mustAffect(orDB(q, r.db).ExecContext(ctx,
		"UPDATE product_listings SET rating_sum = rating_sum + ?, rating_count = rating_count + 1 WHERE id=?",
		rating, id))
}

// Delete removes a listing without open orders; listings with order
// history are deactivated instead.
func (r *ProductListingRepo) Delete(ctx context.Context, id uint64) error {
	var open, total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(status IN ('pending','confirmed','shipped','delivered')), 0), COUNT(*)
		 FROM product_orders WHERE listing_id=?`, id).Scan(&open, &total)
	if err != nil {
		return err
	}
	if open > 0 {
		return ErrConflict
	}
	if total > 0 {
		return mustAffect(r.db.ExecContext(ctx, "UPDATE product_listings SET status='inactive' WHERE id=?", id))
	}
	return mustAffect(r.db.ExecContext(ctx, "DELETE FROM product_listings WHERE id=?", id))
}
