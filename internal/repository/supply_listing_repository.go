package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/farmhub/internal/model"
)

// SupplyListingRepo persists supplier listings.
type SupplyListingRepo struct{ db *sql.DB }

func NewSupplyListingRepo(db *sql.DB) *SupplyListingRepo { return &SupplyListingRepo{db: db} }

// ListingFilter narrows browse queries on both listing tables.
type ListingFilter struct {
	OwnerID  uint64 // 0 = any owner
	Status   string // "" = any status
	Category string
	Query    string // substring match on name/description
}

const supplyListingCols = "id, supplier_id, name, category, description, unit, price_cents, quantity_available, status, created_at, updated_at"

func scanSupplyListing(s scanner) (model.SupplyListing, error) {
	var l model.SupplyListing
	err := s.Scan(&l.ID, &l.SupplierID, &l.Name, &l.Category, &l.Description, &l.Unit,
		&l.PriceCents, &l.QuantityAvailable, &l.Status, &l.CreatedAt, &l.UpdatedAt)
	return l, err
}

func (r *SupplyListingRepo) Create(ctx context.Context, l *model.SupplyListing) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO supply_listings (supplier_id, name, category, description, unit, price_cents, quantity_available, status)
		 VALUES (?,?,?,?,?,?,?,?)`,
		l.SupplierID, l.Name, l.Category, l.Description, l.Unit, l.PriceCents, l.QuantityAvailable, l.Status)
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

// Get loads a listing through q.
func (r *SupplyListingRepo) Get(ctx context.Context, q DBTX, id uint64) (model.SupplyListing, error) {
	l, err := scanSupplyListing(orDB(q, r.db).QueryRowContext(ctx,
		"SELECT "+supplyListingCols+" FROM supply_listings WHERE id=?", id))
	return l, notFound(err)
}

// GetForUpdate loads and row-locks a listing inside tx.
func (r *SupplyListingRepo) GetForUpdate(ctx context.Context, tx DBTX, id uint64) (model.SupplyListing, error) {
	l, err := scanSupplyListing(orDB(tx, r.db).QueryRowContext(ctx,
		"SELECT "+supplyListingCols+" FROM supply_listings WHERE id=? FOR UPDATE", id))
	return l, notFound(err)
}

func listingWhere(ownerCol string, f ListingFilter) *where {
	w := &where{}
	if f.OwnerID != 0 {
		w.add(ownerCol+" = ?", f.OwnerID)
	}
	if f.Status != "" {
		w.add("status = ?", f.Status)
	}
	if f.Category != "" {
		w.add("category = ?", f.Category)
	}
	if f.Query != "" {
		pat := likePattern(f.Query)
		w.add("(name LIKE ? OR description LIKE ?)", pat, pat)
	}
	return w
}

// List returns one page of listings matching f, newest first.
func (r *SupplyListingRepo) List(ctx context.Context, f ListingFilter, p model.Page) ([]model.SupplyListing, int, error) {
	w := listingWhere("supplier_id", f)
	total, err := count(ctx, r.db, "supply_listings", w)
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+supplyListingCols+" FROM supply_listings"+w.String()+" ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		pageArgs(w.args, p)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := make([]model.SupplyListing, 0)
	for rows.Next() {
		l, err := scanSupplyListing(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, l)
	}
	return out, total, rows.Err()
}

func (r *SupplyListingRepo) Update(ctx context.Context, q DBTX, l model.SupplyListing) error {
	_, err := orDB(q, r.db).ExecContext(ctx,
		`UPDATE supply_listings SET name=?, category=?, description=?, unit=?, price_cents=?, quantity_available=?, status=?
		 WHERE id=?`,
		l.Name, l.Category, l.Description, l.Unit, l.PriceCents, l.QuantityAvailable, l.Status, l.ID)
	return err
}

// AdjustStock adds delta (negative to take stock) to quantity_available.
// A change that would go below zero is refused with ErrInsufficientStock.
func (r *SupplyListingRepo) AdjustStock(ctx context.Context, q DBTX, id uint64, delta float64) error {
	res, err := orDB(q, r.db).ExecContext(ctx,
		`UPDATE supply_listings SET quantity_available = quantity_available + ?
		 WHERE id=? AND quantity_available + ? >= 0`,
		delta, id, delta)
	if err = mustAffect(res, err); errors.Is(err, ErrNotFound) {
		return ErrInsufficientStock
	}
	return err
}

// Delete removes a listing that has no open orders; otherwise it returns
// ErrConflict.
func (r *SupplyListingRepo) Delete(ctx context.Context, id uint64) error {
	var open int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM supply_orders WHERE listing_id=? AND status IN ('pending','confirmed','shipped','delivered')",
		id).Scan(&open)
	if err != nil {
		return err
	}
	if open > 0 {
		return ErrConflict
	}
	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM supply_orders WHERE listing_id=?", id).Scan(&total); err != nil {
		return err
	}
	if total > 0 {
		// Keep history intact; closed orders still point at the listing.
		return mustAffect(r.db.ExecContext(ctx, "UPDATE supply_listings SET status='inactive' WHERE id=?", id))
	}
	return mustAffect(r.db.ExecContext(ctx, "DELETE FROM supply_listings WHERE id=?", id))
}
