package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/farmhub/internal/model"
)

// ProductOrderRepo persists marketplace orders.
type ProductOrderRepo struct{ db *sql.DB }

func NewProductOrderRepo(db *sql.DB) *ProductOrderRepo { return &ProductOrderRepo{db: db} }

const productOrderCols = `id, order_number, listing_id, buyer_id, seller_id, quantity, unit_price_cents, total_cents,
	status, delivery_address, notes, rejection_reason, rating, review, created_at, updated_at`

func scanProductOrder(s scanner) (model.ProductOrder, error) {
	var o model.ProductOrder
	err := s.Scan(&o.ID, &o.OrderNumber, &o.ListingID, &o.BuyerID, &o.SellerID, &o.Quantity,
		&o.UnitPriceCents, &o.TotalCents, &o.Status, &o.DeliveryAddress, &o.Notes, &o.RejectionReason,
		&o.Rating, &o.Review, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

func (r *ProductOrderRepo) Create(ctx context.Context, q DBTX, o *model.ProductOrder) error {
	res, err := orDB(q, r.db).ExecContext(ctx,
		`INSERT INTO product_orders (order_number, listing_id, buyer_id, seller_id, quantity, unit_price_cents,
		   total_cents, status, delivery_address, notes)
		 VALUES (?,?,?,?,?,?,?,?,?,?)`,
		o.OrderNumber, o.ListingID, o.BuyerID, o.SellerID, o.Quantity, o.UnitPriceCents, o.TotalCents,
		model.OrderPending, o.DeliveryAddress, o.Notes)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	id, err := insertID(res)
	if err != nil {
		return err
	}
	*o, err = r.Get(ctx, q, id)
	return err
}

func (r *ProductOrderRepo) Get(ctx context.Context, q DBTX, id uint64) (model.ProductOrder, error) {
	o, err := scanProductOrder(orDB(q, r.db).QueryRowContext(ctx, "SELECT "+productOrderCols+" FROM product_orders WHERE id=?", id))
	return o, notFound(err)
}

func (r *ProductOrderRepo) GetForUpdate(ctx context.Context, tx DBTX, id uint64) (model.ProductOrder, error) {
	o, err := scanProductOrder(orDB(tx, r.db).QueryRowContext(ctx,
		"SELECT "+productOrderCols+" FROM product_orders WHERE id=? FOR UPDATE", id))
	return o, notFound(err)
}

func (r *ProductOrderRepo) List(ctx context.Context, f OrderFilter, p model.Page) ([]model.ProductOrder, int, error) {
	w := &where{}
	if f.Party == model.PartySeller {
		w.add("seller_id = ?", f.UserID)
	} else {
		w.add("buyer_id = ?", f.UserID)
	}
	if f.Status != "" {
		w.add("status = ?", f.Status)
	}
	total, err := count(ctx, r.db, "product_orders", w)
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+productOrderCols+" FROM product_orders"+w.String()+" ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		pageArgs(w.args, p)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := make([]model.ProductOrder, 0)
	for rows.Next() {
		o, err := scanProductOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, o)
	}
	return out, total, rows.Err()
}

func (r *ProductOrderRepo) UpdateStatus(ctx context.Context, q DBTX, id uint64, status model.OrderStatus, reason *string) error {
	return mustAffect(orDB(q, r.db).ExecContext(ctx,
		"UPDATE product_orders SET status=?, rejection_reason=COALESCE(?, rejection_reason) WHERE id=?",
		status, reason, id))
}

// SetRating stores the buyer's rating once; a second attempt is
// ErrConflict.
func (r *ProductOrderRepo) SetRating(ctx context.Context, q DBTX, id uint64, rating int, review *string) error {
	res, err := orDB(q, r.db).ExecContext(ctx,
		"UPDATE product_orders SET rating=?, review=? WHERE id=? AND rating IS NULL",
		rating, review, id)
	if err = mustAffect(res, err); errors.Is(err, ErrNotFound) {
		return ErrConflict
	}
	return err
}
