package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/farmhub/internal/model"
)

// SupplyOrderRepo persists supply orders.
type SupplyOrderRepo struct{ db *sql.DB }

func NewSupplyOrderRepo(db *sql.DB) *SupplyOrderRepo { return &SupplyOrderRepo{db: db} }

// OrderFilter narrows order listings.  Party selects whether UserID is
// matched against the buyer or the seller column.
type OrderFilter struct {
	UserID uint64
	Party  model.Party
	Status model.OrderStatus
}

const supplyOrderCols = `id, order_number, listing_id, buyer_id, supplier_id, item_name, unit, quantity,
	unit_price_cents, total_cents, status, delivery_address, notes, rejection_reason, created_at, updated_at`

func scanSupplyOrder(s scanner) (model.SupplyOrder, error) {
	var o model.SupplyOrder
	err := s.Scan(&o.ID, &o.OrderNumber, &o.ListingID, &o.BuyerID, &o.SupplierID, &o.ItemName, &o.Unit,
		&o.Quantity, &o.UnitPriceCents, &o.TotalCents, &o.Status, &o.DeliveryAddress, &o.Notes,
		&o.RejectionReason, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

// Create inserts o through q and reloads it.
func (r *SupplyOrderRepo) Create(ctx context.Context, q DBTX, o *model.SupplyOrder) error {
	res, err := orDB(q, r.db).ExecContext(ctx,
		`INSERT INTO supply_orders (order_number, listing_id, buyer_id, supplier_id, item_name, unit, quantity,
		   unit_price_cents, total_cents, status, delivery_address, notes)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		o.OrderNumber, o.ListingID, o.BuyerID, o.SupplierID, o.ItemName, o.Unit, o.Quantity,
		o.UnitPriceCents, o.TotalCents, model.OrderPending, o.DeliveryAddress, o.Notes)
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

func (r *SupplyOrderRepo) Get(ctx context.Context, q DBTX, id uint64) (model.SupplyOrder, error) {
	o, err := scanSupplyOrder(orDB(q, r.db).QueryRowContext(ctx, "SELECT "+supplyOrderCols+" FROM supply_orders WHERE id=?", id))
	return o, notFound(err)
}

// GetForUpdate loads and row-locks an order inside tx.
func (r *SupplyOrderRepo) GetForUpdate(ctx context.Context, tx DBTX, id uint64) (model.SupplyOrder, error) {
	o, err := scanSupplyOrder(orDB(tx, r.db).QueryRowContext(ctx,
		"SELECT "+supplyOrderCols+" FROM supply_orders WHERE id=? FOR UPDATE", id))
	return o, notFound(err)
}

// List returns one page of the user's orders on the chosen side, newest
// first.
func (r *SupplyOrderRepo) List(ctx context.Context, f OrderFilter, p model.Page) ([]model.SupplyOrder, int, error) {
	w := &where{}
	if f.Party == model.PartySeller {
		w.add("supplier_id = ?", f.UserID)
	} else {
		w.add("buyer_id = ?", f.UserID)
	}
	if f.Status != "" {
		w.add("status = ?", f.Status)
	}
	total, err := count(ctx, r.db, "supply_orders", w)
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+supplyOrderCols+" FROM supply_orders"+w.String()+" ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		pageArgs(w.args, p)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := make([]model.SupplyOrder, 0)
	for rows.Next() {
		o, err := scanSupplyOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, o)
	}
	return out, total, rows.Err()
}

// UpdateStatus writes the new status (and rejection reason when given)
// through q.
func (r *SupplyOrderRepo) UpdateStatus(ctx context.Context, q DBTX, id uint64, status model.OrderStatus, reason *string) error {
	return mustAffect(orDB(q, r.db).ExecContext(ctx,
		"UPDATE supply_orders SET status=?, rejection_reason=COALESCE(?, rejection_reason) WHERE id=?",
		status, reason, id))
}
