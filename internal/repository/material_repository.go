package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/farmhub/internal/model"
)

// MaterialRepo persists farm material inventory.
type MaterialRepo struct{ db *sql.DB }

func NewMaterialRepo(db *sql.DB) *MaterialRepo { return &MaterialRepo{db: db} }

// DB exposes the handle so services can open transactions.
func (r *MaterialRepo) DB() *sql.DB { return r.db }

const materialCols = "id, owner_id, name, unit, quantity, min_quantity, created_at, updated_at"

func scanMaterial(s scanner) (model.FarmMaterial, error) {
	var m model.FarmMaterial
	err := s.Scan(&m.ID, &m.OwnerID, &m.Name, &m.Unit, &m.Quantity, &m.MinQuantity, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

// Create inserts m.  The (owner, name, unit) triple is unique; a clash is
// ErrConflict.
func (r *MaterialRepo) Create(ctx context.Context, m *model.FarmMaterial) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO farm_materials (owner_id, name, unit, quantity, min_quantity) VALUES (?,?,?,?,?)",
		m.OwnerID, m.Name, m.Unit, m.Quantity, m.MinQuantity)
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
	*m, err = r.Get(ctx, r.db, id)
	return err
}

// Get loads a material through q.
func (r *MaterialRepo) Get(ctx context.Context, q DBTX, id uint64) (model.FarmMaterial, error) {
	m, err := scanMaterial(orDB(q, r.db).QueryRowContext(ctx, "SELECT "+materialCols+" FROM farm_materials WHERE id=?", id))
	return m, notFound(err)
}

// GetForUpdate loads and row-locks a material inside tx.
func (r *MaterialRepo) GetForUpdate(ctx context.Context, tx DBTX, id uint64) (model.FarmMaterial, error) {
	m, err := scanMaterial(orDB(tx, r.db).QueryRowContext(ctx, "SELECT "+materialCols+" FROM farm_materials WHERE id=? FOR UPDATE", id))
	return m, notFound(err)
}

// ListByOwner returns one page of the owner's materials by name.  With
// lowOnly only rows below their threshold are returned.
func (r *MaterialRepo) ListByOwner(ctx context.Context, ownerID uint64, lowOnly bool, p model.Page) ([]model.FarmMaterial, int, error) {
	w := &where{}
	w.add("owner_id = ?", ownerID)
	if lowOnly {
		w.add("quantity < min_quantity")
	}
	total, err := count(ctx, r.db, "farm_materials", w)
	if err != nil {
		return nil, 0, err
	}
	out, err := r.query(ctx, "SELECT "+materialCols+" FROM farm_materials"+w.String()+
		" ORDER BY name, unit LIMIT ? OFFSET ?", pageArgs(w.args, p)...)
	return out, total, err
}

// ListLowStock returns every material across all owners that sits below
// its threshold.  Used by the daily material check.
func (r *MaterialRepo) ListLowStock(ctx context.Context) ([]model.FarmMaterial, error) {
	return r.query(ctx, "SELECT "+materialCols+" FROM farm_materials WHERE quantity < min_quantity ORDER BY owner_id, name")
}

func (r *MaterialRepo) query(ctx context.Context, q string, args ...any) ([]model.FarmMaterial, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.FarmMaterial, 0)
	for rows.Next() {
		m, err := scanMaterial(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *MaterialRepo) Update(ctx context.Context, m model.FarmMaterial) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE farm_materials SET name=?, unit=?, quantity=?, min_quantity=? WHERE id=?",
		m.Name, m.Unit, m.Quantity, m.MinQuantity, m.ID)
	if isDuplicate(err) {
		return ErrConflict
	}
	return err
}

// SetQuantity writes an absolute quantity through q.
func (r *MaterialRepo) SetQuantity(ctx context.Context, q DBTX, id uint64, qty float64) error {
	_, err := orDB(q, r.db).ExecContext(ctx, "UPDATE farm_materials SET quantity=? WHERE id=?", qty, id)
	return err
}

// AddStock books qty of (name, unit) into the owner's inventory,
// creating the material row on first delivery.
func (r *MaterialRepo) AddStock(ctx context.Context, q DBTX, ownerID uint64, name, unit string, qty float64) error {
	_, err := orDB(q, r.db).ExecContext(ctx,
		`INSERT INTO farm_materials (owner_id, name, unit, quantity, min_quantity) VALUES (?,?,?,?,0)
		 ON DUPLICATE KEY UPDATE quantity = quantity + VALUES(quantity)`,
		ownerID, name, unit, qty)
	return err
}

func (r *MaterialRepo) Delete(ctx context.Context, id uint64) error {
	return mustAffect(r.db.ExecContext(ctx, "DELETE FROM farm_materials WHERE id=?", id))
}
