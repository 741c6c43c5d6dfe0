package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/farmhub/internal/model"
)

// HarvestRepo persists harvest records.
type HarvestRepo struct{ db *sql.DB }

func NewHarvestRepo(db *sql.DB) *HarvestRepo { return &HarvestRepo{db: db} }

// HarvestFilter narrows HarvestRepo.List.  Zero values are ignored; From
// and To are inclusive dates.
type HarvestFilter struct {
	FieldID  uint64
	CropType string
	From     time.Time
	To       time.Time
}

const harvestCols = "id, owner_id, field_id, crop_type, quantity, unit, quality_grade, harvest_date, notes, created_at, updated_at"

func scanHarvest(s scanner) (model.Harvest, error) {
	var h model.Harvest
	err := s.Scan(&h.ID, &h.OwnerID, &h.FieldID, &h.CropType, &h.Quantity, &h.Unit,
		&h.QualityGrade, &h.HarvestDate, &h.Notes, &h.CreatedAt, &h.UpdatedAt)
	return h, err
}

func (r *HarvestRepo) Create(ctx context.Context, h *model.Harvest) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO harvests (owner_id, field_id, crop_type, quantity, unit, quality_grade, harvest_date, notes)
		 VALUES (?,?,?,?,?,?,?,?)`,
		h.OwnerID, h.FieldID, h.CropType, h.Quantity, h.Unit, h.QualityGrade, h.HarvestDate, h.Notes)
	if err != nil {
		return err
	}
	id, err := insertID(res)
	if err != nil {
		return err
	}
	*h, err = r.GetByID(ctx, id)
	return err
}

func (r *HarvestRepo) GetByID(ctx context.Context, id uint64) (model.Harvest, error) {
	h, err := scanHarvest(r.db.QueryRowContext(ctx, "SELECT "+harvestCols+" FROM harvests WHERE id=?", id))
	return h, notFound(err)
}

func harvestWhere(ownerID uint64, f HarvestFilter) *where {
	w := &where{}
	w.add("owner_id = ?", ownerID)
	if f.FieldID != 0 {
		w.add("field_id = ?", f.FieldID)
	}
	if f.CropType != "" {
		w.add("crop_type = ?", f.CropType)
	}
	if !f.From.IsZero() {
		w.add("harvest_date >= ?", f.From)
	}
	if !f.To.IsZero() {
		w.add("harvest_date <= ?", f.To)
	}
	return w
}

// List returns one page of the owner's harvests, newest first.
func (r *HarvestRepo) List(ctx context.Context, ownerID uint64, f HarvestFilter, p model.Page) ([]model.Harvest, int, error) {
	w := harvestWhere(ownerID, f)
	total, err := count(ctx, r.db, "harvests", w)
	if err != nil {
		return nil, 0, err
	}
	out, err := r.query(ctx, "SELECT "+harvestCols+" FROM harvests"+w.String()+
		" ORDER BY harvest_date DESC, id DESC LIMIT ? OFFSET ?", pageArgs(w.args, p)...)
	return out, total, err
}

// ListAll returns every matching harvest, oldest first.  It backs the
// spreadsheet export and is not paginated.
func (r *HarvestRepo) ListAll(ctx context.Context, ownerID uint64, f HarvestFilter) ([]model.Harvest, error) {
	w := harvestWhere(ownerID, f)
	return r.query(ctx, "SELECT "+harvestCols+" FROM harvests"+w.String()+" ORDER BY harvest_date, id", w.args...)
}

func (r *HarvestRepo) query(ctx context.Context, q string, args ...any) ([]model.Harvest, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Harvest, 0)
	for rows.Next() {
		h, err := scanHarvest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (r *HarvestRepo) Update(ctx context.Context, h model.Harvest) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE harvests SET field_id=?, crop_type=?, quantity=?, unit=?, quality_grade=?, harvest_date=?, notes=? WHERE id=?`,
		h.FieldID, h.CropType, h.Quantity, h.Unit, h.QualityGrade, h.HarvestDate, h.Notes, h.ID)
	return err
}

func (r *HarvestRepo) Delete(ctx context.Context, id uint64) error {
	return mustAffect(r.db.ExecContext(ctx, "DELETE FROM harvests WHERE id=?", id))
}
