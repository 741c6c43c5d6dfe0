package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/farmhub/internal/model"
)

// FieldRepo provides CRUD operations for fields.
type FieldRepo struct{ db *sql.DB }

func NewFieldRepo(db *sql.DB) *FieldRepo { return &FieldRepo{db: db} }

const fieldCols = "id, owner_id, name, area_hectares, location, soil_type, crop_type, created_at, updated_at"

func scanField(s scanner) (model.Field, error) {
	var f model.Field
	err := s.Scan(&f.ID, &f.OwnerID, &f.Name, &f.AreaHectares, &f.Location, &f.SoilType,
		&f.CropType, &f.CreatedAt, &f.UpdatedAt)
	return f, err
}

// Create inserts f and reloads it so timestamps are populated.  A
// duplicate name for the same owner yields ErrConflict.
func (r *FieldRepo) Create(ctx context.Context, f *model.Field) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO fields (owner_id, name, area_hectares, location, soil_type, crop_type)
		 VALUES (?,?,?,?,?,?)`,
		f.OwnerID, f.Name, f.AreaHectares, f.Location, f.SoilType, f.CropType)
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
	*f, err = r.GetByID(ctx, id)
	return err
}

// GetByID returns a field or ErrNotFound.
func (r *FieldRepo) GetByID(ctx context.Context, id uint64) (model.Field, error) {
	f, err := scanField(r.db.QueryRowContext(ctx, "SELECT "+fieldCols+" FROM fields WHERE id=?", id))
	return f, notFound(err)
}

// ListByOwner returns one page of the owner's fields ordered by name,
// plus the total count.
func (r *FieldRepo) ListByOwner(ctx context.Context, ownerID uint64, p model.Page) ([]model.Field, int, error) {
	w := &where{}
	w.add("owner_id = ?", ownerID)
	total, err := count(ctx, r.db, "fields", w)
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+fieldCols+" FROM fields"+w.String()+" ORDER BY name LIMIT ? OFFSET ?",
		pageArgs(w.args, p)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := make([]model.Field, 0)
	for rows.Next() {
		f, err := scanField(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, f)
	}
	return out, total, rows.Err()
}

// Update overwrites the mutable columns of f.
func (r *FieldRepo) Update(ctx context.Context, f model.Field) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE fields SET name=?, area_hectares=?, location=?, soil_type=?, crop_type=? WHERE id=?`,
		f.Name, f.AreaHectares, f.Location, f.SoilType, f.CropType, f.ID)
	if isDuplicate(err) {
		return ErrConflict
	}
	return err
}

// Delete removes a field.  Fields referenced by harvests cannot be
// deleted and yield ErrConflict.
func (r *FieldRepo) Delete(ctx context.Context, id uint64) error {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM harvests WHERE field_id=?", id).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return ErrConflict
	}
	return mustAffect(r.db.ExecContext(ctx, "DELETE FROM fields WHERE id=?", id))
}

// NamesByOwner maps every field id of the owner to its name.
func (r *FieldRepo) NamesByOwner(ctx context.Context, ownerID uint64) (map[uint64]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name FROM fields WHERE owner_id=?", ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[uint64]string{}
	for rows.Next() {
		var (
			id   uint64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		out[id] = name
	}
	return out, rows.Err()
}
