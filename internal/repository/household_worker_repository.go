package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/farmhub/internal/model"
)

// HouseholdWorkerRepo persists members of farming households.
type HouseholdWorkerRepo struct{ db *sql.DB }

func NewHouseholdWorkerRepo(db *sql.DB) *HouseholdWorkerRepo { return &HouseholdWorkerRepo{db: db} }

const householdWorkerCols = "id, household_id, name, phone, skills, is_active, created_at, updated_at"

func scanHouseholdWorker(s scanner) (model.HouseholdWorker, error) {
	var (
		w      model.HouseholdWorker
		skills []byte
	)
	err := s.Scan(&w.ID, &w.HouseholdID, &w.Name, &w.Phone, &skills, &w.IsActive, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return w, err
	}
	w.Skills, err = decodeSkills(skills)
	return w, err
}

func (r *HouseholdWorkerRepo) Create(ctx context.Context, w *model.HouseholdWorker) error {
	skills, err := encodeSkills(w.Skills)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO household_workers (household_id, name, phone, skills, is_active) VALUES (?,?,?,?,?)",
		w.HouseholdID, w.Name, w.Phone, skills, w.IsActive)
	if err != nil {
		return err
	}
	id, err := insertID(res)
	if err != nil {
		return err
	}
	*w, err = r.Get(ctx, r.db, id)
	return err
}

func (r *HouseholdWorkerRepo) Get(ctx context.Context, q DBTX, id uint64) (model.HouseholdWorker, error) {
	w, err := scanHouseholdWorker(orDB(q, r.db).QueryRowContext(ctx,
		"SELECT "+householdWorkerCols+" FROM household_workers WHERE id=?", id))
	return w, notFound(err)
}

func (r *HouseholdWorkerRepo) ListByHousehold(ctx context.Context, householdID uint64, p model.Page) ([]model.HouseholdWorker, int, error) {
	w := &where{}
	w.add("household_id = ?", householdID)
	total, err := count(ctx, r.db, "household_workers", w)
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+householdWorkerCols+" FROM household_workers"+w.String()+" ORDER BY name ASC, id ASC LIMIT ? OFFSET ?",
		pageArgs(w.args, p)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := make([]model.HouseholdWorker, 0)
	for rows.Next() {
		hw, err := scanHouseholdWorker(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, hw)
	}
	return out, total, rows.Err()
}

func (r *HouseholdWorkerRepo) Update(ctx context.Context, w model.HouseholdWorker) error {
	skills, err := encodeSkills(w.Skills)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		"UPDATE household_workers SET name=?, phone=?, skills=?, is_active=? WHERE id=?",
		w.Name, w.Phone, skills, w.IsActive, w.ID)
	return err
}

// Delete removes a worker that is not committed to pending or accepted
// assignments; otherwise ErrConflict.
func (r *HouseholdWorkerRepo) Delete(ctx context.Context, id uint64) error {
	var active int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM labor_assignments WHERE household_worker_id=? AND status IN ('pending','accepted')",
		id).Scan(&active)
	if err != nil {
		return err
	}
	if active > 0 {
		return ErrConflict
	}
	return mustAffect(r.db.ExecContext(ctx, "DELETE FROM household_workers WHERE id=?", id))
}
