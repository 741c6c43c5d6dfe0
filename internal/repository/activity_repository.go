package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/farmhub/internal/model"
)

// ActivityRepo persists farm activities.
type ActivityRepo struct{ db *sql.DB }

func NewActivityRepo(db *sql.DB) *ActivityRepo { return &ActivityRepo{db: db} }

// ActivityFilter narrows ActivityRepo.List.  Zero values are ignored.
type ActivityFilter struct {
	FieldID uint64
	Status  model.ActivityStatus
}

const activityCols = "id, owner_id, field_id, activity_type, description, status, scheduled_date, completed_at, created_at, updated_at"

func scanActivity(s scanner) (model.FarmActivity, error) {
	var a model.FarmActivity
	err := s.Scan(&a.ID, &a.OwnerID, &a.FieldID, &a.ActivityType, &a.Description, &a.Status,
		&a.ScheduledDate, &a.CompletedAt, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (r *ActivityRepo) Create(ctx context.Context, a *model.FarmActivity) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO farm_activities (owner_id, field_id, activity_type, description, status, scheduled_date)
		 VALUES (?,?,?,?,?,?)`,
		a.OwnerID, a.FieldID, a.ActivityType, a.Description, model.ActivityPlanned, a.ScheduledDate)
	if err != nil {
		return err
	}
	id, err := insertID(res)
	if err != nil {
		return err
	}
	*a, err = r.GetByID(ctx, id)
	return err
}

func (r *ActivityRepo) GetByID(ctx context.Context, id uint64) (model.FarmActivity, error) {
	a, err := scanActivity(r.db.QueryRowContext(ctx,
		"SELECT "+activityCols+" FROM farm_activities WHERE id=?", id))
	return a, notFound(err)
}

// List returns one page of the owner's activities, soonest first.
func (r *ActivityRepo) List(ctx context.Context, ownerID uint64, f ActivityFilter, p model.Page) ([]model.FarmActivity, int, error) {
	w := &where{}
	w.add("owner_id = ?", ownerID)
	if f.FieldID != 0 {
		w.add("field_id = ?", f.FieldID)
	}
	if f.Status != "" {
		w.add("status = ?", f.Status)
	}
	total, err := count(ctx, r.db, "farm_activities", w)
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+activityCols+" FROM farm_activities"+w.String()+" ORDER BY scheduled_date, id LIMIT ? OFFSET ?",
		pageArgs(w.args, p)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := make([]model.FarmActivity, 0)
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	return out, total, rows.Err()
}

func (r *ActivityRepo) Update(ctx context.Context, a model.FarmActivity) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE farm_activities SET field_id=?, activity_type=?, description=?, scheduled_date=? WHERE id=?`,
		a.FieldID, a.ActivityType, a.Description, a.ScheduledDate, a.ID)
	return err
}

// UpdateStatus moves an activity to status only if it is still in from,
// so two concurrent transitions cannot both succeed.
func (r *ActivityRepo) UpdateStatus(ctx context.Context, id uint64, from, to model.ActivityStatus, completedAt *time.Time) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE farm_activities SET status=?, completed_at=? WHERE id=? AND status=?",
		to, completedAt, id, from)
	if err = mustAffect(res, err); errors.Is(err, ErrNotFound) {
		return ErrInvalidTransition
	}
	return err
}

func (r *ActivityRepo) Delete(ctx context.Context, id uint64) error {
	return mustAffect(r.db.ExecContext(ctx, "DELETE FROM farm_activities WHERE id=?", id))
}
