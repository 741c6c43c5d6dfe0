package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/farmhub/internal/model"
)

// LaborRequestRepo persists labor requests.
type LaborRequestRepo struct{ db *sql.DB }

func NewLaborRequestRepo(db *sql.DB) *LaborRequestRepo { return &LaborRequestRepo{db: db} }

// LaborRequestFilter narrows request listings.
type LaborRequestFilter struct {
	RequesterID  uint64
	Status       model.LaborRequestStatus
	Compensation string
	// ExcludeRequester hides one user's own requests from the browse view.
	ExcludeRequester uint64
}

const laborRequestCols = `id, requester_id, field_id, title, description, activity_type, work_date, hours_needed,
	workers_needed, compensation, hourly_rate_cents, status, created_at, updated_at`

func scanLaborRequest(s scanner) (model.LaborRequest, error) {
	var r model.LaborRequest
	err := s.Scan(&r.ID, &r.RequesterID, &r.FieldID, &r.Title, &r.Description, &r.ActivityType, &r.WorkDate,
		&r.HoursNeeded, &r.WorkersNeeded, &r.Compensation, &r.HourlyRateCents, &r.Status, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

func (r *LaborRequestRepo) Create(ctx context.Context, lr *model.LaborRequest) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO labor_requests (requester_id, field_id, title, description, activity_type, work_date,
		   hours_needed, workers_needed, compensation, hourly_rate_cents, status)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		lr.RequesterID, lr.FieldID, lr.Title, lr.Description, lr.ActivityType, lr.WorkDate.Format("2006-01-02"),
		lr.HoursNeeded, lr.WorkersNeeded, lr.Compensation, lr.HourlyRateCents, model.LaborOpen)
	if err != nil {
		return err
	}
	id, err := insertID(res)
	if err != nil {
		return err
	}
	*lr, err = r.Get(ctx, r.db, id)
	return err
}

func (r *LaborRequestRepo) Get(ctx context.Context, q DBTX, id uint64) (model.LaborRequest, error) {
	lr, err := scanLaborRequest(orDB(q, r.db).QueryRowContext(ctx, "SELECT "+laborRequestCols+" FROM labor_requests WHERE id=?", id))
	return lr, notFound(err)
}

// GetForUpdate loads and row-locks a request inside tx.  Assignment
// transitions lock the parent request first so the accepted count cannot
// race past workers_needed.
func (r *LaborRequestRepo) GetForUpdate(ctx context.Context, tx DBTX, id uint64) (model.LaborRequest, error) {
	lr, err := scanLaborRequest(orDB(tx, r.db).QueryRowContext(ctx,
		"SELECT "+laborRequestCols+" FROM labor_requests WHERE id=? FOR UPDATE", id))
	return lr, notFound(err)
}

// List returns one page of requests, soonest work date first.
func (r *LaborRequestRepo) List(ctx context.Context, f LaborRequestFilter, p model.Page) ([]model.LaborRequest, int, error) {
	w := &where{}
	if f.RequesterID != 0 {
		w.add("requester_id = ?", f.RequesterID)
	}
	if f.ExcludeRequester != 0 {
		w.add("requester_id <> ?", f.ExcludeRequester)
	}
	if f.Status != "" {
		w.add("status = ?", f.Status)
	}
	if f.Compensation != "" {
		w.add("compensation = ?", f.Compensation)
	}
	total, err := count(ctx, r.db, "labor_requests", w)
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+laborRequestCols+" FROM labor_requests"+w.String()+" ORDER BY work_date ASC, id ASC LIMIT ? OFFSET ?",
		pageArgs(w.args, p)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := make([]model.LaborRequest, 0)
	for rows.Next() {
		lr, err := scanLaborRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, lr)
	}
	return out, total, rows.Err()
}

// UpdateStatus moves a request from one status to another.  A row no
// longer in from is ErrInvalidTransition.
func (r *LaborRequestRepo) UpdateStatus(ctx context.Context, q DBTX, id uint64, from, to model.LaborRequestStatus) error {
	res, err := orDB(q, r.db).ExecContext(ctx, "UPDATE labor_requests SET status=? WHERE id=? AND status=?", to, id, from)
	if err = mustAffect(res, err); errors.Is(err, ErrNotFound) {
		return ErrInvalidTransition
	}
	return err
}
