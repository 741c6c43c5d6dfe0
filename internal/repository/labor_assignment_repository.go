package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/farmhub/internal/model"
)

// LaborAssignmentRepo persists worker assignments on labor requests.
type LaborAssignmentRepo struct{ db *sql.DB }

func NewLaborAssignmentRepo(db *sql.DB) *LaborAssignmentRepo { return &LaborAssignmentRepo{db: db} }

const laborAssignmentCols = `id, request_id, offerer_id, worker_profile_id, household_worker_id, status,
	hours_worked, rating, feedback, completed_at, created_at, updated_at`

func scanLaborAssignment(s scanner) (model.LaborAssignment, error) {
	var a model.LaborAssignment
	err := s.Scan(&a.ID, &a.RequestID, &a.OffererID, &a.WorkerProfileID, &a.HouseholdWorkerID, &a.Status,
		&a.HoursWorked, &a.Rating, &a.Feedback, &a.CompletedAt, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (r *LaborAssignmentRepo) Create(ctx context.Context, q DBTX, a *model.LaborAssignment) error {
	res, err := orDB(q, r.db).ExecContext(ctx,
		`INSERT INTO labor_assignments (request_id, offerer_id, worker_profile_id, household_worker_id, status)
		 VALUES (?,?,?,?,?)`,
		a.RequestID, a.OffererID, a.WorkerProfileID, a.HouseholdWorkerID, model.AssignmentPending)
	if err != nil {
		return err
	}
	id, err := insertID(res)
	if err != nil {
		return err
	}
	*a, err = r.Get(ctx, q, id)
	return err
}

func (r *LaborAssignmentRepo) Get(ctx context.Context, q DBTX, id uint64) (model.LaborAssignment, error) {
	a, err := scanLaborAssignment(orDB(q, r.db).QueryRowContext(ctx,
		"SELECT "+laborAssignmentCols+" FROM labor_assignments WHERE id=?", id))
	return a, notFound(err)
}

func (r *LaborAssignmentRepo) GetForUpdate(ctx context.Context, tx DBTX, id uint64) (model.LaborAssignment, error) {
	a, err := scanLaborAssignment(orDB(tx, r.db).QueryRowContext(ctx,
		"SELECT "+laborAssignmentCols+" FROM labor_assignments WHERE id=? FOR UPDATE", id))
	return a, notFound(err)
}

func (r *LaborAssignmentRepo) list(ctx context.Context, w *where, p model.Page) ([]model.LaborAssignment, int, error) {
	total, err := count(ctx, r.db, "labor_assignments", w)
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+laborAssignmentCols+" FROM labor_assignments"+w.String()+" ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		pageArgs(w.args, p)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := make([]model.LaborAssignment, 0)
	for rows.Next() {
		a, err := scanLaborAssignment(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	return out, total, rows.Err()
}

func (r *LaborAssignmentRepo) ListByRequest(ctx context.Context, requestID uint64, p model.Page) ([]model.LaborAssignment, int, error) {
	w := &where{}
	w.add("request_id = ?", requestID)
	return r.list(ctx, w, p)
}

func (r *LaborAssignmentRepo) ListByOfferer(ctx context.Context, offererID uint64, p model.Page) ([]model.LaborAssignment, int, error) {
	w := &where{}
	w.add("offerer_id = ?", offererID)
	return r.list(ctx, w, p)
}

// UpdateStatus moves an assignment from one status to another, returning
// ErrInvalidTransition when the row is no longer in from.
func (r *LaborAssignmentRepo) UpdateStatus(ctx context.Context, q DBTX, id uint64, from, to model.AssignmentStatus) error {
	res, err := orDB(q, r.db).ExecContext(ctx, "UPDATE labor_assignments SET status=? WHERE id=? AND status=?", to, id, from)
	if err = mustAffect(res, err); errors.Is(err, ErrNotFound) {
		return ErrInvalidTransition
	}
	return err
}

// Complete marks an accepted assignment completed with the hours worked.
func (r *LaborAssignmentRepo) Complete(ctx context.Context, q DBTX, id uint64, hours float64) error {
	res, err := orDB(q, r.db).ExecContext(ctx,
		`UPDATE labor_assignments SET status=?, hours_worked=?, completed_at=UTC_TIMESTAMP()
		 WHERE id=? AND status=?`,
		model.AssignmentCompleted, hours, id, model.AssignmentAccepted)
	if err = mustAffect(res, err); errors.Is(err, ErrNotFound) {
		return ErrInvalidTransition
	}
	return err
}

// SetRating stores the requester's rating once; a second attempt is
// ErrConflict.
func (r *LaborAssignmentRepo) SetRating(ctx context.Context, q DBTX, id uint64, rating int, feedback *string) error {
	res, err := orDB(q, r.db).ExecContext(ctx,
		"UPDATE labor_assignments SET rating=?, feedback=? WHERE id=? AND rating IS NULL",
		rating, feedback, id)
	if err = mustAffect(res, err); errors.Is(err, ErrNotFound) {
		return ErrConflict
	}
	return err
}

// CountByStatus counts a request's assignments per status.
func (r *LaborAssignmentRepo) CountByStatus(ctx context.Context, q DBTX, requestID uint64) (map[model.AssignmentStatus]int, error) {
	rows, err := orDB(q, r.db).QueryContext(ctx,
		"SELECT status, COUNT(*) FROM labor_assignments WHERE request_id=? GROUP BY status", requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[model.AssignmentStatus]int{}
	for rows.Next() {
		var (
			st model.AssignmentStatus
			n  int
		)
		if err := rows.Scan(&st, &n); err != nil {
			return nil, err
		}
		out[st] = n
	}
	return out, rows.Err()
}

// ExistsActive reports whether the same worker already has a pending or
// accepted assignment on the request.
func (r *LaborAssignmentRepo) ExistsActive(ctx context.Context, q DBTX, requestID uint64, a model.LaborAssignment) (bool, error) {
	var n int
	err := orDB(q, r.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM labor_assignments
		 WHERE request_id=? AND status IN ('pending','accepted')
		   AND (worker_profile_id <=> ? AND household_worker_id <=> ?)`,
		requestID, a.WorkerProfileID, a.HouseholdWorkerID).Scan(&n)
	return n > 0, err
}

// CancelOpen cancels every pending or accepted assignment of a request.
func (r *LaborAssignmentRepo) CancelOpen(ctx context.Context, q DBTX, requestID uint64) ([]model.LaborAssignment, error) {
	return r.cancel(ctx, q, requestID, "'pending','accepted'")
}

// CancelPending cancels the pending offers of a request.
func (r *LaborAssignmentRepo) CancelPending(ctx context.Context, q DBTX, requestID uint64) ([]model.LaborAssignment, error) {
	return r.cancel(ctx, q, requestID, "'pending'")
}

// cancel locks the request's assignments in statuses, a quoted SQL list,
// and moves them to cancelled.  It returns the rows as they were.
func (r *LaborAssignmentRepo) cancel(ctx context.Context, q DBTX, requestID uint64, statuses string) ([]model.LaborAssignment, error) {
	db := orDB(q, r.db)
	rows, err := db.QueryContext(ctx,
		"SELECT "+laborAssignmentCols+" FROM labor_assignments WHERE request_id=? AND status IN ("+statuses+") FOR UPDATE",
		requestID)
	if err != nil {
		return nil, err
	}
	var out []model.LaborAssignment
	for rows.Next() {
		a, err := scanLaborAssignment(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}
	_, err = db.ExecContext(ctx,
		"UPDATE labor_assignments SET status=? WHERE request_id=? AND status IN ("+statuses+")",
		model.AssignmentCancelled, requestID)
	return out, err
}
