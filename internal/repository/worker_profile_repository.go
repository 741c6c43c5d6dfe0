package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/farmhub/internal/model"
)

// WorkerProfileRepo persists hired-labor worker profiles.
type WorkerProfileRepo struct{ db *sql.DB }

func NewWorkerProfileRepo(db *sql.DB) *WorkerProfileRepo { return &WorkerProfileRepo{db: db} }

const workerProfileCols = `id, user_id, skills, hourly_rate_cents, availability, location, bio,
	rating_sum, rating_count, created_at, updated_at`

func scanWorkerProfile(s scanner) (model.WorkerProfile, error) {
	var (
		p      model.WorkerProfile
		skills []byte
	)
	err := s.Scan(&p.ID, &p.UserID, &skills, &p.HourlyRateCents, &p.Availability, &p.Location, &p.Bio,
		&p.RatingSum, &p.RatingCount, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return p, err
	}
	p.Skills, err = decodeSkills(skills)
	return p, err
}

// Upsert creates the user's profile or replaces its editable fields.
func (r *WorkerProfileRepo) Upsert(ctx context.Context, p *model.WorkerProfile) error {
	skills, err := encodeSkills(p.Skills)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO worker_profiles (user_id, skills, hourly_rate_cents, availability, location, bio)
		 VALUES (?,?,?,?,?,?)
		 ON DUPLICATE KEY UPDATE skills=VALUES(skills), hourly_rate_cents=VALUES(hourly_rate_cents),
		   availability=VALUES(availability), location=VALUES(location), bio=VALUES(bio)`,
		p.UserID, skills, p.HourlyRateCents, p.Availability, p.Location, p.Bio)
	if err != nil {
		return err
	}
	*p, err = r.GetByUserID(ctx, p.UserID)
	return err
}

func (r *WorkerProfileRepo) GetByUserID(ctx context.Context, userID uint64) (model.WorkerProfile, error) {
	p, err := scanWorkerProfile(r.db.QueryRowContext(ctx,
		"SELECT "+workerProfileCols+" FROM worker_profiles WHERE user_id=?", userID))
	return p, notFound(err)
}

func (r *WorkerProfileRepo) Get(ctx context.Context, q DBTX, id uint64) (model.WorkerProfile, error) {
	p, err := scanWorkerProfile(orDB(q, r.db).QueryRowContext(ctx,
		"SELECT "+workerProfileCols+" FROM worker_profiles WHERE id=?", id))
	return p, notFound(err)
}

// ListAvailable returns available profiles, best rated first.  A non-empty
// skill keeps only profiles listing it.
func (r *WorkerProfileRepo) ListAvailable(ctx context.Context, skill string, p model.Page) ([]model.WorkerProfile, int, error) {
	w := &where{}
	w.add("availability = ?", model.WorkerAvailable)
	if skill != "" {
		w.add("JSON_CONTAINS(skills, JSON_QUOTE(?))", skill)
	}
	total, err := count(ctx, r.db, "worker_profiles", w)
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+workerProfileCols+" FROM worker_profiles"+w.String()+
			" ORDER BY IF(rating_count = 0, 0, rating_sum / rating_count) DESC, id ASC LIMIT ? OFFSET ?",
		pageArgs(w.args, p)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := make([]model.WorkerProfile, 0)
	for rows.Next() {
		wp, err := scanWorkerProfile(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, wp)
	}
	return out, total, rows.Err()
}

// AddRating folds one rating into the profile aggregates.
func (r *WorkerProfileRepo) AddRating(ctx context.Context, q DBTX, id uint64, rating int) error {
	return mustAffect(orDB(q, r.db).ExecContext(ctx,
		"UPDATE worker_profiles SET rating_sum = rating_sum + ?, rating_count = rating_count + 1 WHERE id=?",
		rating, id))
}
