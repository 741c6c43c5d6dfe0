package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/farmhub/internal/model"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userCols = "id, email, password_hash, name, phone, location, role, is_active, created_at, updated_at"

func scanUser(s scanner) (model.User, error) {
	var u model.User
	err := s.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Phone, &u.Location,
		&u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// Create inserts u (PasswordHash already set) and fills in its ID.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, name, phone, location, role) VALUES (?,?,?,?,?,?)",
		u.Email, u.PasswordHash, u.Name, u.Phone, u.Location, u.Role)
	if err != nil {
		if isDuplicate(err) {
			return ErrEmailExists
		}
		return err
	}
	u.ID, err = insertID(res)
	return err
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE email=? LIMIT 1", email))
	return u, notFound(err)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE id=? LIMIT 1", id))
	return u, notFound(err)
}

// UpdateProfile overwrites the editable profile columns.
func (r *UserRepo) UpdateProfile(ctx context.Context, u model.User) error {
	return mustAffect(r.DB.ExecContext(ctx,
		"UPDATE users SET name=?, phone=?, location=? WHERE id=?",
		u.Name, u.Phone, u.Location, u.ID))
}
