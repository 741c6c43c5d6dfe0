package model

import "time"

// Role names stored in users.role and carried in the JWT "role" claim.
const (
	RoleFarmer   = "FARMER"
	RoleSupplier = "SUPPLIER"
	RoleBuyer    = "BUYER"
	RoleWorker   = "WORKER"
	RoleAdmin    = "ADMIN"
)

// SelfAssignableRoles lists the roles a user may pick at registration.
// ADMIN accounts are created out of band.
var SelfAssignableRoles = map[string]bool{
	RoleFarmer:   true,
	RoleSupplier: true,
	RoleBuyer:    true,
	RoleWorker:   true,
}

// User represents an application user record as stored in the
// `users` table.  A FARMER account doubles as a household in the
// labor-sharing module.
//
// Fields:
//   - ID: primary key identifier of the user.
//   - Email: unique, lower-cased email address.
//   - PasswordHash: bcrypt hashed password, never serialized.
//   - Name: display name.
//   - Phone: optional contact number.
//   - Location: optional free-form village or region.
//   - Role: one of the Role* constants.
//   - IsActive: inactive users cannot log in.
type User struct {
	ID           uint64    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Phone        *string   `json:"phone,omitempty"`
	Location     *string   `json:"location,omitempty"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RefreshToken models an entry in the `refresh_tokens` table.  The
// plain token is not stored; only its SHA‑256 hash.
type RefreshToken struct {
	ID        uint64
	UserID    uint64
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}
