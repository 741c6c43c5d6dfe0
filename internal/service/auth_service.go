package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/iliyamo/farmhub/internal/model"
	"github.com/iliyamo/farmhub/internal/repository"
	"github.com/iliyamo/farmhub/internal/utils"
)

// UserStore is the persistence AuthService needs for accounts.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	UpdateProfile(ctx context.Context, u model.User) error
}

// TokenStore persists hashed refresh tokens.
type TokenStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

// AuthConfig holds the token and hashing settings.
type AuthConfig struct {
	JWTSecret      string
	AccessTTLMin   int
	RefreshTTLDays int
	BcryptCost     int
}

// TokenPair is returned on register, login and refresh.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshToken     string    `json:"refresh_token"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
	TokenType        string    `json:"token_type"`
}

// AuthService implements the users module.
type AuthService struct {
	users  UserStore
	tokens TokenStore
	cfg    AuthConfig
}

func NewAuthService(users UserStore, tokens TokenStore, cfg AuthConfig) *AuthService {
	return &AuthService{users: users, tokens: tokens, cfg: cfg}
}

// RegisterInput is the body of POST /users/register.
type RegisterInput struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Name     string  `json:"name"`
	Role     string  `json:"role"`
	Phone    *string `json:"phone"`
	Location *string `json:"location"`
}

// Register creates an account and signs it in.  Role defaults to FARMER
// and ADMIN cannot be self-assigned.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (model.User, TokenPair, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	name := strings.TrimSpace(in.Name)
	role := strings.ToUpper(strings.TrimSpace(in.Role))
	if role == "" {
		role = model.RoleFarmer
	}

	v := &validator{}
	_, mailErr := mail.ParseAddress(email)
	v.check(email != "" && mailErr == nil, "email is invalid")
	v.check(len(in.Password) >= utils.MinPasswordLength, "password must be at least %d characters", utils.MinPasswordLength)
	v.check(name != "", "name is required")
	v.check(model.SelfAssignableRoles[role], "role must be one of FARMER, SUPPLIER, BUYER, WORKER")
	if err := v.err(); err != nil {
		return model.User{}, TokenPair{}, err
	}

	hash, err := utils.HashPassword(in.Password, s.cfg.BcryptCost)
	if err != nil {
		return model.User{}, TokenPair{}, err
	}
	u := model.User{
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Phone:        trimmed(in.Phone),
		Location:     trimmed(in.Location),
		Role:         role,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, &u); err != nil {
		return model.User{}, TokenPair{}, err
	}
	pair, err := s.issue(ctx, u)
	return u, pair, err
}

// Login verifies credentials and issues a token pair.
func (s *AuthService) Login(ctx context.Context, email, password string) (model.User, TokenPair, error) {
	u, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, repository.ErrNotFound) {
		utils.VerifyPassword("", password)
		return model.User{}, TokenPair{}, ErrInvalidCredentials
	}
	if err != nil {
		return model.User{}, TokenPair{}, err
	}
	if !utils.VerifyPassword(u.PasswordHash, password) || !u.IsActive {
		return model.User{}, TokenPair{}, ErrInvalidCredentials
	}
	pair, err := s.issue(ctx, u)
	return u, pair, err
}

// Refresh rotates a refresh token: the presented one is revoked and a
// new pair is issued.
func (s *AuthService) Refresh(ctx context.Context, raw string) (TokenPair, error) {
	if strings.TrimSpace(raw) == "" {
		return TokenPair{}, &ValidationError{Errors: []string{"refresh_token is required"}}
	}
	hash := utils.HashRefreshRaw(raw)
	uid, err := s.tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		return TokenPair{}, ErrInvalidToken
	}
	u, err := s.users.GetByID(ctx, uid)
	if err != nil || !u.IsActive {
		return TokenPair{}, ErrInvalidToken
	}
	if err := s.tokens.RevokeByHash(ctx, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// rotated by a concurrent request
			return TokenPair{}, ErrInvalidToken
		}
		return TokenPair{}, err
	}
	return s.issue(ctx, u)
}

// Logout revokes one refresh token, or every token of userID when raw is
// empty.
func (s *AuthService) Logout(ctx context.Context, userID uint64, raw string) error {
	if raw != "" {
		err := s.tokens.RevokeByHash(ctx, utils.HashRefreshRaw(raw))
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}
	if userID == 0 {
		return &ValidationError{Errors: []string{"refresh_token is required"}}
	}
	return s.tokens.RevokeAllForUser(ctx, userID)
}

func (s *AuthService) Me(ctx context.Context, userID uint64) (model.User, error) {
	return s.users.GetByID(ctx, userID)
}

// ProfileInput is the body of PATCH /users/me.  Nil fields are left
// unchanged; an empty phone or location clears it.
type ProfileInput struct {
	Name     *string `json:"name"`
	Phone    *string `json:"phone"`
	Location *string `json:"location"`
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID uint64, in ProfileInput) (model.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return model.User{}, err
	}
	v := &validator{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		v.check(name != "", "name cannot be blank")
		u.Name = name
	}
	if err := v.err(); err != nil {
		return model.User{}, err
	}
	if in.Phone != nil {
		u.Phone = trimmed(in.Phone)
	}
	if in.Location != nil {
		u.Location = trimmed(in.Location)
	}
	if err := s.users.UpdateProfile(ctx, u); err != nil {
		return model.User{}, err
	}
	return s.users.GetByID(ctx, userID)
}

func (s *AuthService) issue(ctx context.Context, u model.User) (TokenPair, error) {
	at, err := utils.NewAccessToken(s.cfg.JWTSecret, u.ID, u.Role, s.cfg.AccessTTLMin)
	if err != nil {
		return TokenPair{}, err
	}
	rt, err := utils.NewRefreshToken(s.cfg.RefreshTTLDays)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(rt.Raw), rt.Exp); err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:      at.Token,
		AccessExpiresAt:  at.Exp,
		RefreshToken:     rt.Raw,
		RefreshExpiresAt: rt.Exp,
		TokenType:        "Bearer",
	}, nil
}
