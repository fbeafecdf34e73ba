package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/iliyamo/event-booking/internal/apperr"
	"github.com/iliyamo/event-booking/internal/model"
	"github.com/iliyamo/event-booking/internal/repository"
	"github.com/iliyamo/event-booking/internal/utils"
)

// AuthUsers is the user store used by authentication.
type AuthUsers interface {
	Create(ctx context.Context, u *model.User, password string, cost int) error
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// AuthTokens persists hashed refresh tokens.
type AuthTokens interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) (bool, error)
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

var (
	_ AuthUsers  = (*repository.UserRepo)(nil)
	_ AuthTokens = (*repository.TokenRepo)(nil)
)

// AuthSettings are the token and hashing parameters.
type AuthSettings struct {
	Secret         string
	AccessTTLMin   int
	RefreshTTLDays int
	BcryptCost     int
}

// Session is returned by register, login and refresh.
type Session struct {
	User         model.User `json:"user"`
	AccessToken  string     `json:"accessToken"`
	RefreshToken string     `json:"refreshToken"`
	ExpiresIn    int64      `json:"expiresIn"` // access token lifetime in seconds
}

type AuthService struct {
	users  AuthUsers
	tokens AuthTokens
	cfg    AuthSettings
}

func NewAuthService(users AuthUsers, tokens AuthTokens, cfg AuthSettings) *AuthService {
	return &AuthService{users: users, tokens: tokens, cfg: cfg}
}

// Register creates a participant account and signs it in.
func (s *AuthService) Register(ctx context.Context, email, password, firstName, lastName string) (Session, error) {
	u := model.User{
		Email:     email,
		FirstName: strings.TrimSpace(firstName),
		LastName:  strings.TrimSpace(lastName),
		Role:      model.RoleParticipant,
	}
	if err := s.users.Create(ctx, &u, password, s.cfg.BcryptCost); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return Session{}, apperr.Conflict("email already registered")
		}
		return Session{}, internal(err, "create user")
	}
	return s.issue(ctx, u)
}

// Login checks credentials.  Unknown emails burn a bcrypt comparison so both
// failure paths take the same time.
func (s *AuthService) Login(ctx context.Context, email, password string) (Session, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.BurnPasswordCheck(password)
			return Session{}, apperr.Unauthorized("invalid credentials")
		}
		return Session{}, internal(err, "load user")
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return Session{}, apperr.Unauthorized("invalid credentials")
	}
	return s.issue(ctx, u)
}

// Refresh rotates a refresh token.  A token that was already revoked by a
// concurrent refresh is treated as invalid.
func (s *AuthService) Refresh(ctx context.Context, raw string) (Session, error) {
	hash := utils.HashRefreshRaw(strings.TrimSpace(raw))
	userID, err := s.tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Session{}, apperr.Unauthorized("invalid refresh token")
		}
		return Session{}, internal(err, "validate refresh token")
	}
	revoked, err := s.tokens.RevokeByHash(ctx, hash)
	if err != nil {
		return Session{}, internal(err, "revoke refresh token")
	}
	if !revoked {
		slog.Warn("refresh token reused", "user_id", userID)
		return Session{}, apperr.Unauthorized("invalid refresh token")
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Session{}, apperr.Unauthorized("invalid refresh token")
		}
		return Session{}, internal(err, "load user")
	}
	return s.issue(ctx, u)
}

// Logout revokes one refresh token when raw is given, otherwise every token
// of the user.
func (s *AuthService) Logout(ctx context.Context, userID uint64, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if err := s.tokens.RevokeAllForUser(ctx, userID); err != nil {
			return internal(err, "revoke tokens of user %d", userID)
		}
		return nil
	}
	if _, err := s.tokens.RevokeByHash(ctx, utils.HashRefreshRaw(raw)); err != nil {
		return internal(err, "revoke refresh token")
	}
	return nil
}

// Me loads the caller's profile.
func (s *AuthService) Me(ctx context.Context, userID uint64) (model.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return model.User{}, storeErr(err, "user %d not found", userID)
	}
	return u, nil
}

// EnsureAdmin creates the bootstrap administrator when it does not exist.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	u := model.User{Email: email, FirstName: "Admin", LastName: "User", Role: model.RoleAdmin}
	if err := s.users.Create(ctx, &u, password, s.cfg.BcryptCost); err != nil && !errors.Is(err, repository.ErrEmailExists) {
		return err
	}
	slog.Info("bootstrap admin created", "email", u.Email)
	return nil
}

func (s *AuthService) issue(ctx context.Context, u model.User) (Session, error) {
	access, err := utils.NewAccessToken(s.cfg.Secret, u.ID, u.Email, u.Role, s.cfg.AccessTTLMin)
	if err != nil {
		return Session{}, internal(err, "sign access token")
	}
	refresh, err := utils.NewRefreshToken(s.cfg.RefreshTTLDays)
	if err != nil {
		return Session{}, internal(err, "generate refresh token")
	}
	if err := s.tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return Session{}, internal(err, "store refresh token")
	}
	return Session{
		User:         u,
		AccessToken:  access.Token,
		RefreshToken: refresh.Raw,
		ExpiresIn:    int64(time.Duration(s.cfg.AccessTTLMin) * time.Minute / time.Second),
	}, nil
}
