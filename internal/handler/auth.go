package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-booking/internal/model"
	"github.com/iliyamo/event-booking/internal/service"
)

// Authenticator is the account API the auth endpoints drive.
type Authenticator interface {
	Register(ctx context.Context, email, password, firstName, lastName string) (service.Session, error)
	Login(ctx context.Context, email, password string) (service.Session, error)
	Refresh(ctx context.Context, raw string) (service.Session, error)
	Logout(ctx context.Context, userID uint64, raw string) error
	Me(ctx context.Context, userID uint64) (model.User, error)
}

// AuthHandler serves /auth.
type AuthHandler struct {
	auth Authenticator
}

func NewAuthHandler(auth Authenticator) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type registerReq struct {
	Email     string `json:"email" validate:"required,email,max=255"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"required,max=100"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshReq struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type logoutReq struct {
	RefreshToken string `json:"refreshToken"`
}

func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	sess, err := h.auth.Register(ctx, req.Email, req.Password, req.FirstName, req.LastName)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, sess)
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	sess, err := h.auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, sess)
}

// Refresh rotates the refresh token: the presented one is revoked and a new
// pair is issued.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	sess, err := h.auth.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, sess)
}

// Logout revokes the given refresh token, or all of the caller's tokens when
// the body carries none.
func (h *AuthHandler) Logout(c echo.Context) error {
	caller, err := requireCaller(c)
	if err != nil {
		return err
	}
	var req logoutReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.auth.Logout(ctx, caller.ID, req.RefreshToken); err != nil {
		return err
	}
	return message(c, "Logged out successfully")
}

func (h *AuthHandler) Me(c echo.Context) error {
	caller, err := requireCaller(c)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.auth.Me(ctx, caller.ID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, u)
}
