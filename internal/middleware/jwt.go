package middleware // reusable HTTP middleware for the booking API

import (
	"strings" // header prefix handling

	"github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

	"github.com/iliyamo/event-booking/internal/apperr" // error taxonomy rendered by the HTTP error handler
	"github.com/iliyamo/event-booking/internal/utils"  // access token parsing
)

// Context keys populated by JWTAuth and OptionalJWT.
const (
	CtxUserID = "user_id" // uint64 subject of the access token
	CtxRole   = "role"    // role claim (ADMIN or PARTICIPANT)
	CtxEmail  = "email"   // email claim
)

// JWTAuth returns an Echo middleware that validates a Bearer access token and
// injects the token's subject, role and email into the request context.  The
// provided secret must match the one used when issuing tokens.  Requests
// without a valid token are rejected with 401 before reaching the handler.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearer(c)
			if !ok {
				return apperr.Unauthorized("missing bearer token")
			}
			if err := authenticate(c, secret, raw); err != nil {
				return err
			}
			return next(c)
		}
	}
}

// OptionalJWT is the variant used on public reads: a missing header lets the
// request through as a guest, but a header carrying a bad token is still
// rejected so clients notice expired sessions.
func OptionalJWT(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearer(c)
			if !ok {
				return next(c)
			}
			if err := authenticate(c, secret, raw); err != nil {
				return err
			}
			return next(c)
		}
	}
}

// bearer extracts the raw token from "Authorization: Bearer <token>".
func bearer(c echo.Context) (string, bool) {
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	return raw, raw != ""
}

func authenticate(c echo.Context, secret, raw string) error {
	// ParseAccessToken pins HS256 and checks exp, so alg=none and expired
	// tokens both end up here as errors.
	claims, err := utils.ParseAccessToken(secret, raw)
	if err != nil {
		return apperr.Unauthorized("invalid or expired token")
	}
	id, err := claims.UserID()
	if err != nil {
		return apperr.Unauthorized("invalid token subject")
	}
	c.Set(CtxUserID, id)
	c.Set(CtxRole, claims.Role)
	c.Set(CtxEmail, claims.Email)
	return nil
}
