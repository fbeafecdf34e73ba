package middleware

// identity.go holds the helpers shared by the cache and rate limiter to
// decide who a request belongs to.

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// userID returns the authenticated user id as a string, or "guest" when the
// request carries no token.
func userID(c echo.Context) string {
	if id, ok := c.Get(CtxUserID).(uint64); ok && id != 0 {
		return strconv.FormatUint(id, 10)
	}
	return "guest"
}

// isGuest reports whether the request is anonymous.
func isGuest(c echo.Context) bool { return userID(c) == "guest" }
