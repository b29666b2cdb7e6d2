package middleware

// identity.go exposes the caller identity stored by JWTAuth.

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// UserID returns the authenticated user's numeric id.  ok is false for
// anonymous requests and for non-numeric subjects.
func UserID(c echo.Context) (uint64, bool) {
	s, _ := c.Get(ctxUserID).(string)
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Role returns the authenticated role in upper case, or "" when absent.
func Role(c echo.Context) string {
	r, _ := c.Get(ctxRole).(string)
	return r
}

// currentUserID is the rate-limit identity: the token subject, or "anon".
func currentUserID(c echo.Context) string {
	if s, ok := c.Get(ctxUserID).(string); ok && s != "" {
		return s
	}
	return "anon"
}
