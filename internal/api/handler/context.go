package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ctxClaims extracts the auth claims injected by the Auth middleware and
// performs a fast-fail check before any service call: both user_id and role
// must be non-empty, their presence proves the middleware ran.
func ctxClaims(c echo.Context) (userID, role string, err error) {
	userID, _ = c.Get("user_id").(string)
	role, _ = c.Get("role").(string)
	if userID == "" || role == "" {
		return "", "", echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return userID, role, nil
}

// ctxOptionalCaller returns the caller's user id when the request carried a
// valid token, or nil on anonymous requests. Used by the public verification
// endpoints behind OptionalAuth.
func ctxOptionalCaller(c echo.Context) *string {
	userID, _ := c.Get("user_id").(string)
	if userID == "" {
		return nil
	}
	return &userID
}
