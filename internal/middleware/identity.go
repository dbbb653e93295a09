package middleware

// identity.go reads back the caller identity stored by JWTAuth.  Public
// routes never run JWTAuth, so every helper here tolerates its absence.

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-reservation/internal/model"
)

// PrincipalFrom returns the authenticated caller.  ok is false when the
// request did not pass through JWTAuth.
func PrincipalFrom(c echo.Context) (model.Principal, bool) {
	uid, ok := c.Get(CtxUserID).(uint64)
	if !ok || uid == 0 {
		return model.Principal{}, false
	}
	role, _ := c.Get(CtxRole).(string)
	return model.Principal{UserID: uid, Role: role}, true
}

// currentUserID returns the caller's ID as a string for rate limit keys,
// or "anon" for unauthenticated requests.
func currentUserID(c echo.Context) string {
	if p, ok := PrincipalFrom(c); ok {
		return strconv.FormatUint(p.UserID, 10)
	}
	return "anon"
}
