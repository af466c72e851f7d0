package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// AdminID returns the authenticated admin stored by JWTAuth.
func AdminID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(CtxAdminID).(uint64)
	return id, ok && id > 0
}

// principal names the caller for rate-limit keys: the admin ID when
// authenticated, else "anon".
func principal(c echo.Context) string {
	if id, ok := AdminID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}

func passthrough(next echo.HandlerFunc) echo.HandlerFunc { return next }
