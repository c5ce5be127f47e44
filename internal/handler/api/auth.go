package api

import (
	"github.com/labstack/echo/v4"

	xhttp "CoinPulse/pkg/http"
)

// The auth layer lives upstream: the gateway verifies the session token and
// forwards the resolved account in this header. Requests missing it never
// reach the ledger.
const userIDHeader = "X-User-ID"

const userIDContextKey = "coinpulse.userID"

// RequireUser lifts the forwarded user ID into the request context and
// rejects requests without one.
func RequireUser() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(userIDHeader)
			if id == "" {
				return xhttp.UnauthorizedResponse(c, "no user provided")
			}
			c.Set(userIDContextKey, id)
			return next(c)
		}
	}
}

// UserID returns the authenticated user for the request, or "".
func UserID(c echo.Context) string {
	id, _ := c.Get(userIDContextKey).(string)
	return id
}
