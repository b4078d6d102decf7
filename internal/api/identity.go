package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/dshills/postboard/pkg/types"
)

// Identity headers set by the authenticating gateway in front of the API
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
)

const actorKey = "postboard.actor"

// requireIdentity reads the caller from the gateway headers. Requests
// without a valid user id are rejected with 401.
func requireIdentity(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw := strings.TrimSpace(c.Request().Header.Get(HeaderUserID))
		if raw == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid user identity")
		}

		c.Set(actorKey, types.Actor{
			UserID: id,
			Role:   types.ParseRole(c.Request().Header.Get(HeaderUserRole)),
		})
		return next(c)
	}
}

// requireAdmin must run after requireIdentity
func requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !actorFrom(c).IsAdmin() {
			return echo.NewHTTPError(http.StatusForbidden, "admin role required")
		}
		return next(c)
	}
}

func actorFrom(c echo.Context) types.Actor {
	actor, _ := c.Get(actorKey).(types.Actor)
	return actor
}
