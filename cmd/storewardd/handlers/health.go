package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	apierr "github.com/storeward/storeward/pkg/api/types/errors"
)

// Pinger reports whether the backing database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthHandler(db Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := db.Ping(c.Request().Context()); err != nil {
			return apierr.ServiceUnavailable("database is unreachable; retry later", err)
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
	}
}
