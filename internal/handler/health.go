package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Pinger reports whether a backing dependency is reachable.
type Pinger func(ctx context.Context) error

// Health returns the liveness endpoint used by load balancers.  With a
// pinger it also checks the store and answers 503 when it is down.
func Health(ping Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		if ping == nil {
			return c.String(http.StatusOK, "ok")
		}
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := ping(ctx); err != nil {
			return c.String(http.StatusServiceUnavailable, "store unavailable")
		}
		return c.String(http.StatusOK, "ok")
	}
}
