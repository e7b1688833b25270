package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Health is a liveness check for load balancers.  It does not touch the
// database and always returns a plain text "ok" with 200.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// APIHealth handles GET /api/health.  It pings the store and reports the
// roster size; a failing store yields 503 so monitors can tell the
// process is up but unusable.
func (h *RotationHandler) APIHealth(c echo.Context) error {
	now := time.Now().UTC().Format(time.RFC3339)
	n, err := h.Engine.Health(c.Request().Context())
	if err != nil {
		c.Logger().Errorf("health: %v", err)
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "ERROR", "timestamp": now, "error": "storage unavailable"})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "OK", "timestamp": now, "sellers": n})
}
