// Package router defines how HTTP routes are registered on echo.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seller-rotation/internal/handler"
)

// RegisterRoutes registers routes that sit outside the rotation API.
// Currently it exposes only the liveness check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// Middlewares groups the optional Redis-backed layers wrapped around the
// rotation API.  Nil entries are skipped.  Cache invalidation is not a
// middleware: the engine bumps the generation itself after each commit.
type Middlewares struct {
	Cache     echo.MiddlewareFunc // read cache for state and stats
	RateLimit echo.MiddlewareFunc // token bucket on writes
}

// RegisterRotation mounts the rotation endpoints under /api.
func RegisterRotation(e *echo.Echo, h *handler.RotationHandler, mw Middlewares) {
	api := e.Group("/api")

	api.GET("/health", h.APIHealth)

	reads := api.Group("", compact(mw.Cache)...)
	reads.GET("/state", h.State)
	reads.GET("/stats", h.Stats)

	writes := api.Group("", compact(mw.RateLimit)...)
	writes.POST("/day/start", h.StartDay)
	writes.POST("/day/end", h.EndDay)
	writes.POST("/sellers", h.AddSeller)
	writes.POST("/customers/take", h.TakeCustomer)
	writes.POST("/customers/abandon", h.AbandonCustomer)
	writes.POST("/sales", h.RecordSale)
	writes.POST("/sales/direct", h.RecordDirectSale)
	writes.POST("/reset", h.Reset)
}

func compact(mws ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	out := make([]echo.MiddlewareFunc, 0, len(mws))
	for _, m := range mws {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}
