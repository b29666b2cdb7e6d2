// Package router registers the HTTP routes of the booking API on an Echo
// instance.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ground-booking/internal/handler"
)

// RegisterRoutes registers routes that do not require authentication.
// Currently it exposes only the health check.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterPublic registers the unauthenticated court endpoints.  Court
// details change rarely and go through the response cache; availability
// changes with every booking and is never cached.
func RegisterPublic(e *echo.Echo, h *handler.CourtHandler, cache echo.MiddlewareFunc) {
	e.GET("/v1/courts/:id", h.Get, cache)
	e.GET("/v1/courts/:id/availability", h.Availability)
}
