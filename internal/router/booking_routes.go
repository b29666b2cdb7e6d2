package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ground-booking/internal/handler"
	"github.com/iliyamo/ground-booking/internal/middleware"
)

// RegisterBookings registers /v1/bookings.  Every route needs a valid JWT.
// Creating, reading and updating a booking is open to all roles; listing,
// counting, payment updates and deletion are for admins and vendors.
// Writes pass through the rate limiter.
func RegisterBookings(e *echo.Echo, h *handler.BookingHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group(
		"/v1/bookings",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(middleware.RoleAdmin, middleware.RoleVendor, middleware.RoleUser),
	)
	staff := middleware.RequireRole(middleware.RoleAdmin, middleware.RoleVendor)

	g.POST("", h.Create, limiter)
	g.GET("", h.List, staff)
	g.GET("/count", h.Count, staff)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update, limiter)
	g.PUT("/:id/payment", h.UpdatePayment, staff, limiter)
	g.DELETE("/:id", h.Delete, staff)
}
