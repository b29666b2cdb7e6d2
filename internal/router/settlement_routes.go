package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ground-booking/internal/handler"
	"github.com/iliyamo/ground-booking/internal/middleware"
)

// RegisterSettlements registers /v1/settlements.  Admins and vendors can
// read summaries and record cash collection; only admins acknowledge that
// their share was received.
func RegisterSettlements(e *echo.Echo, h *handler.SettlementHandler, jwtSecret string) {
	g := e.Group(
		"/v1/settlements",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(middleware.RoleAdmin, middleware.RoleVendor),
	)
	adminOnly := middleware.RequireRole(middleware.RoleAdmin)

	g.GET("/cash", h.CashSummary)
	g.GET("/online", h.OnlineSummary)
	g.POST("/cash/:id/collected", h.MarkCashCollected)
	g.POST("/cash/:id/received", h.MarkAdminReceived, adminOnly)
	g.POST("/online/:id/received", h.MarkOnlineSettled, adminOnly)
}
