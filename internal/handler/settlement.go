package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ground-booking/internal/model"
	"github.com/iliyamo/ground-booking/internal/service"
)

// SettlementAPI is the part of service.SettlementService the HTTP layer uses.
type SettlementAPI interface {
	Summary(ctx context.Context, channel string, f service.SummaryFilter) (*service.Summary, error)
	MarkCashCollected(ctx context.Context, id uint64, party string) (*model.Booking, error)
	MarkAdminReceived(ctx context.Context, id uint64) (*model.Booking, error)
	MarkOnlineSettled(ctx context.Context, id uint64) (*model.Booking, error)
}

// SettlementHandler serves /v1/settlements.
type SettlementHandler struct {
	svc SettlementAPI
}

func NewSettlementHandler(svc SettlementAPI) *SettlementHandler {
	if svc == nil {
		panic("nil settlement service passed to NewSettlementHandler")
	}
	return &SettlementHandler{svc: svc}
}

// CashSummary handles GET /v1/settlements/cash.
func (h *SettlementHandler) CashSummary(c echo.Context) error {
	return h.summary(c, model.BookingTypeCash)
}

// OnlineSummary handles GET /v1/settlements/online.
func (h *SettlementHandler) OnlineSummary(c echo.Context) error {
	return h.summary(c, model.BookingTypeOnline)
}

// summary accepts ?ground_id= and ?include_settled=true.
func (h *SettlementHandler) summary(c echo.Context, channel string) error {
	groundID, err := queryUint(c, "ground_id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	f := service.SummaryFilter{GroundID: groundID, IncludeSettled: c.QueryParam("include_settled") == "true"}
	sum, err := h.svc.Summary(c.Request().Context(), channel, f)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, newSummaryResponse(sum))
}

// MarkCashCollected handles POST /v1/settlements/cash/:id/collected with
// body {"collected_by": "vendor"|"admin"}.
func (h *SettlementHandler) MarkCashCollected(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid booking id")
	}
	var req cashCollectedRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, errInvalidBody.Error())
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, err.Error())
	}
	b, err := h.svc.MarkCashCollected(c.Request().Context(), id, req.CollectedBy)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, newBookingResponse(b))
}

// MarkAdminReceived handles POST /v1/settlements/cash/:id/received.
func (h *SettlementHandler) MarkAdminReceived(c echo.Context) error {
	return h.mark(c, h.svc.MarkAdminReceived)
}

// MarkOnlineSettled handles POST /v1/settlements/online/:id/received.
func (h *SettlementHandler) MarkOnlineSettled(c echo.Context) error {
	return h.mark(c, h.svc.MarkOnlineSettled)
}

func (h *SettlementHandler) mark(c echo.Context, fn func(context.Context, uint64) (*model.Booking, error)) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid booking id")
	}
	b, err := fn(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, newBookingResponse(b))
}
