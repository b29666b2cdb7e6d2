package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ground-booking/internal/middleware"
	"github.com/iliyamo/ground-booking/internal/model"
	"github.com/iliyamo/ground-booking/internal/repository"
	"github.com/iliyamo/ground-booking/internal/service"
)

// BookingAPI is the part of service.BookingService the HTTP layer uses.
type BookingAPI interface {
	Create(ctx context.Context, in service.BookingInput) (*model.Booking, error)
	Update(ctx context.Context, id uint64, in service.BookingInput) (*model.Booking, error)
	Get(ctx context.Context, id uint64) (*model.Booking, error)
	List(ctx context.Context, f repository.BookingFilter) ([]model.Booking, error)
	Count(ctx context.Context, f repository.BookingFilter) (int64, error)
	Delete(ctx context.Context, id uint64) error
	UpdatePayment(ctx context.Context, id uint64, p service.PaymentUpdate) (*model.Booking, error)
	Availability(ctx context.Context, courtID uint64, date time.Time) (*service.Availability, error)
}

// BookingHandler serves /v1/bookings.
type BookingHandler struct {
	svc BookingAPI
}

func NewBookingHandler(svc BookingAPI) *BookingHandler {
	if svc == nil {
		panic("nil booking service passed to NewBookingHandler")
	}
	return &BookingHandler{svc: svc}
}

// Create handles POST /v1/bookings.  Callers with the USER role always
// book as themselves; the user_id in the body is ignored for them.
func (h *BookingHandler) Create(c echo.Context) error {
	in, err := h.bind(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	b, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, newBookingResponse(b))
}

// Update handles PUT /v1/bookings/:id.
func (h *BookingHandler) Update(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid booking id")
	}
	if ok, err := h.authorize(c, id); !ok {
		return err
	}
	in, err := h.bind(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	b, err := h.svc.Update(c.Request().Context(), id, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, newBookingResponse(b))
}

// Get handles GET /v1/bookings/:id.
func (h *BookingHandler) Get(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid booking id")
	}
	b, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	if !canSee(c, b) {
		return forbidden(c)
	}
	return c.JSON(http.StatusOK, newBookingResponse(b))
}

// List handles GET /v1/bookings with optional ground_id, court_id, game_id,
// date, status, booking_type, limit and offset filters.
func (h *BookingHandler) List(c echo.Context) error {
	f, err := listFilter(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	bs, err := h.svc.List(c.Request().Context(), f)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, newBookingList(bs))
}

// Count handles GET /v1/bookings/count?ground_id=&game_id=.
func (h *BookingHandler) Count(c echo.Context) error {
	groundID, err := queryUint(c, "ground_id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	gameID, err := queryUint(c, "game_id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	n, err := h.svc.Count(c.Request().Context(), repository.BookingFilter{GroundID: groundID, GameID: gameID})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"count": n})
}

// UpdatePayment handles PUT /v1/bookings/:id/payment.
func (h *BookingHandler) UpdatePayment(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid booking id")
	}
	var req paymentRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, err.Error())
	}
	b, err := h.svc.UpdatePayment(c.Request().Context(), id, service.PaymentUpdate{
		Status:    req.PaymentStatus,
		Method:    req.PaymentMethod,
		Reference: req.PaymentReference,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, newBookingResponse(b))
}

// Delete handles DELETE /v1/bookings/:id.  The booking's slots become
// free immediately.
func (h *BookingHandler) Delete(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid booking id")
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// bind decodes and validates a booking body and converts it to service
// input, pinning USER callers to their own id.
func (h *BookingHandler) bind(c echo.Context) (service.BookingInput, error) {
	var req bookingRequest
	if err := c.Bind(&req); err != nil {
		return service.BookingInput{}, errInvalidBody
	}
	if err := c.Validate(&req); err != nil {
		return service.BookingInput{}, err
	}
	in, err := req.input()
	if err != nil {
		return service.BookingInput{}, errInvalidDate
	}
	if middleware.Role(c) == middleware.RoleUser && in.UserType == model.UserTypeUser {
		if uid, ok := middleware.UserID(c); ok {
			in.UserID = &uid
		}
	}
	return in, nil
}

// authorize lets admins and vendors touch any booking and users only their
// own.  When ok is false the response has already been written and err is
// the result of writing it.
func (h *BookingHandler) authorize(c echo.Context, id uint64) (ok bool, err error) {
	if middleware.Role(c) != middleware.RoleUser {
		return true, nil
	}
	b, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return false, respondError(c, err)
	}
	if !canSee(c, b) {
		return false, forbidden(c)
	}
	return true, nil
}

func canSee(c echo.Context, b *model.Booking) bool {
	if middleware.Role(c) != middleware.RoleUser {
		return true
	}
	uid, ok := middleware.UserID(c)
	return ok && b.UserID != nil && *b.UserID == uid
}

func listFilter(c echo.Context) (repository.BookingFilter, error) {
	var (
		f   repository.BookingFilter
		err error
	)
	if f.GroundID, err = queryUint(c, "ground_id"); err != nil {
		return f, err
	}
	if f.CourtID, err = queryUint(c, "court_id"); err != nil {
		return f, err
	}
	if f.GameID, err = queryUint(c, "game_id"); err != nil {
		return f, err
	}
	if v := c.QueryParam("date"); v != "" {
		d, err := time.Parse(dateLayout, v)
		if err != nil {
			return f, errInvalidDate
		}
		f.Date = &d
	}
	f.Status = c.QueryParam("status")
	f.BookingType = c.QueryParam("booking_type")
	f.Limit = 100
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			return f, errInvalidLimit
		}
		f.Limit = n
	}
	if v := c.QueryParam("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, errInvalidOffset
		}
		f.Offset = n
	}
	return f, nil
}
