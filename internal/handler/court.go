package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ground-booking/internal/repository"
	"github.com/iliyamo/ground-booking/internal/service"
)

// CourtHandler serves the public court endpoints.  Catalog maintenance
// lives outside this service; these routes only read.
type CourtHandler struct {
	courts   repository.CourtReader
	bookings BookingAPI
}

func NewCourtHandler(courts repository.CourtReader, bookings BookingAPI) *CourtHandler {
	return &CourtHandler{courts: courts, bookings: bookings}
}

// Get handles GET /v1/courts/:id and returns the court with its slot
// template grouped by day.
func (h *CourtHandler) Get(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid court id")
	}
	court, err := h.courts.GetCourt(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			err = fmt.Errorf("%w: court %d", service.ErrNotFound, id)
		}
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, newCourtResponse(court))
}

// Availability handles GET /v1/courts/:id/availability?date=YYYY-MM-DD.
func (h *CourtHandler) Availability(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid court id")
	}
	d, err := time.Parse(dateLayout, c.QueryParam("date"))
	if err != nil {
		return badRequest(c, errInvalidDate.Error())
	}
	av, err := h.bookings.Availability(c.Request().Context(), id, d)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, availabilityResponse{
		CourtID: av.CourtID,
		Date:    av.Date.Format(dateLayout),
		Offered: av.Offered,
		Booked:  av.Booked,
		Free:    av.Free,
	})
}
