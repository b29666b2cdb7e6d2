package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/ground-booking/internal/service"
)

// errorBody is the payload under "error" in every failed response.
type errorBody struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Slots   []string `json:"slots,omitempty"`
}

// errorStatus maps a service error to its HTTP status and machine code.
// Anything unrecognised is a 500.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrSlotConflict):
		return http.StatusConflict, "slot_conflict"
	case errors.Is(err, service.ErrDuplicateSlots):
		return http.StatusBadRequest, "duplicate_slots"
	case errors.Is(err, service.ErrCourtMismatch):
		return http.StatusBadRequest, "court_mismatch"
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrChannelMismatch):
		return http.StatusBadRequest, "channel_mismatch"
	case errors.Is(err, service.ErrNotYetCollected):
		return http.StatusConflict, "not_yet_collected"
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	}
	return http.StatusInternalServerError, "internal_error"
}

// respondError writes err in the standard error envelope.  Slot errors
// carry the offending labels.
func respondError(c echo.Context, err error) error {
	status, code := errorStatus(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
	}
	return c.JSON(status, echo.Map{"error": errorBody{
		Code:    code,
		Message: err.Error(),
		Slots:   service.SlotsOf(err),
	}})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": errorBody{Code: "invalid_input", Message: msg}})
}

func forbidden(c echo.Context) error {
	return c.JSON(http.StatusForbidden, echo.Map{"error": errorBody{Code: "forbidden", Message: "forbidden"}})
}

// parseID reads a positive numeric path parameter.
func parseID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

// queryUint reads an optional positive numeric query parameter.  An empty
// value yields 0.
func queryUint(c echo.Context, name string) (uint64, error) {
	v := c.QueryParam(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, errors.New(name + " must be a positive integer")
	}
	return n, nil
}

var (
	errInvalidBody   = errors.New("invalid body")
	errInvalidDate   = errors.New("date must be YYYY-MM-DD")
	errInvalidLimit  = errors.New("limit must be between 1 and 500")
	errInvalidOffset = errors.New("offset must be a non-negative integer")
)
