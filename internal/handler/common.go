// Package handler contains the Echo HTTP handlers.  JWT authentication
// and the admin gate run in middleware; handlers read the principal
// from the context and translate service failures into HTTP responses.
package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/workspace-booking/internal/middleware"
	"github.com/iliyamo/workspace-booking/internal/model"
	"github.com/iliyamo/workspace-booking/internal/service"
	"github.com/iliyamo/workspace-booking/internal/timeutil"
)

// principal returns the authenticated user id and admin capability.
func principal(c echo.Context) (uint64, bool, error) {
	id, ok := c.Get(middleware.CtxUserID).(uint64)
	if !ok {
		return 0, false, errors.New("no principal in context")
	}
	isAdmin, _ := c.Get(middleware.CtxIsAdmin).(bool)
	return id, isAdmin, nil
}

// fail maps an engine error onto an HTTP response.  Unrecognized
// errors become an opaque 500 so internals never leak to clients.
func fail(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidRange),
		errors.Is(err, service.ErrInvalidFormat):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, service.ErrSlotConflict),
		errors.Is(err, service.ErrAlreadyTerminal),
		errors.Is(err, service.ErrHasActiveBookings),
		errors.Is(err, service.ErrResourceUnavailable),
		errors.Is(err, service.ErrNoAvailablePlace):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrBusy):
		c.Response().Header().Set("Retry-After", "1")
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "resource busy, retry"})
	default:
		c.Logger().Errorf("internal error: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}

// bookingView decorates a booking with display-zone wall-clock strings
// so clients never do timezone arithmetic themselves.
type bookingView struct {
	model.Booking
	StartLocal string `json:"start_local"`
	EndLocal   string `json:"end_local"`
}

func viewBooking(b model.Booking) bookingView {
	return bookingView{
		Booking:    b,
		StartLocal: timeutil.ToDisplay(b.StartTime),
		EndLocal:   timeutil.ToDisplay(b.EndTime),
	}
}

func viewBookings(bs []model.Booking) []bookingView {
	out := make([]bookingView, 0, len(bs))
	for _, b := range bs {
		out = append(out, viewBooking(b))
	}
	return out
}
