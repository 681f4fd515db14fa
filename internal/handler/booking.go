package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/workspace-booking/internal/model"
	"github.com/iliyamo/workspace-booking/internal/service"
	"github.com/iliyamo/workspace-booking/internal/timeutil"
)

// BookingHandler serves the booking write path and history reads on
// behalf of authenticated users.
type BookingHandler struct {
	Ledger *service.Ledger
}

// NewBookingHandler constructs a BookingHandler.
func NewBookingHandler(ledger *service.Ledger) *BookingHandler {
	if ledger == nil {
		panic("nil ledger passed to NewBookingHandler")
	}
	return &BookingHandler{Ledger: ledger}
}

// Create handles POST /v1/bookings.  Times arrive as display-zone
// wall-clock strings ("YYYY-MM-DD HH:MM") and are normalized to UTC
// before they reach the ledger.
func (h *BookingHandler) Create(c echo.Context) error {
	userID, _, err := principal(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		PlaceID   uint64 `json:"place_id"`
		StartTime string `json:"start_time"`
		EndTime   string `json:"end_time"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.PlaceID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "place_id is required"})
	}
	start, err := timeutil.ToStorage(body.StartTime)
	if err != nil {
		return fail(c, err)
	}
	end, err := timeutil.ToStorage(body.EndTime)
	if err != nil {
		return fail(c, err)
	}

	b, err := h.Ledger.Create(c.Request().Context(), userID, body.PlaceID, start, end)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, viewBooking(*b))
}

// CreateByZone handles POST /v1/bookings/by-zone: book any free place
// in the zone over the requested wall-clock range.
func (h *BookingHandler) CreateByZone(c echo.Context) error {
	userID, _, err := principal(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		ZoneID    uint64 `json:"zone_id"`
		Date      string `json:"date"`
		StartTime string `json:"start_time"` // "HH:MM"
		EndTime   string `json:"end_time"`   // "HH:MM"
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.ZoneID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "zone_id is required"})
	}

	b, err := h.Ledger.CreateByZoneAndTime(c.Request().Context(), userID, body.ZoneID, body.Date, body.StartTime, body.EndTime)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, viewBooking(*b))
}

// Cancel handles POST /v1/bookings/:id/cancel.
func (h *BookingHandler) Cancel(c echo.Context) error {
	userID, isAdmin, err := principal(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || bookingID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	var body struct {
		Reason string `json:"reason"`
	}
	_ = c.Bind(&body) // reason is optional, missing body is fine
	var reason *string
	if r := strings.TrimSpace(body.Reason); r != "" {
		reason = &r
	}

	b, err := h.Ledger.Cancel(c.Request().Context(), bookingID, userID, isAdmin, reason)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, viewBooking(*b))
}

// Extend handles POST /v1/bookings/:id/extend with an extra_minutes
// payload; the extension must keep the whole span within policy.
func (h *BookingHandler) Extend(c echo.Context) error {
	userID, _, err := principal(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || bookingID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	var body struct {
		ExtraMinutes int `json:"extra_minutes"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	b, err := h.Ledger.Extend(c.Request().Context(), bookingID, userID,
		time.Duration(body.ExtraMinutes)*time.Minute)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, viewBooking(*b))
}

// History handles GET /v1/bookings/history.  Filters: status, zone_id,
// from/to (display-zone dates matched against booking start), and
// order=asc to flip the default newest-first ordering.
func (h *BookingHandler) History(c echo.Context) error {
	userID, _, err := principal(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var f model.HistoryFilter
	if s := c.QueryParam("status"); s != "" {
		status := strings.ToUpper(s)
		switch status {
		case model.StatusActive, model.StatusCancelled, model.StatusCompleted:
			f.Status = &status
		default:
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status filter"})
		}
	}
	if z := c.QueryParam("zone_id"); z != "" {
		zoneID, err := strconv.ParseUint(z, 10, 64)
		if err != nil || zoneID == 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid zone_id filter"})
		}
		f.ZoneID = &zoneID
	}
	if d := c.QueryParam("from"); d != "" {
		start, _, err := timeutil.DayWindow(d)
		if err != nil {
			return fail(c, err)
		}
		f.DateFrom = &start
	}
	if d := c.QueryParam("to"); d != "" {
		_, end, err := timeutil.DayWindow(d)
		if err != nil {
			return fail(c, err)
		}
		f.DateTo = &end
	}
	f.Ascending = c.QueryParam("order") == "asc"

	items, err := h.Ledger.History(c.Request().Context(), userID, f)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": viewBookings(items)})
}
