package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/workspace-booking/internal/model"
	"github.com/iliyamo/workspace-booking/internal/service"
	"github.com/iliyamo/workspace-booking/internal/timeutil"
)

// AdminHandler serves the zone management surface.  Every route it
// backs sits behind RequireAdmin, so the handlers trust the claim and
// do not re-check the role.
type AdminHandler struct {
	Catalog *service.Catalog
	Cascade *service.Cascade
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(catalog *service.Catalog, cascade *service.Cascade) *AdminHandler {
	if catalog == nil || cascade == nil {
		panic("nil service passed to NewAdminHandler")
	}
	return &AdminHandler{Catalog: catalog, Cascade: cascade}
}

// CreateZone handles POST /v1/admin/zones.  Capacity seeds the zone
// with that many places.
func (h *AdminHandler) CreateZone(c echo.Context) error {
	var body struct {
		Name     string  `json:"name"`
		Address  *string `json:"address"`
		Capacity int     `json:"capacity"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	zone, err := h.Catalog.CreateZone(c.Request().Context(), body.Name, body.Address, body.Capacity)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, zone)
}

// UpdateZone handles PATCH /v1/admin/zones/:id with a partial body.
func (h *AdminHandler) UpdateZone(c echo.Context) error {
	zoneID, ok := zoneParam(c)
	if !ok {
		return nil
	}
	var patch model.ZonePatch
	if err := c.Bind(&patch); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	zone, err := h.Catalog.UpdateZone(c.Request().Context(), zoneID, patch)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, zone)
}

// DeleteZone handles DELETE /v1/admin/zones/:id.  Without
// ?cascade=true the delete is refused while active bookings exist;
// with it, every active booking in the zone is cancelled first and the
// response reports how many.
func (h *AdminHandler) DeleteZone(c echo.Context) error {
	zoneID, ok := zoneParam(c)
	if !ok {
		return nil
	}
	cascade := c.QueryParam("cascade") == "true"
	cancelled, err := h.Catalog.DeleteZone(c.Request().Context(), zoneID, cascade)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"deleted":            true,
		"cancelled_bookings": len(cancelled),
	})
}

// CloseZone handles POST /v1/admin/zones/:id/close.  The closure
// window arrives as display-zone wall-clock strings; affected bookings
// come back in the response so the operator sees exactly what was
// cancelled.
func (h *AdminHandler) CloseZone(c echo.Context) error {
	zoneID, ok := zoneParam(c)
	if !ok {
		return nil
	}
	var body struct {
		Reason string `json:"reason"`
		From   string `json:"from"`
		To     string `json:"to"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	reason := strings.TrimSpace(body.Reason)
	if reason == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "reason is required"})
	}
	from, err := timeutil.ToStorage(body.From)
	if err != nil {
		return fail(c, err)
	}
	to, err := timeutil.ToStorage(body.To)
	if err != nil {
		return fail(c, err)
	}

	cancelled, err := h.Cascade.CloseZone(c.Request().Context(), zoneID, reason, from, to)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"zone_id":            zoneID,
		"cancelled_count":    len(cancelled),
		"cancelled_bookings": viewBookings(cancelled),
	})
}

// ReopenZone handles POST /v1/admin/zones/:id/reopen.  Reopening
// clears the closure metadata; bookings cancelled by the closure stay
// cancelled.
func (h *AdminHandler) ReopenZone(c echo.Context) error {
	zoneID, ok := zoneParam(c)
	if !ok {
		return nil
	}
	zone, err := h.Catalog.SetZoneActive(c.Request().Context(), zoneID, true)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, zone)
}

// Stats handles GET /v1/admin/zones/:id/stats.
func (h *AdminHandler) Stats(c echo.Context) error {
	zoneID, ok := zoneParam(c)
	if !ok {
		return nil
	}
	stats, err := h.Catalog.Stats(c.Request().Context(), zoneID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}

// zoneParam parses the :id path parameter, writing a 400 response
// itself when the value is unusable.
func zoneParam(c echo.Context) (uint64, bool) {
	zoneID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || zoneID == 0 {
		_ = c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid zone id"})
		return 0, false
	}
	return zoneID, true
}
