package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/workspace-booking/internal/service"
	"github.com/iliyamo/workspace-booking/internal/timeutil"
)

// CatalogHandler serves the read side of the catalog: zone and place
// listings and per-place availability.
type CatalogHandler struct {
	Catalog         *service.Catalog
	AvailabilitySvc *service.Availability
}

// NewCatalogHandler constructs a CatalogHandler.
func NewCatalogHandler(catalog *service.Catalog, availability *service.Availability) *CatalogHandler {
	if catalog == nil || availability == nil {
		panic("nil service passed to NewCatalogHandler")
	}
	return &CatalogHandler{Catalog: catalog, AvailabilitySvc: availability}
}

// ListZones handles GET /v1/zones.  Regular users see active zones
// only; administrators may pass ?include_inactive=true.
func (h *CatalogHandler) ListZones(c echo.Context) error {
	_, isAdmin, err := principal(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	includeInactive := isAdmin && c.QueryParam("include_inactive") == "true"
	zones, err := h.Catalog.ListZones(c.Request().Context(), includeInactive)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": zones})
}

// ListPlaces handles GET /v1/zones/:id/places.
func (h *CatalogHandler) ListPlaces(c echo.Context) error {
	zoneID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || zoneID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid zone id"})
	}
	places, err := h.Catalog.ListPlaces(c.Request().Context(), zoneID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": places})
}

// Availability handles GET /v1/places/:id/availability?date=YYYY-MM-DD.
// It returns the place's day as an ordered free/busy timeline in both
// UTC and display wall-clock form.
func (h *CatalogHandler) Availability(c echo.Context) error {
	placeID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || placeID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid place id"})
	}
	date := c.QueryParam("date")
	if date == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date is required"})
	}
	slots, err := h.AvailabilitySvc.Resolve(c.Request().Context(), placeID, date)
	if err != nil {
		return fail(c, err)
	}

	type slotView struct {
		StartTime  string `json:"start_time"`
		EndTime    string `json:"end_time"`
		StartLocal string `json:"start_local"`
		EndLocal   string `json:"end_local"`
		Status     string `json:"status"`
	}
	items := make([]slotView, 0, len(slots))
	for _, s := range slots {
		status := "busy"
		if s.Free {
			status = "free"
		}
		items = append(items, slotView{
			StartTime:  s.Interval.Start.Format(time.RFC3339),
			EndTime:    s.Interval.End.Format(time.RFC3339),
			StartLocal: timeutil.ToDisplay(s.Interval.Start),
			EndLocal:   timeutil.ToDisplay(s.Interval.End),
			Status:     status,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"place_id": placeID,
		"date":     date,
		"slots":    items,
	})
}
