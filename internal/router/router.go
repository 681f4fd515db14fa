package router // package router defines how HTTP routes are registered for the API

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/workspace-booking/internal/handler"
	"github.com/iliyamo/workspace-booking/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health check
// for load balancers and monitoring.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAPI registers the authenticated API surface.  Everything
// lives under /v1 behind JWT auth and a per-user rate limit; the zone
// management routes under /v1/admin additionally require the admin
// claim.
func RegisterAPI(e *echo.Echo, catalog *handler.CatalogHandler, booking *handler.BookingHandler,
	admin *handler.AdminHandler, jwtSecret string, rdb *redis.Client) {
	v1 := e.Group("/v1")
	v1.Use(middleware.JWTAuth(jwtSecret))
	v1.Use(middleware.RateLimit(rdb, 60, time.Minute))

	// Browse and availability.
	v1.GET("/zones", catalog.ListZones)
	v1.GET("/zones/:id/places", catalog.ListPlaces)
	v1.GET("/places/:id/availability", catalog.Availability)

	// Booking lifecycle.
	v1.POST("/bookings", booking.Create)
	v1.POST("/bookings/by-zone", booking.CreateByZone)
	v1.POST("/bookings/:id/cancel", booking.Cancel)
	v1.POST("/bookings/:id/extend", booking.Extend)
	v1.GET("/bookings/history", booking.History)

	// Zone management, admin only.
	adm := v1.Group("/admin")
	adm.Use(middleware.RequireAdmin())
	adm.POST("/zones", admin.CreateZone)
	adm.PATCH("/zones/:id", admin.UpdateZone)
	adm.DELETE("/zones/:id", admin.DeleteZone)
	adm.POST("/zones/:id/close", admin.CloseZone)
	adm.POST("/zones/:id/reopen", admin.ReopenZone)
	adm.GET("/zones/:id/stats", admin.Stats)
}
