package main // Entry point package

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/workspace-booking/internal/clock"
	"github.com/iliyamo/workspace-booking/internal/config"
	"github.com/iliyamo/workspace-booking/internal/database"
	"github.com/iliyamo/workspace-booking/internal/handler"
	"github.com/iliyamo/workspace-booking/internal/lock"
	"github.com/iliyamo/workspace-booking/internal/queue"
	"github.com/iliyamo/workspace-booking/internal/repository"
	"github.com/iliyamo/workspace-booking/internal/router"
	"github.com/iliyamo/workspace-booking/internal/schedule"
	"github.com/iliyamo/workspace-booking/internal/service"
	"github.com/iliyamo/workspace-booking/migrations"
)

func main() {
	_ = godotenv.Load() // .env is optional, real env vars win
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := migrations.Apply(ctx, db); err != nil {
		cancel()
		log.Fatalf("migrations: %v", err)
	}
	cancel()

	zones := repository.NewZoneRepo(db)
	places := repository.NewPlaceRepo(db)
	bookings := repository.NewBookingRepo(db)

	locks := lock.NewKeyed(cfg.LockWait)
	clk := clock.NewSystem()

	publisher := queue.NewPublisher(cfg.RabbitURL, cfg.EventBuffer)
	publisher.Start()
	defer publisher.Close()

	policy := schedule.Policy{
		StepMinutes: cfg.BookingStepMin,
		MaxDuration: time.Duration(cfg.BookingMaxHours) * time.Hour,
	}
	ledger := service.NewLedger(bookings, places, zones, locks, clk, publisher, policy)
	availability := service.NewAvailability(bookings, places, zones)
	catalog := service.NewCatalog(zones, places, bookings, locks, clk, publisher)
	cascade := service.NewCascade(zones, places, bookings, locks, clk, publisher)

	rdb := config.NewRedisClient() // nil disables rate limiting

	e := echo.New()
	e.HideBanner = true
	router.RegisterRoutes(e)
	router.RegisterAPI(e,
		handler.NewCatalogHandler(catalog, availability),
		handler.NewBookingHandler(ledger),
		handler.NewAdminHandler(catalog, cascade),
		cfg.JWTSecret, rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
