package service

import (
	"context"
	"time"

	"github.com/iliyamo/workspace-booking/internal/model"
	"github.com/iliyamo/workspace-booking/internal/queue"
)

// ZoneStore is the slice of zone persistence the services need.
// Implemented by repository.ZoneRepo; tests substitute an in-memory
// fake.  Not-found conditions use the repository sentinel errors.
type ZoneStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Zone, error)
	List(ctx context.Context, includeInactive bool) ([]model.Zone, error)
	CreateWithPlaces(ctx context.Context, z *model.Zone, capacity int) error
	Update(ctx context.Context, id uint64, patch model.ZonePatch) (*model.Zone, error)
	Delete(ctx context.Context, id uint64) error
	SetActive(ctx context.Context, id uint64, active bool, reason *string, closedUntil *time.Time) error
}

// PlaceStore reads places.  Implemented by repository.PlaceRepo.
type PlaceStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Place, error)
	ListByZone(ctx context.Context, zoneID uint64) ([]model.Place, error)
}

// BookingStore is the ledger's persistence contract.  Implemented by
// repository.BookingRepo.  Check-then-write sequences against it are
// only safe while the caller holds the relevant place lock.
type BookingStore interface {
	Create(ctx context.Context, b *model.Booking) error
	GetByID(ctx context.Context, id uint64) (*model.Booking, error)
	AnyOverlap(ctx context.Context, placeID uint64, start, end time.Time, excludeID uint64) (bool, error)
	ActiveByPlaceBetween(ctx context.Context, placeID uint64, from, to time.Time) ([]model.Booking, error)
	ActiveByZoneIntersecting(ctx context.Context, zoneID uint64, from, to time.Time) ([]model.Booking, error)
	SetStatus(ctx context.Context, id uint64, status string, reason, origin *string) error
	SetEndTime(ctx context.Context, id uint64, end time.Time) error
	HistoryByUser(ctx context.Context, userID uint64, f model.HistoryFilter) ([]model.Booking, error)
	ZoneHasActive(ctx context.Context, zoneID uint64) (bool, error)
	ZoneStats(ctx context.Context, zoneID uint64, now time.Time) (model.ZoneStats, error)
}

// Emitter hands a notification event to the dispatcher queue.  Calls
// block until the event is buffered, which is the hand-off guarantee;
// services must emit only after their state mutation has committed and
// never while holding a place lock.
type Emitter interface {
	Emit(ev queue.Event)
}
