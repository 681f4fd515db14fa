package service

import (
	"context"
	"strings"
	"time"

	"github.com/iliyamo/workspace-booking/internal/clock"
	"github.com/iliyamo/workspace-booking/internal/lock"
	"github.com/iliyamo/workspace-booking/internal/model"
	"github.com/iliyamo/workspace-booking/internal/queue"
)

// Catalog owns the zone/place lifecycle.  Plain reads and metadata
// updates have no side effects; zone deletion with cascade flows
// through the same cancel-and-notify path the closure cascade uses.
type Catalog struct {
	zones    ZoneStore
	places   PlaceStore
	bookings BookingStore
	locks    *lock.Keyed
	clk      clock.Clock
	emitter  Emitter
}

// NewCatalog wires the catalog.
func NewCatalog(zones ZoneStore, places PlaceStore, bookings BookingStore,
	locks *lock.Keyed, clk clock.Clock, emitter Emitter) *Catalog {
	return &Catalog{zones: zones, places: places, bookings: bookings, locks: locks, clk: clk, emitter: emitter}
}

// ListZones returns zones ordered by name.  Inactive zones are included
// only for administrative listings.
func (c *Catalog) ListZones(ctx context.Context, includeInactive bool) ([]model.Zone, error) {
	return c.zones.List(ctx, includeInactive)
}

// ListPlaces returns every place in the zone in ascending id order, or
// ErrNotFound when the zone does not exist.
func (c *Catalog) ListPlaces(ctx context.Context, zoneID uint64) ([]model.Place, error) {
	if _, err := c.zones.GetByID(ctx, zoneID); err != nil {
		return nil, mapNotFound(err)
	}
	return c.places.ListByZone(ctx, zoneID)
}

// GetZone returns one zone or ErrNotFound.
func (c *Catalog) GetZone(ctx context.Context, zoneID uint64) (*model.Zone, error) {
	z, err := c.zones.GetByID(ctx, zoneID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return z, nil
}

// CreateZone atomically creates a zone together with capacity places.
func (c *Catalog) CreateZone(ctx context.Context, name string, address *string, capacity int) (*model.Zone, error) {
	name = strings.TrimSpace(name)
	if name == "" || capacity < 1 {
		return nil, ErrInvalidRange
	}
	z := &model.Zone{Name: name, Address: address, IsActive: true}
	if err := c.zones.CreateWithPlaces(ctx, z, capacity); err != nil {
		return nil, err
	}
	return z, nil
}

// UpdateZone applies a metadata patch and returns the updated zone.
func (c *Catalog) UpdateZone(ctx context.Context, zoneID uint64, patch model.ZonePatch) (*model.Zone, error) {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, ErrInvalidRange
	}
	z, err := c.zones.Update(ctx, zoneID, patch)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return z, nil
}

// DeleteZone removes a zone and its places.  Without cascade the
// operation refuses with ErrHasActiveBookings while any place under the
// zone still carries an active booking.  With cascade those bookings
// are cancelled first (attributed to the zone closure origin) and their
// owners notified, then the zone is deleted.
func (c *Catalog) DeleteZone(ctx context.Context, zoneID uint64, cascade bool) ([]model.Booking, error) {
	zone, err := c.zones.GetByID(ctx, zoneID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	places, err := c.places.ListByZone(ctx, zoneID)
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(places))
	for _, p := range places {
		ids = append(ids, p.ID)
	}

	// The active-booking gate, the cancellations and the delete itself
	// all run under every place lock of the zone, so a concurrent create
	// cannot commit a booking between the gate and the delete.
	if err := c.locks.AcquireAll(ctx, ids); err != nil {
		return nil, err
	}
	cancelled, err := c.deleteLocked(ctx, zone, cascade)
	c.locks.ReleaseAll(ids)
	if err != nil {
		return nil, err
	}
	reason := "zone deleted"
	for i := range cancelled {
		b := &cancelled[i]
		c.emitter.Emit(queue.Event{
			Kind:       queue.KindBookingCancelled,
			BookingID:  b.ID,
			UserID:     b.UserID,
			ZoneID:     zone.ID,
			ZoneName:   zone.Name,
			StartsAt:   b.StartTime.Format(time.RFC3339),
			EndsAt:     b.EndTime.Format(time.RFC3339),
			Reason:     reason,
			OccurredAt: c.clk.Now().Format(time.RFC3339),
		})
	}
	return cancelled, nil
}

func (c *Catalog) deleteLocked(ctx context.Context, zone *model.Zone, cascade bool) ([]model.Booking, error) {
	hasActive, err := c.bookings.ZoneHasActive(ctx, zone.ID)
	if err != nil {
		return nil, err
	}
	if hasActive && !cascade {
		return nil, ErrHasActiveBookings
	}
	var cancelled []model.Booking
	if hasActive {
		cancelled, err = c.cancelAllActive(ctx, zone)
		if err != nil {
			return nil, err
		}
	}
	if err := c.zones.Delete(ctx, zone.ID); err != nil {
		return nil, mapNotFound(err)
	}
	return cancelled, nil
}

// cancelAllActive cancels every active booking in the zone.  The
// caller holds all of the zone's place locks.
func (c *Catalog) cancelAllActive(ctx context.Context, zone *model.Zone) ([]model.Booking, error) {
	// An unbounded window catches every active booking regardless of
	// how far out it was made.
	farPast := time.Unix(0, 0).UTC()
	farFuture := c.clk.Now().AddDate(100, 0, 0)
	affected, err := c.bookings.ActiveByZoneIntersecting(ctx, zone.ID, farPast, farFuture)
	if err != nil {
		return nil, err
	}
	reason := "zone deleted"
	origin := model.CancelByZoneClosure
	cancelled := make([]model.Booking, 0, len(affected))
	for i := range affected {
		if err := c.bookings.SetStatus(ctx, affected[i].ID, model.StatusCancelled, &reason, &origin); err != nil {
			continue // already terminal, nothing to cancel
		}
		affected[i].Status = model.StatusCancelled
		affected[i].CancellationReason = &reason
		affected[i].CancelOrigin = &origin
		cancelled = append(cancelled, affected[i])
	}
	return cancelled, nil
}

// SetZoneActive reopens or permanently deactivates a zone.  Reopening
// clears the closure metadata but never resurrects cancelled bookings;
// deactivating through this path is not an administrative closure, so
// the closure fields stay null.
func (c *Catalog) SetZoneActive(ctx context.Context, zoneID uint64, active bool) (*model.Zone, error) {
	if _, err := c.zones.GetByID(ctx, zoneID); err != nil {
		return nil, mapNotFound(err)
	}
	if err := c.zones.SetActive(ctx, zoneID, active, nil, nil); err != nil {
		return nil, mapNotFound(err)
	}
	return c.GetZone(ctx, zoneID)
}

// Stats reports the zone's ledger snapshot as of the current instant.
func (c *Catalog) Stats(ctx context.Context, zoneID uint64) (model.ZoneStats, error) {
	if _, err := c.zones.GetByID(ctx, zoneID); err != nil {
		return model.ZoneStats{}, mapNotFound(err)
	}
	return c.bookings.ZoneStats(ctx, zoneID, c.clk.Now())
}
