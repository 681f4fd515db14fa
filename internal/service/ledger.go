package service

import (
	"context"
	"time"

	"github.com/iliyamo/workspace-booking/internal/clock"
	"github.com/iliyamo/workspace-booking/internal/lock"
	"github.com/iliyamo/workspace-booking/internal/model"
	"github.com/iliyamo/workspace-booking/internal/queue"
	"github.com/iliyamo/workspace-booking/internal/schedule"
	"github.com/iliyamo/workspace-booking/internal/timeutil"
)

// Ledger owns the booking lifecycle and enforces the no-overlap
// invariant at write time.  Every operation that reads the active set
// for a place and then writes holds that place's lock, so two
// concurrent creates for the same place can never both commit.
// Notification events are emitted strictly after the mutation is
// persisted and after the lock is released.
type Ledger struct {
	bookings BookingStore
	places   PlaceStore
	zones    ZoneStore
	locks    *lock.Keyed
	clk      clock.Clock
	emitter  Emitter
	policy   schedule.Policy
}

// NewLedger wires the ledger.  All dependencies must be non-nil.
func NewLedger(bookings BookingStore, places PlaceStore, zones ZoneStore,
	locks *lock.Keyed, clk clock.Clock, emitter Emitter, policy schedule.Policy) *Ledger {
	if bookings == nil || places == nil || zones == nil || locks == nil || clk == nil || emitter == nil {
		panic("nil dependency passed to NewLedger")
	}
	return &Ledger{
		bookings: bookings,
		places:   places,
		zones:    zones,
		locks:    locks,
		clk:      clk,
		emitter:  emitter,
		policy:   policy,
	}
}

// Create books a place for [start, end).  It validates the interval
// against the policy, requires the place and its zone to be active and
// atomically re-checks for overlap before inserting.
func (l *Ledger) Create(ctx context.Context, userID, placeID uint64, start, end time.Time) (*model.Booking, error) {
	iv := schedule.Interval{Start: start.UTC(), End: end.UTC()}
	if err := l.policy.Validate(iv); err != nil {
		return nil, err
	}
	place, zone, err := l.activePlace(ctx, placeID)
	if err != nil {
		return nil, err
	}

	if err := l.locks.Acquire(ctx, placeID); err != nil {
		return nil, err
	}
	b, err := l.insertFree(ctx, userID, place, zone, iv)
	l.locks.Release(placeID)
	if err != nil {
		return nil, err
	}

	l.emitter.Emit(l.event(queue.KindBookingCreated, b, ""))
	return b, nil
}

// CreateByZoneAndTime converts the wall-clock range to UTC and books
// the first place in the zone that is fully free over it, walking
// places in ascending id order.  Returns ErrNoAvailablePlace when the
// search exhausts the zone.
func (l *Ledger) CreateByZoneAndTime(ctx context.Context, userID, zoneID uint64, date, startWall, endWall string) (*model.Booking, error) {
	start, err := timeutil.CombineToStorage(date, startWall)
	if err != nil {
		return nil, err
	}
	end, err := timeutil.CombineToStorage(date, endWall)
	if err != nil {
		return nil, err
	}
	iv := schedule.Interval{Start: start, End: end}
	if err := l.policy.Validate(iv); err != nil {
		return nil, err
	}

	zone, err := l.zones.GetByID(ctx, zoneID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if !zone.IsActive {
		return nil, ErrResourceUnavailable
	}
	places, err := l.places.ListByZone(ctx, zoneID)
	if err != nil {
		return nil, err
	}

	for i := range places {
		place := &places[i]
		if !place.IsActive {
			continue
		}
		if err := l.locks.Acquire(ctx, place.ID); err != nil {
			return nil, err
		}
		b, err := l.insertFree(ctx, userID, place, zone, iv)
		l.locks.Release(place.ID)
		if err == ErrSlotConflict {
			continue // place taken, try the next one
		}
		if err != nil {
			return nil, err
		}
		l.emitter.Emit(l.event(queue.KindBookingCreated, b, ""))
		return b, nil
	}
	return nil, ErrNoAvailablePlace
}

// insertFree performs the atomic overlap-check-and-insert.  The caller
// must hold the place lock.
func (l *Ledger) insertFree(ctx context.Context, userID uint64, place *model.Place, zone *model.Zone, iv schedule.Interval) (*model.Booking, error) {
	conflict, err := l.bookings.AnyOverlap(ctx, place.ID, iv.Start, iv.End, 0)
	if err != nil {
		return nil, err
	}
	if conflict {
		return nil, ErrSlotConflict
	}
	b := &model.Booking{
		UserID:      userID,
		PlaceID:     place.ID,
		ZoneName:    &zone.Name,
		ZoneAddress: zone.Address,
		StartTime:   iv.Start,
		EndTime:     iv.End,
		Status:      model.StatusActive,
	}
	if err := l.bookings.Create(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Cancel transitions a booking to CANCELLED.  The acting principal must
// be the owner or an administrator.
func (l *Ledger) Cancel(ctx context.Context, bookingID, actorID uint64, isAdmin bool, reason *string) (*model.Booking, error) {
	b, err := l.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if !canActOn(actorID, isAdmin, b) {
		return nil, ErrForbidden
	}
	if b.Terminal() {
		return nil, ErrAlreadyTerminal
	}

	placeID := b.PlaceID
	if err := l.locks.Acquire(ctx, placeID); err != nil {
		return nil, err
	}
	b, err = l.cancelLocked(ctx, bookingID, reason)
	l.locks.Release(placeID)
	if err != nil {
		return nil, err
	}

	l.emitter.Emit(l.event(queue.KindBookingCancelled, b, strOrEmpty(reason)))
	return b, nil
}

// cancelLocked re-reads the booking under the place lock, so a racing
// cancel that committed after the unlocked check surfaces as
// AlreadyTerminal rather than as a miss of the guarded update.
func (l *Ledger) cancelLocked(ctx context.Context, bookingID uint64, reason *string) (*model.Booking, error) {
	b, err := l.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if b.Terminal() {
		return nil, ErrAlreadyTerminal
	}
	origin := model.CancelByUser
	if err := l.bookings.SetStatus(ctx, bookingID, model.StatusCancelled, reason, &origin); err != nil {
		return nil, mapNotFound(err)
	}
	updated, err := l.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return updated, nil
}

// Extend pushes a booking's end time out by extra, in place.  Only the
// owner may extend.  The extended tail must not overlap any other
// active booking on the place, the whole span must still satisfy the
// maximum-duration policy, and the place and zone must still be active
// (a zone closed for maintenance mid-booking refuses extension).
func (l *Ledger) Extend(ctx context.Context, bookingID, actorID uint64, extra time.Duration) (*model.Booking, error) {
	if err := l.policy.ValidateExtra(extra); err != nil {
		return nil, err
	}
	b, err := l.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if b.UserID != actorID {
		return nil, ErrForbidden
	}
	if b.Terminal() {
		return nil, ErrAlreadyTerminal
	}
	if err := l.policy.Validate(schedule.Interval{Start: b.StartTime, End: b.EndTime.Add(extra)}); err != nil {
		return nil, err
	}
	if _, _, err := l.activePlace(ctx, b.PlaceID); err != nil {
		return nil, err
	}

	placeID := b.PlaceID
	if err := l.locks.Acquire(ctx, placeID); err != nil {
		return nil, err
	}
	b, err = l.extendLocked(ctx, bookingID, extra)
	l.locks.Release(placeID)
	if err != nil {
		return nil, err
	}

	l.emitter.Emit(l.event(queue.KindBookingExtended, b, ""))
	return b, nil
}

// extendLocked re-reads the booking under the place lock and extends
// from its current end, so a concurrent extend or cancel that won the
// lock first is observed rather than raced.
func (l *Ledger) extendLocked(ctx context.Context, bookingID uint64, extra time.Duration) (*model.Booking, error) {
	b, err := l.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if b.Terminal() {
		return nil, ErrAlreadyTerminal
	}
	newEnd := b.EndTime.Add(extra)
	if err := l.policy.Validate(schedule.Interval{Start: b.StartTime, End: newEnd}); err != nil {
		return nil, err
	}
	conflict, err := l.bookings.AnyOverlap(ctx, b.PlaceID, b.EndTime, newEnd, b.ID)
	if err != nil {
		return nil, err
	}
	if conflict {
		return nil, ErrSlotConflict
	}
	if err := l.bookings.SetEndTime(ctx, b.ID, newEnd); err != nil {
		return nil, mapNotFound(err)
	}
	updated, err := l.bookings.GetByID(ctx, b.ID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return updated, nil
}

// History returns the user's bookings with the given filters applied.
// The read is snapshot-consistent per query and safe to re-issue.
func (l *Ledger) History(ctx context.Context, userID uint64, f model.HistoryFilter) ([]model.Booking, error) {
	return l.bookings.HistoryByUser(ctx, userID, f)
}

// activePlace loads a place and its zone and enforces the bookability
// gate: a place is bookable only while both it and its zone are active.
func (l *Ledger) activePlace(ctx context.Context, placeID uint64) (*model.Place, *model.Zone, error) {
	place, err := l.places.GetByID(ctx, placeID)
	if err != nil {
		return nil, nil, mapNotFound(err)
	}
	zone, err := l.zones.GetByID(ctx, place.ZoneID)
	if err != nil {
		return nil, nil, mapNotFound(err)
	}
	if !place.IsActive || !zone.IsActive {
		return nil, nil, ErrResourceUnavailable
	}
	return place, zone, nil
}

func (l *Ledger) event(kind queue.Kind, b *model.Booking, reason string) queue.Event {
	return queue.Event{
		Kind:       kind,
		BookingID:  b.ID,
		UserID:     b.UserID,
		ZoneName:   strOrEmpty(b.ZoneName),
		StartsAt:   b.StartTime.Format(time.RFC3339),
		EndsAt:     b.EndTime.Format(time.RFC3339),
		Reason:     reason,
		OccurredAt: l.clk.Now().Format(time.RFC3339),
	}
}

// canActOn is the single authorization predicate for booking
// mutations: owners act on their own bookings, administrators on any.
func canActOn(actorID uint64, isAdmin bool, b *model.Booking) bool {
	return isAdmin || b.UserID == actorID
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
