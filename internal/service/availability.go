package service

import (
	"context"

	"github.com/iliyamo/workspace-booking/internal/schedule"
	"github.com/iliyamo/workspace-booking/internal/timeutil"
)

// Slot is one fragment of a place's day: either a free interval or an
// active booking occupying it.
type Slot struct {
	Interval schedule.Interval
	Free     bool
}

// Availability computes free/busy time for a place.  Reads are
// snapshot-consistent per query: they see the most recently committed
// ledger state but take no place lock.
type Availability struct {
	bookings BookingStore
	places   PlaceStore
	zones    ZoneStore
}

// NewAvailability wires the resolver.
func NewAvailability(bookings BookingStore, places PlaceStore, zones ZoneStore) *Availability {
	return &Availability{bookings: bookings, places: places, zones: zones}
}

// Resolve returns the free and busy sub-intervals of the place's
// operating window (the full display-zone day), sorted by start time.
// An inactive place or zone yields no bookable time, so the result is
// empty.  date must be a display-zone "YYYY-MM-DD".
func (a *Availability) Resolve(ctx context.Context, placeID uint64, date string) ([]Slot, error) {
	dayStart, dayEnd, err := timeutil.DayWindow(date)
	if err != nil {
		return nil, err
	}
	place, err := a.places.GetByID(ctx, placeID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	zone, err := a.zones.GetByID(ctx, place.ZoneID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if !place.IsActive || !zone.IsActive {
		return []Slot{}, nil
	}

	window := schedule.Interval{Start: dayStart, End: dayEnd}
	active, err := a.bookings.ActiveByPlaceBetween(ctx, placeID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	busy := make([]schedule.Interval, 0, len(active))
	for _, b := range active {
		busy = append(busy, clip(schedule.Interval{Start: b.StartTime, End: b.EndTime}, window))
	}
	free := schedule.Subtract(window, busy)

	// Merge the two sorted sequences into one timeline.
	slots := make([]Slot, 0, len(free)+len(busy))
	i, j := 0, 0
	for i < len(free) || j < len(busy) {
		switch {
		case j >= len(busy) || (i < len(free) && free[i].Start.Before(busy[j].Start)):
			slots = append(slots, Slot{Interval: free[i], Free: true})
			i++
		default:
			slots = append(slots, Slot{Interval: busy[j], Free: false})
			j++
		}
	}
	return slots, nil
}

func clip(iv, window schedule.Interval) schedule.Interval {
	if iv.Start.Before(window.Start) {
		iv.Start = window.Start
	}
	if iv.End.After(window.End) {
		iv.End = window.End
	}
	return iv
}
