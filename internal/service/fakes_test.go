package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/workspace-booking/internal/model"
	"github.com/iliyamo/workspace-booking/internal/queue"
	"github.com/iliyamo/workspace-booking/internal/repository"
)

// fakeStore is an in-memory stand-in for the three repositories.  It
// mirrors their observable semantics: sentinel not-found errors,
// ascending place ordering, ACTIVE-only overlap probes and the
// guarded status transition.  A mutex makes it safe for the
// concurrency tests; the place-lock discipline is still what the
// services under test must get right.
type fakeStore struct {
	mu       sync.Mutex
	zones    map[uint64]*model.Zone
	places   map[uint64]*model.Place
	bookings map[uint64]*model.Booking
	nextID   uint64
	now      time.Time
}

func newFakeStore(now time.Time) *fakeStore {
	return &fakeStore{
		zones:    make(map[uint64]*model.Zone),
		places:   make(map[uint64]*model.Place),
		bookings: make(map[uint64]*model.Booking),
		now:      now,
	}
}

func (s *fakeStore) id() uint64 {
	s.nextID++
	return s.nextID
}

// addZone seeds a zone with n places and returns the zone id.
func (s *fakeStore) addZone(name string, n int, active bool) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	zid := s.id()
	s.zones[zid] = &model.Zone{ID: zid, Name: name, IsActive: active, CreatedAt: s.now, UpdatedAt: s.now}
	for i := 0; i < n; i++ {
		pid := s.id()
		s.places[pid] = &model.Place{ID: pid, ZoneID: zid, Name: "Place", IsActive: true, CreatedAt: s.now}
	}
	return zid
}

// addBooking seeds an existing booking and returns its id.
func (s *fakeStore) addBooking(userID, placeID uint64, start, end time.Time, status string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	bid := s.id()
	zone := s.zones[s.places[placeID].ZoneID]
	s.bookings[bid] = &model.Booking{
		ID: bid, UserID: userID, PlaceID: placeID,
		ZoneName:  &zone.Name,
		StartTime: start.UTC(), EndTime: end.UTC(),
		Status:    status,
		CreatedAt: s.now.Add(time.Duration(bid) * time.Second),
	}
	return bid
}

func (s *fakeStore) placeIDs(zoneID uint64) []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []uint64
	for _, p := range s.places {
		if p.ZoneID == zoneID {
			ids = append(ids, p.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ZoneStore

func (s *fakeStore) GetByID(ctx context.Context, id uint64) (*model.Zone, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	z, ok := s.zones[id]
	if !ok {
		return nil, repository.ErrZoneNotFound
	}
	cp := *z
	return &cp, nil
}

func (s *fakeStore) List(ctx context.Context, includeInactive bool) ([]model.Zone, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Zone, 0, len(s.zones))
	for _, z := range s.zones {
		if !includeInactive && !z.IsActive {
			continue
		}
		out = append(out, *z)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *fakeStore) CreateWithPlaces(ctx context.Context, z *model.Zone, capacity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	z.ID = s.id()
	z.CreatedAt = s.now
	z.UpdatedAt = s.now
	cp := *z
	s.zones[z.ID] = &cp
	for i := 0; i < capacity; i++ {
		pid := s.id()
		s.places[pid] = &model.Place{ID: pid, ZoneID: z.ID, Name: "Place", IsActive: true, CreatedAt: s.now}
	}
	return nil
}

func (s *fakeStore) Update(ctx context.Context, id uint64, patch model.ZonePatch) (*model.Zone, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	z, ok := s.zones[id]
	if !ok {
		return nil, repository.ErrZoneNotFound
	}
	if patch.Name != nil {
		z.Name = *patch.Name
	}
	if patch.Address != nil {
		z.Address = patch.Address
	}
	cp := *z
	return &cp, nil
}

func (s *fakeStore) Delete(ctx context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.zones[id]; !ok {
		return repository.ErrZoneNotFound
	}
	delete(s.zones, id)
	for pid, p := range s.places {
		if p.ZoneID == id {
			delete(s.places, pid)
		}
	}
	return nil
}

func (s *fakeStore) SetActive(ctx context.Context, id uint64, active bool, reason *string, closedUntil *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	z, ok := s.zones[id]
	if !ok {
		return repository.ErrZoneNotFound
	}
	z.IsActive = active
	z.ClosureReason = reason
	z.ClosedUntil = closedUntil
	return nil
}

// PlaceStore

func (s *fakeStore) PlaceByID(ctx context.Context, id uint64) (*model.Place, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.places[id]
	if !ok {
		return nil, repository.ErrPlaceNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *fakeStore) ListByZone(ctx context.Context, zoneID uint64) ([]model.Place, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Place, 0)
	for _, p := range s.places {
		if p.ZoneID == zoneID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// BookingStore

func (s *fakeStore) Create(ctx context.Context, b *model.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Mirror the foreign key: a booking cannot reference a place whose
	// zone was deleted out from under it.
	if _, ok := s.places[b.PlaceID]; !ok {
		return repository.ErrPlaceNotFound
	}
	b.ID = s.id()
	b.CreatedAt = s.now.Add(time.Duration(b.ID) * time.Second)
	b.UpdatedAt = b.CreatedAt
	cp := *b
	s.bookings[b.ID] = &cp
	return nil
}

func (s *fakeStore) BookingByID(ctx context.Context, id uint64) (*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *fakeStore) AnyOverlap(ctx context.Context, placeID uint64, start, end time.Time, excludeID uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bookings {
		if b.PlaceID != placeID || b.Status != model.StatusActive || b.ID == excludeID {
			continue
		}
		if b.StartTime.Before(end) && start.Before(b.EndTime) {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) ActiveByPlaceBetween(ctx context.Context, placeID uint64, from, to time.Time) ([]model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Booking, 0)
	for _, b := range s.bookings {
		if b.PlaceID == placeID && b.Status == model.StatusActive &&
			b.StartTime.Before(to) && from.Before(b.EndTime) {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (s *fakeStore) ActiveByZoneIntersecting(ctx context.Context, zoneID uint64, from, to time.Time) ([]model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Booking, 0)
	for _, b := range s.bookings {
		p, ok := s.places[b.PlaceID]
		if !ok || p.ZoneID != zoneID || b.Status != model.StatusActive {
			continue
		}
		if b.StartTime.Before(to) && from.Before(b.EndTime) {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PlaceID != out[j].PlaceID {
			return out[i].PlaceID < out[j].PlaceID
		}
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out, nil
}

func (s *fakeStore) SetStatus(ctx context.Context, id uint64, status string, reason, origin *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok || b.Status != model.StatusActive {
		return repository.ErrBookingNotFound
	}
	b.Status = status
	b.CancellationReason = reason
	b.CancelOrigin = origin
	return nil
}

func (s *fakeStore) SetEndTime(ctx context.Context, id uint64, end time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok || b.Status != model.StatusActive {
		return repository.ErrBookingNotFound
	}
	b.EndTime = end.UTC()
	return nil
}

func (s *fakeStore) HistoryByUser(ctx context.Context, userID uint64, f model.HistoryFilter) ([]model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Booking, 0)
	for _, b := range s.bookings {
		if b.UserID != userID {
			continue
		}
		if f.Status != nil && b.Status != *f.Status {
			continue
		}
		if f.ZoneID != nil {
			p, ok := s.places[b.PlaceID]
			if !ok || p.ZoneID != *f.ZoneID {
				continue
			}
		}
		if f.DateFrom != nil && b.StartTime.Before(*f.DateFrom) {
			continue
		}
		if f.DateTo != nil && !b.StartTime.Before(*f.DateTo) {
			continue
		}
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if f.Ascending {
			return out[i].ID < out[j].ID
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *fakeStore) ZoneHasActive(ctx context.Context, zoneID uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bookings {
		p, ok := s.places[b.PlaceID]
		if ok && p.ZoneID == zoneID && b.Status == model.StatusActive {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) ZoneStats(ctx context.Context, zoneID uint64, now time.Time) (model.ZoneStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := model.ZoneStats{ZoneID: zoneID}
	occupied := make(map[uint64]bool)
	for _, p := range s.places {
		if p.ZoneID == zoneID {
			stats.PlacesTotal++
		}
	}
	for _, b := range s.bookings {
		p, ok := s.places[b.PlaceID]
		if !ok || p.ZoneID != zoneID {
			continue
		}
		switch b.Status {
		case model.StatusActive:
			stats.ActiveBookings++
			if !b.StartTime.After(now) && b.EndTime.After(now) {
				occupied[b.PlaceID] = true
			}
		case model.StatusCancelled:
			stats.Cancelled++
		}
	}
	stats.OccupiedNow = len(occupied)
	return stats, nil
}

// placeView and bookingView adapt the single fakeStore to the narrower
// PlaceStore and BookingStore interfaces, whose GetByID signatures
// collide on the struct itself.
type placeView struct{ *fakeStore }

func (v placeView) GetByID(ctx context.Context, id uint64) (*model.Place, error) {
	return v.PlaceByID(ctx, id)
}

type bookingView struct{ *fakeStore }

func (v bookingView) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	return v.BookingByID(ctx, id)
}

// fakeEmitter records emitted events in order.
type fakeEmitter struct {
	mu     sync.Mutex
	events []queue.Event
}

func (e *fakeEmitter) Emit(ev queue.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, ev)
}

func (e *fakeEmitter) kinds() []queue.Kind {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]queue.Kind, 0, len(e.events))
	for _, ev := range e.events {
		out = append(out, ev.Kind)
	}
	return out
}
