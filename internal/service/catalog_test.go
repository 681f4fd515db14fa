package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/workspace-booking/internal/clock"
	"github.com/iliyamo/workspace-booking/internal/lock"
	"github.com/iliyamo/workspace-booking/internal/model"
	"github.com/iliyamo/workspace-booking/internal/queue"
)

func TestCatalogZones(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 14, 11, 0, 0, 0, time.UTC)

	t.Run("create seeds the requested number of places", func(t *testing.T) {
		_, catalog, _, _ := newCascadeEnv(t, now)
		addr := "5 Harbor St"
		z, err := catalog.CreateZone(context.Background(), "  Loft  ", &addr, 3)
		require.NoError(t, err)
		require.Equal(t, "Loft", z.Name, "name must be trimmed")
		require.True(t, z.IsActive)

		places, err := catalog.ListPlaces(context.Background(), z.ID)
		require.NoError(t, err)
		require.Len(t, places, 3)
	})

	t.Run("create rejects blank names and zero capacity", func(t *testing.T) {
		_, catalog, _, _ := newCascadeEnv(t, now)
		_, err := catalog.CreateZone(context.Background(), "   ", nil, 3)
		require.ErrorIs(t, err, ErrInvalidRange)
		_, err = catalog.CreateZone(context.Background(), "Loft", nil, 0)
		require.ErrorIs(t, err, ErrInvalidRange)
	})

	t.Run("listing hides inactive zones unless asked", func(t *testing.T) {
		_, catalog, store, _ := newCascadeEnv(t, now)
		store.addZone("Open", 1, true)
		store.addZone("Shut", 1, false)

		visible, err := catalog.ListZones(context.Background(), false)
		require.NoError(t, err)
		require.Len(t, visible, 1)
		require.Equal(t, "Open", visible[0].Name)

		all, err := catalog.ListZones(context.Background(), true)
		require.NoError(t, err)
		require.Len(t, all, 2)
	})

	t.Run("update patches metadata", func(t *testing.T) {
		_, catalog, store, _ := newCascadeEnv(t, now)
		zoneID := store.addZone("Loft", 1, true)
		name := "Loft II"
		z, err := catalog.UpdateZone(context.Background(), zoneID, model.ZonePatch{Name: &name})
		require.NoError(t, err)
		require.Equal(t, "Loft II", z.Name)
	})

	t.Run("update rejects a blank name", func(t *testing.T) {
		_, catalog, store, _ := newCascadeEnv(t, now)
		zoneID := store.addZone("Loft", 1, true)
		blank := "  "
		_, err := catalog.UpdateZone(context.Background(), zoneID, model.ZonePatch{Name: &blank})
		require.ErrorIs(t, err, ErrInvalidRange)
	})

	t.Run("places of an unknown zone are not found", func(t *testing.T) {
		_, catalog, _, _ := newCascadeEnv(t, now)
		_, err := catalog.ListPlaces(context.Background(), 999)
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestCatalogDeleteZone(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 14, 11, 0, 0, 0, time.UTC)
	at := func(h int) time.Time { return time.Date(2026, 3, 14, h, 0, 0, 0, time.UTC) }

	t.Run("refuses while active bookings exist", func(t *testing.T) {
		_, catalog, store, emitter := newCascadeEnv(t, now)
		zoneID := store.addZone("Loft", 1, true)
		placeID := store.placeIDs(zoneID)[0]
		store.addBooking(1, placeID, at(10), at(12), model.StatusActive)

		_, err := catalog.DeleteZone(context.Background(), zoneID, false)
		require.ErrorIs(t, err, ErrHasActiveBookings)
		require.Empty(t, emitter.kinds())

		_, err = store.GetByID(context.Background(), zoneID)
		require.NoError(t, err, "zone must survive a refused delete")
	})

	t.Run("cascade cancels bookings then deletes", func(t *testing.T) {
		_, catalog, store, emitter := newCascadeEnv(t, now)
		zoneID := store.addZone("Loft", 2, true)
		ids := store.placeIDs(zoneID)
		b1 := store.addBooking(1, ids[0], at(10), at(12), model.StatusActive)
		store.addBooking(2, ids[1], at(9), at(10), model.StatusCancelled)

		cancelled, err := catalog.DeleteZone(context.Background(), zoneID, true)
		require.NoError(t, err)
		require.Len(t, cancelled, 1)
		require.Equal(t, b1, cancelled[0].ID)
		require.Equal(t, model.CancelByZoneClosure, *cancelled[0].CancelOrigin)

		_, err = catalog.GetZone(context.Background(), zoneID)
		require.ErrorIs(t, err, ErrNotFound)
		require.Equal(t, []queue.Kind{queue.KindBookingCancelled}, emitter.kinds())
	})

	t.Run("clean zone deletes without events", func(t *testing.T) {
		_, catalog, store, emitter := newCascadeEnv(t, now)
		zoneID := store.addZone("Loft", 1, true)

		cancelled, err := catalog.DeleteZone(context.Background(), zoneID, false)
		require.NoError(t, err)
		require.Empty(t, cancelled)
		require.Empty(t, emitter.kinds())
	})

	t.Run("held place lock blocks the delete", func(t *testing.T) {
		store := newFakeStore(now)
		locks := lock.NewKeyed(20 * time.Millisecond)
		catalog := NewCatalog(store, placeView{store}, bookingView{store}, locks, clock.NewFixed(now), &fakeEmitter{})
		zoneID := store.addZone("Loft", 2, true)
		ids := store.placeIDs(zoneID)

		require.NoError(t, locks.Acquire(context.Background(), ids[1]))
		_, err := catalog.DeleteZone(context.Background(), zoneID, false)
		require.ErrorIs(t, err, ErrBusy)
		locks.Release(ids[1])

		_, err = store.GetByID(context.Background(), zoneID)
		require.NoError(t, err, "zone must survive a delete that could not lock its places")
	})

	t.Run("concurrent create cannot slip past the gate", func(t *testing.T) {
		for i := 0; i < 25; i++ {
			store := newFakeStore(now)
			locks := lock.NewKeyed(2 * time.Second)
			clk := clock.NewFixed(now)
			emitter := &fakeEmitter{}
			catalog := NewCatalog(store, placeView{store}, bookingView{store}, locks, clk, emitter)
			ledger := NewLedger(bookingView{store}, placeView{store}, store, locks, clk, emitter, testPolicy)
			zoneID := store.addZone("Loft", 1, true)
			placeID := store.placeIDs(zoneID)[0]

			var createErr, deleteErr error
			var wg sync.WaitGroup
			wg.Add(2)
			go func() {
				defer wg.Done()
				_, createErr = ledger.Create(context.Background(), 7, placeID, at(10), at(11))
			}()
			go func() {
				defer wg.Done()
				_, deleteErr = catalog.DeleteZone(context.Background(), zoneID, false)
			}()
			wg.Wait()

			if deleteErr == nil {
				require.Error(t, createErr, "a successful delete implies the create did not commit")
			}
			if createErr == nil {
				require.ErrorIs(t, deleteErr, ErrHasActiveBookings,
					"a committed booking must trip the gate")
			}
		}
	})
}

func TestCatalogStats(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 14, 11, 0, 0, 0, time.UTC)
	at := func(h int) time.Time { return time.Date(2026, 3, 14, h, 0, 0, 0, time.UTC) }

	_, catalog, store, _ := newCascadeEnv(t, now)
	zoneID := store.addZone("Loft", 3, true)
	ids := store.placeIDs(zoneID)

	store.addBooking(1, ids[0], at(10), at(12), model.StatusActive)    // covers now
	store.addBooking(2, ids[0], at(14), at(15), model.StatusActive)    // later today
	store.addBooking(3, ids[1], at(9), at(10), model.StatusCancelled)  // terminal
	store.addBooking(4, ids[2], at(11), at(13), model.StatusActive)    // covers now
	store.addBooking(5, ids[2], at(8), at(9), model.StatusCompleted)   // terminal, not counted as cancelled

	stats, err := catalog.Stats(context.Background(), zoneID)
	require.NoError(t, err)
	require.Equal(t, zoneID, stats.ZoneID)
	require.Equal(t, 3, stats.PlacesTotal)
	require.Equal(t, 3, stats.ActiveBookings)
	require.Equal(t, 1, stats.Cancelled)
	require.Equal(t, 2, stats.OccupiedNow)

	_, err = catalog.Stats(context.Background(), 999)
	require.ErrorIs(t, err, ErrNotFound)
}
