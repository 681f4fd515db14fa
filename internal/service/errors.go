// Package service implements the booking scheduling and availability
// engine: the ledger, the availability resolver, the closure cascade
// and the catalog.  Services run over narrow store interfaces so the
// scheduling logic can be exercised without a database.
package service

import (
	"errors"

	"github.com/iliyamo/workspace-booking/internal/lock"
	"github.com/iliyamo/workspace-booking/internal/repository"
	"github.com/iliyamo/workspace-booking/internal/schedule"
	"github.com/iliyamo/workspace-booking/internal/timeutil"
)

// Failure taxonomy returned to handlers.  None of these are swallowed:
// the engine performs no retries of its own, so Busy and SlotConflict
// surface to the calling layer which decides whether to retry.
var (
	// ErrInvalidRange covers malformed or policy-violating time bounds.
	ErrInvalidRange = schedule.ErrInvalidRange
	// ErrResourceUnavailable means the place or its zone is inactive.
	ErrResourceUnavailable = errors.New("place or zone is not active")
	// ErrSlotConflict means the interval overlaps another active booking.
	ErrSlotConflict = errors.New("slot conflict")
	// ErrNoAvailablePlace means a zone-wide search found no free place.
	ErrNoAvailablePlace = errors.New("no available place")
	// ErrNotFound means the referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden means the acting principal may not touch the booking.
	ErrForbidden = errors.New("forbidden")
	// ErrAlreadyTerminal means the booking is cancelled or completed.
	ErrAlreadyTerminal = errors.New("booking already terminal")
	// ErrHasActiveBookings blocks zone deletion without a cascade.
	ErrHasActiveBookings = errors.New("zone has active bookings")
	// ErrBusy means the place lock could not be taken in time; retryable.
	ErrBusy = lock.ErrBusy
	// ErrInvalidFormat means a wall-clock string could not be parsed.
	ErrInvalidFormat = timeutil.ErrInvalidFormat
)

// mapNotFound folds the repository's entity-specific sentinels into the
// engine's single ErrNotFound.
func mapNotFound(err error) error {
	switch {
	case errors.Is(err, repository.ErrZoneNotFound),
		errors.Is(err, repository.ErrPlaceNotFound),
		errors.Is(err, repository.ErrBookingNotFound):
		return ErrNotFound
	default:
		return err
	}
}
