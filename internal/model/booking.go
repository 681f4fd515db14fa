package model

import "time"

// Booking statuses.  Transitions are monotonic: ACTIVE may move to
// CANCELLED or COMPLETED, both of which are terminal.
const (
	StatusActive    = "ACTIVE"
	StatusCancelled = "CANCELLED"
	StatusCompleted = "COMPLETED"
)

// Cancellation origins, recorded so downstream consumers can tell a
// user-initiated cancellation from one forced by a zone closure.
const (
	CancelByUser        = "USER"
	CancelByZoneClosure = "ZONE_CLOSURE"
)

// Booking is one user's claim on a place over a half-open UTC interval
// [StartTime, EndTime).  The global ledger invariant is that no two
// ACTIVE bookings on the same place overlap.
//
// ZoneName and ZoneAddress are snapshotted at creation so history rows
// still render after a zone is renamed or deleted.
type Booking struct {
	ID                 uint64    `json:"id"`                  // bookings.id
	UserID             uint64    `json:"user_id"`             // bookings.user_id
	PlaceID            uint64    `json:"place_id"`            // bookings.place_id
	ZoneName           *string   `json:"zone_name"`           // bookings.zone_name (nullable)
	ZoneAddress        *string   `json:"zone_address"`        // bookings.zone_address (nullable)
	StartTime          time.Time `json:"start_time"`          // bookings.start_time (UTC)
	EndTime            time.Time `json:"end_time"`            // bookings.end_time (UTC)
	Status             string    `json:"status"`              // bookings.status
	CancellationReason *string   `json:"cancellation_reason"` // bookings.cancellation_reason (nullable)
	CancelOrigin       *string   `json:"cancel_origin"`       // bookings.cancel_origin (nullable)
	CreatedAt          time.Time `json:"created_at"`          // bookings.created_at
	UpdatedAt          time.Time `json:"updated_at"`          // bookings.updated_at
}

// Terminal reports whether the booking can no longer change state.
func (b *Booking) Terminal() bool {
	return b.Status != StatusActive
}

// HistoryFilter narrows a user's booking history query.  Nil fields
// are not applied.  The query itself retains no cursor state, so a
// filtered read can be re-issued safely.
type HistoryFilter struct {
	Status    *string
	ZoneID    *uint64
	DateFrom  *time.Time // inclusive lower bound on start_time
	DateTo    *time.Time // exclusive upper bound on start_time
	Ascending bool // default ordering is created_at descending
}
