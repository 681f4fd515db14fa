// Package queue defines the notification events handed off to the
// external dispatcher and the RabbitMQ plumbing that carries them.
package queue

// Kind enumerates the lifecycle events the ledger and the closure
// cascade produce.
type Kind string

const (
	KindBookingCreated   Kind = "booking.created"
	KindBookingCancelled Kind = "booking.cancelled"
	KindBookingExtended  Kind = "booking.extended"
	KindZoneClosed       Kind = "zone.closed"
)

// Event is the payload published to the notification queue.  It carries
// enough information for downstream consumers to render an email or a
// push message without querying the primary database.  Events are
// transient: the core's obligation ends once the event is handed to the
// dispatcher queue.
type Event struct {
	ID         string `json:"id"`
	Kind       Kind   `json:"kind"`
	BookingID  uint64 `json:"booking_id,omitempty"`
	ZoneID     uint64 `json:"zone_id,omitempty"`
	ZoneName   string `json:"zone_name,omitempty"`
	UserID     uint64 `json:"user_id,omitempty"`
	StartsAt   string `json:"starts_at,omitempty"` // RFC3339 UTC
	EndsAt     string `json:"ends_at,omitempty"`   // RFC3339 UTC
	Reason     string `json:"reason,omitempty"`
	OccurredAt string `json:"occurred_at"` // RFC3339 UTC
}
