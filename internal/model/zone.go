package model

import "time"

// Zone represents a bookable area of the workspace grouping several
// places.  Zones are owned by administrators and correspond to rows in
// the `zones` table.
//
// ClosureReason and ClosedUntil are set if and only if the zone is
// inactive because of an administrative closure; permanent deactivation
// leaves them null.
type Zone struct {
	ID            uint64     `json:"id"`             // zones.id
	Name          string     `json:"name"`           // zones.name
	Address       *string    `json:"address"`        // zones.address (nullable)
	IsActive      bool       `json:"is_active"`      // zones.is_active
	ClosureReason *string    `json:"closure_reason"` // zones.closure_reason (nullable)
	ClosedUntil   *time.Time `json:"closed_until"`   // zones.closed_until (nullable, UTC)
	CreatedAt     time.Time  `json:"created_at"`     // zones.created_at
	UpdatedAt     time.Time  `json:"updated_at"`     // zones.updated_at
}

// ZonePatch carries the optional fields an administrator may update on
// a zone.  Nil pointers leave the corresponding column untouched.
type ZonePatch struct {
	Name    *string `json:"name"`
	Address *string `json:"address"`
}

// ZoneStats is the admin-facing snapshot of ledger state for one zone.
type ZoneStats struct {
	ZoneID         uint64 `json:"zone_id"`
	PlacesTotal    int    `json:"places_total"`
	ActiveBookings int    `json:"active_bookings"`
	Cancelled      int    `json:"cancelled_bookings"`
	OccupiedNow    int    `json:"occupied_now"` // places with a booking covering the current instant
}
