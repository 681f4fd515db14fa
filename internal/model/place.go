package model

import "time"

// Place is a single bookable workspace inside a zone.  A place is
// bookable only while both it and its zone are active.
type Place struct {
	ID        uint64    `json:"id"`         // places.id
	ZoneID    uint64    `json:"zone_id"`    // places.zone_id
	Name      string    `json:"name"`       // places.name
	IsActive  bool      `json:"is_active"`  // places.is_active
	CreatedAt time.Time `json:"created_at"` // places.created_at
	UpdatedAt time.Time `json:"updated_at"` // places.updated_at
}
