// Package repository implements the MySQL persistence layer.  Sentinel
// errors defined here let the service layer distinguish failure
// scenarios without inspecting driver errors.
package repository

import "errors"

// ErrZoneNotFound is returned when no zone exists with the given id.
var ErrZoneNotFound = errors.New("zone not found")

// ErrPlaceNotFound is returned when no place exists with the given id.
var ErrPlaceNotFound = errors.New("place not found")

// ErrBookingNotFound is returned when no booking exists with the given id.
var ErrBookingNotFound = errors.New("booking not found")
