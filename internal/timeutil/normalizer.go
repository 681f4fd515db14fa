// Package timeutil converts between the single display timezone used by
// every client of the system (a fixed UTC+3 offset, no DST rules) and
// the canonical UTC instants stored in the database.  The conversion is
// a pure arithmetic shift, so any instant at minute granularity
// round-trips exactly through ToDisplay/ToStorage.
package timeutil

import (
	"errors"
	"time"
)

// DisplayZone is the fixed wall-clock zone shown to users.  The offset
// never changes, which keeps conversions invertible.
var DisplayZone = time.FixedZone("UTC+3", 3*60*60)

// Wall-clock string layouts accepted from and produced for clients.
const (
	DateLayout     = "2006-01-02"
	TimeLayout     = "15:04"
	DateTimeLayout = "2006-01-02 15:04"
)

// ErrInvalidFormat is returned when a wall-clock string cannot be
// parsed into its date/time components.
var ErrInvalidFormat = errors.New("invalid time format")

// ToDisplay renders a UTC instant as a wall-clock string in the display
// zone, at minute granularity.
func ToDisplay(t time.Time) string {
	return t.In(DisplayZone).Format(DateTimeLayout)
}

// ToStorage parses a "YYYY-MM-DD HH:MM" wall-clock string in the
// display zone and returns the corresponding UTC instant.
func ToStorage(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateTimeLayout, s, DisplayZone)
	if err != nil {
		return time.Time{}, ErrInvalidFormat
	}
	return t.UTC(), nil
}

// CombineToStorage joins a date string and an "HH:MM" time-of-day
// string into a single UTC instant.
func CombineToStorage(date, hhmm string) (time.Time, error) {
	return ToStorage(date + " " + hhmm)
}

// DayWindow returns the [start, end) UTC interval covering the whole
// display-zone day named by date.  End is the following local midnight.
func DayWindow(date string) (time.Time, time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, date, DisplayZone)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidFormat
	}
	return d.UTC(), d.Add(24 * time.Hour).UTC(), nil
}
