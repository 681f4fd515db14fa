// Package schedule holds the interval arithmetic behind conflict
// detection and availability resolution.  Every interval is half-open
// [start, end), so a booking that ends exactly when another begins does
// not conflict with it.
package schedule

import (
	"errors"
	"sort"
	"time"
)

// ErrInvalidRange is returned when a requested interval is malformed or
// violates the booking policy (empty, misaligned or too long).
var ErrInvalidRange = errors.New("invalid time range")

// Interval is a half-open [Start, End) span of UTC instants.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether two half-open intervals intersect.
func (iv Interval) Overlaps(o Interval) bool {
	return iv.Start.Before(o.End) && o.Start.Before(iv.End)
}

// Duration returns End minus Start.
func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// Policy bounds what user-supplied intervals the ledger accepts.
type Policy struct {
	StepMinutes int           // both endpoints must fall on this minute grid
	MaxDuration time.Duration // upper bound on a single booking span
}

// Validate checks an interval against the policy.  All failures map to
// ErrInvalidRange so callers can treat them uniformly.
func (p Policy) Validate(iv Interval) error {
	if !iv.End.After(iv.Start) {
		return ErrInvalidRange
	}
	if p.StepMinutes > 0 {
		if !aligned(iv.Start, p.StepMinutes) || !aligned(iv.End, p.StepMinutes) {
			return ErrInvalidRange
		}
	}
	if p.MaxDuration > 0 && iv.Duration() > p.MaxDuration {
		return ErrInvalidRange
	}
	return nil
}

// ValidateExtra checks an extension amount in isolation: it must be
// positive and on the same minute grid as interval endpoints.
func (p Policy) ValidateExtra(extra time.Duration) error {
	if extra <= 0 {
		return ErrInvalidRange
	}
	if p.StepMinutes > 0 {
		step := time.Duration(p.StepMinutes) * time.Minute
		if extra%step != 0 {
			return ErrInvalidRange
		}
	}
	return nil
}

func aligned(t time.Time, step int) bool {
	return t.Second() == 0 && t.Nanosecond() == 0 && t.Minute()%step == 0
}

// Subtract removes every busy interval from the window and returns the
// remaining free intervals sorted by start time.  Busy spans may
// overlap each other or extend past the window edges.
func Subtract(window Interval, busy []Interval) []Interval {
	spans := make([]Interval, 0, len(busy))
	for _, b := range busy {
		if b.Overlaps(window) {
			spans = append(spans, b)
		}
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].Start.Before(spans[j].Start) })

	free := make([]Interval, 0, len(spans)+1)
	cursor := window.Start
	for _, b := range spans {
		if b.Start.After(cursor) {
			free = append(free, Interval{Start: cursor, End: b.Start})
		}
		if b.End.After(cursor) {
			cursor = b.End
		}
	}
	if cursor.Before(window.End) {
		free = append(free, Interval{Start: cursor, End: window.End})
	}
	return free
}
