package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/workspace-booking/internal/model"
)

// BookingRepo provides CRUD and query operations for bookings.  The
// service layer serializes writers per place, so check-then-write
// sequences against these methods are race-free as long as the caller
// holds the place lock.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `id, user_id, place_id, zone_name, zone_address, start_time, end_time,
       status, cancellation_reason, cancel_origin, created_at, updated_at`

func scanBooking(row interface{ Scan(...any) error }) (*model.Booking, error) {
	var b model.Booking
	var zoneName, zoneAddr, reason, origin sql.NullString
	if err := row.Scan(&b.ID, &b.UserID, &b.PlaceID, &zoneName, &zoneAddr,
		&b.StartTime, &b.EndTime, &b.Status, &reason, &origin, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	b.StartTime = b.StartTime.UTC()
	b.EndTime = b.EndTime.UTC()
	if zoneName.Valid {
		v := zoneName.String
		b.ZoneName = &v
	}
	if zoneAddr.Valid {
		v := zoneAddr.String
		b.ZoneAddress = &v
	}
	if reason.Valid {
		v := reason.String
		b.CancellationReason = &v
	}
	if origin.Valid {
		v := origin.String
		b.CancelOrigin = &v
	}
	return &b, nil
}

// Create inserts a booking as ACTIVE and populates the generated id and
// server-side timestamps on the provided model.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO bookings (user_id, place_id, zone_name, zone_address, start_time, end_time, status)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.UserID, b.PlaceID, b.ZoneName, b.ZoneAddress, b.StartTime.UTC(), b.EndTime.UTC(), b.Status)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*b = *created
	return nil
}

// GetByID returns a single booking or ErrBookingNotFound.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, ErrBookingNotFound
	}
	return b, err
}

// AnyOverlap reports whether any ACTIVE booking on the place intersects
// the half-open interval [start, end), excluding the booking with
// excludeID (0 excludes nothing).  Callers must hold the place lock so
// that the probe and the write that follows form one atomic unit.
func (r *BookingRepo) AnyOverlap(ctx context.Context, placeID uint64, start, end time.Time, excludeID uint64) (bool, error) {
	const q = `SELECT COUNT(*) FROM bookings
               WHERE place_id = ? AND status = ? AND id <> ?
                 AND start_time < ? AND end_time > ?`
	var n int
	err := r.db.QueryRowContext(ctx, q, placeID, model.StatusActive, excludeID, end.UTC(), start.UTC()).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ActiveByPlaceBetween returns the ACTIVE bookings on a place whose
// interval intersects [from, to), ordered by start time.  This is the
// busy set the availability resolver subtracts from the operating
// window.
func (r *BookingRepo) ActiveByPlaceBetween(ctx context.Context, placeID uint64, from, to time.Time) ([]model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings
               WHERE place_id = ? AND status = ? AND start_time < ? AND end_time > ?
               ORDER BY start_time`
	rows, err := r.db.QueryContext(ctx, q, placeID, model.StatusActive, to.UTC(), from.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

// ActiveByZoneIntersecting returns every ACTIVE booking on any place of
// the zone whose interval intersects [from, to), ordered by place id
// then start time.  Used by the closure cascade.
func (r *BookingRepo) ActiveByZoneIntersecting(ctx context.Context, zoneID uint64, from, to time.Time) ([]model.Booking, error) {
	const q = `SELECT b.id, b.user_id, b.place_id, b.zone_name, b.zone_address, b.start_time, b.end_time,
                      b.status, b.cancellation_reason, b.cancel_origin, b.created_at, b.updated_at
               FROM bookings b
               JOIN places p ON p.id = b.place_id
               WHERE p.zone_id = ? AND b.status = ? AND b.start_time < ? AND b.end_time > ?
               ORDER BY b.place_id, b.start_time`
	rows, err := r.db.QueryContext(ctx, q, zoneID, model.StatusActive, to.UTC(), from.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

// SetStatus transitions a booking out of ACTIVE, recording the
// cancellation reason and origin.  The WHERE clause guards against
// racing transitions: ErrBookingNotFound is returned when the booking
// is missing or already terminal.
func (r *BookingRepo) SetStatus(ctx context.Context, id uint64, status string, reason, origin *string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET status = ?, cancellation_reason = ?, cancel_origin = ?
         WHERE id = ? AND status = ?`,
		status, reason, origin, id, model.StatusActive)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// SetEndTime extends a booking's end in place.
func (r *BookingRepo) SetEndTime(ctx context.Context, id uint64, end time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET end_time = ? WHERE id = ? AND status = ?`,
		end.UTC(), id, model.StatusActive)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// HistoryByUser returns a user's bookings with the optional filters
// applied.  Default ordering is creation time descending; the query
// keeps no cursor state so it can be re-issued freely.
func (r *BookingRepo) HistoryByUser(ctx context.Context, userID uint64, f model.HistoryFilter) ([]model.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings WHERE user_id = ?`
	args := []any{userID}
	var conds []string
	if f.Status != nil {
		conds = append(conds, `status = ?`)
		args = append(args, *f.Status)
	}
	if f.ZoneID != nil {
		conds = append(conds, `place_id IN (SELECT id FROM places WHERE zone_id = ?)`)
		args = append(args, *f.ZoneID)
	}
	if f.DateFrom != nil {
		conds = append(conds, `start_time >= ?`)
		args = append(args, f.DateFrom.UTC())
	}
	if f.DateTo != nil {
		// Exclusive, matching the half-open day windows the filters
		// are built from.
		conds = append(conds, `start_time < ?`)
		args = append(args, f.DateTo.UTC())
	}
	if len(conds) > 0 {
		q += ` AND ` + strings.Join(conds, ` AND `)
	}
	if f.Ascending {
		q += ` ORDER BY created_at ASC, id ASC`
	} else {
		q += ` ORDER BY created_at DESC, id DESC`
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

// ZoneHasActive reports whether any place of the zone carries an ACTIVE
// booking.  Guards zone deletion.
func (r *BookingRepo) ZoneHasActive(ctx context.Context, zoneID uint64) (bool, error) {
	const q = `SELECT COUNT(*) FROM bookings b
               JOIN places p ON p.id = b.place_id
               WHERE p.zone_id = ? AND b.status = ?`
	var n int
	if err := r.db.QueryRowContext(ctx, q, zoneID, model.StatusActive).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// ZoneStats aggregates ledger state for one zone as of now.
func (r *BookingRepo) ZoneStats(ctx context.Context, zoneID uint64, now time.Time) (model.ZoneStats, error) {
	stats := model.ZoneStats{ZoneID: zoneID}
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM places WHERE zone_id = ?`, zoneID).Scan(&stats.PlacesTotal); err != nil {
		return stats, err
	}
	const counts = `SELECT
            COUNT(CASE WHEN b.status = ? THEN 1 END),
            COUNT(CASE WHEN b.status = ? THEN 1 END),
            COUNT(DISTINCT CASE WHEN b.status = ? AND b.start_time <= ? AND b.end_time > ? THEN b.place_id END)
        FROM bookings b
        JOIN places p ON p.id = b.place_id
        WHERE p.zone_id = ?`
	err := r.db.QueryRowContext(ctx, counts,
		model.StatusActive, model.StatusCancelled, model.StatusActive, now.UTC(), now.UTC(), zoneID).
		Scan(&stats.ActiveBookings, &stats.Cancelled, &stats.OccupiedNow)
	return stats, err
}

func collect(rows *sql.Rows) ([]model.Booking, error) {
	out := make([]model.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}
