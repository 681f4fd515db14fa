package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iliyamo/workspace-booking/internal/model"
)

// ZoneRepo provides CRUD operations for zones and their places.  All
// timestamp columns are stored in UTC.
type ZoneRepo struct {
	db *sql.DB
}

// NewZoneRepo returns a new ZoneRepo bound to the given database.
func NewZoneRepo(db *sql.DB) *ZoneRepo { return &ZoneRepo{db: db} }

const zoneColumns = `id, name, address, is_active, closure_reason, closed_until, created_at, updated_at`

func scanZone(row interface{ Scan(...any) error }) (*model.Zone, error) {
	var z model.Zone
	var address, reason sql.NullString
	var closedUntil sql.NullTime
	if err := row.Scan(&z.ID, &z.Name, &address, &z.IsActive, &reason, &closedUntil, &z.CreatedAt, &z.UpdatedAt); err != nil {
		return nil, err
	}
	if address.Valid {
		a := address.String
		z.Address = &a
	}
	if reason.Valid {
		rs := reason.String
		z.ClosureReason = &rs
	}
	if closedUntil.Valid {
		t := closedUntil.Time.UTC()
		z.ClosedUntil = &t
	}
	return &z, nil
}

// CreateWithPlaces atomically inserts a zone together with its initial
// set of places named "Place 1".."Place N".  The generated zone id is
// populated on the provided model.
func (r *ZoneRepo) CreateWithPlaces(ctx context.Context, z *model.Zone, capacity int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO zones (name, address, is_active) VALUES (?, ?, 1)`,
		z.Name, z.Address)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	z.ID = uint64(id)

	for i := 1; i <= capacity; i++ {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO places (zone_id, name, is_active) VALUES (?, ?, 1)`,
			z.ID, fmt.Sprintf("Place %d", i)); err != nil {
			return err
		}
	}

	// Read the row back to pick up server-side timestamps.
	created, err := scanZone(tx.QueryRowContext(ctx,
		`SELECT `+zoneColumns+` FROM zones WHERE id = ?`, z.ID))
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	*z = *created
	return nil
}

// GetByID returns a single zone or ErrZoneNotFound.
func (r *ZoneRepo) GetByID(ctx context.Context, id uint64) (*model.Zone, error) {
	z, err := scanZone(r.db.QueryRowContext(ctx,
		`SELECT `+zoneColumns+` FROM zones WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, ErrZoneNotFound
	}
	return z, err
}

// List returns zones ordered by name.  Inactive zones are included only
// when requested (admin listings).
func (r *ZoneRepo) List(ctx context.Context, includeInactive bool) ([]model.Zone, error) {
	q := `SELECT ` + zoneColumns + ` FROM zones`
	if !includeInactive {
		q += ` WHERE is_active = 1`
	}
	q += ` ORDER BY name`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	zones := make([]model.Zone, 0)
	for rows.Next() {
		z, err := scanZone(rows)
		if err != nil {
			return nil, err
		}
		zones = append(zones, *z)
	}
	return zones, rows.Err()
}

// Update applies the non-nil fields of patch and returns the updated
// row, or ErrZoneNotFound when the zone does not exist.
func (r *ZoneRepo) Update(ctx context.Context, id uint64, patch model.ZonePatch) (*model.Zone, error) {
	if patch.Name != nil {
		if _, err := r.db.ExecContext(ctx, `UPDATE zones SET name = ? WHERE id = ?`, *patch.Name, id); err != nil {
			return nil, err
		}
	}
	if patch.Address != nil {
		if _, err := r.db.ExecContext(ctx, `UPDATE zones SET address = ? WHERE id = ?`, *patch.Address, id); err != nil {
			return nil, err
		}
	}
	return r.GetByID(ctx, id)
}

// Delete removes a zone.  Places and bookings fall away through the
// schema's ON DELETE CASCADE.  Returns ErrZoneNotFound when nothing was
// deleted.
func (r *ZoneRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM zones WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrZoneNotFound
	}
	return nil
}

// SetActive flips a zone's activity flag and records or clears the
// closure metadata in the same statement, preserving the invariant that
// closure_reason/closed_until are set only for administrative closures.
func (r *ZoneRepo) SetActive(ctx context.Context, id uint64, active bool, reason *string, closedUntil *time.Time) error {
	var until any
	if closedUntil != nil {
		until = closedUntil.UTC()
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE zones SET is_active = ?, closure_reason = ?, closed_until = ? WHERE id = ?`,
		active, reason, until, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Distinguish a missing zone from an unchanged row.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}
