package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/workspace-booking/internal/model"
)

// PlaceRepo reads places.  Places are created and destroyed with their
// zone, so there are no standalone write operations here.
type PlaceRepo struct {
	db *sql.DB
}

// NewPlaceRepo returns a new PlaceRepo bound to the given database.
func NewPlaceRepo(db *sql.DB) *PlaceRepo { return &PlaceRepo{db: db} }

const placeColumns = `id, zone_id, name, is_active, created_at, updated_at`

// GetByID returns a single place or ErrPlaceNotFound.
func (r *PlaceRepo) GetByID(ctx context.Context, id uint64) (*model.Place, error) {
	var p model.Place
	err := r.db.QueryRowContext(ctx,
		`SELECT `+placeColumns+` FROM places WHERE id = ?`, id).
		Scan(&p.ID, &p.ZoneID, &p.Name, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrPlaceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListByZone returns every place in a zone ordered by ascending id.
// The ordering is load-bearing: the zone-wide booking search and the
// cascade's lock acquisition both rely on it as the deterministic
// tie-break.
func (r *PlaceRepo) ListByZone(ctx context.Context, zoneID uint64) ([]model.Place, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+placeColumns+` FROM places WHERE zone_id = ? ORDER BY id`, zoneID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	places := make([]model.Place, 0)
	for rows.Next() {
		var p model.Place
		if err := rows.Scan(&p.ID, &p.ZoneID, &p.Name, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		places = append(places, p)
	}
	return places, rows.Err()
}
