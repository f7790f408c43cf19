package database

import (
	"context"
	"database/sql"
	"fmt"

	"skydish/internal/models"
)

// GetCelestialBody returns a catalog entry, or (nil, nil) when absent.
func (qs *queries) GetCelestialBody(ctx context.Context, id string) (*models.CelestialBody, error) {
	var b models.CelestialBody
	err := qs.q.QueryRowContext(ctx, `
		SELECT id, name, hours, minutes, seconds, right_ascension, declination
		FROM celestial_bodies WHERE id = ?`, id,
	).Scan(&b.ID, &b.Name,
		&b.Coordinate.Hours, &b.Coordinate.Minutes, &b.Coordinate.Seconds,
		&b.Coordinate.RightAscension, &b.Coordinate.Declination)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// SearchCelestialBodies matches catalog entries by name substring,
// case-insensitive, ordered by name.
func (qs *queries) SearchCelestialBodies(ctx context.Context, query string, limit int) ([]models.CelestialBody, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := qs.q.QueryContext(ctx, `
		SELECT id, name, hours, minutes, seconds, right_ascension, declination
		FROM celestial_bodies
		WHERE name LIKE ? COLLATE NOCASE
		ORDER BY name
		LIMIT ?`,
		"%"+query+"%", limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.CelestialBody
	for rows.Next() {
		var b models.CelestialBody
		if err := rows.Scan(&b.ID, &b.Name,
			&b.Coordinate.Hours, &b.Coordinate.Minutes, &b.Coordinate.Seconds,
			&b.Coordinate.RightAscension, &b.Coordinate.Declination); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// SearchCelestialBodies runs a catalog name search outside any
// transaction, for the read-only search path.
func (db *DB) SearchCelestialBodies(ctx context.Context, query string, limit int) ([]models.CelestialBody, error) {
	return (&queries{q: db.DB}).SearchCelestialBodies(ctx, query, limit)
}

// UpsertCelestialBody creates or updates a catalog entry.
func (qs *queries) UpsertCelestialBody(ctx context.Context, b *models.CelestialBody) error {
	_, err := qs.q.ExecContext(ctx, `
		INSERT INTO celestial_bodies (id, name, hours, minutes, seconds, right_ascension, declination)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			hours = excluded.hours,
			minutes = excluded.minutes,
			seconds = excluded.seconds,
			right_ascension = excluded.right_ascension,
			declination = excluded.declination`,
		b.ID, b.Name,
		b.Coordinate.Hours, b.Coordinate.Minutes, b.Coordinate.Seconds,
		b.Coordinate.RightAscension, b.Coordinate.Declination,
	)
	if err != nil {
		return fmt.Errorf("upsert celestial body %s: %w", b.ID, err)
	}
	return nil
}
