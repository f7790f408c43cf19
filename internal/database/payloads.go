package database

import (
	"context"
	"database/sql"
	"fmt"

	"skydish/internal/models"
)

func (qs *queries) SavePointCoordinate(ctx context.Context, appointmentID string, c models.Coordinate) error {
	_, err := qs.q.ExecContext(ctx, `
		INSERT INTO point_coordinates
			(appointment_id, hours, minutes, seconds, right_ascension, declination)
		VALUES (?, ?, ?, ?, ?, ?)`,
		appointmentID, c.Hours, c.Minutes, c.Seconds, c.RightAscension, c.Declination,
	)
	if err != nil {
		return fmt.Errorf("save point coordinate for %s: %w", appointmentID, err)
	}
	return nil
}

func (qs *queries) SaveBodyRef(ctx context.Context, appointmentID, bodyID string) error {
	_, err := qs.q.ExecContext(ctx,
		"INSERT INTO appointment_bodies (appointment_id, body_id) VALUES (?, ?)",
		appointmentID, bodyID,
	)
	if err != nil {
		return fmt.Errorf("save body ref for %s: %w", appointmentID, err)
	}
	return nil
}

func (qs *queries) SaveOrientation(ctx context.Context, appointmentID string, o models.Orientation) error {
	_, err := qs.q.ExecContext(ctx,
		"INSERT INTO orientations (appointment_id, azimuth, elevation) VALUES (?, ?, ?)",
		appointmentID, o.Azimuth, o.Elevation,
	)
	if err != nil {
		return fmt.Errorf("save orientation for %s: %w", appointmentID, err)
	}
	return nil
}

func (qs *queries) SaveRasterPath(ctx context.Context, appointmentID string, path []models.Coordinate) error {
	for i, c := range path {
		_, err := qs.q.ExecContext(ctx, `
			INSERT INTO raster_coordinates
				(appointment_id, position, hours, minutes, seconds, right_ascension, declination)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			appointmentID, i, c.Hours, c.Minutes, c.Seconds, c.RightAscension, c.Declination,
		)
		if err != nil {
			return fmt.Errorf("save raster coordinate %d for %s: %w", i, appointmentID, err)
		}
	}
	return nil
}

func (qs *queries) GetPointCoordinate(ctx context.Context, appointmentID string) (*models.Coordinate, error) {
	var c models.Coordinate
	err := qs.q.QueryRowContext(ctx, `
		SELECT hours, minutes, seconds, right_ascension, declination
		FROM point_coordinates WHERE appointment_id = ?`, appointmentID,
	).Scan(&c.Hours, &c.Minutes, &c.Seconds, &c.RightAscension, &c.Declination)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (qs *queries) GetBodyRef(ctx context.Context, appointmentID string) (string, error) {
	var bodyID string
	err := qs.q.QueryRowContext(ctx,
		"SELECT body_id FROM appointment_bodies WHERE appointment_id = ?", appointmentID,
	).Scan(&bodyID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return bodyID, nil
}

func (qs *queries) GetOrientation(ctx context.Context, appointmentID string) (*models.Orientation, error) {
	var o models.Orientation
	err := qs.q.QueryRowContext(ctx,
		"SELECT azimuth, elevation FROM orientations WHERE appointment_id = ?", appointmentID,
	).Scan(&o.Azimuth, &o.Elevation)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (qs *queries) GetRasterPath(ctx context.Context, appointmentID string) ([]models.Coordinate, error) {
	rows, err := qs.q.QueryContext(ctx, `
		SELECT hours, minutes, seconds, right_ascension, declination
		FROM raster_coordinates WHERE appointment_id = ?
		ORDER BY position`, appointmentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var path []models.Coordinate
	for rows.Next() {
		var c models.Coordinate
		if err := rows.Scan(&c.Hours, &c.Minutes, &c.Seconds, &c.RightAscension, &c.Declination); err != nil {
			return nil, err
		}
		path = append(path, c)
	}
	return path, rows.Err()
}

// DeletePayload clears every payload table for the appointment. Updates
// call this unconditionally before rewriting, so a type-changing update
// cannot leave rows from the previous variant behind.
func (qs *queries) DeletePayload(ctx context.Context, appointmentID string) error {
	for _, table := range []string{
		"point_coordinates", "appointment_bodies", "orientations", "raster_coordinates",
	} {
		if _, err := qs.q.ExecContext(ctx,
			"DELETE FROM "+table+" WHERE appointment_id = ?", appointmentID); err != nil {
			return fmt.Errorf("delete payload rows from %s for %s: %w", table, appointmentID, err)
		}
	}
	return nil
}
