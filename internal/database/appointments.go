package database

import (
	"context"
	"database/sql"
	"fmt"

	"skydish/internal/models"
)

const appointmentColumns = `id, user_id, telescope_id, start_time, end_time,
	status, priority, type, is_public, created_at, updated_at`

// liveStatuses is the SQL filter for appointments that hold telescope
// time: requested, scheduled or in progress.
const liveStatuses = `status IN ('REQUESTED', 'SCHEDULED', 'IN_PROGRESS')`

func scanAppointment(row interface{ Scan(...any) error }) (*models.Appointment, error) {
	var a models.Appointment
	err := row.Scan(
		&a.ID, &a.UserID, &a.TelescopeID, &a.StartTime, &a.EndTime,
		&a.Status, &a.Priority, &a.Type, &a.Public, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetAppointment returns an appointment envelope, or (nil, nil) when
// absent.
func (qs *queries) GetAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	row := qs.q.QueryRowContext(ctx,
		"SELECT "+appointmentColumns+" FROM appointments WHERE id = ?", id)
	a, err := scanAppointment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (qs *queries) CreateAppointment(ctx context.Context, appt *models.Appointment) error {
	_, err := qs.q.ExecContext(ctx, `
		INSERT INTO appointments
			(id, user_id, telescope_id, start_time, end_time, status, priority, type, is_public)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		appt.ID, appt.UserID, appt.TelescopeID, appt.StartTime, appt.EndTime,
		appt.Status, appt.Priority, appt.Type, appt.Public,
	)
	if err != nil {
		return fmt.Errorf("insert appointment %s: %w", appt.ID, err)
	}
	return nil
}

func (qs *queries) UpdateAppointment(ctx context.Context, appt *models.Appointment) error {
	res, err := qs.q.ExecContext(ctx, `
		UPDATE appointments SET
			telescope_id = ?,
			start_time = ?,
			end_time = ?,
			priority = ?,
			type = ?,
			is_public = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		appt.TelescopeID, appt.StartTime, appt.EndTime,
		appt.Priority, appt.Type, appt.Public, appt.ID,
	)
	if err != nil {
		return fmt.Errorf("update appointment %s: %w", appt.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("appointment %s not found", appt.ID)
	}
	return nil
}

func (qs *queries) UpdateAppointmentStatus(ctx context.Context, id string, status models.Status) error {
	res, err := qs.q.ExecContext(ctx,
		"UPDATE appointments SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		status, id,
	)
	if err != nil {
		return fmt.Errorf("update appointment %s status: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("appointment %s not found", id)
	}
	return nil
}

// LiveAppointmentsByTelescope lists appointments that hold time on the
// telescope, ordered by start.
func (qs *queries) LiveAppointmentsByTelescope(ctx context.Context, telescopeID string) ([]models.Appointment, error) {
	return qs.queryAppointments(ctx,
		"SELECT "+appointmentColumns+" FROM appointments WHERE telescope_id = ? AND "+liveStatuses+" ORDER BY start_time",
		telescopeID)
}

// LiveAppointmentsByUser lists the user's live appointments across all
// telescopes, for quota accounting.
func (qs *queries) LiveAppointmentsByUser(ctx context.Context, userID string) ([]models.Appointment, error) {
	return qs.queryAppointments(ctx,
		"SELECT "+appointmentColumns+" FROM appointments WHERE user_id = ? AND "+liveStatuses+" ORDER BY start_time",
		userID)
}

func (qs *queries) queryAppointments(ctx context.Context, query string, args ...any) ([]models.Appointment, error) {
	rows, err := qs.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}
