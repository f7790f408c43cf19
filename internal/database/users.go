package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"skydish/internal/models"
)

// GetUser returns a user with their role set, or (nil, nil) when absent.
func (qs *queries) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := qs.q.QueryRowContext(ctx,
		"SELECT id, name, created_at FROM users WHERE id = ?", id,
	).Scan(&u.ID, &u.Name, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := qs.q.QueryContext(ctx,
		"SELECT role, approved FROM user_roles WHERE user_id = ? ORDER BY role", id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var r models.Role
		if err := rows.Scan(&r.Name, &r.Approved); err != nil {
			return nil, err
		}
		u.Roles = append(u.Roles, r)
	}
	return &u, rows.Err()
}

// UpsertUser creates or updates a user and replaces their role set.
func (qs *queries) UpsertUser(ctx context.Context, u *models.User) error {
	_, err := qs.q.ExecContext(ctx, `
		INSERT INTO users (id, name) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name`,
		u.ID, u.Name,
	)
	if err != nil {
		return fmt.Errorf("upsert user %s: %w", u.ID, err)
	}

	if _, err := qs.q.ExecContext(ctx, "DELETE FROM user_roles WHERE user_id = ?", u.ID); err != nil {
		return err
	}
	for _, r := range u.Roles {
		_, err := qs.q.ExecContext(ctx,
			"INSERT INTO user_roles (user_id, role, approved) VALUES (?, ?, ?)",
			u.ID, r.Name, r.Approved,
		)
		if err != nil {
			return fmt.Errorf("insert role %s for user %s: %w", r.Name, u.ID, err)
		}
	}
	return nil
}

// GetTimeCap returns the user's allotment record, or (nil, nil) when
// absent. A row with NULL cap_ms means unlimited.
func (qs *queries) GetTimeCap(ctx context.Context, userID string) (*models.TimeCap, error) {
	var capMs sql.NullInt64
	err := qs.q.QueryRowContext(ctx,
		"SELECT cap_ms FROM allotted_time_caps WHERE user_id = ?", userID,
	).Scan(&capMs)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	tc := &models.TimeCap{UserID: userID}
	if capMs.Valid {
		d := time.Duration(capMs.Int64) * time.Millisecond
		tc.Cap = &d
	}
	return tc, nil
}

// EnsureTimeCap seeds an allotment row only when none exists, so
// operator-set caps survive repeated syncs.
func (qs *queries) EnsureTimeCap(ctx context.Context, userID string, cap time.Duration) error {
	_, err := qs.q.ExecContext(ctx, `
		INSERT INTO allotted_time_caps (user_id, cap_ms) VALUES (?, ?)
		ON CONFLICT(user_id) DO NOTHING`,
		userID, cap.Milliseconds(),
	)
	return err
}

// SetTimeCap writes the user's allotment. A nil cap means unlimited.
func (qs *queries) SetTimeCap(ctx context.Context, userID string, cap *time.Duration) error {
	var capMs sql.NullInt64
	if cap != nil {
		capMs = sql.NullInt64{Int64: cap.Milliseconds(), Valid: true}
	}
	_, err := qs.q.ExecContext(ctx, `
		INSERT INTO allotted_time_caps (user_id, cap_ms) VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			cap_ms = excluded.cap_ms,
			updated_at = CURRENT_TIMESTAMP`,
		userID, capMs,
	)
	return err
}
