package database

import (
	"context"
	"fmt"

	"skydish/internal/models"
)

// TelescopeExists reports whether an active telescope with the given id
// is registered. Deactivated dishes are not bookable.
func (qs *queries) TelescopeExists(ctx context.Context, id string) (bool, error) {
	var n int
	err := qs.q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM telescopes WHERE id = ? AND is_active = 1", id,
	).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListTelescopes returns every registered telescope, active or not.
func (qs *queries) ListTelescopes(ctx context.Context) ([]models.Telescope, error) {
	rows, err := qs.q.QueryContext(ctx,
		"SELECT id, name, is_active, created_at FROM telescopes ORDER BY name",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Telescope
	for rows.Next() {
		var t models.Telescope
		if err := rows.Scan(&t.ID, &t.Name, &t.Active, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpsertTelescope creates or updates a telescope registration.
func (qs *queries) UpsertTelescope(ctx context.Context, t *models.Telescope) error {
	_, err := qs.q.ExecContext(ctx, `
		INSERT INTO telescopes (id, name, is_active) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			is_active = excluded.is_active,
			updated_at = CURRENT_TIMESTAMP`,
		t.ID, t.Name, t.Active,
	)
	if err != nil {
		return fmt.Errorf("upsert telescope %s: %w", t.ID, err)
	}
	return nil
}

// DeactivateTelescopesExcept marks every telescope not in keep as
// inactive. Existing appointments stay; the dish just stops accepting
// new ones.
func (qs *queries) DeactivateTelescopesExcept(ctx context.Context, keep []string) (int64, error) {
	if len(keep) == 0 {
		res, err := qs.q.ExecContext(ctx,
			"UPDATE telescopes SET is_active = 0, updated_at = CURRENT_TIMESTAMP WHERE is_active = 1")
		if err != nil {
			return 0, err
		}
		return res.RowsAffected()
	}

	placeholders := ""
	args := make([]any, 0, len(keep))
	for i, id := range keep {
		if i > 0 {
			placeholders += ","
		}
		placeholders += "?"
		args = append(args, id)
	}

	res, err := qs.q.ExecContext(ctx,
		"UPDATE telescopes SET is_active = 0, updated_at = CURRENT_TIMESTAMP WHERE is_active = 1 AND id NOT IN ("+placeholders+")",
		args...,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
