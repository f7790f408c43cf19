package database

import (
	"context"
	"database/sql"
	"time"
)

// HeartbeatStore persists telescope heartbeats in sqlite. Used when no
// Redis instance is configured; each read hits the database so the
// engine always sees the latest recorded signal.
type HeartbeatStore struct {
	db *DB
}

// NewHeartbeatStore returns a sqlite-backed heartbeat store.
func NewHeartbeatStore(db *DB) *HeartbeatStore {
	return &HeartbeatStore{db: db}
}

// LastCommunication returns the telescope's most recent heartbeat and
// whether one has ever been recorded.
func (h *HeartbeatStore) LastCommunication(ctx context.Context, telescopeID string) (time.Time, bool, error) {
	var last time.Time
	err := h.db.QueryRowContext(ctx,
		"SELECT last_communication FROM heartbeats WHERE telescope_id = ?", telescopeID,
	).Scan(&last)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return last, true, nil
}

// Record stores the telescope's latest heartbeat timestamp.
func (h *HeartbeatStore) Record(ctx context.Context, telescopeID string, at time.Time) error {
	_, err := h.db.ExecContext(ctx, `
		INSERT INTO heartbeats (telescope_id, last_communication) VALUES (?, ?)
		ON CONFLICT(telescope_id) DO UPDATE SET last_communication = excluded.last_communication`,
		telescopeID, at,
	)
	return err
}
