// Package database implements the sqlite-backed stores consumed by the
// scheduling engine.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

// DB wraps the sqlite connection pool.
type DB struct {
	*sql.DB
	path   string
	logger zerolog.Logger
}

// NewDB opens the database at path, configures the pool and creates
// tables if they don't exist.
func NewDB(path string, logger zerolog.Logger) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// WAL mode and a busy timeout keep concurrent validate-then-commit
	// transactions from failing spuriously.
	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	instance := &DB{
		DB:     db,
		path:   path,
		logger: logger.With().Str("component", "database").Logger(),
	}

	if err := instance.createTables(); err != nil {
		return nil, fmt.Errorf("create tables: %w", err)
	}

	instance.logger.Info().Str("path", path).Msg("database initialized")
	return instance, nil
}

func (db *DB) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS user_roles (
			user_id TEXT NOT NULL,
			role TEXT NOT NULL,
			approved BOOLEAN NOT NULL DEFAULT 0,
			PRIMARY KEY (user_id, role),
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		)`,

		`CREATE TABLE IF NOT EXISTS allotted_time_caps (
			user_id TEXT PRIMARY KEY,
			cap_ms INTEGER,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		)`,

		`CREATE TABLE IF NOT EXISTS telescopes (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS celestial_bodies (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			hours INTEGER NOT NULL,
			minutes INTEGER NOT NULL,
			seconds REAL NOT NULL,
			right_ascension REAL NOT NULL,
			declination REAL NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS appointments (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			telescope_id TEXT NOT NULL,
			start_time DATETIME NOT NULL,
			end_time DATETIME NOT NULL,
			status TEXT NOT NULL,
			priority TEXT NOT NULL,
			type TEXT NOT NULL,
			is_public BOOLEAN NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id),
			FOREIGN KEY (telescope_id) REFERENCES telescopes(id)
		)`,

		`CREATE TABLE IF NOT EXISTS point_coordinates (
			appointment_id TEXT PRIMARY KEY,
			hours INTEGER NOT NULL,
			minutes INTEGER NOT NULL,
			seconds REAL NOT NULL,
			right_ascension REAL NOT NULL,
			declination REAL NOT NULL,
			FOREIGN KEY (appointment_id) REFERENCES appointments(id) ON DELETE CASCADE
		)`,

		`CREATE TABLE IF NOT EXISTS appointment_bodies (
			appointment_id TEXT PRIMARY KEY,
			body_id TEXT NOT NULL,
			FOREIGN KEY (appointment_id) REFERENCES appointments(id) ON DELETE CASCADE,
			FOREIGN KEY (body_id) REFERENCES celestial_bodies(id)
		)`,

		`CREATE TABLE IF NOT EXISTS orientations (
			appointment_id TEXT PRIMARY KEY,
			azimuth REAL NOT NULL,
			elevation REAL NOT NULL,
			FOREIGN KEY (appointment_id) REFERENCES appointments(id) ON DELETE CASCADE
		)`,

		`CREATE TABLE IF NOT EXISTS raster_coordinates (
			appointment_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			hours INTEGER NOT NULL,
			minutes INTEGER NOT NULL,
			seconds REAL NOT NULL,
			right_ascension REAL NOT NULL,
			declination REAL NOT NULL,
			PRIMARY KEY (appointment_id, position),
			FOREIGN KEY (appointment_id) REFERENCES appointments(id) ON DELETE CASCADE
		)`,

		`CREATE TABLE IF NOT EXISTS heartbeats (
			telescope_id TEXT PRIMARY KEY,
			last_communication DATETIME NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_appointments_telescope_status ON appointments(telescope_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_appointments_user_status ON appointments(user_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_appointments_times ON appointments(telescope_id, start_time, end_time)`,
		`CREATE INDEX IF NOT EXISTS idx_user_roles_user ON user_roles(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bodies_name ON celestial_bodies(name)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("exec migration %s: %w", trimSQL(q), err)
		}
	}
	return nil
}

func trimSQL(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}

// PingContext reports connection health for readiness probes.
func (db *DB) PingContext(ctx context.Context) error {
	return db.DB.PingContext(ctx)
}

func (db *DB) Close() error {
	return db.DB.Close()
}
