package database

import (
	"context"
	"database/sql"
	"fmt"

	"skydish/internal/scheduling"
)

// querier is satisfied by both *sql.DB and *sql.Tx so the same store
// code serves transactional and plain reads.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queries implements every scheduling store interface over one querier.
type queries struct {
	q querier
}

func (db *DB) bundle(q querier) scheduling.Stores {
	qs := &queries{q: q}
	return scheduling.Stores{
		Users:        qs,
		Telescopes:   qs,
		Catalog:      qs,
		Appointments: qs,
		Caps:         qs,
		Payloads:     qs,
	}
}

// InTx runs fn against stores bound to a single transaction. Every
// admission decision's reads and its final write share this transaction,
// so concurrent requests cannot both see a free slot and both commit.
func (db *DB) InTx(ctx context.Context, fn func(s scheduling.Stores) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(db.bundle(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			db.logger.Error().Err(rbErr).Msg("rollback failed")
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Stores returns the store bundle without transaction scoping, for
// read-only callers such as the catalog search endpoint.
func (db *DB) Stores() scheduling.Stores {
	return db.bundle(db.DB)
}
