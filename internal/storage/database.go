package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Database stores blobs as bytea rows in the blobs table. Useful for small
// deployments that want a single stateful dependency.
type Database struct {
	db *pgxpool.Pool
}

// NewDatabase returns a blob backend on top of the given connection pool.
func NewDatabase(db *pgxpool.Pool) *Database {
	return &Database{db: db}
}

// Name returns the backend discriminator.
func (d *Database) Name() string { return "database" }

// Store inserts data under a generated unique row key.
func (d *Database) Store(ctx context.Context, data []byte, originalName string) (string, error) {
	ref := uuid.NewString()
	_, err := d.db.Exec(ctx,
		`INSERT INTO blobs (key, data) VALUES ($1, $2)`,
		ref, data,
	)
	if err != nil {
		return "", fmt.Errorf("insert blob %q: %w", ref, err)
	}
	return ref, nil
}

// Retrieve reads the blob row, mapping a missing row to ErrNotFound.
func (d *Database) Retrieve(ctx context.Context, ref string) ([]byte, error) {
	var data []byte
	err := d.db.QueryRow(ctx,
		`SELECT data FROM blobs WHERE key = $1`,
		ref,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select blob %q: %w", ref, err)
	}
	return data, nil
}

// Delete removes the blob row, mapping a missing row to ErrNotFound.
func (d *Database) Delete(ctx context.Context, ref string) error {
	tag, err := d.db.Exec(ctx,
		`DELETE FROM blobs WHERE key = $1`,
		ref,
	)
	if err != nil {
		return fmt.Errorf("delete blob %q: %w", ref, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
