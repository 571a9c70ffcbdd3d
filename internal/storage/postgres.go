package storage

import (
	"context"
	"database/sql"
	"errors"
)

// PostgresStore keeps keys in the kv_store table (see internal/db/migrations).
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore returns a store that uses the given db. The schema must already be applied.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Get returns the value for key. A missing row is reported as ok false, not as an error.
func (s *PostgresStore) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_store WHERE key = $1`, key).Scan(&v)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return v, true, nil
}

// Set upserts value under key.
func (s *PostgresStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO kv_store (key, value, updated_at) VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`, key, value)
	return err
}

// Remove deletes key.
func (s *PostgresStore) Remove(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv_store WHERE key = $1`, key)
	return err
}

// Close closes the underlying db.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// PingContext checks the database connection.
func (s *PostgresStore) PingContext(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// DB returns the underlying handle so other tables in the same database can share it.
func (s *PostgresStore) DB() *sql.DB {
	return s.db
}
