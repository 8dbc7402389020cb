package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/vncsmyrnk/tally/internal/core/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv_store (
    key BLOB PRIMARY KEY,
    value BLOB NOT NULL
);
`

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Store is an embedded single-file backend. The pool is limited to one
// connection, which serializes every transaction.
type Store struct {
	db *sql.DB
}

var _ ports.Store = (*Store)(nil)

// Open opens (or creates) the database file at path and creates the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure sqlite: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Get(ctx context.Context, key []byte) ([]byte, bool, error) {
	return get(ctx, s.db, key)
}

func (s *Store) Set(ctx context.Context, key, value []byte) error {
	return set(ctx, s.db, key, value)
}

func (s *Store) Update(ctx context.Context, key []byte, fn ports.UpdateFunc) error {
	return s.Atomically(ctx, func(kv ports.KeyValueStore) error {
		return kv.Update(ctx, key, fn)
	})
}

func (s *Store) Atomically(ctx context.Context, fn func(kv ports.KeyValueStore) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(txStore{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

type txStore struct {
	tx *sql.Tx
}

func (t txStore) Get(ctx context.Context, key []byte) ([]byte, bool, error) {
	return get(ctx, t.tx, key)
}

func (t txStore) Set(ctx context.Context, key, value []byte) error {
	return set(ctx, t.tx, key, value)
}

func (t txStore) Update(ctx context.Context, key []byte, fn ports.UpdateFunc) error {
	current, found, err := get(ctx, t.tx, key)
	if err != nil {
		return err
	}
	next, err := fn(current, found)
	if err != nil {
		return err
	}
	return set(ctx, t.tx, key, next)
}

func get(ctx context.Context, q querier, key []byte) ([]byte, bool, error) {
	var value []byte
	err := q.QueryRowContext(ctx, `SELECT value FROM kv_store WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get key: %w", err)
	}
	return value, true, nil
}

func set(ctx context.Context, q querier, key, value []byte) error {
	query := `
		INSERT INTO kv_store (key, value)
		VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value
	`
	if _, err := q.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to set key: %w", err)
	}
	return nil
}
