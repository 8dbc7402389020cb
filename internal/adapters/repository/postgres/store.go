package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"

	_ "github.com/lib/pq"

	"github.com/vncsmyrnk/tally/internal/core/ports"
)

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Store keeps every key in the kv_store table. Reads made inside Atomically
// take row locks, so concurrent transactions touching the same key run one
// after the other.
type Store struct {
	db *sql.DB
}

var _ ports.Store = (*Store)(nil)

func NewStore(db *sql.DB) *Store {
	return &Store{
		db: db,
	}
}

// Connect opens a lib/pq connection pool and verifies it.
func Connect(ctx context.Context, connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

func (s *Store) Get(ctx context.Context, key []byte) ([]byte, bool, error) {
	return get(ctx, s.db, `SELECT value FROM kv_store WHERE key = $1`, key)
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

const selectForUpdate = `SELECT value FROM kv_store WHERE key = $1 FOR UPDATE`

// FOR UPDATE locks nothing when the row does not exist. An absent key is
// locked with a transaction-scoped advisory lock on its hash instead, and
// read again once the lock is held, so a concurrent transaction that
// created it in the meantime is seen.
const lockKey = `SELECT pg_advisory_xact_lock($1)`

func (t txStore) Get(ctx context.Context, key []byte) ([]byte, bool, error) {
	return t.getForUpdate(ctx, key)
}

func (t txStore) getForUpdate(ctx context.Context, key []byte) ([]byte, bool, error) {
	value, found, err := get(ctx, t.tx, selectForUpdate, key)
	if err != nil || found {
		return value, found, err
	}

	if _, err := t.tx.ExecContext(ctx, lockKey, advisoryKey(key)); err != nil {
		return nil, false, fmt.Errorf("failed to lock key: %w", err)
	}
	return get(ctx, t.tx, selectForUpdate, key)
}

// advisoryKey maps a key onto the bigint space of advisory locks. Collisions
// only serialize unrelated transactions.
func advisoryKey(key []byte) int64 {
	h := fnv.New64a()
	h.Write(key)
	return int64(h.Sum64())
}

func (t txStore) Set(ctx context.Context, key, value []byte) error {
	return set(ctx, t.tx, key, value)
}

func (t txStore) Update(ctx context.Context, key []byte, fn ports.UpdateFunc) error {
	current, found, err := t.getForUpdate(ctx, key)
	if err != nil {
		return err
	}
	next, err := fn(current, found)
	if err != nil {
		return err
	}
	return set(ctx, t.tx, key, next)
}

func get(ctx context.Context, q querier, query string, key []byte) ([]byte, bool, error) {
	var value []byte
	err := q.QueryRowContext(ctx, query, key).Scan(&value)
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
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value,
		    updated_at = NOW()
	`
	if _, err := q.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to set key: %w", err)
	}
	return nil
}
