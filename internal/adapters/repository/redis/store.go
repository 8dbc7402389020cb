package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vncsmyrnk/tally/internal/adapters/repository/staging"
	"github.com/vncsmyrnk/tally/internal/core/ports"
)

const defaultMaxAttempts = 16

var ErrTooManyConflicts = errors.New("transaction aborted after repeated conflicts")

type Options struct {
	// KeyPrefix namespaces every key, e.g. "tally:".
	KeyPrefix string
	// MaxAttempts bounds how often a transaction is retried after a
	// concurrent write to one of the keys it read.
	MaxAttempts int
}

// Store uses optimistic transactions: every key read inside Atomically is
// WATCHed, writes are staged locally and flushed in one MULTI/EXEC. When
// EXEC fails because a watched key changed, the whole transaction runs again.
type Store struct {
	client      *redis.Client
	prefix      string
	maxAttempts int
}

var _ ports.Store = (*Store)(nil)

func NewStore(client *redis.Client, opts Options) *Store {
	attempts := opts.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}
	return &Store{
		client:      client,
		prefix:      opts.KeyPrefix,
		maxAttempts: attempts,
	}
}

// Connect creates a client and verifies the server answers.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func (s *Store) Get(ctx context.Context, key []byte) ([]byte, bool, error) {
	v, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get key: %w", err)
	}
	return v, true, nil
}

func (s *Store) Set(ctx context.Context, key, value []byte) error {
	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set key: %w", err)
	}
	return nil
}

func (s *Store) Update(ctx context.Context, key []byte, fn ports.UpdateFunc) error {
	return s.Atomically(ctx, func(kv ports.KeyValueStore) error {
		return kv.Update(ctx, key, fn)
	})
}

// Atomically may call fn more than once. fn must not have effects outside kv
// other than assigning results.
func (s *Store) Atomically(ctx context.Context, fn func(kv ports.KeyValueStore) error) error {
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			buf := staging.New(func(ctx context.Context, key []byte) ([]byte, bool, error) {
				return s.watchAndGet(ctx, tx, key)
			})

			if err := fn(buf); err != nil {
				return err
			}
			if buf.Len() == 0 {
				return nil
			}

			_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				for _, w := range buf.Writes() {
					pipe.Set(ctx, s.key(w.Key), w.Value, 0)
				}
				return nil
			})
			return err
		})
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("%w: %d attempts", ErrTooManyConflicts, s.maxAttempts)
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) watchAndGet(ctx context.Context, tx *redis.Tx, key []byte) ([]byte, bool, error) {
	k := s.key(key)
	if err := tx.Watch(ctx, k).Err(); err != nil {
		return nil, false, fmt.Errorf("failed to watch key: %w", err)
	}
	v, err := tx.Get(ctx, k).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get key: %w", err)
	}
	return v, true, nil
}

func (s *Store) key(key []byte) string {
	return s.prefix + string(key)
}
