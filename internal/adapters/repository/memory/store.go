package memory

import (
	"context"
	"sync"

	"github.com/vncsmyrnk/tally/internal/adapters/repository/staging"
	"github.com/vncsmyrnk/tally/internal/core/ports"
)

// Store keeps everything in a map. Transactions hold the write lock for their
// whole duration, so all commands are serialized.
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
}

var _ ports.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{data: make(map[string][]byte)}
}

func (s *Store) Get(_ context.Context, key []byte) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, found := s.load(key)
	return v, found, nil
}

func (s *Store) Set(_ context.Context, key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[string(key)] = clone(value)
	return nil
}

func (s *Store) Update(_ context.Context, key []byte, fn ports.UpdateFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, found := s.load(key)
	next, err := fn(current, found)
	if err != nil {
		return err
	}
	s.data[string(key)] = clone(next)
	return nil
}

// Atomically must only touch the store through kv; calling s directly from
// fn deadlocks.
func (s *Store) Atomically(ctx context.Context, fn func(kv ports.KeyValueStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf := staging.New(func(_ context.Context, key []byte) ([]byte, bool, error) {
		v, found := s.load(key)
		return v, found, nil
	})
	if err := fn(buf); err != nil {
		return err
	}
	for _, w := range buf.Writes() {
		s.data[string(w.Key)] = w.Value
	}
	return nil
}

func (s *Store) Close() error {
	return nil
}

// Len reports the number of stored keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func (s *Store) load(key []byte) ([]byte, bool) {
	v, found := s.data[string(key)]
	if !found {
		return nil, false
	}
	return clone(v), true
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
