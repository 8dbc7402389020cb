package ports

import "context"

// UpdateFunc receives the current value under a key (found reports whether
// one exists) and returns the value to store in its place. Returning an
// error aborts the update and leaves the key unchanged.
type UpdateFunc func(current []byte, found bool) ([]byte, error)

// KeyValueStore is an exact-key byte store. No range scans.
type KeyValueStore interface {
	Get(ctx context.Context, key []byte) (value []byte, found bool, err error)
	Set(ctx context.Context, key, value []byte) error
	// Update applies fn exactly once and atomically with respect to other
	// writers of key.
	Update(ctx context.Context, key []byte, fn UpdateFunc) error
}

// Store is a KeyValueStore that can group several operations into one
// all-or-nothing transaction.
type Store interface {
	KeyValueStore
	// Atomically runs fn against a transactional view of the store. Writes
	// made through kv are committed only if fn returns nil.
	Atomically(ctx context.Context, fn func(kv KeyValueStore) error) error
	Close() error
}
