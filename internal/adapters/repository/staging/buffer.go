// Package staging buffers writes made inside a transaction until the backend
// decides to commit them.
package staging

import (
	"context"

	"github.com/vncsmyrnk/tally/internal/core/ports"
)

// ReadFunc reads a committed value from the underlying backend.
type ReadFunc func(ctx context.Context, key []byte) ([]byte, bool, error)

type Write struct {
	Key   []byte
	Value []byte
}

// Buffer is a ports.KeyValueStore that serves reads from its own pending
// writes first and from read otherwise. It is not safe for concurrent use.
type Buffer struct {
	read   ReadFunc
	writes map[string][]byte
	order  []string
}

var _ ports.KeyValueStore = (*Buffer)(nil)

func New(read ReadFunc) *Buffer {
	return &Buffer{
		read:   read,
		writes: make(map[string][]byte),
	}
}

func (b *Buffer) Get(ctx context.Context, key []byte) ([]byte, bool, error) {
	if v, ok := b.writes[string(key)]; ok {
		return clone(v), true, nil
	}
	return b.read(ctx, key)
}

func (b *Buffer) Set(_ context.Context, key, value []byte) error {
	k := string(key)
	if _, ok := b.writes[k]; !ok {
		b.order = append(b.order, k)
	}
	b.writes[k] = clone(value)
	return nil
}

func (b *Buffer) Update(ctx context.Context, key []byte, fn ports.UpdateFunc) error {
	current, found, err := b.Get(ctx, key)
	if err != nil {
		return err
	}
	next, err := fn(current, found)
	if err != nil {
		return err
	}
	return b.Set(ctx, key, next)
}

// Writes returns the pending writes in the order their keys were first written.
func (b *Buffer) Writes() []Write {
	out := make([]Write, 0, len(b.order))
	for _, k := range b.order {
		out = append(out, Write{Key: []byte(k), Value: clone(b.writes[k])})
	}
	return out
}

func (b *Buffer) Len() int {
	return len(b.order)
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
