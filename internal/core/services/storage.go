package services

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/vncsmyrnk/tally/internal/core/domain"
	"github.com/vncsmyrnk/tally/internal/core/ports"
)

// Storage layout
//
//	"contract_info"             -> ContractInfo
//	"config"                    -> Config
//	"id_counter"                -> uint64
//	0x00 0x05 "polls" <id:8 BE> -> Poll
//
// Values are JSON. Collection keys carry a 2-byte length prefix on the
// namespace so they cannot collide with singleton keys.
var (
	contractInfoItem = newItem[domain.ContractInfo]("contract_info")
	configItem       = newItem[domain.Config]("config")
	idCounterItem    = newItem[uint64]("id_counter")
	polls            = newKeyedMap[domain.Poll]("polls")
)

type item[T any] struct {
	key  []byte
	name string
}

func newItem[T any](key string) item[T] {
	return item[T]{key: []byte(key), name: key}
}

func (i item[T]) mayLoad(ctx context.Context, kv ports.KeyValueStore) (T, bool, error) {
	var v T
	raw, found, err := kv.Get(ctx, i.key)
	if err != nil {
		return v, false, fmt.Errorf("failed to read %s: %w", i.name, err)
	}
	if !found {
		return v, false, nil
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, false, fmt.Errorf("failed to decode %s: %w", i.name, err)
	}
	return v, true, nil
}

func (i item[T]) save(ctx context.Context, kv ports.KeyValueStore, v T) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", i.name, err)
	}
	if err := kv.Set(ctx, i.key, raw); err != nil {
		return fmt.Errorf("failed to write %s: %w", i.name, err)
	}
	return nil
}

// update runs fn on the current value inside a single store Update. Errors
// returned by fn are passed through unchanged.
func (i item[T]) update(ctx context.Context, kv ports.KeyValueStore, fn func(current T, found bool) (T, error)) error {
	return kv.Update(ctx, i.key, func(raw []byte, found bool) ([]byte, error) {
		var current T
		if found {
			if err := json.Unmarshal(raw, &current); err != nil {
				return nil, fmt.Errorf("failed to decode %s: %w", i.name, err)
			}
		}
		next, err := fn(current, found)
		if err != nil {
			return nil, err
		}
		return json.Marshal(next)
	})
}

type keyedMap[T any] struct {
	namespace string
}

func newKeyedMap[T any](namespace string) keyedMap[T] {
	return keyedMap[T]{namespace: namespace}
}

func (m keyedMap[T]) key(id uint64) []byte {
	k := make([]byte, 0, 2+len(m.namespace)+8)
	k = binary.BigEndian.AppendUint16(k, uint16(len(m.namespace)))
	k = append(k, m.namespace...)
	return binary.BigEndian.AppendUint64(k, id)
}

func (m keyedMap[T]) at(id uint64) item[T] {
	return item[T]{key: m.key(id), name: fmt.Sprintf("%s[%d]", m.namespace, id)}
}
