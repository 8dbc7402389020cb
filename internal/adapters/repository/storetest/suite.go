// Package storetest holds the behaviour every ports.Store backend must share.
package storetest

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vncsmyrnk/tally/internal/core/ports"
)

// Factory returns an empty store. The suite closes it.
type Factory func(t *testing.T) ports.Store

func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("GetMissing", func(t *testing.T) { testGetMissing(t, newStore(t)) })
	t.Run("SetThenGet", func(t *testing.T) { testSetThenGet(t, newStore(t)) })
	t.Run("BinaryKeys", func(t *testing.T) { testBinaryKeys(t, newStore(t)) })
	t.Run("Update", func(t *testing.T) { testUpdate(t, newStore(t)) })
	t.Run("UpdateErrorKeepsValue", func(t *testing.T) { testUpdateErrorKeepsValue(t, newStore(t)) })
	t.Run("AtomicallyCommits", func(t *testing.T) { testAtomicallyCommits(t, newStore(t)) })
	t.Run("AtomicallyRollsBack", func(t *testing.T) { testAtomicallyRollsBack(t, newStore(t)) })
	t.Run("ConcurrentIncrements", func(t *testing.T) { testConcurrentIncrements(t, newStore(t)) })
	t.Run("CreateIfAbsentIsExclusive", func(t *testing.T) { testCreateIfAbsentIsExclusive(t, newStore(t)) })
}

func testGetMissing(t *testing.T, s ports.Store) {
	defer s.Close()

	_, found, err := s.Get(context.Background(), []byte("missing"))
	require.NoError(t, err)
	assert.False(t, found)
}

func testSetThenGet(t *testing.T, s ports.Store) {
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, []byte("config"), []byte(`{"admin_address":"a"}`)))
	require.NoError(t, s.Set(ctx, []byte("config"), []byte(`{"admin_address":"b"}`)))

	v, found, err := s.Get(ctx, []byte("config"))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `{"admin_address":"b"}`, string(v))
}

func testBinaryKeys(t *testing.T, s ports.Store) {
	defer s.Close()
	ctx := context.Background()

	k0 := []byte{0x00, 0x05, 'p', 'o', 'l', 'l', 's', 0, 0, 0, 0, 0, 0, 0, 0}
	k1 := []byte{0x00, 0x05, 'p', 'o', 'l', 'l', 's', 0, 0, 0, 0, 0, 0, 0, 1}
	require.NoError(t, s.Set(ctx, k0, []byte("zero")))
	require.NoError(t, s.Set(ctx, k1, []byte("one")))

	v, found, err := s.Get(ctx, k0)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "zero", string(v))

	v, found, err = s.Get(ctx, k1)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "one", string(v))
}

func testUpdate(t *testing.T, s ports.Store) {
	defer s.Close()
	ctx := context.Background()
	key := []byte("id_counter")

	err := s.Update(ctx, key, func(current []byte, found bool) ([]byte, error) {
		assert.False(t, found)
		return []byte("1"), nil
	})
	require.NoError(t, err)

	err = s.Update(ctx, key, func(current []byte, found bool) ([]byte, error) {
		assert.True(t, found)
		assert.Equal(t, "1", string(current))
		return []byte("2"), nil
	})
	require.NoError(t, err)

	v, _, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "2", string(v))
}

func testUpdateErrorKeepsValue(t *testing.T, s ports.Store) {
	defer s.Close()
	ctx := context.Background()
	key := []byte("k")
	boom := errors.New("boom")

	require.NoError(t, s.Set(ctx, key, []byte("before")))
	err := s.Update(ctx, key, func([]byte, bool) ([]byte, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	v, _, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "before", string(v))
}

func testAtomicallyCommits(t *testing.T, s ports.Store) {
	defer s.Close()
	ctx := context.Background()

	err := s.Atomically(ctx, func(kv ports.KeyValueStore) error {
		if err := kv.Set(ctx, []byte("a"), []byte("1")); err != nil {
			return err
		}
		v, found, err := kv.Get(ctx, []byte("a"))
		if err != nil {
			return err
		}
		assert.True(t, found, "transaction must read its own writes")
		assert.Equal(t, "1", string(v))

		return kv.Update(ctx, []byte("b"), func([]byte, bool) ([]byte, error) {
			return []byte("2"), nil
		})
	})
	require.NoError(t, err)

	for key, want := range map[string]string{"a": "1", "b": "2"} {
		v, found, err := s.Get(ctx, []byte(key))
		require.NoError(t, err)
		require.True(t, found, key)
		assert.Equal(t, want, string(v))
	}
}

func testAtomicallyRollsBack(t *testing.T, s ports.Store) {
	defer s.Close()
	ctx := context.Background()
	boom := errors.New("boom")

	require.NoError(t, s.Set(ctx, []byte("counter"), []byte("7")))

	err := s.Atomically(ctx, func(kv ports.KeyValueStore) error {
		if err := kv.Set(ctx, []byte("poll"), []byte("new")); err != nil {
			return err
		}
		if err := kv.Set(ctx, []byte("counter"), []byte("8")); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, found, err := s.Get(ctx, []byte("poll"))
	require.NoError(t, err)
	assert.False(t, found)

	v, _, err := s.Get(ctx, []byte("counter"))
	require.NoError(t, err)
	assert.Equal(t, "7", string(v))
}

func testConcurrentIncrements(t *testing.T, s ports.Store) {
	defer s.Close()
	ctx := context.Background()
	key := []byte("counter")
	const workers = 20

	require.NoError(t, s.Set(ctx, key, []byte("0")))

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.Atomically(ctx, func(kv ports.KeyValueStore) error {
				return kv.Update(ctx, key, func(current []byte, found bool) ([]byte, error) {
					n, err := strconv.Atoi(string(current))
					if err != nil {
						return nil, err
					}
					return []byte(strconv.Itoa(n + 1)), nil
				})
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	v, _, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(workers), string(v))
}

var errExists = errors.New("key exists")

// Two transactions both find a key missing and create it. Only one may
// commit; the other must observe the first one's write.
func testCreateIfAbsentIsExclusive(t *testing.T, s ports.Store) {
	defer s.Close()
	ctx := context.Background()
	key := []byte("config")

	firstRead := make(chan struct{})
	var once sync.Once

	createIfAbsent := func(value string) error {
		return s.Atomically(ctx, func(kv ports.KeyValueStore) error {
			_, found, err := kv.Get(ctx, key)
			if err != nil {
				return err
			}
			if found {
				return errExists
			}
			once.Do(func() { close(firstRead) })
			time.Sleep(100 * time.Millisecond)
			return kv.Set(ctx, key, []byte(value))
		})
	}

	results := make(chan error, 2)
	go func() { results <- createIfAbsent("first") }()
	go func() {
		<-firstRead
		results <- createIfAbsent("second")
	}()

	var created, rejected int
	for i := 0; i < 2; i++ {
		err := <-results
		switch {
		case err == nil:
			created++
		case errors.Is(err, errExists):
			rejected++
		default:
			require.NoError(t, err)
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, 1, rejected)

	v, found, err := s.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, found)
	assert.Contains(t, []string{"first", "second"}, string(v))
}
