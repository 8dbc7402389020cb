package services

import (
	"context"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vncsmyrnk/tally/internal/adapters/repository/memory"
	"github.com/vncsmyrnk/tally/internal/core/domain"
	"github.com/vncsmyrnk/tally/internal/core/ports"
)

func TestSummarizeAllPolls(t *testing.T) {
	ctx := context.Background()
	engine, store := newInitializedEngine(t)

	for _, q := range []string{"a", "b", "c"} {
		_, err := engine.CreatePoll(ctx, store, q)
		require.NoError(t, err)
	}
	require.NoError(t, engine.CastVote(ctx, store, 1, domain.VoteYes))
	require.NoError(t, engine.CastVote(ctx, store, 2, domain.VoteNo))

	summaries, err := NewSummaryService(store, engine).SummarizeAllPolls(ctx)
	require.NoError(t, err)

	assert.Equal(t, []ports.PollResponse{
		{PollID: 0, Question: "a"},
		{PollID: 1, Question: "b", YesVotes: 1},
		{PollID: 2, Question: "c", NoVotes: 1},
	}, summaries)
}

func TestSummarizeAllPollsEmpty(t *testing.T) {
	engine, store := newInitializedEngine(t)

	summaries, err := NewSummaryService(store, engine).SummarizeAllPolls(context.Background())
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

func TestSummarizeAllPollsNotInitialized(t *testing.T) {
	_, err := NewSummaryService(memory.NewStore(), NewPollEngine(stubValidator{})).SummarizeAllPolls(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotInitialized)
}

// blockingEngine reports many polls and holds every GetPoll until release is
// closed or the context ends.
type blockingEngine struct {
	ports.PollEngine
	count    uint64
	release  chan struct{}
	inFlight atomic.Int64
	peak     atomic.Int64
}

func (e *blockingEngine) PollCount(context.Context, ports.KeyValueStore) (uint64, error) {
	return e.count, nil
}

func (e *blockingEngine) GetPoll(ctx context.Context, _ ports.KeyValueStore, id uint64) (domain.Poll, error) {
	n := e.inFlight.Add(1)
	defer e.inFlight.Add(-1)
	for {
		p := e.peak.Load()
		if n <= p || e.peak.CompareAndSwap(p, n) {
			break
		}
	}

	select {
	case <-e.release:
		return domain.Poll{Question: "q"}, nil
	case <-ctx.Done():
		return domain.Poll{}, ctx.Err()
	}
}

func TestSummarizeAllPollsBoundsGoroutines(t *testing.T) {
	const concurrency = 4
	engine := &blockingEngine{count: 5000, release: make(chan struct{})}
	svc := &summaryService{store: memory.NewStore(), engine: engine, concurrency: concurrency}

	baseline := runtime.NumGoroutine()
	done := make(chan error, 1)
	go func() {
		summaries, err := svc.SummarizeAllPolls(context.Background())
		if err == nil && len(summaries) != int(engine.count) {
			err = assert.AnError
		}
		done <- err
	}()

	require.Eventually(t, func() bool {
		return engine.inFlight.Load() == concurrency
	}, 5*time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	// The caller goroutine plus the workers, never one goroutine per poll.
	assert.LessOrEqual(t, runtime.NumGoroutine()-baseline, concurrency+4)

	close(engine.release)
	require.NoError(t, <-done)
	assert.Equal(t, int64(concurrency), engine.peak.Load())
}

func TestSummarizeAllPollsStopsOnCancel(t *testing.T) {
	engine := &blockingEngine{count: 1000, release: make(chan struct{})}
	svc := &summaryService{store: memory.NewStore(), engine: engine, concurrency: 2}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := svc.SummarizeAllPolls(ctx)
		done <- err
	}()

	require.Eventually(t, func() bool { return engine.inFlight.Load() == 2 }, 5*time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("summary kept running after cancel")
	}
}
