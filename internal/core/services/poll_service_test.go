package services

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vncsmyrnk/tally/internal/adapters/repository/memory"
	"github.com/vncsmyrnk/tally/internal/core/domain"
	"github.com/vncsmyrnk/tally/internal/core/ports"
)

type stubValidator struct{}

func (stubValidator) Validate(address string) (string, error) {
	if address == "" || address == "bad" {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidAddress, address)
	}
	return address, nil
}

func newInitializedEngine(t *testing.T) (ports.PollEngine, *memory.Store) {
	t.Helper()
	engine := NewPollEngine(stubValidator{})
	store := memory.NewStore()
	_, err := engine.Initialize(context.Background(), store, "cosmos1admin")
	require.NoError(t, err)
	return engine, store
}

func TestInitialize(t *testing.T) {
	ctx := context.Background()
	engine := NewPollEngine(stubValidator{})
	store := memory.NewStore()

	config, err := engine.Initialize(ctx, store, "cosmos1admin")
	require.NoError(t, err)
	assert.Equal(t, domain.Config{AdminAddress: "cosmos1admin"}, config)

	stored, err := engine.GetConfig(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, config, stored)

	count, err := engine.PollCount(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)

	info, found, err := contractInfoItem.mayLoad(ctx, store)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, ContractName, info.Contract)
	assert.Equal(t, ContractVersion, info.Version)
}

func TestInitializeRejectsInvalidAddress(t *testing.T) {
	store := memory.NewStore()

	_, err := NewPollEngine(stubValidator{}).Initialize(context.Background(), store, "bad")
	assert.ErrorIs(t, err, domain.ErrInvalidAddress)
	assert.Equal(t, 0, store.Len())
}

func TestCreatePollBeforeInitialize(t *testing.T) {
	_, err := NewPollEngine(stubValidator{}).CreatePoll(context.Background(), memory.NewStore(), "q")
	assert.ErrorIs(t, err, domain.ErrNotInitialized)
}

func TestCreatePollAssignsDenseIDs(t *testing.T) {
	ctx := context.Background()
	engine, store := newInitializedEngine(t)

	for want := uint64(0); want < 5; want++ {
		id, err := engine.CreatePoll(ctx, store, "question "+strconv.FormatUint(want, 10))
		require.NoError(t, err)
		assert.Equal(t, want, id)
	}

	count, err := engine.PollCount(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), count)
}

func TestNewPollHasEmptyTally(t *testing.T) {
	ctx := context.Background()
	engine, store := newInitializedEngine(t)

	id, err := engine.CreatePoll(ctx, store, "Q")
	require.NoError(t, err)

	tally, err := engine.GetTally(ctx, store, id)
	require.NoError(t, err)
	assert.Equal(t, domain.Tally{}, tally)
}

func TestVotesAccumulateInAnyOrder(t *testing.T) {
	ctx := context.Background()
	engine, store := newInitializedEngine(t)

	a, err := engine.CreatePoll(ctx, store, "a")
	require.NoError(t, err)
	b, err := engine.CreatePoll(ctx, store, "b")
	require.NoError(t, err)

	require.NoError(t, engine.CastVote(ctx, store, a, domain.VoteYes))
	require.NoError(t, engine.CastVote(ctx, store, a, domain.VoteNo))
	require.NoError(t, engine.CastVote(ctx, store, b, domain.VoteNo))
	require.NoError(t, engine.CastVote(ctx, store, b, domain.VoteYes))

	tallyA, err := engine.GetTally(ctx, store, a)
	require.NoError(t, err)
	tallyB, err := engine.GetTally(ctx, store, b)
	require.NoError(t, err)

	assert.Equal(t, domain.Tally{YesVotes: 1, NoVotes: 1}, tallyA)
	assert.Equal(t, tallyA, tallyB)
}

func TestUnknownPoll(t *testing.T) {
	ctx := context.Background()
	engine, store := newInitializedEngine(t)

	_, err := engine.GetTally(ctx, store, 0)
	assert.ErrorIs(t, err, domain.ErrPollNotFound)

	err = engine.CastVote(ctx, store, 0, domain.VoteYes)
	assert.ErrorIs(t, err, domain.ErrPollNotFound)

	_, err = engine.CreatePoll(ctx, store, "q")
	require.NoError(t, err)

	_, err = engine.GetTally(ctx, store, 1)
	assert.ErrorIs(t, err, domain.ErrPollNotFound)
}

func TestVotesNeverChangeQuestion(t *testing.T) {
	ctx := context.Background()
	engine, store := newInitializedEngine(t)
	question := "  Ünïcode, \"quotes\" and trailing space "

	id, err := engine.CreatePoll(ctx, store, question)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.NoError(t, engine.CastVote(ctx, store, id, domain.VoteNo))
	}

	poll, err := engine.GetPoll(ctx, store, id)
	require.NoError(t, err)
	assert.Equal(t, question, poll.Question)
	assert.Equal(t, uint64(3), poll.NoVotes)
}

func TestEmptyQuestionIsAccepted(t *testing.T) {
	ctx := context.Background()
	engine, store := newInitializedEngine(t)

	id, err := engine.CreatePoll(ctx, store, "")
	require.NoError(t, err)

	poll, err := engine.GetPoll(ctx, store, id)
	require.NoError(t, err)
	assert.Equal(t, "", poll.Question)
}

func TestGetTallyIsIdempotent(t *testing.T) {
	ctx := context.Background()
	engine, store := newInitializedEngine(t)

	id, err := engine.CreatePoll(ctx, store, "q")
	require.NoError(t, err)
	require.NoError(t, engine.CastVote(ctx, store, id, domain.VoteYes))

	first, err := engine.GetTally(ctx, store, id)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := engine.GetTally(ctx, store, id)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestCastVoteOverflow(t *testing.T) {
	ctx := context.Background()
	engine, store := newInitializedEngine(t)

	id, err := engine.CreatePoll(ctx, store, "q")
	require.NoError(t, err)
	require.NoError(t, polls.at(id).save(ctx, store, domain.Poll{Question: "q", YesVotes: math.MaxUint64}))

	err = engine.CastVote(ctx, store, id, domain.VoteYes)
	assert.ErrorIs(t, err, domain.ErrArithmeticOverflow)

	tally, err := engine.GetTally(ctx, store, id)
	require.NoError(t, err)
	assert.Equal(t, domain.Tally{YesVotes: math.MaxUint64}, tally)
}

func TestPollKeysDoNotCollide(t *testing.T) {
	k0 := polls.key(0)
	k1 := polls.key(1)

	assert.Equal(t, []byte{0x00, 0x05, 'p', 'o', 'l', 'l', 's', 0, 0, 0, 0, 0, 0, 0, 0}, k0)
	assert.NotEqual(t, k0, k1)
	assert.NotEqual(t, idCounterItem.key, k0[:len(idCounterItem.key)])
}
