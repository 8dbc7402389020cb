package services

import (
	"context"
	"fmt"

	"github.com/vncsmyrnk/tally/internal/core/domain"
	"github.com/vncsmyrnk/tally/internal/core/ports"
)

const ContractName = "github.com/vncsmyrnk/tally"

// ContractVersion is recorded in contract_info at initialization. Overridden
// at build time with -ldflags.
var ContractVersion = "0.1.0"

type pollEngine struct {
	validator ports.AddressValidator
}

func NewPollEngine(validator ports.AddressValidator) ports.PollEngine {
	return &pollEngine{
		validator: validator,
	}
}

func (e *pollEngine) Initialize(ctx context.Context, kv ports.KeyValueStore, adminAddress string) (domain.Config, error) {
	addr, err := e.validator.Validate(adminAddress)
	if err != nil {
		return domain.Config{}, fmt.Errorf("failed to validate admin address: %w", err)
	}

	info := domain.ContractInfo{Contract: ContractName, Version: ContractVersion}
	if err := contractInfoItem.save(ctx, kv, info); err != nil {
		return domain.Config{}, err
	}

	config := domain.Config{AdminAddress: addr}
	if err := configItem.save(ctx, kv, config); err != nil {
		return domain.Config{}, err
	}

	if err := idCounterItem.save(ctx, kv, 0); err != nil {
		return domain.Config{}, err
	}

	return config, nil
}

func (e *pollEngine) CreatePoll(ctx context.Context, kv ports.KeyValueStore, question string) (uint64, error) {
	currentID, err := e.PollCount(ctx, kv)
	if err != nil {
		return 0, err
	}

	if err := polls.at(currentID).save(ctx, kv, domain.NewPoll(question)); err != nil {
		return 0, err
	}

	err = idCounterItem.update(ctx, kv, func(v uint64, found bool) (uint64, error) {
		if !found {
			return 0, domain.ErrNotInitialized
		}
		return domain.CheckedAdd(v, 1)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to advance poll id counter: %w", err)
	}

	return currentID, nil
}

func (e *pollEngine) CastVote(ctx context.Context, kv ports.KeyValueStore, pollID uint64, choice domain.VoteChoice) error {
	err := polls.at(pollID).update(ctx, kv, func(p domain.Poll, found bool) (domain.Poll, error) {
		if !found {
			return domain.Poll{}, domain.ErrPollNotFound
		}
		return p.WithVote(choice)
	})
	if err != nil {
		return fmt.Errorf("failed to vote on poll %d: %w", pollID, err)
	}
	return nil
}

func (e *pollEngine) GetTally(ctx context.Context, kv ports.KeyValueStore, pollID uint64) (domain.Tally, error) {
	poll, err := e.GetPoll(ctx, kv, pollID)
	if err != nil {
		return domain.Tally{}, err
	}
	return poll.Tally(), nil
}

func (e *pollEngine) GetPoll(ctx context.Context, kv ports.KeyValueStore, pollID uint64) (domain.Poll, error) {
	poll, found, err := polls.at(pollID).mayLoad(ctx, kv)
	if err != nil {
		return domain.Poll{}, err
	}
	if !found {
		return domain.Poll{}, fmt.Errorf("%w: %d", domain.ErrPollNotFound, pollID)
	}
	return poll, nil
}

func (e *pollEngine) GetConfig(ctx context.Context, kv ports.KeyValueStore) (domain.Config, error) {
	config, found, err := configItem.mayLoad(ctx, kv)
	if err != nil {
		return domain.Config{}, err
	}
	if !found {
		return domain.Config{}, domain.ErrNotInitialized
	}
	return config, nil
}

// PollCount returns the id counter, which is also the id the next poll will get.
func (e *pollEngine) PollCount(ctx context.Context, kv ports.KeyValueStore) (uint64, error) {
	n, found, err := idCounterItem.mayLoad(ctx, kv)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, domain.ErrNotInitialized
	}
	return n, nil
}
