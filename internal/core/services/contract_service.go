package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/tally/internal/core/domain"
	"github.com/vncsmyrnk/tally/internal/core/ports"
)

type ContractDependencies struct {
	Store  ports.Store
	Engine ports.PollEngine
	// Publisher is optional. When set, every committed command is published
	// as an audit event.
	Publisher ports.EventPublisher
	Logger    *slog.Logger
	Clock     func() time.Time
	// PublishTimeout caps how long a command waits on the publisher after
	// commit. Defaults to defaultPublishTimeout.
	PublishTimeout time.Duration
}

const defaultPublishTimeout = 2 * time.Second

type contractService struct {
	store     ports.Store
	engine    ports.PollEngine
	publisher ports.EventPublisher
	logger    *slog.Logger
	clock     func() time.Time

	publishTimeout time.Duration
}

func NewContractService(deps ContractDependencies) ports.Contract {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	publishTimeout := deps.PublishTimeout
	if publishTimeout <= 0 {
		publishTimeout = defaultPublishTimeout
	}
	return &contractService{
		store:          deps.Store,
		engine:         deps.Engine,
		publisher:      deps.Publisher,
		logger:         ResolveLogger(deps.Logger),
		clock:          clock,
		publishTimeout: publishTimeout,
	}
}

func (s *contractService) Instantiate(ctx context.Context, msg ports.InstantiateMsg) (*ports.Response, error) {
	invocationID := uuid.New()

	var config domain.Config
	err := s.store.Atomically(ctx, func(kv ports.KeyValueStore) error {
		_, err := s.engine.GetConfig(ctx, kv)
		switch {
		case err == nil:
			return domain.ErrAlreadyInitialized
		case !errors.Is(err, domain.ErrNotInitialized):
			return err
		}

		config, err = s.engine.Initialize(ctx, kv, msg.AdminAddress)
		return err
	})
	if err != nil {
		s.logger.Warn("instantiate failed", "invocation_id", invocationID, "error", err)
		return nil, err
	}

	resp := ports.NewResponse().
		AddAttribute("method", "instantiate").
		AddAttribute("admin_address", config.AdminAddress)
	resp.InvocationID = invocationID

	s.logger.Info("contract instantiated", "invocation_id", invocationID, "admin_address", config.AdminAddress)
	s.publish(ctx, "instantiate", resp)
	return resp, nil
}

func (s *contractService) Execute(ctx context.Context, msg ports.ExecuteMsg) (*ports.Response, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	invocationID := uuid.New()

	var (
		resp   *ports.Response
		action string
		err    error
	)
	switch {
	case msg.CreatePoll != nil:
		action = "create_poll"
		resp, err = s.createPoll(ctx, *msg.CreatePoll)
	case msg.Vote != nil:
		action = "vote"
		resp, err = s.vote(ctx, *msg.Vote)
	default:
		return nil, domain.ErrInvalidMessage
	}
	if err != nil {
		s.logger.Warn("execute failed", "invocation_id", invocationID, "action", action, "error", err)
		return nil, err
	}

	resp.InvocationID = invocationID
	s.logger.Info("execute succeeded", "invocation_id", invocationID, "action", action, "attributes", resp.Attributes)
	s.publish(ctx, action, resp)
	return resp, nil
}

func (s *contractService) createPoll(ctx context.Context, msg ports.CreatePollMsg) (*ports.Response, error) {
	var pollID uint64
	err := s.store.Atomically(ctx, func(kv ports.KeyValueStore) error {
		var err error
		pollID, err = s.engine.CreatePoll(ctx, kv, msg.Question)
		return err
	})
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(ports.CreatePollData{PollID: pollID})
	if err != nil {
		return nil, fmt.Errorf("failed to encode response data: %w", err)
	}

	resp := ports.NewResponse().
		AddAttribute("action", "create_poll").
		AddAttribute("poll_id", strconv.FormatUint(pollID, 10))
	resp.Data = data
	return resp, nil
}

func (s *contractService) vote(ctx context.Context, msg ports.VoteMsg) (*ports.Response, error) {
	err := s.store.Atomically(ctx, func(kv ports.KeyValueStore) error {
		return s.engine.CastVote(ctx, kv, msg.PollID, msg.VoteType)
	})
	if err != nil {
		return nil, err
	}

	return ports.NewResponse().
		AddAttribute("action", "vote").
		AddAttribute("poll_id", strconv.FormatUint(msg.PollID, 10)), nil
}

func (s *contractService) Query(ctx context.Context, msg ports.QueryMsg) (json.RawMessage, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	var (
		result any
		err    error
	)
	switch {
	case msg.GetTally != nil:
		result, err = s.getTally(ctx, msg.GetTally.PollID)
	case msg.GetPoll != nil:
		result, err = s.getPoll(ctx, msg.GetPoll.PollID)
	case msg.GetConfig != nil:
		result, err = s.engine.GetConfig(ctx, s.store)
	default:
		return nil, domain.ErrInvalidMessage
	}
	if err != nil {
		return nil, err
	}

	b, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode query result: %w", err)
	}
	return b, nil
}

func (s *contractService) getTally(ctx context.Context, pollID uint64) (ports.TallyResponse, error) {
	tally, err := s.engine.GetTally(ctx, s.store, pollID)
	if err != nil {
		return ports.TallyResponse{}, err
	}
	return ports.TallyResponse{YesVotes: tally.YesVotes, NoVotes: tally.NoVotes}, nil
}

func (s *contractService) getPoll(ctx context.Context, pollID uint64) (ports.PollResponse, error) {
	poll, err := s.engine.GetPoll(ctx, s.store, pollID)
	if err != nil {
		return ports.PollResponse{}, err
	}
	return ports.PollResponse{
		PollID:   pollID,
		Question: poll.Question,
		YesVotes: poll.YesVotes,
		NoVotes:  poll.NoVotes,
	}, nil
}

// publish runs after commit; a failure here cannot undo the command.
func (s *contractService) publish(ctx context.Context, action string, resp *ports.Response) {
	if s.publisher == nil {
		return
	}

	event := ports.Event{
		InvocationID: resp.InvocationID,
		Action:       action,
		Attributes:   resp.Attributes,
		OccurredAt:   s.clock().UTC(),
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
	defer cancel()

	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish event", "invocation_id", resp.InvocationID, "action", action, "error", err)
	}
}
