package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/vncsmyrnk/tally/internal/core/ports"
)

const defaultSummaryConcurrency = 8

type summaryService struct {
	store       ports.KeyValueStore
	engine      ports.PollEngine
	concurrency int
}

func NewSummaryService(store ports.KeyValueStore, engine ports.PollEngine) ports.SummaryService {
	return &summaryService{
		store:       store,
		engine:      engine,
		concurrency: defaultSummaryConcurrency,
	}
}

// SummarizeAllPolls reads every poll ever created. Ids are dense, so the id
// counter alone tells which keys exist. At most s.concurrency goroutines run
// at once and the first error cancels the rest.
func (s *summaryService) SummarizeAllPolls(ctx context.Context) ([]ports.PollResponse, error) {
	count, err := s.engine.PollCount(ctx, s.store)
	if err != nil {
		return nil, fmt.Errorf("failed to read poll count: %w", err)
	}

	summaries := make([]ports.PollResponse, count)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for id := uint64(0); id < count; id++ {
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			poll, err := s.engine.GetPoll(gctx, s.store, id)
			if err != nil {
				return fmt.Errorf("failed to summarize poll %d: %w", id, err)
			}
			summaries[id] = ports.PollResponse{
				PollID:   id,
				Question: poll.Question,
				YesVotes: poll.YesVotes,
				NoVotes:  poll.NoVotes,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return summaries, nil
}
