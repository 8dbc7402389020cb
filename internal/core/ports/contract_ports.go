package ports

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/tally/internal/core/domain"
)

type InstantiateMsg struct {
	// AdminAddress is validated and stored at initialization. Nothing checks
	// callers against it yet.
	AdminAddress string `json:"admin_address"`
}

// ExecuteMsg is a tagged union: exactly one field must be set.
type ExecuteMsg struct {
	CreatePoll *CreatePollMsg `json:"create_poll,omitempty" jsonschema:"oneof_required=create_poll"`
	Vote       *VoteMsg       `json:"vote,omitempty" jsonschema:"oneof_required=vote"`
}

type CreatePollMsg struct {
	Question string `json:"question"`
}

type VoteMsg struct {
	PollID   uint64            `json:"poll_id"`
	VoteType domain.VoteChoice `json:"vote_type" jsonschema:"enum=yes,enum=no"`
}

func (m ExecuteMsg) Validate() error {
	set := 0
	if m.CreatePoll != nil {
		set++
	}
	if m.Vote != nil {
		set++
		if !m.Vote.VoteType.Valid() {
			return fmt.Errorf("%w: %q", domain.ErrInvalidVoteChoice, m.Vote.VoteType)
		}
	}
	if set != 1 {
		return fmt.Errorf("%w: execute message must set exactly one variant, got %d", domain.ErrInvalidMessage, set)
	}
	return nil
}

// QueryMsg is a tagged union: exactly one field must be set.
type QueryMsg struct {
	GetTally  *GetTallyMsg  `json:"get_tally,omitempty" jsonschema:"oneof_required=get_tally"`
	GetPoll   *GetPollMsg   `json:"get_poll,omitempty" jsonschema:"oneof_required=get_poll"`
	GetConfig *GetConfigMsg `json:"get_config,omitempty" jsonschema:"oneof_required=get_config"`
}

type GetTallyMsg struct {
	PollID uint64 `json:"poll_id"`
}

type GetPollMsg struct {
	PollID uint64 `json:"poll_id"`
}

type GetConfigMsg struct{}

func (m QueryMsg) Validate() error {
	set := 0
	for _, present := range []bool{m.GetTally != nil, m.GetPoll != nil, m.GetConfig != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("%w: query message must set exactly one variant, got %d", domain.ErrInvalidMessage, set)
	}
	return nil
}

type TallyResponse struct {
	YesVotes uint64 `json:"yes_votes"`
	NoVotes  uint64 `json:"no_votes"`
}

type PollResponse struct {
	PollID   uint64 `json:"poll_id"`
	Question string `json:"question"`
	YesVotes uint64 `json:"yes_votes"`
	NoVotes  uint64 `json:"no_votes"`
}

type CreatePollData struct {
	PollID uint64 `json:"poll_id"`
}

type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type Attributes []Attribute

// Get returns the value of the first attribute named key.
func (a Attributes) Get(key string) (string, bool) {
	for _, attr := range a {
		if attr.Key == key {
			return attr.Value, true
		}
	}
	return "", false
}

// Response is returned by every successful command. Attributes are advisory
// and never read back by the contract.
type Response struct {
	InvocationID uuid.UUID       `json:"invocation_id"`
	Attributes   Attributes      `json:"attributes"`
	Data         json.RawMessage `json:"data,omitempty"`
}

func NewResponse() *Response {
	return &Response{Attributes: Attributes{}}
}

func (r *Response) AddAttribute(key, value string) *Response {
	r.Attributes = append(r.Attributes, Attribute{Key: key, Value: value})
	return r
}

// PollEngine holds the state transitions. Every call receives the store it
// operates on; the engine keeps no state of its own.
type PollEngine interface {
	Initialize(ctx context.Context, kv KeyValueStore, adminAddress string) (domain.Config, error)
	CreatePoll(ctx context.Context, kv KeyValueStore, question string) (uint64, error)
	CastVote(ctx context.Context, kv KeyValueStore, pollID uint64, choice domain.VoteChoice) error
	GetTally(ctx context.Context, kv KeyValueStore, pollID uint64) (domain.Tally, error)
	GetPoll(ctx context.Context, kv KeyValueStore, pollID uint64) (domain.Poll, error)
	GetConfig(ctx context.Context, kv KeyValueStore) (domain.Config, error)
	PollCount(ctx context.Context, kv KeyValueStore) (uint64, error)
}

// Contract is the entry point a host calls.
type Contract interface {
	Instantiate(ctx context.Context, msg InstantiateMsg) (*Response, error)
	Execute(ctx context.Context, msg ExecuteMsg) (*Response, error)
	Query(ctx context.Context, msg QueryMsg) (json.RawMessage, error)
}

type SummaryService interface {
	SummarizeAllPolls(ctx context.Context) ([]PollResponse, error)
}
