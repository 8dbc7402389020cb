package domain

// Poll is a yes/no question and its running tally. The question never
// changes after creation and both counters only grow.
type Poll struct {
	Question string `json:"question"`
	YesVotes uint64 `json:"yes_votes"`
	NoVotes  uint64 `json:"no_votes"`
}

func NewPoll(question string) Poll {
	return Poll{Question: question}
}

// Tally is the pair of vote counters of a poll.
type Tally struct {
	YesVotes uint64 `json:"yes_votes"`
	NoVotes  uint64 `json:"no_votes"`
}

func (p Poll) Tally() Tally {
	return Tally{YesVotes: p.YesVotes, NoVotes: p.NoVotes}
}

// WithVote returns a copy of p with the counter for choice incremented by one.
func (p Poll) WithVote(choice VoteChoice) (Poll, error) {
	var err error
	switch choice {
	case VoteYes:
		p.YesVotes, err = CheckedAdd(p.YesVotes, 1)
	case VoteNo:
		p.NoVotes, err = CheckedAdd(p.NoVotes, 1)
	default:
		return Poll{}, ErrInvalidVoteChoice
	}
	if err != nil {
		return Poll{}, err
	}
	return p, nil
}
