package domain

import (
	"encoding/json"
	"fmt"
)

type VoteChoice string

const (
	VoteYes VoteChoice = "yes"
	VoteNo  VoteChoice = "no"
)

func ParseVoteChoice(s string) (VoteChoice, error) {
	switch VoteChoice(s) {
	case VoteYes, VoteNo:
		return VoteChoice(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidVoteChoice, s)
}

func (c VoteChoice) Valid() bool {
	return c == VoteYes || c == VoteNo
}

func (c *VoteChoice) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidVoteChoice, string(b))
	}
	parsed, err := ParseVoteChoice(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
