package domain

import "errors"

var (
	ErrPollNotFound       = errors.New("poll not found")
	ErrInvalidAddress     = errors.New("invalid address")
	ErrArithmeticOverflow = errors.New("arithmetic overflow")
	ErrNotInitialized     = errors.New("contract not initialized")
	ErrAlreadyInitialized = errors.New("contract already initialized")
	ErrInvalidMessage     = errors.New("invalid message")
	ErrInvalidVoteChoice  = errors.New("invalid vote choice")
)
