package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is the audit record of a committed command.
type Event struct {
	InvocationID uuid.UUID  `json:"invocation_id"`
	Action       string     `json:"action"`
	Attributes   Attributes `json:"attributes"`
	OccurredAt   time.Time  `json:"occurred_at"`
}

type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}
