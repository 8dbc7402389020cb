package kafka

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/vncsmyrnk/tally/internal/core/ports"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// DefaultPublishTimeout bounds a single Publish call, retries included.
const DefaultPublishTimeout = 2 * time.Second

// Publisher writes audit events to a Kafka topic. Events about a poll are
// keyed by its id so they land on one partition in order.
type Publisher struct {
	writer  messageWriter
	timeout time.Duration
}

var _ ports.EventPublisher = (*Publisher)(nil)

// NewPublisher writes every event as its own batch. Publish is called once
// per committed command, so waiting for a batch to fill would only add
// latency to the request.
func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
			BatchSize:              1,
			BatchTimeout:           5 * time.Millisecond,
			MaxAttempts:            3,
			WriteTimeout:           time.Second,
		},
		timeout: DefaultPublishTimeout,
	}
}

func (p *Publisher) Publish(ctx context.Context, event ports.Event) error {
	msg, err := newMessage(event)
	if err != nil {
		return err
	}

	timeout := p.timeout
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

func newMessage(event ports.Event) (kafka.Message, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to encode event: %w", err)
	}

	return kafka.Message{
		Key:   messageKey(event),
		Value: value,
		Headers: []kafka.Header{
			{Key: "action", Value: []byte(event.Action)},
			{Key: "invocation_id", Value: []byte(event.InvocationID.String())},
		},
		Time: event.OccurredAt,
	}, nil
}

func messageKey(event ports.Event) []byte {
	raw, ok := event.Attributes.Get("poll_id")
	if !ok {
		return []byte(event.Action)
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return []byte(event.Action)
	}
	return binary.BigEndian.AppendUint64(nil, id)
}
