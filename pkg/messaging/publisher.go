package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventPublisher wraps payloads in a Message and publishes them on one channel.
type EventPublisher struct {
	broker  Broker
	channel string
	now     func() time.Time
}

func NewEventPublisher(broker Broker, channel string) *EventPublisher {
	return &EventPublisher{
		broker:  broker,
		channel: channel,
		now:     time.Now,
	}
}

func (p *EventPublisher) Publish(ctx context.Context, eventType string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}

	msg := Message{
		ID:         uuid.New().String(),
		Type:       eventType,
		OccurredAt: p.now().UTC(),
		Payload:    raw,
	}
	if err := p.broker.Publish(ctx, p.channel, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", eventType, err)
	}
	return nil
}

// Handler processes one decoded message.
type Handler func(ctx context.Context, msg Message) error

// Consume subscribes to channel and feeds every message to handle until ctx ends.
// Messages that fail to decode or handle are reported to onError and skipped.
func Consume(ctx context.Context, broker Broker, channel string, handle Handler, onError func(error)) error {
	msgs, err := broker.Subscribe(ctx, channel)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case data, ok := <-msgs:
			if !ok {
				return nil
			}
			var msg Message
			if err := json.Unmarshal(data, &msg); err != nil {
				onError(fmt.Errorf("failed to decode message: %w", err))
				continue
			}
			if err := handle(ctx, msg); err != nil {
				onError(fmt.Errorf("failed to handle %s: %w", msg.Type, err))
			}
		}
	}
}
