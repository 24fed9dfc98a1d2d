package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/vetclinic-api/pkg/circuitbreaker"
	"github.com/jwalitptl/vetclinic-api/pkg/messaging"
)

// Broker publishes to fanout exchanges named after the channel.
// Each subscriber gets its own exclusive queue bound to the exchange.
type Broker struct {
	conn           *amqp.Connection
	ch             *amqp.Channel
	cb             *circuitbreaker.CircuitBreaker
	publishTimeout time.Duration
	logger         *zerolog.Logger
}

// ErrNacked is returned when the server refuses a published message.
var ErrNacked = errors.New("publish nacked by broker")

type Config struct {
	URL string
	// PublishTimeout bounds a publish including the wait for the server's confirm. Defaults to 5s.
	PublishTimeout time.Duration
}

func NewBroker(config Config, logger *zerolog.Logger) (messaging.Broker, error) {
	conn, err := amqp.Dial(config.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable publisher confirms: %w", err)
	}

	timeout := config.PublishTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Broker{
		conn:           conn,
		ch:             ch,
		publishTimeout: timeout,
		cb: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "rabbitmq-broker",
			MaxRequests: 1,
			Interval:    10 * time.Second,
			Timeout:     5 * time.Second,
		}),
		logger: logger,
	}, nil
}

func (b *Broker) declare(ch *amqp.Channel, exchange string) error {
	return ch.ExchangeDeclare(
		exchange,
		amqp.ExchangeFanout,
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	)
}

func (b *Broker) Publish(ctx context.Context, channel string, message interface{}) error {
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	return b.cb.Execute(func() error {
		ctx, cancel := context.WithTimeout(ctx, b.publishTimeout)
		defer cancel()

		if err := b.declare(b.ch, channel); err != nil {
			return fmt.Errorf("failed to declare exchange: %w", err)
		}
		confirm, err := b.ch.PublishWithDeferredConfirmWithContext(ctx,
			channel,
			"",
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				Timestamp:    time.Now(),
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("failed to publish to %s: %w", channel, err)
		}
		return awaitConfirm(ctx, confirm)
	})
}

type confirmation interface {
	WaitContext(ctx context.Context) (bool, error)
}

func awaitConfirm(ctx context.Context, c confirmation) error {
	acked, err := c.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("publish not confirmed: %w", err)
	}
	if !acked {
		return ErrNacked
	}
	return nil
}

func (b *Broker) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	ch, err := b.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := b.declare(ch, channel); err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	q, err := ch.QueueDeclare(
		"",    // server-named
		false, // durable
		true,  // auto-delete
		true,  // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, "", channel, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}

	deliveries, err := ch.ConsumeWithContext(ctx, q.Name, "", false, true, false, false, nil)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to consume: %w", err)
	}

	out := make(chan []byte, 100)
	go func() {
		defer func() {
			ch.Close()
			close(out)
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				select {
				case out <- d.Body:
					if err := d.Ack(false); err != nil {
						b.logger.Error().Err(err).Str("channel", channel).Msg("failed to ack delivery")
					}
				case <-ctx.Done():
					_ = d.Nack(false, true)
					return
				}
			}
		}
	}()
	return out, nil
}

func (b *Broker) Close() error {
	if err := b.ch.Close(); err != nil {
		b.logger.Warn().Err(err).Msg("failed to close channel")
	}
	return b.conn.Close()
}
