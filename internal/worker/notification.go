package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/vetclinic-api/pkg/messaging"
)

type NotificationWorkerConfig struct {
	Channel       string
	RetryAttempts int
	RetryDelay    time.Duration
}

// NotificationWorker feeds broker messages to a handler, retrying each a bounded number of times.
type NotificationWorker struct {
	broker messaging.Broker
	handle messaging.Handler
	config NotificationWorkerConfig
}

func NewNotificationWorker(broker messaging.Broker, handle messaging.Handler, config NotificationWorkerConfig) *NotificationWorker {
	if config.RetryAttempts <= 0 {
		config.RetryAttempts = 3
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = time.Second
	}
	return &NotificationWorker{
		broker: broker,
		handle: handle,
		config: config,
	}
}

// Start blocks until ctx ends or the subscription closes.
func (w *NotificationWorker) Start(ctx context.Context) error {
	log.Info().Str("channel", w.config.Channel).Msg("starting notification worker")

	err := messaging.Consume(ctx, w.broker, w.config.Channel, w.process, func(err error) {
		log.Error().Err(err).Msg("notification dropped")
	})
	if err != nil {
		return fmt.Errorf("notification worker: %w", err)
	}
	log.Info().Msg("shutting down notification worker")
	return nil
}

func (w *NotificationWorker) process(ctx context.Context, msg messaging.Message) error {
	return retry(ctx, w.config.RetryAttempts, w.config.RetryDelay, func() error {
		return w.handle(ctx, msg)
	})
}

func retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return err
}
