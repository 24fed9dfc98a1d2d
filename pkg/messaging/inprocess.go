package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// ErrSubscriberFull is returned when a subscriber's buffer could not take a message.
var ErrSubscriberFull = errors.New("subscriber buffer full")

const inProcessBuffer = 100

// InProcessBroker fans messages out to subscribers of the same process.
type InProcessBroker struct {
	mu     sync.RWMutex
	subs   map[string][]chan []byte
	closed bool
}

func NewInProcessBroker() *InProcessBroker {
	return &InProcessBroker{subs: make(map[string][]chan []byte)}
}

func (b *InProcessBroker) Publish(ctx context.Context, channel string, message interface{}) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return fmt.Errorf("broker closed")
	}

	// Sends never wait, so a slow subscriber cannot stall the publisher or hold the lock.
	dropped := 0
	for _, ch := range b.subs[channel] {
		select {
		case ch <- payload:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		return fmt.Errorf("dropped message for %d subscriber(s) on %s: %w", dropped, channel, ErrSubscriberFull)
	}
	return nil
}

func (b *InProcessBroker) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	ch := make(chan []byte, inProcessBuffer)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, fmt.Errorf("broker closed")
	}
	b.subs[channel] = append(b.subs[channel], ch)
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.unsubscribe(channel, ch)
	}()
	return ch, nil
}

func (b *InProcessBroker) unsubscribe(channel string, ch chan []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[channel]
	for i, c := range subs {
		if c == ch {
			b.subs[channel] = append(subs[:i], subs[i+1:]...)
			close(ch)
			return
		}
	}
}

func (b *InProcessBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	for channel, subs := range b.subs {
		for _, ch := range subs {
			close(ch)
		}
		delete(b.subs, channel)
	}
	return nil
}
