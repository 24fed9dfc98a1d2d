package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBroker() *RedisBroker {
	logger := zerolog.Nop()
	return &RedisBroker{retryDelay: time.Millisecond, logger: &logger}
}

type step struct {
	payload string
	err     error
}

func scripted(steps ...step) (func(context.Context) (*redis.Message, error), *int) {
	calls := 0
	return func(ctx context.Context) (*redis.Message, error) {
		i := calls
		calls++
		if i >= len(steps) {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		if steps[i].err != nil {
			return nil, steps[i].err
		}
		return &redis.Message{Channel: "events", Payload: steps[i].payload}, nil
	}, &calls
}

func TestPumpRetriesTransientErrorsUntilClosed(t *testing.T) {
	receive, calls := scripted(
		step{err: errors.New("i/o timeout")},
		step{payload: "first"},
		step{err: errors.New("connection reset")},
		step{payload: "second"},
		step{err: redis.ErrClosed},
	)
	out := make(chan []byte, 10)

	testBroker().pump(context.Background(), "events", receive, out)

	assert.Equal(t, 5, *calls)
	require.Len(t, out, 2)
	assert.Equal(t, "first", string(<-out))
	assert.Equal(t, "second", string(<-out))
}

func TestPumpStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	receive, _ := scripted(step{payload: "only"})
	out := make(chan []byte)

	done := make(chan struct{})
	go func() {
		testBroker().pump(ctx, "events", receive, out)
		close(done)
	}()

	assert.Equal(t, "only", string(<-out))
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pump did not stop after cancel")
	}
}

func TestPumpStopsWhileBlockedOnSlowReader(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	receive, _ := scripted(step{payload: "unread"})

	done := make(chan struct{})
	go func() {
		testBroker().pump(ctx, "events", receive, make(chan []byte))
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pump did not stop after cancel")
	}
}
