package lock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRedis keeps string keys in memory and evaluates the release script's compare-and-delete.
type fakeRedis struct {
	mu     sync.Mutex
	keys   map[string]string
	setErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{keys: map[string]string{}}
}

func (f *fakeRedis) SetNX(_ context.Context, key string, value interface{}, _ time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return redis.NewBoolResult(false, f.setErr)
	}
	if _, ok := f.keys[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.keys[key] = value.(string)
	return redis.NewBoolResult(true, nil)
}

// expire drops the key as if its TTL had passed.
func (f *fakeRedis) expire(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.keys, key)
}

func (f *fakeRedis) compareAndDelete(keys []string, args []interface{}) *redis.Cmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.keys[keys[0]] == args[0].(string) {
		delete(f.keys, keys[0])
		return redis.NewCmdResult(int64(1), nil)
	}
	return redis.NewCmdResult(int64(0), nil)
}

func (f *fakeRedis) Eval(_ context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	return f.compareAndDelete(keys, args)
}

func (f *fakeRedis) EvalSha(_ context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	return f.compareAndDelete(keys, args)
}

func (f *fakeRedis) EvalRO(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	return f.Eval(ctx, script, keys, args...)
}

func (f *fakeRedis) EvalShaRO(ctx context.Context, sha1 string, keys []string, args ...interface{}) *redis.Cmd {
	return f.EvalSha(ctx, sha1, keys, args...)
}

func (f *fakeRedis) ScriptExists(_ context.Context, hashes ...string) *redis.BoolSliceCmd {
	return redis.NewBoolSliceResult(make([]bool, len(hashes)), nil)
}

func (f *fakeRedis) ScriptLoad(_ context.Context, _ string) *redis.StringCmd {
	return redis.NewStringResult("", nil)
}

func TestRedisLockerExcludesSecondHolder(t *testing.T) {
	ctx := context.Background()
	locker := NewRedisLocker(newFakeRedis())

	lease, err := locker.Acquire(ctx, "sweep", time.Minute)
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, "sweep", time.Minute)
	assert.ErrorIs(t, err, ErrNotAcquired)

	other, err := locker.Acquire(ctx, "other-key", time.Minute)
	require.NoError(t, err)
	require.NoError(t, other.Release(ctx))

	require.NoError(t, lease.Release(ctx))
	again, err := locker.Acquire(ctx, "sweep", time.Minute)
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}

func TestRedisLeaseReleaseKeepsNewerHolder(t *testing.T) {
	ctx := context.Background()
	client := newFakeRedis()
	locker := NewRedisLocker(client)

	stale, err := locker.Acquire(ctx, "sweep", time.Minute)
	require.NoError(t, err)
	client.expire("sweep")

	current, err := locker.Acquire(ctx, "sweep", time.Minute)
	require.NoError(t, err)

	require.NoError(t, stale.Release(ctx))
	_, err = locker.Acquire(ctx, "sweep", time.Minute)
	assert.ErrorIs(t, err, ErrNotAcquired)

	require.NoError(t, current.Release(ctx))
	_, err = locker.Acquire(ctx, "sweep", time.Minute)
	assert.NoError(t, err)
}

func TestRedisLockerReportsClientErrors(t *testing.T) {
	client := newFakeRedis()
	client.setErr = errors.New("connection refused")

	_, err := NewRedisLocker(client).Acquire(context.Background(), "sweep", time.Minute)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotAcquired)
	assert.ErrorIs(t, err, client.setErr)
}
