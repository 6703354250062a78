package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warungkas/warungkas/internal/kv"
)

func testLimiter(t *testing.T, cfg Config) (*Limiter, *time.Time) {
	t.Helper()

	current := time.Unix(1700000000, 0)
	clock := func() time.Time { return current }

	store := kv.NewMemoryStoreWithClock(clock)
	l := New(store, cfg)
	l.now = clock

	return l, &current
}

func TestCheckAndConsume_WindowBoundary(t *testing.T) {
	ctx := context.Background()
	l, current := testLimiter(t, Config{Window: time.Minute, MaxPerWindow: 15})

	// Exactly maxPerWindow calls are allowed.
	for i := 1; i <= 15; i++ {
		res := l.CheckAndConsume(ctx, "chat1")
		assert.True(t, res.Allowed, "call %d should be allowed", i)
		assert.Equal(t, 15-i, res.Remaining)
	}

	// The 16th call in the same window is rejected without consuming.
	res := l.CheckAndConsume(ctx, "chat1")
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.Greater(t, res.RetryAfter, time.Duration(0))

	// The first call of the next window is allowed again.
	*current = current.Add(time.Minute)
	res = l.CheckAndConsume(ctx, "chat1")
	assert.True(t, res.Allowed)
	assert.Equal(t, 14, res.Remaining)
}

func TestCheckAndConsume_IndependentConversations(t *testing.T) {
	ctx := context.Background()
	l, _ := testLimiter(t, Config{Window: time.Minute, MaxPerWindow: 2})

	l.CheckAndConsume(ctx, "chat1")
	l.CheckAndConsume(ctx, "chat1")
	assert.False(t, l.CheckAndConsume(ctx, "chat1").Allowed)

	assert.True(t, l.CheckAndConsume(ctx, "chat2").Allowed, "other conversations are unaffected")
}

func TestCheckAndConsume_RetryAfterCeiling(t *testing.T) {
	ctx := context.Background()
	l, current := testLimiter(t, Config{Window: time.Minute, MaxPerWindow: 1})

	l.CheckAndConsume(ctx, "chat1")

	// 10.5 seconds into the window, 49.5s remain; retry-after rounds up.
	*current = current.Add(10*time.Second + 500*time.Millisecond)
	res := l.CheckAndConsume(ctx, "chat1")
	require.False(t, res.Allowed)
	assert.Equal(t, 50*time.Second, res.RetryAfter)
}

func TestStatus_DoesNotConsume(t *testing.T) {
	ctx := context.Background()
	l, _ := testLimiter(t, Config{Window: time.Minute, MaxPerWindow: 2})

	for i := 0; i < 5; i++ {
		res := l.Status(ctx, "chat1")
		assert.True(t, res.Allowed)
		assert.Equal(t, 2, res.Remaining)
	}

	l.CheckAndConsume(ctx, "chat1")
	assert.Equal(t, 1, l.Status(ctx, "chat1").Remaining)
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	l, _ := testLimiter(t, Config{Window: time.Minute, MaxPerWindow: 1})

	l.CheckAndConsume(ctx, "chat1")
	require.False(t, l.CheckAndConsume(ctx, "chat1").Allowed)

	require.NoError(t, l.Reset(ctx, "chat1"))
	assert.True(t, l.CheckAndConsume(ctx, "chat1").Allowed)
}

func TestResetAll(t *testing.T) {
	ctx := context.Background()
	l, _ := testLimiter(t, Config{Window: time.Minute, MaxPerWindow: 1})

	l.CheckAndConsume(ctx, "chat1")
	l.CheckAndConsume(ctx, "chat2")

	require.NoError(t, l.ResetAll(ctx))
	assert.True(t, l.CheckAndConsume(ctx, "chat1").Allowed)
	assert.True(t, l.CheckAndConsume(ctx, "chat2").Allowed)
}

func TestCollectStats(t *testing.T) {
	ctx := context.Background()
	l, _ := testLimiter(t, Config{Window: time.Minute, MaxPerWindow: 2})

	l.CheckAndConsume(ctx, "chat1") // 1 of 2
	l.CheckAndConsume(ctx, "chat2") // saturated
	l.CheckAndConsume(ctx, "chat2")

	stats, err := l.CollectStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Tracked)
	assert.Equal(t, 1, stats.Saturated)
}

// failingStore simulates an unreachable shared store.
type failingStore struct{}

var errStoreDown = errors.New("store down")

func (failingStore) Get(context.Context, string) (string, bool, error) {
	return "", false, errStoreDown
}
func (failingStore) Set(context.Context, string, string, time.Duration) error { return errStoreDown }
func (failingStore) Delete(context.Context, ...string) error                  { return errStoreDown }
func (failingStore) Exists(context.Context, string) (bool, error)             { return false, errStoreDown }
func (failingStore) Incr(context.Context, string) (int64, error)              { return 0, errStoreDown }
func (failingStore) Expire(context.Context, string, time.Duration) error      { return errStoreDown }
func (failingStore) SetNX(context.Context, string, string, time.Duration) (bool, error) {
	return false, errStoreDown
}
func (failingStore) Keys(context.Context, string) ([]string, error) { return nil, errStoreDown }
func (failingStore) Close() error                                   { return nil }

func TestCheckAndConsume_FailsOpenOnStoreError(t *testing.T) {
	ctx := context.Background()
	l := New(failingStore{}, Config{Window: time.Minute, MaxPerWindow: 15})

	res := l.CheckAndConsume(ctx, "chat1")
	assert.True(t, res.Allowed, "store outage must not block messages")
	assert.Equal(t, 15, res.Remaining)
}
