package throttle

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisLimiter(t *testing.T) {
	s := miniredis.RunT(t)
	l, err := NewRedisLimiter("redis://"+s.Addr(), 2, time.Minute)
	require.NoError(t, err)
	defer l.Close()
	ctx := context.Background()

	for i, want := range []bool{true, true, false} {
		ok, err := l.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.Equal(t, want, ok, "attempt %d", i+1)
	}

	ok, err := l.Allow(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, ok, "keys are independent")

	assert.Equal(t, time.Minute, s.TTL("comment-throttle:10.0.0.1"))

	s.FastForward(2 * time.Minute)
	ok, err = l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, ok, "window expired")
}

func TestRedisLimiterRepairsMissingExpiry(t *testing.T) {
	s := miniredis.RunT(t)
	l, err := NewRedisLimiter("redis://"+s.Addr(), 5, time.Minute)
	require.NoError(t, err)
	defer l.Close()

	// A counter left behind without a TTL.
	require.NoError(t, s.Set("comment-throttle:10.0.0.3", "9"))
	assert.Zero(t, s.TTL("comment-throttle:10.0.0.3"))

	ok, err := l.Allow(context.Background(), "10.0.0.3")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, time.Minute, s.TTL("comment-throttle:10.0.0.3"))

	s.FastForward(2 * time.Minute)
	ok, err = l.Allow(context.Background(), "10.0.0.3")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLimiterBadURL(t *testing.T) {
	_, err := NewRedisLimiter("not a url", 1, time.Second)
	assert.Error(t, err)
}

func TestMemoryLimiter(t *testing.T) {
	l := NewMemoryLimiter(1, time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	ok, _ := l.Allow(ctx, "a")
	assert.True(t, ok)
	ok, _ = l.Allow(ctx, "a")
	assert.False(t, ok)

	now = now.Add(61 * time.Second)
	ok, _ = l.Allow(ctx, "a")
	assert.True(t, ok)
}
