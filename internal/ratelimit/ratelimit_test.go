package ratelimit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func TestMemorySlidingWindow(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	l := NewMemory(6, 10*time.Second)
	l.now = clock.now
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		ok, err := l.Allow(ctx, "u1:POST:/api/chat/x")
		require.NoError(t, err)
		assert.True(t, ok, "request %d", i)
	}
	ok, _ := l.Allow(ctx, "u1:POST:/api/chat/x")
	assert.False(t, ok)

	ok, _ = l.Allow(ctx, "u2:POST:/api/chat/x")
	assert.True(t, ok, "keys are independent")

	clock.t = clock.t.Add(11 * time.Second)
	ok, _ = l.Allow(ctx, "u1:POST:/api/chat/x")
	assert.True(t, ok, "window slid")
}

func TestMemoryPrunesIdleKeys(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	l := NewMemory(1, time.Second)
	l.now = clock.now
	ctx := context.Background()

	for i := 0; i <= maxTrackedKeys; i++ {
		_, _ = l.Allow(ctx, fmt.Sprintf("k%d", i))
	}
	clock.t = clock.t.Add(2 * time.Second)
	_, _ = l.Allow(ctx, "fresh")

	assert.Len(t, l.hits, 1)
}

func TestRedisSlidingWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	l := NewRedis(client, "rl:", 3, time.Minute)
	l.now = clock.now
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := l.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := client.ZCard(ctx, "rl:1.2.3.4").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(3), n, "denied request is not kept")

	clock.t = clock.t.Add(61 * time.Second)
	ok, err = l.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, ok)
}
