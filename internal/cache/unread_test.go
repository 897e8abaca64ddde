package cache

import (
	"context"
	"testing"
	"time"

	"github.com/aawaaz/complaint-server/internal/models"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseUnread(t *testing.T, c Unread) {
	t.Helper()
	ctx := context.Background()
	chatType := models.ChatUserDepartment

	_, ok, err := c.Get(ctx, "c1", chatType, "u1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "c1", chatType, "u1", 3))
	require.NoError(t, c.Set(ctx, "c1", chatType, "d1", 1))

	n, ok, err := c.Get(ctx, "c1", chatType, "u1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, n)

	_, ok, _ = c.Get(ctx, "c1", models.ChatAdminDepartment, "u1")
	assert.False(t, ok, "chat types are separate")

	require.NoError(t, c.Set(ctx, "c1", models.ChatAdminDepartment, "a1", 4))

	require.NoError(t, c.Invalidate(ctx, "c1", chatType))
	_, ok, _ = c.Get(ctx, "c1", chatType, "u1")
	assert.False(t, ok)
	_, ok, _ = c.Get(ctx, "c1", chatType, "d1")
	assert.False(t, ok)

	n, ok, _ = c.Get(ctx, "c1", models.ChatAdminDepartment, "a1")
	assert.True(t, ok, "other rooms keep their counts")
	assert.Equal(t, 4, n)

	require.NoError(t, c.Invalidate(ctx, "missing", chatType))
}

func TestRedisUnread(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	exerciseUnread(t, NewRedisUnread(client))

	c := NewRedisUnread(client)
	require.NoError(t, c.Set(context.Background(), "c2", models.ChatUserDepartment, "u", 2))
	mr.FastForward(UnreadTTL + time.Second)
	_, ok, err := c.Get(context.Background(), "c2", models.ChatUserDepartment, "u")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryUnread(t *testing.T) {
	exerciseUnread(t, NewMemoryUnread())

	c := NewMemoryUnread()
	base := time.Now()
	c.now = func() time.Time { return base }
	require.NoError(t, c.Set(context.Background(), "c2", models.ChatUserDepartment, "u", 2))
	c.now = func() time.Time { return base.Add(UnreadTTL + time.Second) }
	_, ok, _ := c.Get(context.Background(), "c2", models.ChatUserDepartment, "u")
	assert.False(t, ok)
}
