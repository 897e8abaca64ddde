// Package cache holds short-lived derived values. Entries are only an
// optimisation; callers recompute on a miss or on any cache error.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/aawaaz/complaint-server/internal/models"
	"github.com/redis/go-redis/v9"
)

// UnreadTTL bounds how stale a cached unread count can get
const UnreadTTL = 5 * time.Minute

// Unread caches per-reader unread counts of a chat. Counts of one room live
// under one key, so a new message drops them all at once.
type Unread interface {
	Get(ctx context.Context, complaintID string, chatType models.ChatType, readerID string) (int, bool, error)
	Set(ctx context.Context, complaintID string, chatType models.ChatType, readerID string, n int) error
	Invalidate(ctx context.Context, complaintID string, chatType models.ChatType) error
}

func roomKey(complaintID string, chatType models.ChatType) string {
	return fmt.Sprintf("unread:%s:%s", complaintID, chatType)
}

// RedisUnread keeps one hash per room, reader id to count, with a TTL
type RedisUnread struct {
	client *redis.Client
}

// NewRedisUnread wraps a client
func NewRedisUnread(client *redis.Client) *RedisUnread {
	return &RedisUnread{client: client}
}

// Get returns the cached count and whether it was present
func (r *RedisUnread) Get(ctx context.Context, complaintID string, chatType models.ChatType, readerID string) (int, bool, error) {
	val, err := r.client.HGet(ctx, roomKey(complaintID, chatType), readerID).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get unread: %w", err)
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, false, nil
	}
	return n, true, nil
}

// Set stores n and pushes the room's expiry to UnreadTTL
func (r *RedisUnread) Set(ctx context.Context, complaintID string, chatType models.ChatType, readerID string, n int) error {
	key := roomKey(complaintID, chatType)
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key, readerID, n)
	pipe.Expire(ctx, key, UnreadTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("set unread: %w", err)
	}
	return nil
}

// Invalidate drops every reader's count for the room
func (r *RedisUnread) Invalidate(ctx context.Context, complaintID string, chatType models.ChatType) error {
	if err := r.client.Del(ctx, roomKey(complaintID, chatType)).Err(); err != nil {
		return fmt.Errorf("invalidate unread: %w", err)
	}
	return nil
}

type memoryEntry struct {
	n       int
	expires time.Time
}

// MemoryUnread is the process-local variant
type MemoryUnread struct {
	mu    sync.Mutex
	rooms map[string]map[string]memoryEntry
	now   func() time.Time
}

// NewMemoryUnread creates an empty cache
func NewMemoryUnread() *MemoryUnread {
	return &MemoryUnread{rooms: make(map[string]map[string]memoryEntry), now: time.Now}
}

// Get returns the cached count unless expired
func (m *MemoryUnread) Get(_ context.Context, complaintID string, chatType models.ChatType, readerID string) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room := m.rooms[roomKey(complaintID, chatType)]
	e, ok := room[readerID]
	if !ok {
		return 0, false, nil
	}
	if m.now().After(e.expires) {
		delete(room, readerID)
		return 0, false, nil
	}
	return e.n, true, nil
}

// Set stores n for UnreadTTL
func (m *MemoryUnread) Set(_ context.Context, complaintID string, chatType models.ChatType, readerID string, n int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := roomKey(complaintID, chatType)
	room, ok := m.rooms[key]
	if !ok {
		room = make(map[string]memoryEntry)
		m.rooms[key] = room
	}
	room[readerID] = memoryEntry{n: n, expires: m.now().Add(UnreadTTL)}
	return nil
}

// Invalidate drops every reader's count for the room
func (m *MemoryUnread) Invalidate(_ context.Context, complaintID string, chatType models.ChatType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rooms, roomKey(complaintID, chatType))
	return nil
}
