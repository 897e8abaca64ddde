// Package ratelimit provides sliding-window request limiters keyed by an
// arbitrary string, backed either by process memory or by Redis.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Limiter decides whether one more request for key fits in the window
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// maxTrackedKeys bounds the memory limiter before it prunes idle keys
const maxTrackedKeys = 1000

// Memory is a per-process sliding-window limiter
type Memory struct {
	mu     sync.Mutex
	window time.Duration
	max    int
	hits   map[string][]time.Time
	now    func() time.Time
}

// NewMemory allows max requests per key within window
func NewMemory(max int, window time.Duration) *Memory {
	return &Memory{
		window: window,
		max:    max,
		hits:   make(map[string][]time.Time),
		now:    time.Now,
	}
}

// Allow records the request and reports whether it is within the limit
func (m *Memory) Allow(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	cutoff := now.Add(-m.window)

	if len(m.hits) > maxTrackedKeys {
		m.pruneLocked(cutoff)
	}

	recent := trim(m.hits[key], cutoff)
	if len(recent) >= m.max {
		m.hits[key] = recent
		return false, nil
	}
	m.hits[key] = append(recent, now)
	return true, nil
}

// pruneLocked drops keys whose every hit is older than cutoff
func (m *Memory) pruneLocked(cutoff time.Time) {
	for k, hits := range m.hits {
		if len(trim(hits, cutoff)) == 0 {
			delete(m.hits, k)
		}
	}
}

func trim(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	return hits[i:]
}

// Redis shares the window across instances with one sorted set per key
type Redis struct {
	client *redis.Client
	prefix string
	window time.Duration
	max    int
	now    func() time.Time
}

// NewRedis allows max requests per key within window, keys under prefix
func NewRedis(client *redis.Client, prefix string, max int, window time.Duration) *Redis {
	return &Redis{client: client, prefix: prefix, window: window, max: max, now: time.Now}
}

// Allow trims the set, adds this request and counts, in one transaction.
// A denied request is removed again so it does not extend the block.
func (r *Redis) Allow(ctx context.Context, key string) (bool, error) {
	now := r.now()
	fullKey := r.prefix + key
	member := uuid.NewString()
	cutoff := now.Add(-r.window).UnixMicro()

	var card *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, fullKey, "-inf", fmt.Sprintf("%d", cutoff))
		pipe.ZAdd(ctx, fullKey, redis.Z{Score: float64(now.UnixMicro()), Member: member})
		card = pipe.ZCard(ctx, fullKey)
		pipe.PExpire(ctx, fullKey, r.window)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("rate limit %s: %w", key, err)
	}

	if card.Val() > int64(r.max) {
		if err := r.client.ZRem(ctx, fullKey, member).Err(); err != nil {
			return false, fmt.Errorf("rate limit %s: %w", key, err)
		}
		return false, nil
	}
	return true, nil
}
