package repository

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RollingWindow is the span of the "registrations in the last 24 hours"
// counter shown to organizers.
const RollingWindow = 24 * time.Hour

// RollingCounter counts registrations per event over RollingWindow.  It is
// informational; callers log its failures and carry on.
type RollingCounter interface {
	Incr(ctx context.Context, eventID uint64, member string, at time.Time) error
	Count(ctx context.Context, eventID uint64, at time.Time) (int64, error)
}

// RedisRollingCounter keeps one sorted set per event, scored by the
// registration time in milliseconds.  Entries older than the window are
// trimmed on every write and read.
type RedisRollingCounter struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisRollingCounter returns a counter storing its keys under prefix.
func NewRedisRollingCounter(rdb *redis.Client, prefix string) *RedisRollingCounter {
	if prefix == "" {
		prefix = "reg24h"
	}
	return &RedisRollingCounter{rdb: rdb, prefix: prefix}
}

func (c *RedisRollingCounter) key(eventID uint64) string {
	return fmt.Sprintf("%s:%d", c.prefix, eventID)
}

func (c *RedisRollingCounter) Incr(ctx context.Context, eventID uint64, member string, at time.Time) error {
	key := c.key(eventID)
	cutoff := at.Add(-RollingWindow).UnixMilli()
	pipe := c.rdb.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(at.UnixMilli()), Member: member})
	pipe.ZRemRangeByScore(ctx, key, "-inf", "("+strconv.FormatInt(cutoff, 10))
	pipe.Expire(ctx, key, RollingWindow+time.Hour)
	_, err := pipe.Exec(ctx)
	return err
}

func (c *RedisRollingCounter) Count(ctx context.Context, eventID uint64, at time.Time) (int64, error) {
	key := c.key(eventID)
	cutoff := at.Add(-RollingWindow).UnixMilli()
	if err := c.rdb.ZRemRangeByScore(ctx, key, "-inf", "("+strconv.FormatInt(cutoff, 10)).Err(); err != nil {
		return 0, err
	}
	return c.rdb.ZCard(ctx, key).Result()
}

// MemoryRollingCounter is the in-process counter used without Redis.
type MemoryRollingCounter struct {
	mu     sync.Mutex
	events map[uint64]map[string]time.Time
}

func NewMemoryRollingCounter() *MemoryRollingCounter {
	return &MemoryRollingCounter{events: make(map[uint64]map[string]time.Time)}
}

func (c *MemoryRollingCounter) Incr(_ context.Context, eventID uint64, member string, at time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.events[eventID]
	if !ok {
		m = make(map[string]time.Time)
		c.events[eventID] = m
	}
	m[member] = at
	c.trim(m, at)
	return nil
}

func (c *MemoryRollingCounter) Count(_ context.Context, eventID uint64, at time.Time) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m := c.events[eventID]
	c.trim(m, at)
	return int64(len(m)), nil
}

func (c *MemoryRollingCounter) trim(m map[string]time.Time, at time.Time) {
	cutoff := at.Add(-RollingWindow)
	for k, t := range m {
		if t.Before(cutoff) {
			delete(m, k)
		}
	}
}

// Members returns the counted members of an event, oldest first.
func (c *MemoryRollingCounter) Members(eventID uint64) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	m := c.events[eventID]
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return m[out[i]].Before(m[out[j]]) })
	return out
}
