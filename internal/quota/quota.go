package quota

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"

	rediskeys "github.com/meterwatch/alert-server-go/internal/redis"
)

// Counter is a keyed counter with per-key expiry.
type Counter interface {
	Get(ctx context.Context, key string) (int, error)
	Incr(ctx context.Context, key string, ttl time.Duration) (int, error)
}

type redisCounter struct {
	client *redis.Client
}

func NewRedisCounter(client *redis.Client) Counter {
	return &redisCounter{client: client}
}

func (c *redisCounter) Get(ctx context.Context, key string) (int, error) {
	n, err := c.client.Get(ctx, key).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

func (c *redisCounter) Incr(ctx context.Context, key string, ttl time.Duration) (int, error) {
	var incr *redis.IntCmd
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int(incr.Val()), nil
}

type memoryCounter struct {
	mu    sync.Mutex
	store *cache.Cache
}

// NewMemoryCounter keeps counts in process memory. Counts are lost on restart
// and not shared between processes.
func NewMemoryCounter() Counter {
	return &memoryCounter{store: cache.New(24*time.Hour, time.Hour)}
}

func (c *memoryCounter) Get(_ context.Context, key string) (int, error) {
	v, ok := c.store.Get(key)
	if !ok {
		return 0, nil
	}
	return v.(int), nil
}

func (c *memoryCounter) Incr(_ context.Context, key string, ttl time.Duration) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.Add(key, 1, ttl); err == nil {
		return 1, nil
	}
	return c.store.IncrementInt(key, 1)
}

// DailyQuota caps the number of emails sent to one address per calendar day.
type DailyQuota struct {
	counter   Counter
	limit     int
	retention time.Duration
	now       func() time.Time
}

func NewDailyQuota(counter Counter, limit int, retention time.Duration) *DailyQuota {
	return &DailyQuota{
		counter:   counter,
		limit:     limit,
		retention: retention,
		now:       time.Now,
	}
}

func (q *DailyQuota) key(email string) string {
	return rediskeys.DailyQuotaKey(q.now(), email)
}

// Allow reports whether another email may be sent to email today.
// A non-positive limit disables the cap.
func (q *DailyQuota) Allow(ctx context.Context, email string) (bool, int, error) {
	if q.limit <= 0 {
		return true, 0, nil
	}
	sent, err := q.counter.Get(ctx, q.key(email))
	if err != nil {
		return false, 0, err
	}
	return sent < q.limit, sent, nil
}

// Record counts one sent email.
func (q *DailyQuota) Record(ctx context.Context, email string) error {
	_, err := q.counter.Incr(ctx, q.key(email), q.retention)
	return err
}
