package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shashiranjanraj/kashvi-shop/pkg/logger"
)

const defaultRedisPrefix = "shop:queue"

// RedisDriver keeps ready jobs in a list (LPUSH, BRPOP) and delayed jobs in
// a sorted set scored by due time in Unix milliseconds. Delayed jobs only
// reach the list when PromoteDue runs; queue:work starts RunPromoter.
type RedisDriver struct {
	rdb        redis.Cmdable
	ready      string
	delayed    string
	block      time.Duration
	promoteMax int64
}

type RedisOption func(*RedisDriver)

// WithPrefix changes the key prefix; the keys are <prefix>:jobs and
// <prefix>:delayed.
func WithPrefix(prefix string) RedisOption {
	return func(d *RedisDriver) {
		d.ready, d.delayed = prefix+":jobs", prefix+":delayed"
	}
}

// WithBlockTimeout bounds each BRPOP so workers notice cancellation.
func WithBlockTimeout(t time.Duration) RedisOption {
	return func(d *RedisDriver) { d.block = t }
}

// NewRedisDriver takes the client pkg/cache uses.
func NewRedisDriver(rdb redis.Cmdable, opts ...RedisOption) *RedisDriver {
	d := &RedisDriver{rdb: rdb, block: 5 * time.Second, promoteMax: 500}
	WithPrefix(defaultRedisPrefix)(d)
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *RedisDriver) Push(ctx context.Context, payload []byte) error {
	if err := d.rdb.LPush(ctx, d.ready, payload).Err(); err != nil {
		return fmt.Errorf("queue/redis: push: %w", err)
	}
	return nil
}

// Pop returns nil, nil when the block timeout passes with nothing ready.
func (d *RedisDriver) Pop(ctx context.Context) ([]byte, error) {
	kv, err := d.rdb.BRPop(ctx, d.block, d.ready).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("queue/redis: pop: %w", err)
	case len(kv) != 2:
		return nil, nil
	}
	return []byte(kv[1]), nil
}

func (d *RedisDriver) PushDelayed(ctx context.Context, payload []byte, delay time.Duration) error {
	due := time.Now().Add(delay).UnixMilli()
	z := redis.Z{Score: float64(due), Member: string(payload)}
	if err := d.rdb.ZAdd(ctx, d.delayed, z).Err(); err != nil {
		return fmt.Errorf("queue/redis: push delayed: %w", err)
	}
	return nil
}

// PromoteDue moves up to promoteMax jobs due at now onto the ready list.
// Whoever wins the ZREM pushes the job, so concurrent promoters never
// duplicate one.
func (d *RedisDriver) PromoteDue(ctx context.Context, now time.Time) (int, error) {
	due, err := d.rdb.ZRangeByScore(ctx, d.delayed, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.UnixMilli(), 10),
		Count: d.promoteMax,
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("queue/redis: scan delayed: %w", err)
	}

	var moved int
	for _, job := range due {
		claimed, err := d.rdb.ZRem(ctx, d.delayed, job).Result()
		if err != nil {
			return moved, fmt.Errorf("queue/redis: claim delayed: %w", err)
		}
		if claimed == 0 {
			continue
		}
		if err := d.rdb.LPush(ctx, d.ready, []byte(job)).Err(); err != nil {
			// put it back rather than lose it
			d.rdb.ZAdd(ctx, d.delayed, redis.Z{Score: float64(now.UnixMilli()), Member: job})
			return moved, fmt.Errorf("queue/redis: promote: %w", err)
		}
		moved++
	}
	return moved, nil
}

// RunPromoter calls PromoteDue every interval until ctx is cancelled.
func (d *RedisDriver) RunPromoter(ctx context.Context, interval time.Duration) {
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-tick.C:
			n, err := d.PromoteDue(ctx, now)
			if err != nil && ctx.Err() == nil {
				logger.Warn("queue: promote delayed jobs", "error", err)
			}
			if n > 0 {
				logger.Debug("queue: promoted delayed jobs", "count", n)
			}
		}
	}
}
