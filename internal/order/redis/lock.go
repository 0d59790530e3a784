package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"ms-marketplace/internal/logger"
)

// DefaultLockTTL bounds how long a crashed request can keep an order
// locked against other financial updates.
const DefaultLockTTL = 30 * time.Second

// Redis serializes financial mutations per order. Lock holders tag the
// key with an owner token so only the holder can release it.
type Redis struct {
	Client *redis.Client
	Logger *logger.Logger
	TTL    time.Duration
}

func NewRedis(client *redis.Client, log *logger.Logger, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &Redis{Client: client, Logger: log, TTL: ttl}
}

func lockKey(orderID string) string {
	return "order_lock:" + orderID
}

// Lock acquires the per-order mutation lock. Returns false when another
// update already holds it.
func (r *Redis) Lock(ctx context.Context, orderID, owner string) (bool, error) {
	return r.Client.SetNX(ctx, lockKey(orderID), owner, r.TTL).Result()
}

// Unlock releases the lock, but only for the owner that took it. A lock
// that expired and was re-acquired by someone else is left alone.
func (r *Redis) Unlock(ctx context.Context, orderID, owner string) error {
	key := lockKey(orderID)
	val, err := r.Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil // already released or expired
	}
	if err != nil {
		return err
	}
	if val == owner {
		if _, err := r.Client.Del(ctx, key).Result(); err != nil {
			return fmt.Errorf("release lock for order %s: %w", orderID, err)
		}
	}
	return nil
}
