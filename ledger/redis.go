package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a ledger shared by every process using the same Redis, so a code
// redeemed at one token endpoint replica is refused by the others.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

// NewRedis creates a Redis ledger. Keys are written as "<prefix>:code:<key>".
func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) redisKey(key string) string {
	return fmt.Sprintf("%s:code:%s", r.prefix, key)
}

// Consume sets the key if it is absent, returning false if it was already
// present.
func (r *Redis) Consume(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if ttl < time.Second {
		ttl = time.Second
	}

	ok, err := r.client.SetNX(ctx, r.redisKey(key), 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("record code in redis: %w", err)
	}

	return ok, nil
}

// Ping checks the connection to Redis.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
