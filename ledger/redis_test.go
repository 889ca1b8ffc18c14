package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"hawx.me/code/assert"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *Redis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return mr, NewRedis(client, "indieauth")
}

func TestRedisConsume(t *testing.T) {
	assert := assert.Wrap(t)

	mr, r := newTestRedis(t)
	ctx := context.Background()

	first, err := r.Consume(ctx, "abc", time.Minute)
	assert(err).Must.Nil()
	assert(first).True()

	again, err := r.Consume(ctx, "abc", time.Minute)
	assert(err).Must.Nil()
	assert(again).Equal(false)

	assert(mr.Exists("indieauth:code:abc")).True()
	assert(mr.TTL("indieauth:code:abc")).Equal(time.Minute)
}

func TestRedisConsumeAfterExpiry(t *testing.T) {
	assert := assert.Wrap(t)

	mr, r := newTestRedis(t)
	ctx := context.Background()

	first, _ := r.Consume(ctx, "abc", 5*time.Second)
	assert(first).True()

	mr.FastForward(6 * time.Second)

	again, err := r.Consume(ctx, "abc", time.Minute)
	assert(err).Must.Nil()
	assert(again).True()
}

func TestRedisConsumeWhenUnavailable(t *testing.T) {
	assert := assert.Wrap(t)

	mr, r := newTestRedis(t)
	mr.Close()

	ok, err := r.Consume(context.Background(), "abc", time.Minute)
	assert(ok).Equal(false)
	assert(err == nil).Equal(false)
}

func TestRedisPing(t *testing.T) {
	assert := assert.Wrap(t)

	_, r := newTestRedis(t)

	assert(r.Ping(context.Background())).Nil()
}
