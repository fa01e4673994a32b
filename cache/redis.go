package cache

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
)

type redisCache struct {
	client redis.UniversalClient
	cfg    config
}

var _ Remote = (*redisCache)(nil)

// NewRedis returns a Remote backed by Redis.
// The caller owns the client lifecycle; Close does not close it.
func NewRedis(client redis.UniversalClient, opts ...Option) Remote {
	return &redisCache{
		client: client,
		cfg:    applyOptions(opts),
	}
}

func (c *redisCache) queryCtx(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, c.cfg.queryTimeout)
}

func (c *redisCache) prefixKey(key string) string {
	if c.cfg.prefix == "" {
		return key
	}
	return c.cfg.prefix + ":" + key
}

func (c *redisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()
	data, err := c.client.Get(qctx, c.prefixKey(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "redis get %s", key)
	}
	return data, true, nil
}

func (c *redisCache) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()
	if err := c.client.Set(qctx, c.prefixKey(key), val, ttl).Err(); err != nil {
		return errors.Wrapf(err, "redis set %s", key)
	}
	return nil
}

func (c *redisCache) Delete(ctx context.Context, key string) (bool, error) {
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()
	n, err := c.client.Del(qctx, c.prefixKey(key)).Result()
	if err != nil {
		return false, errors.Wrapf(err, "redis del %s", key)
	}
	return n > 0, nil
}

func (c *redisCache) HGet(ctx context.Context, key, field string) ([]byte, bool, error) {
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()
	data, err := c.client.HGet(qctx, c.prefixKey(key), field).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "redis hget %s %s", key, field)
	}
	return data, true, nil
}

func (c *redisCache) HGetAll(ctx context.Context, key string) (map[string][]byte, error) {
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()
	fields, err := c.client.HGetAll(qctx, c.prefixKey(key)).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "redis hgetall %s", key)
	}
	out := make(map[string][]byte, len(fields))
	for field, val := range fields {
		out[field] = []byte(val)
	}
	return out, nil
}

func (c *redisCache) HSet(ctx context.Context, key, field string, val []byte) error {
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()
	if err := c.client.HSet(qctx, c.prefixKey(key), field, val).Err(); err != nil {
		return errors.Wrapf(err, "redis hset %s %s", key, field)
	}
	return nil
}

func (c *redisCache) HDelete(ctx context.Context, key, field string) (int64, error) {
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()
	n, err := c.client.HDel(qctx, c.prefixKey(key), field).Result()
	if err != nil {
		return 0, errors.Wrapf(err, "redis hdel %s %s", key, field)
	}
	return n, nil
}

func (c *redisCache) Incr(ctx context.Context, key string) (int64, error) {
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()
	n, err := c.client.Incr(qctx, c.prefixKey(key)).Result()
	if err != nil {
		return 0, errors.Wrapf(err, "redis incr %s", key)
	}
	return n, nil
}

func (c *redisCache) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()
	ok, err := c.client.Expire(qctx, c.prefixKey(key), ttl).Result()
	if err != nil {
		return false, errors.Wrapf(err, "redis expire %s", key)
	}
	return ok, nil
}

// Close is a no-op; the caller owns the redis client.
func (c *redisCache) Close() error {
	return nil
}
