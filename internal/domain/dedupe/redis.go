package dedupe

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/samwel-gachiri/digital-sales-agent/pkg/logger"
)

// redisClient is the subset of redis.Cmdable used by RedisDeduper.
type redisClient interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisDeduper shares seen request IDs between service instances. Each ID
// is a key written with SET NX and expires after the configured TTL.
//
// When Redis is unreachable the request is treated as new, so a Redis
// outage may let a duplicate through but never drops a request.
type RedisDeduper struct {
	rdb    redisClient
	ttl    time.Duration
	prefix string
	log    logger.Logger
	size   atomic.Int64 // IDs recorded by this instance
}

// NewRedisDeduper creates a deduper backed by rdb.
func NewRedisDeduper(rdb redisClient, opts ...RedisOption) *RedisDeduper {
	d := &RedisDeduper{
		rdb:    rdb,
		ttl:    24 * time.Hour,
		prefix: "leads:score-request:",
		log:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *RedisDeduper) key(id string) string {
	return d.prefix + id
}

func (d *RedisDeduper) SeenAndRecord(ctx context.Context, id string) bool {
	ok, err := d.rdb.SetNX(ctx, d.key(id), 1, d.ttl).Result()
	if err != nil {
		d.log.Error(ctx, "redis dedupe check failed, treating request as new",
			logger.String("request_id", id), logger.Error(err))
		return false
	}
	if !ok {
		return true
	}
	d.size.Add(1)
	return false
}

func (d *RedisDeduper) Unrecord(ctx context.Context, id string) {
	n, err := d.rdb.Del(ctx, d.key(id)).Result()
	if err != nil {
		d.log.Error(ctx, "redis dedupe unrecord failed",
			logger.String("request_id", id), logger.Error(err))
		return
	}
	if n > 0 {
		d.size.Add(-1)
	}
}

// Size returns the number of IDs recorded through this instance that have
// not been unrecorded. Keys expired by Redis are not subtracted.
func (d *RedisDeduper) Size() int64 {
	return d.size.Load()
}

// DialRedis parses url, connects and pings the server.
func DialRedis(ctx context.Context, url string, dialTimeout time.Duration) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if dialTimeout > 0 {
		opts.DialTimeout = dialTimeout
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

var _ Deduper = (*RedisDeduper)(nil)
