package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"trip-planner/internal/domain"
	"trip-planner/internal/platform/obs"

	"github.com/redis/go-redis/v9"
)

const routeKeyPrefix = "route:"

// RedisRouteCache stores one JSON encoded route per point under route:<id>.
// Every worker process can reach it, which makes it the cache of choice when
// planning is split across machines.
type RedisRouteCache struct {
	RDB *redis.Client
	// TTL applied to every write. Zero keeps entries until flushed.
	TTL time.Duration
}

func NewRedisRouteCache(rdb *redis.Client, ttl time.Duration) *RedisRouteCache {
	return &RedisRouteCache{RDB: rdb, TTL: ttl}
}

// OpenRedis parses a redis:// URL and verifies the server answers.
func OpenRedis(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("open redis: parse url: %w", err)
	}

	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("open redis: ping: %w", err)
	}
	return rdb, nil
}

func routeKey(id domain.PointID) string { return routeKeyPrefix + id.String() }

func (c *RedisRouteCache) Get(ctx context.Context, id domain.PointID) (domain.Route, bool, error) {
	if c.RDB == nil {
		return domain.Route{}, false, errors.New("redis route cache: client is nil")
	}

	b, err := c.RDB.Get(ctx, routeKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Route{}, false, nil
	}
	if err != nil {
		return domain.Route{}, false, fmt.Errorf("get route cache point=%d: %w", id, err)
	}

	var r domain.Route
	if err := json.Unmarshal(b, &r); err != nil {
		return domain.Route{}, false, fmt.Errorf("get route cache point=%d: decode: %w", id, err)
	}
	return r, true, nil
}

func (c *RedisRouteCache) Set(ctx context.Context, id domain.PointID, route domain.Route) error {
	if c.RDB == nil {
		return errors.New("redis route cache: client is nil")
	}

	b, err := json.Marshal(route)
	if err != nil {
		return fmt.Errorf("set route cache point=%d: encode: %w", id, err)
	}
	if err := c.RDB.Set(ctx, routeKey(id), b, c.TTL).Err(); err != nil {
		return fmt.Errorf("set route cache point=%d: %w", id, err)
	}
	return nil
}

func (c *RedisRouteCache) Delete(ctx context.Context, id domain.PointID) error {
	if c.RDB == nil {
		return errors.New("redis route cache: client is nil")
	}

	if err := c.RDB.Del(ctx, routeKey(id)).Err(); err != nil {
		return fmt.Errorf("delete route cache point=%d: %w", id, err)
	}
	return nil
}

// Flush removes every route:* key. Other keys in the database are left alone.
func (c *RedisRouteCache) Flush(ctx context.Context) (err error) {
	defer obs.Time(ctx, "route.cache.Flush")(&err)

	if c.RDB == nil {
		return errors.New("redis route cache: client is nil")
	}

	var cursor uint64
	for {
		keys, next, err := c.RDB.Scan(ctx, cursor, routeKeyPrefix+"*", 500).Result()
		if err != nil {
			return fmt.Errorf("flush route cache: scan: %w", err)
		}
		if len(keys) > 0 {
			if err := c.RDB.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("flush route cache: del: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
