package availability

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const calendarKeyPrefix = "availability:calendar:"

// RedisCache keeps computed calendars in Redis as JSON.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) (Calendar, bool, error) {
	raw, err := c.client.Get(ctx, calendarKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var cal Calendar
	if err := json.Unmarshal(raw, &cal); err != nil {
		return nil, false, err
	}
	return cal, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, cal Calendar) error {
	raw, err := json.Marshal(cal)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, calendarKeyPrefix+key, raw, c.ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, 0, len(keys))
	for _, k := range keys {
		full = append(full, calendarKeyPrefix+k)
	}
	return c.client.Del(ctx, full...).Err()
}

func (c *RedisCache) Flush(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, calendarKeyPrefix+"*", 100).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
