package cache

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/redis/go-redis/v9"
)

const (
	redisNamespace = "gophdrive"
	scanBatch      = 256
)

// RedisRepository stores entries as plain redis strings without expiry.
type RedisRepository struct {
	rdb redis.Cmdable
}

func NewRedisRepository(rdb redis.Cmdable) *RedisRepository {
	return &RedisRepository{rdb: rdb}
}

func redisPrefix(domain Domain) string {
	return redisNamespace + ":" + string(domain) + ":"
}

func redisKey(domain Domain, key string) string {
	return redisPrefix(domain) + key
}

func (r *RedisRepository) Get(ctx context.Context, domain Domain, key string) ([]byte, error) {
	v, err := r.rdb.Get(ctx, redisKey(domain, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cache[%s/%s]: %w", domain, key, err)
	}
	return v, nil
}

func (r *RedisRepository) Set(ctx context.Context, domain Domain, key string, value []byte) error {
	if err := r.rdb.Set(ctx, redisKey(domain, key), value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set cache[%s/%s]: %w", domain, key, err)
	}
	return nil
}

func (r *RedisRepository) Remove(ctx context.Context, domain Domain, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = redisKey(domain, k)
	}
	if err := r.rdb.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("failed to remove cache keys in %s: %w", domain, err)
	}
	return nil
}

func (r *RedisRepository) scan(ctx context.Context, domain Domain) ([]string, error) {
	var (
		out    []string
		cursor uint64
	)
	for {
		keys, next, err := r.rdb.Scan(ctx, cursor, redisPrefix(domain)+"*", scanBatch).Result()
		if err != nil {
			return nil, err
		}
		out = append(out, keys...)
		if next == 0 {
			break
		}
		cursor = next
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

func (r *RedisRepository) Keys(ctx context.Context, domain Domain) ([]string, error) {
	full, err := r.scan(ctx, domain)
	if err != nil {
		return nil, fmt.Errorf("failed to list cache keys in %s: %w", domain, err)
	}
	prefix := redisPrefix(domain)
	keys := make([]string, 0, len(full))
	for _, k := range full {
		keys = append(keys, strings.TrimPrefix(k, prefix))
	}
	return keys, nil
}

func (r *RedisRepository) Clear(ctx context.Context, domain Domain) error {
	full, err := r.scan(ctx, domain)
	if err != nil {
		return fmt.Errorf("failed to clear cache domain %s: %w", domain, err)
	}
	if len(full) == 0 {
		return nil
	}
	if err := r.rdb.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("failed to clear cache domain %s: %w", domain, err)
	}
	return nil
}
