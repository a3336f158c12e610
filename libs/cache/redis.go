package cache

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Store backed by Redis, for deployments running more than one
// gateway instance. Errors degrade to cache misses; the cache is never load-bearing.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisStore(rdb *redis.Client, prefix string) *RedisStore {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "cache"
	}
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := s.rdb.Get(ctx, s.prefix+":"+key).Bytes()
	if err != nil {
		return nil, false
	}
	return val, true
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	_ = s.rdb.Set(ctx, s.prefix+":"+key, value, ttl).Err()
}

func (s *RedisStore) DeletePrefix(ctx context.Context, prefix string) {
	pattern := s.prefix + ":" + prefix + "*"
	iter := s.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if len(keys) > 0 {
		_ = s.rdb.Del(ctx, keys...).Err()
	}
}
