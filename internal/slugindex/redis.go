// Package slugindex provides SlugIndex backends that live outside the node
// store: Redis for multi-host deployments and an in-process map.
package slugindex

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"ilmhub/internal/ilm"
)

// DefaultKeyPrefix namespaces reservation keys.
const DefaultKeyPrefix = "ilm:slug:"

// RedisIndex reserves slugs with SETNX. Reservations never expire; the node
// store keeps the authoritative copy.
type RedisIndex struct {
	client *redis.Client
	prefix string
}

var _ ilm.SlugIndex = (*RedisIndex)(nil)

// NewRedisIndex connects to redisURL and checks the connection.
func NewRedisIndex(redisURL, prefix string) (*RedisIndex, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisIndexWithClient(client, prefix), nil
}

// NewRedisIndexWithClient wraps an existing client.
func NewRedisIndexWithClient(client *redis.Client, prefix string) *RedisIndex {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisIndex{client: client, prefix: prefix}
}

func (r *RedisIndex) key(slug string) string {
	return r.prefix + slug
}

// Reserve claims slug for owner. A slug already held by owner counts as
// reserved, so a retried create does not lose its own slug.
func (r *RedisIndex) Reserve(ctx context.Context, slug, owner string) (bool, error) {
	ok, err := r.client.SetNX(ctx, r.key(slug), owner, 0).Result()
	if err != nil {
		return false, fmt.Errorf("reserve slug: %w", err)
	}
	if ok {
		return true, nil
	}

	holder, err := r.client.Get(ctx, r.key(slug)).Result()
	if err == redis.Nil {
		// Released between the two calls; try once more.
		return r.client.SetNX(ctx, r.key(slug), owner, 0).Result()
	}
	if err != nil {
		return false, fmt.Errorf("lookup slug holder: %w", err)
	}
	return holder == owner, nil
}

// Release drops a reservation. Unknown slugs are ignored.
func (r *RedisIndex) Release(ctx context.Context, slug string) error {
	if err := r.client.Del(ctx, r.key(slug)).Err(); err != nil {
		return fmt.Errorf("release slug: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (r *RedisIndex) Close() error {
	return r.client.Close()
}
