package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by Get when the key does not exist.
var ErrMiss = errors.New("cache: miss")

type Cache struct {
	client redis.UniversalClient // works with both single and cluster
}

func NewCache(addrs []string, password string, useCluster bool) *Cache {
	var rdb redis.UniversalClient

	if useCluster && len(addrs) > 1 {
		rdb = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:    addrs,
			Password: password,
		})
	} else {
		rdb = redis.NewClient(&redis.Options{
			Addr:         addrs[0],
			Password:     password,
			DB:           0,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
		})
	}

	return &Cache{client: rdb}
}

func key(namespace, k string) string { return namespace + ":" + k }

func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Cache) Close() error { return c.client.Close() }

// SetNX stores value only if the key is absent and reports whether it did.
func (c *Cache) SetNX(ctx context.Context, namespace, k string, value interface{}, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, key(namespace, k), value, ttl).Result()
}

func (c *Cache) Get(ctx context.Context, namespace, k string) (string, error) {
	v, err := c.client.Get(ctx, key(namespace, k)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrMiss
	}
	return v, err
}
