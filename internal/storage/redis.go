package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisPrefix = "movieshelf:"
	redisOpTimeout     = 2 * time.Second
)

// RedisOptions configures a RedisEngine.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// Prefix namespaces every key; defaults to "movieshelf:"
	Prefix string
}

// RedisEngine implements Engine on a Redis server. Values never expire.
type RedisEngine struct {
	client *redis.Client
	prefix string
}

// NewRedis connects to Redis and verifies the connection with PING.
func NewRedis(opts RedisOptions) (*RedisEngine, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	prefix := opts.Prefix
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisEngine{client: client, prefix: prefix}, nil
}

func (e *RedisEngine) key(k string) string {
	return e.prefix + k
}

func (e *RedisEngine) GetString(key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	v, err := e.client.Get(ctx, e.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %q: %w", key, err)
	}
	return v, true, nil
}

func (e *RedisEngine) SetString(key, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := e.client.Set(ctx, e.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("failed to write %q: %w", key, err)
	}
	return nil
}

func (e *RedisEngine) Delete(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := e.client.Del(ctx, e.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete %q: %w", key, err)
	}
	return nil
}

func (e *RedisEngine) Contains(key string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	n, err := e.client.Exists(ctx, e.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check %q: %w", key, err)
	}
	return n > 0, nil
}

func (e *RedisEngine) Close() error {
	return e.client.Close()
}
