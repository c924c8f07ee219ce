package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	redisBackendName = "redis"
	redisScanCount   = 100
	redisDialTimeout = 5 * time.Second
)

// ArgsRedisStore is the DTO used to create a new redis backed cache store
type ArgsRedisStore struct {
	Address   string
	Password  string
	DB        int
	KeyPrefix string
	Metrics   MetricsRecorder
}

// redisBackend keeps every envelope in a redis string. SET replaces the value atomically
type redisBackend struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStore connects to redis and returns a cache store backed by it
func NewRedisStore(args ArgsRedisStore) (*cacheStore, error) {
	if len(args.Address) == 0 {
		return nil, errEmptyRedisAddress
	}

	client := redis.NewClient(&redis.Options{
		Addr:        args.Address,
		Password:    args.Password,
		DB:          args.DB,
		DialTimeout: redisDialTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisDialTimeout)
	defer cancel()

	err := client.Ping(ctx).Err()
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	b := &redisBackend{
		client:    client,
		keyPrefix: args.KeyPrefix,
	}

	return newCacheStore(redisBackendName, b, args.Metrics)
}

func (rb *redisBackend) load(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := rb.client.Get(ctx, rb.keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	return data, true, nil
}

func (rb *redisBackend) save(ctx context.Context, key string, data []byte) error {
	return rb.client.Set(ctx, rb.keyPrefix+key, data, 0).Err()
}

func (rb *redisBackend) clear(ctx context.Context) error {
	iter := rb.client.Scan(ctx, 0, rb.keyPrefix+"*", redisScanCount).Iterator()
	for iter.Next(ctx) {
		err := rb.client.Del(ctx, iter.Val()).Err()
		if err != nil {
			return fmt.Errorf("failed to delete cache key: %w", err)
		}
	}

	return iter.Err()
}

func (rb *redisBackend) close() error {
	return rb.client.Close()
}
