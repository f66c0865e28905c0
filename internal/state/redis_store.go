package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds connection parameters
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisStore keeps the checkpoint in redis so a replacement host can resume
type RedisStore struct {
	rdb *redis.Client
	key string
}

// RedisKey is the key a product's checkpoint is stored under
func RedisKey(product string) string {
	return "momentum:checkpoint:" + product
}

// OpenRedisStore connects and pings the server
func OpenRedisStore(ctx context.Context, cfg RedisConfig, product string) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis checkpoint backend requires an address")
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return NewRedisStore(rdb, product), nil
}

// NewRedisStore wraps an existing client
func NewRedisStore(rdb *redis.Client, product string) *RedisStore {
	return &RedisStore{rdb: rdb, key: RedisKey(product)}
}

// Load reads the checkpoint
func (r *RedisStore) Load(ctx context.Context) (Position, error) {
	data, err := r.rdb.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Flat(), ErrNotFound
	}
	if err != nil {
		return Flat(), fmt.Errorf("redis: get %s: %w", r.key, err)
	}

	var p Position
	if err := json.Unmarshal(data, &p); err != nil {
		return Flat(), fmt.Errorf("redis: parse checkpoint: %w", err)
	}
	return p, nil
}

// Save writes the checkpoint without expiry
func (r *RedisStore) Save(ctx context.Context, p Position) error {
	if err := p.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("redis: marshal checkpoint: %w", err)
	}
	if err := r.rdb.Set(ctx, r.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis: set %s: %w", r.key, err)
	}
	return nil
}

// Close closes the connection
func (r *RedisStore) Close() error {
	return r.rdb.Close()
}
