package state

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound means no checkpoint has been saved yet
var ErrNotFound = errors.New("checkpoint not found")

// Store loads and saves the position checkpoint
type Store interface {
	// Load returns ErrNotFound when nothing has been saved
	Load(ctx context.Context) (Position, error)
	Save(ctx context.Context, p Position) error
	Close() error
}

// Backend names
const (
	BackendFile   = "file"
	BackendBadger = "badger"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config selects and configures a checkpoint backend
type Config struct {
	Backend string `json:"backend" yaml:"backend" toml:"backend"`
	// Path is the JSON file for the file backend or the directory for badger
	Path          string `json:"path" yaml:"path" toml:"path"`
	RedisAddr     string `json:"redis_addr" yaml:"redis_addr" toml:"redis_addr"`
	RedisPassword string `json:"redis_password" yaml:"redis_password" toml:"redis_password"`
	RedisDB       int    `json:"redis_db" yaml:"redis_db" toml:"redis_db"`
	// StrictLoad makes an unreadable checkpoint fatal instead of starting flat
	StrictLoad bool `json:"strict_load" yaml:"strict_load" toml:"strict_load"`
}

// Backends lists the supported backend names
func Backends() []string {
	return []string{BackendFile, BackendBadger, BackendRedis, BackendMemory}
}

// Open builds the configured store for product
func Open(ctx context.Context, cfg Config, product string) (Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", BackendFile:
		path := cfg.Path
		if path == "" {
			path = "positionData.json"
		}
		return NewFileStore(path), nil
	case BackendBadger:
		path := cfg.Path
		if path == "" {
			path = "data/checkpoint"
		}
		return OpenBadgerStore(path, product)
	case BackendRedis:
		return OpenRedisStore(ctx, RedisConfig{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}, product)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown checkpoint backend %q", cfg.Backend)
	}
}
