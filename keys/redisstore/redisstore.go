// Package redisstore provides a Redis-backed keys.Store so every replica
// of the gateway shares one signing-key cache.
package redisstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/joeshaw/envdecode"
	"github.com/redis/go-redis/v9"

	"github.com/tregate/authgate-go/keys"
)

// Config for the Redis-backed key store. Defaults can be loaded via
// envdecode.
type Config struct {
	// RedisAddr like "localhost:6379". ENV: REDIS_ADDR
	RedisAddr string `env:"REDIS_ADDR,default=localhost:6379"`
	// KeyPrefix for all keys. ENV: KEYS_KEY_PREFIX
	KeyPrefix string `env:"KEYS_KEY_PREFIX,default=authgate:keys:"`
}

// Store persists PEM key material in Redis. Entries carry no TTL; key
// material stays until the prefix is flushed, matching the in-process
// store's no-expiry contract.
type Store struct {
	client    *redis.Client
	keyPrefix string
}

var _ keys.Store = (*Store)(nil)

func New(cfg Config) (*Store, error) {
	addr := cfg.RedisAddr
	if addr == "" {
		addr = "localhost:6379"
	}
	cl := redis.NewClient(&redis.Options{Addr: addr})
	if err := cl.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "authgate:keys:"
	}
	return &Store{client: cl, keyPrefix: prefix}, nil
}

// NewFromEnv builds a Store using envdecode to populate Config.
func NewFromEnv() (*Store, error) {
	var cfg Config
	// Use envdecode; defaults are provided via struct tags.
	_ = envdecode.Decode(&cfg)
	return New(cfg)
}

// Close closes the Redis client.
func (s *Store) Close() error { return s.client.Close() }

func (s *Store) key(kid string) string { return s.keyPrefix + kid }

func (s *Store) Get(ctx context.Context, kid string) ([]byte, error) {
	b, err := s.client.Get(ctx, s.key(kid)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", keys.ErrKeyNotFound, kid)
		}
		return nil, fmt.Errorf("redisstore: get %s: %w", kid, err)
	}
	return b, nil
}

func (s *Store) Put(ctx context.Context, kid string, material []byte) error {
	if err := s.client.Set(ctx, s.key(kid), material, 0).Err(); err != nil {
		return fmt.Errorf("redisstore: put %s: %w", kid, err)
	}
	return nil
}
