// Package codestore keeps verification codes in Redis with a short
// expiry.
package codestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCodeNotFound means no code is stored for the alias, or the stored
// one has expired.
var ErrCodeNotFound = errors.New("verification code not found")

const keyPrefix = "verify:code:"

// RedisClient defines the subset of Redis commands the store uses.
type RedisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// Store writes and reads verification codes keyed by alias.
type Store struct {
	client RedisClient
	ttl    time.Duration
}

// New creates a Store. Each saved code expires after ttl.
func New(client RedisClient, ttl time.Duration) *Store {
	return &Store{
		client: client,
		ttl:    ttl,
	}
}

// Save stores the latest code for an alias, replacing any previous one
// and restarting the expiry window.
func (s *Store) Save(ctx context.Context, alias, code string) error {
	if err := s.client.Set(ctx, keyPrefix+alias, code, s.ttl).Err(); err != nil {
		return fmt.Errorf("store verification code: %w", err)
	}
	return nil
}

// Get returns the currently stored code for an alias.
func (s *Store) Get(ctx context.Context, alias string) (string, error) {
	code, err := s.client.Get(ctx, keyPrefix+alias).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCodeNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read verification code: %w", err)
	}
	return code, nil
}
