// Package redis stores values in a local Redis instance.
package redis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-redis/redis"
)

type Store struct {
	client *redis.Client
	prefix string
}

// New connects to addr and verifies the connection with PING.
func New(addr string, db int, prefix string) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if err := client.Ping().Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return &Store{client: client, prefix: prefix}, nil
}

func (s *Store) key(k string) string {
	return s.prefix + k
}

// Get implements storage.Store
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := s.client.WithContext(ctx).Get(s.key(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	return v, true, nil
}

// Set implements storage.Store
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.WithContext(ctx).Set(s.key(key), value, 0).Err(); err != nil {
		slog.WarnContext(ctx, "Redis write failed", "key", s.key(key), "error", err)
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}
