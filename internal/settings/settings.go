// Package settings holds per-player preferences keyed by platform id.
package settings

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/go-redis/redis/v8"
)

// DefaultAutoStash applies to players that never changed the setting.
const DefaultAutoStash = true

// Store reads and writes player preferences.
type Store interface {
	AutoStashEnabled(ctx context.Context, platformID uint64) (bool, error)
	SetAutoStash(ctx context.Context, platformID uint64, enabled bool) error
}

// MemoryStore keeps settings in process memory.
type MemoryStore struct {
	mu        sync.RWMutex
	autoStash map[uint64]bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{autoStash: make(map[uint64]bool)}
}

func (s *MemoryStore) AutoStashEnabled(_ context.Context, platformID uint64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	enabled, ok := s.autoStash[platformID]
	if !ok {
		return DefaultAutoStash, nil
	}
	return enabled, nil
}

func (s *MemoryStore) SetAutoStash(_ context.Context, platformID uint64, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autoStash[platformID] = enabled
	return nil
}

// RedisStore keeps settings in one Redis hash per preference, with the
// platform id as field.
type RedisStore struct {
	client redis.Cmdable
	prefix string
}

// NewRedisStore creates a store whose keys start with prefix.
func NewRedisStore(client redis.Cmdable, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

// AutoStashKey is the hash holding the auto-stash flag of every player.
func (s *RedisStore) AutoStashKey() string {
	return s.prefix + "autostash"
}

func (s *RedisStore) AutoStashEnabled(ctx context.Context, platformID uint64) (bool, error) {
	val, err := s.client.HGet(ctx, s.AutoStashKey(), strconv.FormatUint(platformID, 10)).Result()
	if errors.Is(err, redis.Nil) {
		return DefaultAutoStash, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read auto-stash setting for %d: %w", platformID, err)
	}
	enabled, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("bad auto-stash setting %q for %d: %w", val, platformID, err)
	}
	return enabled, nil
}

func (s *RedisStore) SetAutoStash(ctx context.Context, platformID uint64, enabled bool) error {
	field := strconv.FormatUint(platformID, 10)
	if err := s.client.HSet(ctx, s.AutoStashKey(), field, strconv.FormatBool(enabled)).Err(); err != nil {
		return fmt.Errorf("failed to store auto-stash setting for %d: %w", platformID, err)
	}
	return nil
}
