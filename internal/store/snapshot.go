// Package store persists the engine's two mutable caches - the Q-table and
// the reward memory - as JSON snapshots in Redis. When Redis is unavailable
// the store degrades to an in-memory map so evaluation and training continue
// uninterrupted; a read miss is treated as "empty", logged, and never retried
// inline.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"smc-signal-engine/internal/adaptive"
)

// Key prefixes for the persisted snapshots.
// Format: engine:qtable:{key} / engine:reward:{key}
const (
	qtableKeyPrefix = "engine:qtable"
	rewardKeyPrefix = "engine:reward"

	// Snapshots carry long-lived learning state; the TTL only bounds
	// abandoned keys.
	snapshotTTL = 30 * 24 * time.Hour

	opTimeout = 3 * time.Second
)

// SnapshotStore stores engine state in Redis with an in-memory fallback.
type SnapshotStore struct {
	client         *redis.Client
	logger         zerolog.Logger
	mu             sync.RWMutex
	fallback       map[string][]byte
	redisAvailable atomic.Bool
}

// NewSnapshotStore creates a store. A nil client puts the store in
// memory-only mode.
func NewSnapshotStore(client *redis.Client, logger zerolog.Logger) *SnapshotStore {
	s := &SnapshotStore{
		client:   client,
		logger:   logger.With().Str("component", "snapshot_store").Logger(),
		fallback: make(map[string][]byte),
	}

	if client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			s.logger.Warn().Err(err).Msg("redis unavailable at startup, using in-memory fallback")
		} else {
			s.redisAvailable.Store(true)
		}
	}

	return s
}

// SaveQTable persists a Q-table snapshot under the opaque key.
func (s *SnapshotStore) SaveQTable(ctx context.Context, key string, table map[string][]float64) error {
	return s.save(ctx, fmt.Sprintf("%s:%s", qtableKeyPrefix, key), table)
}

// LoadQTable restores a Q-table snapshot. A missing key returns an empty
// table, not an error: cold starts are normal.
func (s *SnapshotStore) LoadQTable(ctx context.Context, key string) (map[string][]float64, error) {
	table := make(map[string][]float64)
	err := s.load(ctx, fmt.Sprintf("%s:%s", qtableKeyPrefix, key), &table)
	return table, err
}

// SaveRewardMemory persists a reward memory snapshot under the opaque key.
func (s *SnapshotStore) SaveRewardMemory(ctx context.Context, key string, memory map[string]adaptive.Memory) error {
	return s.save(ctx, fmt.Sprintf("%s:%s", rewardKeyPrefix, key), memory)
}

// LoadRewardMemory restores a reward memory snapshot; missing keys come back
// empty.
func (s *SnapshotStore) LoadRewardMemory(ctx context.Context, key string) (map[string]adaptive.Memory, error) {
	memory := make(map[string]adaptive.Memory)
	err := s.load(ctx, fmt.Sprintf("%s:%s", rewardKeyPrefix, key), &memory)
	return memory, err
}

func (s *SnapshotStore) save(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot %s: %w", key, err)
	}

	s.mu.Lock()
	s.fallback[key] = data
	s.mu.Unlock()

	if s.client == nil {
		return nil
	}

	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := s.client.Set(opCtx, key, data, snapshotTTL).Err(); err != nil {
		s.redisAvailable.Store(false)
		s.logger.Warn().Err(err).Str("key", key).Msg("redis save failed, snapshot kept in memory")
		return nil
	}
	s.redisAvailable.Store(true)

	return nil
}

func (s *SnapshotStore) load(ctx context.Context, key string, out interface{}) error {
	if s.client != nil {
		opCtx, cancel := context.WithTimeout(ctx, opTimeout)
		defer cancel()

		data, err := s.client.Get(opCtx, key).Bytes()
		switch {
		case err == redis.Nil:
			return nil // Cold start
		case err != nil:
			s.redisAvailable.Store(false)
			s.logger.Warn().Err(err).Str("key", key).Msg("redis load failed, trying in-memory fallback")
		default:
			s.redisAvailable.Store(true)
			if err := json.Unmarshal(data, out); err != nil {
				return fmt.Errorf("failed to unmarshal snapshot %s: %w", key, err)
			}
			return nil
		}
	}

	s.mu.RLock()
	data, ok := s.fallback[key]
	s.mu.RUnlock()
	if !ok {
		return nil // Treated as empty
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to unmarshal snapshot %s: %w", key, err)
	}
	return nil
}

// RedisAvailable reports whether the last Redis operation succeeded.
func (s *SnapshotStore) RedisAvailable() bool {
	return s.redisAvailable.Load()
}
