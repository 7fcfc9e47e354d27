package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"readit/internal/middleware"
	"readit/internal/observability"

	"github.com/redis/go-redis/v9"
)

// Store is a JSON cache over redis. A Store with a nil client is a valid
// pass-through: every lookup misses and writes are dropped.
type Store struct {
	rdb *redis.Client
}

// NewStore wraps rdb, which may be nil.
func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// Enabled reports whether a redis client is attached.
func (s *Store) Enabled() bool {
	return s != nil && s.rdb != nil
}

// GetJSON loads key into dest. It reports false on a miss.
func (s *Store) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON stores v under key for ttl.
func (s *Store) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, key, b, ttl).Err()
}

// DeleteMatching removes every key matching the glob pattern.
func (s *Store) DeleteMatching(ctx context.Context, pattern string) error {
	if !s.Enabled() {
		return nil
	}
	iter := s.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.rdb.Del(ctx, keys...).Err()
}

// InvalidateTopSubs drops every cached ranking regardless of limit.
func (s *Store) InvalidateTopSubs(ctx context.Context) {
	if err := s.DeleteMatching(ctx, topSubsKeyPattern); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to invalidate community ranking", "error", err)
	}
}

// Aside returns the cached value for key, or calls fetch and caches its
// result for ttl. Cache failures degrade to calling fetch.
func Aside[T any](ctx context.Context, s *Store, family, key string, ttl time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	var cached T
	found, err := s.GetJSON(ctx, key, &cached)
	switch {
	case err != nil:
		observability.CacheLookups.WithLabelValues(family, "error").Inc()
		middleware.Logger.WarnContext(ctx, "cache read failed", "key", key, "error", err)
	case found:
		observability.CacheLookups.WithLabelValues(family, "hit").Inc()
		return cached, nil
	case s.Enabled():
		observability.CacheLookups.WithLabelValues(family, "miss").Inc()
	}

	value, err := fetch(ctx)
	if err != nil {
		return value, err
	}
	if err := s.SetJSON(ctx, key, value, ttl); err != nil {
		middleware.Logger.WarnContext(ctx, "cache write failed", "key", key, "error", err)
	}
	return value, nil
}
