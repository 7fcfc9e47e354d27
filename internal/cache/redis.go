// Package cache provides the redis client and the cache-aside helpers used
// for read-heavy aggregates.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"readit/internal/middleware"

	"github.com/redis/go-redis/v9"
)

const connectTimeout = 5 * time.Second

// ParseAddr accepts host:port or a redis:// / rediss:// URL.
func ParseAddr(addr string) (*redis.Options, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("empty redis address")
	}
	if !strings.Contains(addr, "://") {
		return &redis.Options{Addr: addr}, nil
	}
	opts, err := redis.ParseURL(addr)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return opts, nil
}

// NewClient connects to addr and returns nil when redis is unreachable or the
// address is invalid. Every failed command except a cache miss increments
// redis_errors_total labeled with the command name.
func NewClient(ctx context.Context, addr string) *redis.Client {
	opts, err := ParseAddr(addr)
	if err != nil {
		middleware.Logger.Warn("redis disabled", "error", err)
		return nil
	}

	client := redis.NewClient(opts)
	client.AddHook(errorCounter{})

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		middleware.Logger.Warn("redis unreachable, running without cache and pub/sub", "addr", opts.Addr, "error", err)
		_ = client.Close()
		return nil
	}
	middleware.Logger.Info("redis connected", "addr", opts.Addr, "db", opts.DB)
	return client
}

type errorCounter struct{}

func countFailure(label string, err error) error {
	if err != nil && !errors.Is(err, redis.Nil) {
		middleware.RedisErrors.WithLabelValues(label).Inc()
	}
	return err
}

func (errorCounter) DialHook(next redis.DialHook) redis.DialHook { return next }

func (errorCounter) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		return countFailure(cmd.Name(), next(ctx, cmd))
	}
}

func (errorCounter) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		return countFailure("pipeline", next(ctx, cmds))
	}
}
