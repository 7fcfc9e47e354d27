// Package bootstrap brings up the process-wide dependencies shared by the
// server and the command line tools.
package bootstrap

import (
	"context"
	"fmt"

	"readit/internal/cache"
	"readit/internal/config"
	"readit/internal/database"
	"readit/internal/middleware"
	"readit/internal/observability"
	"readit/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	SeedBuiltIns bool
}

// OptionsFromConfig derives Options from SEED_ON_START.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{SeedBuiltIns: cfg.SeedOnStart}
}

// Runtime holds the connections opened by InitRuntime.
type Runtime struct {
	DB    *gorm.DB
	Redis *redis.Client
	// StopTracing flushes and stops the tracer provider.
	StopTracing func(context.Context) error
}

// InitRuntime installs the logger for the repository layer, starts tracing,
// connects to the database (bringing its schema up to date) and to redis,
// and optionally seeds the built-in communities. Redis is optional: a nil
// Redis field means the process runs without cache and pub/sub.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	observability.SetLogger(middleware.Logger)

	stopTracing, err := observability.InitTracing(ctx, TracingConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("tracing init failed: %w", err)
	}

	db, err := database.Connect(ctx, cfg)
	if err != nil {
		_ = stopTracing(ctx)
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	rt := &Runtime{
		DB:          db,
		Redis:       cache.NewClient(ctx, cfg.RedisURL),
		StopTracing: stopTracing,
	}

	if opts.SeedBuiltIns {
		if _, err := seed.Communities(ctx, db); err != nil {
			return nil, fmt.Errorf("failed to seed built-in communities: %w", err)
		}
	}

	return rt, nil
}

// TracingConfig maps the TRACING_* settings onto observability.TracingConfig.
func TracingConfig(cfg *config.Config) observability.TracingConfig {
	return observability.TracingConfig{
		ServiceName:  observability.ServiceName,
		Environment:  cfg.Env,
		Enabled:      cfg.TracingEnabled,
		Exporter:     cfg.TracingExporter,
		OTLPEndpoint: cfg.OTLPEndpoint,
		SamplerRatio: cfg.TracingSampleRatio,
	}
}
