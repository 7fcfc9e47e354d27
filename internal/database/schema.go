package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"readit/internal/config"
	"readit/internal/middleware"

	"gorm.io/gorm"
)

// SchemaMode selects how the schema is brought up to date (DB_SCHEMA_MODE).
type SchemaMode string

const (
	// SchemaModeHybrid runs SQL migrations, then AutoMigrate outside
	// production-like environments.
	SchemaModeHybrid SchemaMode = "hybrid"
	// SchemaModeSQL runs SQL migrations only.
	SchemaModeSQL SchemaMode = "sql"
	// SchemaModeAuto runs AutoMigrate only.
	SchemaModeAuto SchemaMode = "auto"
)

// SchemaPlan is the resolved schema policy for one environment.
type SchemaPlan struct {
	Mode        SchemaMode
	Environment string
	SQL         bool
	AutoMigrate bool
}

// PlanSchema resolves cfg into a SchemaPlan. AutoMigrate alone is refused in
// production-like environments unless DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE is set.
func PlanSchema(cfg *config.Config) (SchemaPlan, error) {
	mode := SchemaMode(strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode)))
	if mode == "" {
		mode = SchemaModeHybrid
	}
	plan := SchemaPlan{Mode: mode, Environment: cfg.Env}
	prod := productionLike(cfg.Env)

	switch mode {
	case SchemaModeHybrid:
		plan.SQL, plan.AutoMigrate = true, !prod
	case SchemaModeSQL:
		plan.SQL = true
	case SchemaModeAuto:
		if prod && !cfg.DBAutoMigrateAllowDestructive {
			return plan, fmt.Errorf("DB_SCHEMA_MODE=auto is refused in %q unless DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true", cfg.Env)
		}
		plan.AutoMigrate = true
	default:
		return plan, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", mode)
	}
	return plan, nil
}

func productionLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod", "staging", "stage":
		return true
	}
	return false
}

func runAutoMigrate(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).AutoMigrate(PersistentModels()...)
}

// ApplySchema carries out the plan for cfg against db.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	plan, err := PlanSchema(cfg)
	if err != nil {
		return err
	}

	if plan.SQL {
		catalog, err := EmbeddedCatalog()
		if err != nil {
			return err
		}
		ran, err := NewMigrator(db, catalog).Up(ctx)
		if err != nil {
			return fmt.Errorf("sql migrations: %w", err)
		}
		middleware.Logger.Info("sql migrations up to date", slog.Int("applied_now", len(ran)))
	}

	if plan.AutoMigrate {
		if plan.Mode == SchemaModeAuto && productionLike(plan.Environment) {
			middleware.Logger.Warn("running AutoMigrate in a production-like environment", slog.String("env", plan.Environment))
		}
		if err := runAutoMigrate(ctx, db); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
	}
	return nil
}

// SchemaStatus is a SchemaPlan plus the migration state of the database.
type SchemaStatus struct {
	SchemaPlan
	Applied []int
	Pending []Migration
}

// GetSchemaStatus reports what ApplySchema would do against db.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	plan, err := PlanSchema(cfg)
	if err != nil {
		return nil, err
	}
	status := &SchemaStatus{SchemaPlan: plan}
	if !plan.SQL {
		return status, nil
	}

	catalog, err := EmbeddedCatalog()
	if err != nil {
		return nil, err
	}
	if status.Applied, err = NewMigrator(db, catalog).Applied(ctx); err != nil {
		return nil, err
	}
	status.Pending = catalog.Pending(status.Applied)
	return status, nil
}
