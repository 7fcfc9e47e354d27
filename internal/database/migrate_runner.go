package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"readit/internal/middleware"

	"gorm.io/gorm"
)

// MigrationLog records one applied migration.
type MigrationLog struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:255;not null"`
	AppliedAt time.Time `gorm:"autoCreateTime"`
}

// TableName returns the database table name for MigrationLog.
func (MigrationLog) TableName() string {
	return "migration_logs"
}

// Migrator applies and reverts catalog migrations against db, tracking
// progress in migration_logs.
type Migrator struct {
	db      *gorm.DB
	catalog *Catalog
}

// NewMigrator binds catalog to db.
func NewMigrator(db *gorm.DB, catalog *Catalog) *Migrator {
	return &Migrator{db: db, catalog: catalog}
}

// Applied lists recorded versions in ascending order. A database that has
// never been migrated has no log table and reports nothing applied.
func (m *Migrator) Applied(ctx context.Context) ([]int, error) {
	var versions []int
	err := m.db.WithContext(ctx).Model(&MigrationLog{}).Order("version").Pluck("version", &versions).Error
	if err != nil {
		if isMissingTable(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	return versions, nil
}

func isMissingTable(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "no such table") ||
		(strings.Contains(msg, "relation") && strings.Contains(msg, "does not exist"))
}

// Up applies every pending migration in version order and returns the ones
// it ran. It refuses to run when the log names versions this build lacks.
func (m *Migrator) Up(ctx context.Context) ([]Migration, error) {
	if err := m.db.WithContext(ctx).AutoMigrate(&MigrationLog{}); err != nil {
		return nil, fmt.Errorf("create migration log: %w", err)
	}

	applied, err := m.Applied(ctx)
	if err != nil {
		return nil, err
	}
	if err := unknownVersionsError(m.catalog.Unknown(applied)); err != nil {
		return nil, err
	}

	var ran []Migration
	for _, mig := range m.catalog.Pending(applied) {
		if err := m.apply(ctx, mig); err != nil {
			return ran, err
		}
		ran = append(ran, mig)
	}
	return ran, nil
}

// apply runs the up script and its log entry in one transaction.
func (m *Migrator) apply(ctx context.Context, mig Migration) error {
	start := time.Now()
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(mig.UpScript).Error; err != nil {
			return fmt.Errorf("apply %s: %w", mig, err)
		}
		return tx.Create(&MigrationLog{Version: mig.Version, Name: mig.Name}).Error
	})
	if err != nil {
		return err
	}
	middleware.Logger.Info("migration applied",
		slog.String("migration", mig.String()),
		slog.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// Down reverts one applied migration and drops its log entry.
func (m *Migrator) Down(ctx context.Context, version int) error {
	mig, ok := m.catalog.Lookup(version)
	if !ok {
		return fmt.Errorf("migration %06d is not part of this build", version)
	}

	var logged int64
	if err := m.db.WithContext(ctx).Model(&MigrationLog{}).Where("version = ?", version).Count(&logged).Error; err != nil {
		return fmt.Errorf("check migration %s: %w", mig, err)
	}
	if logged == 0 {
		return fmt.Errorf("migration %s has not been applied", mig)
	}

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(mig.DownScript).Error; err != nil {
			return fmt.Errorf("revert %s: %w", mig, err)
		}
		return tx.Where("version = ?", version).Delete(&MigrationLog{}).Error
	})
	if err != nil {
		return err
	}
	middleware.Logger.Info("migration reverted", slog.String("migration", mig.String()))
	return nil
}

func unknownVersionsError(unknown []int) error {
	if len(unknown) == 0 {
		return nil
	}
	parts := make([]string, len(unknown))
	for i, v := range unknown {
		parts[i] = fmt.Sprintf("%06d", v)
	}
	return fmt.Errorf("migration_logs contains versions unknown to this build: %s", strings.Join(parts, ", "))
}
