// Command migrate inspects and changes the database schema outside the server.
//
//	migrate up            apply pending SQL migrations
//	migrate auto          run gorm AutoMigrate for the forum models
//	migrate status        print the schema plan and pending migrations
//	migrate down VERSION  revert one migration
//	migrate verify        check the vote ledger for rows that break its rules
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"readit/internal/config"
	"readit/internal/database"
	"readit/internal/middleware"

	"gorm.io/gorm"
)

type command func(ctx context.Context, db *gorm.DB, cfg *config.Config, args []string) error

var commands = map[string]command{
	"up":     up,
	"auto":   auto,
	"status": status,
	"down":   down,
	"verify": verify,
}

var errUsage = errors.New("usage: migrate <up|auto|status|down VERSION|verify>")

func main() {
	flag.Parse()
	if err := run(context.Background(), flag.Args()); err != nil {
		middleware.Logger.Error("migrate failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, ok := commands[strings.ToLower(args[0])]
	if !ok {
		return errUsage
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	db, err := database.ConnectWithOptions(ctx, cfg, database.ConnectOptions{})
	if err != nil {
		return err
	}
	return cmd(ctx, db, cfg, args[1:])
}

func embedded(db *gorm.DB) (*database.Migrator, error) {
	catalog, err := database.EmbeddedCatalog()
	if err != nil {
		return nil, err
	}
	return database.NewMigrator(db, catalog), nil
}

func up(ctx context.Context, db *gorm.DB, _ *config.Config, _ []string) error {
	m, err := embedded(db)
	if err != nil {
		return err
	}
	ran, err := m.Up(ctx)
	if err != nil {
		return err
	}
	middleware.Logger.Info("sql migrations up to date", slog.Int("applied_now", len(ran)))
	return nil
}

func auto(ctx context.Context, db *gorm.DB, cfg *config.Config, _ []string) error {
	cfg.DBSchemaMode = string(database.SchemaModeAuto)
	if err := database.ApplySchema(ctx, db, cfg); err != nil {
		return err
	}
	middleware.Logger.Info("automigrate finished")
	return nil
}

func status(ctx context.Context, db *gorm.DB, cfg *config.Config, _ []string) error {
	st, err := database.GetSchemaStatus(ctx, db, cfg)
	if err != nil {
		return err
	}
	middleware.Logger.Info("schema status",
		slog.String("mode", string(st.Mode)),
		slog.String("env", st.Environment),
		slog.Bool("sql", st.SQL),
		slog.Bool("automigrate", st.AutoMigrate),
		slog.Int("applied", len(st.Applied)),
		slog.Int("pending", len(st.Pending)),
	)
	for _, m := range st.Pending {
		middleware.Logger.Info("pending migration", slog.String("migration", m.String()))
	}
	return nil
}

func down(ctx context.Context, db *gorm.DB, _ *config.Config, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	version, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid version %q: %w", args[0], err)
	}
	m, err := embedded(db)
	if err != nil {
		return err
	}
	return m.Down(ctx, version)
}

func verify(ctx context.Context, db *gorm.DB, _ *config.Config, _ []string) error {
	report, err := database.VerifyVoteLedger(ctx, db)
	if err != nil {
		return err
	}
	attrs := []any{
		slog.Int64("votes", report.Votes),
		slog.Int64("out_of_range", report.OutOfRange),
		slog.Int64("bad_target", report.BadTarget),
		slog.Int64("duplicate_post", report.DuplicatePost),
		slog.Int64("duplicate_comment", report.DuplicateComment),
		slog.Int64("orphaned_post", report.OrphanedPost),
		slog.Int64("orphaned_comment", report.OrphanedComment),
	}
	if !report.Clean() {
		middleware.Logger.Warn("vote ledger has violations", attrs...)
		return errors.New("vote ledger verification failed")
	}
	middleware.Logger.Info("vote ledger is consistent", attrs...)
	return nil
}
