package database

import (
	"context"
	"fmt"
	stdlog "log"
	"time"

	"project-management-api/internal/config"
	"project-management-api/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB is the persistence handle injected into every component that touches storage.
type DB struct {
	conn *gorm.DB
	log  zerolog.Logger
}

// Open connects using the configured driver and prepares join tables.
func Open(cfg config.DatabaseConfig, log zerolog.Logger) (*DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite":
		// glebarez/sqlite is a pure Go implementation (no CGO required)
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger:         NewGormLogger(log, cfg.LogLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	return New(conn, log)
}

// New wraps an already opened GORM connection.
func New(conn *gorm.DB, log zerolog.Logger) (*DB, error) {
	if err := setupJoinTables(conn); err != nil {
		return nil, err
	}
	return &DB{conn: conn, log: log.With().Str("component", "database").Logger()}, nil
}

func setupJoinTables(conn *gorm.DB) error {
	joins := []struct {
		model any
		field string
		join  any
	}{
		{&models.Task{}, "Labels", &models.TaskLabel{}},
		{&models.Task{}, "Tags", &models.TaskTag{}},
		{&models.Milestone{}, "Assignees", &models.MilestoneAssignee{}},
		{&models.Project{}, "Members", &models.ProjectMember{}},
	}
	for _, j := range joins {
		if err := conn.SetupJoinTable(j.model, j.field, j.join); err != nil {
			return fmt.Errorf("setting up join table for %s: %w", j.field, err)
		}
	}
	return nil
}

// NewGormLogger routes SQL logging into zerolog.
func NewGormLogger(log zerolog.Logger, level string) logger.Interface {
	lvl := logger.Warn
	switch level {
	case "silent":
		lvl = logger.Silent
	case "error":
		lvl = logger.Error
	case "info":
		lvl = logger.Info
	}
	w := log.With().Str("component", "gorm").Logger()
	return logger.New(stdlog.New(w, "", 0), logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  lvl,
		IgnoreRecordNotFoundError: true,
	})
}

// Migrate creates or updates the schema for every model.
func (d *DB) Migrate(ctx context.Context) error {
	if err := d.conn.WithContext(ctx).AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	d.log.Info().Msg("database migrated")
	return nil
}

// Conn returns the raw connection bound to ctx. Prefer Do/Transaction, which
// classify errors and retry stale connections.
func (d *DB) Conn(ctx context.Context) *gorm.DB {
	return d.conn.WithContext(ctx)
}

// Ping checks the connection.
func (d *DB) Ping(ctx context.Context) error {
	sqlDB, err := d.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection
func (d *DB) Close() error {
	sqlDB, err := d.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
