package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/briefing-buddy/backend/internal/config"
)

// Open builds the configured Store. The returned close function releases the
// database handle, if any.
func Open(cfg config.StorageConfig) (Store, func() error, error) {
	if cfg.Driver == "memory" {
		return NewMemoryStore(cfg.MaxValueBytes), func() error { return nil }, nil
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, nil, err
	}

	sqlDB, err := migrate(db)
	if err != nil {
		return nil, nil, err
	}
	return NewGormStore(db, cfg.MaxValueBytes), sqlDB.Close, nil
}

// migrate applies the schema and returns the underlying handle. The handle is
// closed when migration fails.
func migrate(db *gorm.DB) (*sql.DB, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	if err := GetMigrator(db).Migrate(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return sqlDB, nil
}

func openDB(cfg config.StorageConfig) (*gorm.DB, error) {
	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}

	switch cfg.Driver {
	case "sqlite":
		if dir := filepath.Dir(cfg.DSN); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
		db, err := gorm.Open(sqlite.Open(cfg.DSN), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("connect sqlite: %w", err)
		}
		return db, nil
	case "postgres":
		db, err := gorm.Open(postgres.Open(cfg.DSN), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}
