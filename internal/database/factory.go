package database

import (
	"fmt"
	"os"
	"path/filepath"

	"ilmhub/internal/config"
	"ilmhub/internal/ilm"
)

// Database is a node store that can also reserve slugs.
type Database interface {
	ilm.Store
	ilm.SlugIndex

	// Migrate brings the schema up to date.
	Migrate() error

	// SetClock replaces the clock used for reservation timestamps.
	SetClock(c ilm.Clock)
}

// NewDatabaseFromConfig creates a Database implementation based on the database config type.
// A sqlite database must be migrated before use; memory and postgres
// databases are migrated on open.
func NewDatabaseFromConfig(cfg config.DatabaseConfig, hostID string) (Database, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
			return nil, fmt.Errorf("creating data dir: %w", err)
		}
		db, err := NewSQLiteDatabase(filepath.Join(cfg.DataDir, hostID+".db"))
		if err != nil {
			return nil, err
		}
		return db, nil
	case "memory":
		db, err := NewSQLiteDatabase(":memory:")
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			return nil, err
		}
		return db, nil
	case "postgres":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("dsn required for postgres database")
		}
		db, err := NewPostgresDatabase(cfg.DSN)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}
