package datastore

import (
	"fmt"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/victorakor/mall-surveillance-system/internal/conf"
)

// SQLiteStore implements the datastore interface for SQLite.
type SQLiteStore struct {
	DataStore
	Settings *conf.Settings
}

// Open sets up the SQLite database connection and runs migrations.
func (store *SQLiteStore) Open() error {
	dir, fileName := filepath.Split(store.Settings.Output.SQLite.Path)
	basePath := conf.GetBasePath(dir)
	absoluteFilePath := filepath.Join(basePath, fileName)

	gormLogger := createGormLogger(store.Settings.Debug)

	db, err := gorm.Open(sqlite.Open(absoluteFilePath), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return fmt.Errorf("failed to open SQLite database: %w", err)
	}

	store.DB = db
	return performAutoMigration(db, store.Settings.Debug, "SQLite", absoluteFilePath)
}

// Close is a no-op for SQLite, the connection pool is managed by GORM.
func (store *SQLiteStore) Close() error {
	return nil
}

// createGormLogger returns a GORM logger that stays quiet unless debug is on.
func createGormLogger(debug bool) logger.Interface {
	level := logger.Silent
	if debug {
		level = logger.Warn
	}
	return logger.Default.LogMode(level)
}
