package datastore

import (
	"fmt"
	"path/filepath"

	"github.com/salim-benhamadi/FLOW/internal/conf"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// SQLiteStore implements DataStore for SQLite
type SQLiteStore struct {
	DataStore
	Settings *conf.Settings
}

func validateSQLiteConfig(settings *conf.Settings) error {
	if settings.Output.SQLite.Path == "" {
		return validationError("sqlite path is empty", "output.sqlite.path", "")
	}
	return nil
}

// Open sets up the SQLite database connection and runs migrations
func (store *SQLiteStore) Open() error {
	if err := validateSQLiteConfig(store.Settings); err != nil {
		return err
	}

	dir, fileName := filepath.Split(store.Settings.Output.SQLite.Path)
	basePath := conf.GetBasePath(dir)
	absoluteFilePath := filepath.Join(basePath, fileName)

	// WAL keeps readers unblocked during writes; the busy timeout gives
	// concurrent writers a chance instead of failing immediately
	dsn := absoluteFilePath + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON"

	newLogger := createGormLogger(store.metrics)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: newLogger})
	if err != nil {
		return dbError(err, "open_sqlite", "", "path", absoluteFilePath)
	}

	store.DB = db
	return performAutoMigration(db, store.Settings.Debug, "SQLite", absoluteFilePath)
}

// Close closes the SQLite database connection
func (store *SQLiteStore) Close() error {
	if store.DB == nil {
		return fmt.Errorf("database connection is not initialized")
	}

	sqlDB, err := store.DB.DB()
	if err != nil {
		return dbError(err, "close_sqlite", "")
	}
	return sqlDB.Close()
}
