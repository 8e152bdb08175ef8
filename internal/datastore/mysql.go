package datastore

import (
	"fmt"
	"net"

	sqldriver "github.com/go-sql-driver/mysql"
	"github.com/salim-benhamadi/FLOW/internal/conf"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// MySQLStore implements DataStore for MySQL
type MySQLStore struct {
	DataStore
	Settings *conf.Settings
}

func validateMySQLConfig(settings *conf.Settings) error {
	if settings.Output.MySQL.Host == "" {
		return validationError("mysql host is empty", "output.mysql.host", "")
	}
	if settings.Output.MySQL.Database == "" {
		return validationError("mysql database is empty", "output.mysql.database", "")
	}
	return nil
}

// buildMySQLDSN assembles the connection string from configuration.
func buildMySQLDSN(settings *conf.Settings) string {
	cfg := sqldriver.NewConfig()
	cfg.User = settings.Output.MySQL.Username
	cfg.Passwd = settings.Output.MySQL.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(settings.Output.MySQL.Host, settings.Output.MySQL.Port)
	cfg.DBName = settings.Output.MySQL.Database
	cfg.ParseTime = true
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}

// Open sets up the MySQL database connection and runs migrations
func (store *MySQLStore) Open() error {
	if err := validateMySQLConfig(store.Settings); err != nil {
		return err
	}

	dsn := buildMySQLDSN(store.Settings)
	newLogger := createGormLogger(store.metrics)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{Logger: newLogger})
	if err != nil {
		getLogger().Error("Failed to open MySQL database",
			"host", store.Settings.Output.MySQL.Host,
			"port", store.Settings.Output.MySQL.Port,
			"database", store.Settings.Output.MySQL.Database,
			"error", err)
		return dbError(err, "open_mysql", "",
			"host", store.Settings.Output.MySQL.Host,
			"database", store.Settings.Output.MySQL.Database)
	}

	store.DB = db
	return performAutoMigration(db, store.Settings.Debug, "MySQL", store.Settings.Output.MySQL.Host)
}

// Close closes the MySQL database connections
func (store *MySQLStore) Close() error {
	if store.DB == nil {
		return fmt.Errorf("database connection is not initialized")
	}

	sqlDB, err := store.DB.DB()
	if err != nil {
		getLogger().Error("Failed to retrieve generic DB object", "error", err)
		return dbError(err, "close_mysql", "")
	}

	if err := sqlDB.Close(); err != nil {
		getLogger().Error("Failed to close MySQL database", "error", err)
		return dbError(err, "close_mysql", "")
	}

	if store.Settings.Debug {
		getLogger().Debug("MySQL database connection closed successfully")
	}
	return nil
}
