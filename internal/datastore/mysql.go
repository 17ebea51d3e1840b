package datastore

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/victorakor/mall-surveillance-system/internal/conf"
)

// MySQLStore implements the datastore interface for MySQL.
type MySQLStore struct {
	DataStore
	Settings *conf.Settings
}

// Open sets up the MySQL database connection and runs migrations.
func (store *MySQLStore) Open() error {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		store.Settings.Output.MySQL.Username, store.Settings.Output.MySQL.Password,
		store.Settings.Output.MySQL.Host, store.Settings.Output.MySQL.Port,
		store.Settings.Output.MySQL.Database)

	gormLogger := createGormLogger(store.Settings.Debug)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return fmt.Errorf("failed to open MySQL database: %w", err)
	}

	store.DB = db
	return performAutoMigration(db, store.Settings.Debug, "MySQL",
		fmt.Sprintf("%s:%s/%s", store.Settings.Output.MySQL.Host,
			store.Settings.Output.MySQL.Port, store.Settings.Output.MySQL.Database))
}

// Close is a no-op, the connection pool is managed by GORM.
func (store *MySQLStore) Close() error {
	return nil
}
