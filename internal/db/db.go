package db

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var conn *gorm.DB

// Init opens the registry database. The default driver is sqlite with the
// DSN interpreted as a file path; driver "mysql" expects a full DSN.
func Init(driver, dsn string) error {
	var (
		database *gorm.DB
		err      error
	)

	gormCfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	switch driver {
	case "", "sqlite":
		database, err = gorm.Open(sqlite.Open(dsn), gormCfg)
	case "mysql":
		database, err = gorm.Open(mysql.Open(dsn), gormCfg)
	default:
		return fmt.Errorf("unsupported database driver: %s", driver)
	}
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := database.DB()
	if err != nil {
		return fmt.Errorf("failed to get database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	conn = database
	log.Printf("✓ Database connected (driver=%s)", driverName(driver))
	return nil
}

// Get returns the shared database handle
func Get() *gorm.DB {
	return conn
}

// Close closes the underlying database connection
func Close() error {
	if conn == nil {
		return nil
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func driverName(driver string) string {
	if driver == "" {
		return "sqlite"
	}
	return driver
}
