// Package store persists the image generation log.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// Open opens a database handle for driver using sensible pool defaults.
func Open(driver, dsn string) (*sql.DB, error) {
	switch driver {
	case DriverMySQL, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	if driver == DriverSQLite {
		// a single writer; also keeps :memory: databases on one connection
		db.SetMaxOpenConns(1)
		return db, nil
	}

	db.SetConnMaxLifetime(1 * time.Hour)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	return db, nil
}
