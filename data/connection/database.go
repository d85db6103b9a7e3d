package connection

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/ncobase/pulse/data/config"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// sqlDrivers maps configured driver names to registered database/sql drivers
var sqlDrivers = map[string]string{
	"postgres":   "pgx",
	"postgresql": "pgx",
	"pgx":        "pgx",
	"mysql":      "mysql",
	"sqlite":     "sqlite3",
	"sqlite3":    "sqlite3",
}

// SQLDriverName resolves the database/sql driver for a configured driver
func SQLDriverName(driver string) (string, error) {
	name, ok := sqlDrivers[driver]
	if !ok {
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
	return name, nil
}

// NewDB opens a database connection pool. No connection is made until the
// pool is first used.
func NewDB(conf *config.Database) (*sql.DB, error) {
	if conf == nil || conf.Source == "" {
		return nil, errors.New("database configuration is nil or empty")
	}

	driver, err := SQLDriverName(conf.Driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, conf.Source)
	if err != nil {
		return nil, fmt.Errorf("database open error: %w", err)
	}

	if conf.MaxOpenConn > 0 {
		db.SetMaxOpenConns(conf.MaxOpenConn)
	}
	if conf.MaxIdleConn > 0 {
		db.SetMaxIdleConns(conf.MaxIdleConn)
	}
	if conf.ConnMaxLifeTime > 0 {
		db.SetConnMaxLifetime(conf.ConnMaxLifeTime)
	}

	return db, nil
}
