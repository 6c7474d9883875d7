// Package database opens the SQL connection pool, runs migrations and scopes transactions.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const pingTimeout = 10 * time.Second

// Config is the pool configuration taken from the DB_* environment variables.
type Config struct {
	Driver             string
	ConnectionString   string
	MaxOpenConnections int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// Connect opens a pool for cfg.Driver and verifies it answers within pingTimeout.
//
// SQLite pools are pinned to one connection: writes are serialized and ":memory:" databases
// survive for the life of the pool.
func Connect(cfg Config) (*sql.DB, error) {
	dialect, err := ParseDialect(cfg.Driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(cfg.Driver, cfg.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}

	maxOpen, maxIdle, lifetime := cfg.MaxOpenConnections, cfg.MaxIdleConnections, cfg.ConnMaxLifetime
	if dialect == SQLite {
		maxOpen, maxIdle, lifetime = 1, 1, 0
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(lifetime)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect, err)
	}

	return db, nil
}
