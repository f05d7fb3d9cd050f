package db

import (
	"context"
	"fmt"
	"time"

	_ "github.com/ClickHouse/clickhouse-go/v2"
	_ "github.com/go-sql-driver/mysql"
	"github.com/jmehdipour/wa-bulk-sender/internal/config"
	"github.com/jmoiron/sqlx"
)

const (
	DriverMySQL      = "mysql"
	DriverClickHouse = "clickhouse"
)

// OpenMySQL opens the run archive, e.g. user:pass@tcp(127.0.0.1:3306)/wabulk?parseTime=true
func OpenMySQL(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	return open(DriverMySQL, cfg, 5*time.Second)
}

// OpenClickHouse opens the outcomes store, e.g. clickhouse://default:@localhost:9000/wabulk
func OpenClickHouse(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	return open(DriverClickHouse, cfg, 3*time.Second)
}

// open applies pool settings and pings once before handing the pool out.
func open(driverName string, cfg config.DatabaseConfig, defaultPing time.Duration) (*sqlx.DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("empty %s DSN", driverName)
	}
	db, err := sqlx.Open(driverName, cfg.DSN)
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	timeout := cfg.PingTimeout
	if timeout <= 0 {
		timeout = defaultPing
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s ping: %w", driverName, err)
	}

	return db, nil
}
