// Package networkdb persists network snapshots in SQLite so that the service can
// start from the last imported network without re-reading a GTFS feed.
package networkdb

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // CGo-based SQLite driver
	"tripsearch.onebusaway.org/internal/appconf"
	"tripsearch.onebusaway.org/internal/logging"
)

//go:embed schema.sql
var ddl string

// Client reads and writes network snapshots.
type Client struct {
	config Config
	db     *sqlx.DB
	logger *slog.Logger
}

// NewClient opens the database and applies the schema.
func NewClient(config Config) (*Client, error) {
	db, err := createDB(config)
	if err != nil {
		return nil, fmt.Errorf("unable to create DB: %w", err)
	}

	logger := slog.Default().With(slog.String("component", "networkdb"))
	if config.verbose {
		logging.LogOperation(logger, "network_db_ready", slog.String("path", config.DBPath))
	}

	return &Client{config: config, db: db, logger: logger}, nil
}

// Close closes the database.
func (c *Client) Close() error {
	return c.db.Close()
}

// DB exposes the connection pool for statistics collection.
func (c *Client) DB() *sql.DB {
	return c.db.DB
}

func (c *Client) GetDBPath() string {
	return c.config.DBPath
}

func createDB(config Config) (*sqlx.DB, error) {
	if config.Env == appconf.Test && config.DBPath != ":memory:" {
		return nil, fmt.Errorf("test database must use in-memory storage, got path: %s", config.DBPath)
	}

	db, err := sqlx.Open("sqlite3", dataSourceName(config.DBPath))
	if err != nil {
		return nil, err
	}
	configureConnectionPool(db.DB, config)

	ctx := context.Background()
	if err := configureSQLite(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("error configuring SQLite: %w", err)
	}
	if err := performDatabaseMigration(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("error performing database migration: %w", err)
	}

	return db, nil
}

// dataSourceName lets file databases serve snapshot reads while an import is
// being written.
func dataSourceName(path string) string {
	if path == ":memory:" {
		return path
	}
	return path + "?_journal_mode=WAL&_busy_timeout=5000"
}

func performDatabaseMigration(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range strings.Split(ddl, "-- migrate") {
		trimmed := strings.TrimSpace(stmt)
		if trimmed == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, trimmed); err != nil {
			return fmt.Errorf("error executing DDL statement [%s]: %w", trimmed, err)
		}
	}
	return nil
}

func configureSQLite(ctx context.Context, db *sqlx.DB) error {
	pragmas := []string{
		"PRAGMA cache_size=-16000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}
	return nil
}

func configureConnectionPool(db *sql.DB, config Config) {
	// every connection to ":memory:" opens its own empty database
	if config.DBPath == ":memory:" {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		return
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)
}
