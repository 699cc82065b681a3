package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"qrattend/internal/config"
)

// DB binds the stores to one of the two deployment backends. Repositories
// write queries with '?' placeholders and rebind through sqlx, so nothing
// above this package knows whether Postgres or SQLite is live.
type DB struct {
	Client *sqlx.DB
	Mode   string
}

// Open connects to the backend selected by cfg.Mode and bootstraps the schema.
// Switching modes never migrates data; each backend is an independent store.
func Open(cfg config.App) (*DB, error) {
	switch cfg.Mode {
	case config.ModeNetworked:
		return openPostgres(cfg.DatabaseURL)
	case config.ModeLocal:
		return openSQLite(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown deployment mode %q", cfg.Mode)
	}
}

func openPostgres(connString string) (*DB, error) {
	db, err := sqlx.Open("pgx", connString)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	d := &DB{Client: db, Mode: config.ModeNetworked}
	if err := d.bootstrap(schemaPostgres); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

func openSQLite(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sqlx.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	d := &DB{Client: db, Mode: config.ModeLocal}
	if err := d.bootstrap(schemaSQLite); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

func (d *DB) bootstrap(schema string) error {
	if _, err := d.Client.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Rebind translates '?' placeholders to the active dialect.
func (d *DB) Rebind(query string) string {
	return d.Client.Rebind(query)
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	if d == nil || d.Client == nil {
		return nil
	}
	return d.Client.Close()
}
