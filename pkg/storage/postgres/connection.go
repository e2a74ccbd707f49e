package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/pressly/goose/v3"

	"github.com/platinummonkey/tasktrack/pkg/storage"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded schema migrations
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// connector opens the pool, checks it and brings the schema up to date
func connector(config storage.Config) storage.ConnectFunc[*sql.DB] {
	return func(ctx context.Context) (*sql.DB, error) {
		db, err := sql.Open("postgres", config.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres: %w", err)
		}

		db.SetMaxOpenConns(config.PostgresMaxConns)
		db.SetMaxIdleConns(config.PostgresMaxConns / 2)
		db.SetConnMaxLifetime(1 * time.Hour)
		db.SetConnMaxIdleTime(10 * time.Minute)

		timeout := config.PostgresTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		pingCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		if err := db.PingContext(pingCtx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to ping postgres: %w", err)
		}

		if err := RunMigrations(ctx, db); err != nil {
			db.Close()
			return nil, err
		}

		return db, nil
	}
}
