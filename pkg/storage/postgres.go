package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresOptions configures the PostgreSQL connection pool.
type PostgresOptions struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// Migrate creates the schema when true. Leave false when the inventory
	// tables are owned by another system.
	Migrate bool
}

// NewPostgres opens a PostgreSQL database through the pgx driver.
func NewPostgres(ctx context.Context, dsn string, opts PostgresOptions) (*SQLStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if opts.Migrate {
		if err := runMigrations(db, dialectPostgres); err != nil {
			db.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	return &SQLStore{db: db, dialect: dialectPostgres}, nil
}

// NewPostgresFromDB wraps an existing PostgreSQL handle without migrating.
func NewPostgresFromDB(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, dialect: dialectPostgres}
}
