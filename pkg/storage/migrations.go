package storage

import (
	"database/sql"
	"fmt"
)

// Each migration is a list of statements applied in one transaction.
var sqliteMigrations = [][]string{
	// Migration 1: inventory read model and notification history
	{
		`CREATE TABLE IF NOT EXISTS warehouses (
			name             TEXT PRIMARY KEY,
			is_group         INTEGER NOT NULL DEFAULT 0,
			email_id         TEXT,
			parent_warehouse TEXT,
			disabled         INTEGER NOT NULL DEFAULT 0,
			lft              INTEGER NOT NULL DEFAULT 0,
			rgt              INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_warehouses_bounds ON warehouses(lft, rgt)`,
		`CREATE TABLE IF NOT EXISTS items (
			item_code     TEXT PRIMARY KEY,
			item_name     TEXT NOT NULL DEFAULT '',
			description   TEXT NOT NULL DEFAULT '',
			is_stock_item INTEGER NOT NULL DEFAULT 1,
			disabled      INTEGER NOT NULL DEFAULT 0,
			end_of_life   TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS reorder_rules (
			item_code             TEXT NOT NULL,
			warehouse             TEXT NOT NULL,
			warehouse_group       TEXT,
			reorder_level         NUMERIC NOT NULL DEFAULT 0,
			reorder_qty           NUMERIC NOT NULL DEFAULT 0,
			material_request_type TEXT,
			PRIMARY KEY (item_code, warehouse)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reorder_rules_warehouse ON reorder_rules(warehouse)`,
		`CREATE TABLE IF NOT EXISTS bins (
			item_code     TEXT NOT NULL,
			warehouse     TEXT NOT NULL,
			projected_qty NUMERIC NOT NULL DEFAULT 0,
			PRIMARY KEY (item_code, warehouse)
		)`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id         TEXT PRIMARY KEY,
			path       TEXT NOT NULL CHECK(path IN ('event', 'scan')),
			scope      TEXT NOT NULL,
			recipient  TEXT NOT NULL,
			item_count INTEGER NOT NULL DEFAULT 0,
			item_codes TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_created ON notifications(created_at)`,
	},
}

var postgresMigrations = [][]string{
	{
		`CREATE TABLE IF NOT EXISTS warehouses (
			name             TEXT PRIMARY KEY,
			is_group         BOOLEAN NOT NULL DEFAULT FALSE,
			email_id         TEXT,
			parent_warehouse TEXT,
			disabled         BOOLEAN NOT NULL DEFAULT FALSE,
			lft              BIGINT NOT NULL DEFAULT 0,
			rgt              BIGINT NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_warehouses_bounds ON warehouses(lft, rgt)`,
		`CREATE TABLE IF NOT EXISTS items (
			item_code     TEXT PRIMARY KEY,
			item_name     TEXT NOT NULL DEFAULT '',
			description   TEXT NOT NULL DEFAULT '',
			is_stock_item BOOLEAN NOT NULL DEFAULT TRUE,
			disabled      BOOLEAN NOT NULL DEFAULT FALSE,
			end_of_life   TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS reorder_rules (
			item_code             TEXT NOT NULL,
			warehouse             TEXT NOT NULL,
			warehouse_group       TEXT,
			reorder_level         NUMERIC NOT NULL DEFAULT 0,
			reorder_qty           NUMERIC NOT NULL DEFAULT 0,
			material_request_type TEXT,
			PRIMARY KEY (item_code, warehouse)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reorder_rules_warehouse ON reorder_rules(warehouse)`,
		`CREATE TABLE IF NOT EXISTS bins (
			item_code     TEXT NOT NULL,
			warehouse     TEXT NOT NULL,
			projected_qty NUMERIC NOT NULL DEFAULT 0,
			PRIMARY KEY (item_code, warehouse)
		)`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id         TEXT PRIMARY KEY,
			path       TEXT NOT NULL CHECK(path IN ('event', 'scan')),
			scope      TEXT NOT NULL,
			recipient  TEXT NOT NULL,
			item_count INTEGER NOT NULL DEFAULT 0,
			item_codes TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_created ON notifications(created_at)`,
	},
}

// runMigrations applies pending schema migrations.
func runMigrations(db *sql.DB, d dialect) error {
	// Ensure migration tracking table exists
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("create migration table: %w", err)
	}

	var currentVersion int
	row := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("check migration version: %w", err)
	}

	migrations := d.migrations()
	for i := currentVersion; i < len(migrations); i++ {
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", i+1, err)
		}

		for _, stmt := range migrations[i] {
			if _, err := tx.Exec(stmt); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("run migration %d: %w", i+1, err)
			}
		}

		if _, err := tx.Exec(d.rebind("INSERT INTO schema_migrations (version) VALUES (?)"), i+1); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", i+1, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", i+1, err)
		}
	}

	return nil
}
