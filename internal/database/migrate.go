package database

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations are applied in order; the schema version already reached is
// tracked in PRAGMA user_version. Never edit an entry that has shipped, only
// append.
var migrations = [][]string{
	// v1: initial schema
	{
		`CREATE TABLE IF NOT EXISTS devices (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			platform TEXT NOT NULL,
			last_sync TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE TABLE IF NOT EXISTS categories (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			parent_id INTEGER REFERENCES categories(id),
			productivity_score REAL NOT NULL DEFAULT 0.0
		)`,
		`CREATE TABLE IF NOT EXISTS category_rules (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			category_id INTEGER NOT NULL REFERENCES categories(id),
			field TEXT NOT NULL CHECK(field IN ('app', 'title', 'url_domain')),
			pattern TEXT NOT NULL,
			is_builtin INTEGER NOT NULL DEFAULT 0,
			priority INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			device_id TEXT NOT NULL REFERENCES devices(id),
			timestamp TEXT NOT NULL,
			duration REAL NOT NULL DEFAULT 0.0,
			app TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL DEFAULT '',
			url TEXT,
			url_domain TEXT,
			category_id INTEGER REFERENCES categories(id),
			is_afk INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_events_device ON events(device_id)`,
		`CREATE INDEX IF NOT EXISTS idx_events_category ON events(category_id)`,
		`CREATE INDEX IF NOT EXISTS idx_category_rules_field ON category_rules(field, pattern)`,
		`CREATE TABLE IF NOT EXISTS config (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	},

	// v2: per-device push cursor for multi-device sync
	{
		`CREATE TABLE IF NOT EXISTS sync_log (
			device_id TEXT PRIMARY KEY,
			last_synced_event_id INTEGER NOT NULL DEFAULT 0,
			last_sync_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
	},

	// v3: the hub dedup lookup runs once per pushed event
	{
		`CREATE INDEX IF NOT EXISTS idx_events_natural_key ON events(device_id, timestamp, app, title)`,
	},
}

// Migrate applies any migrations newer than the database's current version.
func Migrate(ctx context.Context, db *sql.DB) error {
	var current int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&current); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	for i, statements := range migrations {
		version := i + 1
		if version <= current {
			continue
		}
		for _, stmt := range statements {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("apply migration %d: %w", version, err)
			}
		}
		if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", version)); err != nil {
			return fmt.Errorf("bump user_version to %d: %w", version, err)
		}
	}
	return nil
}
