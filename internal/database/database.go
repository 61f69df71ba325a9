// Package database opens the local libsql database and applies schema
// migrations. One database file holds everything: events, categories,
// devices, sync cursors and runtime settings.
package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/tursodatabase/go-libsql"
)

// Open opens (creating if needed) the database at path and brings the schema
// up to date. The returned handle is safe for concurrent readers; writers
// are expected to follow the single-writer discipline of the daemon.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	return open(ctx, "file:"+path)
}

func open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("libsql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// A small pool: the daemon is the only writer, readers (dashboard,
	// CLI queries) share the rest under WAL.
	db.SetMaxOpenConns(5)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply %s: %w", pragma, err)
		}
	}

	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return db, nil
}
