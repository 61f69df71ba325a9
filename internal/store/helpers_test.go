package store_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	_ "github.com/tursodatabase/go-libsql"

	"timely/internal/database"
	"timely/internal/domain"
	"timely/internal/store"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("libsql", "file::memory:?cache=shared")
	require.NoError(t, err, "open in-memory database")

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	require.NoError(t, err, "enable foreign keys")

	require.NoError(t, database.Migrate(context.Background(), db), "run migrations")

	t.Cleanup(func() {
		// Drop everything: cache=shared keeps the memory database alive
		// across connections, so tests would otherwise see each other's rows.
		for _, table := range []string{"sync_log", "events", "category_rules", "categories", "devices", "config"} {
			_, _ = db.Exec("DELETE FROM " + table)
		}
		_ = db.Close()
	})
	return db
}

func testDevice(t *testing.T, db *sql.DB, name string) *domain.Device {
	t.Helper()
	d, err := store.NewDeviceRepository(db).GetOrCreate(context.Background(), name, "linux")
	require.NoError(t, err)
	return d
}

func insertEvent(t *testing.T, events *store.EventRepository, deviceID string, ts time.Time, app, title string) int64 {
	t.Helper()
	id, err := events.Insert(context.Background(), &domain.Event{
		DeviceID:  deviceID,
		Timestamp: ts,
		App:       app,
		Title:     title,
	})
	require.NoError(t, err)
	return id
}
