package sync_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "github.com/tursodatabase/go-libsql"

	"timely/internal/apperr"
	"timely/internal/database"
	"timely/internal/domain"
	"timely/internal/store"
	"timely/internal/sync"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("libsql", "file::memory:?cache=shared")
	require.NoError(t, err)
	_, err = db.Exec("PRAGMA foreign_keys = ON")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(context.Background(), db))

	t.Cleanup(func() {
		for _, table := range []string{"sync_log", "events", "category_rules", "categories", "devices", "config"} {
			_, _ = db.Exec("DELETE FROM " + table)
		}
		_ = db.Close()
	})
	return db
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedEvents(t *testing.T, db *sql.DB, n int) (*domain.Device, *store.EventRepository) {
	t.Helper()
	ctx := context.Background()

	devices := store.NewDeviceRepository(db)
	device, err := devices.GetOrCreate(ctx, "laptop", "darwin")
	require.NoError(t, err)

	events := store.NewEventRepository(db)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		_, err := events.Insert(ctx, &domain.Event{
			DeviceID:  device.ID,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Duration:  30,
			App:       "Terminal",
			Title:     "zsh",
		})
		require.NoError(t, err)
	}
	return device, events
}

// okHub answers every push with an ok envelope and records the requests.
func okHub(t *testing.T, requests *[]sync.PushRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req sync.PushRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		*requests = append(*requests, req)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":   true,
			"data": sync.PushResponse{Accepted: int64(len(req.Events))},
		})
	}))
}

func TestPushAdvancesCursorAfterAck(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	device, events := seedEvents(t, db, 3)
	syncLog := store.NewSyncLogRepository(db)

	var requests []sync.PushRequest
	hub := okHub(t, &requests)
	defer hub.Close()

	client := sync.NewClient(hub.URL, "", events, syncLog, discardLogger())
	result, err := client.Push(ctx, device)
	require.NoError(t, err)

	assert.Equal(t, int64(3), result.Accepted)
	assert.Equal(t, int64(3), result.Pushed)
	assert.Equal(t, 1, result.Batches)
	require.Len(t, requests, 1)
	assert.Equal(t, device.ID, requests[0].Device.ID)

	cursor, err := syncLog.Cursor(ctx, device.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), cursor)

	// nothing left to push
	result, err = client.Push(ctx, device)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Batches)
}

func TestPushFailureLeavesCursorAndRetriesSameBatch(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	device, events := seedEvents(t, db, 2)
	syncLog := store.NewSyncLogRepository(db)

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok": false, "error": "storage failure", "error_code": "db_error",
		})
	}))
	defer failing.Close()

	client := sync.NewClient(failing.URL, "", events, syncLog, discardLogger())
	_, err := client.Push(ctx, device)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeDB, apperr.CodeOf(err))

	cursor, err := syncLog.Cursor(ctx, device.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), cursor, "failed push must not advance the cursor")

	var requests []sync.PushRequest
	hub := okHub(t, &requests)
	defer hub.Close()

	retry := sync.NewClient(hub.URL, "", events, syncLog, discardLogger())
	result, err := retry.Push(ctx, device)
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Pushed, "retry re-sends the whole failed batch")
}

func TestPushSerializesCategoryNames(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	devices := store.NewDeviceRepository(db)
	device, err := devices.GetOrCreate(ctx, "laptop", "darwin")
	require.NoError(t, err)

	cats := store.NewCategoryRepository(db)
	catID, err := cats.InsertCategory(ctx, "work/dev", nil, 1.5)
	require.NoError(t, err)

	events := store.NewEventRepository(db)
	_, err = events.Insert(ctx, &domain.Event{
		DeviceID:   device.ID,
		Timestamp:  time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		Duration:   120,
		App:        "Code",
		Title:      "main.go",
		CategoryID: &catID,
	})
	require.NoError(t, err)

	var requests []sync.PushRequest
	hub := okHub(t, &requests)
	defer hub.Close()

	client := sync.NewClient(hub.URL, "", events, store.NewSyncLogRepository(db), discardLogger())
	_, err = client.Push(ctx, device)
	require.NoError(t, err)

	require.Len(t, requests, 1)
	require.Len(t, requests[0].Events, 1)
	require.NotNil(t, requests[0].Events[0].CategoryName)
	assert.Equal(t, "work/dev", *requests[0].Events[0].CategoryName)
}

func TestPushSendsAPIKey(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	device, events := seedEvents(t, db, 1)

	var gotKey string
	hub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-Key")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "data": sync.PushResponse{Accepted: 1}})
	}))
	defer hub.Close()

	client := sync.NewClient(hub.URL, "secret", events, store.NewSyncLogRepository(db), discardLogger())
	_, err := client.Push(ctx, device)
	require.NoError(t, err)
	assert.Equal(t, "secret", gotKey)
}

func TestFromSettingsRequiresHubURL(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	_, err := sync.FromSettings(ctx,
		store.NewSettingsRepository(db),
		store.NewEventRepository(db),
		store.NewSyncLogRepository(db),
		discardLogger())
	require.Error(t, err)
	assert.Equal(t, apperr.CodeConfig, apperr.CodeOf(err))
}

func TestRegisterAndStatus(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	device, events := seedEvents(t, db, 1)

	hub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/sync/register":
			var req sync.RegisterRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			_ = json.NewEncoder(w).Encode(map[string]any{
				"ok":   true,
				"data": sync.RegisterResponse{DeviceID: req.DeviceID, Name: req.Name, Registered: true},
			})
		case "/api/sync/status":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"ok": true,
				"data": sync.StatusResponse{
					Devices:     []sync.DeviceStatus{{ID: device.ID, Name: "laptop", Platform: "darwin", EventCount: 1}},
					TotalEvents: 1,
				},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer hub.Close()

	client := sync.NewClient(hub.URL, "", events, store.NewSyncLogRepository(db), discardLogger())

	reg, err := client.Register(ctx, device)
	require.NoError(t, err)
	assert.True(t, reg.Registered)
	assert.Equal(t, device.ID, reg.DeviceID)

	status, err := client.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), status.TotalEvents)
	require.Len(t, status.Devices, 1)
	assert.Equal(t, "laptop", status.Devices[0].Name)
}
