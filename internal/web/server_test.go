package web_test

import (
	"bytes"
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

	"timely/internal/database"
	"timely/internal/store"
	"timely/internal/sync"
	"timely/internal/web"
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

func testHub(t *testing.T, db *sql.DB, apiKey string) *httptest.Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	ts := httptest.NewServer(web.NewServer(db, 0, apiKey, log).Handler())
	t.Cleanup(ts.Close)
	return ts
}

type envelope struct {
	OK        bool            `json:"ok"`
	Data      json.RawMessage `json:"data"`
	Error     string          `json:"error"`
	ErrorCode string          `json:"error_code"`
}

func doJSON(t *testing.T, method, url string, apiKey string, body any) (*http.Response, envelope) {
	t.Helper()
	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		payload = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, payload)
	require.NoError(t, err)
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp, env
}

func pushBody(timestamp string, duration float64) sync.PushRequest {
	return sync.PushRequest{
		Device: sync.Device{ID: "dev-1", Name: "laptop", Platform: "darwin"},
		Events: []sync.Event{{
			Timestamp: timestamp,
			Duration:  duration,
			App:       "Terminal",
			Title:     "zsh",
		}},
	}
}

func TestPushInsertsThenDeduplicates(t *testing.T) {
	db := testDB(t)
	hub := testHub(t, db, "")
	url := hub.URL + "/api/sync/push"
	body := pushBody("2026-03-01T09:00:00Z", 30)

	resp, env := doJSON(t, http.MethodPost, url, "", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, env.OK)

	var ack sync.PushResponse
	require.NoError(t, json.Unmarshal(env.Data, &ack))
	assert.Equal(t, int64(1), ack.Accepted)
	assert.Equal(t, int64(0), ack.Duplicates)

	// identical push again: one row, counted as duplicate
	_, env = doJSON(t, http.MethodPost, url, "", body)
	require.True(t, env.OK)
	require.NoError(t, json.Unmarshal(env.Data, &ack))
	assert.Equal(t, int64(0), ack.Accepted)
	assert.Equal(t, int64(1), ack.Duplicates)

	var count int64
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM events").Scan(&count))
	assert.Equal(t, int64(1), count)
}

func TestPushNeverShrinksDuration(t *testing.T) {
	db := testDB(t)
	hub := testHub(t, db, "")
	url := hub.URL + "/api/sync/push"

	for _, dur := range []float64{30, 60, 20} {
		_, env := doJSON(t, http.MethodPost, url, "", pushBody("2026-03-01T09:00:00Z", dur))
		require.True(t, env.OK)
	}

	var stored float64
	require.NoError(t, db.QueryRow("SELECT duration FROM events").Scan(&stored))
	assert.Equal(t, 60.0, stored)
}

func TestPushResolvesCategoryNames(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	cats := store.NewCategoryRepository(db)
	catID, err := cats.InsertCategory(ctx, "work/dev", nil, 1.5)
	require.NoError(t, err)

	hub := testHub(t, db, "")
	name := "work/dev"
	unknown := "no-such-category"
	req := sync.PushRequest{
		Device: sync.Device{ID: "dev-1", Name: "laptop", Platform: "darwin"},
		Events: []sync.Event{
			{Timestamp: "2026-03-01T09:00:00Z", Duration: 10, App: "Code", Title: "a", CategoryName: &name},
			{Timestamp: "2026-03-01T09:05:00Z", Duration: 10, App: "Code", Title: "b", CategoryName: &unknown},
		},
	}
	_, env := doJSON(t, http.MethodPost, hub.URL+"/api/sync/push", "", req)
	require.True(t, env.OK)

	var gotCat *int64
	require.NoError(t, db.QueryRow("SELECT category_id FROM events WHERE title = 'a'").Scan(&gotCat))
	require.NotNil(t, gotCat)
	assert.Equal(t, catID, *gotCat)

	require.NoError(t, db.QueryRow("SELECT category_id FROM events WHERE title = 'b'").Scan(&gotCat))
	assert.Nil(t, gotCat, "unknown category name lands uncategorized")
}

func TestRegisterAndStatus(t *testing.T) {
	db := testDB(t)
	hub := testHub(t, db, "")

	_, env := doJSON(t, http.MethodPost, hub.URL+"/api/sync/register", "",
		sync.RegisterRequest{DeviceID: "dev-9", Name: "desktop", Platform: "linux"})
	require.True(t, env.OK)

	var reg sync.RegisterResponse
	require.NoError(t, json.Unmarshal(env.Data, &reg))
	assert.True(t, reg.Registered)
	assert.Equal(t, "dev-9", reg.DeviceID)

	_, env = doJSON(t, http.MethodPost, hub.URL+"/api/sync/push", "", pushBody("2026-03-01T09:00:00Z", 30))
	require.True(t, env.OK)

	_, env = doJSON(t, http.MethodGet, hub.URL+"/api/sync/status", "", nil)
	require.True(t, env.OK)

	var status sync.StatusResponse
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.Equal(t, int64(1), status.TotalEvents)
	require.Len(t, status.Devices, 2)
}

func TestAPIKeyGate(t *testing.T) {
	db := testDB(t)
	hub := testHub(t, db, "secret")

	resp, env := doJSON(t, http.MethodGet, hub.URL+"/api/sync/status", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.False(t, env.OK)
	assert.Equal(t, "unauthorized", env.ErrorCode)

	resp, env = doJSON(t, http.MethodGet, hub.URL+"/api/sync/status", "wrong", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, env = doJSON(t, http.MethodGet, hub.URL+"/api/sync/status", "secret", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, env.OK)

	// health stays open even with a key configured
	healthResp, err := http.Get(hub.URL + "/health")
	require.NoError(t, err)
	defer healthResp.Body.Close()
	assert.Equal(t, http.StatusOK, healthResp.StatusCode)
}

func TestQueryEndpoints(t *testing.T) {
	db := testDB(t)
	hub := testHub(t, db, "")

	now := time.Now().UTC()
	_, env := doJSON(t, http.MethodPost, hub.URL+"/api/sync/push", "", sync.PushRequest{
		Device: sync.Device{ID: "dev-1", Name: "laptop", Platform: "darwin"},
		Events: []sync.Event{{
			Timestamp: now.Add(-time.Hour).Format(time.RFC3339),
			Duration:  1200,
			App:       "Code",
			Title:     "main.go",
		}},
	})
	require.True(t, env.OK)

	resp, env := doJSON(t, http.MethodGet, hub.URL+"/api/summary?from=2d&to=now", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, env.OK)

	resp, env = doJSON(t, http.MethodGet, hub.URL+"/api/timeline?from=2d&to=now", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, env.OK)

	resp, env = doJSON(t, http.MethodGet, hub.URL+"/api/productivity?from=2d&to=now", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, env.OK)

	resp, env = doJSON(t, http.MethodGet, hub.URL+"/api/current", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, env.OK)

	resp, env = doJSON(t, http.MethodGet, hub.URL+"/api/categories", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, env.OK)

	// an empty window is a structured no-data error
	resp, env = doJSON(t, http.MethodGet,
		hub.URL+"/api/summary?from=2020-01-01&to=2020-01-02", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.False(t, env.OK)
	assert.Equal(t, "no_data", env.ErrorCode)
}
