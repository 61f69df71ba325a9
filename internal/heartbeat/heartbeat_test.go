package heartbeat_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "github.com/tursodatabase/go-libsql"

	"timely/internal/categorize"
	"timely/internal/database"
	"timely/internal/domain"
	"timely/internal/heartbeat"
	"timely/internal/store"
)

type fixture struct {
	db        *sql.DB
	segmenter *heartbeat.Segmenter
	events    *store.EventRepository
	deviceID  string
}

func setup(t *testing.T) *fixture {
	t.Helper()

	db, err := sql.Open("libsql", "file::memory:?cache=shared")
	require.NoError(t, err)
	_, err = db.Exec("PRAGMA foreign_keys = ON")
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, database.Migrate(ctx, db))
	t.Cleanup(func() {
		for _, table := range []string{"sync_log", "events", "category_rules", "categories", "devices", "config"} {
			_, _ = db.Exec("DELETE FROM " + table)
		}
		_ = db.Close()
	})

	cats := store.NewCategoryRepository(db)
	require.NoError(t, categorize.Seed(ctx, cats))

	device, err := store.NewDeviceRepository(db).GetOrCreate(ctx, "test-box", "linux")
	require.NoError(t, err)

	events := store.NewEventRepository(db)
	return &fixture{
		db:        db,
		segmenter: heartbeat.NewSegmenter(events, cats),
		events:    events,
		deviceID:  device.ID,
	}
}

func (f *fixture) eventCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.QueryRow(
		`SELECT COUNT(*) FROM events WHERE device_id = ?`, f.deviceID).Scan(&n))
	return n
}

func (f *fixture) process(t *testing.T, ctx context.Context, snap domain.Snapshot, at time.Time) heartbeat.Outcome {
	t.Helper()
	outcome, err := f.segmenter.Process(ctx, f.deviceID, snap, at)
	require.NoError(t, err)
	return outcome
}

func snapshot(app, title string) domain.Snapshot {
	return domain.Snapshot{App: app, Title: title}
}

func TestFirstHeartbeatCreatesEvent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	f.process(t, ctx, snapshot("Code", "main.go"), now)

	last, err := f.events.GetLast(ctx, f.deviceID)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, "Code", last.App)
	assert.Equal(t, now, last.Timestamp)
	assert.Equal(t, 0.0, last.Duration)
}

func TestSameActivityWithinGapExtends(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	snap := snapshot("Code", "main.go")

	assert.Equal(t, heartbeat.Started, f.process(t, ctx, snap, now))
	assert.Equal(t, heartbeat.Extended, f.process(t, ctx, snap, now.Add(5*time.Second)))
	assert.Equal(t, heartbeat.Extended, f.process(t, ctx, snap, now.Add(10*time.Second)))

	assert.EqualValues(t, 1, f.eventCount(t), "continuous activity stays one event")

	last, err := f.events.GetLast(ctx, f.deviceID)
	require.NoError(t, err)
	assert.Equal(t, 10.0, last.Duration)
	assert.Equal(t, now, last.Timestamp, "start timestamp is unchanged by extension")
}

func TestActivityChangeSegments(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	f.process(t, ctx, snapshot("Code", "main.go"), now)
	f.process(t, ctx, snapshot("Code", "other.go"), now.Add(5*time.Second))

	assert.EqualValues(t, 2, f.eventCount(t), "title change starts a new event")
}

func TestAFKChangeSegments(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	snap := snapshot("Code", "main.go")

	f.process(t, ctx, snap, now)
	afk := snap
	afk.IsAFK = true
	f.process(t, ctx, afk, now.Add(5*time.Second))

	assert.EqualValues(t, 2, f.eventCount(t))
}

func TestGapBeyondThresholdSegments(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	snap := snapshot("Code", "main.go")

	f.process(t, ctx, snap, now)
	f.process(t, ctx, snap, now.Add(10*time.Second))

	// Daemon silent for longer than duration + merge gap: freeze the old
	// event rather than stretch it across the outage.
	outcome := f.process(t, ctx, snap, now.Add(10*time.Second+heartbeat.MergeGap+time.Second))
	assert.Equal(t, heartbeat.Started, outcome)

	assert.EqualValues(t, 2, f.eventCount(t))

	first, err := f.events.QueryAfterID(ctx, f.deviceID, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 10.0, first[0].Duration, "old duration is frozen, not extended")
}

func TestURLChangeWithinSameDomainExtends(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	urlA := "https://github.com/a"
	urlB := "https://github.com/b"
	dom := "github.com"
	snapA := domain.Snapshot{App: "Firefox", Title: "GitHub", URL: &urlA, URLDomain: &dom}
	snapB := domain.Snapshot{App: "Firefox", Title: "GitHub", URL: &urlB, URLDomain: &dom}

	f.process(t, ctx, snapA, now)
	f.process(t, ctx, snapB, now.Add(5*time.Second))

	assert.EqualValues(t, 1, f.eventCount(t), "sub-page navigation within one site does not fragment")
}

func TestNewEventIsClassified(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	dom := "github.com"
	snap := domain.Snapshot{App: "Firefox", Title: "Pulls", URLDomain: &dom}
	f.process(t, ctx, snap, now)

	last, err := f.events.GetLast(ctx, f.deviceID)
	require.NoError(t, err)
	require.NotNil(t, last.CategoryName)
	assert.Equal(t, "work/dev", *last.CategoryName)
}

func TestUnmatchedSnapshotFallsBackToUncategorized(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	f.process(t, ctx, snapshot("SomeUnknownApp", "whatever"), now)

	last, err := f.events.GetLast(ctx, f.deviceID)
	require.NoError(t, err)
	require.NotNil(t, last.CategoryName)
	assert.Equal(t, categorize.UncategorizedName, *last.CategoryName)
}
