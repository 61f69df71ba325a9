package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timely/internal/store"
)

func TestGetOrCreateIsStable(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	devices := store.NewDeviceRepository(db)

	first, err := devices.GetOrCreate(ctx, "laptop", "linux")
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)

	second, err := devices.GetOrCreate(ctx, "laptop", "linux")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "same (name, platform) resolves to the same identity")

	other, err := devices.GetOrCreate(ctx, "laptop", "macos")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID, "platform is part of the lookup key")
}

func TestUpsertRemoteIsIdempotent(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	devices := store.NewDeviceRepository(db)

	require.NoError(t, devices.UpsertRemote(ctx, "remote-1", "desktop", "macos"))
	require.NoError(t, devices.UpsertRemote(ctx, "remote-1", "desktop-renamed", "macos"))

	all, err := devices.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "remote-1", all[0].ID)
	assert.Equal(t, "desktop-renamed", all[0].Name, "upsert replaces the name")
}

func TestListWithEventCounts(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	devices := store.NewDeviceRepository(db)
	events := store.NewEventRepository(db)

	a := testDevice(t, db, "alpha")
	testDevice(t, db, "beta")
	insertEvent(t, events, a.ID, time.Now().UTC(), "Code", "main.go")
	insertEvent(t, events, a.ID, time.Now().UTC().Add(time.Minute), "Code", "other.go")

	counts, err := devices.ListWithEventCounts(ctx)
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, "alpha", counts[0].Device.Name)
	assert.EqualValues(t, 2, counts[0].EventCount)
	assert.EqualValues(t, 0, counts[1].EventCount)

	total, err := devices.TotalEventCount(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
}

func TestSyncCursor(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	synclog := store.NewSyncLogRepository(db)

	cursor, err := synclog.Cursor(ctx, "dev-1")
	require.NoError(t, err)
	assert.EqualValues(t, 0, cursor, "unsynced device starts at 0")

	require.NoError(t, synclog.Advance(ctx, "dev-1", 42))
	require.NoError(t, synclog.Advance(ctx, "dev-1", 99))

	cursor, err = synclog.Cursor(ctx, "dev-1")
	require.NoError(t, err)
	assert.EqualValues(t, 99, cursor)

	log, err := synclog.Get(ctx, "dev-1")
	require.NoError(t, err)
	require.NotNil(t, log)
	assert.EqualValues(t, 99, log.LastSyncedEventID)
	assert.False(t, log.LastSyncAt.IsZero())
}

func TestSettings(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	settings := store.NewSettingsRepository(db)

	_, ok, err := settings.Get(ctx, store.SettingHubURL)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, settings.Set(ctx, store.SettingHubURL, "http://hub:8080"))
	require.NoError(t, settings.Set(ctx, store.SettingHubURL, "http://hub:9090"))

	v, ok, err := settings.Get(ctx, store.SettingHubURL)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "http://hub:9090", v)

	deleted, err := settings.Delete(ctx, store.SettingHubURL)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = settings.Delete(ctx, store.SettingHubURL)
	require.NoError(t, err)
	assert.False(t, deleted)
}
