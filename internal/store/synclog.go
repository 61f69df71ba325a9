package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"timely/internal/domain"
)

// SyncLogRepository persists the per-device push cursor. The cursor is the
// sole source of truth for what still needs pushing and survives restarts.
type SyncLogRepository struct {
	db *sql.DB
}

func NewSyncLogRepository(db *sql.DB) *SyncLogRepository {
	return &SyncLogRepository{db: db}
}

// Cursor returns the last event id acknowledged by the hub for this device,
// or 0 if the device has never synced.
func (r *SyncLogRepository) Cursor(ctx context.Context, deviceID string) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`SELECT last_synced_event_id FROM sync_log WHERE device_id = ?`, deviceID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read sync cursor: %w", err)
	}
	return id, nil
}

// Get returns the full sync log row for a device, or nil if absent.
func (r *SyncLogRepository) Get(ctx context.Context, deviceID string) (*domain.SyncLog, error) {
	var l domain.SyncLog
	var at string
	err := r.db.QueryRowContext(ctx,
		`SELECT device_id, last_synced_event_id, last_sync_at FROM sync_log WHERE device_id = ?`,
		deviceID).Scan(&l.DeviceID, &l.LastSyncedEventID, &at)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read sync log: %w", err)
	}
	l.LastSyncAt = parseTimeOrNow(at)
	return &l, nil
}

// Advance moves the cursor forward after a batch was acknowledged.
func (r *SyncLogRepository) Advance(ctx context.Context, deviceID string, lastEventID int64) error {
	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO sync_log (device_id, last_synced_event_id, last_sync_at)
		 VALUES (?, ?, datetime('now'))
		 ON CONFLICT(device_id) DO UPDATE SET
			last_synced_event_id = excluded.last_synced_event_id,
			last_sync_at = datetime('now')`,
		deviceID, lastEventID); err != nil {
		return fmt.Errorf("advance sync cursor: %w", err)
	}
	return nil
}
