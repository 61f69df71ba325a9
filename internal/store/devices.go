package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"timely/internal/domain"
)

// DeviceRepository resolves the local device identity and tracks identities
// announced by remote peers.
type DeviceRepository struct {
	db *sql.DB
}

func NewDeviceRepository(db *sql.DB) *DeviceRepository {
	return &DeviceRepository{db: db}
}

// GetOrCreate resolves the device identified by (name, platform), minting a
// fresh random id when the pair is unknown. A found device gets its
// last_sync refreshed.
func (r *DeviceRepository) GetOrCreate(ctx context.Context, name, platform string) (*domain.Device, error) {
	var d domain.Device
	var lastSync string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, platform, last_sync FROM devices WHERE name = ? AND platform = ?`,
		name, platform).Scan(&d.ID, &d.Name, &d.Platform, &lastSync)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		d = domain.Device{
			ID:       uuid.NewString(),
			Name:     name,
			Platform: platform,
			LastSync: time.Now().UTC(),
		}
		if _, err := r.db.ExecContext(ctx,
			`INSERT INTO devices (id, name, platform, last_sync) VALUES (?, ?, ?, ?)`,
			d.ID, d.Name, d.Platform, d.LastSync.Format(time.RFC3339)); err != nil {
			return nil, fmt.Errorf("insert device: %w", err)
		}
		return &d, nil
	case err != nil:
		return nil, fmt.Errorf("look up device: %w", err)
	}

	d.LastSync = parseTimeOrNow(lastSync)
	if _, err := r.db.ExecContext(ctx,
		`UPDATE devices SET last_sync = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339), d.ID); err != nil {
		return nil, fmt.Errorf("refresh device: %w", err)
	}
	return &d, nil
}

// UpsertRemote inserts or updates a device announced by a remote peer. The
// remote id is authoritative, so the (name, platform) lookup path is never
// consulted here.
func (r *DeviceRepository) UpsertRemote(ctx context.Context, id, name, platform string) error {
	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO devices (id, name, platform, last_sync)
		 VALUES (?, ?, ?, datetime('now'))
		 ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			platform = excluded.platform,
			last_sync = datetime('now')`,
		id, name, platform); err != nil {
		return fmt.Errorf("upsert remote device: %w", err)
	}
	return nil
}

// List returns all known devices ordered by name.
func (r *DeviceRepository) List(ctx context.Context) ([]*domain.Device, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, platform, last_sync FROM devices ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	defer rows.Close()

	var devices []*domain.Device
	for rows.Next() {
		var d domain.Device
		var lastSync string
		if err := rows.Scan(&d.ID, &d.Name, &d.Platform, &lastSync); err != nil {
			return nil, fmt.Errorf("scan device: %w", err)
		}
		d.LastSync = parseTimeOrNow(lastSync)
		devices = append(devices, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate devices: %w", err)
	}
	return devices, nil
}

// DeviceEventCount pairs a device with the number of events it has stored.
type DeviceEventCount struct {
	Device     domain.Device `json:"device"`
	EventCount int64         `json:"event_count"`
}

// ListWithEventCounts returns every device with its stored event count,
// ordered by name. Used by the hub status endpoint.
func (r *DeviceRepository) ListWithEventCounts(ctx context.Context) ([]DeviceEventCount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT d.id, d.name, d.platform, d.last_sync,
			(SELECT COUNT(*) FROM events WHERE device_id = d.id)
		 FROM devices d
		 ORDER BY d.name`)
	if err != nil {
		return nil, fmt.Errorf("list device event counts: %w", err)
	}
	defer rows.Close()

	var counts []DeviceEventCount
	for rows.Next() {
		var c DeviceEventCount
		var lastSync string
		if err := rows.Scan(&c.Device.ID, &c.Device.Name, &c.Device.Platform, &lastSync, &c.EventCount); err != nil {
			return nil, fmt.Errorf("scan device event count: %w", err)
		}
		c.Device.LastSync = parseTimeOrNow(lastSync)
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate device event counts: %w", err)
	}
	return counts, nil
}

// TotalEventCount returns the number of events stored across all devices.
func (r *DeviceRepository) TotalEventCount(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

// parseTimeOrNow tolerates the two timestamp spellings in the devices table:
// RFC3339 written by this code and sqlite's datetime('now') written by the
// upsert path.
func parseTimeOrNow(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC()
	}
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t.UTC()
	}
	return time.Now().UTC()
}
