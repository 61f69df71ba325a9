package domain

import "time"

// Device identifies one machine contributing events. The id is a stable
// random identifier minted on first run; (Name, Platform) is only used for
// the local lookup, remote devices are keyed by id.
type Device struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Platform string    `json:"platform"`
	LastSync time.Time `json:"last_sync"`
}

// SyncLog is the durable push cursor for one device: the last event id the
// hub has acknowledged. At most one row per device.
type SyncLog struct {
	DeviceID          string    `json:"device_id"`
	LastSyncedEventID int64     `json:"last_synced_event_id"`
	LastSyncAt        time.Time `json:"last_sync_at"`
}
