package domain

import "time"

// Event is a durable span of one continuous activity. Timestamp is the start
// of the span and Timestamp + Duration its last-known-live instant; Duration
// keeps growing while the daemon observes the same activity and is only final
// once the event stops being extended.
type Event struct {
	ID           int64     `json:"id"`
	DeviceID     string    `json:"device_id"`
	Timestamp    time.Time `json:"timestamp"`
	Duration     float64   `json:"duration"` // seconds
	App          string    `json:"app"`
	Title        string    `json:"title"`
	URL          *string   `json:"url,omitempty"`
	URLDomain    *string   `json:"url_domain,omitempty"`
	CategoryID   *int64    `json:"category_id,omitempty"`
	CategoryName *string   `json:"category_name,omitempty"`
	IsAFK        bool      `json:"is_afk"`
}

// Snapshot is a single point-in-time observation of current user activity,
// produced by a watcher. Snapshots are never persisted directly; the
// heartbeat segmenter folds them into events.
type Snapshot struct {
	App       string
	Title     string
	URL       *string
	URLDomain *string
	IsAFK     bool
}
