// Package store implements the repositories over the local database:
// events, categories and rules, devices, sync cursors and settings.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"timely/internal/domain"
)

// eventColumns is the joined projection shared by every event read.
const eventColumns = `e.id, e.device_id, e.timestamp, e.duration, e.app, e.title,
	e.url, e.url_domain, e.category_id, c.name, e.is_afk`

// EventRepository is the event store: append, extend-in-place and range
// queries for the capture path, plus the hub's dedup merge.
type EventRepository struct {
	db *sql.DB

	// mergeMu serializes the lookup-then-upsert sequence of Merge so a
	// retried push racing a fresh one cannot insert the same natural key
	// twice.
	mergeMu sync.Mutex
}

func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Insert appends a new event and returns its device-local id.
func (r *EventRepository) Insert(ctx context.Context, e *domain.Event) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO events (device_id, timestamp, duration, app, title, url, url_domain, category_id, is_afk)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.DeviceID, e.Timestamp.UTC().Format(time.RFC3339), e.Duration,
		e.App, e.Title, e.URL, e.URLDomain, e.CategoryID, boolToInt(e.IsAFK),
	)
	if err != nil {
		return 0, fmt.Errorf("insert event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read event id: %w", err)
	}
	return id, nil
}

// Extend replaces the duration of an existing event. This is the only
// mutation the live-capture path performs on a stored row.
func (r *EventRepository) Extend(ctx context.Context, id int64, duration float64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE events SET duration = ? WHERE id = ?`, duration, id); err != nil {
		return fmt.Errorf("extend event %d: %w", id, err)
	}
	return nil
}

// GetLast returns the most recent event for a device, or nil if the device
// has none yet.
func (r *EventRepository) GetLast(ctx context.Context, deviceID string) (*domain.Event, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+`
		 FROM events e
		 LEFT JOIN categories c ON c.id = e.category_id
		 WHERE e.device_id = ?
		 ORDER BY e.id DESC LIMIT 1`, deviceID)
	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get last event: %w", err)
	}
	return e, nil
}

// QueryRange returns events whose start timestamp falls within [from, to],
// newest first. A limit <= 0 means no limit.
func (r *EventRepository) QueryRange(ctx context.Context, from, to time.Time, limit int64) ([]*domain.Event, error) {
	if limit <= 0 {
		limit = -1 // sqlite: negative LIMIT disables it
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+eventColumns+`
		 FROM events e
		 LEFT JOIN categories c ON c.id = e.category_id
		 WHERE e.timestamp >= ? AND e.timestamp <= ?
		 ORDER BY e.timestamp DESC
		 LIMIT ?`,
		from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339), limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

// QueryAfterID returns up to limit events with id > afterID for a device, in
// ascending id order. This is the pagination primitive of the sync push
// client.
func (r *EventRepository) QueryAfterID(ctx context.Context, deviceID string, afterID, limit int64) ([]*domain.Event, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+eventColumns+`
		 FROM events e
		 LEFT JOIN categories c ON c.id = e.category_id
		 WHERE e.device_id = ? AND e.id > ?
		 ORDER BY e.id ASC
		 LIMIT ?`, deviceID, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("query events after id: %w", err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

// UpdateCategory rewrites the category of one event (retroactive
// recategorization).
func (r *EventRepository) UpdateCategory(ctx context.Context, id, categoryID int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE events SET category_id = ? WHERE id = ?`, categoryID, id); err != nil {
		return fmt.Errorf("update event category: %w", err)
	}
	return nil
}

// RemoteEvent is one event as received from a pushing device. The timestamp
// stays the raw RFC3339 string from the wire: the natural key must compare
// byte-for-byte with what the origin device stored, not a reformatted value.
type RemoteEvent struct {
	DeviceID   string
	Timestamp  string
	Duration   float64
	App        string
	Title      string
	URL        *string
	URLDomain  *string
	CategoryID *int64
	IsAFK      bool
}

// Merge applies the hub dedup rule for one pushed event. The natural key is
// (device_id, timestamp, app, title): an unseen key is inserted and reported
// as accepted; an existing row is a duplicate, and its duration plus mutable
// fields are overwritten only when the incoming duration is strictly larger.
// The rule is commutative and repeatable, so retried or overlapping pushes
// converge without losing the longest observed duration.
func (r *EventRepository) Merge(ctx context.Context, in RemoteEvent) (accepted bool, err error) {
	r.mergeMu.Lock()
	defer r.mergeMu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin merge: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var id int64
	var stored float64
	err = tx.QueryRowContext(ctx,
		`SELECT id, duration FROM events
		 WHERE device_id = ? AND timestamp = ? AND app = ? AND title = ?`,
		in.DeviceID, in.Timestamp, in.App, in.Title).Scan(&id, &stored)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO events (device_id, timestamp, duration, app, title, url, url_domain, category_id, is_afk)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			in.DeviceID, in.Timestamp, in.Duration, in.App, in.Title,
			in.URL, in.URLDomain, in.CategoryID, boolToInt(in.IsAFK)); err != nil {
			return false, fmt.Errorf("insert pushed event: %w", err)
		}
		accepted = true
	case err != nil:
		return false, fmt.Errorf("look up natural key: %w", err)
	default:
		if in.Duration > stored {
			if _, err := tx.ExecContext(ctx,
				`UPDATE events SET duration = ?, url = ?, url_domain = ?, category_id = ?, is_afk = ?
				 WHERE id = ?`,
				in.Duration, in.URL, in.URLDomain, in.CategoryID, boolToInt(in.IsAFK), id); err != nil {
				return false, fmt.Errorf("merge pushed event: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit merge: %w", err)
	}
	return accepted, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*domain.Event, error) {
	var e domain.Event
	var ts string
	var afk int
	if err := row.Scan(&e.ID, &e.DeviceID, &ts, &e.Duration, &e.App, &e.Title,
		&e.URL, &e.URLDomain, &e.CategoryID, &e.CategoryName, &afk); err != nil {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return nil, fmt.Errorf("parse event timestamp %q: %w", ts, err)
	}
	e.Timestamp = t.UTC()
	e.IsAFK = afk != 0
	return &e, nil
}

func collectEvents(rows *sql.Rows) ([]*domain.Event, error) {
	var events []*domain.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
