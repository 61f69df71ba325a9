// Package heartbeat turns the stream of activity snapshots into durable
// events: one row per continuous activity, extended in place while the
// activity lasts.
package heartbeat

import (
	"context"
	"fmt"
	"time"

	"timely/internal/categorize"
	"timely/internal/domain"
	"timely/internal/store"
)

// MergeGap is the maximum silence tolerated before two observations of the
// same activity are considered discontinuous. It is deliberately longer than
// the poll interval so brief polling hiccups do not fragment an activity,
// and short enough that a machine coming back from sleep starts a new event
// instead of stretching the old one across the outage.
const MergeGap = 65 * time.Second

// Outcome reports which path a heartbeat took.
type Outcome int

const (
	// Extended means the last event's duration was updated in place.
	Extended Outcome = iota
	// Started means a new event row was inserted.
	Started
)

// Segmenter applies the extend-or-segment decision for each heartbeat.
type Segmenter struct {
	events *store.EventRepository
	cats   *store.CategoryRepository
}

func NewSegmenter(events *store.EventRepository, cats *store.CategoryRepository) *Segmenter {
	return &Segmenter{events: events, cats: cats}
}

// Process folds one snapshot observed at now into the event store: it
// extends the device's last event when the snapshot continues the same
// activity within the merge gap, and starts a new event otherwise. New
// events are classified against the current rule list, falling back to the
// uncategorized category when no rule matches.
func (s *Segmenter) Process(ctx context.Context, deviceID string, snap domain.Snapshot, now time.Time) (Outcome, error) {
	last, err := s.events.GetLast(ctx, deviceID)
	if err != nil {
		return Started, err
	}

	if last != nil && sameActivity(last, snap) {
		elapsed := now.Sub(last.Timestamp).Seconds()
		if elapsed < last.Duration+MergeGap.Seconds() {
			return Extended, s.events.Extend(ctx, last.ID, elapsed)
		}
	}

	categoryID, err := s.classify(ctx, snap)
	if err != nil {
		return Started, err
	}
	_, err = s.events.Insert(ctx, &domain.Event{
		DeviceID:   deviceID,
		Timestamp:  now,
		Duration:   0,
		App:        snap.App,
		Title:      snap.Title,
		URL:        snap.URL,
		URLDomain:  snap.URLDomain,
		CategoryID: categoryID,
		IsAFK:      snap.IsAFK,
	})
	if err != nil {
		return Started, fmt.Errorf("start new event: %w", err)
	}
	return Started, nil
}

func (s *Segmenter) classify(ctx context.Context, snap domain.Snapshot) (*int64, error) {
	rules, err := s.cats.ListRules(ctx)
	if err != nil {
		return nil, err
	}
	if id, ok := categorize.Classify(snap, rules); ok {
		return &id, nil
	}
	fallback, err := s.cats.GetByName(ctx, categorize.UncategorizedName)
	if err != nil {
		return nil, err
	}
	if fallback == nil {
		return nil, nil
	}
	return &fallback.ID, nil
}

// sameActivity compares the (app, title, url_domain, is_afk) tuple. The URL
// itself is intentionally excluded: navigating between pages of the same
// site must not fragment the event.
func sameActivity(last *domain.Event, snap domain.Snapshot) bool {
	return last.App == snap.App &&
		last.Title == snap.Title &&
		strPtrEqual(last.URLDomain, snap.URLDomain) &&
		last.IsAFK == snap.IsAFK
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
