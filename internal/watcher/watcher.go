// Package watcher is the sensor boundary: a best-effort probe of the
// current foreground activity. Platforms without a probe report
// platform-not-supported on every call; the daemon logs and keeps polling.
package watcher

import (
	"context"
	"runtime"

	"timely/internal/apperr"
	"timely/internal/domain"
)

// Watcher produces activity snapshots on demand.
type Watcher interface {
	// Snapshot returns the current foreground activity. Failures are
	// transient by contract; callers should log and retry on the next poll.
	Snapshot(ctx context.Context) (domain.Snapshot, error)
}

// New returns the watcher for the current platform.
func New() Watcher {
	return newPlatformWatcher()
}

type unsupportedWatcher struct{}

func (unsupportedWatcher) Snapshot(context.Context) (domain.Snapshot, error) {
	return domain.Snapshot{}, apperr.New(apperr.CodePlatformNotSupported,
		"no activity watcher for platform %s", runtime.GOOS)
}
