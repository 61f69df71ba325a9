// Package daemon owns the capture process: the poll loop feeding snapshots
// into the segmenter, the slower sync cadence, and the PID-file lifecycle.
package daemon

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"time"

	"timely/internal/categorize"
	"timely/internal/config"
	"timely/internal/domain"
	"timely/internal/heartbeat"
	"timely/internal/metrics"
	"timely/internal/store"
	"timely/internal/sync"
	"timely/internal/watcher"
)

// DefaultSyncInterval is the push cadence when sync.interval_secs is unset.
const DefaultSyncInterval = 300 * time.Second

// cancelSlice bounds shutdown latency: the inter-poll sleep is cut into
// slices this long, each checking for cancellation.
const cancelSlice = 100 * time.Millisecond

type Daemon struct {
	cfg      *config.Config
	log      *slog.Logger
	watcher  watcher.Watcher
	recorder metrics.Recorder

	events    *store.EventRepository
	cats      *store.CategoryRepository
	devices   *store.DeviceRepository
	syncLog   *store.SyncLogRepository
	settings  *store.SettingsRepository
	segmenter *heartbeat.Segmenter
}

func New(cfg *config.Config, db *sql.DB, w watcher.Watcher, recorder metrics.Recorder, log *slog.Logger) *Daemon {
	events := store.NewEventRepository(db)
	cats := store.NewCategoryRepository(db)
	return &Daemon{
		cfg:       cfg,
		log:       log,
		watcher:   w,
		recorder:  recorder,
		events:    events,
		cats:      cats,
		devices:   store.NewDeviceRepository(db),
		syncLog:   store.NewSyncLogRepository(db),
		settings:  store.NewSettingsRepository(db),
		segmenter: heartbeat.NewSegmenter(events, cats),
	}
}

// Run captures until ctx is cancelled. It seeds the builtin categories,
// resolves the local device identity and holds the PID file for the whole
// run.
func (d *Daemon) Run(ctx context.Context) error {
	if err := categorize.Seed(ctx, d.cats); err != nil {
		return err
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	device, err := d.devices.GetOrCreate(ctx, hostname, runtime.GOOS)
	if err != nil {
		return err
	}

	pidFile := &PIDFile{Path: d.cfg.PIDPath()}
	if err := pidFile.Acquire(); err != nil {
		return err
	}
	defer pidFile.Release()

	syncEnabled, syncInterval, err := d.syncConfig(ctx)
	if err != nil {
		return err
	}

	d.log.Info("daemon started",
		"device", device.Name, "pid", os.Getpid(),
		"poll_interval", d.cfg.PollInterval, "sync_enabled", syncEnabled)
	if syncEnabled {
		d.log.Info("sync enabled", "interval", syncInterval)
	}

	var syncCounter time.Duration
	for {
		now := time.Now().UTC()
		if snap, err := d.watcher.Snapshot(ctx); err != nil {
			d.log.Warn("snapshot failed", "error", err)
		} else {
			d.recorder.RecordHeartbeat(ctx)
			outcome, err := d.segmenter.Process(ctx, device.ID, snap, now)
			switch {
			case err != nil:
				d.log.Warn("heartbeat failed", "error", err)
			case outcome == heartbeat.Extended:
				d.recorder.RecordExtend(ctx)
			default:
				d.recorder.RecordSegment(ctx)
			}
		}

		syncCounter += d.cfg.PollInterval
		if syncEnabled && syncCounter >= syncInterval {
			syncCounter = 0
			d.pushOnce(ctx, device)
		}

		if !d.sleep(ctx) {
			break
		}
	}

	d.log.Info("daemon stopped")
	return nil
}

// pushOnce runs one sync push. Push failures are logged and skipped: the
// cursor did not move, so the next tick retries the same events.
func (d *Daemon) pushOnce(ctx context.Context, device *domain.Device) {
	client, err := sync.FromSettings(ctx, d.settings, d.events, d.syncLog, d.log)
	if err != nil {
		d.log.Warn("sync skipped", "error", err)
		return
	}
	result, err := client.Push(ctx, device)
	if err != nil {
		d.log.Warn("sync push failed", "error", err)
		return
	}
	if result.Pushed > 0 {
		d.recorder.RecordPush(ctx, result.Accepted, result.Duplicates)
		d.log.Info("sync push done",
			"pushed", result.Pushed, "accepted", result.Accepted,
			"duplicates", result.Duplicates, "batches", result.Batches)
	}
}

func (d *Daemon) syncConfig(ctx context.Context) (bool, time.Duration, error) {
	enabled, _, err := d.settings.Get(ctx, store.SettingSyncEnabled)
	if err != nil {
		return false, 0, err
	}
	interval := DefaultSyncInterval
	if raw, ok, err := d.settings.Get(ctx, store.SettingSyncInterval); err != nil {
		return false, 0, err
	} else if ok {
		if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
			interval = time.Duration(secs) * time.Second
		}
	}
	return enabled == "true", interval, nil
}

// sleep waits one poll interval in cancellation-check slices. Returns false
// when ctx was cancelled.
func (d *Daemon) sleep(ctx context.Context) bool {
	deadline := time.Now().Add(d.cfg.PollInterval)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(cancelSlice):
		}
	}
	return true
}
