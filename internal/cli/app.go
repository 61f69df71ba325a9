package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"timely/internal/config"
	"timely/internal/database"
	"timely/internal/domain"
	"timely/internal/logging"
	"timely/internal/query"
	"timely/internal/store"
)

// AppContext holds the shared dependencies of every command.
type AppContext struct {
	Config *config.Config
	DB     *sql.DB
	Log    *slog.Logger

	Events   *store.EventRepository
	Cats     *store.CategoryRepository
	Devices  *store.DeviceRepository
	SyncLog  *store.SyncLogRepository
	Settings *store.SettingsRepository
	Queries  *query.Queries
}

// NewAppContext loads the environment configuration and opens the database.
func NewAppContext(ctx context.Context) (*AppContext, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	db, err := database.Open(ctx, cfg.DBPath())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	events := store.NewEventRepository(db)
	return &AppContext{
		Config:   cfg,
		DB:       db,
		Log:      logging.New(os.Stderr, false),
		Events:   events,
		Cats:     store.NewCategoryRepository(db),
		Devices:  store.NewDeviceRepository(db),
		SyncLog:  store.NewSyncLogRepository(db),
		Settings: store.NewSettingsRepository(db),
		Queries:  query.New(db, events),
	}, nil
}

// LocalDevice resolves this machine's device row.
func (a *AppContext) LocalDevice(ctx context.Context) (*domain.Device, error) {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return a.Devices.GetOrCreate(ctx, hostname, runtime.GOOS)
}

// Close releases the database handle.
func (a *AppContext) Close() error {
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}
