// Package web is the hub: it ingests event pushes from leaf devices and
// answers sync status and read-only activity queries.
package web

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"timely/internal/query"
	"timely/internal/store"
)

type Server struct {
	router *http.ServeMux
	port   int
	apiKey string
	log    *slog.Logger

	devices *store.DeviceRepository
	events  *store.EventRepository
	cats    *store.CategoryRepository
	queries *query.Queries
}

// NewServer wires the hub's routes. apiKey may be empty (open mode).
func NewServer(db *sql.DB, port int, apiKey string, log *slog.Logger) *Server {
	events := store.NewEventRepository(db)
	s := &Server{
		router:  http.NewServeMux(),
		port:    port,
		apiKey:  apiKey,
		log:     log,
		devices: store.NewDeviceRepository(db),
		events:  events,
		cats:    store.NewCategoryRepository(db),
		queries: query.New(db, events),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	api := http.NewServeMux()
	api.HandleFunc("POST /api/sync/push", s.handlePush)
	api.HandleFunc("POST /api/sync/register", s.handleRegister)
	api.HandleFunc("GET /api/sync/status", s.handleSyncStatus)

	api.HandleFunc("GET /api/summary", s.handleSummary)
	api.HandleFunc("GET /api/timeline", s.handleTimeline)
	api.HandleFunc("GET /api/productivity", s.handleProductivity)
	api.HandleFunc("GET /api/current", s.handleCurrent)
	api.HandleFunc("GET /api/categories", s.handleCategories)

	s.router.Handle("/api/", requireAPIKey(s.apiKey, api))
}

// Handler exposes the routed mux, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.log.Info("hub listening", "port", s.port, "auth", s.apiKey != "")

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.log.Error("hub shutdown", "error", err)
		}
	}()

	err := server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}
